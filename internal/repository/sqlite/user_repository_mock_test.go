package sqlite_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"user-auth/internal/domain"
	"user-auth/internal/repository"
	"user-auth/internal/repository/sqlite"
)

func newRepoWithMock(t *testing.T) (*sqlite.UserRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})
	return sqlite.NewUserRepository(db), mock
}

func TestUserRepositoryMock_AddUser(t *testing.T) {
	ctx := context.Background()

	t.Run("surfaces storage failures as StoreError", func(t *testing.T) {
		repo, mock := newRepoWithMock(t)
		cause := errors.New("disk I/O error")
		mock.ExpectExec(`INSERT INTO users \(email, hashed_password, created_at, updated_at\)`).
			WithArgs("u@x.com", "hash", sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnError(cause)

		user, err := repo.AddUser(ctx, "u@x.com", "hash")
		require.Error(t, err)
		assert.Nil(t, user)
		assert.True(t, repository.IsStoreError(err))
		assert.ErrorIs(t, err, cause)
	})

	t.Run("maps unique constraint failures", func(t *testing.T) {
		repo, mock := newRepoWithMock(t)
		mock.ExpectExec(`INSERT INTO users`).
			WillReturnError(errors.New("constraint failed: UNIQUE constraint failed: users.email (2067)"))

		_, err := repo.AddUser(ctx, "u@x.com", "hash")
		assert.ErrorIs(t, err, repository.ErrAlreadyExists)
		assert.False(t, repository.IsStoreError(err))
	})

	t.Run("returns the inserted id", func(t *testing.T) {
		repo, mock := newRepoWithMock(t)
		mock.ExpectExec(`INSERT INTO users`).
			WillReturnResult(sqlmock.NewResult(42, 1))

		user, err := repo.AddUser(ctx, "u@x.com", "hash")
		require.NoError(t, err)
		assert.Equal(t, int64(42), user.ID)
	})
}

func TestUserRepositoryMock_FindUserBy(t *testing.T) {
	ctx := context.Background()
	columns := []string{"id", "email", "hashed_password", "session_id", "reset_token", "created_at", "updated_at"}

	t.Run("queries the selected column", func(t *testing.T) {
		repo, mock := newRepoWithMock(t)
		now := time.Now().UTC()
		mock.ExpectQuery(`FROM users WHERE reset_token = \?`).
			WithArgs("tok").
			WillReturnRows(sqlmock.NewRows(columns).AddRow(int64(7), "u@x.com", "hash", nil, "tok", now, now))

		user, err := repo.FindUserBy(ctx, domain.ByResetToken("tok"))
		require.NoError(t, err)
		assert.Equal(t, int64(7), user.ID)
		assert.Nil(t, user.SessionID)
		require.NotNil(t, user.ResetToken)
		assert.Equal(t, "tok", *user.ResetToken)
	})

	t.Run("no rows is ErrNotFound", func(t *testing.T) {
		repo, mock := newRepoWithMock(t)
		mock.ExpectQuery(`FROM users WHERE email = \?`).
			WithArgs("nobody@x.com").
			WillReturnError(sql.ErrNoRows)

		_, err := repo.FindUserBy(ctx, domain.ByEmail("nobody@x.com"))
		assert.ErrorIs(t, err, repository.ErrNotFound)
	})

	t.Run("query failures are surfaced", func(t *testing.T) {
		repo, mock := newRepoWithMock(t)
		mock.ExpectQuery(`FROM users WHERE session_id = \?`).
			WillReturnError(errors.New("database is locked"))

		_, err := repo.FindUserBy(ctx, domain.BySessionID("s"))
		require.Error(t, err)
		assert.True(t, repository.IsStoreError(err))
		assert.NotErrorIs(t, err, repository.ErrNotFound)
	})
}

func TestUserRepositoryMock_UpdateUser(t *testing.T) {
	ctx := context.Background()

	t.Run("writes password and clears token in one guarded statement", func(t *testing.T) {
		repo, mock := newRepoWithMock(t)
		hash := "new-hash"
		token := "tok"
		mock.ExpectExec(`UPDATE users SET hashed_password=\?, reset_token=\?, updated_at=\? WHERE id=\? AND reset_token=\?`).
			WithArgs("new-hash", nil, sqlmock.AnyArg(), int64(3), "tok").
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.UpdateUser(ctx, 3, domain.UserUpdate{
			HashedPassword:  &hash,
			ResetToken:      domain.Clear(),
			ResetTokenMatch: &token,
		})
		assert.NoError(t, err)
	})

	t.Run("zero rows affected is ErrNotFound", func(t *testing.T) {
		repo, mock := newRepoWithMock(t)
		mock.ExpectExec(`UPDATE users SET session_id=\?, updated_at=\? WHERE id=\?`).
			WithArgs("s", sqlmock.AnyArg(), int64(9)).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.UpdateUser(ctx, 9, domain.UserUpdate{SessionID: domain.SetTo("s")})
		assert.ErrorIs(t, err, repository.ErrNotFound)
	})

	t.Run("exec failures are surfaced", func(t *testing.T) {
		repo, mock := newRepoWithMock(t)
		cause := errors.New("readonly database")
		mock.ExpectExec(`UPDATE users SET`).WillReturnError(cause)

		err := repo.UpdateUser(ctx, 1, domain.UserUpdate{SessionID: domain.Clear()})
		assert.True(t, repository.IsStoreError(err))
		assert.ErrorIs(t, err, cause)
	})

	t.Run("empty update never executes", func(t *testing.T) {
		repo, _ := newRepoWithMock(t)
		err := repo.UpdateUser(ctx, 1, domain.UserUpdate{})
		assert.ErrorIs(t, err, repository.ErrEmptyUpdate)
	})
}
