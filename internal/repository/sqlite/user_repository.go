package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	moderncsqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"user-auth/internal/domain"
	"user-auth/internal/repository"
)

const createUsersTable = `
CREATE TABLE IF NOT EXISTS users (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	email TEXT NOT NULL UNIQUE,
	hashed_password TEXT NOT NULL,
	session_id TEXT NULL,
	reset_token TEXT NULL,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);
`

const (
	createSessionIndex = `CREATE INDEX IF NOT EXISTS idx_users_session_id ON users (session_id)`
	createResetIndex   = `CREATE INDEX IF NOT EXISTS idx_users_reset_token ON users (reset_token)`
)

const selectUser = `
SELECT id, email, hashed_password, session_id, reset_token, created_at, updated_at
FROM users
`

type UserRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db, now: time.Now}
}

func (r *UserRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createUsersTable); err != nil {
		return fmt.Errorf("create users table: %w", err)
	}
	if err := r.ensureUserColumns(ctx); err != nil {
		return err
	}
	if _, err := r.db.ExecContext(ctx, createSessionIndex); err != nil {
		return fmt.Errorf("create session index: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, createResetIndex); err != nil {
		return fmt.Errorf("create reset index: %w", err)
	}
	return nil
}

// ensureUserColumns upgrades users tables created before sessions and
// password resets were tracked.
func (r *UserRepository) ensureUserColumns(ctx context.Context) error {
	rows, err := r.db.QueryContext(ctx, `PRAGMA table_info(users)`)
	if err != nil {
		return fmt.Errorf("describe users table: %w", err)
	}
	defer rows.Close()

	columns := map[string]struct{}{}
	for rows.Next() {
		var (
			cid       int
			name      string
			ctype     string
			notnull   int
			dfltValue any
			pk        int
		)
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dfltValue, &pk); err != nil {
			return fmt.Errorf("scan pragma table info: %w", err)
		}
		columns[name] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate pragma table info: %w", err)
	}

	addColumn := func(name, statement string) error {
		if _, exists := columns[name]; exists {
			return nil
		}
		if _, err := r.db.ExecContext(ctx, statement); err != nil {
			return fmt.Errorf("add column %s: %w", name, err)
		}
		return nil
	}

	if err := addColumn("session_id", `ALTER TABLE users ADD COLUMN session_id TEXT NULL`); err != nil {
		return err
	}
	return addColumn("reset_token", `ALTER TABLE users ADD COLUMN reset_token TEXT NULL`)
}

func (r *UserRepository) FindUserBy(ctx context.Context, criteria domain.UserCriteria) (*domain.User, error) {
	if !criteria.Valid() {
		return nil, fmt.Errorf("%w: %q", repository.ErrInvalidCriteria, criteria.Field)
	}
	if criteria.Value == "" {
		return nil, repository.ErrNotFound
	}

	// criteria.Field is one of the validated column names above.
	row := r.db.QueryRowContext(ctx, selectUser+`WHERE `+string(criteria.Field)+` = ?`, criteria.Value)
	return scanUser(row)
}

func (r *UserRepository) AddUser(ctx context.Context, email, hashedPassword string) (*domain.User, error) {
	now := r.now().UTC()
	user := &domain.User{
		Email:          email,
		HashedPassword: hashedPassword,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	res, err := r.db.ExecContext(ctx, `
INSERT INTO users (email, hashed_password, created_at, updated_at)
VALUES (?, ?, ?, ?)`,
		user.Email,
		user.HashedPassword,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: %s", repository.ErrAlreadyExists, email)
		}
		return nil, repository.NewStoreError("insert user", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, repository.NewStoreError("user last insert id", err)
	}
	user.ID = id
	return user, nil
}

func (r *UserRepository) UpdateUser(ctx context.Context, id int64, update domain.UserUpdate) error {
	if update.Empty() {
		return repository.ErrEmptyUpdate
	}

	var (
		sets []string
		args []any
	)
	if update.HashedPassword != nil {
		sets = append(sets, "hashed_password=?")
		args = append(args, *update.HashedPassword)
	}
	if update.SessionID.IsSet() {
		sets = append(sets, "session_id=?")
		args = append(args, nullString(update.SessionID.Value()))
	}
	if update.ResetToken.IsSet() {
		sets = append(sets, "reset_token=?")
		args = append(args, nullString(update.ResetToken.Value()))
	}
	sets = append(sets, "updated_at=?")
	args = append(args, r.now().UTC())

	query := `UPDATE users SET ` + strings.Join(sets, ", ") + ` WHERE id=?`
	args = append(args, id)
	if update.ResetTokenMatch != nil {
		query += ` AND reset_token=?`
		args = append(args, *update.ResetTokenMatch)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return repository.NewStoreError("update user", err)
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return repository.NewStoreError("user update rows affected", err)
	}
	if aff == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func scanUser(row interface {
	Scan(dest ...any) error
}) (*domain.User, error) {
	var (
		user       domain.User
		sessionID  sql.NullString
		resetToken sql.NullString
	)
	if err := row.Scan(
		&user.ID,
		&user.Email,
		&user.HashedPassword,
		&sessionID,
		&resetToken,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, repository.NewStoreError("scan user", err)
	}
	if sessionID.Valid {
		user.SessionID = &sessionID.String
	}
	if resetToken.Valid {
		user.ResetToken = &resetToken.String
	}
	return &user, nil
}

func nullString(v *string) any {
	if v == nil {
		return nil
	}
	return *v
}

func isUniqueViolation(err error) bool {
	var sqliteErr *moderncsqlite.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint")
}
