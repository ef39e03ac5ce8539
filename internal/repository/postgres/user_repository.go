package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"user-auth/internal/domain"
	"user-auth/internal/repository"
)

// pool is the subset of *pgxpool.Pool used by the repository, so that
// pgxmock can stand in for a database in unit tests.
type pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const selectUser = `
SELECT id, email, hashed_password, session_id, reset_token, created_at, updated_at
FROM users
`

// UserRepository implements repository.UserRepository using PostgreSQL.
type UserRepository struct {
	pool pool
	now  func() time.Time
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(p pool) *UserRepository {
	return &UserRepository{pool: p, now: time.Now}
}

// Connect opens a connection pool and verifies the server is reachable.
func Connect(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	p, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("create postgres pool: %w", err)
	}
	if err := p.Ping(ctx); err != nil {
		p.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return p, nil
}

// Init checks that the users table exists. The schema itself is owned by
// the embedded migrations (see Migrator).
func (r *UserRepository) Init(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, `SELECT 1 FROM users LIMIT 0`); err != nil {
		return fmt.Errorf("users table not ready (run migrations): %w", err)
	}
	return nil
}

// FindUserBy retrieves the user matching criteria.
func (r *UserRepository) FindUserBy(ctx context.Context, criteria domain.UserCriteria) (*domain.User, error) {
	if !criteria.Valid() {
		return nil, fmt.Errorf("%w: %q", repository.ErrInvalidCriteria, criteria.Field)
	}
	if criteria.Value == "" {
		return nil, repository.ErrNotFound
	}

	row := r.pool.QueryRow(ctx, selectUser+`WHERE `+string(criteria.Field)+` = $1`, criteria.Value)
	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, repository.NewStoreError("get user by "+string(criteria.Field), err)
	}
	return user, nil
}

// AddUser stores a new user; the users_email_key constraint enforces uniqueness.
func (r *UserRepository) AddUser(ctx context.Context, email, hashedPassword string) (*domain.User, error) {
	now := r.now().UTC()
	user := &domain.User{
		Email:          email,
		HashedPassword: hashedPassword,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	err := r.pool.QueryRow(ctx, `
		INSERT INTO users (email, hashed_password, created_at, updated_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, user.Email, user.HashedPassword, user.CreatedAt, user.UpdatedAt).Scan(&user.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return nil, fmt.Errorf("%w: %s", repository.ErrAlreadyExists, email)
		}
		return nil, repository.NewStoreError("insert user", err)
	}
	return user, nil
}

// UpdateUser applies a partial update in a single statement.
func (r *UserRepository) UpdateUser(ctx context.Context, id int64, update domain.UserUpdate) error {
	if update.Empty() {
		return repository.ErrEmptyUpdate
	}

	var (
		sets []string
		args []any
	)
	bind := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if update.HashedPassword != nil {
		bind("hashed_password", *update.HashedPassword)
	}
	if update.SessionID.IsSet() {
		bind("session_id", nullString(update.SessionID.Value()))
	}
	if update.ResetToken.IsSet() {
		bind("reset_token", nullString(update.ResetToken.Value()))
	}
	bind("updated_at", r.now().UTC())

	args = append(args, id)
	query := fmt.Sprintf(`UPDATE users SET %s WHERE id = $%d`, strings.Join(sets, ", "), len(args))
	if update.ResetTokenMatch != nil {
		args = append(args, *update.ResetTokenMatch)
		query += fmt.Sprintf(` AND reset_token = $%d`, len(args))
	}

	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return repository.NewStoreError("update user", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func scanUser(row pgx.Row) (*domain.User, error) {
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
		return nil, err
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
