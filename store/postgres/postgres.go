// Package postgres implements authkit.UserStore on PostgreSQL via pgx.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/authkit-go/authkit"
)

// DB is the subset of pgxpool.Pool the store needs. Tests substitute a
// pgxmock pool.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Store implements authkit.UserStore.
type Store struct {
	db DB
}

// NewStore wraps an existing connection pool.
func NewStore(db DB) *Store {
	return &Store{db: db}
}

// Open connects to url, runs pending migrations, and returns the store with
// its pool. The caller owns the pool and must Close it.
func Open(ctx context.Context, url string) (*Store, *pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("ping postgres: %w", err)
	}
	if err := Migrate(url); err != nil {
		pool.Close()
		return nil, nil, err
	}
	return NewStore(pool), pool, nil
}

const userColumns = "id, email, name, password_hash, password_salt, role, created_at, updated_at"

func scanUser(row pgx.Row) (*authkit.User, error) {
	var u authkit.User
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.PasswordSalt,
		&u.Role, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, authkit.ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (s *Store) FindUserByEmail(ctx context.Context, email string) (*authkit.User, error) {
	const op = "postgres.FindUserByEmail"

	row := s.db.QueryRow(ctx,
		"SELECT "+userColumns+" FROM users WHERE lower(email) = lower($1)", email)
	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, authkit.ErrNotFound) {
			return nil, authkit.ErrNotFound
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

func (s *Store) FindUserByID(ctx context.Context, id int64) (*authkit.User, error) {
	const op = "postgres.FindUserByID"

	row := s.db.QueryRow(ctx,
		"SELECT "+userColumns+" FROM users WHERE id = $1", id)
	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, authkit.ErrNotFound) {
			return nil, authkit.ErrNotFound
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

func (s *Store) CreateUser(ctx context.Context, input authkit.CreateUserInput) (*authkit.User, error) {
	const op = "postgres.CreateUser"

	row := s.db.QueryRow(ctx,
		`INSERT INTO users (email, name, password_hash, password_salt, role)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING `+userColumns,
		input.Email, input.Name, input.PasswordHash, input.PasswordSalt, input.Role)
	u, err := scanUser(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return nil, authkit.ErrAlreadyExists
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

func (s *Store) UpdateUserPassword(ctx context.Context, userID int64, hash, salt string) error {
	const op = "postgres.UpdateUserPassword"

	tag, err := s.db.Exec(ctx,
		"UPDATE users SET password_hash = $1, password_salt = $2, updated_at = now() WHERE id = $3",
		hash, salt, userID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return authkit.ErrNotFound
	}
	return nil
}

func (s *Store) CreateResetToken(ctx context.Context, userID int64, tokenHash string, expiresAt time.Time) (*authkit.ResetToken, error) {
	const op = "postgres.CreateResetToken"

	var t authkit.ResetToken
	err := s.db.QueryRow(ctx,
		`INSERT INTO reset_password_tokens (user_id, token_hash, expires_at)
		 VALUES ($1, $2, $3)
		 RETURNING id, user_id, token_hash, expires_at, consumed, created_at`,
		userID, tokenHash, expiresAt).
		Scan(&t.ID, &t.UserID, &t.TokenHash, &t.ExpiresAt, &t.Consumed, &t.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation {
			return nil, authkit.ErrNotFound
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &t, nil
}

func (s *Store) DeleteResetTokensForUser(ctx context.Context, userID int64) error {
	const op = "postgres.DeleteResetTokensForUser"

	if _, err := s.db.Exec(ctx,
		"DELETE FROM reset_password_tokens WHERE user_id = $1", userID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (s *Store) LatestResetToken(ctx context.Context, userID int64) (*authkit.ResetToken, error) {
	const op = "postgres.LatestResetToken"

	var t authkit.ResetToken
	err := s.db.QueryRow(ctx,
		`SELECT id, user_id, token_hash, expires_at, consumed, created_at
		 FROM reset_password_tokens
		 WHERE user_id = $1
		 ORDER BY id DESC
		 LIMIT 1`, userID).
		Scan(&t.ID, &t.UserID, &t.TokenHash, &t.ExpiresAt, &t.Consumed, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, authkit.ErrNotFound
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &t, nil
}

func (s *Store) MarkResetTokenConsumed(ctx context.Context, tokenID int64) error {
	const op = "postgres.MarkResetTokenConsumed"

	tag, err := s.db.Exec(ctx,
		"UPDATE reset_password_tokens SET consumed = TRUE WHERE id = $1 AND NOT consumed", tokenID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return authkit.ErrNotFound
	}
	return nil
}

// UpdatePasswordAndConsumeToken commits the password change and the token
// consumption in one transaction. A token that was already consumed, or that
// belongs to someone else, rolls everything back with authkit.ErrNotFound.
func (s *Store) UpdatePasswordAndConsumeToken(ctx context.Context, userID int64, hash, salt string, tokenID int64) error {
	const op = "postgres.UpdatePasswordAndConsumeToken"

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%s: begin: %w", op, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx,
		`UPDATE reset_password_tokens SET consumed = TRUE
		 WHERE id = $1 AND user_id = $2 AND NOT consumed`, tokenID, userID)
	if err != nil {
		return fmt.Errorf("%s: consume token: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return authkit.ErrNotFound
	}

	tag, err = tx.Exec(ctx,
		"UPDATE users SET password_hash = $1, password_salt = $2, updated_at = now() WHERE id = $3",
		hash, salt, userID)
	if err != nil {
		return fmt.Errorf("%s: update password: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return authkit.ErrNotFound
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%s: commit: %w", op, err)
	}
	return nil
}
