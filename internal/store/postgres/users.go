package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/Wang-tianhao/session-auth-go/internal/users"
	"github.com/Wang-tianhao/session-auth-go/sessionauth"
)

const uniqueViolation = "23505"

// UserRepository implements sessionauth.UserDirectory and users.Repository
// over the users table
type UserRepository struct {
	db DBTX
}

// NewUserRepository constructs a repository bound to db
func NewUserRepository(db DBTX) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts user, filling in its ID and creation time
func (r *UserRepository) Create(ctx context.Context, user *sessionauth.UserRecord) error {
	query := `
		INSERT INTO users (id, username, email, password_hash)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`
	id := uuid.New().String()
	err := withRetry(ctx, func(ctx context.Context) error {
		return r.db.QueryRowContext(ctx, query, id, user.Username, user.Email, user.PasswordHash).
			Scan(&user.CreatedAt)
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("%w: %s", users.ErrConflict, pgErr.ConstraintName)
		}
		return fmt.Errorf("db error: %w", err)
	}
	user.ID = id
	return nil
}

// FindByUsername returns the user or sessionauth.ErrUserNotFound
func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*sessionauth.UserRecord, error) {
	query := `
		SELECT id, username, email, password_hash, created_at
		FROM users
		WHERE username = $1
	`
	return r.findOne(ctx, query, username)
}

// FindByEmail returns the user or sessionauth.ErrUserNotFound
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*sessionauth.UserRecord, error) {
	query := `
		SELECT id, username, email, password_hash, created_at
		FROM users
		WHERE email = $1
	`
	return r.findOne(ctx, query, email)
}

func (r *UserRepository) findOne(ctx context.Context, query string, arg string) (*sessionauth.UserRecord, error) {
	user := &sessionauth.UserRecord{}
	err := withRetry(ctx, func(ctx context.Context) error {
		return r.db.QueryRowContext(ctx, query, arg).
			Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash, &user.CreatedAt)
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sessionauth.ErrUserNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return user, nil
}
