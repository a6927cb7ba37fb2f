package sessionauth

import (
	"context"
	"time"
)

// TokenRecord is the server-side registration of an issued token.
// A token is live only while a record exists for it and ExpiresAt
// lies in the future.
type TokenRecord struct {
	ID        string
	UserID    string
	Token     string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// UserRecord is the directory's view of an account
type UserRecord struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// Principal is the authenticated identity attached to a request
type Principal struct {
	Username string
}

// TokenStore persists token records.
//
// FindByToken returns ErrRecordNotFound when no record exists. Any other
// error is treated as an infrastructure failure.
type TokenStore interface {
	Register(ctx context.Context, record *TokenRecord) error
	FindByToken(ctx context.Context, token string) (*TokenRecord, error)
	FindAllByUser(ctx context.Context, userID string) ([]*TokenRecord, error)
	DeleteAll(ctx context.Context, records []*TokenRecord) error
}

// UserDirectory looks up accounts. FindByUsername returns ErrUserNotFound
// when the username is unknown.
type UserDirectory interface {
	FindByUsername(ctx context.Context, username string) (*UserRecord, error)
}

// PasswordHasher verifies a plaintext candidate against a stored hash.
// DummyHash returns a well-formed hash that matches no password; logins
// for unknown users are verified against it so they cost as much as a
// wrong password. It must not be empty.
type PasswordHasher interface {
	Verify(candidate, hash string) bool
	DummyHash() string
}
