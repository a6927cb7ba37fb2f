// Package password hashes and verifies account passwords with bcrypt.
package password

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// DefaultCost is used when no cost is configured
const DefaultCost = 10

// ErrTooLong is returned for passwords bcrypt would silently truncate
var ErrTooLong = errors.New("password exceeds 72 bytes")

// Bcrypt implements sessionauth.PasswordHasher
type Bcrypt struct {
	cost  int
	dummy string
}

// NewBcrypt creates a hasher with the given work factor
func NewBcrypt(cost int) (*Bcrypt, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("bcrypt cost must be between %d and %d, got %d", bcrypt.MinCost, bcrypt.MaxCost, cost)
	}

	seed := make([]byte, 16)
	if _, err := rand.Read(seed); err != nil {
		return nil, fmt.Errorf("generate dummy password: %w", err)
	}
	dummy, err := bcrypt.GenerateFromPassword([]byte(hex.EncodeToString(seed)), cost)
	if err != nil {
		return nil, fmt.Errorf("hash dummy password: %w", err)
	}

	return &Bcrypt{cost: cost, dummy: string(dummy)}, nil
}

// Hash returns the bcrypt hash of password
func (b *Bcrypt) Hash(password string) (string, error) {
	if len(password) > 72 {
		return "", ErrTooLong
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), b.cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Verify reports whether candidate matches hash
func (b *Bcrypt) Verify(candidate, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(candidate)) == nil
}

// DummyHash returns a hash at the configured cost that matches no real
// password. Verifying against it costs the same as a real verification.
func (b *Bcrypt) DummyHash() string {
	return b.dummy
}
