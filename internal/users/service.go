// Package users registers accounts and serves public profiles.
package users

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Wang-tianhao/session-auth-go/sessionauth"
)

var (
	// ErrConflict is returned when a username or email is already taken.
	ErrConflict = errors.New("user already exists")
	// ErrInvalid is returned for registration input that fails validation.
	ErrInvalid = errors.New("invalid user data")
)

// Repository persists accounts
type Repository interface {
	Create(ctx context.Context, user *sessionauth.UserRecord) error
	FindByUsername(ctx context.Context, username string) (*sessionauth.UserRecord, error)
	FindByEmail(ctx context.Context, email string) (*sessionauth.UserRecord, error)
}

// Hasher produces password hashes
type Hasher interface {
	Hash(password string) (string, error)
}

// Registration is the input to Register
type Registration struct {
	Username string
	Email    string
	Password string
}

// Profile is the public view of an account
type Profile struct {
	ID        string
	Username  string
	Email     string
	CreatedAt time.Time
}

func profileOf(user *sessionauth.UserRecord) *Profile {
	return &Profile{ID: user.ID, Username: user.Username, Email: user.Email, CreatedAt: user.CreatedAt}
}

type Service struct {
	repo   Repository
	hasher Hasher
	logger *slog.Logger
}

func NewService(repo Repository, hasher Hasher, logger *slog.Logger) *Service {
	return &Service{repo: repo, hasher: hasher, logger: logger}
}

// Register creates an account after checking that username and email are free
func (s *Service) Register(ctx context.Context, in Registration) (*Profile, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if err := validate(in); err != nil {
		return nil, err
	}

	if err := s.ensureFree(ctx, in); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	user := &sessionauth.UserRecord{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "user registered", "username", user.Username, "user_id", user.ID)
	return profileOf(user), nil
}

// Lookup returns the public profile of username
func (s *Service) Lookup(ctx context.Context, username string) (*Profile, error) {
	user, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	return profileOf(user), nil
}

func (s *Service) ensureFree(ctx context.Context, in Registration) error {
	if _, err := s.repo.FindByUsername(ctx, in.Username); err == nil {
		return fmt.Errorf("%w: username %q is taken", ErrConflict, in.Username)
	} else if !errors.Is(err, sessionauth.ErrUserNotFound) {
		return err
	}

	if _, err := s.repo.FindByEmail(ctx, in.Email); err == nil {
		return fmt.Errorf("%w: email is already registered", ErrConflict)
	} else if !errors.Is(err, sessionauth.ErrUserNotFound) {
		return err
	}
	return nil
}

func validate(in Registration) error {
	switch {
	case len(in.Username) < 6 || len(in.Username) > 255:
		return fmt.Errorf("%w: username must be 6 to 255 characters", ErrInvalid)
	case in.Email == "" || len(in.Email) > 255 || !strings.Contains(in.Email, "@"):
		return fmt.Errorf("%w: email is not valid", ErrInvalid)
	case in.Password == "" || len(in.Password) > 255:
		return fmt.Errorf("%w: password must be 1 to 255 characters", ErrInvalid)
	}
	return nil
}
