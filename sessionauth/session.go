package sessionauth

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"
)

const msgInvalidCredentials = "invalid username or password"

// Session is the result of a successful login
type Session struct {
	Token     string
	Username  string
	ExpiresAt time.Time
}

// SessionService issues, validates and revokes session tokens. A token
// is honoured only while its signature verifies, its claims are live and
// a matching record exists in the token store.
type SessionService struct {
	cfg       *Config
	codec     *TokenCodec
	users     UserDirectory
	store     TokenStore
	hasher    PasswordHasher
	dummyHash string
}

// NewSessionService wires the service to its collaborators
func NewSessionService(cfg *Config, users UserDirectory, store TokenStore, hasher PasswordHasher) (*SessionService, error) {
	if cfg == nil {
		return nil, NewError(ErrConfigError, "config cannot be nil", nil)
	}
	if users == nil || store == nil || hasher == nil {
		return nil, NewError(ErrConfigError, "user directory, token store and password hasher are required", nil)
	}

	dummyHash := hasher.DummyHash()
	if dummyHash == "" {
		return nil, NewError(ErrConfigError, "password hasher must supply a dummy hash", nil)
	}

	return &SessionService{
		cfg:       cfg,
		codec:     NewTokenCodec(cfg),
		users:     users,
		store:     store,
		hasher:    hasher,
		dummyHash: dummyHash,
	}, nil
}

// Config returns the configuration the service was built with
func (s *SessionService) Config() *Config {
	return s.cfg
}

// Login verifies credentials and registers a fresh token for the user.
// Unknown users and wrong passwords carry the same client message.
func (s *SessionService) Login(ctx context.Context, username, password string) (*Session, error) {
	start := time.Now()
	event := newEvent(ctx, actionLogin, username, start)

	session, err := s.login(ctx, username, password)
	event.Latency = time.Since(start)
	if err != nil {
		logSecurityEvent(s.cfg.Logger(), event.withFailure(err))
		return nil, err
	}

	event.TokenPreview = session.Token
	logSecurityEvent(s.cfg.Logger(), event)
	return session, nil
}

func (s *SessionService) login(ctx context.Context, username, password string) (*Session, error) {
	user, err := s.findUser(ctx, username)
	if err != nil {
		if CodeOf(err) == ErrNotFound {
			// Burn a comparable amount of work so lookups cannot be timed.
			s.hasher.Verify(password, s.dummyHash)
			return nil, NewError(ErrNotFound, msgInvalidCredentials, err)
		}
		return nil, err
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		return nil, NewError(ErrUnauthorized, msgInvalidCredentials, nil)
	}

	if err := s.enforceSessionLimit(ctx, user); err != nil {
		return nil, err
	}

	token, claims, err := s.codec.Encode(user.Username)
	if err != nil {
		return nil, err
	}

	record := &TokenRecord{
		UserID:    user.ID,
		Token:     token,
		CreatedAt: claims.IssuedAt,
		ExpiresAt: claims.ExpiresAt,
	}
	err = s.withTimeout(ctx, func(ctx context.Context) error {
		return s.store.Register(ctx, record)
	})
	if err != nil {
		return nil, infrastructureError("failed to register token", err)
	}

	return &Session{
		Token:     token,
		Username:  user.Username,
		ExpiresAt: claims.ExpiresAt,
	}, nil
}

// Validate resolves token to a principal. Decoding happens before any
// store access; a token without a live record is REVOKED.
func (s *SessionService) Validate(ctx context.Context, token string) (*Principal, error) {
	claims, err := s.codec.Decode(token)
	if err != nil {
		return nil, err
	}

	var record *TokenRecord
	err = s.withTimeout(ctx, func(ctx context.Context) error {
		var err error
		record, err = s.store.FindByToken(ctx, token)
		return err
	})
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return nil, NewError(ErrRevoked, "token has been revoked", err)
		}
		return nil, infrastructureError("failed to look up token", err)
	}

	if !s.cfg.now().Before(record.ExpiresAt) {
		return nil, NewError(ErrExpired, "token record has expired", nil)
	}
	if record.ExpiresAt.After(claims.ExpiresAt) {
		return nil, NewError(ErrMalformedToken, "token record outlives its claims", nil)
	}

	user, err := s.findUser(ctx, claims.Subject)
	if err != nil {
		return nil, err
	}
	if record.UserID != user.ID {
		return nil, NewError(ErrRevoked, "token is not registered to its subject", nil)
	}

	return &Principal{Username: user.Username}, nil
}

// Logout revokes every session of username. It reports NOT_FOUND when the
// user has no unexpired session; expired records are swept either way.
func (s *SessionService) Logout(ctx context.Context, username string) error {
	start := time.Now()
	event := newEvent(ctx, actionLogout, username, start)

	err := s.logout(ctx, username)
	event.Latency = time.Since(start)
	if err != nil {
		logSecurityEvent(s.cfg.Logger(), event.withFailure(err))
		return err
	}

	logSecurityEvent(s.cfg.Logger(), event)
	return nil
}

func (s *SessionService) logout(ctx context.Context, username string) error {
	user, err := s.findUser(ctx, username)
	if err != nil {
		return err
	}

	records, err := s.findAllByUser(ctx, user.ID)
	if err != nil {
		return err
	}

	if len(s.active(records)) == 0 {
		if len(records) > 0 {
			// Sweep leftovers; the caller still learns there was nothing to end.
			if err := s.deleteAll(ctx, records); err != nil {
				return err
			}
		}
		return NewError(ErrNotFound, "no active session for user", nil)
	}

	return s.deleteAll(ctx, records)
}

// enforceSessionLimit evicts the oldest live sessions so that the login
// about to happen keeps the user within the configured cap.
func (s *SessionService) enforceSessionLimit(ctx context.Context, user *UserRecord) error {
	limit := s.cfg.MaxSessionsPerUser()
	if limit <= 0 {
		return nil
	}

	records, err := s.findAllByUser(ctx, user.ID)
	if err != nil {
		return err
	}

	active := s.active(records)
	if len(active) < limit {
		return nil
	}

	sort.Slice(active, func(i, j int) bool {
		return active[i].CreatedAt.Before(active[j].CreatedAt)
	})
	return s.deleteAll(ctx, active[:len(active)-limit+1])
}

func (s *SessionService) active(records []*TokenRecord) []*TokenRecord {
	now := s.cfg.now()
	live := make([]*TokenRecord, 0, len(records))
	for _, r := range records {
		if now.Before(r.ExpiresAt) {
			live = append(live, r)
		}
	}
	return live
}

func (s *SessionService) findUser(ctx context.Context, username string) (*UserRecord, error) {
	var user *UserRecord
	err := s.withTimeout(ctx, func(ctx context.Context) error {
		var err error
		user, err = s.users.FindByUsername(ctx, username)
		return err
	})
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, NewError(ErrNotFound, "user does not exist", err)
		}
		return nil, infrastructureError("failed to look up user", err)
	}
	return user, nil
}

func (s *SessionService) findAllByUser(ctx context.Context, userID string) ([]*TokenRecord, error) {
	var records []*TokenRecord
	err := s.withTimeout(ctx, func(ctx context.Context) error {
		var err error
		records, err = s.store.FindAllByUser(ctx, userID)
		return err
	})
	if err != nil {
		return nil, infrastructureError("failed to list sessions", err)
	}
	return records, nil
}

func (s *SessionService) deleteAll(ctx context.Context, records []*TokenRecord) error {
	err := s.withTimeout(ctx, func(ctx context.Context) error {
		return s.store.DeleteAll(ctx, records)
	})
	if err != nil {
		return infrastructureError("failed to revoke sessions", err)
	}
	return nil
}

func (s *SessionService) withTimeout(ctx context.Context, fn func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.StoreTimeout())
	defer cancel()
	return fn(ctx)
}

func infrastructureError(message string, err error) *Error {
	if errors.Is(err, context.DeadlineExceeded) {
		message = fmt.Sprintf("%s: timed out", message)
	}
	return NewError(ErrInfrastructure, message, err)
}
