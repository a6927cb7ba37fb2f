package sessionauth

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

var errStoreDown = errors.New("connection refused")

// testClock is a settable time source shared by config and fakes
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// memTokenStore is an in-memory TokenStore
type memTokenStore struct {
	mu      sync.Mutex
	records map[string]*TokenRecord
	nextID  int
	err     error // returned by every call when set
	delay   time.Duration
}

func newMemTokenStore() *memTokenStore {
	return &memTokenStore{records: make(map[string]*TokenRecord)}
}

func (s *memTokenStore) wait(ctx context.Context) error {
	if s.delay == 0 {
		return nil
	}
	select {
	case <-time.After(s.delay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *memTokenStore) Register(ctx context.Context, record *TokenRecord) error {
	if err := s.wait(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	if _, dup := s.records[record.Token]; dup {
		return errors.New("duplicate token")
	}
	s.nextID++
	stored := *record
	stored.ID = fmt.Sprintf("t-%d", s.nextID)
	record.ID = stored.ID
	s.records[record.Token] = &stored
	return nil
}

func (s *memTokenStore) FindByToken(ctx context.Context, token string) (*TokenRecord, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	r, ok := s.records[token]
	if !ok {
		return nil, ErrRecordNotFound
	}
	cp := *r
	return &cp, nil
}

func (s *memTokenStore) FindAllByUser(ctx context.Context, userID string) ([]*TokenRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	var out []*TokenRecord
	for _, r := range s.records {
		if r.UserID == userID {
			cp := *r
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *memTokenStore) DeleteAll(ctx context.Context, records []*TokenRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	for _, r := range records {
		delete(s.records, r.Token)
	}
	return nil
}

func (s *memTokenStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

func (s *memTokenStore) fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

// memDirectory is an in-memory UserDirectory
type memDirectory struct {
	mu    sync.Mutex
	users map[string]*UserRecord
	err   error
}

func newMemDirectory(users ...*UserRecord) *memDirectory {
	d := &memDirectory{users: make(map[string]*UserRecord)}
	for _, u := range users {
		d.users[u.Username] = u
	}
	return d
}

func (d *memDirectory) FindByUsername(ctx context.Context, username string) (*UserRecord, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return nil, d.err
	}
	u, ok := d.users[username]
	if !ok {
		return nil, ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (d *memDirectory) remove(username string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.users, username)
}

// plainHasher stores passwords as "plain:<password>" and counts verifications
type plainHasher struct {
	mu       sync.Mutex
	verified []string
}

func (h *plainHasher) Verify(candidate, hash string) bool {
	h.mu.Lock()
	h.verified = append(h.verified, hash)
	h.mu.Unlock()
	return hash == "plain:"+candidate
}

func (h *plainHasher) DummyHash() string {
	return "plain:\x00dummy"
}

func (h *plainHasher) calls() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.verified...)
}

func newTestSecret(t testing.TB) []byte {
	t.Helper()
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		t.Fatalf("Failed to generate secret: %v", err)
	}
	return secret
}

// testEnv bundles a service with its fakes
type testEnv struct {
	clock  *testClock
	store  *memTokenStore
	users  *memDirectory
	hasher *plainHasher
	svc    *SessionService
}

func newTestEnv(t testing.TB, opts ...ConfigOption) *testEnv {
	t.Helper()
	env := &testEnv{
		clock:  newTestClock(),
		store:  newMemTokenStore(),
		hasher: &plainHasher{},
		users: newMemDirectory(
			&UserRecord{ID: "u-1", Username: "alice", Email: "alice@example.com", PasswordHash: "plain:wonderland"},
			&UserRecord{ID: "u-2", Username: "bob", Email: "bob@example.com", PasswordHash: "plain:builder"},
		),
	}

	base := []ConfigOption{WithSigningSecret(newTestSecret(t)), WithClock(env.clock.Now)}
	cfg, err := NewConfig(append(base, opts...)...)
	if err != nil {
		t.Fatalf("Failed to create config: %v", err)
	}

	env.svc, err = NewSessionService(cfg, env.users, env.store, env.hasher)
	if err != nil {
		t.Fatalf("Failed to create service: %v", err)
	}
	return env
}

func (e *testEnv) mustLogin(t testing.TB, username, password string) *Session {
	t.Helper()
	session, err := e.svc.Login(context.Background(), username, password)
	if err != nil {
		t.Fatalf("Login(%s) failed: %v", username, err)
	}
	return session
}

func assertCode(t *testing.T, err error, want ErrorCode) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error %s, got nil", want)
	}
	if got := CodeOf(err); got != want {
		t.Fatalf("expected error code %s, got %s (%v)", want, got, err)
	}
}
