package users

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Wang-tianhao/session-auth-go/sessionauth"
)

type memRepo struct {
	mu    sync.Mutex
	users []*sessionauth.UserRecord
	err   error
}

func (r *memRepo) Create(ctx context.Context, user *sessionauth.UserRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	user.ID = "id-" + user.Username
	r.users = append(r.users, user)
	return nil
}

func (r *memRepo) find(match func(*sessionauth.UserRecord) bool) (*sessionauth.UserRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	for _, u := range r.users {
		if match(u) {
			return u, nil
		}
	}
	return nil, sessionauth.ErrUserNotFound
}

func (r *memRepo) FindByUsername(ctx context.Context, username string) (*sessionauth.UserRecord, error) {
	return r.find(func(u *sessionauth.UserRecord) bool { return u.Username == username })
}

func (r *memRepo) FindByEmail(ctx context.Context, email string) (*sessionauth.UserRecord, error) {
	return r.find(func(u *sessionauth.UserRecord) bool { return u.Email == email })
}

type prefixHasher struct{}

func (prefixHasher) Hash(password string) (string, error) { return "hashed:" + password, nil }

func newService(repo *memRepo) *Service {
	return NewService(repo, prefixHasher{}, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestRegister_Success(t *testing.T) {
	repo := &memRepo{}
	svc := newService(repo)

	profile, err := svc.Register(context.Background(), Registration{
		Username: " alice1 ",
		Email:    "Alice@Example.com",
		Password: "wonderland",
	})
	require.NoError(t, err)
	assert.Equal(t, &Profile{ID: "id-alice1", Username: "alice1", Email: "alice@example.com"}, profile)

	require.Len(t, repo.users, 1)
	assert.Equal(t, "hashed:wonderland", repo.users[0].PasswordHash)
}

func TestRegister_Conflicts(t *testing.T) {
	repo := &memRepo{users: []*sessionauth.UserRecord{{ID: "1", Username: "alice1", Email: "alice@example.com"}}}
	svc := newService(repo)

	_, err := svc.Register(context.Background(), Registration{Username: "alice1", Email: "other@example.com", Password: "x"})
	assert.ErrorIs(t, err, ErrConflict)

	_, err = svc.Register(context.Background(), Registration{Username: "alice22", Email: "alice@example.com", Password: "x"})
	assert.ErrorIs(t, err, ErrConflict)
}

func TestRegister_Invalid(t *testing.T) {
	svc := newService(&memRepo{})

	cases := []Registration{
		{Username: "short", Email: "a@b.c", Password: "x"},
		{Username: strings.Repeat("u", 256), Email: "a@b.c", Password: "x"},
		{Username: "longenough", Email: "not-an-email", Password: "x"},
		{Username: "longenough", Email: "a@b.c", Password: ""},
		{Username: "longenough", Email: "a@b.c", Password: strings.Repeat("p", 256)},
	}
	for _, in := range cases {
		_, err := svc.Register(context.Background(), in)
		assert.ErrorIs(t, err, ErrInvalid, "input %+v", in)
	}
}

func TestRegister_RepositoryError(t *testing.T) {
	boom := errors.New("db down")
	svc := newService(&memRepo{err: boom})

	_, err := svc.Register(context.Background(), Registration{Username: "alice1", Email: "a@b.c", Password: "x"})
	assert.ErrorIs(t, err, boom)
}

func TestLookup(t *testing.T) {
	repo := &memRepo{users: []*sessionauth.UserRecord{{ID: "1", Username: "alice1", Email: "alice@example.com"}}}
	svc := newService(repo)

	profile, err := svc.Lookup(context.Background(), "alice1")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", profile.Email)

	_, err = svc.Lookup(context.Background(), "nobody")
	assert.ErrorIs(t, err, sessionauth.ErrUserNotFound)
}
