package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/go-cmp/cmp"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Wang-tianhao/session-auth-go/internal/users"
	"github.com/Wang-tianhao/session-auth-go/sessionauth"
)

var userColumns = []string{"id", "username", "email", "password_hash", "created_at"}

func TestUserRepository_Create(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepository(db)

	created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`(?s)^\s*INSERT\s+INTO\s+users\b.*RETURNING\s+created_at\s*$`).
		WithArgs(sqlmock.AnyArg(), "alice1", "alice@example.com", "hash").
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(created))

	user := &sessionauth.UserRecord{Username: "alice1", Email: "alice@example.com", PasswordHash: "hash"}
	require.NoError(t, repo.Create(context.Background(), user))
	assert.NotEmpty(t, user.ID)
	assert.Equal(t, created, user.CreatedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_CreateConflict(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepository(db)

	mock.ExpectQuery(`INSERT\s+INTO\s+users`).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "users_username_key"})

	err := repo.Create(context.Background(), &sessionauth.UserRecord{Username: "alice1"})
	assert.ErrorIs(t, err, users.ErrConflict)
	assert.Contains(t, err.Error(), "users_username_key")
}

func TestUserRepository_FindByUsername(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepository(db)

	created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	q := `(?s)FROM\s+users\s+WHERE\s+username\s*=\s*\$1`

	mock.ExpectQuery(q).WithArgs("alice1").
		WillReturnRows(sqlmock.NewRows(userColumns).AddRow("u1", "alice1", "alice@example.com", "hash", created))

	got, err := repo.FindByUsername(context.Background(), "alice1")
	require.NoError(t, err)
	want := &sessionauth.UserRecord{ID: "u1", Username: "alice1", Email: "alice@example.com", PasswordHash: "hash", CreatedAt: created}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("user mismatch (-want +got):\n%s", diff)
	}

	mock.ExpectQuery(q).WithArgs("nobody").WillReturnError(sql.ErrNoRows)
	_, err = repo.FindByUsername(context.Background(), "nobody")
	assert.ErrorIs(t, err, sessionauth.ErrUserNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_FindByEmail(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepository(db)

	mock.ExpectQuery(`(?s)FROM\s+users\s+WHERE\s+email\s*=\s*\$1`).WithArgs("alice@example.com").
		WillReturnRows(sqlmock.NewRows(userColumns).AddRow("u1", "alice1", "alice@example.com", "hash", time.Now()))

	got, err := repo.FindByEmail(context.Background(), "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, "alice1", got.Username)
}
