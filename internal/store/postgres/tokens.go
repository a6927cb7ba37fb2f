package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Wang-tianhao/session-auth-go/sessionauth"
)

// TokenRepository implements sessionauth.TokenStore over the user_tokens table
type TokenRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewTokenRepository constructs a repository bound to db
func NewTokenRepository(db *sql.DB) *TokenRepository {
	return &TokenRepository{db: db, now: time.Now}
}

// Register inserts record and assigns its ID. Expired rows of the same
// user are purged in the same transaction so the table stays bounded.
func (r *TokenRepository) Register(ctx context.Context, record *sessionauth.TokenRecord) error {
	purge := `
		DELETE FROM user_tokens
		WHERE user_id = $1 AND expires_at <= $2
	`
	insert := `
		INSERT INTO user_tokens (id, user_id, token, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	id := uuid.New().String()
	err := withRetry(ctx, func(ctx context.Context) error {
		return withTx(ctx, r.db, func(ctx context.Context, tx DBTX) error {
			if _, err := tx.ExecContext(ctx, purge, record.UserID, r.now()); err != nil {
				return err
			}
			_, err := tx.ExecContext(ctx, insert, id, record.UserID, record.Token, record.CreatedAt, record.ExpiresAt)
			return err
		})
	})
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	record.ID = id
	return nil
}

// FindByToken returns the live record for token. Expired rows are
// reported as sessionauth.ErrRecordNotFound.
func (r *TokenRepository) FindByToken(ctx context.Context, token string) (*sessionauth.TokenRecord, error) {
	query := `
		SELECT id, user_id, token, created_at, expires_at
		FROM user_tokens
		WHERE token = $1 AND expires_at > $2
	`
	record := &sessionauth.TokenRecord{}
	err := withRetry(ctx, func(ctx context.Context) error {
		return r.db.QueryRowContext(ctx, query, token, r.now()).
			Scan(&record.ID, &record.UserID, &record.Token, &record.CreatedAt, &record.ExpiresAt)
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sessionauth.ErrRecordNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return record, nil
}

// FindAllByUser returns every record of userID, oldest first
func (r *TokenRepository) FindAllByUser(ctx context.Context, userID string) ([]*sessionauth.TokenRecord, error) {
	query := `
		SELECT id, user_id, token, created_at, expires_at
		FROM user_tokens
		WHERE user_id = $1
		ORDER BY created_at
	`
	var records []*sessionauth.TokenRecord
	err := withRetry(ctx, func(ctx context.Context) error {
		records = nil
		rows, err := r.db.QueryContext(ctx, query, userID)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			rec := &sessionauth.TokenRecord{}
			if err := rows.Scan(&rec.ID, &rec.UserID, &rec.Token, &rec.CreatedAt, &rec.ExpiresAt); err != nil {
				return err
			}
			records = append(records, rec)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return records, nil
}

// DeleteAll removes records in a single transaction
func (r *TokenRepository) DeleteAll(ctx context.Context, records []*sessionauth.TokenRecord) error {
	if len(records) == 0 {
		return nil
	}

	query := `
		DELETE FROM user_tokens
		WHERE id = $1
	`
	err := withRetry(ctx, func(ctx context.Context) error {
		return withTx(ctx, r.db, func(ctx context.Context, tx DBTX) error {
			for _, rec := range records {
				if _, err := tx.ExecContext(ctx, query, rec.ID); err != nil {
					return err
				}
			}
			return nil
		})
	})
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
