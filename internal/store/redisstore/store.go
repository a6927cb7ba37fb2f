// Package redisstore implements sessionauth.TokenStore on Redis.
//
// Each record is a hash under <prefix>:token:<id> that expires with the
// token, where id is the SHA-256 of the token. A set under
// <prefix>:user:<userID> indexes a user's record ids; members whose hash
// has expired are pruned on read.
package redisstore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Wang-tianhao/session-auth-go/sessionauth"
)

// ErrUnavailable wraps every Redis failure
var ErrUnavailable = errors.New("redis unavailable")

// DefaultPrefix namespaces keys when no prefix is configured
const DefaultPrefix = "sess"

type storedRecord struct {
	UserID    string `redis:"user_id"`
	Token     string `redis:"token"`
	CreatedAt int64  `redis:"created_at"`
	ExpiresAt int64  `redis:"expires_at"`
}

// TokenStore is a Redis-backed sessionauth.TokenStore
type TokenStore struct {
	redis  redis.UniversalClient
	prefix string
}

// NewTokenStore creates a store using rdb under the given key prefix
func NewTokenStore(rdb redis.UniversalClient, prefix string) *TokenStore {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &TokenStore{redis: rdb, prefix: prefix}
}

func (s *TokenStore) tokenKey(id string) string {
	return s.prefix + ":token:" + id
}

func (s *TokenStore) userKey(userID string) string {
	return s.prefix + ":user:" + userID
}

func recordID(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// Register stores record until its expiry and indexes it under its user.
// The index lives as long as its longest-lived member.
func (s *TokenStore) Register(ctx context.Context, record *sessionauth.TokenRecord) error {
	id := recordID(record.Token)
	key := s.tokenKey(id)
	userKey := s.userKey(record.UserID)
	expiresAt := record.ExpiresAt.UnixMilli()

	_, err := s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key,
			"user_id", record.UserID,
			"token", record.Token,
			"created_at", record.CreatedAt.UnixNano(),
			"expires_at", record.ExpiresAt.UnixNano(),
		)
		pipe.PExpireAt(ctx, key, record.ExpiresAt)
		pipe.SAdd(ctx, userKey, id)
		// GT treats a key without expiry as infinite, so NX seeds it first.
		pipe.Do(ctx, "PEXPIREAT", userKey, expiresAt, "NX")
		pipe.Do(ctx, "PEXPIREAT", userKey, expiresAt, "GT")
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	record.ID = id
	return nil
}

// FindByToken returns the record for token, or sessionauth.ErrRecordNotFound
func (s *TokenStore) FindByToken(ctx context.Context, token string) (*sessionauth.TokenRecord, error) {
	id := recordID(token)
	cmd := s.redis.HGetAll(ctx, s.tokenKey(id))
	return decode(id, cmd)
}

// FindAllByUser returns every record of userID, oldest first
func (s *TokenStore) FindAllByUser(ctx context.Context, userID string) ([]*sessionauth.TokenRecord, error) {
	userKey := s.userKey(userID)
	ids, err := s.redis.SMembers(ctx, userKey).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	pipe := s.redis.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.HGetAll(ctx, s.tokenKey(id))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	records := make([]*sessionauth.TokenRecord, 0, len(ids))
	var stale []any
	for i, cmd := range cmds {
		rec, err := decode(ids[i], cmd)
		if errors.Is(err, sessionauth.ErrRecordNotFound) {
			stale = append(stale, ids[i])
			continue
		}
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	if len(stale) > 0 {
		if err := s.redis.SRem(ctx, userKey, stale...).Err(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].CreatedAt.Before(records[j].CreatedAt)
	})
	return records, nil
}

// DeleteAll removes records and their index entries atomically
func (s *TokenStore) DeleteAll(ctx context.Context, records []*sessionauth.TokenRecord) error {
	if len(records) == 0 {
		return nil
	}

	_, err := s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, rec := range records {
			id := rec.ID
			if id == "" {
				id = recordID(rec.Token)
			}
			pipe.Del(ctx, s.tokenKey(id))
			pipe.SRem(ctx, s.userKey(rec.UserID), id)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Ping reports whether Redis is reachable
func (s *TokenStore) Ping(ctx context.Context) error {
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func decode(id string, cmd *redis.MapStringStringCmd) (*sessionauth.TokenRecord, error) {
	fields, err := cmd.Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if len(fields) == 0 {
		return nil, sessionauth.ErrRecordNotFound
	}

	var stored storedRecord
	if err := cmd.Scan(&stored); err != nil {
		return nil, fmt.Errorf("decode token record %s: %w", id, err)
	}

	return &sessionauth.TokenRecord{
		ID:        id,
		UserID:    stored.UserID,
		Token:     stored.Token,
		CreatedAt: time.Unix(0, stored.CreatedAt).UTC(),
		ExpiresAt: time.Unix(0, stored.ExpiresAt).UTC(),
	}, nil
}
