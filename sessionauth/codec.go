package sessionauth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenCodec issues and verifies HS256 session tokens. It is stateless
// apart from the secret and safe for concurrent use.
type TokenCodec struct {
	cfg    *Config
	parser *jwt.Parser
}

// NewTokenCodec creates a codec bound to cfg's secret, ttl and clock
func NewTokenCodec(cfg *Config) *TokenCodec {
	return &TokenCodec{
		cfg: cfg,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithExpirationRequired(),
			jwt.WithStrictDecoding(),
			jwt.WithTimeFunc(cfg.now),
		),
	}
}

// Encode signs a token for subject. Times are truncated to whole seconds
// so the returned claims match what Decode will read back.
func (c *TokenCodec) Encode(subject string) (string, *Claims, error) {
	if subject == "" {
		return "", nil, NewError(ErrMalformedToken, "subject cannot be empty", nil)
	}

	now := c.cfg.now().UTC().Truncate(time.Second)
	claims := &Claims{
		Subject:   subject,
		IssuedAt:  now,
		ExpiresAt: now.Add(c.cfg.TokenTTL()),
		TokenID:   uuid.New().String(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   claims.Subject,
		IssuedAt:  jwt.NewNumericDate(claims.IssuedAt),
		ExpiresAt: jwt.NewNumericDate(claims.ExpiresAt),
		ID:        claims.TokenID,
	})

	signed, err := token.SignedString(c.cfg.signingKey)
	if err != nil {
		return "", nil, NewError(ErrInfrastructure, "failed to sign token", err)
	}

	return signed, claims, nil
}

// Decode verifies the signature and expiry of token and returns its claims.
// An expired token with a valid signature yields EXPIRED; every other
// failure yields MALFORMED_TOKEN.
func (c *TokenCodec) Decode(token string) (*Claims, error) {
	if token == "" {
		return nil, NewError(ErrMalformedToken, "token is empty", nil)
	}

	registered := &jwt.RegisteredClaims{}
	_, err := c.parser.ParseWithClaims(token, registered, func(*jwt.Token) (any, error) {
		return c.cfg.signingKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, NewError(ErrExpired, "token has expired", err)
		}
		return nil, NewError(ErrMalformedToken, "malformed token", err)
	}

	if registered.Subject == "" {
		return nil, NewError(ErrMalformedToken, "token has no subject", nil)
	}
	if registered.IssuedAt == nil {
		return nil, NewError(ErrMalformedToken, "token has no issue time", nil)
	}
	if !registered.ExpiresAt.After(registered.IssuedAt.Time) {
		return nil, NewError(ErrMalformedToken, "token expires before it was issued", nil)
	}

	return &Claims{
		Subject:   registered.Subject,
		IssuedAt:  registered.IssuedAt.UTC(),
		ExpiresAt: registered.ExpiresAt.UTC(),
		TokenID:   registered.ID,
	}, nil
}
