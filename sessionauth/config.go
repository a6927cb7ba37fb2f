package sessionauth

import (
	"fmt"
	"log/slog"
	"time"
)

const (
	DefaultTokenTTL     = 30 * time.Minute
	DefaultCookieName   = "jwt"
	DefaultStoreTimeout = 2 * time.Second

	minSecretLength = 32
)

// Config holds immutable configuration for issuing and validating sessions
type Config struct {
	signingKey         []byte
	tokenTTL           time.Duration
	cookieName         string
	storeTimeout       time.Duration
	maxSessionsPerUser int
	logger             *slog.Logger
	clock              func() time.Time
}

// ConfigOption is a functional option for configuring the session service
type ConfigOption func(*Config) error

// NewConfig creates a new immutable configuration with the given options
func NewConfig(opts ...ConfigOption) (*Config, error) {
	cfg := &Config{
		tokenTTL:     DefaultTokenTTL,
		cookieName:   DefaultCookieName,
		storeTimeout: DefaultStoreTimeout,
		clock:        time.Now,
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, NewError(ErrConfigError, fmt.Sprintf("configuration error: %v", err), err)
		}
	}

	if len(cfg.signingKey) == 0 {
		return nil, NewError(ErrConfigError, "signing secret is required (use WithSigningSecret)", nil)
	}

	return cfg, nil
}

// WithSigningSecret configures the HMAC-SHA256 signing secret
func WithSigningSecret(secret []byte) ConfigOption {
	return func(c *Config) error {
		if len(secret) < minSecretLength {
			return fmt.Errorf("signing secret must be at least %d bytes (256 bits), got %d bytes", minSecretLength, len(secret))
		}
		c.signingKey = append([]byte(nil), secret...)
		return nil
	}
}

// WithTokenTTL sets how long an issued token stays valid
func WithTokenTTL(ttl time.Duration) ConfigOption {
	return func(c *Config) error {
		if ttl < time.Second {
			return fmt.Errorf("token ttl must be at least 1s, got %v", ttl)
		}
		c.tokenTTL = ttl
		return nil
	}
}

// WithCookie sets the cookie name the token is read from. An empty name
// disables cookie extraction.
func WithCookie(cookieName string) ConfigOption {
	return func(c *Config) error {
		c.cookieName = cookieName
		return nil
	}
}

// WithLogger sets a structured logger for security events
func WithLogger(logger *slog.Logger) ConfigOption {
	return func(c *Config) error {
		c.logger = logger
		return nil
	}
}

// WithClock overrides the time source
func WithClock(clock func() time.Time) ConfigOption {
	return func(c *Config) error {
		if clock == nil {
			return fmt.Errorf("clock cannot be nil")
		}
		c.clock = clock
		return nil
	}
}

// WithStoreTimeout bounds every token store and user directory call
func WithStoreTimeout(timeout time.Duration) ConfigOption {
	return func(c *Config) error {
		if timeout <= 0 {
			return fmt.Errorf("store timeout must be positive, got %v", timeout)
		}
		c.storeTimeout = timeout
		return nil
	}
}

// WithMaxSessionsPerUser caps concurrent sessions per user; the oldest
// sessions are evicted at login. Zero means unlimited.
func WithMaxSessionsPerUser(n int) ConfigOption {
	return func(c *Config) error {
		if n < 0 {
			return fmt.Errorf("max sessions per user must be non-negative, got %d", n)
		}
		c.maxSessionsPerUser = n
		return nil
	}
}

func (c *Config) TokenTTL() time.Duration {
	return c.tokenTTL
}

func (c *Config) CookieName() string {
	return c.cookieName
}

func (c *Config) StoreTimeout() time.Duration {
	return c.storeTimeout
}

func (c *Config) MaxSessionsPerUser() int {
	return c.maxSessionsPerUser
}

func (c *Config) Logger() *slog.Logger {
	return c.logger
}

func (c *Config) now() time.Time {
	return c.clock()
}
