package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// loadDotEnv exports variables from path into the process environment
// without overriding ones already set. A missing file is not an error.
func loadDotEnv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// parseEnv overlays environment variables onto cfg
func parseEnv(cfg *Config) error {
	envString("APP_ENV", &cfg.Environment)
	envString("HTTP_ADDR", &cfg.HTTPAddr)
	envString("GRPC_ADDR", &cfg.GRPCAddr)
	envString("DATABASE_DSN", &cfg.DatabaseDSN)
	envString("TOKEN_STORE", &cfg.TokenStore)
	envString("REDIS_ADDR", &cfg.RedisAddr)
	envString("REDIS_PASSWORD", &cfg.RedisPassword)
	envString("SIGNING_SECRET", &cfg.SigningSecret)
	envString("COOKIE_NAME", &cfg.CookieName)

	return errors.Join(
		envParse("REDIS_DB", &cfg.RedisDB, strconv.Atoi),
		envParse("TOKEN_TTL", &cfg.TokenTTL, time.ParseDuration),
		envParse("COOKIE_SECURE", &cfg.CookieSecure, strconv.ParseBool),
		envParse("BCRYPT_COST", &cfg.BcryptCost, strconv.Atoi),
		envParse("STORE_TIMEOUT", &cfg.StoreTimeout, time.ParseDuration),
		envParse("MAX_SESSIONS_PER_USER", &cfg.MaxSessionsPerUser, strconv.Atoi),
	)
}

func envString(key string, dst *string) {
	if v, ok := os.LookupEnv(key); ok {
		*dst = v
	}
}

func envParse[T any](key string, dst *T, parse func(string) (T, error)) error {
	v, ok := os.LookupEnv(key)
	if !ok {
		return nil
	}
	parsed, err := parse(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = parsed
	return nil
}
