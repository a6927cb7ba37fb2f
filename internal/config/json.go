package config

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"
)

// Duration accepts either a duration string such as "30m" or integer nanoseconds
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch value := v.(type) {
	case float64:
		d.Duration = time.Duration(value)
	case string:
		parsed, err := time.ParseDuration(value)
		if err != nil {
			return err
		}
		d.Duration = parsed
	default:
		return fmt.Errorf("invalid duration %s", string(b))
	}
	return nil
}

// JSONConfig is the on-disk shape of the configuration file. Absent
// fields keep their previous value.
type JSONConfig struct {
	Environment        *string   `json:"environment"`
	HTTPAddr           *string   `json:"http_addr"`
	GRPCAddr           *string   `json:"grpc_addr"`
	DatabaseDSN        *string   `json:"database_dsn"`
	TokenStore         *string   `json:"token_store"`
	RedisAddr          *string   `json:"redis_addr"`
	RedisPassword      *string   `json:"redis_password"`
	RedisDB            *int      `json:"redis_db"`
	SigningSecret      *string   `json:"signing_secret"`
	TokenTTL           *Duration `json:"token_ttl"`
	CookieName         *string   `json:"cookie_name"`
	CookieSecure       *bool     `json:"cookie_secure"`
	BcryptCost         *int      `json:"bcrypt_cost"`
	StoreTimeout       *Duration `json:"store_timeout"`
	MaxSessionsPerUser *int      `json:"max_sessions_per_user"`
}

// jsonConfigPath extracts the -c / -config value from args
func jsonConfigPath(args []string) string {
	var path string

	fs := flag.NewFlagSet("json", flag.ContinueOnError)
	fs.SetOutput(discard{})
	fs.StringVar(&path, "config", "", "path to config file")
	fs.StringVar(&path, "c", "", "path to config file (short)")
	_ = fs.Parse(filterArgs(args, []string{"-c", "-config", "--config"}, nil))

	return path
}

// parseJSON overlays the JSON file named by -c/-config onto cfg
func parseJSON(cfg *Config, args []string) error {
	path := jsonConfigPath(args)
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	var jc JSONConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	setIf(&cfg.Environment, jc.Environment)
	setIf(&cfg.HTTPAddr, jc.HTTPAddr)
	setIf(&cfg.GRPCAddr, jc.GRPCAddr)
	setIf(&cfg.DatabaseDSN, jc.DatabaseDSN)
	setIf(&cfg.TokenStore, jc.TokenStore)
	setIf(&cfg.RedisAddr, jc.RedisAddr)
	setIf(&cfg.RedisPassword, jc.RedisPassword)
	setIf(&cfg.RedisDB, jc.RedisDB)
	setIf(&cfg.SigningSecret, jc.SigningSecret)
	setIf(&cfg.CookieName, jc.CookieName)
	setIf(&cfg.CookieSecure, jc.CookieSecure)
	setIf(&cfg.BcryptCost, jc.BcryptCost)
	setIf(&cfg.MaxSessionsPerUser, jc.MaxSessionsPerUser)
	if jc.TokenTTL != nil {
		cfg.TokenTTL = jc.TokenTTL.Duration
	}
	if jc.StoreTimeout != nil {
		cfg.StoreTimeout = jc.StoreTimeout.Duration
	}
	return nil
}

func setIf[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}
