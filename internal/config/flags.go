package config

import (
	"flag"
	"fmt"
	"strconv"
	"strings"
)

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }

var knownFlags = []string{
	"-a", "-g", "-d", "-store", "-r", "-s", "-t", "-cookie", "-secure",
	"-cost", "-timeout", "-max-sessions", "-env",
}

var boolFlags = []string{"-secure"}

// parseFlags populates cfg from command-line flags.
//
// Supported flags:
//
//	-a string          HTTP bind address (e.g. ":8080")
//	-g string          gRPC bind address; empty disables gRPC
//	-d string          PostgreSQL DSN
//	-store string      token store backend: postgres or redis
//	-r string          Redis address
//	-s string          token signing secret
//	-t duration        token lifetime (e.g. "30m")
//	-cookie string     session cookie name
//	-secure            mark the session cookie Secure
//	-cost int          bcrypt cost
//	-timeout duration  token store call timeout
//	-max-sessions int  concurrent sessions per user, 0 for unlimited
//	-env string        environment name
func parseFlags(cfg *Config, args []string) error {
	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	fs.SetOutput(discard{})

	fs.StringVar(&cfg.HTTPAddr, "a", cfg.HTTPAddr, "HTTP bind address")
	fs.StringVar(&cfg.GRPCAddr, "g", cfg.GRPCAddr, "gRPC bind address")
	fs.StringVar(&cfg.DatabaseDSN, "d", cfg.DatabaseDSN, "database DSN")
	fs.StringVar(&cfg.TokenStore, "store", cfg.TokenStore, "token store backend")
	fs.StringVar(&cfg.RedisAddr, "r", cfg.RedisAddr, "redis address")
	fs.StringVar(&cfg.SigningSecret, "s", cfg.SigningSecret, "token signing secret")
	fs.DurationVar(&cfg.TokenTTL, "t", cfg.TokenTTL, "token lifetime")
	fs.StringVar(&cfg.CookieName, "cookie", cfg.CookieName, "session cookie name")
	fs.BoolVar(&cfg.CookieSecure, "secure", cfg.CookieSecure, "secure session cookie")
	fs.IntVar(&cfg.BcryptCost, "cost", cfg.BcryptCost, "bcrypt cost")
	fs.DurationVar(&cfg.StoreTimeout, "timeout", cfg.StoreTimeout, "store call timeout")
	fs.IntVar(&cfg.MaxSessionsPerUser, "max-sessions", cfg.MaxSessionsPerUser, "max sessions per user")
	fs.StringVar(&cfg.Environment, "env", cfg.Environment, "environment name")

	if err := fs.Parse(filterArgs(args, knownFlags, boolFlags)); err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}
	return nil
}

// filterArgs keeps only the allowed flags and their values, accepting both
// "-f value" and "-f=value". A boolean flag only takes a following
// argument when it parses as a bool, and is then rewritten to "-f=value".
func filterArgs(args []string, allowedFlags []string, boolFlags []string) []string {
	allowed := make(map[string]struct{}, len(allowedFlags))
	for _, f := range allowedFlags {
		allowed[f] = struct{}{}
	}
	isBool := make(map[string]struct{}, len(boolFlags))
	for _, f := range boolFlags {
		isBool[f] = struct{}{}
	}

	filtered := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		arg := args[i]

		if strings.HasPrefix(arg, "-") && strings.Contains(arg, "=") {
			name := strings.SplitN(arg, "=", 2)[0]
			if _, ok := allowed[name]; ok {
				filtered = append(filtered, arg)
			}
			continue
		}

		if _, ok := allowed[arg]; ok {
			if _, ok := isBool[arg]; ok {
				if i+1 < len(args) {
					if v, err := strconv.ParseBool(args[i+1]); err == nil {
						filtered = append(filtered, arg+"="+strconv.FormatBool(v))
						i++
						continue
					}
				}
				filtered = append(filtered, arg)
				continue
			}

			filtered = append(filtered, arg)
			if i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
				filtered = append(filtered, args[i+1])
				i++
			}
		}
	}
	return filtered
}
