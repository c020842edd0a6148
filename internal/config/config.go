// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SquareCheck Contributors

// Package config loads service configuration from an optional YAML file
// overridden by command-line flags.
package config

import (
	"os"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"
)

// Config holds the full service configuration.
type Config struct {
	// HTTPAddr is the listen address of the API server.
	HTTPAddr string `koanf:"http_addr"`

	// MetricsAddr is the metrics/health HTTP address. Empty disables it.
	MetricsAddr string `koanf:"metrics_addr"`

	// DatabaseURL is the PostgreSQL connection string.
	DatabaseURL string `koanf:"database_url"`

	// SessionStore selects the session backend: postgres or redis.
	SessionStore string `koanf:"session_store"`

	// RedisAddr is the Redis address, required when SessionStore is redis.
	RedisAddr string `koanf:"redis_addr"`

	// LogFormat is json or text.
	LogFormat string `koanf:"log_format"`

	// CookieSecure marks session cookies Secure; enable behind TLS.
	CookieSecure bool `koanf:"cookie_secure"`

	// CookieDomain scopes session cookies. Empty means host-only.
	CookieDomain string `koanf:"cookie_domain"`

	// PurgeInterval is how often expired sessions are swept. Zero disables
	// the sweeper.
	PurgeInterval time.Duration `koanf:"purge_interval"`
}

// Defaults for flag registration and file-less startup.
const (
	DefaultHTTPAddr      = ":8080"
	DefaultMetricsAddr   = "127.0.0.1:9100"
	DefaultSessionStore  = "postgres"
	DefaultLogFormat     = "json"
	DefaultPurgeInterval = time.Hour
)

// RegisterFlags registers every config key as a flag on the given set.
// Flag defaults double as the application defaults.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("http-addr", DefaultHTTPAddr, "API listen address")
	fs.String("metrics-addr", DefaultMetricsAddr, "metrics/health HTTP address (empty = disabled)")
	fs.String("database-url", "", "PostgreSQL connection string")
	fs.String("session-store", DefaultSessionStore, "session backend (postgres or redis)")
	fs.String("redis-addr", "", "Redis address for the redis session backend")
	fs.String("log-format", DefaultLogFormat, "log format (json or text)")
	fs.Bool("cookie-secure", false, "mark session cookies Secure")
	fs.String("cookie-domain", "", "session cookie domain (empty = host-only)")
	fs.Duration("purge-interval", DefaultPurgeInterval, "expired session sweep interval (0 = disabled)")
}

// Load builds a Config from the YAML file at path (optional, skipped when
// empty or missing) with the flag set layered on top. Flags that were
// explicitly set win over file values; unset flags contribute defaults for
// keys the file does not mention.
func Load(path string, fs *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, oops.Code("CONFIG_LOAD_FAILED").
					With("path", path).
					Wrap(err)
			}
		} else if !os.IsNotExist(err) {
			return nil, oops.Code("CONFIG_LOAD_FAILED").
				With("path", path).
				Wrap(err)
		}
	}

	if fs != nil {
		// Explicitly-set flags win over file values; unset flags only
		// contribute defaults for keys the file does not mention.
		provider := posflag.ProviderWithFlag(fs, ".", k, func(f *pflag.Flag) (string, any) {
			key := flagToKey(f.Name)
			if !f.Changed && k.Exists(key) {
				return "", nil
			}
			return key, posflag.FlagVal(fs, f)
		})
		if err := k.Load(provider, nil); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").
				With("operation", "merge flags").
				Wrap(err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, oops.Code("CONFIG_PARSE_FAILED").Wrap(err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func flagToKey(name string) string {
	key := make([]byte, len(name))
	for i := 0; i < len(name); i++ {
		if name[i] == '-' {
			key[i] = '_'
		} else {
			key[i] = name[i]
		}
	}
	return string(key)
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return oops.Code("CONFIG_INVALID").Errorf("database_url is required")
	}
	switch c.SessionStore {
	case "postgres":
	case "redis":
		if c.RedisAddr == "" {
			return oops.Code("CONFIG_INVALID").
				Errorf("redis_addr is required when session_store is redis")
		}
	default:
		return oops.Code("CONFIG_INVALID").
			With("session_store", c.SessionStore).
			Errorf("session_store must be postgres or redis")
	}
	switch c.LogFormat {
	case "json", "text":
	default:
		return oops.Code("CONFIG_INVALID").
			With("log_format", c.LogFormat).
			Errorf("log_format must be json or text")
	}
	if c.PurgeInterval < 0 {
		return oops.Code("CONFIG_INVALID").Errorf("purge_interval cannot be negative")
	}
	return nil
}
