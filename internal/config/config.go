// Package config reads service settings from CHORECHART_* environment
// variables, optionally seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"net/netip"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/dukerupert/chorechart/internal/database"
)

const prefix = "CHORECHART_"

// devSecret is accepted only when CHORECHART_ENV is "dev".
const devSecret = "dev-insecure-secret"

type Config struct {
	Env            string
	Port           string
	LogLevel       string
	LogFormat      string
	Database       database.Config
	JWTSecret      string
	TokenTTL       time.Duration
	CORSOrigins    []string
	TrustedProxies []netip.Prefix
	RedisURL       string
	LoginRateLimit int
	Version        string
}

// Load reads .env (if present) and then the process environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from getenv and validates it.
func FromEnv(getenv func(string) string) (Config, error) {
	get := func(key, def string) string {
		if v := strings.TrimSpace(getenv(prefix + key)); v != "" {
			return v
		}
		return def
	}

	cfg := Config{
		Env:       get("ENV", "production"),
		Port:      get("PORT", "8080"),
		LogLevel:  get("LOG_LEVEL", "info"),
		LogFormat: get("LOG_FORMAT", "text"),
		Database: database.Config{
			Driver: get("DB_DRIVER", database.DriverSQLite),
			Path:   get("DB_PATH", "chorechart.db"),
			MySQL: database.MySQLConfig{
				Host:     get("MYSQL_HOST", "127.0.0.1"),
				Port:     get("MYSQL_PORT", "3306"),
				User:     get("MYSQL_USER", "chorechart"),
				Password: get("MYSQL_PASSWORD", ""),
				Database: get("MYSQL_DATABASE", "chorechart"),
			},
		},
		JWTSecret: get("JWT_SECRET", ""),
		RedisURL:  get("REDIS_URL", ""),
		Version:   get("VERSION", "dev"),
	}

	var err error
	if cfg.Database.MaxOpenConns, err = intVar(get("DB_MAX_OPEN_CONNS", "10"), "DB_MAX_OPEN_CONNS"); err != nil {
		return Config{}, err
	}
	if cfg.LoginRateLimit, err = intVar(get("LOGIN_RATE_LIMIT", "10"), "LOGIN_RATE_LIMIT"); err != nil {
		return Config{}, err
	}
	if cfg.TokenTTL, err = time.ParseDuration(get("TOKEN_TTL", "192h")); err != nil {
		return Config{}, fmt.Errorf("%sTOKEN_TTL: %w", prefix, err)
	}
	if cfg.Database.ConnMaxLifetime, err = time.ParseDuration(get("DB_CONN_MAX_LIFETIME", "5m")); err != nil {
		return Config{}, fmt.Errorf("%sDB_CONN_MAX_LIFETIME: %w", prefix, err)
	}
	if origins := get("CORS_ORIGINS", ""); origins != "" {
		for _, o := range strings.Split(origins, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.CORSOrigins = append(cfg.CORSOrigins, o)
			}
		}
	}

	if proxies := get("TRUSTED_PROXIES", ""); proxies != "" {
		if cfg.TrustedProxies, err = parseProxies(proxies); err != nil {
			return Config{}, err
		}
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Database.Driver {
	case database.DriverSQLite, database.DriverMySQL:
	default:
		return fmt.Errorf("%sDB_DRIVER: unsupported driver %q", prefix, c.Database.Driver)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("%sLOG_FORMAT: must be text or json, got %q", prefix, c.LogFormat)
	}
	if c.JWTSecret == "" {
		if c.Env != "dev" {
			return fmt.Errorf("%sJWT_SECRET is required", prefix)
		}
		c.JWTSecret = devSecret
	}
	if c.TokenTTL <= 0 {
		return fmt.Errorf("%sTOKEN_TTL must be positive", prefix)
	}
	if c.LoginRateLimit <= 0 {
		return fmt.Errorf("%sLOGIN_RATE_LIMIT must be positive", prefix)
	}
	return nil
}

// UsesDevSecret reports whether tokens are signed with the built-in
// development secret.
func (c Config) UsesDevSecret() bool {
	return c.JWTSecret == devSecret
}

// parseProxies reads a comma list of CIDRs or bare addresses.
func parseProxies(raw string) ([]netip.Prefix, error) {
	var out []netip.Prefix
	for _, item := range strings.Split(raw, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		if p, err := netip.ParsePrefix(item); err == nil {
			out = append(out, p.Masked())
			continue
		}
		addr, err := netip.ParseAddr(item)
		if err != nil {
			return nil, fmt.Errorf("%sTRUSTED_PROXIES: invalid address %q", prefix, item)
		}
		out = append(out, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return out, nil
}

func intVar(raw, name string) (int, error) {
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s%s: %w", prefix, name, err)
	}
	return n, nil
}
