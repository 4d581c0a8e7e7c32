// Package config assembles runtime settings from development defaults
// overlaid by MILSTOCK_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

// Auth mode selects the identity verifier wired into the HTTP layer.
const (
	AuthModeToken = "token"
	AuthModeOpen  = "open"
)

// Config holds runtime settings for the milstock API server.
//
// Fields:
//   - Addr: bind address for the HTTP endpoint.
//   - AuthMode: "token" for bearer-token verification, "open" to disable
//     authentication entirely (every request passes, role gates are no-ops).
//   - AuthSecret: HMAC secret for signing session tokens (HS256). Required
//     whenever AuthMode is "token"; there is no insecure fallback.
//   - TokenTTL: session token lifetime.
//   - PGDSN: PostgreSQL DSN. Empty selects the in-memory store.
//   - CORSOrigins: comma-separated allow-list; "*" allows any origin.
type Config struct {
	Addr        string
	AuthMode    string
	AuthSecret  string
	TokenTTL    time.Duration
	PGDSN       string
	CORSOrigins []string
}

// Load builds a Config from defaults and the environment, then validates it.
func Load() (*Config, error) {
	cfg := &Config{
		Addr:        ":8080",
		AuthMode:    AuthModeToken,
		TokenTTL:    15 * time.Minute,
		CORSOrigins: []string{"*"},
	}

	if v := os.Getenv("MILSTOCK_ADDR"); v != "" {
		cfg.Addr = v
	}
	if v := strings.TrimSpace(os.Getenv("MILSTOCK_AUTH_MODE")); v != "" {
		cfg.AuthMode = strings.ToLower(v)
	}
	cfg.AuthSecret = strings.TrimSpace(os.Getenv("MILSTOCK_AUTH_SECRET"))
	if v := strings.TrimSpace(os.Getenv("MILSTOCK_TOKEN_TTL")); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("parse MILSTOCK_TOKEN_TTL: %w", err)
		}
		cfg.TokenTTL = d
	}
	cfg.PGDSN = strings.TrimSpace(os.Getenv("MILSTOCK_PG_DSN"))
	if v := strings.TrimSpace(os.Getenv("MILSTOCK_CORS_ORIGINS")); v != "" {
		cfg.CORSOrigins = splitOrigins(v)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.AuthMode {
	case AuthModeToken, AuthModeOpen:
	default:
		return fmt.Errorf("unsupported auth mode %q", c.AuthMode)
	}
	if c.AuthMode == AuthModeToken && c.AuthSecret == "" {
		return errors.New("MILSTOCK_AUTH_SECRET is required when auth mode is token")
	}
	if c.TokenTTL <= 0 {
		return errors.New("token TTL must be greater than zero")
	}
	return nil
}

// AuthEnabled reports whether bearer-token verification is active.
func (c *Config) AuthEnabled() bool {
	return c.AuthMode == AuthModeToken
}

func splitOrigins(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}
