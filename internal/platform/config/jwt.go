package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// JWTConfig configures JWT verification against a JWKS endpoint.
type JWTConfig struct {
	Issuer   string `envconfig:"ISSUER" required:"true"`
	Audience string `envconfig:"AUDIENCE" required:"true"`
	JWKSURL  string `envconfig:"JWKS_URL" required:"true"`

	ClockSkew time.Duration `envconfig:"CLOCK_SKEW" default:"30s"`
	// Refresh periodically to pick up key rotation even if an old key is still cached.
	JWKSRefreshInterval time.Duration `envconfig:"JWKS_REFRESH_INTERVAL" default:"5m"`
	// Bound refresh frequency when a token presents an unknown kid.
	JWKSMinRefreshInterval time.Duration `envconfig:"JWKS_MIN_REFRESH_INTERVAL" default:"10s"`

	HTTPTimeout time.Duration `envconfig:"HTTP_TIMEOUT" default:"5s"`

	// NameClaim and EmailClaim name the optional claims used to pre-fill registration drafts.
	NameClaim  string `envconfig:"NAME_CLAIM" default:"name"`
	EmailClaim string `envconfig:"EMAIL_CLAIM" default:"email"`
}

// LoadJWTConfigFromEnv reads JWT_* variables (JWT_ISSUER, JWT_AUDIENCE, JWT_JWKS_URL, ...).
func LoadJWTConfigFromEnv() (JWTConfig, error) {
	var cfg JWTConfig
	if err := envconfig.Process("JWT", &cfg); err != nil {
		return JWTConfig{}, fmt.Errorf("jwt config: %w", err)
	}
	if cfg.Issuer == "" || cfg.Audience == "" || cfg.JWKSURL == "" {
		return JWTConfig{}, fmt.Errorf("missing required env vars: JWT_ISSUER, JWT_AUDIENCE, JWT_JWKS_URL")
	}
	return cfg, nil
}
