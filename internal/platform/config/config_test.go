package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsAndEnv(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("REGISTER_URL", "https://register.example/api")
	t.Setenv("PORT", "9090")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, StorageMemory, cfg.StorageBackend)
	assert.Equal(t, 1500*time.Millisecond, cfg.RegisterRedirectDelay)
	assert.Equal(t, 3*time.Second, cfg.ContactConfirmationTTL)
	assert.Equal(t, 30*time.Minute, cfg.ProfileSessionTTL)
	assert.Equal(t, PasswordHashSHA256, cfg.PasswordHash)
}

func TestLoad_FileThenEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(strings.Join([]string{
		"port: \"7000\"",
		"registerURL: https://file.example/register",
		"registerRedirectDelay: 2s",
		"passwordHash: bcrypt",
	}, "\n")), 0o600))

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("PORT", "7001")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "7001", cfg.Port)
	assert.Equal(t, "https://file.example/register", cfg.RegisterURL)
	assert.Equal(t, 2*time.Second, cfg.RegisterRedirectDelay)
	assert.Equal(t, PasswordHashBcrypt, cfg.PasswordHash)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	base := Defaults()
	base.RegisterURL = "https://register.example"
	require.NoError(t, base.Validate())

	pg := base
	pg.StorageBackend = StoragePostgres
	pg.DatabaseURL = "postgres://localhost/db"
	assert.Error(t, pg.Validate(), "postgres requires a stable secure store key")

	pg.SecureStoreKey = strings.Repeat("ab", 32)
	assert.NoError(t, pg.Validate())

	pg.SecureStoreKey = "abcd"
	assert.Error(t, pg.Validate())

	noURL := base
	noURL.RegisterURL = ""
	assert.Error(t, noURL.Validate())
}

func TestLoadJWTConfigFromEnv(t *testing.T) {
	t.Setenv("JWT_ISSUER", "iss")
	t.Setenv("JWT_AUDIENCE", "aud")
	t.Setenv("JWT_JWKS_URL", "http://jwks")
	t.Setenv("JWT_CLOCK_SKEW", "1m")

	cfg, err := LoadJWTConfigFromEnv()
	require.NoError(t, err)
	assert.Equal(t, time.Minute, cfg.ClockSkew)
	assert.Equal(t, 5*time.Minute, cfg.JWKSRefreshInterval)
	assert.Equal(t, "email", cfg.EmailClaim)
}

func TestLoadJWTConfigFromEnv_Missing(t *testing.T) {
	t.Setenv("JWT_ISSUER", "")
	t.Setenv("JWT_AUDIENCE", "")
	t.Setenv("JWT_JWKS_URL", "")

	_, err := LoadJWTConfigFromEnv()
	assert.Error(t, err)
}
