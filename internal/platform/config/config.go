package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

const (
	AuthModeJWT = "jwt"
	AuthModeDev = "dev"

	StorageMemory   = "memory"
	StoragePostgres = "postgres"

	PasswordHashSHA256 = "sha256"
	PasswordHashBcrypt = "bcrypt"
)

// Config is the API process configuration.
//
// Values are resolved in order: built-in defaults, the YAML file named by CONFIG_FILE
// (if any), then environment variables.
type Config struct {
	Port string `yaml:"port" envconfig:"PORT"`

	AuthMode   string `yaml:"authMode" envconfig:"AUTH_MODE"`
	DevSubject string `yaml:"devSubject" envconfig:"DEV_SUBJECT"`

	StorageBackend string `yaml:"storageBackend" envconfig:"STORAGE_BACKEND"`
	DatabaseURL    string `yaml:"databaseURL" envconfig:"DATABASE_URL"`

	RegisterURL           string        `yaml:"registerURL" envconfig:"REGISTER_URL"`
	RegisterTimeout       time.Duration `yaml:"registerTimeout" envconfig:"REGISTER_TIMEOUT"`
	RegisterRedirectDelay time.Duration `yaml:"registerRedirectDelay" envconfig:"REGISTER_REDIRECT_DELAY"`
	RegisterRedirectPath  string        `yaml:"registerRedirectPath" envconfig:"REGISTER_REDIRECT_PATH"`

	PasswordHash string `yaml:"passwordHash" envconfig:"PASSWORD_HASH"`
	BcryptCost   int    `yaml:"bcryptCost" envconfig:"BCRYPT_COST"`

	// SecureStoreKey is a hex-encoded 32-byte key. Empty means "generate per process",
	// which is only accepted with the memory storage backend.
	SecureStoreKey string `yaml:"secureStoreKey" envconfig:"SECURESTORE_KEY"`

	ContactConfirmationTTL time.Duration `yaml:"contactConfirmationTTL" envconfig:"CONTACT_CONFIRMATION_TTL"`
	// ProfileSessionTTL is how long an idle profile edit session is kept.
	ProfileSessionTTL time.Duration `yaml:"profileSessionTTL" envconfig:"PROFILE_SESSION_TTL"`

	LogLevel  string `yaml:"logLevel" envconfig:"LOG_LEVEL"`
	LogFormat string `yaml:"logFormat" envconfig:"LOG_FORMAT"`
}

func Defaults() Config {
	return Config{
		Port:                   "8080",
		AuthMode:               AuthModeJWT,
		DevSubject:             "dev|local",
		StorageBackend:         StorageMemory,
		RegisterTimeout:        10 * time.Second,
		RegisterRedirectDelay:  1500 * time.Millisecond,
		RegisterRedirectPath:   "/",
		PasswordHash:           PasswordHashSHA256,
		BcryptCost:             10,
		ContactConfirmationTTL: 3 * time.Second,
		ProfileSessionTTL:      30 * time.Minute,
		LogLevel:               "info",
		LogFormat:              "json",
	}
}

// Load resolves the configuration from CONFIG_FILE and the environment.
func Load() (Config, error) {
	cfg := Defaults()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("env config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}

func (c Config) Validate() error {
	switch c.AuthMode {
	case AuthModeJWT, AuthModeDev:
	default:
		return fmt.Errorf("AUTH_MODE must be %q or %q", AuthModeJWT, AuthModeDev)
	}
	switch c.StorageBackend {
	case StorageMemory:
	case StoragePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when STORAGE_BACKEND=postgres")
		}
		if c.SecureStoreKey == "" {
			return fmt.Errorf("SECURESTORE_KEY is required when STORAGE_BACKEND=postgres")
		}
	default:
		return fmt.Errorf("STORAGE_BACKEND must be %q or %q", StorageMemory, StoragePostgres)
	}
	if c.RegisterURL == "" {
		return fmt.Errorf("REGISTER_URL is required")
	}
	switch c.PasswordHash {
	case PasswordHashSHA256, PasswordHashBcrypt:
	default:
		return fmt.Errorf("PASSWORD_HASH must be %q or %q", PasswordHashSHA256, PasswordHashBcrypt)
	}
	if c.SecureStoreKey != "" {
		if _, err := c.SecureStoreKeyBytes(); err != nil {
			return err
		}
	}
	if c.RegisterRedirectDelay < 0 || c.ContactConfirmationTTL < 0 || c.ProfileSessionTTL < 0 {
		return fmt.Errorf("delays must not be negative")
	}
	return nil
}

// SecureStoreKeyBytes decodes SecureStoreKey. It returns nil, nil when unset.
func (c Config) SecureStoreKeyBytes() ([]byte, error) {
	if c.SecureStoreKey == "" {
		return nil, nil
	}
	b, err := hex.DecodeString(c.SecureStoreKey)
	if err != nil {
		return nil, fmt.Errorf("SECURESTORE_KEY must be hex: %w", err)
	}
	if len(b) != 32 {
		return nil, fmt.Errorf("SECURESTORE_KEY must decode to 32 bytes, got %d", len(b))
	}
	return b, nil
}
