// Package config loads application configuration from environment variables.
package config

import (
	"encoding/hex"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Password storage schemes accepted by AUTHGATEWAY_PASSWORD_SCHEME.
const (
	SchemeArgon2id = "argon2id"
	SchemeAESGCM   = "aesgcm"
)

// Config holds the gateway configuration loaded from environment variables.
type Config struct {
	ListenAddr       string        `env:"AUTHGATEWAY_LISTEN_ADDR"        envDefault:"127.0.0.1:10002"`
	RoutePrefix      string        `env:"AUTHGATEWAY_ROUTE_PREFIX"`
	StorageURL       string        `env:"AUTHGATEWAY_STORAGE_URL"        envDefault:"http://127.0.0.1:10001"`
	StorageName      string        `env:"AUTHGATEWAY_STORAGE_NAME"       envDefault:"auth"`
	StorageTimeout   time.Duration `env:"AUTHGATEWAY_STORAGE_TIMEOUT"    envDefault:"5s"`
	StorageHTTPCache bool          `env:"AUTHGATEWAY_STORAGE_HTTP_CACHE" envDefault:"false"`
	PasswordScheme   string        `env:"AUTHGATEWAY_PASSWORD_SCHEME"    envDefault:"argon2id"`
	TokenTTL         time.Duration `env:"AUTHGATEWAY_TOKEN_TTL"          envDefault:"1h"`
	LogLevel         string        `env:"AUTHGATEWAY_LOG_LEVEL"          envDefault:"info"`
	LogFormat        string        `env:"AUTHGATEWAY_LOG_FORMAT"         envDefault:"json"`
	MetricsEnabled   bool          `env:"AUTHGATEWAY_METRICS_ENABLED"    envDefault:"true"`
	OTelEndpoint     string        `env:"AUTHGATEWAY_OTEL_ENDPOINT"`

	// SecretKeyHex is the raw env value; SecretKey holds the decoded bytes.
	SecretKeyHex string `env:"AUTHGATEWAY_SECRET_KEY"`
	SecretKey    []byte
}

// Load reads configuration from environment variables and returns a validated Config.
// AUTHGATEWAY_SECRET_KEY is required and must be 64 hex characters (32 bytes); it keys
// both token signing and the legacy AES-GCM password cipher.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	key, err := decodeSecretKey(cfg.SecretKeyHex)
	if err != nil {
		return nil, err
	}
	cfg.SecretKey = key
	cfg.SecretKeyHex = ""

	if _, err := url.ParseRequestURI(cfg.StorageURL); err != nil {
		return nil, fmt.Errorf("AUTHGATEWAY_STORAGE_URL is not a valid URL %q: %w", cfg.StorageURL, err)
	}
	cfg.StorageURL = strings.TrimRight(cfg.StorageURL, "/")

	if strings.TrimSpace(cfg.StorageName) == "" {
		return nil, fmt.Errorf("AUTHGATEWAY_STORAGE_NAME must not be empty")
	}

	switch cfg.PasswordScheme {
	case SchemeArgon2id, SchemeAESGCM:
	default:
		return nil, fmt.Errorf("AUTHGATEWAY_PASSWORD_SCHEME must be %q or %q, got %q",
			SchemeArgon2id, SchemeAESGCM, cfg.PasswordScheme)
	}

	if cfg.StorageTimeout <= 0 {
		return nil, fmt.Errorf("AUTHGATEWAY_STORAGE_TIMEOUT must be positive")
	}
	if cfg.TokenTTL <= 0 {
		return nil, fmt.Errorf("AUTHGATEWAY_TOKEN_TTL must be positive")
	}

	if cfg.RoutePrefix != "" {
		cfg.RoutePrefix = "/" + strings.Trim(cfg.RoutePrefix, "/")
	}

	return &cfg, nil
}

func decodeSecretKey(raw string) ([]byte, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("AUTHGATEWAY_SECRET_KEY is required")
	}
	key, err := hex.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("AUTHGATEWAY_SECRET_KEY is not valid hex: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("AUTHGATEWAY_SECRET_KEY must decode to 32 bytes, got %d", len(key))
	}
	return key, nil
}

// StoragedConfig holds the configuration of the storaged companion service.
type StoragedConfig struct {
	ListenAddr string `env:"STORAGED_LISTEN_ADDR" envDefault:"127.0.0.1:10001"`
	DBPath     string `env:"STORAGED_DB_PATH"     envDefault:"storaged.db"`
	LogLevel   string `env:"STORAGED_LOG_LEVEL"   envDefault:"info"`
	LogFormat  string `env:"STORAGED_LOG_FORMAT"  envDefault:"json"`
}

// LoadStoraged reads the storaged configuration from environment variables.
func LoadStoraged() (*StoragedConfig, error) {
	var cfg StoragedConfig
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if strings.TrimSpace(cfg.DBPath) == "" {
		return nil, fmt.Errorf("STORAGED_DB_PATH must not be empty")
	}
	return &cfg, nil
}
