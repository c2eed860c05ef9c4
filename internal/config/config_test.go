package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecretKey = "0102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f20"

// allConfigKeys lists every env var that Load() and LoadStoraged() read.
var allConfigKeys = []string{
	"AUTHGATEWAY_LISTEN_ADDR",
	"AUTHGATEWAY_ROUTE_PREFIX",
	"AUTHGATEWAY_STORAGE_URL",
	"AUTHGATEWAY_STORAGE_NAME",
	"AUTHGATEWAY_STORAGE_TIMEOUT",
	"AUTHGATEWAY_STORAGE_HTTP_CACHE",
	"AUTHGATEWAY_PASSWORD_SCHEME",
	"AUTHGATEWAY_TOKEN_TTL",
	"AUTHGATEWAY_LOG_LEVEL",
	"AUTHGATEWAY_LOG_FORMAT",
	"AUTHGATEWAY_METRICS_ENABLED",
	"AUTHGATEWAY_OTEL_ENDPOINT",
	"AUTHGATEWAY_SECRET_KEY",
	"STORAGED_LISTEN_ADDR",
	"STORAGED_DB_PATH",
	"STORAGED_LOG_LEVEL",
	"STORAGED_LOG_FORMAT",
}

// isolateConfigEnv saves and unsets all config env vars so tests don't
// inherit values from the host environment (e.g. a running dev server).
// t.Cleanup restores original values after the test.
func isolateConfigEnv(t *testing.T) {
	t.Helper()
	for _, key := range allConfigKeys {
		if orig, ok := os.LookupEnv(key); ok {
			t.Cleanup(func() { os.Setenv(key, orig) })
		} else {
			t.Cleanup(func() { os.Unsetenv(key) })
		}
		os.Unsetenv(key)
	}
}

func TestLoad_Success(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("AUTHGATEWAY_SECRET_KEY", testSecretKey)
	t.Setenv("AUTHGATEWAY_LISTEN_ADDR", "0.0.0.0:9090")
	t.Setenv("AUTHGATEWAY_ROUTE_PREFIX", "auth/")
	t.Setenv("AUTHGATEWAY_STORAGE_URL", "http://storage.internal:10001/")
	t.Setenv("AUTHGATEWAY_STORAGE_NAME", "users")
	t.Setenv("AUTHGATEWAY_STORAGE_TIMEOUT", "2s")
	t.Setenv("AUTHGATEWAY_STORAGE_HTTP_CACHE", "true")
	t.Setenv("AUTHGATEWAY_PASSWORD_SCHEME", "aesgcm")
	t.Setenv("AUTHGATEWAY_TOKEN_TTL", "15m")
	t.Setenv("AUTHGATEWAY_METRICS_ENABLED", "false")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:9090", cfg.ListenAddr)
	assert.Equal(t, "/auth", cfg.RoutePrefix)
	assert.Equal(t, "http://storage.internal:10001", cfg.StorageURL)
	assert.Equal(t, "users", cfg.StorageName)
	assert.Equal(t, 2*time.Second, cfg.StorageTimeout)
	assert.True(t, cfg.StorageHTTPCache)
	assert.Equal(t, SchemeAESGCM, cfg.PasswordScheme)
	assert.Equal(t, 15*time.Minute, cfg.TokenTTL)
	assert.False(t, cfg.MetricsEnabled)
	assert.Len(t, cfg.SecretKey, 32)
	assert.Empty(t, cfg.SecretKeyHex)
}

func TestLoad_Defaults(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("AUTHGATEWAY_SECRET_KEY", testSecretKey)

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:10002", cfg.ListenAddr)
	assert.Equal(t, "", cfg.RoutePrefix)
	assert.Equal(t, "http://127.0.0.1:10001", cfg.StorageURL)
	assert.Equal(t, "auth", cfg.StorageName)
	assert.Equal(t, 5*time.Second, cfg.StorageTimeout)
	assert.False(t, cfg.StorageHTTPCache)
	assert.Equal(t, SchemeArgon2id, cfg.PasswordScheme)
	assert.Equal(t, time.Hour, cfg.TokenTTL)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.True(t, cfg.MetricsEnabled)
	assert.Equal(t, "", cfg.OTelEndpoint)
}

func TestLoad_SecretKey_Absent(t *testing.T) {
	isolateConfigEnv(t)

	cfg, err := Load()

	assert.Nil(t, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "AUTHGATEWAY_SECRET_KEY")
}

func TestLoad_SecretKey_TooShort(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("AUTHGATEWAY_SECRET_KEY", "deadbeef")

	cfg, err := Load()

	assert.Nil(t, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "AUTHGATEWAY_SECRET_KEY")
}

func TestLoad_SecretKey_NotHex(t *testing.T) {
	isolateConfigEnv(t)
	// 64 chars but not valid hex
	t.Setenv("AUTHGATEWAY_SECRET_KEY", "zzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzz")

	cfg, err := Load()

	assert.Nil(t, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "AUTHGATEWAY_SECRET_KEY")
}

func TestLoad_InvalidTokenTTL(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("AUTHGATEWAY_SECRET_KEY", testSecretKey)
	t.Setenv("AUTHGATEWAY_TOKEN_TTL", "not-a-duration")

	cfg, err := Load()

	assert.Nil(t, cfg)
	require.Error(t, err)
}

func TestLoad_NonPositiveDurations(t *testing.T) {
	for _, key := range []string{"AUTHGATEWAY_TOKEN_TTL", "AUTHGATEWAY_STORAGE_TIMEOUT"} {
		t.Run(key, func(t *testing.T) {
			isolateConfigEnv(t)
			t.Setenv("AUTHGATEWAY_SECRET_KEY", testSecretKey)
			t.Setenv(key, "0s")

			cfg, err := Load()

			assert.Nil(t, cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), key)
		})
	}
}

func TestLoad_UnknownPasswordScheme(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("AUTHGATEWAY_SECRET_KEY", testSecretKey)
	t.Setenv("AUTHGATEWAY_PASSWORD_SCHEME", "md5")

	cfg, err := Load()

	assert.Nil(t, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "AUTHGATEWAY_PASSWORD_SCHEME")
}

func TestLoad_InvalidStorageURL(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("AUTHGATEWAY_SECRET_KEY", testSecretKey)
	t.Setenv("AUTHGATEWAY_STORAGE_URL", "not a url")

	cfg, err := Load()

	assert.Nil(t, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "AUTHGATEWAY_STORAGE_URL")
}

func TestLoad_EmptyStorageName(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("AUTHGATEWAY_SECRET_KEY", testSecretKey)
	t.Setenv("AUTHGATEWAY_STORAGE_NAME", "  ")

	cfg, err := Load()

	assert.Nil(t, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "AUTHGATEWAY_STORAGE_NAME")
}

func TestLoadStoraged_Defaults(t *testing.T) {
	isolateConfigEnv(t)

	cfg, err := LoadStoraged()

	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:10001", cfg.ListenAddr)
	assert.Equal(t, "storaged.db", cfg.DBPath)
}

func TestLoadStoraged_Overrides(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("STORAGED_LISTEN_ADDR", "0.0.0.0:7000")
	t.Setenv("STORAGED_DB_PATH", "/data/store.db")

	cfg, err := LoadStoraged()

	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0:7000", cfg.ListenAddr)
	assert.Equal(t, "/data/store.db", cfg.DBPath)
}
