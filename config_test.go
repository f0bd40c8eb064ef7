package authkit

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validTestConfig() Config {
	cfg := defaultConfig()
	cfg.Token.AccessSecret = "access"
	cfg.Token.RefreshSecret = "refresh"
	return cfg
}

func TestConfigDefaults(t *testing.T) {
	cfg := defaultConfig()

	assert.Equal(t, "15m", cfg.Token.AccessTTL)
	assert.Equal(t, "7d", cfg.Token.RefreshTTL)
	assert.Equal(t, "15m", cfg.Reset.TTL)
	assert.Equal(t, 32, cfg.Reset.TokenLength)
	assert.Equal(t, 10, cfg.BcryptCost)
	assert.Equal(t, "localhost:6379", cfg.Cache.Addr())
}

func TestConfigValidate(t *testing.T) {
	cfg := validTestConfig()
	require.NoError(t, cfg.Validate())

	missing := cfg
	missing.Token.AccessSecret = ""
	assert.Error(t, missing.Validate())

	same := cfg
	same.Token.RefreshSecret = same.Token.AccessSecret
	assert.Error(t, same.Validate(), "shared secret lets access tokens pass as refresh tokens")

	short := cfg
	short.Reset.TokenLength = 8
	assert.Error(t, short.Validate())
}

func TestLoadConfigFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
token:
  access_secret: file-access
  refresh_secret: file-refresh
  access_ttl: 5m
cache:
  host: redis.internal
  port: "6380"
frontend_url: https://app.example.com
`), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "file-access", cfg.Token.AccessSecret)
	assert.Equal(t, "5m", cfg.Token.AccessTTL)
	assert.Equal(t, "redis.internal:6380", cfg.Cache.Addr())
	assert.Equal(t, "https://app.example.com", cfg.FrontendURL)
}

func TestLoadConfigEnvOverride(t *testing.T) {
	t.Setenv("ACCESS_TOKEN_KEY", "env-access")
	t.Setenv("REFRESH_TOKEN_KEY", "env-refresh")
	t.Setenv("REDIS_HOST", "cache.internal")

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, "env-access", cfg.Token.AccessSecret)
	assert.Equal(t, "cache.internal:6379", cfg.Cache.Addr())
}

func TestLoadConfigRejectsInvalid(t *testing.T) {
	t.Setenv("ACCESS_TOKEN_KEY", "")
	t.Setenv("REFRESH_TOKEN_KEY", "")

	_, err := LoadConfig("")
	assert.Error(t, err, "no secrets configured")
}
