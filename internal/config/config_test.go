package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, 30*time.Second, cfg.Gateway.Timeout)
	assert.Equal(t, 24*time.Hour, cfg.Gateway.CacheTTL)
	assert.True(t, cfg.Gateway.CacheEnabled)
	assert.Equal(t, "channel", cfg.Events.Publisher)
	assert.Equal(t, 15*time.Minute, cfg.Tasks.StaleAfter)
	assert.Equal(t, 5*time.Minute, cfg.Tasks.ReapInterval)
}

func TestLoadFromFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	yaml := []byte("gateway:\n  endpoint: https://gateway.example.com\n  cache_ttl: 1h\ndatabase:\n  driver: sqlite\n  url: \"file::memory:\"\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), yaml, 0o600))

	t.Setenv("GATEWAY_TOKEN", "secret-token")
	t.Setenv("GATEWAY_CACHE_ENABLED", "false")
	t.Setenv("TASKS_STALE_AFTER", "30m")

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, "https://gateway.example.com", cfg.Gateway.Endpoint)
	assert.Equal(t, "secret-token", cfg.Gateway.Token)
	assert.Equal(t, time.Hour, cfg.Gateway.CacheTTL)
	assert.False(t, cfg.Gateway.CacheEnabled)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "file::memory:", cfg.Database.URL)
	assert.Equal(t, 30*time.Minute, cfg.Tasks.StaleAfter)
}

func TestValidateRejectsShortSecretInProduction(t *testing.T) {
	cfg := &Config{
		Environment: "production",
		JWTSecret:   "short",
		Database:    DatabaseConfig{Driver: "postgres"},
		Gateway:     GatewayConfig{CacheBackend: "database"},
		Tasks:       TaskConfig{StaleAfter: time.Minute, ReapInterval: time.Minute},
	}
	assert.Error(t, cfg.Validate())

	cfg.JWTSecret = "0123456789abcdef0123456789abcdef"
	assert.NoError(t, cfg.Validate())
}
