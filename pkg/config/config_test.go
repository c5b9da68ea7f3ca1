package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "9090", cfg.Server.HealthPort)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.True(t, cfg.Plugins.Memory.Enabled)
	assert.Equal(t, 1024, cfg.Plugins.Memory.MaxEntries)
	assert.Empty(t, cfg.Plugins.Redis.URL)
	assert.False(t, cfg.OTel.Enabled)
	require.NoError(t, cfg.Validate())
}

func TestLoadWithoutFile(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoadYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vade.yaml")
	data := `
server:
  port: "9999"
  shutdown_timeout: 5s
log:
  level: debug
plugins:
  memory:
    enabled: false
  redis:
    url: redis://localhost:6379/0
    key_prefixes: [did, vc]
    ttl: 1h
  relay:
    channel: vade:messages
    message_types: [proof-proposal]
otel:
  enabled: true
  endpoint: collector:4317
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "9999", cfg.Server.Port)
	assert.Equal(t, 5*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.False(t, cfg.Plugins.Memory.Enabled)
	assert.Equal(t, "redis://localhost:6379/0", cfg.Plugins.Redis.URL)
	assert.Equal(t, []string{"did", "vc"}, cfg.Plugins.Redis.KeyPrefixes)
	assert.Equal(t, time.Hour, cfg.Plugins.Redis.TTL)
	assert.Equal(t, "vade:messages", cfg.Plugins.Relay.Channel)
	assert.True(t, cfg.OTel.Enabled)
	assert.Equal(t, "collector:4317", cfg.OTel.Endpoint)
	// File values left unset keep their defaults.
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vade.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [not a map"), 0o600))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config file")
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vade.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: \"9999\"\n"), 0o600))

	t.Setenv("VADE_PORT", "7777")
	t.Setenv("VADE_LOG_LEVEL", "warn")
	t.Setenv("VADE_MEMORY_MAX_ENTRIES", "64")
	t.Setenv("VADE_MEMORY_TTL", "30s")
	t.Setenv("VADE_REDIS_KEY_PREFIXES", "did, vc ,")
	t.Setenv("VADE_OTEL_ENABLED", "true")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "7777", cfg.Server.Port)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, 64, cfg.Plugins.Memory.MaxEntries)
	assert.Equal(t, 30*time.Second, cfg.Plugins.Memory.TTL)
	assert.Equal(t, []string{"did", "vc"}, cfg.Plugins.Redis.KeyPrefixes)
	assert.True(t, cfg.OTel.Enabled)
}

func TestEnvIgnoresUnparseableValues(t *testing.T) {
	t.Setenv("VADE_MEMORY_MAX_ENTRIES", "lots")
	t.Setenv("VADE_READ_TIMEOUT", "soon")
	t.Setenv("VADE_OTEL_ENABLED", "yep")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 1024, cfg.Plugins.Memory.MaxEntries)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.False(t, cfg.OTel.Enabled)
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "empty port",
			mutate:  func(c *Config) { c.Server.Port = "" },
			wantErr: "server port",
		},
		{
			name:    "bad log level",
			mutate:  func(c *Config) { c.Log.Level = "loud" },
			wantErr: "invalid log level",
		},
		{
			name:    "relay without redis",
			mutate:  func(c *Config) { c.Plugins.Relay.Channel = "vade:messages" },
			wantErr: "relay plugin requires",
		},
		{
			name: "otel without endpoint",
			mutate: func(c *Config) {
				c.OTel.Enabled = true
				c.OTel.Endpoint = ""
			},
			wantErr: "otel endpoint",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}
