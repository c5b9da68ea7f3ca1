// Package config loads gateway configuration from an optional YAML file
// with environment-variable overrides. Every setting has a sensible
// default.
//
// Environment variables:
//
//	VADE_HOST="0.0.0.0"
//	VADE_PORT="8080"
//	VADE_HEALTH_PORT="9090"
//	VADE_READ_TIMEOUT="15s"
//	VADE_WRITE_TIMEOUT="15s"
//	VADE_IDLE_TIMEOUT="60s"
//	VADE_SHUTDOWN_TIMEOUT="30s"
//	VADE_LOG_LEVEL="info"            # debug, info, warn, error
//	VADE_MEMORY_ENABLED="true"
//	VADE_MEMORY_MAX_ENTRIES="1024"
//	VADE_MEMORY_TTL="0s"
//	VADE_REDIS_URL=""                # empty disables the redis plugin
//	VADE_REDIS_KEY_PREFIXES=""       # comma separated
//	VADE_REDIS_TTL="0s"
//	VADE_SQLITE_PATH=""              # empty disables the sql plugin
//	VADE_RELAY_CHANNEL=""            # empty disables the relay plugin
//	VADE_RELAY_MESSAGE_TYPES=""      # comma separated
//	VADE_OTEL_ENABLED="false"
//	VADE_OTEL_ENDPOINT="localhost:4317"
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all gateway configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Log     LogConfig     `yaml:"log"`
	Plugins PluginsConfig `yaml:"plugins"`
	OTel    OTelConfig    `yaml:"otel"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            string        `yaml:"port"`
	HealthPort      string        `yaml:"health_port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `yaml:"level"`
}

// PluginsConfig selects and configures the built-in plugins. Plugins are
// registered in the order memory, redis, sql, relay; registration order is
// dispatch order.
type PluginsConfig struct {
	Memory MemoryConfig `yaml:"memory"`
	Redis  RedisConfig  `yaml:"redis"`
	SQL    SQLConfig    `yaml:"sql"`
	Relay  RelayConfig  `yaml:"relay"`
}

// MemoryConfig configures the in-memory cache plugin.
type MemoryConfig struct {
	Enabled    bool          `yaml:"enabled"`
	MaxEntries int           `yaml:"max_entries"`
	TTL        time.Duration `yaml:"ttl"`
}

// RedisConfig configures the Redis document plugin. An empty URL disables
// it.
type RedisConfig struct {
	URL         string        `yaml:"url"`
	Password    string        `yaml:"password"`
	DB          int           `yaml:"db"`
	KeyPrefixes []string      `yaml:"key_prefixes"`
	TTL         time.Duration `yaml:"ttl"`
}

// SQLConfig configures the SQLite document plugin. An empty path disables
// it.
type SQLConfig struct {
	Path string `yaml:"path"`
}

// RelayConfig configures the message relay plugin. It requires the Redis
// URL; an empty channel disables it.
type RelayConfig struct {
	Channel      string   `yaml:"channel"`
	MessageTypes []string `yaml:"message_types"`
}

// OTelConfig holds OpenTelemetry settings.
type OTelConfig struct {
	Enabled        bool   `yaml:"enabled"`
	Endpoint       string `yaml:"endpoint"`
	ServiceName    string `yaml:"service_name"`
	ServiceVersion string `yaml:"service_version"`
	Insecure       bool   `yaml:"insecure"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            "8080",
			HealthPort:      "9090",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Log: LogConfig{Level: "info"},
		Plugins: PluginsConfig{
			Memory: MemoryConfig{Enabled: true, MaxEntries: 1024},
			Redis:  RedisConfig{DB: -1},
		},
		OTel: OTelConfig{
			Endpoint:       "localhost:4317",
			ServiceName:    "vade",
			ServiceVersion: "dev",
			Insecure:       true,
		},
	}
}

// Load builds the configuration from defaults, the optional YAML file at
// path (empty path skips the file) and environment overrides, then
// validates it.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Server.Host = getEnv("VADE_HOST", c.Server.Host)
	c.Server.Port = getEnv("VADE_PORT", c.Server.Port)
	c.Server.HealthPort = getEnv("VADE_HEALTH_PORT", c.Server.HealthPort)
	c.Server.ReadTimeout = getEnvDuration("VADE_READ_TIMEOUT", c.Server.ReadTimeout)
	c.Server.WriteTimeout = getEnvDuration("VADE_WRITE_TIMEOUT", c.Server.WriteTimeout)
	c.Server.IdleTimeout = getEnvDuration("VADE_IDLE_TIMEOUT", c.Server.IdleTimeout)
	c.Server.ShutdownTimeout = getEnvDuration("VADE_SHUTDOWN_TIMEOUT", c.Server.ShutdownTimeout)

	c.Log.Level = getEnv("VADE_LOG_LEVEL", c.Log.Level)

	c.Plugins.Memory.Enabled = getEnvBool("VADE_MEMORY_ENABLED", c.Plugins.Memory.Enabled)
	c.Plugins.Memory.MaxEntries = getEnvInt("VADE_MEMORY_MAX_ENTRIES", c.Plugins.Memory.MaxEntries)
	c.Plugins.Memory.TTL = getEnvDuration("VADE_MEMORY_TTL", c.Plugins.Memory.TTL)

	c.Plugins.Redis.URL = getEnv("VADE_REDIS_URL", c.Plugins.Redis.URL)
	c.Plugins.Redis.Password = getEnv("VADE_REDIS_PASSWORD", c.Plugins.Redis.Password)
	c.Plugins.Redis.DB = getEnvInt("VADE_REDIS_DB", c.Plugins.Redis.DB)
	c.Plugins.Redis.KeyPrefixes = getEnvList("VADE_REDIS_KEY_PREFIXES", c.Plugins.Redis.KeyPrefixes)
	c.Plugins.Redis.TTL = getEnvDuration("VADE_REDIS_TTL", c.Plugins.Redis.TTL)

	c.Plugins.SQL.Path = getEnv("VADE_SQLITE_PATH", c.Plugins.SQL.Path)

	c.Plugins.Relay.Channel = getEnv("VADE_RELAY_CHANNEL", c.Plugins.Relay.Channel)
	c.Plugins.Relay.MessageTypes = getEnvList("VADE_RELAY_MESSAGE_TYPES", c.Plugins.Relay.MessageTypes)

	c.OTel.Enabled = getEnvBool("VADE_OTEL_ENABLED", c.OTel.Enabled)
	c.OTel.Endpoint = getEnv("VADE_OTEL_ENDPOINT", c.OTel.Endpoint)
	c.OTel.ServiceName = getEnv("VADE_OTEL_SERVICE_NAME", c.OTel.ServiceName)
	c.OTel.ServiceVersion = getEnv("VADE_OTEL_SERVICE_VERSION", c.OTel.ServiceVersion)
	c.OTel.Insecure = getEnvBool("VADE_OTEL_INSECURE", c.OTel.Insecure)
}

// Validate checks the configuration for inconsistencies.
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port must not be empty")
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("invalid log level: %q", c.Log.Level)
	}
	if c.Plugins.Relay.Channel != "" && c.Plugins.Redis.URL == "" {
		return fmt.Errorf("relay plugin requires a redis URL")
	}
	if c.OTel.Enabled && c.OTel.Endpoint == "" {
		return fmt.Errorf("otel endpoint must not be empty when otel is enabled")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				out = append(out, trimmed)
			}
		}
		return out
	}
	return fallback
}
