// Package config loads the service configuration from EXPO_-prefixed
// environment variables.
package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

// Storage backends.
const (
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Config holds the configuration for the server and the CLI.
// Example: EXPO_HTTP_PORT=9000 EXPO_STORAGE_BACKEND=memory
type Config struct {
	HTTPPort int    `envconfig:"HTTP_PORT" default:"8080"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// Storage
	StorageBackend    string `envconfig:"STORAGE_BACKEND" default:"sqlite"`
	SQLitePath        string `envconfig:"SQLITE_PATH" default:"data/cultural-expo.db"`
	RedisAddr         string `envconfig:"REDIS_ADDR" default:""`
	RedisPrefix       string `envconfig:"REDIS_PREFIX" default:"cultural-expo:"`
	StorageQuotaBytes int    `envconfig:"STORAGE_QUOTA_BYTES" default:"5242880"`

	// API tokens are required only when a secret is configured.
	JWTSecret string `envconfig:"JWT_SECRET" default:""`
}

// New parses the environment and validates the result.
func New() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("EXPO", &cfg); err != nil {
		return nil, fmt.Errorf("config: processing environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks that the selected backend is known and has what it needs.
func (c *Config) Validate() error {
	switch c.StorageBackend {
	case BackendSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("config: EXPO_SQLITE_PATH is required for the sqlite backend")
		}
	case BackendRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("config: EXPO_REDIS_ADDR is required for the redis backend")
		}
	case BackendMemory:
	default:
		return fmt.Errorf("config: unsupported EXPO_STORAGE_BACKEND: %q", c.StorageBackend)
	}

	if c.HTTPPort <= 0 || c.HTTPPort > 65535 {
		return fmt.Errorf("config: invalid EXPO_HTTP_PORT: %d", c.HTTPPort)
	}
	if c.StorageQuotaBytes < 0 {
		return fmt.Errorf("config: EXPO_STORAGE_QUOTA_BYTES must not be negative")
	}
	if c.JWTSecret != "" && len(c.JWTSecret) < 16 {
		return fmt.Errorf("config: EXPO_JWT_SECRET must be at least 16 characters")
	}
	return nil
}
