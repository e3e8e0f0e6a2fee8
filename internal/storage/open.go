// Package storage builds the configured key-value backend.
package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sakif/cultural-expo/internal/config"
	"github.com/sakif/cultural-expo/internal/repository"
	"github.com/sakif/cultural-expo/internal/repository/memory"
	"github.com/sakif/cultural-expo/internal/repository/redis"
	"github.com/sakif/cultural-expo/internal/repository/sqlite"
)

// Open returns the backend selected by cfg.StorageBackend, wrapped in the
// configured storage quota. The caller owns the result and must Close it.
func Open(ctx context.Context, cfg *config.Config) (repository.KeyValueStore, error) {
	var (
		store repository.KeyValueStore
		err   error
	)

	switch cfg.StorageBackend {
	case config.BackendMemory:
		store = memory.New()

	case config.BackendSQLite:
		if cfg.SQLitePath != ":memory:" {
			// Like `mkdir -p`: create the data directory if it is missing.
			dir := filepath.Dir(cfg.SQLitePath)
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("storage: creating %s: %w", dir, err)
			}
		}
		store, err = sqlite.New(cfg.SQLitePath)

	case config.BackendRedis:
		store, err = redis.New(ctx, cfg.RedisAddr, cfg.RedisPrefix)

	default:
		return nil, fmt.Errorf("storage: unsupported backend %q", cfg.StorageBackend)
	}
	if err != nil {
		return nil, fmt.Errorf("storage: opening %s backend: %w", cfg.StorageBackend, err)
	}

	return repository.WithQuota(store, cfg.StorageQuotaBytes), nil
}
