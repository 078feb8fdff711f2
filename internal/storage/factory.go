package storage

import (
	"fmt"
	"os"
	"path/filepath"

	"bagger/internal/bagger"
	"bagger/internal/config"
)

// NewStorageFromConfig creates a Storage implementation based on the storage config type.
func NewStorageFromConfig(cfg config.StorageConfig) (bagger.Storage, error) {
	switch cfg.Type {
	case "sqlite", "":
		if cfg.DataDir == "" {
			return nil, fmt.Errorf("data_dir required for sqlite storage")
		}
		if err := os.MkdirAll(cfg.DataDir, 0700); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		s, err := NewSQLiteStorage(filepath.Join(cfg.DataDir, "bagger.db"))
		if err != nil {
			return nil, err
		}
		return s, nil
	case "memory":
		return NewMemoryStorage(), nil
	case "redis":
		if cfg.RedisAddr == "" {
			return nil, fmt.Errorf("redis_addr required for redis storage")
		}
		s, err := NewRedisStorage(cfg.RedisAddr, cfg.RedisDB, cfg.RedisPrefix)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}

// MigrationChecker is implemented by storage with a versioned schema.
type MigrationChecker interface {
	CheckMigrations() error
}

// CheckSchema verifies s is at the latest schema version. Storage without a
// schema always passes.
func CheckSchema(s bagger.Storage) error {
	if c, ok := s.(MigrationChecker); ok {
		return c.CheckMigrations()
	}
	return nil
}
