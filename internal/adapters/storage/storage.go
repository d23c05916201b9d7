// Package storage содержит реализации долговременного хранилища ключ-значение.
package storage

import (
	"context"
	"fmt"

	"telegram-moderation-bot/internal/pkg/config"
	"telegram-moderation-bot/internal/ports"
)

// Open создает хранилище согласно конфигурации.
func Open(ctx context.Context, cfg config.Storage) (ports.KVStore, error) {
	switch cfg.Driver {
	case config.StorageMemory:
		return NewMemoryStore(), nil
	case config.StorageSQLite:
		return NewSQLiteStore(cfg.Path)
	case config.StorageRedis:
		return NewRedisStore(ctx, cfg.RedisURL)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}
