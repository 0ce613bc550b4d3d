package kv

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/storekeeper/internal/server/config"
)

// Open builds the namespaces for the configured driver.
func Open(ctx context.Context, cfg *config.Config) (*Namespaces, error) {
	switch cfg.StoreDriver {
	case config.StoreMemory:
		return NewMemoryNamespaces(), nil
	case config.StoreRedis:
		return NewRedisNamespaces(ctx, RedisOptions{
			Addr:      cfg.RedisAddr,
			Password:  cfg.RedisPassword,
			DB:        cfg.RedisDB,
			KeyPrefix: cfg.RedisKeyPrefix,
		})
	case config.StorePostgres:
		return NewPostgresNamespaces(ctx, cfg.DatabaseDSN)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}
