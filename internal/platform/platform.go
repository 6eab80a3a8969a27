// Package platform opens the storage and queue backends selected by configuration.
package platform

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"internship/internal/config"
	"internship/internal/queue"
	"internship/internal/store"
	"internship/internal/store/kvstore"
	"internship/internal/store/sqlstore"
)

// Backends are the process-wide storage and messaging handles.
type Backends struct {
	Store store.Store
	Queue queue.Queue
	// Redis is nil unless a Redis-backed store or queue is configured.
	Redis *store.Redis
}

// Open connects the configured backends, applying SQL migrations first.
func Open(ctx context.Context, cfg config.App, logger zerolog.Logger) (*Backends, error) {
	b := &Backends{}
	if cfg.StoreBackend == "redis" || cfg.QueueBackend == "redis" {
		rdb, err := store.NewRedis(cfg.RedisAddr)
		if err != nil {
			return nil, err
		}
		b.Redis = rdb
		if !b.Redis.Healthy(ctx) {
			logger.Warn().Str("addr", cfg.RedisAddr).Msg("redis not reachable yet")
		}
	}

	st, err := openStore(ctx, cfg, b.Redis, logger)
	if err != nil {
		_ = b.Redis.Close()
		return nil, err
	}
	b.Store = st

	switch cfg.QueueBackend {
	case "memory":
		b.Queue = queue.NewInMemory(256)
	default:
		b.Queue = queue.NewRedisQueue(b.Redis.Client, cfg.QueueKey)
	}
	logger.Info().Str("store", cfg.StoreBackend).Str("queue", cfg.QueueBackend).Msg("backends ready")
	return b, nil
}

func openStore(ctx context.Context, cfg config.App, rdb *store.Redis, logger zerolog.Logger) (store.Store, error) {
	switch cfg.StoreBackend {
	case "postgres":
		if err := store.MigratePostgres(cfg.DatabaseURL); err != nil {
			return nil, err
		}
		db, err := store.OpenPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("postgres: %w", err)
		}
		return sqlstore.New(db, sqlstore.Postgres, logger), nil
	case "sqlite":
		db, err := store.OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("sqlite: %w", err)
		}
		if err := store.MigrateSQLite(db); err != nil {
			_ = db.Close()
			return nil, err
		}
		return sqlstore.New(db, sqlstore.SQLite, logger), nil
	case "redis":
		return kvstore.New(kvstore.NewRedis(rdb.Client), cfg.RedisKeyPrefix, logger), nil
	case "memory":
		return kvstore.New(kvstore.NewMemory(cfg.MemoryQuota), "", logger), nil
	}
	return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
}

// Close releases every backend.
func (b *Backends) Close() error {
	var errs []error
	if b.Store != nil {
		errs = append(errs, b.Store.Close())
	}
	errs = append(errs, b.Redis.Close())
	return errors.Join(errs...)
}
