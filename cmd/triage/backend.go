package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/noah-isme/canvas-assignment-manager/internal/repository"
	"github.com/noah-isme/canvas-assignment-manager/internal/service"
	"github.com/noah-isme/canvas-assignment-manager/pkg/cache"
	"github.com/noah-isme/canvas-assignment-manager/pkg/config"
	"github.com/noah-isme/canvas-assignment-manager/pkg/database"
)

// openBackend builds the key-value port selected by STORE_BACKEND. The returned func releases
// any connection the backend holds.
func openBackend(ctx context.Context, cfg *config.Config, logr *zap.Logger) (service.KeyValueStore, func(), error) {
	noop := func() {}
	prefix := cfg.Store.KeyPrefix

	switch cfg.Store.Backend {
	case config.StoreBackendMemory:
		return repository.NewMemoryKVRepository(), noop, nil

	case "", config.StoreBackendFile:
		repo, err := repository.NewFileKVRepository(cfg.Store.FileDir, prefix)
		if err != nil {
			return nil, noop, err
		}
		return repo, noop, nil

	case config.StoreBackendRedis:
		client, err := cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			return nil, noop, err
		}
		repo := repository.NewRedisKVRepository(client, prefix, logr)
		return repo, func() { _ = repo.Close() }, nil

	case config.StoreBackendPostgres:
		db, err := database.NewPostgres(cfg.Database)
		if err != nil {
			return nil, noop, err
		}
		repo := repository.NewSQLKVRepository(db, prefix)
		if err := repo.EnsureSchema(ctx); err != nil {
			_ = db.Close()
			return nil, noop, err
		}
		return repo, func() { _ = db.Close() }, nil

	case config.StoreBackendSQLite:
		db, err := database.NewSQLite(cfg.SQLite)
		if err != nil {
			return nil, noop, err
		}
		repo := repository.NewSQLKVRepository(db, prefix)
		if err := repo.EnsureSchema(ctx); err != nil {
			_ = db.Close()
			return nil, noop, err
		}
		return repo, func() { _ = db.Close() }, nil

	default:
		return nil, noop, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}
