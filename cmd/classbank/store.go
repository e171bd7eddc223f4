package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/nesiel/class-bank/internal/repository"
	"github.com/nesiel/class-bank/pkg/cache"
	"github.com/nesiel/class-bank/pkg/config"
	"github.com/nesiel/class-bank/pkg/database"
	"github.com/nesiel/class-bank/pkg/storage"
)

// openStateStore returns the key-value backend selected by STATE_DRIVER and a
// function releasing its connections.
func openStateStore(cfg *config.Config, logr *zap.Logger) (repository.StateStore, func() error, error) {
	noop := func() error { return nil }

	switch cfg.State.Driver {
	case config.StateDriverMemory:
		return repository.NewMemoryStateRepository(), noop, nil
	case "", config.StateDriverFile:
		local, err := storage.NewLocalStorage(cfg.State.Dir)
		if err != nil {
			return nil, nil, fmt.Errorf("open state dir: %w", err)
		}
		return repository.NewFileStateRepository(local), noop, nil
	case config.StateDriverRedis:
		client, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			return nil, nil, fmt.Errorf("connect redis: %w", err)
		}
		repo := repository.NewRedisStateRepository(client, logr)
		return repo, repo.Close, nil
	case config.StateDriverPostgres:
		db, err := database.NewPostgres(cfg.Database)
		if err != nil {
			return nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		repo := repository.NewPostgresStateRepository(db)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := repo.EnsureSchema(ctx); err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("ensure state schema: %w", err)
		}
		return repo, db.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown state driver %q", cfg.State.Driver)
	}
}
