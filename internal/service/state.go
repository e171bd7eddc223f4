package service

import (
	"context"
	"sync"
	"time"

	"github.com/nesiel/class-bank/internal/models"
)

type stateRepository interface {
	LoadDatabase(ctx context.Context) (models.Database, error)
	SaveDatabase(ctx context.Context, db models.Database) error
	LoadConfig(ctx context.Context) (models.AppConfig, error)
	SaveConfig(ctx context.Context, cfg models.AppConfig) error
	ReplaceAll(ctx context.Context, db models.Database, cfg models.AppConfig) error
}

// StateAccessor serialises read-modify-write cycles on the persisted state so
// that concurrent imports cannot lose each other's merges.
type StateAccessor struct {
	repo    stateRepository
	metrics *MetricsService
	mu      sync.Mutex
}

// NewStateAccessor wraps the repository.
func NewStateAccessor(repo stateRepository, metrics *MetricsService) *StateAccessor {
	return &StateAccessor{repo: repo, metrics: metrics}
}

// Database returns the current student database.
func (a *StateAccessor) Database(ctx context.Context) (models.Database, error) {
	defer a.observe("load_database", time.Now())
	return a.repo.LoadDatabase(ctx)
}

// Config returns the current class configuration.
func (a *StateAccessor) Config(ctx context.Context) (models.AppConfig, error) {
	defer a.observe("load_config", time.Now())
	return a.repo.LoadConfig(ctx)
}

// Snapshot returns the database and configuration read under the lock.
func (a *StateAccessor) Snapshot(ctx context.Context) (models.Database, models.AppConfig, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	db, err := a.Database(ctx)
	if err != nil {
		return nil, models.AppConfig{}, err
	}
	cfg, err := a.Config(ctx)
	if err != nil {
		return nil, models.AppConfig{}, err
	}
	return db, cfg, nil
}

// UpdateDatabase loads the database, applies fn and saves the result. Nothing
// is written when fn fails.
func (a *StateAccessor) UpdateDatabase(ctx context.Context, fn func(models.Database) (models.Database, error)) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	db, err := a.Database(ctx)
	if err != nil {
		return err
	}
	updated, err := fn(db)
	if err != nil {
		return err
	}
	defer a.observe("save_database", time.Now())
	return a.repo.SaveDatabase(ctx, updated)
}

// UpdateConfig loads the configuration, applies fn and saves the result.
func (a *StateAccessor) UpdateConfig(ctx context.Context, fn func(models.AppConfig) (models.AppConfig, error)) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	cfg, err := a.Config(ctx)
	if err != nil {
		return err
	}
	updated, err := fn(cfg)
	if err != nil {
		return err
	}
	defer a.observe("save_config", time.Now())
	return a.repo.SaveConfig(ctx, updated)
}

// Replace overwrites both blobs. fn receives the current state and returns
// the replacement.
func (a *StateAccessor) Replace(ctx context.Context, fn func(models.Database, models.AppConfig) (models.Database, models.AppConfig, error)) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	db, err := a.Database(ctx)
	if err != nil {
		return err
	}
	cfg, err := a.Config(ctx)
	if err != nil {
		return err
	}
	newDB, newCfg, err := fn(db, cfg)
	if err != nil {
		return err
	}
	defer a.observe("replace_all", time.Now())
	return a.repo.ReplaceAll(ctx, newDB, newCfg)
}

func (a *StateAccessor) observe(operation string, start time.Time) {
	a.metrics.ObserveStateOperation(operation, time.Since(start))
}
