package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/nesiel/class-bank/internal/models"
	appErrors "github.com/nesiel/class-bank/pkg/errors"
)

const (
	databaseKey = "db"
	configKey   = "config"
)

// StateRepository reads and writes the student database and the class
// configuration as two named blobs on top of a StateStore.
type StateRepository struct {
	store  StateStore
	prefix string
	logger *zap.Logger
}

// NewStateRepository constructs the repository. prefix namespaces the keys.
func NewStateRepository(store StateStore, prefix string, logger *zap.Logger) *StateRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StateRepository{store: store, prefix: prefix, logger: logger}
}

// LoadDatabase returns the stored student database. A missing blob yields an
// empty database; malformed records are dropped.
func (r *StateRepository) LoadDatabase(ctx context.Context) (models.Database, error) {
	raw, err := r.store.Get(ctx, r.key(databaseKey))
	if err != nil {
		if errors.Is(err, appErrors.ErrStateNotFound) {
			return models.Database{}, nil
		}
		return nil, fmt.Errorf("load database: %w", err)
	}
	db, dropped, err := models.DecodeDatabase(raw)
	if err != nil {
		return nil, fmt.Errorf("load database: %w", err)
	}
	if dropped > 0 {
		r.logger.Warn("dropped malformed student records", zap.Int("dropped", dropped))
	}
	return db, nil
}

// SaveDatabase replaces the stored student database.
func (r *StateRepository) SaveDatabase(ctx context.Context, db models.Database) error {
	payload, err := encodeDatabase(db)
	if err != nil {
		return err
	}
	if err := r.store.Put(ctx, r.key(databaseKey), payload); err != nil {
		return fmt.Errorf("save database: %w", err)
	}
	return nil
}

// LoadConfig returns the stored configuration overlaid on the defaults.
func (r *StateRepository) LoadConfig(ctx context.Context) (models.AppConfig, error) {
	raw, err := r.store.Get(ctx, r.key(configKey))
	if err != nil {
		if errors.Is(err, appErrors.ErrStateNotFound) {
			return models.DefaultAppConfig(), nil
		}
		return models.AppConfig{}, fmt.Errorf("load config: %w", err)
	}
	cfg, err := models.DecodeAppConfig(raw)
	if err != nil {
		r.logger.Warn("stored config is not an object, using defaults", zap.Error(err))
		return models.DefaultAppConfig(), nil
	}
	return cfg, nil
}

// SaveConfig replaces the stored configuration.
func (r *StateRepository) SaveConfig(ctx context.Context, cfg models.AppConfig) error {
	payload, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := r.store.Put(ctx, r.key(configKey), payload); err != nil {
		return fmt.Errorf("save config: %w", err)
	}
	return nil
}

// ReplaceAll writes both blobs together.
func (r *StateRepository) ReplaceAll(ctx context.Context, db models.Database, cfg models.AppConfig) error {
	dbPayload, err := encodeDatabase(db)
	if err != nil {
		return err
	}
	cfgPayload, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	entries := map[string][]byte{
		r.key(databaseKey): dbPayload,
		r.key(configKey):   cfgPayload,
	}
	if err := r.store.PutMany(ctx, entries); err != nil {
		return fmt.Errorf("replace state: %w", err)
	}
	return nil
}

func (r *StateRepository) key(name string) string {
	if r.prefix == "" {
		return name
	}
	return r.prefix + ":" + name
}

func encodeDatabase(db models.Database) ([]byte, error) {
	if db == nil {
		db = models.Database{}
	}
	payload, err := json.Marshal(db)
	if err != nil {
		return nil, fmt.Errorf("encode database: %w", err)
	}
	return payload, nil
}
