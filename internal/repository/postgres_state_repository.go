package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/nesiel/class-bank/internal/models"
	appErrors "github.com/nesiel/class-bank/pkg/errors"
)

// StateSchema creates the table used by PostgresStateRepository.
const StateSchema = `CREATE TABLE IF NOT EXISTS app_state (
    key TEXT PRIMARY KEY,
    value BYTEA NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

const upsertStateQuery = `INSERT INTO app_state (key, value, updated_at)
VALUES (:key, :value, :updated_at)
ON CONFLICT (key)
DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`

// PostgresStateRepository persists state blobs in the app_state table.
type PostgresStateRepository struct {
	db *sqlx.DB
}

// NewPostgresStateRepository constructs the repository.
func NewPostgresStateRepository(db *sqlx.DB) *PostgresStateRepository {
	return &PostgresStateRepository{db: db}
}

// EnsureSchema creates the backing table if needed.
func (r *PostgresStateRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, StateSchema); err != nil {
		return fmt.Errorf("ensure state schema: %w", err)
	}
	return nil
}

// Get fetches a single entry by key.
func (r *PostgresStateRepository) Get(ctx context.Context, key string) ([]byte, error) {
	const query = `SELECT key, value, updated_at FROM app_state WHERE key = $1`
	var entry models.StateEntry
	if err := r.db.GetContext(ctx, &entry, query, key); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrStateNotFound
		}
		return nil, fmt.Errorf("get state %s: %w", key, err)
	}
	return entry.Value, nil
}

// Put inserts or updates a single entry.
func (r *PostgresStateRepository) Put(ctx context.Context, key string, value []byte) error {
	entry := models.StateEntry{Key: key, Value: value, UpdatedAt: time.Now().UTC()}
	if _, err := r.db.NamedExecContext(ctx, upsertStateQuery, entry); err != nil {
		return fmt.Errorf("upsert state: %w", err)
	}
	return nil
}

// PutMany performs upserts within a transaction.
func (r *PostgresStateRepository) PutMany(ctx context.Context, entries map[string][]byte) error {
	if len(entries) == 0 {
		return nil
	}
	keys := make([]string, 0, len(entries))
	for key := range entries {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin state tx: %w", err)
	}
	now := time.Now().UTC()
	for _, key := range keys {
		entry := models.StateEntry{Key: key, Value: entries[key], UpdatedAt: now}
		if _, err := tx.NamedExecContext(ctx, upsertStateQuery, entry); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("bulk upsert state: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit state tx: %w", err)
	}
	return nil
}
