package service

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nesiel/class-bank/internal/models"
	"github.com/nesiel/class-bank/internal/repository"
	"github.com/nesiel/class-bank/pkg/spreadsheet"
)

// countingStore records every access to the underlying memory store.
type countingStore struct {
	*repository.MemoryStateRepository
	mu     sync.Mutex
	gets   int
	writes int
}

func newCountingStore() *countingStore {
	return &countingStore{MemoryStateRepository: repository.NewMemoryStateRepository()}
}

func (c *countingStore) Get(ctx context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	c.gets++
	c.mu.Unlock()
	return c.MemoryStateRepository.Get(ctx, key)
}

func (c *countingStore) Put(ctx context.Context, key string, value []byte) error {
	c.mu.Lock()
	c.writes++
	c.mu.Unlock()
	return c.MemoryStateRepository.Put(ctx, key, value)
}

func (c *countingStore) PutMany(ctx context.Context, entries map[string][]byte) error {
	c.mu.Lock()
	c.writes++
	c.mu.Unlock()
	return c.MemoryStateRepository.PutMany(ctx, entries)
}

func (c *countingStore) accesses() (int, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gets, c.writes
}

func newTestState(t *testing.T) (*StateAccessor, *repository.StateRepository, *countingStore) {
	t.Helper()
	store := newCountingStore()
	repo := repository.NewStateRepository(store, "test", nil)
	return NewStateAccessor(repo, nil), repo, store
}

func seedDatabase(t *testing.T, repo *repository.StateRepository, db models.Database) {
	t.Helper()
	require.NoError(t, repo.SaveDatabase(context.Background(), db))
}

func workbook(t *testing.T, headers []string, rows ...[]interface{}) []byte {
	t.Helper()
	data, err := spreadsheet.Write(headers, rows, spreadsheet.WriteOptions{})
	require.NoError(t, err)
	return data
}

func floatPtr(v float64) *float64 {
	return &v
}
