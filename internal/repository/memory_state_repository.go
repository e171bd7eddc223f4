package repository

import (
	"context"
	"sync"

	appErrors "github.com/nesiel/class-bank/pkg/errors"
)

// MemoryStateRepository keeps state in process memory. Used for tests and
// throwaway deployments.
type MemoryStateRepository struct {
	mu     sync.RWMutex
	values map[string][]byte
}

// NewMemoryStateRepository constructs an empty in-memory store.
func NewMemoryStateRepository() *MemoryStateRepository {
	return &MemoryStateRepository{values: make(map[string][]byte)}
}

// Get returns a copy of the stored value.
func (r *MemoryStateRepository) Get(_ context.Context, key string) ([]byte, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	value, ok := r.values[key]
	if !ok {
		return nil, appErrors.ErrStateNotFound
	}
	return append([]byte(nil), value...), nil
}

// Put stores a copy of value under key.
func (r *MemoryStateRepository) Put(_ context.Context, key string, value []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values[key] = append([]byte(nil), value...)
	return nil
}

// PutMany stores every entry under a single lock.
func (r *MemoryStateRepository) PutMany(_ context.Context, entries map[string][]byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key, value := range entries {
		r.values[key] = append([]byte(nil), value...)
	}
	return nil
}
