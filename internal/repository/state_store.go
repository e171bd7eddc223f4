package repository

import (
	"context"
)

// StateStore persists named blobs. Get returns appErrors.ErrStateNotFound for
// keys that were never written. PutMany writes all entries or none where the
// backend supports it.
type StateStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	PutMany(ctx context.Context, entries map[string][]byte) error
}
