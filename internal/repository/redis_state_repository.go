package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	appErrors "github.com/nesiel/class-bank/pkg/errors"
)

// RedisStateRepository stores state blobs as plain Redis strings without expiry.
type RedisStateRepository struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRedisStateRepository constructs the repository.
func NewRedisStateRepository(client *redis.Client, logger *zap.Logger) *RedisStateRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisStateRepository{client: client, logger: logger}
}

// Get fetches the raw value stored under key.
func (r *RedisStateRepository) Get(ctx context.Context, key string) ([]byte, error) {
	if r.client == nil {
		return nil, appErrors.ErrStateNotFound
	}

	raw, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, appErrors.ErrStateNotFound
		}
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}
	return raw, nil
}

// Put stores value under key.
func (r *RedisStateRepository) Put(ctx context.Context, key string, value []byte) error {
	if r.client == nil {
		return fmt.Errorf("redis set %s: client not configured", key)
	}
	if err := r.client.Set(ctx, key, value, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// PutMany writes all entries inside a MULTI/EXEC block.
func (r *RedisStateRepository) PutMany(ctx context.Context, entries map[string][]byte) error {
	if r.client == nil {
		return fmt.Errorf("redis multi set: client not configured")
	}
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for key, value := range entries {
			pipe.Set(ctx, key, value, 0)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis multi set: %w", err)
	}
	r.logger.Debug("state entries written", zap.Int("count", len(entries)))
	return nil
}

// Close releases the underlying Redis connection if present.
func (r *RedisStateRepository) Close() error {
	if r.client == nil {
		return nil
	}
	return r.client.Close()
}
