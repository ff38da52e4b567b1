package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisKVRepository keeps store entries as plain Redis strings without expiry.
type RedisKVRepository struct {
	client redis.UniversalClient
	prefix string
	logger *zap.Logger
}

// NewRedisKVRepository constructs a Redis-backed repository.
func NewRedisKVRepository(client redis.UniversalClient, prefix string, logger *zap.Logger) *RedisKVRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisKVRepository{client: client, prefix: prefix, logger: logger}
}

// Get returns the value for key; a missing key is not an error.
func (r *RedisKVRepository) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := r.client.Get(ctx, namespaced(r.prefix, key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis get %s: %w", key, err)
	}
	return val, true, nil
}

// Set stores value under key.
func (r *RedisKVRepository) Set(ctx context.Context, key, value string) error {
	if err := r.client.Set(ctx, namespaced(r.prefix, key), value, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Remove deletes key.
func (r *RedisKVRepository) Remove(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, namespaced(r.prefix, key)).Err(); err != nil {
		return fmt.Errorf("redis delete %s: %w", key, err)
	}
	return nil
}

// Close releases the underlying Redis connection.
func (r *RedisKVRepository) Close() error {
	if err := r.client.Close(); err != nil {
		r.logger.Warn("failed to close redis client", zap.Error(err))
		return err
	}
	return nil
}
