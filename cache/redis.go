/*
Copyright © 2025 The vinylgw Authors.

Released under MIT license.
*/

package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vinyldash/vinylgw/log"
	"github.com/vinyldash/vinylgw/retry"
)

// RedisBackend keeps entries in Redis. Expiration is handled by Redis itself.
type RedisBackend struct {
	client    redis.UniversalClient
	keyPrefix string
}

var _ Backend = (*RedisBackend)(nil)

// NewRedisBackend creates a RedisBackend over the given client. All keys are prefixed with keyPrefix.
func NewRedisBackend(client redis.UniversalClient, keyPrefix string) *RedisBackend {
	return &RedisBackend{client: client, keyPrefix: keyPrefix}
}

// NewRedisBackendFromConfig creates a Redis client from the configuration.
// The connection is not required to be established, Store tolerates an unreachable server.
func NewRedisBackendFromConfig(cfg RedisConfig) *RedisBackend {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.DialTimeout,
		WriteTimeout: cfg.DialTimeout,
	})
	return NewRedisBackend(client, cfg.KeyPrefix)
}

// Get implements Backend.
func (b *RedisBackend) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := b.client.Get(ctx, b.keyPrefix+key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("redis get: %w", err)
	}
	return val, true, nil
}

// Set implements Backend.
func (b *RedisBackend) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	if err := b.client.Set(ctx, b.keyPrefix+key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Ping implements Backend.
func (b *RedisBackend) Ping(ctx context.Context) error {
	return b.client.Ping(ctx).Err()
}

// Close implements Backend.
func (b *RedisBackend) Close() error {
	return b.client.Close()
}

// WaitReady pings the server until it responds or the attempts are exhausted.
func (b *RedisBackend) WaitReady(ctx context.Context, policy retry.Policy, logger log.FieldLogger) error {
	return retry.DoWithRetry(ctx, policy, nil, func(err error, d time.Duration) {
		logger.Warn("redis is not ready, retrying", log.Error(err), log.Duration("delay", d))
	}, b.Ping)
}
