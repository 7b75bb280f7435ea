/*
Copyright © 2025 The vinylgw Authors.

Released under MIT license.
*/

package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/vinyldash/vinylgw/log"
	"github.com/vinyldash/vinylgw/lrucache"
	"github.com/vinyldash/vinylgw/retry"
)

// ExpiredRemover is implemented by backends that need a periodic removal of expired entries.
type ExpiredRemover interface {
	RemoveExpired(ctx context.Context) (int, error)
}

// BackendOpts represents options for NewBackend.
type BackendOpts struct {
	Logger         log.FieldLogger
	MemoryMetrics  lrucache.MetricsCollector
	RedisRetryWait time.Duration
}

// NewBackend creates the backend selected by the configuration.
// An unreachable Redis server is not an error, it's only reported to the log.
func NewBackend(ctx context.Context, cfg *Config, opts BackendOpts) (Backend, error) {
	if opts.Logger == nil {
		opts.Logger = log.NewDisabledLogger()
	}
	switch cfg.Backend {
	case BackendTypeMemory:
		return NewMemoryBackend(cfg.Memory.MaxEntries, MemoryBackendOpts{MetricsCollector: opts.MemoryMetrics})
	case BackendTypeRedis:
		b := NewRedisBackendFromConfig(cfg.Redis)
		if cfg.Redis.ConnectAttempts > 0 {
			if opts.RedisRetryWait <= 0 {
				opts.RedisRetryWait = time.Second
			}
			var err error
			if cfg.Redis.ConnectAttempts == 1 {
				err = b.Ping(ctx)
			} else {
				err = b.WaitReady(ctx, retry.NewConstantBackoffPolicy(opts.RedisRetryWait, cfg.Redis.ConnectAttempts-1), opts.Logger)
			}
			if err != nil {
				opts.Logger.Warn("redis cache is unreachable, continuing without it until it's back",
					log.String("address", cfg.Redis.Address), log.Error(err))
			}
		}
		return b, nil
	case BackendTypeSQLite:
		return NewSQLiteBackend(ctx, cfg.SQLite.Path, SQLiteBackendOpts{})
	case BackendTypeNone, "":
		return NopBackend{}, nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}
