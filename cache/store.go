/*
Copyright © 2025 The vinylgw Authors.

Released under MIT license.
*/

package cache

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/atomic"

	"github.com/vinyldash/vinylgw/log"
)

// StoreOpts represents options for Store.
type StoreOpts struct {
	Logger log.FieldLogger
}

// Store is a facade over Backend that never fails.
type Store struct {
	backend   Backend
	logger    log.FieldLogger
	available *atomic.Bool
}

// NewStore creates a new Store over the given backend.
func NewStore(backend Backend) *Store {
	return NewStoreWithOpts(backend, StoreOpts{})
}

// NewStoreWithOpts creates a new Store over the given backend with the provided options.
func NewStoreWithOpts(backend Backend, opts StoreOpts) *Store {
	if backend == nil {
		backend = NopBackend{}
	}
	if opts.Logger == nil {
		opts.Logger = log.NewDisabledLogger()
	}
	return &Store{backend: backend, logger: opts.Logger, available: atomic.NewBool(true)}
}

// Get returns the cached value. Any backend failure is reported as a miss.
func (s *Store) Get(ctx context.Context, key string) (string, bool) {
	val, found, err := s.backend.Get(ctx, key)
	s.observe(err)
	if err != nil {
		s.logger.Warn("cache get failed, treating as miss", log.String("key", key), log.Error(err))
		return "", false
	}
	return val, found
}

// Set stores the value with the given TTL. Any backend failure is logged and ignored.
func (s *Store) Set(ctx context.Context, key, value string, ttl time.Duration) {
	err := s.backend.Set(ctx, key, value, ttl)
	s.observe(err)
	if err != nil {
		s.logger.Warn("cache set failed, skipping", log.String("key", key), log.Error(err))
	}
}

// GetJSON decodes the cached JSON value into v. A value that can't be decoded is reported as a miss.
func (s *Store) GetJSON(ctx context.Context, key string, v interface{}) bool {
	raw, found := s.Get(ctx, key)
	if !found {
		return false
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		s.logger.Warn("cached value is not valid JSON, treating as miss", log.String("key", key), log.Error(err))
		return false
	}
	return true
}

// SetJSON encodes v as JSON and stores it. A value that can't be encoded is not stored.
func (s *Store) SetJSON(ctx context.Context, key string, v interface{}, ttl time.Duration) {
	raw, err := json.Marshal(v)
	if err != nil {
		s.logger.Warn("value cannot be encoded to JSON, skipping cache set", log.String("key", key), log.Error(err))
		return
	}
	s.Set(ctx, key, string(raw), ttl)
}

// Available reports whether the last backend operation succeeded.
// It's intended for diagnostics only.
func (s *Store) Available() bool {
	return s.available.Load()
}

// Probe pings the backend and updates the availability flag.
func (s *Store) Probe(ctx context.Context) bool {
	err := s.backend.Ping(ctx)
	s.observe(err)
	if err != nil {
		s.logger.Warn("cache backend is unavailable", log.Error(err))
	}
	return err == nil
}

// Close closes the backend.
func (s *Store) Close() error {
	return s.backend.Close()
}

func (s *Store) observe(err error) {
	ok := err == nil
	if wasAvailable := s.available.Swap(ok); !wasAvailable && ok {
		s.logger.Info("cache backend is available again")
	}
}
