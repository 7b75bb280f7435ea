/*
Copyright © 2025 The vinylgw Authors.

Released under MIT license.
*/

package cache

import (
	"context"
	"time"

	"github.com/vinyldash/vinylgw/lrucache"
)

// MemoryBackend keeps entries in a process-local LRU cache.
type MemoryBackend struct {
	lru *lrucache.LRUCache[string, string]
}

var _ Backend = (*MemoryBackend)(nil)

// MemoryBackendOpts represents options for MemoryBackend.
type MemoryBackendOpts struct {
	MetricsCollector lrucache.MetricsCollector
	Clock            func() time.Time
}

// NewMemoryBackend creates a new MemoryBackend that holds up to maxEntries entries.
func NewMemoryBackend(maxEntries int, opts MemoryBackendOpts) (*MemoryBackend, error) {
	lru, err := lrucache.NewWithOpts[string, string](maxEntries, opts.MetricsCollector, lrucache.Options{Clock: opts.Clock})
	if err != nil {
		return nil, err
	}
	return &MemoryBackend{lru: lru}, nil
}

// Get implements Backend.
func (b *MemoryBackend) Get(_ context.Context, key string) (string, bool, error) {
	val, found := b.lru.Get(key)
	return val, found, nil
}

// Set implements Backend.
func (b *MemoryBackend) Set(_ context.Context, key, value string, ttl time.Duration) error {
	b.lru.AddWithTTL(key, value, ttl)
	return nil
}

// Ping implements Backend.
func (b *MemoryBackend) Ping(context.Context) error {
	return nil
}

// Close implements Backend.
func (b *MemoryBackend) Close() error {
	b.lru.Purge()
	return nil
}

// RemoveExpired drops expired entries and returns their number.
func (b *MemoryBackend) RemoveExpired(context.Context) (int, error) {
	return b.lru.RemoveExpired(), nil
}
