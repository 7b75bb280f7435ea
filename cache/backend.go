/*
Copyright © 2025 The vinylgw Authors.

Released under MIT license.
*/

package cache

import (
	"context"
	"time"
)

// Backend is a storage of serialized cache entries. Unlike Store, its methods may fail.
type Backend interface {
	// Get returns the value of a non-expired entry. A missing or expired entry is not an error.
	Get(ctx context.Context, key string) (value string, found bool, err error)

	// Set creates or overwrites the entry. The entry becomes absent after ttl (0 means no expiration).
	Set(ctx context.Context, key, value string, ttl time.Duration) error

	// Ping checks that the backend is reachable.
	Ping(ctx context.Context) error

	Close() error
}

// NopBackend is a Backend that stores nothing. It's used when caching is disabled.
type NopBackend struct{}

var _ Backend = NopBackend{}

// Get implements Backend.
func (NopBackend) Get(context.Context, string) (string, bool, error) { return "", false, nil }

// Set implements Backend.
func (NopBackend) Set(context.Context, string, string, time.Duration) error { return nil }

// Ping implements Backend.
func (NopBackend) Ping(context.Context) error { return nil }

// Close implements Backend.
func (NopBackend) Close() error { return nil }
