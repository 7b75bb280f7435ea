/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package lrucache

import (
	"container/list"
	"errors"
	"sync"
	"time"
)

type entry[K comparable, V any] struct {
	key       K
	value     V
	expiresAt time.Time // zero means no expiration
}

func (e *entry[K, V]) expiredAt(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

// Options represents options for the cache.
type Options struct {
	// DefaultTTL is used by Add and GetOrAdd (0 means no expiration).
	// Expired entries are removed lazily: when they are looked up or when RemoveExpired is called.
	DefaultTTL time.Duration
	// Clock returns the current time, time.Now is used by default.
	Clock func() time.Time
}

// LRUCache is a thread-safe cache of a limited size. When it's full, the least recently used entry is evicted.
type LRUCache[K comparable, V any] struct {
	maxEntries int
	defaultTTL time.Duration
	now        func() time.Time
	metrics    MetricsCollector

	mu      sync.Mutex
	order   *list.List // front is the most recently used entry
	entries map[K]*list.Element
}

// New creates a new LRUCache. metrics may be nil.
func New[K comparable, V any](maxEntries int, metrics MetricsCollector) (*LRUCache[K, V], error) {
	return NewWithOpts[K, V](maxEntries, metrics, Options{})
}

// NewWithOpts creates a new LRUCache with options. metrics may be nil.
func NewWithOpts[K comparable, V any](maxEntries int, metrics MetricsCollector, opts Options) (*LRUCache[K, V], error) {
	switch {
	case maxEntries <= 0:
		return nil, errors.New("max entries must be positive")
	case opts.DefaultTTL < 0:
		return nil, errors.New("default TTL cannot be negative")
	}
	if metrics == nil {
		metrics = disabledMetrics{}
	}
	now := opts.Clock
	if now == nil {
		now = time.Now
	}
	return &LRUCache[K, V]{
		maxEntries: maxEntries,
		defaultTTL: opts.DefaultTTL,
		now:        now,
		metrics:    metrics,
		order:      list.New(),
		entries:    make(map[K]*list.Element, maxEntries),
	}, nil
}

// Get looks up the value by key. An expired entry is removed and reported as missing.
func (c *LRUCache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lookup(key)
}

// Add puts the value with the default TTL.
func (c *LRUCache[K, V]) Add(key K, value V) {
	c.AddWithTTL(key, value, c.defaultTTL)
}

// AddWithTTL puts the value with the TTL (0 means no expiration).
// The value and the expiration time of an existing entry are replaced.
func (c *LRUCache[K, V]) AddWithTTL(key K, value V, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.put(key, value, ttl)
}

// GetOrAdd returns the cached value if it's present. Otherwise, the value built by newValue is added with the default TTL.
// newValue is called under the lock and must not access the cache.
func (c *LRUCache[K, V]) GetOrAdd(key K, newValue func() V) (value V, exists bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if value, exists = c.lookup(key); exists {
		return value, true
	}
	value = newValue()
	c.put(key, value, c.defaultTTL)
	return value, false
}

// Remove deletes the entry and reports whether it was present.
func (c *LRUCache[K, V]) Remove(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	elem, ok := c.entries[key]
	if ok {
		c.unlink(elem)
		c.metrics.SetAmount(len(c.entries))
	}
	return ok
}

// RemoveExpired deletes all expired entries and returns their number.
func (c *LRUCache[K, V]) RemoveExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	n := 0
	for elem := c.order.Back(); elem != nil; {
		prev := elem.Prev()
		if elem.Value.(*entry[K, V]).expiredAt(now) {
			c.unlink(elem)
			n++
		}
		elem = prev
	}
	c.metrics.AddRemovals(RemovalReasonExpired, n)
	c.metrics.SetAmount(len(c.entries))
	return n
}

// Purge deletes all entries. They are not counted as removals in metrics.
func (c *LRUCache[K, V]) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[K]*list.Element, c.maxEntries)
	c.order.Init()
	c.metrics.SetAmount(0)
}

// Len returns the number of entries, expired ones that are not removed yet included.
func (c *LRUCache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *LRUCache[K, V]) lookup(key K) (value V, ok bool) {
	elem, found := c.entries[key]
	if !found {
		c.metrics.IncMisses()
		return value, false
	}
	e := elem.Value.(*entry[K, V])
	if e.expiredAt(c.now()) {
		c.unlink(elem)
		c.metrics.AddRemovals(RemovalReasonExpired, 1)
		c.metrics.SetAmount(len(c.entries))
		c.metrics.IncMisses()
		return value, false
	}
	c.order.MoveToFront(elem)
	c.metrics.IncHits()
	return e.value, true
}

func (c *LRUCache[K, V]) put(key K, value V, ttl time.Duration) {
	e := &entry[K, V]{key: key, value: value}
	if ttl > 0 {
		e.expiresAt = c.now().Add(ttl)
	}
	if elem, ok := c.entries[key]; ok {
		elem.Value = e
		c.order.MoveToFront(elem)
		return
	}
	c.entries[key] = c.order.PushFront(e)
	if len(c.entries) > c.maxEntries {
		c.unlink(c.order.Back())
		c.metrics.AddRemovals(RemovalReasonEvicted, 1)
	}
	c.metrics.SetAmount(len(c.entries))
}

func (c *LRUCache[K, V]) unlink(elem *list.Element) {
	c.order.Remove(elem)
	delete(c.entries, elem.Value.(*entry[K, V]).key)
}
