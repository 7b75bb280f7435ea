/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package lrucache

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time { return c.now }

func TestLRUCache(t *testing.T) {
	tests := []struct {
		name          string
		maxEntries    int
		fn            func(t *testing.T, cache *LRUCache[string, string], clock *testClock)
		wantAmount    int
		wantHits      int
		wantMisses    int
		wantEvictions int
		wantExpired   int
	}{
		{
			name:       "get not existing key",
			maxEntries: 10,
			fn: func(t *testing.T, cache *LRUCache[string, string], _ *testClock) {
				_, found := cache.Get("release:1")
				require.False(t, found)
			},
			wantMisses: 1,
		},
		{
			name:       "add and get",
			maxEntries: 10,
			fn: func(t *testing.T, cache *LRUCache[string, string], _ *testClock) {
				cache.Add("release:1", "Kind of Blue")
				cache.Add("release:2", "Blue Train")
				val, found := cache.Get("release:1")
				require.True(t, found)
				require.Equal(t, "Kind of Blue", val)
			},
			wantAmount: 2,
			wantHits:   1,
		},
		{
			name:       "least recently used entry is evicted",
			maxEntries: 2,
			fn: func(t *testing.T, cache *LRUCache[string, string], _ *testClock) {
				cache.Add("a", "1")
				cache.Add("b", "2")
				_, found := cache.Get("a")
				require.True(t, found)
				cache.Add("c", "3")
				_, found = cache.Get("b")
				require.False(t, found)
				_, found = cache.Get("a")
				require.True(t, found)
			},
			wantAmount:    2,
			wantHits:      2,
			wantMisses:    1,
			wantEvictions: 1,
		},
		{
			name:       "expired entry is absent",
			maxEntries: 10,
			fn: func(t *testing.T, cache *LRUCache[string, string], clock *testClock) {
				cache.AddWithTTL("k", "v", 2*time.Second)
				val, found := cache.Get("k")
				require.True(t, found)
				require.Equal(t, "v", val)

				clock.now = clock.now.Add(2 * time.Second)
				_, found = cache.Get("k")
				require.False(t, found)
			},
			wantHits:    1,
			wantMisses:  1,
			wantExpired: 1,
		},
		{
			name:       "overwrite resets ttl",
			maxEntries: 10,
			fn: func(t *testing.T, cache *LRUCache[string, string], clock *testClock) {
				cache.AddWithTTL("k", "v1", time.Second)
				clock.now = clock.now.Add(900 * time.Millisecond)
				cache.AddWithTTL("k", "v2", time.Second)
				clock.now = clock.now.Add(900 * time.Millisecond)
				val, found := cache.Get("k")
				require.True(t, found)
				require.Equal(t, "v2", val)
			},
			wantAmount: 1,
			wantHits:   1,
		},
		{
			name:       "remove expired",
			maxEntries: 10,
			fn: func(t *testing.T, cache *LRUCache[string, string], clock *testClock) {
				cache.AddWithTTL("short", "1", time.Second)
				cache.AddWithTTL("long", "2", time.Hour)
				cache.Add("forever", "3")
				clock.now = clock.now.Add(time.Minute)
				require.Equal(t, 1, cache.RemoveExpired())
				require.Equal(t, 2, cache.Len())
			},
			wantAmount:  2,
			wantExpired: 1,
		},
		{
			name:       "get or add",
			maxEntries: 10,
			fn: func(t *testing.T, cache *LRUCache[string, string], _ *testClock) {
				val, exists := cache.GetOrAdd("k", func() string { return "first" })
				require.False(t, exists)
				require.Equal(t, "first", val)
				val, exists = cache.GetOrAdd("k", func() string { return "second" })
				require.True(t, exists)
				require.Equal(t, "first", val)
			},
			wantAmount: 1,
			wantHits:   1,
			wantMisses: 1,
		},
		{
			name:       "remove and purge",
			maxEntries: 10,
			fn: func(t *testing.T, cache *LRUCache[string, string], _ *testClock) {
				cache.Add("a", "1")
				cache.Add("b", "2")
				require.True(t, cache.Remove("a"))
				require.False(t, cache.Remove("a"))
				cache.Purge()
				require.Equal(t, 0, cache.Len())
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clock := &testClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
			metrics := NewPrometheusMetrics()
			cache, err := NewWithOpts[string, string](tt.maxEntries, metrics, Options{Clock: clock.Now})
			require.NoError(t, err)

			tt.fn(t, cache, clock)

			require.Equal(t, tt.wantAmount, int(testutil.ToFloat64(metrics.EntriesAmount)))
			require.Equal(t, tt.wantHits, int(testutil.ToFloat64(metrics.Lookups.WithLabelValues("hit"))))
			require.Equal(t, tt.wantMisses, int(testutil.ToFloat64(metrics.Lookups.WithLabelValues("miss"))))
			require.Equal(t, tt.wantEvictions, int(testutil.ToFloat64(metrics.Removals.WithLabelValues("evicted"))))
			require.Equal(t, tt.wantExpired, int(testutil.ToFloat64(metrics.Removals.WithLabelValues("expired"))))
		})
	}
}

func TestNewWithInvalidOptions(t *testing.T) {
	_, err := New[string, int](0, nil)
	require.Error(t, err)

	_, err = NewWithOpts[string, int](1, nil, Options{DefaultTTL: -time.Second})
	require.Error(t, err)
}
