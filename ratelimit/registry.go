/*
Copyright © 2025 The vinylgw Authors.

Released under MIT license.
*/

package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"
)

// ErrUnknownResource is returned when a resource is used without being registered first.
var ErrUnknownResource = errors.New("unknown rate limit resource")

// Decision is a result of the admission check.
type Decision struct {
	Allowed bool
	// Wait is the time until the oldest recorded call leaves the window. It's zero when Allowed is true.
	Wait time.Duration
}

type slidingLog struct {
	rate       Rate
	timestamps []time.Time
}

// prune drops timestamps that are not newer than now - window. Timestamps are sorted, so it's a prefix cut.
func (l *slidingLog) prune(now time.Time) {
	threshold := now.Add(-l.rate.Duration)
	i := 0
	for i < len(l.timestamps) && !l.timestamps[i].After(threshold) {
		i++
	}
	if i > 0 {
		l.timestamps = append(l.timestamps[:0], l.timestamps[i:]...)
	}
}

func (l *slidingLog) check(now time.Time) Decision {
	l.prune(now)
	if len(l.timestamps) < l.rate.Count {
		return Decision{Allowed: true}
	}
	wait := l.timestamps[0].Add(l.rate.Duration).Sub(now)
	if wait < 0 {
		wait = 0
	}
	return Decision{Wait: wait}
}

func (l *slidingLog) record(now time.Time) {
	if n := len(l.timestamps); n > 0 && now.Before(l.timestamps[n-1]) {
		now = l.timestamps[n-1] // Keep the log non-decreasing even if the clock goes backwards.
	}
	l.timestamps = append(l.timestamps, now)
	l.prune(now)
}

// RegistryOpts represents options for Registry.
type RegistryOpts struct {
	// Clock returns the current time. time.Now is used by default.
	Clock func() time.Time
}

// Registry is a set of independent sliding-log limiters, one per named resource.
// It's safe for concurrent use.
type Registry struct {
	mu    sync.Mutex
	logs  map[string]*slidingLog
	clock func() time.Time
}

var _ Limiter = (*Registry)(nil)

// NewRegistry creates a new Registry and registers the given resources.
func NewRegistry(resources map[string]Rate) (*Registry, error) {
	return NewRegistryWithOpts(resources, RegistryOpts{})
}

// NewRegistryWithOpts is a more configurable version of NewRegistry.
func NewRegistryWithOpts(resources map[string]Rate, opts RegistryOpts) (*Registry, error) {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	r := &Registry{logs: make(map[string]*slidingLog, len(resources)), clock: opts.Clock}
	for name, rate := range resources {
		if err := r.Register(name, rate); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds a new resource. Registering the same name twice is an error.
func (r *Registry) Register(name string, rate Rate) error {
	if name == "" {
		return fmt.Errorf("resource name must not be empty")
	}
	if err := rate.Validate(); err != nil {
		return fmt.Errorf("resource %q: %w", name, err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.logs[name]; ok {
		return fmt.Errorf("resource %q is already registered", name)
	}
	r.logs[name] = &slidingLog{rate: rate, timestamps: make([]time.Time, 0, rate.Count)}
	return nil
}

// Has reports whether the resource is registered.
func (r *Registry) Has(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.logs[name]
	return ok
}

// Resources returns sorted names of all registered resources.
func (r *Registry) Resources() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.logs))
	for name := range r.logs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Check tells whether one more call to the resource fits into its window right now.
// It doesn't record anything.
func (r *Registry) Check(name string) (Decision, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.logs[name]
	if !ok {
		return Decision{}, fmt.Errorf("check %q: %w", name, ErrUnknownResource)
	}
	return l.check(r.clock()), nil
}

// Record registers a call to the resource made right now.
func (r *Registry) Record(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.logs[name]
	if !ok {
		return fmt.Errorf("record %q: %w", name, ErrUnknownResource)
	}
	l.record(r.clock())
	return nil
}

// Allow checks and records the call in one step.
func (r *Registry) Allow(_ context.Context, name string) (allow bool, retryAfter time.Duration, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.logs[name]
	if !ok {
		return false, 0, fmt.Errorf("allow %q: %w", name, ErrUnknownResource)
	}
	now := r.clock()
	d := l.check(now)
	if !d.Allowed {
		return false, d.Wait, nil
	}
	l.record(now)
	return true, 0, nil
}

// Usage returns the number of calls inside the current window of the resource.
func (r *Registry) Usage(name string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.logs[name]
	if !ok {
		return 0, fmt.Errorf("usage %q: %w", name, ErrUnknownResource)
	}
	l.prune(r.clock())
	return len(l.timestamps), nil
}

// Rate returns the rate the resource was registered with.
func (r *Registry) Rate(name string) (Rate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.logs[name]
	if !ok {
		return Rate{}, fmt.Errorf("rate %q: %w", name, ErrUnknownResource)
	}
	return l.rate, nil
}
