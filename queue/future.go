/*
Copyright © 2025 The vinylgw Authors.

Released under MIT license.
*/

package queue

import (
	"context"
	"sync"
)

// Future is a result of a submitted call that may be awaited by any number of callers.
// It's settled exactly once, all waiters observe the same value and error.
type Future struct {
	done chan struct{}
	once sync.Once
	val  any
	err  error
}

func newFuture() *Future {
	return &Future{done: make(chan struct{})}
}

// settle reports whether this call actually settled the future.
func (f *Future) settle(val any, err error) bool {
	settled := false
	f.once.Do(func() {
		f.val, f.err = val, err
		close(f.done)
		settled = true
	})
	return settled
}

// Done returns a channel that is closed when the future is settled.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Wait blocks until the future is settled or ctx is done.
// Abandoning the wait doesn't cancel the call.
func (f *Future) Wait(ctx context.Context) (any, error) {
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
