/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

// Package retry provides backoff policies and a helper for retrying operations.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// IsRetryable tells whether the operation failed with the error may be retried.
type IsRetryable func(error) bool

// RetryableFunc is an operation that may be retried.
type RetryableFunc func(ctx context.Context) error

// Policy creates backoffs, a new one for every retried operation.
type Policy interface {
	NewBackOff() backoff.BackOff
}

// PolicyFunc is an adapter to use an ordinary function as Policy.
type PolicyFunc func() backoff.BackOff

// NewBackOff implements Policy.
func (f PolicyFunc) NewBackOff() backoff.BackOff {
	return f()
}

// DoWithRetry calls fn until it succeeds, fails with a non-retryable error,
// the policy gives up or ctx is done. isRetryable and notify may be nil,
// in this case all errors are retried. notify is called before every retry.
func DoWithRetry(ctx context.Context, p Policy, isRetryable IsRetryable, notify backoff.Notify, fn RetryableFunc) error {
	b := backoff.WithContext(p.NewBackOff(), ctx)
	return backoff.RetryNotify(func() error {
		err := fn(b.Context())
		if err != nil && isRetryable != nil && !isRetryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}, b, notify)
}

func limitRetries(b backoff.BackOff, maxRetries int) backoff.BackOff {
	if maxRetries > 0 {
		b = backoff.WithMaxRetries(b, uint64(maxRetries))
	}
	b.Reset()
	return b
}

// DoublingBackoffPolicy produces delays BaseInterval*2^n capped by MaxInterval, without jitter,
// where n is the number of already made retries. The n-th NextBackOff call of its backoff returns the n-th delay.
type DoublingBackoffPolicy struct {
	BaseInterval time.Duration
	MaxInterval  time.Duration
	// MaxAttempts limits the number of retries (0 means no limit).
	MaxAttempts int
}

// NewDoublingBackoffPolicy creates a new DoublingBackoffPolicy.
func NewDoublingBackoffPolicy(baseInterval, maxInterval time.Duration, maxRetryAttempts int) DoublingBackoffPolicy {
	return DoublingBackoffPolicy{BaseInterval: baseInterval, MaxInterval: maxInterval, MaxAttempts: maxRetryAttempts}
}

// NewBackOff implements Policy.
func (p DoublingBackoffPolicy) NewBackOff() backoff.BackOff {
	eb := backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(p.BaseInterval),
		backoff.WithMaxInterval(p.MaxInterval),
		backoff.WithMultiplier(2),
		backoff.WithRandomizationFactor(0),
		backoff.WithMaxElapsedTime(0),
	)
	return limitRetries(eb, p.MaxAttempts)
}

// ConstantBackoffPolicy retries with the same delay.
type ConstantBackoffPolicy struct {
	interval    time.Duration
	maxAttempts int
}

// NewConstantBackoffPolicy creates a new ConstantBackoffPolicy. maxRetryAttempts = 0 means no limit.
func NewConstantBackoffPolicy(interval time.Duration, maxRetryAttempts int) ConstantBackoffPolicy {
	return ConstantBackoffPolicy{interval: interval, maxAttempts: maxRetryAttempts}
}

// NewBackOff implements Policy.
func (p ConstantBackoffPolicy) NewBackOff() backoff.BackOff {
	return limitRetries(backoff.NewConstantBackOff(p.interval), p.maxAttempts)
}
