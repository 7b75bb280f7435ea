/*
Copyright © 2025 The vinylgw Authors.

Released under MIT license.
*/

package queue

import (
	"errors"
	"fmt"
	"time"
)

// ErrClosed is returned for calls submitted to (or still pending in) a closed Orchestrator.
var ErrClosed = errors.New("orchestrator is closed")

// RateLimitError signals that upstream rejected a call because of rate limiting.
// It's the only kind of error the Orchestrator retries.
type RateLimitError struct {
	Resource   string
	StatusCode int
	// RetryAfter is the server-provided delay before the next attempt. It's meaningful only if HasRetryAfter is true.
	RetryAfter    time.Duration
	HasRetryAfter bool
}

func (e *RateLimitError) Error() string {
	if e.HasRetryAfter {
		return fmt.Sprintf("%s: rate limited (status %d), retry after %s", e.Resource, e.StatusCode, e.RetryAfter)
	}
	return fmt.Sprintf("%s: rate limited (status %d)", e.Resource, e.StatusCode)
}

// AsRateLimitError returns *RateLimitError from the error chain if there is one.
func AsRateLimitError(err error) (*RateLimitError, bool) {
	var rlErr *RateLimitError
	if errors.As(err, &rlErr) {
		return rlErr, true
	}
	return nil, false
}
