/*
Copyright © 2025 The vinylgw Authors.

Released under MIT license.
*/

package ratelimit

import (
	"context"
	"fmt"
	"time"
)

// Rate describes the frequency of requests.
type Rate struct {
	Count    int
	Duration time.Duration
}

// Validate checks that the rate may be used for limiting.
func (r Rate) Validate() error {
	if r.Count <= 0 {
		return fmt.Errorf("rate count must be positive, got %d", r.Count)
	}
	if r.Duration <= 0 {
		return fmt.Errorf("rate duration must be positive, got %s", r.Duration)
	}
	return nil
}

func (r Rate) String() string {
	return fmt.Sprintf("%d/%s", r.Count, r.Duration)
}

// Limiter interface defines the rate limiting contract.
type Limiter interface {
	Allow(ctx context.Context, key string) (allow bool, retryAfter time.Duration, err error)
}
