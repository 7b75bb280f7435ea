/*
Copyright © 2025 The vinylgw Authors.

Released under MIT license.
*/

package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/require"
)

func TestDoublingBackoffPolicy(t *testing.T) {
	tests := []struct {
		name   string
		policy DoublingBackoffPolicy
		want   []time.Duration
	}{
		{
			name:   "capped by max interval",
			policy: NewDoublingBackoffPolicy(time.Second, time.Minute, 8),
			want: []time.Duration{
				time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second,
				16 * time.Second, 32 * time.Second, time.Minute, time.Minute,
			},
		},
		{
			name:   "limited retries",
			policy: NewDoublingBackoffPolicy(time.Second, time.Minute, 5),
			want:   []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second, 16 * time.Second},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := tt.policy.NewBackOff()
			for i, want := range tt.want {
				require.Equal(t, want, b.NextBackOff(), "retry %d", i)
			}
			require.Equal(t, backoff.Stop, b.NextBackOff())

			b.Reset()
			require.Equal(t, tt.want[0], b.NextBackOff(), "reset must restart the sequence")
		})
	}
}

func TestDoWithRetry(t *testing.T) {
	errTemporary := errors.New("temporary")
	errPersistent := errors.New("persistent")
	isRetryable := func(err error) bool { return errors.Is(err, errTemporary) }

	t.Run("retries until success", func(t *testing.T) {
		calls := 0
		var notified []time.Duration
		err := DoWithRetry(context.Background(), NewConstantBackoffPolicy(time.Millisecond, 5), isRetryable,
			func(_ error, d time.Duration) { notified = append(notified, d) },
			func(ctx context.Context) error {
				calls++
				if calls < 3 {
					return errTemporary
				}
				return nil
			})
		require.NoError(t, err)
		require.Equal(t, 3, calls)
		require.Equal(t, []time.Duration{time.Millisecond, time.Millisecond}, notified)
	})

	t.Run("persistent error is not retried", func(t *testing.T) {
		calls := 0
		err := DoWithRetry(context.Background(), NewConstantBackoffPolicy(time.Millisecond, 5), isRetryable, nil,
			func(ctx context.Context) error {
				calls++
				return errPersistent
			})
		require.ErrorIs(t, err, errPersistent)
		require.Equal(t, 1, calls)
	})

	t.Run("gives up after max attempts", func(t *testing.T) {
		calls := 0
		err := DoWithRetry(context.Background(), NewConstantBackoffPolicy(time.Millisecond, 2), nil, nil,
			func(ctx context.Context) error {
				calls++
				return errTemporary
			})
		require.ErrorIs(t, err, errTemporary)
		require.Equal(t, 3, calls)
	})
}
