/*
Copyright © 2025 The vinylgw Authors.

Released under MIT license.
*/

package queue

import "time"

// Timer is a handle of a scheduled function.
type Timer interface {
	Stop() bool
}

// Clock is a source of the current time and delayed execution.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }
