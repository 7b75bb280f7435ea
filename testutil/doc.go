/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

// Package testutil contains assertion helpers for HTTP responses, Prometheus metrics,
// error channels and listening servers that are shared by tests of other packages.
package testutil

import "github.com/stretchr/testify/require"

func helper(t interface{}) {
	if h, ok := t.(interface{ Helper() }); ok {
		h.Helper()
	}
}

// RequireNoErrorInChannel asserts that the buffered channel holds no error (a nil value is ok).
func RequireNoErrorInChannel(t require.TestingT, c <-chan error, msgAndArgs ...interface{}) {
	helper(t)
	select {
	case err := <-c:
		require.NoError(t, err, msgAndArgs...)
	default:
	}
}
