/*
Copyright © 2025 The vinylgw Authors.

Released under MIT license.
*/

// Package cache provides a best-effort response cache with per-entry TTL.
//
// Store never returns errors to its callers: a failure of the underlying Backend
// (an unreachable Redis server, a broken SQLite file, a value that can't be serialized)
// is logged as a warning and turned into a cache miss or a no-op.
package cache
