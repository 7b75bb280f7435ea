/*
Copyright © 2025 The vinylgw Authors.

Released under MIT license.
*/

// Package upstream provides a client for third-party REST APIs that runs every call
// through the queue.Orchestrator, so calls are deduplicated, rate-limited and retried
// when upstream responds with 429 Too Many Requests.
//
// Client turns 429 responses into *queue.RateLimitError carrying the Retry-After hint,
// other non-2xx responses into *StatusError and network failures into *TransportError.
package upstream
