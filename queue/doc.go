/*
Copyright © 2025 The vinylgw Authors.

Released under MIT license.
*/

// Package queue provides an orchestrator of outbound calls to rate-limited upstream resources.
//
// Each resource has its own FIFO queue drained in fixed-size batches. Before every call the
// orchestrator consults a sliding-window limiter and waits for a free slot if needed.
// Calls that fail with *RateLimitError are re-queued at the front of the queue after a backoff delay
// (the server-provided Retry-After hint wins over the exponential policy).
// Calls submitted with the same dedupe key while one is in flight share a single execution and its outcome.
package queue
