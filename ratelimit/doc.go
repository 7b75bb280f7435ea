/*
Copyright © 2025 The vinylgw Authors.

Released under MIT license.
*/

// Package ratelimit provides admission control for outgoing and incoming requests.
//
// Registry keeps an exact sliding log of call timestamps per named upstream resource.
// Each resource has its own window and evolves independently of the others.
// Resources must be registered before use, a check or record for an unknown name fails with ErrUnknownResource.
//
// SlidingWindowLimiter is an approximate keyed limiter that is used for throttling
// incoming HTTP requests per client.
package ratelimit
