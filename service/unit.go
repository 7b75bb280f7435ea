/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package service

// Unit is a component of the service with its own lifecycle (HTTP server, background worker, etc.).
type Unit interface {
	// Start runs the unit. It may either return right after initialization or block for the unit's lifetime.
	// A fatal error is sent to fatalErr (at most once, before Start returns); nothing is sent on success.
	Start(fatalErr chan<- error)

	// Stop halts the unit. It may be called even if Start failed or was never called.
	Stop(gracefully bool) error
}

// MetricsRegisterer is implemented by units that own Prometheus metrics.
type MetricsRegisterer interface {
	MustRegisterMetrics()
	UnregisterMetrics()
}
