/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package restapi

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
)

var responseErrors atomic.Pointer[prometheus.CounterVec]

// MustInitAndRegisterMetrics creates the response errors counter and registers it in the default registry.
// Errors are not counted until it's called.
func MustInitAndRegisterMetrics(namespace string) {
	counter := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "restapi",
		Name:      "response_errors",
		Help:      "The total number of REST API errors that were respond.",
	}, []string{"domain", "code"})
	prometheus.MustRegister(counter)
	responseErrors.Store(counter)
}

// UnregisterMetrics unregisters the response errors counter.
func UnregisterMetrics() {
	if counter := responseErrors.Swap(nil); counter != nil {
		prometheus.Unregister(counter)
	}
}

func countResponseError(err *Error) {
	if counter := responseErrors.Load(); counter != nil {
		counter.WithLabelValues(err.Domain, err.Code).Inc()
	}
}
