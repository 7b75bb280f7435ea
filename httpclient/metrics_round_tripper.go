/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package httpclient

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// RequestObservation describes a finished outgoing request.
type RequestObservation struct {
	// RequestType is a type of request, e.g. the name of upstream resource.
	RequestType string
	Host        string
	Method      string
	// StatusCode is 0 if no response was received.
	StatusCode int
	Duration   time.Duration
}

// MetricsCollector collects metrics of outgoing requests.
type MetricsCollector interface {
	ObserveRequest(obs RequestObservation)
}

// PrometheusMetricsCollector collects metrics of outgoing requests in Prometheus.
type PrometheusMetricsCollector struct {
	Durations *prometheus.HistogramVec
	// RateLimited counts responses with 429 (Too Many Requests) status.
	RateLimited *prometheus.CounterVec
}

var _ MetricsCollector = (*PrometheusMetricsCollector)(nil)

// NewPrometheusMetricsCollector creates a new PrometheusMetricsCollector.
func NewPrometheusMetricsCollector(namespace string) *PrometheusMetricsCollector {
	return &PrometheusMetricsCollector{
		Durations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_client_request_duration_seconds",
			Help:      "A histogram of the outgoing HTTP requests durations.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"type", "host", "method", "status"}),
		RateLimited: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_client_rate_limited_total",
			Help:      "A counter of the outgoing HTTP requests rejected by the upstream with 429 status.",
		}, []string{"type", "host"}),
	}
}

// MustRegister registers the metrics in the Prometheus default registry.
func (p *PrometheusMetricsCollector) MustRegister() {
	prometheus.MustRegister(p.Durations, p.RateLimited)
}

// Unregister unregisters the metrics.
func (p *PrometheusMetricsCollector) Unregister() {
	prometheus.Unregister(p.Durations)
	prometheus.Unregister(p.RateLimited)
}

// ObserveRequest implements MetricsCollector.
func (p *PrometheusMetricsCollector) ObserveRequest(obs RequestObservation) {
	status := "error"
	if obs.StatusCode != 0 {
		status = strconv.Itoa(obs.StatusCode)
	}
	p.Durations.WithLabelValues(obs.RequestType, obs.Host, obs.Method, status).Observe(obs.Duration.Seconds())
	if obs.StatusCode == http.StatusTooManyRequests {
		p.RateLimited.WithLabelValues(obs.RequestType, obs.Host).Inc()
	}
}

// MetricsRoundTripper reports every request to the MetricsCollector.
type MetricsRoundTripper struct {
	Delegate    http.RoundTripper
	RequestType string
	Collector   MetricsCollector
}

// NewMetricsRoundTripper creates a new MetricsRoundTripper.
func NewMetricsRoundTripper(delegate http.RoundTripper, requestType string, collector MetricsCollector) http.RoundTripper {
	return &MetricsRoundTripper{Delegate: delegate, RequestType: requestType, Collector: collector}
}

// RoundTrip implements http.RoundTripper.
func (rt *MetricsRoundTripper) RoundTrip(r *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := rt.Delegate.RoundTrip(r)
	if rt.Collector == nil {
		return resp, err
	}
	obs := RequestObservation{
		RequestType: requestTypeOrDefault(r.Context(), rt.RequestType),
		Host:        r.URL.Host,
		Method:      r.Method,
		Duration:    time.Since(start),
	}
	if err == nil {
		obs.StatusCode = resp.StatusCode
	}
	rt.Collector.ObserveRequest(obs)
	return resp, err
}
