/*
Copyright © 2025 The vinylgw Authors.

Released under MIT license.
*/

package queue

import "github.com/prometheus/client_golang/prometheus"

// Outcomes of a single call execution.
const (
	outcomeSuccess     = "success"
	outcomeRateLimited = "rate_limited"
	outcomeFailure     = "failure"
)

// MetricsCollector collects metrics of the Orchestrator.
type MetricsCollector interface {
	SetQueueDepth(resource string, depth int)
	IncExecutions(resource, outcome string)
	IncRetries(resource string)
	IncDedupeHits(resource string)
	IncTerminalFailures(resource string)
	ObserveLimiterWait(resource string, seconds float64)
}

// PrometheusMetricsOpts represents options for PrometheusMetrics.
type PrometheusMetricsOpts struct {
	// Namespace is a namespace for metrics. It will be prepended to all metric names.
	Namespace string

	// ConstLabels is a set of labels that will be applied to all metrics.
	ConstLabels prometheus.Labels
}

// PrometheusMetrics is a Prometheus implementation of MetricsCollector.
type PrometheusMetrics struct {
	QueueDepth       *prometheus.GaugeVec
	Executions       *prometheus.CounterVec
	Retries          *prometheus.CounterVec
	DedupeHits       *prometheus.CounterVec
	TerminalFailures *prometheus.CounterVec
	LimiterWait      *prometheus.HistogramVec
}

// NewPrometheusMetrics creates a new instance of PrometheusMetrics with default options.
func NewPrometheusMetrics() *PrometheusMetrics {
	return NewPrometheusMetricsWithOpts(PrometheusMetricsOpts{})
}

// NewPrometheusMetricsWithOpts creates a new instance of PrometheusMetrics with the provided options.
func NewPrometheusMetricsWithOpts(opts PrometheusMetricsOpts) *PrometheusMetrics {
	return &PrometheusMetrics{
		QueueDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace:   opts.Namespace,
			Name:        "upstream_queue_depth",
			Help:        "Number of calls waiting in the queue of the upstream resource.",
			ConstLabels: opts.ConstLabels,
		}, []string{"resource"}),
		Executions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   opts.Namespace,
			Name:        "upstream_calls_total",
			Help:        "Number of executed upstream calls.",
			ConstLabels: opts.ConstLabels,
		}, []string{"resource", "outcome"}),
		Retries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   opts.Namespace,
			Name:        "upstream_call_retries_total",
			Help:        "Number of re-queued rate-limited upstream calls.",
			ConstLabels: opts.ConstLabels,
		}, []string{"resource"}),
		DedupeHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   opts.Namespace,
			Name:        "upstream_call_dedupe_hits_total",
			Help:        "Number of submissions attached to an already in-flight call.",
			ConstLabels: opts.ConstLabels,
		}, []string{"resource"}),
		TerminalFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   opts.Namespace,
			Name:        "upstream_call_failures_total",
			Help:        "Number of upstream calls settled with an error.",
			ConstLabels: opts.ConstLabels,
		}, []string{"resource"}),
		LimiterWait: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   opts.Namespace,
			Name:        "upstream_limiter_wait_seconds",
			Help:        "Time spent waiting for a free rate limit slot.",
			Buckets:     []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
			ConstLabels: opts.ConstLabels,
		}, []string{"resource"}),
	}
}

// MustRegister does registration of metrics collector in Prometheus and panics if any error occurs.
func (pm *PrometheusMetrics) MustRegister() {
	prometheus.MustRegister(pm.QueueDepth, pm.Executions, pm.Retries, pm.DedupeHits, pm.TerminalFailures, pm.LimiterWait)
}

// Unregister cancels registration of metrics collector in Prometheus.
func (pm *PrometheusMetrics) Unregister() {
	prometheus.Unregister(pm.QueueDepth)
	prometheus.Unregister(pm.Executions)
	prometheus.Unregister(pm.Retries)
	prometheus.Unregister(pm.DedupeHits)
	prometheus.Unregister(pm.TerminalFailures)
	prometheus.Unregister(pm.LimiterWait)
}

// SetQueueDepth implements MetricsCollector.
func (pm *PrometheusMetrics) SetQueueDepth(resource string, depth int) {
	pm.QueueDepth.WithLabelValues(resource).Set(float64(depth))
}

// IncExecutions implements MetricsCollector.
func (pm *PrometheusMetrics) IncExecutions(resource, outcome string) {
	pm.Executions.WithLabelValues(resource, outcome).Inc()
}

// IncRetries implements MetricsCollector.
func (pm *PrometheusMetrics) IncRetries(resource string) {
	pm.Retries.WithLabelValues(resource).Inc()
}

// IncDedupeHits implements MetricsCollector.
func (pm *PrometheusMetrics) IncDedupeHits(resource string) {
	pm.DedupeHits.WithLabelValues(resource).Inc()
}

// IncTerminalFailures implements MetricsCollector.
func (pm *PrometheusMetrics) IncTerminalFailures(resource string) {
	pm.TerminalFailures.WithLabelValues(resource).Inc()
}

// ObserveLimiterWait implements MetricsCollector.
func (pm *PrometheusMetrics) ObserveLimiterWait(resource string, seconds float64) {
	pm.LimiterWait.WithLabelValues(resource).Observe(seconds)
}

type disabledMetrics struct{}

func (disabledMetrics) SetQueueDepth(string, int)          {}
func (disabledMetrics) IncExecutions(string, string)       {}
func (disabledMetrics) IncRetries(string)                  {}
func (disabledMetrics) IncDedupeHits(string)               {}
func (disabledMetrics) IncTerminalFailures(string)         {}
func (disabledMetrics) ObserveLimiterWait(string, float64) {}
