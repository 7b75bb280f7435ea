/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package lrucache

import "github.com/prometheus/client_golang/prometheus"

// RemovalReason tells why an entry was dropped from the cache.
type RemovalReason string

// Removal reasons.
const (
	// RemovalReasonEvicted is used when the least recently used entry is dropped to free space.
	RemovalReasonEvicted RemovalReason = "evicted"
	// RemovalReasonExpired is used when the TTL of the entry is over.
	RemovalReasonExpired RemovalReason = "expired"
)

// MetricsCollector collects metrics showing how effectively the cache is used.
type MetricsCollector interface {
	SetAmount(amount int)
	IncHits()
	IncMisses()
	AddRemovals(reason RemovalReason, n int)
}

// PrometheusMetricsOpts represents options for PrometheusMetrics.
type PrometheusMetricsOpts struct {
	Namespace   string
	ConstLabels prometheus.Labels
}

// PrometheusMetrics collects the cache metrics in Prometheus.
type PrometheusMetrics struct {
	EntriesAmount prometheus.Gauge
	// Lookups are labeled with "result" (hit or miss).
	Lookups *prometheus.CounterVec
	// Removals are labeled with "reason" (see RemovalReason). Explicitly removed entries are not counted.
	Removals *prometheus.CounterVec
}

var _ MetricsCollector = (*PrometheusMetrics)(nil)

// NewPrometheusMetrics creates a new PrometheusMetrics with default options.
func NewPrometheusMetrics() *PrometheusMetrics {
	return NewPrometheusMetricsWithOpts(PrometheusMetricsOpts{})
}

// NewPrometheusMetricsWithOpts creates a new PrometheusMetrics.
func NewPrometheusMetricsWithOpts(opts PrometheusMetricsOpts) *PrometheusMetrics {
	return &PrometheusMetrics{
		EntriesAmount: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   opts.Namespace,
			Name:        "cache_entries_amount",
			Help:        "Number of entries in the in-memory cache (expired but not yet removed ones included).",
			ConstLabels: opts.ConstLabels,
		}),
		Lookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   opts.Namespace,
			Name:        "cache_lookups_total",
			Help:        "Number of lookups in the in-memory cache by result.",
			ConstLabels: opts.ConstLabels,
		}, []string{"result"}),
		Removals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   opts.Namespace,
			Name:        "cache_removals_total",
			Help:        "Number of entries dropped from the in-memory cache by reason.",
			ConstLabels: opts.ConstLabels,
		}, []string{"reason"}),
	}
}

// MustRegister registers the metrics in the Prometheus default registry.
func (pm *PrometheusMetrics) MustRegister() {
	prometheus.MustRegister(pm.EntriesAmount, pm.Lookups, pm.Removals)
}

// Unregister unregisters the metrics.
func (pm *PrometheusMetrics) Unregister() {
	for _, c := range []prometheus.Collector{pm.EntriesAmount, pm.Lookups, pm.Removals} {
		prometheus.Unregister(c)
	}
}

// SetAmount implements MetricsCollector.
func (pm *PrometheusMetrics) SetAmount(amount int) {
	pm.EntriesAmount.Set(float64(amount))
}

// IncHits implements MetricsCollector.
func (pm *PrometheusMetrics) IncHits() {
	pm.Lookups.WithLabelValues("hit").Inc()
}

// IncMisses implements MetricsCollector.
func (pm *PrometheusMetrics) IncMisses() {
	pm.Lookups.WithLabelValues("miss").Inc()
}

// AddRemovals implements MetricsCollector.
func (pm *PrometheusMetrics) AddRemovals(reason RemovalReason, n int) {
	if n > 0 {
		pm.Removals.WithLabelValues(string(reason)).Add(float64(n))
	}
}

type disabledMetrics struct{}

func (disabledMetrics) SetAmount(int)                  {}
func (disabledMetrics) IncHits()                       {}
func (disabledMetrics) IncMisses()                     {}
func (disabledMetrics) AddRemovals(RemovalReason, int) {}
