/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricsLabelMethod        = "method"
	metricsLabelRoutePattern  = "route_pattern"
	metricsLabelUserAgentType = "user_agent_type"
	metricsLabelStatusCode    = "status_code"
)

const (
	userAgentTypeBrowser    = "browser"
	userAgentTypeHTTPClient = "http-client"
)

// DefaultHTTPRequestDurationBuckets are the default buckets of the request duration histogram.
// Cache hits take milliseconds while a queued upstream call may take up to a minute.
var DefaultHTTPRequestDurationBuckets = []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120}

// HTTPRequestPrometheusMetricsOpts represents options for NewHTTPRequestPrometheusMetricsWithOpts.
type HTTPRequestPrometheusMetricsOpts struct {
	Namespace       string
	DurationBuckets []float64
	ConstLabels     prometheus.Labels
	// CustomLabelNames are labels of the duration histogram set by handlers via MetricsParams.
	// A label that a handler doesn't set gets an empty value.
	CustomLabelNames []string
}

// HTTPRequestPrometheusMetrics is a collector of metrics for incoming HTTP requests.
type HTTPRequestPrometheusMetrics struct {
	Durations *prometheus.HistogramVec
	InFlight  *prometheus.GaugeVec

	customLabelNames []string
}

// NewHTTPRequestPrometheusMetrics creates a new collector with default options.
func NewHTTPRequestPrometheusMetrics() *HTTPRequestPrometheusMetrics {
	return NewHTTPRequestPrometheusMetricsWithOpts(HTTPRequestPrometheusMetricsOpts{})
}

// NewHTTPRequestPrometheusMetricsWithOpts creates a new collector.
func NewHTTPRequestPrometheusMetricsWithOpts(opts HTTPRequestPrometheusMetricsOpts) *HTTPRequestPrometheusMetrics {
	buckets := opts.DurationBuckets
	if buckets == nil {
		buckets = DefaultHTTPRequestDurationBuckets
	}
	requestLabels := []string{metricsLabelMethod, metricsLabelRoutePattern, metricsLabelUserAgentType}
	durationLabels := append(append(append([]string(nil), requestLabels...), metricsLabelStatusCode), opts.CustomLabelNames...)

	return &HTTPRequestPrometheusMetrics{
		Durations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   opts.Namespace,
			Name:        "http_request_duration_seconds",
			Help:        "A histogram of the HTTP request durations.",
			Buckets:     buckets,
			ConstLabels: opts.ConstLabels,
		}, durationLabels),
		InFlight: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace:   opts.Namespace,
			Name:        "http_requests_in_flight",
			Help:        "Current number of HTTP requests being served.",
			ConstLabels: opts.ConstLabels,
		}, requestLabels),
		customLabelNames: append([]string(nil), opts.CustomLabelNames...),
	}
}

// MustRegister registers the metrics in the default Prometheus registry and panics on error.
func (pm *HTTPRequestPrometheusMetrics) MustRegister() {
	prometheus.MustRegister(pm.Durations, pm.InFlight)
}

// Unregister removes the metrics from the default Prometheus registry.
func (pm *HTTPRequestPrometheusMetrics) Unregister() {
	prometheus.Unregister(pm.Durations)
	prometheus.Unregister(pm.InFlight)
}

func (pm *HTTPRequestPrometheusMetrics) observeDuration(
	reqLabels prometheus.Labels, status int, mp *MetricsParams, elapsed time.Duration,
) {
	labels := make(prometheus.Labels, len(reqLabels)+1+len(pm.customLabelNames))
	for k, v := range reqLabels {
		labels[k] = v
	}
	labels[metricsLabelStatusCode] = strconv.Itoa(status)
	for _, name := range pm.customLabelNames {
		labels[name], _ = mp.Value(name)
	}
	pm.Durations.With(labels).Observe(elapsed.Seconds())
}

// UserAgentTypeGetterFunc returns the type of the client. The set of returned values must be finite.
type UserAgentTypeGetterFunc func(r *http.Request) string

// HTTPRequestMetricsOpts represents options for the HTTPRequestMetricsWithOpts middleware.
type HTTPRequestMetricsOpts struct {
	GetUserAgentType  UserAgentTypeGetterFunc
	ExcludedEndpoints []string
}

// HTTPRequestMetrics is a middleware that collects metrics for incoming HTTP requests.
func HTTPRequestMetrics(
	collector *HTTPRequestPrometheusMetrics, getRoutePattern RoutePatternGetterFunc,
) func(next http.Handler) http.Handler {
	return HTTPRequestMetricsWithOpts(collector, getRoutePattern, HTTPRequestMetricsOpts{})
}

// HTTPRequestMetricsWithOpts is the same as HTTPRequestMetrics but with options.
// The route pattern is resolved after the request is served, when the router has matched it.
func HTTPRequestMetricsWithOpts(
	collector *HTTPRequestPrometheusMetrics, getRoutePattern RoutePatternGetterFunc, opts HTTPRequestMetricsOpts,
) func(next http.Handler) http.Handler {
	if getRoutePattern == nil {
		panic("function for getting route pattern cannot be nil")
	}
	getUserAgentType := opts.GetUserAgentType
	if getUserAgentType == nil {
		getUserAgentType = userAgentType
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
			if isExcludedEndpoint(r, opts.ExcludedEndpoints) {
				next.ServeHTTP(rw, r)
				return
			}

			ctx, startTime := requestStartTime(r.Context())
			mp := &MetricsParams{}
			r = r.WithContext(NewContextWithMetricsParams(ctx, mp))

			reqLabels := prometheus.Labels{
				metricsLabelMethod:        r.Method,
				metricsLabelRoutePattern:  getRoutePattern(r),
				metricsLabelUserAgentType: getUserAgentType(r),
			}
			inFlight := collector.InFlight.With(reqLabels)
			inFlight.Inc()
			defer inFlight.Dec()

			wrw := wrapResponseWriter(rw, r.ProtoMajor)
			defer func() {
				if reqLabels[metricsLabelRoutePattern] == "" {
					reqLabels = prometheus.Labels{
						metricsLabelMethod:        r.Method,
						metricsLabelRoutePattern:  getRoutePattern(r),
						metricsLabelUserAgentType: reqLabels[metricsLabelUserAgentType],
					}
				}
				if p := recover(); p != nil {
					if p != http.ErrAbortHandler { //nolint:errorlint // sentinel panic value
						collector.observeDuration(reqLabels, http.StatusInternalServerError, mp, time.Since(startTime))
					}
					panic(p)
				}
				collector.observeDuration(reqLabels, responseStatus(wrw.Status()), mp, time.Since(startTime))
			}()

			next.ServeHTTP(wrw, r)
		})
	}
}

func userAgentType(r *http.Request) string {
	if strings.Contains(strings.ToLower(r.UserAgent()), "mozilla") {
		return userAgentTypeBrowser
	}
	return userAgentTypeHTTPClient
}
