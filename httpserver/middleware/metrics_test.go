/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/vinyldash/vinylgw/testutil"
)

func TestHTTPRequestMetrics(t *testing.T) {
	collector := NewHTTPRequestPrometheusMetricsWithOpts(HTTPRequestPrometheusMetricsOpts{
		CustomLabelNames: []string{"cache_status"},
	})
	const routePattern = "/releases/{id}"
	getRoutePattern := func(*http.Request) string { return routePattern }

	var inFlight float64
	handler := HTTPRequestMetricsWithOpts(collector, getRoutePattern, HTTPRequestMetricsOpts{
		ExcludedEndpoints: []string{"/metrics"},
	})(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		inFlight = promtestutil.ToFloat64(collector.InFlight.With(prometheus.Labels{
			metricsLabelMethod: r.Method, metricsLabelRoutePattern: routePattern, metricsLabelUserAgentType: userAgentTypeHTTPClient,
		}))
		switch r.URL.Query().Get("case") {
		case "hit":
			GetMetricsParamsFromContext(r.Context()).SetValue("cache_status", "hit")
		case "panic":
			panic("boom")
		}
		rw.WriteHeader(http.StatusOK)
	}))

	serve := func(target, userAgent string) {
		req := httptest.NewRequest(http.MethodGet, target, nil)
		req.Header.Set("User-Agent", userAgent)
		handler.ServeHTTP(httptest.NewRecorder(), req)
	}
	durations := func(userAgentType, status, cacheStatus string) prometheus.Histogram {
		return collector.Durations.With(prometheus.Labels{
			metricsLabelMethod:        http.MethodGet,
			metricsLabelRoutePattern:  routePattern,
			metricsLabelUserAgentType: userAgentType,
			metricsLabelStatusCode:    status,
			"cache_status":            cacheStatus,
		}).(prometheus.Histogram)
	}

	serve("/releases/1?case=hit", "vinylgw-cli/1.0")
	require.Equal(t, float64(1), inFlight)
	serve("/releases/2", "vinylgw-cli/1.0")
	serve("/releases/3", "Mozilla/5.0 (X11; Linux x86_64)")
	require.Panics(t, func() { serve("/releases/4?case=panic", "vinylgw-cli/1.0") })
	serve("/metrics", "Prometheus/2.51")

	testutil.AssertSamplesCountInHistogram(t, durations(userAgentTypeHTTPClient, "200", "hit"), 1)
	testutil.AssertSamplesCountInHistogram(t, durations(userAgentTypeHTTPClient, "200", ""), 1)
	testutil.AssertSamplesCountInHistogram(t, durations(userAgentTypeBrowser, "200", ""), 1)
	testutil.AssertSamplesCountInHistogram(t, durations(userAgentTypeHTTPClient, "500", ""), 1)
	require.Equal(t, 4, promtestutil.CollectAndCount(collector.Durations))
	require.Equal(t, float64(0), promtestutil.ToFloat64(collector.InFlight.With(prometheus.Labels{
		metricsLabelMethod: http.MethodGet, metricsLabelRoutePattern: routePattern, metricsLabelUserAgentType: userAgentTypeHTTPClient,
	})))
}

func TestHTTPRequestMetrics_NilRoutePatternGetter(t *testing.T) {
	require.Panics(t, func() {
		HTTPRequestMetrics(NewHTTPRequestPrometheusMetrics(), nil)
	})
}
