/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package httpserver

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vinyldash/vinylgw/httpserver/middleware"
	"github.com/vinyldash/vinylgw/log"
	"github.com/vinyldash/vinylgw/ratelimit"
	"github.com/vinyldash/vinylgw/restapi"
)

const (
	metricsPath     = "/metrics"
	healthCheckPath = "/healthz"
)

// systemEndpoints are neither measured nor rate limited.
var systemEndpoints = []string{metricsPath, healthCheckPath}

// newRouter builds the chi.Router with the middleware chain, the system endpoints and the versioned API routes.
// Middlewares order: start time, request ID, logging, recovery, metrics, rate limit, custom root middlewares.
func newRouter(
	cfg *Config, logger log.FieldLogger, opts *Opts, promMetrics *middleware.HTTPRequestPrometheusMetrics,
) (chi.Router, error) {
	router := chi.NewRouter()

	router.Use(
		requestStartTime,
		middleware.RequestID(),
		middleware.LoggingWithOpts(logger, loggingOpts(&cfg.Log)),
		middleware.Recovery(opts.ErrorDomain),
	)

	getRoutePattern := opts.HTTPRequestMetrics.GetRoutePattern
	if getRoutePattern == nil {
		getRoutePattern = GetChiRoutePattern
	}
	router.Use(middleware.HTTPRequestMetricsWithOpts(promMetrics, getRoutePattern, middleware.HTTPRequestMetricsOpts{
		GetUserAgentType:  opts.HTTPRequestMetrics.GetUserAgentType,
		ExcludedEndpoints: systemEndpoints,
	}))

	if cfg.RateLimit.Enabled {
		limiter, err := ratelimit.NewSlidingWindowLimiter(ratelimit.Rate{
			Count:    cfg.RateLimit.MaxRequests,
			Duration: time.Duration(cfg.RateLimit.Window),
		}, cfg.RateLimit.MaxKeys)
		if err != nil {
			return nil, fmt.Errorf("create rate limiter: %w", err)
		}
		router.Use(middleware.RateLimit(limiter, opts.ErrorDomain, middleware.RateLimitOpts{
			ExcludedEndpoints: systemEndpoints,
		}))
	}

	router.Use(opts.RootMiddlewares...)

	metricsHandler := opts.MetricsHandler
	if metricsHandler == nil {
		metricsHandler = promhttp.Handler()
	}
	router.Method(http.MethodGet, metricsPath, metricsHandler)
	router.Method(http.MethodGet, healthCheckPath, NewHealthCheckHandler(opts.HealthCheck))

	router.Route("/api/"+opts.ServiceNameInURL, func(r chi.Router) {
		for ver, routes := range opts.APIRoutes {
			r.Route(fmt.Sprintf("/v%d", ver), routes)
		}
	})

	router.NotFound(func(rw http.ResponseWriter, r *http.Request) {
		restapi.RespondError(rw, http.StatusNotFound,
			restapi.NewError(opts.ErrorDomain, restapi.ErrCodeNotFound, restapi.ErrMessageNotFound), logger)
	})
	router.MethodNotAllowed(func(rw http.ResponseWriter, r *http.Request) {
		restapi.RespondError(rw, http.StatusMethodNotAllowed,
			restapi.NewError(opts.ErrorDomain, restapi.ErrCodeMethodNotAllowed, restapi.ErrMessageMethodNotAllowed), logger)
	})

	return router, nil
}

func requestStartTime(next http.Handler) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(rw, r.WithContext(middleware.NewContextWithRequestStartTime(r.Context(), time.Now())))
	})
}

// loggingOpts converts the log configuration. Request headers are logged as "req_header_<name>" fields.
func loggingOpts(cfg *LogConfig) middleware.LoggingOpts {
	headers := make(map[string]string, len(cfg.RequestHeaders))
	for _, name := range cfg.RequestHeaders {
		headers[name] = "req_header_" + strings.ToLower(strings.ReplaceAll(name, "-", "_"))
	}
	return middleware.LoggingOpts{
		RequestStart:           cfg.RequestStart,
		RequestHeaders:         headers,
		ExcludedEndpoints:      cfg.ExcludedEndpoints,
		SecretQueryParams:      cfg.SecretQueryParams,
		AddRequestInfoToLogger: cfg.AddRequestInfoToLogger,
		SlowRequestThreshold:   time.Duration(cfg.SlowRequestThreshold),
	}
}

// GetChiRoutePattern returns the pattern of the chi route matching the request (e.g. "/releases/{id}").
// Empty string is returned if nothing matches.
func GetChiRoutePattern(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return ""
	}
	if pattern := rctx.RoutePattern(); pattern != "" {
		return pattern
	}
	// Middlewares run before routing, so the pattern may be not resolved yet.
	path := r.URL.RawPath
	if path == "" {
		path = r.URL.Path
	}
	tctx := chi.NewRouteContext()
	if rctx.Routes == nil || !rctx.Routes.Match(tctx, r.Method, path) {
		return ""
	}
	return tctx.RoutePattern()
}
