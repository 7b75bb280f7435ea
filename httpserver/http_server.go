/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

// Package httpserver provides the HTTP server of the service: the versioned API routes behind a chain of middlewares
// (request ID, logging, recovery, metrics, rate limiting) and the /healthz and /metrics system endpoints.
package httpserver

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/atomic"

	"github.com/vinyldash/vinylgw/httpserver/middleware"
	"github.com/vinyldash/vinylgw/log"
	"github.com/vinyldash/vinylgw/service"
)

// APIVersion is a version of the API, routes of version N are served under "/api/<service>/vN".
type APIVersion = int

// APIRoute registers routes of a single API version.
type APIRoute = func(router chi.Router)

// HTTPRequestMetricsOpts represents options of the HTTP request metrics.
type HTTPRequestMetricsOpts struct {
	Namespace       string
	DurationBuckets []float64
	ConstLabels     prometheus.Labels
	// CustomLabelNames are labels of the request duration histogram which values are set by handlers
	// via middleware.MetricsParams.
	CustomLabelNames []string

	GetUserAgentType middleware.UserAgentTypeGetterFunc
	GetRoutePattern  middleware.RoutePatternGetterFunc
}

// Opts represents options for creating HTTPServer.
type Opts struct {
	// ServiceNameInURL is a part of API routes prefix ("/api/<ServiceNameInURL>/v1").
	ServiceNameInURL string
	APIRoutes        map[APIVersion]APIRoute
	// RootMiddlewares are applied after the default ones.
	RootMiddlewares []func(http.Handler) http.Handler
	// ErrorDomain is used in error responses.
	ErrorDomain string
	HealthCheck HealthCheckFunc
	// MetricsHandler serves /metrics, promhttp.Handler() is used by default.
	MetricsHandler     http.Handler
	HTTPRequestMetrics HTTPRequestMetricsOpts
	// Listener is used instead of listening on the configured address.
	Listener net.Listener
}

// HTTPServer is a service.Unit serving HTTP requests with chi.Router.
type HTTPServer struct {
	// URL is built from the configured address, use GetPort to get the port chosen by the system for ":0".
	URL        string
	HTTPServer *http.Server
	HTTPRouter chi.Router
	Logger     log.FieldLogger

	tls             TLSConfig
	shutdownTimeout time.Duration
	listener        net.Listener
	port            atomic.Int32
	started         atomic.Bool
	done            chan struct{}
	promMetrics     *middleware.HTTPRequestPrometheusMetrics
}

var _ service.Unit = (*HTTPServer)(nil)
var _ service.MetricsRegisterer = (*HTTPServer)(nil)

// New creates a new HTTPServer.
func New(cfg *Config, logger log.FieldLogger, opts Opts) (*HTTPServer, error) { //nolint:gocritic // hugeParam
	promMetrics := middleware.NewHTTPRequestPrometheusMetricsWithOpts(middleware.HTTPRequestPrometheusMetricsOpts{
		Namespace:        opts.HTTPRequestMetrics.Namespace,
		DurationBuckets:  opts.HTTPRequestMetrics.DurationBuckets,
		ConstLabels:      opts.HTTPRequestMetrics.ConstLabels,
		CustomLabelNames: opts.HTTPRequestMetrics.CustomLabelNames,
	})
	router, err := newRouter(cfg, logger, &opts, promMetrics)
	if err != nil {
		return nil, err
	}

	scheme := "http://"
	if cfg.TLS.Enabled {
		scheme = "https://"
	}
	return &HTTPServer{
		URL: scheme + cfg.Address,
		HTTPServer: &http.Server{
			Addr:              cfg.Address,
			Handler:           router,
			WriteTimeout:      time.Duration(cfg.Timeouts.Write),
			ReadTimeout:       time.Duration(cfg.Timeouts.Read),
			ReadHeaderTimeout: time.Duration(cfg.Timeouts.ReadHeader),
			IdleTimeout:       time.Duration(cfg.Timeouts.Idle),
		},
		HTTPRouter:      router,
		Logger:          logger,
		tls:             cfg.TLS,
		shutdownTimeout: time.Duration(cfg.Timeouts.Shutdown),
		listener:        opts.Listener,
		done:            make(chan struct{}),
		promMetrics:     promMetrics,
	}, nil
}

// Start serves requests until the server is stopped. It's supposed to be called in a separate goroutine.
// Listening and serving errors are sent to fatalError.
func (s *HTTPServer) Start(fatalError chan<- error) {
	s.started.Store(true)
	defer close(s.done)

	logger := s.Logger.With(log.String("address", s.HTTPServer.Addr), log.Bool("tls", s.tls.Enabled))
	logger.Info("starting HTTP server...",
		log.Duration("write_timeout", s.HTTPServer.WriteTimeout),
		log.Duration("read_timeout", s.HTTPServer.ReadTimeout),
		log.Duration("idle_timeout", s.HTTPServer.IdleTimeout))

	if err := s.serve(); err != nil {
		if errors.Is(err, http.ErrServerClosed) {
			logger.Info("HTTP server closed")
			return
		}
		logger.Error("HTTP server error", log.Error(err))
		fatalError <- err
	}
}

func (s *HTTPServer) serve() error {
	if s.listener == nil {
		ln, err := net.Listen("tcp", s.HTTPServer.Addr)
		if err != nil {
			return err
		}
		s.listener = ln
	}
	_, portStr, err := net.SplitHostPort(s.listener.Addr().String())
	if err != nil {
		return err
	}
	port, err := strconv.ParseInt(portStr, 10, 32)
	if err != nil {
		return err
	}
	s.port.Store(int32(port))

	if s.tls.Enabled {
		return s.HTTPServer.ServeTLS(s.listener, s.tls.Certificate, s.tls.Key)
	}
	return s.HTTPServer.Serve(s.listener)
}

// Stop stops the server. Graceful stop waits (no longer than the shutdown timeout) for active requests to be served.
func (s *HTTPServer) Stop(gracefully bool) error {
	if gracefully {
		s.Logger.Info("shutting down HTTP server...", log.Duration("timeout", s.shutdownTimeout))
		ctx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()
		if err := s.HTTPServer.Shutdown(ctx); err != nil {
			s.Logger.Error("HTTP server shutdown error", log.Error(err))
			return err
		}
	} else {
		s.Logger.Info("closing HTTP server...")
		if err := s.HTTPServer.Close(); err != nil {
			s.Logger.Error("HTTP server closing error", log.Error(err))
			return err
		}
	}
	if s.started.Load() {
		<-s.done
	}
	return nil
}

// MustRegisterMetrics registers the HTTP request metrics in the Prometheus default registry.
func (s *HTTPServer) MustRegisterMetrics() {
	s.promMetrics.MustRegister()
}

// UnregisterMetrics unregisters the HTTP request metrics.
func (s *HTTPServer) UnregisterMetrics() {
	s.promMetrics.Unregister()
}

// GetPort returns the port the server listens on. It's 0 until the server is started.
func (s *HTTPServer) GetPort() int {
	return int(s.port.Load())
}
