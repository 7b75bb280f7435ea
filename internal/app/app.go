/*
Copyright © 2025 The vinylgw Authors.

Released under MIT license.
*/

// Package app assembles the gateway service: the cache store, the upstream call orchestrator,
// the upstream clients, the HTTP API and the background workers.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/vinyldash/vinylgw/cache"
	"github.com/vinyldash/vinylgw/httpclient"
	"github.com/vinyldash/vinylgw/httpserver"
	"github.com/vinyldash/vinylgw/internal/gateway"
	"github.com/vinyldash/vinylgw/log"
	"github.com/vinyldash/vinylgw/lrucache"
	"github.com/vinyldash/vinylgw/profserver"
	"github.com/vinyldash/vinylgw/queue"
	"github.com/vinyldash/vinylgw/restapi"
	"github.com/vinyldash/vinylgw/service"
	"github.com/vinyldash/vinylgw/upstream"
)

// ServiceName is used in API URLs and as a namespace of Prometheus metrics.
const ServiceName = "vinylgw"

const (
	inFlightSweepInterval = time.Minute
	closeTimeout          = time.Second * 10
)

// Opts represents options for New.
type Opts struct {
	// Logger is used instead of the one built from the log configuration.
	Logger log.FieldLogger
	// UpstreamTransport is the transport of the upstream HTTP clients (http.DefaultTransport if nil).
	UpstreamTransport http.RoundTripper
	// MetricsNamespace is a namespace of Prometheus metrics (ServiceName if empty).
	MetricsNamespace string
}

// App is the assembled gateway service.
type App struct {
	Config       *Config
	Logger       log.FieldLogger
	Store        *cache.Store
	Orchestrator *queue.Orchestrator
	Handler      *gateway.Handler
	HTTPServer   *httpserver.HTTPServer

	backend  cache.Backend
	unit     *service.CompositeUnit
	closeLog log.CloseFunc
	closed   bool
}

// New creates the App. Nothing is started until Run or RunContext is called.
func New(ctx context.Context, cfg *Config, opts Opts) (_ *App, err error) {
	a := &App{Config: cfg, Logger: opts.Logger}
	if a.Logger == nil {
		a.Logger, a.closeLog = log.NewLogger(cfg.Log)
	}
	defer func() {
		if err != nil {
			_ = a.close()
		}
	}()
	metricsNamespace := opts.MetricsNamespace
	if metricsNamespace == "" {
		metricsNamespace = ServiceName
	}

	lruMetrics := lrucache.NewPrometheusMetricsWithOpts(lrucache.PrometheusMetricsOpts{Namespace: metricsNamespace})
	if a.backend, err = cache.NewBackend(ctx, cfg.Cache, cache.BackendOpts{
		Logger:        a.Logger,
		MemoryMetrics: lruMetrics,
	}); err != nil {
		return nil, fmt.Errorf("create cache backend: %w", err)
	}
	a.Store = cache.NewStoreWithOpts(a.backend, cache.StoreOpts{Logger: a.Logger})

	queueMetrics := queue.NewPrometheusMetricsWithOpts(queue.PrometheusMetricsOpts{Namespace: metricsNamespace})
	if a.Orchestrator, err = queue.NewWithOpts(cfg.Queue, queue.Opts{
		Logger:           a.Logger,
		MetricsCollector: queueMetrics,
	}); err != nil {
		return nil, fmt.Errorf("create upstream orchestrator: %w", err)
	}

	httpClientMetrics := httpclient.NewPrometheusMetricsCollector(metricsNamespace)
	clientOpts := upstream.FromConfigOpts{Delegate: opts.UpstreamTransport, Collector: httpClientMetrics}
	discogs, err := upstream.NewClientFromConfig(gateway.ResourceDiscogs, cfg.Discogs, a.Orchestrator, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("create %s client: %w", gateway.ResourceDiscogs, err)
	}
	songBPM, err := upstream.NewClientFromConfig(gateway.ResourceSongBPM, cfg.SongBPM, a.Orchestrator, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("create %s client: %w", gateway.ResourceSongBPM, err)
	}

	a.Handler = gateway.NewHandler(cfg.Gateway, a.Store, a.Orchestrator, discogs, songBPM)

	if a.HTTPServer, err = httpserver.New(cfg.Server, a.Logger, httpserver.Opts{
		ServiceNameInURL: ServiceName,
		APIRoutes: map[httpserver.APIVersion]httpserver.APIRoute{
			1: a.Handler.Routes,
		},
		ErrorDomain: gateway.ErrorDomain,
		HealthCheck: a.healthCheck,
		HTTPRequestMetrics: httpserver.HTTPRequestMetricsOpts{
			Namespace:        metricsNamespace,
			CustomLabelNames: []string{gateway.MetricsLabelCacheStatus},
		},
	}); err != nil {
		return nil, fmt.Errorf("create HTTP server: %w", err)
	}

	units := []service.Unit{a.HTTPServer, a.newWorkersUnit(componentsMetrics{
		namespace: metricsNamespace,
		registerers: []prometheusRegisterer{
			lruMetrics, queueMetrics, httpClientMetrics,
		},
	})}
	if cfg.ProfServer.Enabled {
		units = append(units, profserver.New(cfg.ProfServer, a.Logger))
	}
	a.unit = service.NewCompositeUnit(units...)

	return a, nil
}

// Run starts the service and blocks until it's stopped by SIGINT or SIGTERM, or a fatal error occurs.
// All resources of the App are released before returning.
func (a *App) Run() error {
	return a.RunContext(context.Background())
}

// RunContext is the same as Run, but the service is also stopped when ctx is done.
func (a *App) RunContext(ctx context.Context) error {
	a.Logger.Info("starting service", log.String("cache_backend", string(a.Config.Cache.Backend)),
		log.String("address", a.Config.Server.Address))
	runErr := service.New(a.Logger, a.unit).StartContext(ctx)
	return errors.Join(runErr, a.close())
}

func (a *App) healthCheck(ctx context.Context) (httpserver.HealthCheckResult, error) {
	cacheStatus := httpserver.HealthCheckStatusOK
	if !a.Store.Probe(ctx) {
		cacheStatus = httpserver.HealthCheckStatusDegraded
	}
	return httpserver.HealthCheckResult{"cache": cacheStatus}, nil
}

// newWorkersUnit creates the unit of background workers: the sweeper of stale in-flight calls
// and the removal of expired cache entries (for backends that don't expire them on their own).
func (a *App) newWorkersUnit(metrics componentsMetrics) service.Unit {
	sweeper := service.NewPeriodicWorkerWithOpts(service.WorkerFunc(func(ctx context.Context) error {
		if n := a.Orchestrator.SweepStaleInFlight(); n > 0 {
			a.Logger.Info("stale in-flight calls are dropped", log.Int("count", n))
		}
		return nil
	}), inFlightSweepInterval, a.Logger, service.PeriodicWorkerOpts{Name: "inflight_sweeper"})
	units := []service.Unit{service.NewWorkerUnitWithOpts(sweeper, service.WorkerUnitOpts{MetricsRegisterer: metrics})}

	if remover, ok := a.backend.(cache.ExpiredRemover); ok && a.Config.Cache.CleanupInterval > 0 {
		cleaner := service.NewPeriodicWorkerWithOpts(service.WorkerFunc(func(ctx context.Context) error {
			n, err := remover.RemoveExpired(ctx)
			if err != nil {
				return fmt.Errorf("remove expired cache entries: %w", err)
			}
			if n > 0 {
				a.Logger.Debug("expired cache entries are removed", log.Int("count", n))
			}
			return nil
		}), a.Config.Cache.CleanupInterval, a.Logger, service.PeriodicWorkerOpts{Name: "cache_cleaner"})
		units = append(units, service.NewWorkerUnit(cleaner))
	}
	return service.NewCompositeUnit(units...)
}

func (a *App) close() error {
	if a.closed {
		return nil
	}
	a.closed = true

	var errs []error
	if a.Orchestrator != nil {
		ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
		if err := a.Orchestrator.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("close upstream orchestrator: %w", err))
		}
		cancel()
	}
	if a.Store != nil {
		if err := a.Store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close cache: %w", err))
		}
	}
	if a.closeLog != nil {
		a.closeLog()
	}
	return errors.Join(errs...)
}

type prometheusRegisterer interface {
	MustRegister()
	Unregister()
}

// componentsMetrics registers metrics of the components that aren't service units themselves.
type componentsMetrics struct {
	namespace   string
	registerers []prometheusRegisterer
}

func (m componentsMetrics) MustRegisterMetrics() {
	restapi.MustInitAndRegisterMetrics(m.namespace)
	for _, r := range m.registerers {
		r.MustRegister()
	}
}

func (m componentsMetrics) UnregisterMetrics() {
	for _, r := range m.registerers {
		r.Unregister()
	}
	restapi.UnregisterMetrics()
}
