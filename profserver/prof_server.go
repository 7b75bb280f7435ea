/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

// Package profserver provides the optional HTTP server exposing pprof profiles under /debug/pprof/.
package profserver

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/vinyldash/vinylgw/httpserver/middleware"
	"github.com/vinyldash/vinylgw/log"
	"github.com/vinyldash/vinylgw/service"
)

const errDomain = "Profiler"

const (
	readHeaderTimeout = time.Second * 5
	// A CPU profile is collected for 30 seconds by default, graceful stop doesn't wait for it.
	shutdownTimeout = time.Second * 5
)

// ProfServer is a service.Unit serving pprof profiles.
type ProfServer struct {
	URL        string
	HTTPServer *http.Server
	Logger     log.FieldLogger

	done chan struct{}
}

var _ service.Unit = (*ProfServer)(nil)

// New creates a new ProfServer.
func New(cfg *Config, logger log.FieldLogger) *ProfServer {
	logger = logger.With(log.String("component", "profserver"))

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID(),
		middleware.LoggingWithOpts(logger, middleware.LoggingOpts{RequestStart: true}),
		middleware.Recovery(errDomain),
	)
	router.Mount("/debug", chimiddleware.Profiler())

	return &ProfServer{
		URL:        "http://" + cfg.Address,
		HTTPServer: &http.Server{Addr: cfg.Address, Handler: router, ReadHeaderTimeout: readHeaderTimeout},
		Logger:     logger,
		done:       make(chan struct{}),
	}
}

// Start serves requests until the server is stopped. Listening errors are sent to fatalError.
func (s *ProfServer) Start(fatalError chan<- error) {
	defer close(s.done)

	logger := s.Logger.With(log.String("address", s.HTTPServer.Addr))
	logger.Info("starting profiling server...")
	err := s.HTTPServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		logger.Info("profiling server closed")
		return
	}
	logger.Error("profiling server error", log.Error(err))
	fatalError <- err
}

// Stop stops the server. If graceful shutdown doesn't finish in time, connections are closed.
func (s *ProfServer) Stop(gracefully bool) error {
	s.Logger.Info("stopping profiling server...", log.Bool("gracefully", gracefully))
	if gracefully && s.shutdown() == nil {
		<-s.done
		return nil
	}
	if err := s.HTTPServer.Close(); err != nil {
		s.Logger.Error("profiling server closing error", log.Error(err))
		return err
	}
	<-s.done
	return nil
}

func (s *ProfServer) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return s.HTTPServer.Shutdown(ctx)
}
