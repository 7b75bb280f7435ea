/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

// Package service runs units (HTTP servers, background workers) and stops them on OS signals or context cancellation.
package service

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/vinyldash/vinylgw/log"
)

// Opts represents options for NewWithOpts.
type Opts struct {
	// ShutdownSignals trigger the graceful stop. SIGINT and SIGTERM are used if empty.
	ShutdownSignals []os.Signal
}

// Service starts a unit and stops it gracefully.
type Service struct {
	Unit    Unit
	Logger  log.FieldLogger
	Signals chan os.Signal
	Opts    Opts
}

// New creates a new Service stopped by SIGINT or SIGTERM.
func New(logger log.FieldLogger, unit Unit) *Service {
	return NewWithOpts(logger, unit, Opts{})
}

// NewWithOpts is the same as New but with options.
func NewWithOpts(logger log.FieldLogger, unit Unit, opts Opts) *Service {
	if len(opts.ShutdownSignals) == 0 {
		opts.ShutdownSignals = []os.Signal{syscall.SIGINT, syscall.SIGTERM}
	}
	return &Service{Unit: unit, Logger: logger, Signals: make(chan os.Signal, 1), Opts: opts}
}

// Start is StartContext with the background context.
func (s *Service) Start() error {
	return s.StartContext(context.Background())
}

// StartContext registers the unit's metrics, starts the unit in a separate goroutine and blocks
// until the context is done, a shutdown signal is received or the unit fails.
func (s *Service) StartContext(ctx context.Context) error {
	if mr, ok := s.Unit.(MetricsRegisterer); ok {
		mr.MustRegisterMetrics()
		defer mr.UnregisterMetrics()
	}

	signal.Notify(s.Signals, s.Opts.ShutdownSignals...)
	defer signal.Stop(s.Signals)

	fatalErr := make(chan error, 1)
	go s.Unit.Start(fatalErr)

	select {
	case err := <-fatalErr:
		s.Logger.Error("service fatal error", log.Error(err))
		return fmt.Errorf("fatal error: %w", err)
	case <-ctx.Done():
		s.Logger.Info("context is done, stopping service")
	case sig := <-s.Signals:
		s.Logger.Info("signal received, stopping service", log.String("signal", sig.String()))
	}

	if err := s.Unit.Stop(true); err != nil {
		return fmt.Errorf("stop service gracefully: %w", err)
	}
	return nil
}
