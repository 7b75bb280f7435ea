/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

// Package httpclient provides an HTTP client with a chain of round trippers
// for logging, metrics, request ID propagation, User-Agent and credentials injection.
package httpclient

import (
	"context"
	"net/http"

	"github.com/vinyldash/vinylgw/log"
)

// Opts provides options for NewWithOpts function.
type Opts struct {
	// RequestType is a type of request used in logs and metrics, e.g. the name of upstream resource.
	RequestType string

	// Delegate is the next RoundTripper in the chain.
	Delegate http.RoundTripper

	// LoggerProvider is a function that provides a context-specific logger.
	LoggerProvider func(ctx context.Context) log.FieldLogger

	// Collector is a metrics collector.
	Collector MetricsCollector
}

// New wraps the default transport with logging, metrics, credentials, user agent and request id round trippers.
func New(cfg *Config) *http.Client {
	return NewWithOpts(cfg, Opts{})
}

// NewWithOpts wraps delegate transport with logging, metrics, credentials, user agent and request id round trippers.
// Credentials are added after logging, so the token never appears in logs.
func NewWithOpts(cfg *Config, opts Opts) *http.Client {
	delegate := opts.Delegate
	if delegate == nil {
		delegate = http.DefaultTransport.(*http.Transport).Clone()
	}

	if !cfg.Auth.Credentials().IsEmpty() {
		delegate = NewCredentialsRoundTripper(delegate, cfg.Auth.Credentials())
	}

	if cfg.Log.Enabled {
		var sensitiveParams []string
		if cfg.Auth.QueryParam != "" {
			sensitiveParams = append(sensitiveParams, cfg.Auth.QueryParam)
		}
		delegate = NewLoggingRoundTripperWithOpts(delegate, opts.RequestType, LoggingRoundTripperOpts{
			LoggerProvider:       opts.LoggerProvider,
			Mode:                 cfg.Log.Mode,
			SlowRequestThreshold: cfg.Log.SlowRequestThreshold,
			SensitiveQueryParams: sensitiveParams,
		})
	}

	if cfg.Metrics.Enabled && opts.Collector != nil {
		delegate = NewMetricsRoundTripper(delegate, opts.RequestType, opts.Collector)
	}

	if cfg.UserAgent != "" {
		delegate = NewUserAgentRoundTripper(delegate, cfg.UserAgent)
	}

	delegate = NewRequestIDRoundTripper(delegate)

	return &http.Client{Transport: delegate, Timeout: cfg.Timeout}
}
