/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package httpclient

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/vinyldash/vinylgw/httpserver/middleware"
	"github.com/vinyldash/vinylgw/log"
)

// LoggingMode represents a mode of logging.
type LoggingMode string

// Logging modes.
const (
	LoggingModeNone   LoggingMode = "none"
	LoggingModeAll    LoggingMode = "all"
	LoggingModeFailed LoggingMode = "failed"
)

// IsValid checks if the logger mode is valid.
func (lm LoggingMode) IsValid() bool {
	switch lm {
	case LoggingModeNone, LoggingModeAll, LoggingModeFailed:
		return true
	}
	return false
}

// redactedValue replaces values of sensitive query parameters in logs.
const redactedValue = "REDACTED"

// LoggingRoundTripper logs outgoing requests with the logger of the served incoming request.
type LoggingRoundTripper struct {
	Delegate http.RoundTripper
	// ReqType is a type of request, e.g. the name of upstream resource.
	ReqType string
	Opts    LoggingRoundTripperOpts
}

// LoggingRoundTripperOpts represents an options for LoggingRoundTripper.
type LoggingRoundTripperOpts struct {
	// LoggerProvider is a function that provides a context-specific logger.
	// middleware.GetLoggerFromContext is used by default.
	LoggerProvider func(ctx context.Context) log.FieldLogger

	// Mode of logging: none, all, failed. "all" is used by default.
	Mode LoggingMode

	// SlowRequestThreshold is a threshold for slow requests.
	// Requests that are faster are not logged (unless they fail).
	SlowRequestThreshold time.Duration

	// SensitiveQueryParams are query parameters which values are never logged.
	SensitiveQueryParams []string
}

// NewLoggingRoundTripper creates a new LoggingRoundTripper.
func NewLoggingRoundTripper(delegate http.RoundTripper, reqType string) http.RoundTripper {
	return NewLoggingRoundTripperWithOpts(delegate, reqType, LoggingRoundTripperOpts{})
}

// NewLoggingRoundTripperWithOpts creates a new LoggingRoundTripper with options.
func NewLoggingRoundTripperWithOpts(
	delegate http.RoundTripper, reqType string, opts LoggingRoundTripperOpts,
) http.RoundTripper {
	if opts.Mode == "" {
		opts.Mode = LoggingModeAll
	}
	return &LoggingRoundTripper{Delegate: delegate, ReqType: reqType, Opts: opts}
}

func (rt *LoggingRoundTripper) logger(ctx context.Context) log.FieldLogger {
	if rt.Opts.LoggerProvider != nil {
		return rt.Opts.LoggerProvider(ctx)
	}
	return middleware.GetLoggerFromContext(ctx)
}

// RoundTrip implements http.RoundTripper.
// Failed requests (transport errors and 4xx/5xx statuses) are always logged, successful ones only in "all" mode
// if they took longer than SlowRequestThreshold.
func (rt *LoggingRoundTripper) RoundTrip(r *http.Request) (*http.Response, error) {
	if rt.Opts.Mode == LoggingModeNone {
		return rt.Delegate.RoundTrip(r)
	}
	start := time.Now()
	resp, err := rt.Delegate.RoundTrip(r)
	rt.logRequest(r, resp, err, time.Since(start))
	return resp, err
}

func (rt *LoggingRoundTripper) logRequest(r *http.Request, resp *http.Response, err error, elapsed time.Duration) {
	ctx := r.Context()
	logger := rt.logger(ctx)
	if logger == nil {
		return
	}
	reqType := requestTypeOrDefault(ctx, rt.ReqType)
	if lp := middleware.GetLoggingParamsFromContext(ctx); lp != nil {
		lp.AddTimeSlotDurationInMs(fmt.Sprintf("external_request_%s_ms", reqType), elapsed)
	}

	fields := []log.Field{
		log.String("request_type", reqType),
		log.String("method", r.Method),
		log.String("url", RedactURL(r.URL, rt.Opts.SensitiveQueryParams)),
		log.DurationIn(elapsed, time.Millisecond),
	}
	if err != nil {
		logger.Error("client http request failed", append(fields, log.Error(err))...)
		return
	}
	fields = append(fields, log.Int("status", resp.StatusCode))
	if resp.StatusCode >= http.StatusBadRequest {
		if retryAfter := resp.Header.Get("Retry-After"); retryAfter != "" {
			fields = append(fields, log.String("retry_after", retryAfter))
		}
		logger.Warn("client http request done", fields...)
		return
	}
	if rt.Opts.Mode == LoggingModeAll && elapsed >= rt.Opts.SlowRequestThreshold {
		logger.Info("client http request done", fields...)
	}
}

// RedactURL returns the string form of the URL with values of the sensitive query parameters
// (compared case-insensitively) and the user password replaced.
func RedactURL(u *url.URL, sensitiveParams []string) string {
	if u == nil {
		return ""
	}
	redacted := *u
	if _, hasPassword := redacted.User.Password(); hasPassword {
		redacted.User = url.UserPassword(redacted.User.Username(), redactedValue)
	}
	if len(sensitiveParams) == 0 || redacted.RawQuery == "" {
		return redacted.String()
	}
	query := redacted.Query()
	for name := range query {
		for _, sensitive := range sensitiveParams {
			if strings.EqualFold(name, sensitive) {
				query.Set(name, redactedValue)
			}
		}
	}
	redacted.RawQuery = query.Encode()
	return redacted.String()
}
