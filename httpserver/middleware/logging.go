/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package middleware

import (
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/vinyldash/vinylgw/log"
)

// LoggingSecretQueryPlaceholder replaces values of secret query parameters in the logged URI.
const LoggingSecretQueryPlaceholder = "_HIDDEN_"

const (
	userAgentLogFieldKey        = "user_agent"
	defaultSlowRequestThreshold = time.Second
)

// LoggingOpts represents options for the Logging middleware.
type LoggingOpts struct {
	// RequestStart enables the "request started" message.
	RequestStart bool
	// RequestHeaders maps names of request headers to keys of log fields.
	RequestHeaders map[string]string
	// ExcludedEndpoints are logged only if they fail (status >= 400).
	ExcludedEndpoints []string
	// SecretQueryParams are replaced with LoggingSecretQueryPlaceholder in the logged URI.
	SecretQueryParams []string
	// AddRequestInfoToLogger adds the request fields (method, uri, etc.) to the logger passed to handlers.
	AddRequestInfoToLogger bool
	// SlowRequestThreshold enables logging of time slots (see LoggingParams). One second by default.
	SlowRequestThreshold time.Duration
}

// Logging is a middleware that logs the completion of each HTTP request.
// It puts a logger with the request ID and LoggingParams into the request's context.
func Logging(logger log.FieldLogger) func(next http.Handler) http.Handler {
	return LoggingWithOpts(logger, LoggingOpts{})
}

// LoggingWithOpts is the same as Logging but with options.
func LoggingWithOpts(logger log.FieldLogger, opts LoggingOpts) func(next http.Handler) http.Handler {
	if opts.SlowRequestThreshold == 0 {
		opts.SlowRequestThreshold = defaultSlowRequestThreshold
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
			serveWithLogging(next, logger, &opts, rw, r)
		})
	}
}

func serveWithLogging(next http.Handler, logger log.FieldLogger, opts *LoggingOpts, rw http.ResponseWriter, r *http.Request) {
	ctx, startTime := requestStartTime(r.Context())

	handlerLogger := logger.With(log.String("request_id", GetRequestIDFromContext(ctx)))
	reqLogger := handlerLogger.With(requestLogFields(r, opts)...)
	if opts.AddRequestInfoToLogger {
		handlerLogger = reqLogger
	}

	excluded := isExcludedEndpoint(r, opts.ExcludedEndpoints)
	if opts.RequestStart && !excluded {
		reqLogger.Info("request started")
	}

	lp := &LoggingParams{}
	ctx = NewContextWithLoggingParams(NewContextWithLogger(ctx, handlerLogger), lp)
	wrw := wrapResponseWriter(rw, r.ProtoMajor)
	next.ServeHTTP(wrw, r.WithContext(ctx))

	status := responseStatus(wrw.Status())
	if excluded && status < http.StatusBadRequest {
		return
	}
	elapsed := time.Since(startTime)
	fields := append([]log.Field{
		log.Int64("duration_ms", elapsed.Milliseconds()),
		log.Int("status", status),
		log.Int("bytes_sent", wrw.BytesWritten()),
	}, lp.logFields(elapsed >= opts.SlowRequestThreshold)...)
	reqLogger.Info(fmt.Sprintf("response completed in %.3fs", elapsed.Seconds()), fields...)
}

func requestLogFields(r *http.Request, opts *LoggingOpts) []log.Field {
	fields := []log.Field{
		log.String("method", r.Method),
		log.String("uri", loggedURI(r, opts.SecretQueryParams)),
		log.String("remote_addr", r.RemoteAddr),
		log.Int64("content_length", r.ContentLength),
		log.String(userAgentLogFieldKey, r.UserAgent()),
	}
	if ip, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		fields = append(fields, log.String("remote_addr_ip", ip))
	}
	if origin := originAddr(r); origin != "" {
		fields = append(fields, log.String("origin_addr", origin))
	}
	for header, key := range opts.RequestHeaders {
		fields = append(fields, log.String(key, r.Header.Get(header)))
	}
	return fields
}

func loggedURI(r *http.Request, secretParams []string) string {
	if len(secretParams) == 0 || r.URL.RawQuery == "" {
		return r.RequestURI
	}
	query := r.URL.Query()
	for _, name := range secretParams {
		for i, v := range query[name] {
			if v != "" {
				query[name][i] = LoggingSecretQueryPlaceholder
			}
		}
	}
	return r.URL.Path + "?" + query.Encode()
}

// originAddr returns the client address reported by a proxy.
func originAddr(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(first)
	}
	return strings.TrimSpace(r.Header.Get("X-Real-IP"))
}

// responseStatus treats a response without explicit WriteHeader as 200 OK.
func responseStatus(status int) int {
	if status == 0 {
		return http.StatusOK
	}
	return status
}
