/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package middleware

import (
	"context"
	"time"

	"github.com/vinyldash/vinylgw/log"
)

type ctxKey int

const (
	ctxKeyRequestID ctxKey = iota
	ctxKeyLogger
	ctxKeyLoggingParams
	ctxKeyMetricsParams
	ctxKeyRequestStartTime
)

func valueFromContext[T any](ctx context.Context, key ctxKey) T {
	v, _ := ctx.Value(key).(T)
	return v
}

// NewContextWithRequestID creates a new context with the request ID.
func NewContextWithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ctxKeyRequestID, requestID)
}

// GetRequestIDFromContext returns the request ID or an empty string.
func GetRequestIDFromContext(ctx context.Context) string {
	return valueFromContext[string](ctx, ctxKeyRequestID)
}

// NewContextWithLogger creates a new context with the request-scoped logger.
func NewContextWithLogger(ctx context.Context, logger log.FieldLogger) context.Context {
	return context.WithValue(ctx, ctxKeyLogger, logger)
}

// GetLoggerFromContext returns the request-scoped logger or nil.
func GetLoggerFromContext(ctx context.Context) log.FieldLogger {
	return valueFromContext[log.FieldLogger](ctx, ctxKeyLogger)
}

// NewContextWithLoggingParams creates a new context with the logging params.
func NewContextWithLoggingParams(ctx context.Context, lp *LoggingParams) context.Context {
	return context.WithValue(ctx, ctxKeyLoggingParams, lp)
}

// GetLoggingParamsFromContext returns the logging params or nil.
func GetLoggingParamsFromContext(ctx context.Context) *LoggingParams {
	return valueFromContext[*LoggingParams](ctx, ctxKeyLoggingParams)
}

// NewContextWithMetricsParams creates a new context with the metrics params.
func NewContextWithMetricsParams(ctx context.Context, mp *MetricsParams) context.Context {
	return context.WithValue(ctx, ctxKeyMetricsParams, mp)
}

// GetMetricsParamsFromContext returns the metrics params or nil.
func GetMetricsParamsFromContext(ctx context.Context) *MetricsParams {
	return valueFromContext[*MetricsParams](ctx, ctxKeyMetricsParams)
}

// NewContextWithRequestStartTime creates a new context with the time the request was received.
func NewContextWithRequestStartTime(ctx context.Context, startTime time.Time) context.Context {
	return context.WithValue(ctx, ctxKeyRequestStartTime, startTime)
}

// GetRequestStartTimeFromContext returns the time the request was received or zero time.
func GetRequestStartTimeFromContext(ctx context.Context) time.Time {
	return valueFromContext[time.Time](ctx, ctxKeyRequestStartTime)
}

func requestStartTime(ctx context.Context) (context.Context, time.Time) {
	if t := GetRequestStartTimeFromContext(ctx); !t.IsZero() {
		return ctx, t
	}
	t := time.Now()
	return NewContextWithRequestStartTime(ctx, t), t
}
