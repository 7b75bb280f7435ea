/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package httpserver

import (
	"context"
	"errors"
	"net/http"

	"github.com/vinyldash/vinylgw/httpserver/middleware"
	"github.com/vinyldash/vinylgw/log"
	"github.com/vinyldash/vinylgw/restapi"
)

// StatusClientClosedRequest is the non-standard status (introduced by Nginx) of requests
// which clients gave up on before the response was ready.
const StatusClientClosedRequest = 499

// HealthCheckStatus is a status of a single component of the service.
type HealthCheckStatus int

// Health-check statuses.
const (
	HealthCheckStatusOK HealthCheckStatus = iota
	// HealthCheckStatusFail makes the whole service unhealthy (503).
	HealthCheckStatusFail
	// HealthCheckStatusDegraded marks a component that doesn't work while requests are still served.
	HealthCheckStatusDegraded
)

func (s HealthCheckStatus) String() string {
	switch s {
	case HealthCheckStatusOK:
		return "ok"
	case HealthCheckStatusDegraded:
		return "degraded"
	default:
		return "fail"
	}
}

// HealthCheckResult maps component names to their statuses.
type HealthCheckResult map[string]HealthCheckStatus

// status returns the status of the whole service.
func (r HealthCheckResult) status() HealthCheckStatus {
	res := HealthCheckStatusOK
	for _, s := range r {
		switch {
		case s == HealthCheckStatusFail:
			return HealthCheckStatusFail
		case s == HealthCheckStatusDegraded:
			res = HealthCheckStatusDegraded
		}
	}
	return res
}

// HealthCheckFunc checks components of the service.
type HealthCheckFunc func(ctx context.Context) (HealthCheckResult, error)

type healthCheckResponse struct {
	Status     string          `json:"status"`
	Components map[string]bool `json:"components"`
}

// HealthCheckHandler serves the health-check endpoint.
type HealthCheckHandler struct {
	check HealthCheckFunc
}

// NewHealthCheckHandler creates a new HealthCheckHandler.
// If fn is nil, the service is reported as healthy with no components.
func NewHealthCheckHandler(fn HealthCheckFunc) *HealthCheckHandler {
	if fn == nil {
		fn = func(ctx context.Context) (HealthCheckResult, error) {
			return HealthCheckResult{}, ctx.Err()
		}
	}
	return &HealthCheckHandler{check: fn}
}

// ServeHTTP responds with 200 if no component failed and with 503 otherwise.
// Degraded components are shown as unavailable but don't fail the check.
func (h *HealthCheckHandler) ServeHTTP(rw http.ResponseWriter, r *http.Request) {
	logger := middleware.GetLoggerFromContext(r.Context())

	result, err := h.check(r.Context())
	if err == nil {
		err = r.Context().Err()
	}
	if err != nil {
		if errors.Is(err, context.Canceled) {
			rw.WriteHeader(StatusClientClosedRequest)
			return
		}
		if logger != nil {
			logger.Error("health-check failed", log.Error(err))
		}
		rw.WriteHeader(http.StatusInternalServerError)
		return
	}

	status := result.status()
	resp := healthCheckResponse{Status: status.String(), Components: make(map[string]bool, len(result))}
	for name, s := range result {
		resp.Components[name] = s == HealthCheckStatusOK
	}
	code := http.StatusOK
	if status == HealthCheckStatusFail {
		code = http.StatusServiceUnavailable
	}
	restapi.RespondCodeAndJSON(rw, code, resp, logger)
}
