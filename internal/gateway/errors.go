/*
Copyright © 2025 The vinylgw Authors.

Released under MIT license.
*/

package gateway

import (
	"context"
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/vinyldash/vinylgw/httpserver"
	"github.com/vinyldash/vinylgw/httpserver/middleware"
	"github.com/vinyldash/vinylgw/log"
	"github.com/vinyldash/vinylgw/queue"
	"github.com/vinyldash/vinylgw/restapi"
	"github.com/vinyldash/vinylgw/upstream"
)

// respondError maps errors of upstream calls to API responses:
// rate limiting -> 429 (with Retry-After if upstream sent it), upstream 404 -> 404, anything else -> 502.
func (h *Handler) respondError(rw http.ResponseWriter, r *http.Request, resource string, err error) {
	logger := middleware.GetLoggerFromContext(r.Context())

	if r.Context().Err() != nil && errors.Is(err, r.Context().Err()) {
		if logger != nil {
			logger.Info("client went away before upstream data was ready", log.String("upstream", resource))
		}
		rw.WriteHeader(httpserver.StatusClientClosedRequest)
		return
	}

	if rlErr, ok := queue.AsRateLimitError(err); ok {
		if rlErr.HasRetryAfter {
			rw.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(rlErr.RetryAfter.Seconds()))))
		}
		apiErr := restapi.NewErrorFromStatus(ErrorDomain, http.StatusTooManyRequests,
			"Upstream rate limit is exceeded, try again later.").AddContext("upstream", resource)
		restapi.RespondError(rw, http.StatusTooManyRequests, apiErr, logger)
		return
	}

	if statusErr, ok := upstream.AsStatusError(err); ok && statusErr.StatusCode == http.StatusNotFound {
		restapi.RespondError(rw, http.StatusNotFound,
			restapi.NewError(ErrorDomain, restapi.ErrCodeNotFound, restapi.ErrMessageNotFound), logger)
		return
	}

	if errors.Is(err, queue.ErrClosed) {
		apiErr := restapi.NewErrorFromStatus(ErrorDomain, http.StatusServiceUnavailable, "Service is shutting down.")
		restapi.RespondError(rw, http.StatusServiceUnavailable, apiErr, logger)
		return
	}

	if logger != nil {
		logger.Warn("upstream request failed", log.String("upstream", resource), log.Error(err))
	}
	status := http.StatusBadGateway
	if errors.Is(err, context.DeadlineExceeded) {
		status = http.StatusGatewayTimeout
	}
	apiErr := restapi.NewErrorFromStatus(ErrorDomain, status, "Upstream request failed.").AddContext("upstream", resource)
	restapi.RespondError(rw, status, apiErr, logger)
}
