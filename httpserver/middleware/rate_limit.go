/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package middleware

import (
	"math"
	"net"
	"net/http"
	"strconv"

	"github.com/vinyldash/vinylgw/log"
	"github.com/vinyldash/vinylgw/ratelimit"
	"github.com/vinyldash/vinylgw/restapi"
)

// DefaultRateLimitMaxKeys is a default value of maximum keys number for the RateLimit middleware.
const DefaultRateLimitMaxKeys = 10000

// RateLimitErrCode is an error code that is used in a response body
// if the request is rejected by the middleware that limits the rate of HTTP requests.
const RateLimitErrCode = "tooManyRequests"

// RateLimitLogFieldKey it is the name of the logged field that contains a key for the requests rate limiter.
const RateLimitLogFieldKey = "rate_limit_key"

// RateLimitGetKeyFunc is a function that is called for getting key for rate limiting.
type RateLimitGetKeyFunc func(r *http.Request) (key string, bypass bool)

// RateLimitOpts represents an options for the RateLimit middleware.
type RateLimitOpts struct {
	// GetKey returns the key requests are limited by. Client IP address is used by default.
	GetKey RateLimitGetKeyFunc
	// ExcludedEndpoints are never limited.
	ExcludedEndpoints []string
}

// RateLimit is a middleware that limits the rate of HTTP requests with the passed limiter.
// Rejected requests get 429 status code with Retry-After header.
func RateLimit(limiter ratelimit.Limiter, errDomain string, opts RateLimitOpts) func(next http.Handler) http.Handler {
	getKey := opts.GetKey
	if getKey == nil {
		getKey = GetRateLimitKeyByIP
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
			for _, endpoint := range opts.ExcludedEndpoints {
				if r.URL.Path == endpoint {
					next.ServeHTTP(rw, r)
					return
				}
			}
			key, bypass := getKey(r)
			if bypass {
				next.ServeHTTP(rw, r)
				return
			}
			logger := GetLoggerFromContext(r.Context())
			allow, retryAfter, err := limiter.Allow(r.Context(), key)
			if err != nil {
				if logger != nil {
					logger.Error("rate limiting error", log.String(RateLimitLogFieldKey, key), log.Error(err))
				}
				restapi.RespondInternalError(rw, errDomain, logger)
				return
			}
			if allow {
				next.ServeHTTP(rw, r)
				return
			}
			if logger != nil {
				logger = logger.With(
					log.String(RateLimitLogFieldKey, key),
					log.String(userAgentLogFieldKey, r.UserAgent()),
				)
			}
			rw.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(retryAfter.Seconds()))))
			apiErr := restapi.NewError(errDomain, RateLimitErrCode, "Too many requests.")
			restapi.RespondError(rw, http.StatusTooManyRequests, apiErr, logger)
		})
	}
}

// GetRateLimitKeyByIP returns the IP address of the client (without port) as a rate limiting key.
func GetRateLimitKeyByIP(r *http.Request) (key string, bypass bool) {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr, false
	}
	return host, false
}
