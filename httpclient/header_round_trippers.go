/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package httpclient

import (
	"net/http"

	"github.com/vinyldash/vinylgw/httpserver/middleware"
)

// withHeader passes a copy of the request with the header set to the delegate.
// The request itself must not be modified by round trippers.
func withHeader(delegate http.RoundTripper, r *http.Request, name, value string) (*http.Response, error) {
	r = r.Clone(r.Context())
	r.Header.Set(name, value)
	return delegate.RoundTrip(r)
}

// RequestIDRoundTripper sends the ID of the served incoming request (see middleware.RequestID) in X-Request-ID header,
// so calls to upstreams can be correlated with requests to the gateway.
type RequestIDRoundTripper struct {
	Delegate http.RoundTripper
}

// NewRequestIDRoundTripper creates a new RequestIDRoundTripper.
func NewRequestIDRoundTripper(delegate http.RoundTripper) http.RoundTripper {
	return &RequestIDRoundTripper{Delegate: delegate}
}

// RoundTrip implements http.RoundTripper. Header already present in the request is kept.
func (rt *RequestIDRoundTripper) RoundTrip(r *http.Request) (*http.Response, error) {
	id := middleware.GetRequestIDFromContext(r.Context())
	if id == "" || r.Header.Get(middleware.RequestIDHeader) != "" {
		return rt.Delegate.RoundTrip(r)
	}
	return withHeader(rt.Delegate, r, middleware.RequestIDHeader, id)
}

// UserAgentRoundTripper sets User-Agent header of outgoing requests.
// Discogs rejects requests without a descriptive User-Agent.
type UserAgentRoundTripper struct {
	Delegate  http.RoundTripper
	UserAgent string
	// Append makes the round tripper add its value to the User-Agent set in the request instead of keeping it as is.
	Append bool
}

// NewUserAgentRoundTripper creates a new UserAgentRoundTripper.
func NewUserAgentRoundTripper(delegate http.RoundTripper, userAgent string) *UserAgentRoundTripper {
	return &UserAgentRoundTripper{Delegate: delegate, UserAgent: userAgent}
}

// RoundTrip implements http.RoundTripper.
func (rt *UserAgentRoundTripper) RoundTrip(r *http.Request) (*http.Response, error) {
	current := r.Header.Get("User-Agent")
	if current == "" {
		return withHeader(rt.Delegate, r, "User-Agent", rt.UserAgent)
	}
	if rt.Append {
		return withHeader(rt.Delegate, r, "User-Agent", current+" "+rt.UserAgent)
	}
	return rt.Delegate.RoundTrip(r)
}
