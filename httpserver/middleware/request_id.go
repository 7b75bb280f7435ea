/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package middleware

import (
	"net/http"

	"github.com/rs/xid"
)

// RequestIDHeader carries the ID of the request. It's also sent back in the response.
const RequestIDHeader = "X-Request-ID"

// RequestIDOpts represents options for the RequestID middleware.
type RequestIDOpts struct {
	// GenerateID is called when the request has no X-Request-ID header. xid is used by default.
	GenerateID func() string
}

// RequestID is a middleware that takes the request ID from X-Request-ID header (or generates a new one)
// and puts it into the request's context and the response's header.
func RequestID() func(next http.Handler) http.Handler {
	return RequestIDWithOpts(RequestIDOpts{})
}

// RequestIDWithOpts is the same as RequestID but with options.
func RequestIDWithOpts(opts RequestIDOpts) func(next http.Handler) http.Handler {
	generateID := opts.GenerateID
	if generateID == nil {
		generateID = func() string { return xid.New().String() }
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(RequestIDHeader)
			if id == "" {
				id = generateID()
			}
			rw.Header().Set(RequestIDHeader, id)
			next.ServeHTTP(rw, r.WithContext(NewContextWithRequestID(r.Context(), id)))
		})
	}
}
