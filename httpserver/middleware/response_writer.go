/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package middleware

import (
	"net/http"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// RoutePatternGetterFunc returns the route pattern (e.g. "/api/vinylgw/v1/releases/{id}") of the request.
// It's used as a metrics label, so the set of returned values must be finite.
type RoutePatternGetterFunc func(r *http.Request) string

// wrapResponseWriter wraps rw unless a middleware higher in the chain has already done it.
func wrapResponseWriter(rw http.ResponseWriter, protoMajor int) chimiddleware.WrapResponseWriter {
	if wrw, ok := rw.(chimiddleware.WrapResponseWriter); ok {
		return wrw
	}
	return chimiddleware.NewWrapResponseWriter(rw, protoMajor)
}

func isExcludedEndpoint(r *http.Request, endpoints []string) bool {
	for _, e := range endpoints {
		if r.URL.Path == e {
			return true
		}
	}
	return false
}
