/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package middleware

import (
	"fmt"
	"net/http"
	"runtime"

	"github.com/vinyldash/vinylgw/log"
	"github.com/vinyldash/vinylgw/restapi"
)

// RecoveryDefaultStackSize is the default size of the logged part of the stack.
const RecoveryDefaultStackSize = 8192

// RecoveryOpts represents options for the Recovery middleware.
type RecoveryOpts struct {
	// StackSize limits the logged stack, zero disables stack logging.
	StackSize int
}

// Recovery is a middleware that recovers from panics in handlers.
// The panic is logged and the client gets 500 with the internal error in the body.
// http.ErrAbortHandler is re-panicked so http.Server aborts the response.
func Recovery(errDomain string) func(next http.Handler) http.Handler {
	return RecoveryWithOpts(errDomain, RecoveryOpts{StackSize: RecoveryDefaultStackSize})
}

// RecoveryWithOpts is the same as Recovery but with options.
func RecoveryWithOpts(errDomain string, opts RecoveryOpts) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
			defer func() {
				p := recover()
				if p == nil {
					return
				}
				logger := GetLoggerFromContext(r.Context())
				if p == http.ErrAbortHandler { //nolint:errorlint // sentinel panic value
					if logger != nil {
						logger.Warn("request has been aborted", log.Error(http.ErrAbortHandler))
					}
					panic(p)
				}
				if logger != nil {
					logger.Error(fmt.Sprintf("panic: %+v", p), panicLogFields(r, opts.StackSize)...)
				}
				restapi.RespondInternalError(rw, errDomain, logger)
			}()
			next.ServeHTTP(rw, r)
		})
	}
}

func panicLogFields(r *http.Request, stackSize int) []log.Field {
	fields := []log.Field{log.String("method", r.Method), log.String("uri", r.URL.Path)}
	if stackSize > 0 {
		stack := make([]byte, stackSize)
		stack = stack[:runtime.Stack(stack, false)]
		fields = append(fields, log.Bytes("stack", stack))
	}
	return fields
}
