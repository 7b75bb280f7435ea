/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vinyldash/vinylgw/log"
	"github.com/vinyldash/vinylgw/log/logtest"
	"github.com/vinyldash/vinylgw/restapi"
	"github.com/vinyldash/vinylgw/testutil"
)

func TestRecovery(t *testing.T) {
	const errDomain = "VinylGW"
	serve := func(handler http.Handler, logger log.FieldLogger) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/releases/1", nil)
		req = req.WithContext(NewContextWithLogger(req.Context(), logger))
		resp := httptest.NewRecorder()
		handler.ServeHTTP(resp, req)
		return resp
	}

	t.Run("panic is logged and 500 is returned", func(t *testing.T) {
		rec := logtest.NewRecorder()
		resp := serve(Recovery(errDomain)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			panic("nil release")
		})), rec)

		testutil.RequireErrorInRecorder(t, resp, http.StatusInternalServerError, errDomain, restapi.ErrCodeInternal)
		entry, found := rec.FindEntry("panic: nil release")
		require.True(t, found)
		_, found = entry.FindField("stack")
		require.True(t, found)
	})

	t.Run("stack is not logged", func(t *testing.T) {
		rec := logtest.NewRecorder()
		serve(RecoveryWithOpts(errDomain, RecoveryOpts{})(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			panic("nil release")
		})), rec)
		entry, found := rec.FindEntry("panic: nil release")
		require.True(t, found)
		_, found = entry.FindField("stack")
		require.False(t, found)
	})

	t.Run("abort handler panic is propagated", func(t *testing.T) {
		rec := logtest.NewRecorder()
		require.PanicsWithValue(t, http.ErrAbortHandler, func() {
			serve(Recovery(errDomain)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
				panic(http.ErrAbortHandler)
			})), rec)
		})
		_, found := rec.FindEntry("request has been aborted")
		require.True(t, found)
	})

	t.Run("no handler panic", func(t *testing.T) {
		resp := serve(Recovery(errDomain)(http.HandlerFunc(func(rw http.ResponseWriter, _ *http.Request) {
			rw.WriteHeader(http.StatusNoContent)
		})), logtest.NewRecorder())
		require.Equal(t, http.StatusNoContent, resp.Code)
	})
}
