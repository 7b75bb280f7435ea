/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package restapi

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vinyldash/vinylgw/log"
	"github.com/vinyldash/vinylgw/log/logtest"
	"github.com/vinyldash/vinylgw/testutil"
)

const testDomain = "VinylGW"

type responseRecorderReturnedErrorOnWrite struct {
	*httptest.ResponseRecorder
}

func (rw *responseRecorderReturnedErrorOnWrite) Write(_ []byte) (int, error) {
	return 0, fmt.Errorf("error on write")
}

func TestRespondJSON(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		type Release struct {
			ID    int    `json:"id"`
			Title string `json:"title"`
		}
		resp := httptest.NewRecorder()
		logger := logtest.NewRecorder()
		r := &Release{249504, "Blue Train"}
		require.Empty(t, resp.Header().Get("Content-Type"))
		RespondJSON(resp, r, logger)
		testutil.RequireJSONInRecorder(t, resp, r, &Release{})
		require.Equal(t, 0, len(logger.Entries()))
	})

	t.Run("marshaling error", func(t *testing.T) {
		resp := httptest.NewRecorder()
		RespondJSON(resp, make(chan bool), nil)
		require.Equal(t, http.StatusInternalServerError, resp.Code)
		testutil.RequireEmptyBodyInRecorder(t, resp)

		resp = httptest.NewRecorder()
		logger := logtest.NewRecorder()
		RespondJSON(resp, make(chan bool), logger)
		require.Equal(t, http.StatusInternalServerError, resp.Code)
		testutil.RequireEmptyBodyInRecorder(t, resp)
		require.Equal(t, 1, len(logger.Entries()))
		require.Equal(t, log.LevelError, logger.Entries()[0].Level)
	})

	t.Run("writing error", func(t *testing.T) {
		resp := &responseRecorderReturnedErrorOnWrite{httptest.NewRecorder()}
		logger := logtest.NewRecorder()
		RespondJSON(resp, "foo", logger)
		require.Equal(t, 1, len(logger.Entries()))
		require.Equal(t, log.LevelError, logger.Entries()[0].Level)
	})

	t.Run("change Content-Type", func(t *testing.T) {
		resp := httptest.NewRecorder()
		resp.Header().Set("Content-Type", "application/vnd.discogs.v2+json")
		RespondJSON(resp, "nothing", nil)
		require.Equal(t, "application/vnd.discogs.v2+json", resp.Header().Get("Content-Type"))
	})

	t.Run("nil data", func(t *testing.T) {
		resp := httptest.NewRecorder()
		RespondCodeAndJSON(resp, http.StatusNoContent, nil, nil)
		require.Equal(t, http.StatusNoContent, resp.Code)
		require.Empty(t, resp.Header().Get("Content-Type"))
		testutil.RequireEmptyBodyInRecorder(t, resp)
	})
}

func TestRespondCodeAndRawJSON(t *testing.T) {
	resp := httptest.NewRecorder()
	RespondCodeAndRawJSON(resp, http.StatusOK, []byte(`{"search":[{"id":"o2Zr","tempo":"113"}]}`), nil)
	require.Equal(t, http.StatusOK, resp.Code)
	testutil.RequireStringJSONInRecorder(t, resp, `{"search":[{"id":"o2Zr","tempo":"113"}]}`)
}

func TestRespondError(t *testing.T) {
	tests := []struct {
		name           string
		httpStatusCode int
		apiErr         *Error
		useLogger      bool
		wantLevel      log.Level
	}{
		{
			name:           "without logging",
			httpStatusCode: http.StatusInternalServerError,
			apiErr:         NewInternalError("serviceA"),
		},
		{
			name:           "server error is logged as error",
			httpStatusCode: http.StatusBadGateway,
			apiErr:         NewErrorFromStatus("serviceB", http.StatusBadGateway, "Upstream error."),
			useLogger:      true,
			wantLevel:      log.LevelError,
		},
		{
			name:           "client error is logged as warning",
			httpStatusCode: http.StatusBadRequest,
			apiErr:         NewInvalidParameterError("serviceC", "page", "page must be a positive integer."),
			useLogger:      true,
			wantLevel:      log.LevelWarn,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			MustInitAndRegisterMetrics("")
			defer UnregisterMetrics()

			var logger *logtest.Recorder
			resp := httptest.NewRecorder()
			if tt.useLogger {
				logger = logtest.NewRecorder()
				RespondError(resp, tt.httpStatusCode, tt.apiErr, logger)
			} else {
				RespondError(resp, tt.httpStatusCode, tt.apiErr, nil)
			}

			testutil.RequireErrorInRecorder(t, resp, tt.httpStatusCode, tt.apiErr.Domain, tt.apiErr.Code)

			if logger != nil {
				require.Equal(t, 1, len(logger.Entries()))
				logEntry := logger.Entries()[0]
				require.Equal(t, tt.wantLevel, logEntry.Level)
				logField, found := logEntry.FindField("error_code")
				require.True(t, found)
				require.Equal(t, tt.apiErr.Code, string(logField.Bytes))
				if tt.apiErr.Context != nil {
					_, found = logEntry.FindField("error_context")
					require.True(t, found)
				}
			}

			testutil.RequireSamplesCountInCounter(t, responseErrors.Load().WithLabelValues(tt.apiErr.Domain, tt.apiErr.Code), 1)
		})
	}
}

func TestRespondInternalError(t *testing.T) {
	resp := httptest.NewRecorder()
	RespondInternalError(resp, testDomain, nil)
	testutil.RequireErrorInRecorder(t, resp, http.StatusInternalServerError, testDomain, "internalError")
}
