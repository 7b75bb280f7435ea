/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ssgreg/logf"
	"github.com/stretchr/testify/require"

	"github.com/vinyldash/vinylgw/log"
	"github.com/vinyldash/vinylgw/log/logtest"
)

func requireStringField(t *testing.T, entry logtest.RecordedEntry, key, want string) {
	t.Helper()
	field, found := entry.FindField(key)
	require.True(t, found, "field %q is not found", key)
	require.Equal(t, want, string(field.Bytes))
}

func findCompletedEntry(rec *logtest.Recorder) (logtest.RecordedEntry, bool) {
	return rec.FindEntryByFilter(func(e logtest.RecordedEntry) bool {
		return strings.HasPrefix(e.Text, "response completed in ")
	})
}

func TestLogging(t *testing.T) {
	rec := logtest.NewRecorder()
	var handlerLogger log.FieldLogger
	handler := LoggingWithOpts(rec, LoggingOpts{
		RequestStart:      true,
		RequestHeaders:    map[string]string{"X-Client": "req_header_x_client"},
		SecretQueryParams: []string{"token"},
	})(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		handlerLogger = GetLoggerFromContext(r.Context())
		GetLoggingParamsFromContext(r.Context()).ExtendFields(log.String("cache_status", "HIT"))
		rw.WriteHeader(http.StatusAccepted)
		_, _ = rw.Write([]byte("queued"))
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/vinylgw/v1/releases/1?token=secret&page=2", nil)
	req.Header.Set("X-Client", "turntable")
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	req = req.WithContext(NewContextWithRequestID(req.Context(), "req-1"))
	handler.ServeHTTP(httptest.NewRecorder(), req)

	require.NotNil(t, handlerLogger)
	_, found := rec.FindEntry("request started")
	require.True(t, found)

	entry, found := findCompletedEntry(rec)
	require.True(t, found)
	requireStringField(t, entry, "request_id", "req-1")
	requireStringField(t, entry, "method", http.MethodGet)
	requireStringField(t, entry, "uri", "/api/vinylgw/v1/releases/1?page=2&token="+LoggingSecretQueryPlaceholder)
	requireStringField(t, entry, "origin_addr", "203.0.113.7")
	requireStringField(t, entry, "req_header_x_client", "turntable")
	requireStringField(t, entry, "cache_status", "HIT")
	status, found := entry.FindField("status")
	require.True(t, found)
	require.EqualValues(t, http.StatusAccepted, status.Int)
	bytesSent, found := entry.FindField("bytes_sent")
	require.True(t, found)
	require.EqualValues(t, len("queued"), bytesSent.Int)
	_, found = entry.FindField("time_slots")
	require.False(t, found)
}

func TestLogging_ExcludedEndpoints(t *testing.T) {
	statusCode := http.StatusOK
	rec := logtest.NewRecorder()
	handler := LoggingWithOpts(rec, LoggingOpts{ExcludedEndpoints: []string{"/healthz"}})(
		http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) { rw.WriteHeader(statusCode) }))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Empty(t, rec.Entries())

	statusCode = http.StatusServiceUnavailable
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))
	_, found := findCompletedEntry(rec)
	require.True(t, found)
}

func TestLogging_SlowRequestTimeSlots(t *testing.T) {
	rec := logtest.NewRecorder()
	handler := LoggingWithOpts(rec, LoggingOpts{SlowRequestThreshold: time.Millisecond, AddRequestInfoToLogger: true})(
		http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
			lp := GetLoggingParamsFromContext(r.Context())
			lp.AddTimeSlotDurationInMs("upstream_wait_ms", time.Millisecond*30)
			lp.AddTimeSlotDurationInMs("upstream_wait_ms", time.Millisecond*20)
			time.Sleep(time.Millisecond * 5)
			GetLoggerFromContext(r.Context()).Info("fetching release")
		}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/releases/2", nil))

	entry, found := findCompletedEntry(rec)
	require.True(t, found)
	slotsField, found := entry.FindField("time_slots")
	require.True(t, found)
	require.Equal(t, logf.FieldTypeObject, slotsField.Type)
	require.Equal(t, timeSlots{"upstream_wait_ms": 50}, slotsField.Any)

	handlerEntry, found := rec.FindEntry("fetching release")
	require.True(t, found)
	requireStringField(t, handlerEntry, "uri", "/releases/2")
}
