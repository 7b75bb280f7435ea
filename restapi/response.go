/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package restapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"

	"github.com/vinyldash/vinylgw/log"
)

// ContentTypeAppJSON is the MIME type of JSON.
const ContentTypeAppJSON = "application/json"

// ErrorResponseData is the body of an error response.
type ErrorResponseData struct {
	Err *Error `json:"error"`
}

func (e *ErrorResponseData) Error() string {
	return fmt.Sprintf("HTTP error occurs: %v", e.Err)
}

// RespondJSON sends the data as JSON with 200 status.
func RespondJSON(rw http.ResponseWriter, respData interface{}, logger log.FieldLogger) {
	RespondCodeAndJSON(rw, http.StatusOK, respData, logger)
}

// RespondCodeAndJSON sends the data as JSON with the status code. Nil data means an empty body.
// HTML characters are not escaped.
func RespondCodeAndJSON(rw http.ResponseWriter, statusCode int, respData interface{}, logger log.FieldLogger) {
	if respData == nil {
		rw.WriteHeader(statusCode)
		return
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(respData); err != nil {
		logError(logger, "marshal response body", err)
		rw.WriteHeader(http.StatusInternalServerError)
		return
	}
	RespondCodeAndRawJSON(rw, statusCode, bytes.TrimSuffix(buf.Bytes(), []byte("\n")), logger)
}

// RespondCodeAndRawJSON sends the already encoded JSON with the status code.
// Upstream responses and their cached copies are passed through this way.
// Content-Type set by the caller is kept.
func RespondCodeAndRawJSON(rw http.ResponseWriter, statusCode int, respJSON []byte, logger log.FieldLogger) {
	if rw.Header().Get("Content-Type") == "" {
		rw.Header().Set("Content-Type", ContentTypeAppJSON)
	}
	rw.WriteHeader(statusCode)
	if _, err := rw.Write(respJSON); err != nil {
		logError(logger, "write response body", err)
	}
}

// RespondError sends the error as {"error": {...}} with the status code.
// The error is logged (client errors at "warn" level) and counted in the response errors metric.
func RespondError(rw http.ResponseWriter, httpStatusCode int, err *Error, logger log.FieldLogger) {
	if logger != nil {
		logger.AtLevel(errorLogLevel(httpStatusCode), func(logFunc log.LogFunc) {
			logFunc("error in response", errorLogFields(err)...)
		})
	}
	countResponseError(err)
	RespondCodeAndJSON(rw, httpStatusCode, ErrorResponseData{err}, logger)
}

// RespondInternalError sends the internal error with 500 status.
func RespondInternalError(rw http.ResponseWriter, domain string, logger log.FieldLogger) {
	RespondError(rw, http.StatusInternalServerError, NewInternalError(domain), logger)
}

func errorLogLevel(httpStatusCode int) log.Level {
	if httpStatusCode >= http.StatusInternalServerError {
		return log.LevelError
	}
	return log.LevelWarn
}

func errorLogFields(err *Error) []log.Field {
	fields := []log.Field{log.String("error_code", err.Code), log.String("error_message", err.Message)}
	if len(err.Context) != 0 {
		lines := make([]string, 0, len(err.Context))
		for k, v := range err.Context {
			lines = append(lines, fmt.Sprintf("%s: %v", k, v))
		}
		sort.Strings(lines)
		fields = append(fields, log.Strings("error_context", lines))
	}
	return fields
}

func logError(logger log.FieldLogger, action string, err error) {
	if logger != nil {
		logger.Error(action+" failed", log.Error(err))
	}
}
