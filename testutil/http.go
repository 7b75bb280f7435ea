/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package testutil

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"

	"github.com/stretchr/testify/require"
)

const contentTypeJSON = "application/json"

// httpResult is the part of the response the assertions look at.
type httpResult struct {
	code   int
	header http.Header
	body   io.Reader
}

func fromRecorder(rec *httptest.ResponseRecorder) httpResult {
	return httpResult{rec.Code, rec.Header(), rec.Body}
}

func fromResponse(resp *http.Response) httpResult {
	return httpResult{resp.StatusCode, resp.Header, resp.Body}
}

func (r httpResult) readJSON(t require.TestingT) []byte {
	helper(t)
	require.Equal(t, contentTypeJSON, r.header.Get("Content-Type"))
	data, err := io.ReadAll(r.body)
	require.NoError(t, err)
	return data
}

func (r httpResult) requireError(t require.TestingT, wantHTTPCode int, wantDomain, wantCode string) {
	helper(t)
	require.Equal(t, wantHTTPCode, r.code)
	var resp struct {
		Error struct {
			Domain string `json:"domain"`
			Code   string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(r.readJSON(t), &resp))
	require.Equal(t, wantDomain, resp.Error.Domain)
	require.Equal(t, wantCode, resp.Error.Code)
}

// RequireErrorInRecorder asserts that the recorded response has the HTTP code
// and the {"error": {"domain": "...", "code": "..."}} JSON body.
func RequireErrorInRecorder(t require.TestingT, rec *httptest.ResponseRecorder, wantHTTPCode int, wantErrDomain, wantErrCode string) {
	helper(t)
	fromRecorder(rec).requireError(t, wantHTTPCode, wantErrDomain, wantErrCode)
}

// RequireErrorInResponse is the same as RequireErrorInRecorder but for http.Response.
func RequireErrorInResponse(t require.TestingT, resp *http.Response, wantHTTPCode int, wantErrDomain, wantErrCode string) {
	helper(t)
	fromResponse(resp).requireError(t, wantHTTPCode, wantErrDomain, wantErrCode)
}

// RequireJSONInRecorder asserts that the recorded JSON body is decoded into dest equal to want.
func RequireJSONInRecorder(t require.TestingT, rec *httptest.ResponseRecorder, want, dest interface{}) {
	helper(t)
	require.NoError(t, json.Unmarshal(fromRecorder(rec).readJSON(t), dest))
	require.Equal(t, want, dest)
}

// RequireStringJSONInRecorder asserts that the recorded body is JSON equivalent to want.
func RequireStringJSONInRecorder(t require.TestingT, rec *httptest.ResponseRecorder, want string) {
	helper(t)
	require.JSONEq(t, want, string(fromRecorder(rec).readJSON(t)))
}

// RequireStringJSONInResponse asserts that the response body is JSON equivalent to want.
func RequireStringJSONInResponse(t require.TestingT, resp *http.Response, want string) {
	helper(t)
	require.JSONEq(t, want, string(fromResponse(resp).readJSON(t)))
}

// RequireEmptyBodyInRecorder asserts that the recorded body is empty.
func RequireEmptyBodyInRecorder(t require.TestingT, rec *httptest.ResponseRecorder) {
	helper(t)
	require.Zero(t, rec.Body.Len())
}

// RequireRetryAfterInRecorder asserts that the Retry-After header holds the number of seconds.
func RequireRetryAfterInRecorder(t require.TestingT, rec *httptest.ResponseRecorder, wantSeconds int) {
	helper(t)
	got, err := strconv.Atoi(rec.Header().Get("Retry-After"))
	require.NoError(t, err, "Retry-After header should contain a number of seconds")
	require.Equal(t, wantSeconds, got)
}
