/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

// Package restapi contains the error model and response helpers of the JSON API.
package restapi

import (
	"net/http"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Error is sent to clients as {"error": {...}}.
type Error struct {
	Domain  string                 `json:"domain"`
	Code    string                 `json:"code"`
	Message string                 `json:"message,omitempty"`
	Context map[string]interface{} `json:"context,omitempty"`
	Debug   map[string]interface{} `json:"debug,omitempty"`
}

// Error codes.
var (
	ErrCodeInternal         = "internalError"
	ErrCodeNotFound         = "notFound"
	ErrCodeMethodNotAllowed = "methodNotAllowed"
	ErrCodeInvalidParameter = "invalidParameter"
)

// Error messages.
var (
	ErrMessageInternal         = "Internal error."
	ErrMessageNotFound         = "Not found."
	ErrMessageMethodNotAllowed = "Method not allowed."
)

// NewError creates a new Error.
func NewError(domain, code, message string) *Error {
	return &Error{Domain: domain, Code: code, Message: message}
}

// NewErrorFromStatus creates a new Error with the code derived from the HTTP status
// (e.g. 502 -> "badGateway", 429 -> "tooManyRequests").
func NewErrorFromStatus(domain string, httpCode int, message string) *Error {
	return NewError(domain, errorCodeFromStatus(httpCode), message)
}

// NewInternalError creates a new internal error.
func NewInternalError(domain string) *Error {
	return NewError(domain, ErrCodeInternal, ErrMessageInternal)
}

// NewInvalidParameterError creates a new error about an invalid request parameter.
func NewInvalidParameterError(domain, param, message string) *Error {
	return NewError(domain, ErrCodeInvalidParameter, message).AddContext("parameter", param)
}

// AddContext adds a value to the error context.
func (e *Error) AddContext(field string, value interface{}) *Error {
	e.Context = setMapValue(e.Context, field, value)
	return e
}

// AddDebug adds a value to the debug info.
func (e *Error) AddDebug(field string, value interface{}) *Error {
	e.Debug = setMapValue(e.Debug, field, value)
	return e
}

func setMapValue(m map[string]interface{}, key string, value interface{}) map[string]interface{} {
	if m == nil {
		m = make(map[string]interface{})
	}
	m[key] = value
	return m
}

// errorCodeFromStatus converts the status text into lowerCamelCase.
func errorCodeFromStatus(httpCode int) string {
	if httpCode == http.StatusInternalServerError {
		return ErrCodeInternal
	}
	words := strings.Fields(http.StatusText(httpCode))
	for i, w := range words {
		w = strings.ToLower(w)
		if i > 0 {
			r, size := utf8.DecodeRuneInString(w)
			w = string(unicode.ToUpper(r)) + w[size:]
		}
		words[i] = w
	}
	return strings.Join(words, "")
}
