/*
Copyright © 2025 The vinylgw Authors.

Released under MIT license.
*/

package upstream

import (
	"errors"
	"fmt"
)

// StatusError is returned when upstream responds with a non-2xx status code other than 429.
type StatusError struct {
	Resource   string
	StatusCode int
	Status     string
	// Body is the beginning of the response body.
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: unexpected response status %q", e.Resource, e.Status)
	}
	return fmt.Sprintf("%s: unexpected response status %q: %s", e.Resource, e.Status, e.Body)
}

// TransportError is returned when the request cannot be sent or the response cannot be read.
type TransportError struct {
	Resource string
	Method   string
	URL      string
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %s %s: %v", e.Resource, e.Method, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// AsStatusError returns *StatusError from the error chain if there is one.
func AsStatusError(err error) (*StatusError, bool) {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr, true
	}
	return nil, false
}
