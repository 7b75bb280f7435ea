/*
Copyright © 2025 The vinylgw Authors.

Released under MIT license.
*/

package httpclient

import (
	"net/http"
)

// Credentials describes how an API token is passed to upstream.
// If QueryParam is set, the token is sent as a query parameter,
// otherwise it's sent in Header (Authorization by default) prefixed with Scheme.
type Credentials struct {
	Token      string
	Header     string
	Scheme     string
	QueryParam string
}

// IsEmpty reports whether there is no token to send.
func (c Credentials) IsEmpty() bool {
	return c.Token == ""
}

// CredentialsRoundTripper implements http.RoundTripper interface
// and adds the API token to all outgoing requests.
type CredentialsRoundTripper struct {
	Delegate    http.RoundTripper
	Credentials Credentials
}

// NewCredentialsRoundTripper creates a new CredentialsRoundTripper.
func NewCredentialsRoundTripper(delegate http.RoundTripper, creds Credentials) *CredentialsRoundTripper {
	if creds.Header == "" {
		creds.Header = "Authorization"
	}
	return &CredentialsRoundTripper{Delegate: delegate, Credentials: creds}
}

// RoundTrip executes a single HTTP transaction, returning a Response for the provided Request.
func (rt *CredentialsRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	if rt.Credentials.IsEmpty() {
		return rt.Delegate.RoundTrip(req)
	}

	req = req.Clone(req.Context()) // Per RoundTripper contract.
	if rt.Credentials.QueryParam != "" {
		query := req.URL.Query()
		query.Set(rt.Credentials.QueryParam, rt.Credentials.Token)
		req.URL.RawQuery = query.Encode()
		return rt.Delegate.RoundTrip(req)
	}

	if req.Header.Get(rt.Credentials.Header) != "" {
		return rt.Delegate.RoundTrip(req)
	}
	value := rt.Credentials.Token
	if rt.Credentials.Scheme != "" {
		value = rt.Credentials.Scheme + " " + value
	}
	req.Header.Set(rt.Credentials.Header, value)
	return rt.Delegate.RoundTrip(req)
}
