/*
Copyright © 2025 The vinylgw Authors.

Released under MIT license.
*/

package upstream

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/vinyldash/vinylgw/httpclient"
	"github.com/vinyldash/vinylgw/queue"
)

// maxErrorBodySize limits how much of a non-2xx response body is kept in StatusError.
const maxErrorBodySize = 512

// Request describes a call to upstream.
type Request struct {
	Method string
	// Path is resolved against the base URL of the Client.
	Path   string
	Query  url.Values
	Header http.Header
	Body   []byte
	// DedupeKey identifies logically identical requests. If empty, it's derived from method, URL and body.
	DedupeKey string
}

// Response is a successful (2xx) upstream response with the body fully read.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Text returns the response body as a string.
func (r *Response) Text() string {
	return string(r.Body)
}

// DecodeJSON unmarshals the response body into v.
func (r *Response) DecodeJSON(v interface{}) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("decode response body: %w", err)
	}
	return nil
}

// ClientOpts represents options for the Client.
type ClientOpts struct {
	// HTTPClient is used to send requests. http.DefaultClient is used by default.
	HTTPClient *http.Client
	// Now is used for resolving Retry-After dates. time.Now is used by default.
	Now func() time.Time
}

// Client sends requests to one upstream resource through the Orchestrator.
type Client struct {
	Resource     string
	BaseURL      *url.URL
	HTTP         *http.Client
	Orchestrator *queue.Orchestrator

	now func() time.Time
}

// NewClient creates a new Client for the resource registered in the Orchestrator.
func NewClient(resource, baseURL string, orchestrator *queue.Orchestrator) (*Client, error) {
	return NewClientWithOpts(resource, baseURL, orchestrator, ClientOpts{})
}

// NewClientWithOpts creates a new Client with options.
func NewClientWithOpts(resource, baseURL string, orchestrator *queue.Orchestrator, opts ClientOpts) (*Client, error) {
	if orchestrator == nil {
		return nil, fmt.Errorf("orchestrator is required for upstream %q", resource)
	}
	if !orchestrator.Limiter().Has(resource) {
		return nil, fmt.Errorf("upstream %q is not registered in the rate limiter", resource)
	}
	u, err := parseBaseURL(baseURL)
	if err != nil {
		return nil, fmt.Errorf("upstream %q: %w", resource, err)
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Client{Resource: resource, BaseURL: u, HTTP: opts.HTTPClient, Orchestrator: orchestrator, now: opts.Now}, nil
}

// Fetch sends the request through the Orchestrator and waits for the outcome.
// Concurrent calls with the same dedupe key share one upstream call.
// ctx bounds the wait only; its values (logger, request id) are passed to the upstream call.
func (c *Client) Fetch(ctx context.Context, req Request) (*Response, error) {
	target := c.URL(req.Path, req.Query)
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	dedupeKey := req.DedupeKey
	if dedupeKey == "" {
		dedupeKey = DefaultDedupeKey(c.Resource, method, target, req.Body)
	}
	valuesCtx := context.WithoutCancel(ctx)
	return queue.Do(ctx, c.Orchestrator, c.Resource, dedupeKey, func(runCtx context.Context) (*Response, error) {
		callCtx, cancel := context.WithCancel(valuesCtx)
		defer cancel()
		stop := context.AfterFunc(runCtx, cancel)
		defer stop()
		return c.do(callCtx, method, target, req.Header, req.Body)
	})
}

// URL resolves the path and the query against the base URL.
func (c *Client) URL(path string, query url.Values) string {
	u := *c.BaseURL
	u.Path = strings.TrimSuffix(u.Path, "/") + "/" + strings.TrimPrefix(path, "/")
	u.RawPath = ""
	if len(query) != 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

func (c *Client) do(ctx context.Context, method, target string, header http.Header, body []byte) (*Response, error) {
	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, target, bodyReader)
	if err != nil {
		return nil, &TransportError{Resource: c.Resource, Method: method, URL: target, Err: err}
	}
	for name, values := range header {
		httpReq.Header[name] = append([]string(nil), values...)
	}
	if body != nil && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if httpReq.Header.Get("Accept") == "" {
		httpReq.Header.Set("Accept", "application/json")
	}

	resp, err := c.HTTP.Do(httpReq)
	if err != nil {
		return nil, &TransportError{Resource: c.Resource, Method: method, URL: httpReq.URL.Redacted(), Err: err}
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	// Status and headers are enough to classify the response, the body is read only when it's needed.
	if resp.StatusCode == http.StatusTooManyRequests {
		rlErr := &queue.RateLimitError{Resource: c.Resource, StatusCode: resp.StatusCode}
		rlErr.RetryAfter, rlErr.HasRetryAfter = ParseRetryAfter(resp.Header.Get("Retry-After"), c.now())
		return nil, rlErr
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		return nil, &StatusError{
			Resource:   c.Resource,
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       strings.TrimSpace(string(snippet)),
		}
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Resource: c.Resource, Method: method, URL: httpReq.URL.Redacted(),
			Err: fmt.Errorf("read response body: %w", err)}
	}
	return &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: respBody}, nil
}

// DefaultDedupeKey derives the dedupe key from the request method, URL and body.
func DefaultDedupeKey(resource, method, target string, body []byte) string {
	h := sha256.New()
	_, _ = io.WriteString(h, method+" "+target+"\n")
	_, _ = h.Write(body)
	return resource + ":" + hex.EncodeToString(h.Sum(nil))
}

func parseBaseURL(baseURL string) (*url.URL, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("base URL %q must be absolute http(s) URL", baseURL)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("base URL %q has no host", baseURL)
	}
	return u, nil
}

// FromConfigOpts represents options for NewClientFromConfig.
type FromConfigOpts struct {
	// Delegate is the transport under the httpclient round trippers chain.
	Delegate  http.RoundTripper
	Collector httpclient.MetricsCollector
	Now       func() time.Time
}

// NewClientFromConfig creates a new Client with the HTTP client built from the configuration.
func NewClientFromConfig(
	resource string, cfg *Config, orchestrator *queue.Orchestrator, opts FromConfigOpts,
) (*Client, error) {
	httpCfg := cfg.HTTP
	if httpCfg == nil {
		httpCfg = httpclient.NewDefaultConfig()
	}
	httpClient := httpclient.NewWithOpts(httpCfg, httpclient.Opts{
		RequestType: resource,
		Delegate:    opts.Delegate,
		Collector:   opts.Collector,
	})
	return NewClientWithOpts(resource, cfg.BaseURL, orchestrator, ClientOpts{HTTPClient: httpClient, Now: opts.Now})
}
