/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package httpclient

import (
	"bytes"
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vinyldash/vinylgw/config"
	"github.com/vinyldash/vinylgw/httpserver/middleware"
	"github.com/vinyldash/vinylgw/log/logtest"
)

func TestNewWithOpts(t *testing.T) {
	server := echoServer(t, http.StatusOK)

	cfg := NewDefaultConfig()
	cfg.UserAgent = "vinylgw/1.0 +https://vinyldash.example"
	cfg.Auth = AuthConfig{Token: "secret", QueryParam: "api_key"}
	logger := logtest.NewRecorder()
	collector := NewPrometheusMetricsCollector("")

	client := NewWithOpts(cfg, Opts{RequestType: "songbpm", Collector: collector})
	require.Equal(t, DefaultClientWaitTimeout, client.Timeout)

	ctx := middleware.NewContextWithLogger(context.Background(), logger)
	ctx = middleware.NewContextWithRequestID(ctx, "req-1")
	resp := doGet(t, ctx, client, server.URL+"/song/?id=42")

	require.Equal(t, "api_key=secret&id=42", resp.Header.Get("X-Echo-Query"))
	require.Equal(t, "req-1", resp.Header.Get("X-Echo-X-Request-Id"))
	require.Equal(t, "vinylgw/1.0 +https://vinyldash.example", resp.Header.Get("X-Echo-User-Agent"))

	require.Len(t, logger.Entries(), 1)
	urlField, found := logger.Entries()[0].FindField("url")
	require.True(t, found)
	require.NotContains(t, string(urlField.Bytes), "secret")
}

func TestConfig(t *testing.T) {
	cfg := NewConfigWithKeyPrefix("upstreams.discogs")
	err := config.NewLoader(config.NewViperAdapter()).LoadFromReader(bytes.NewBufferString(`
upstreams:
  discogs:
    timeout: 5s
    userAgent: vinylgw/1.0
    log:
      mode: failed
      slowRequestThreshold: 1s
    metrics:
      enabled: false
    auth:
      token: abc
      scheme: "Discogs token="
`), config.DataTypeYAML, cfg)
	require.NoError(t, err)

	want := NewDefaultConfig()
	want.keyPrefix = "upstreams.discogs"
	want.Timeout = 5 * time.Second
	want.UserAgent = "vinylgw/1.0"
	want.Log = LogConfig{Enabled: true, Mode: LoggingModeFailed, SlowRequestThreshold: time.Second}
	want.Metrics.Enabled = false
	want.Auth = AuthConfig{Token: "abc", Header: "Authorization", Scheme: "Discogs token="}
	require.Equal(t, want, cfg)

	cfg = NewConfig()
	err = config.NewLoader(config.NewViperAdapter()).LoadFromReader(
		bytes.NewBufferString("log:\n  mode: verbose\n"), config.DataTypeYAML, cfg)
	require.ErrorContains(t, err, "log.mode")
}
