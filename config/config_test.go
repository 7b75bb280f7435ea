/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package config

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type testUpstreamConfig struct {
	BaseURL string
	Timeout time.Duration

	keyPrefix string
}

func (c *testUpstreamConfig) KeyPrefix() string { return c.keyPrefix }

func (c *testUpstreamConfig) SetProviderDefaults(dp DataProvider) {
	dp.SetDefault("timeout", "30s")
}

func (c *testUpstreamConfig) Set(dp DataProvider) (err error) {
	if c.BaseURL, err = dp.GetString("baseURL"); err != nil {
		return err
	}
	if c.BaseURL == "" {
		return dp.WrapKeyErr("baseURL", errors.New("must not be empty"))
	}
	c.Timeout, err = dp.GetDuration("timeout")
	return err
}

type testQueueConfig struct {
	BatchSize int
	Resources map[string]struct {
		MaxRequests int
		Window      time.Duration
	}
}

func (c *testQueueConfig) SetProviderDefaults(dp DataProvider) {
	dp.SetDefault("queue.batchSize", 5)
}

func (c *testQueueConfig) Set(dp DataProvider) (err error) {
	if c.BatchSize, err = dp.GetInt("queue.batchSize"); err != nil {
		return err
	}
	return dp.UnmarshalKey("queue.resources", &c.Resources)
}

type testAppConfig struct {
	Discogs *testUpstreamConfig
	SongBPM *testUpstreamConfig
	Queue   *testQueueConfig
	Unused  *testUpstreamConfig
}

func newTestAppConfig() *testAppConfig {
	return &testAppConfig{
		Discogs: &testUpstreamConfig{keyPrefix: "upstreams.discogs"},
		SongBPM: &testUpstreamConfig{keyPrefix: "upstreams.songbpm"},
		Queue:   &testQueueConfig{},
	}
}

func (c *testAppConfig) SetProviderDefaults(dp DataProvider) { CallSetProviderDefaultsForFields(c, dp) }

func (c *testAppConfig) Set(dp DataProvider) error { return CallSetForFields(c, dp) }

const testAppConfigYAML = `
upstreams:
  discogs:
    baseURL: https://api.discogs.com
  songbpm:
    baseURL: https://api.getsong.co
    timeout: 5s
queue:
  resources:
    discogs:
      maxRequests: 25
      window: 60s
`

func TestLoader_LoadFromReader(t *testing.T) {
	cfg := newTestAppConfig()
	err := NewLoader(NewViperAdapter()).LoadFromReader(bytes.NewBufferString(testAppConfigYAML), DataTypeYAML, cfg)
	require.NoError(t, err)

	require.Equal(t, "https://api.discogs.com", cfg.Discogs.BaseURL)
	require.Equal(t, 30*time.Second, cfg.Discogs.Timeout)
	require.Equal(t, "https://api.getsong.co", cfg.SongBPM.BaseURL)
	require.Equal(t, 5*time.Second, cfg.SongBPM.Timeout)
	require.Equal(t, 5, cfg.Queue.BatchSize)
	require.Len(t, cfg.Queue.Resources, 1)
	require.Equal(t, 25, cfg.Queue.Resources["discogs"].MaxRequests)
	require.Equal(t, time.Minute, cfg.Queue.Resources["discogs"].Window)
	require.Nil(t, cfg.Unused)
}

func TestLoader_LoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
  "upstreams": {
    "discogs": {"baseURL": "https://api.discogs.com"},
    "songbpm": {"baseURL": "https://api.getsong.co", "timeout": 1000000000}
  },
  "queue": {"batchSize": 10}
}`), 0o600))

	cfg := newTestAppConfig()
	require.NoError(t, NewLoader(NewViperAdapter()).LoadFromFile(path, DataTypeJSON, cfg))
	require.Equal(t, time.Second, cfg.SongBPM.Timeout)
	require.Equal(t, 10, cfg.Queue.BatchSize)

	err := NewLoader(NewViperAdapter()).LoadFromFile(filepath.Join(t.TempDir(), "missing.json"), DataTypeJSON, cfg)
	require.Error(t, err)
}

func TestLoader_EnvVars(t *testing.T) {
	t.Setenv("VINYLGW_UPSTREAMS_SONGBPM_TIMEOUT", "2s")
	t.Setenv("VINYLGW_QUEUE_BATCHSIZE", "3")

	cfg := newTestAppConfig()
	err := NewDefaultLoader("vinylgw").LoadFromReader(bytes.NewBufferString(testAppConfigYAML), DataTypeYAML, cfg)
	require.NoError(t, err)
	require.Equal(t, 2*time.Second, cfg.SongBPM.Timeout)
	require.Equal(t, 3, cfg.Queue.BatchSize)
}

func TestLoader_Errors(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "error is wrapped with the prefixed key",
			yaml:    "upstreams:\n  discogs:\n    baseURL: https://api.discogs.com\n",
			wantErr: "upstreams.songbpm.baseURL: must not be empty",
		},
		{
			name: "invalid duration",
			yaml: "upstreams:\n  discogs:\n    baseURL: https://a.b\n    timeout: soon\n" +
				"  songbpm:\n    baseURL: https://c.d\n",
			wantErr: "upstreams.discogs.timeout",
		},
		{
			name: "invalid integer",
			yaml: "upstreams:\n  discogs:\n    baseURL: https://a.b\n  songbpm:\n    baseURL: https://c.d\n" +
				"queue:\n  batchSize: many\n",
			wantErr: "queue.batchSize",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewLoader(NewViperAdapter()).LoadFromReader(bytes.NewBufferString(tt.yaml), DataTypeYAML, newTestAppConfig())
			require.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestViperAdapter_Getters(t *testing.T) {
	va := NewViperAdapter()
	require.NoError(t, va.SetFromReader(bytes.NewBufferString(`
cache:
  backend: Redis
  maxSize: 64M
  maxSizeK8s: 1Mi
  maxSizeNum: 1024
  maxSizeNegative: -1
log:
  headers: [X-Request-ID, User-Agent]
`), DataTypeYAML))

	backend, err := va.GetStringFromSet("cache.backend", []string{"memory", "redis"}, true)
	require.NoError(t, err)
	require.Equal(t, "Redis", backend)
	_, err = va.GetStringFromSet("cache.backend", []string{"memory", "redis"}, false)
	require.EqualError(t, err, `cache.backend: unknown value "Redis", should be one of [memory redis]`)

	size, err := va.GetByteSize("cache.maxSize")
	require.NoError(t, err)
	require.Equal(t, ByteSize(64*1024*1024), size)
	size, err = va.GetByteSize("cache.maxSizeK8s")
	require.NoError(t, err)
	require.Equal(t, ByteSize(1024*1024), size)
	size, err = va.GetByteSize("cache.maxSizeNum")
	require.NoError(t, err)
	require.Equal(t, ByteSize(1024), size)
	_, err = va.GetByteSize("cache.maxSizeNegative")
	require.ErrorContains(t, err, "cache.maxSizeNegative")
	size, err = va.GetByteSize("cache.missing")
	require.NoError(t, err)
	require.Zero(t, size)

	headers, err := va.GetStringSlice("log.headers")
	require.NoError(t, err)
	require.Equal(t, []string{"X-Request-ID", "User-Agent"}, headers)
	headers, err = va.GetStringSlice("log.missing")
	require.NoError(t, err)
	require.Nil(t, headers)

	dur, err := va.GetDuration("log.missing")
	require.NoError(t, err)
	require.Zero(t, dur)

	require.True(t, va.IsSet("cache.backend"))
	require.False(t, va.IsSet("cache.redis"))
}

func TestKeyPrefixedDataProvider(t *testing.T) {
	va := NewViperAdapter()
	dp := NewKeyPrefixedDataProvider(va, "upstreams.discogs")

	dp.SetDefault("auth.header", "Authorization")
	dp.Set("userAgent", "vinylgw/1.0")
	require.Equal(t, "Authorization", va.Get("upstreams.discogs.auth.header"))
	require.Equal(t, "vinylgw/1.0", va.Get("upstreams.discogs.userAgent"))

	ua, err := dp.GetString("userAgent")
	require.NoError(t, err)
	require.Equal(t, "vinylgw/1.0", ua)
	require.True(t, dp.IsSet("userAgent"))

	require.EqualError(t, dp.WrapKeyErr("baseURL", errors.New("must not be empty")),
		"upstreams.discogs.baseURL: must not be empty")

	nested := NewKeyPrefixedDataProvider(NewKeyPrefixedDataProvider(va, "upstreams"), "songbpm")
	nested.Set("timeout", "3s")
	timeout, err := va.GetDuration("upstreams.songbpm.timeout")
	require.NoError(t, err)
	require.Equal(t, 3*time.Second, timeout)
}
