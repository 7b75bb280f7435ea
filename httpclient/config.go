/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package httpclient

import (
	"errors"
	"time"

	"github.com/vinyldash/vinylgw/config"
)

const (
	// DefaultClientWaitTimeout is a default timeout for a client to wait for a request.
	DefaultClientWaitTimeout = 10 * time.Second

	cfgKeyTimeout                 = "timeout"
	cfgKeyUserAgent               = "userAgent"
	cfgKeyLogEnabled              = "log.enabled"
	cfgKeyLogMode                 = "log.mode"
	cfgKeyLogSlowRequestThreshold = "log.slowRequestThreshold"
	cfgKeyMetricsEnabled          = "metrics.enabled"
	cfgKeyAuthToken               = "auth.token"
	cfgKeyAuthHeader              = "auth.header"
	cfgKeyAuthScheme              = "auth.scheme"
	cfgKeyAuthQueryParam          = "auth.queryParam"
)

var _ config.Config = (*Config)(nil)
var _ config.KeyPrefixProvider = (*Config)(nil)

// LogConfig represents configuration options for HTTP client logs.
type LogConfig struct {
	Enabled              bool
	Mode                 LoggingMode
	SlowRequestThreshold time.Duration
}

// MetricsConfig represents configuration options for HTTP client metrics.
type MetricsConfig struct {
	Enabled bool
}

// AuthConfig represents configuration of the credentials sent to upstream.
type AuthConfig struct {
	Token      string
	Header     string
	Scheme     string
	QueryParam string
}

// Credentials converts the configuration to Credentials.
func (c AuthConfig) Credentials() Credentials {
	return Credentials{Token: c.Token, Header: c.Header, Scheme: c.Scheme, QueryParam: c.QueryParam}
}

// Config represents options for HTTP client configuration.
type Config struct {
	// Timeout is the maximum time to wait for a request to be made.
	Timeout time.Duration

	// UserAgent is set in all outgoing requests if not empty.
	UserAgent string

	Log     LogConfig
	Metrics MetricsConfig
	Auth    AuthConfig

	keyPrefix string
}

// NewConfig creates a new instance of the Config.
func NewConfig() *Config {
	return NewConfigWithKeyPrefix("")
}

// NewConfigWithKeyPrefix creates a new instance of the Config.
// Allows specifying key prefix which will be used for parsing configuration parameters.
func NewConfigWithKeyPrefix(keyPrefix string) *Config {
	return &Config{keyPrefix: keyPrefix}
}

// NewDefaultConfig returns the Config with default values.
func NewDefaultConfig() *Config {
	return &Config{
		Timeout: DefaultClientWaitTimeout,
		Log:     LogConfig{Enabled: true, Mode: LoggingModeAll},
		Metrics: MetricsConfig{Enabled: true},
		Auth:    AuthConfig{Header: "Authorization"},
	}
}

// KeyPrefix returns a key prefix with which all configuration parameters should be presented.
func (c *Config) KeyPrefix() string {
	return c.keyPrefix
}

// SetProviderDefaults is part of config interface implementation.
func (c *Config) SetProviderDefaults(dp config.DataProvider) {
	dp.SetDefault(cfgKeyTimeout, DefaultClientWaitTimeout.String())
	dp.SetDefault(cfgKeyUserAgent, "")
	dp.SetDefault(cfgKeyLogEnabled, true)
	dp.SetDefault(cfgKeyLogMode, string(LoggingModeAll))
	dp.SetDefault(cfgKeyLogSlowRequestThreshold, "0s")
	dp.SetDefault(cfgKeyMetricsEnabled, true)
	dp.SetDefault(cfgKeyAuthToken, "")
	dp.SetDefault(cfgKeyAuthHeader, "Authorization")
	dp.SetDefault(cfgKeyAuthScheme, "")
	dp.SetDefault(cfgKeyAuthQueryParam, "")
}

// Set is part of config interface implementation.
func (c *Config) Set(dp config.DataProvider) error {
	var err error

	if c.Timeout, err = dp.GetDuration(cfgKeyTimeout); err != nil {
		return err
	}
	if c.Timeout < 0 {
		return dp.WrapKeyErr(cfgKeyTimeout, errors.New("client timeout can not be negative"))
	}
	if c.UserAgent, err = dp.GetString(cfgKeyUserAgent); err != nil {
		return err
	}

	if c.Log.Enabled, err = dp.GetBool(cfgKeyLogEnabled); err != nil {
		return err
	}
	mode, err := dp.GetString(cfgKeyLogMode)
	if err != nil {
		return err
	}
	if c.Log.Mode = LoggingMode(mode); !c.Log.Mode.IsValid() {
		return dp.WrapKeyErr(cfgKeyLogMode, errors.New("client logger invalid mode, choose one of: [none, all, failed]"))
	}
	if c.Log.SlowRequestThreshold, err = dp.GetDuration(cfgKeyLogSlowRequestThreshold); err != nil {
		return err
	}
	if c.Log.SlowRequestThreshold < 0 {
		return dp.WrapKeyErr(cfgKeyLogSlowRequestThreshold, errors.New("client logger slow request threshold can not be negative"))
	}

	if c.Metrics.Enabled, err = dp.GetBool(cfgKeyMetricsEnabled); err != nil {
		return err
	}

	if c.Auth.Token, err = dp.GetString(cfgKeyAuthToken); err != nil {
		return err
	}
	if c.Auth.Header, err = dp.GetString(cfgKeyAuthHeader); err != nil {
		return err
	}
	if c.Auth.Scheme, err = dp.GetString(cfgKeyAuthScheme); err != nil {
		return err
	}
	if c.Auth.QueryParam, err = dp.GetString(cfgKeyAuthQueryParam); err != nil {
		return err
	}
	return nil
}
