/*
Copyright © 2025 The vinylgw Authors.

Released under MIT license.
*/

package upstream

import (
	"github.com/vinyldash/vinylgw/config"
	"github.com/vinyldash/vinylgw/httpclient"
)

const cfgKeyBaseURL = "baseURL"

var _ config.Config = (*Config)(nil)
var _ config.KeyPrefixProvider = (*Config)(nil)

// Config represents a configuration of one upstream: its base URL and the HTTP client settings.
type Config struct {
	BaseURL string
	HTTP    *httpclient.Config

	keyPrefix string
}

// NewConfig creates a new instance of the Config for the named upstream.
// Parameters are read from "upstreams.<name>" section.
func NewConfig(name string) *Config {
	return NewConfigWithKeyPrefix("upstreams." + name)
}

// NewConfigWithKeyPrefix creates a new instance of the Config.
// Allows specifying key prefix which will be used for parsing configuration parameters.
func NewConfigWithKeyPrefix(keyPrefix string) *Config {
	return &Config{HTTP: httpclient.NewConfig(), keyPrefix: keyPrefix}
}

// KeyPrefix returns a key prefix with which all configuration parameters should be presented.
func (c *Config) KeyPrefix() string {
	return c.keyPrefix
}

// SetProviderDefaults is part of config interface implementation.
func (c *Config) SetProviderDefaults(dp config.DataProvider) {
	dp.SetDefault(cfgKeyBaseURL, "")
	config.CallSetProviderDefaultsForFields(c, dp)
}

// Set is part of config interface implementation.
func (c *Config) Set(dp config.DataProvider) error {
	var err error
	if c.BaseURL, err = dp.GetString(cfgKeyBaseURL); err != nil {
		return err
	}
	if _, err = parseBaseURL(c.BaseURL); err != nil {
		return dp.WrapKeyErr(cfgKeyBaseURL, err)
	}
	return config.CallSetForFields(c, dp)
}
