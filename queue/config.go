/*
Copyright © 2025 The vinylgw Authors.

Released under MIT license.
*/

package queue

import (
	"fmt"
	"sort"
	"time"

	"github.com/vinyldash/vinylgw/config"
	"github.com/vinyldash/vinylgw/ratelimit"
)

const (
	cfgKeyBatchSize       = "queue.batchSize"
	cfgKeyMaxRetries      = "queue.maxRetries"
	cfgKeyBaseBackoff     = "queue.baseBackoff"
	cfgKeyMaxBackoff      = "queue.maxBackoff"
	cfgKeyInterBatchPause = "queue.interBatchPause"
	cfgKeyInFlightTTL     = "queue.inFlightTTL"
	cfgKeyResources       = "queue.resources"
)

// Default values of the queue parameters.
const (
	DefaultBatchSize       = 5
	DefaultMaxRetries      = 5
	DefaultBaseBackoff     = time.Second
	DefaultMaxBackoff      = time.Minute
	DefaultInterBatchPause = 100 * time.Millisecond
	DefaultInFlightTTL     = 5 * time.Minute
)

// ResourceConfig describes the rate limit of a single upstream resource.
type ResourceConfig struct {
	MaxRequests int           `mapstructure:"maxRequests"`
	Window      time.Duration `mapstructure:"window"`
}

// Config represents a set of configuration parameters for the Orchestrator.
type Config struct {
	BatchSize       int
	MaxRetries      int
	BaseBackoff     time.Duration
	MaxBackoff      time.Duration
	InterBatchPause time.Duration
	InFlightTTL     time.Duration
	Resources       map[string]ResourceConfig

	keyPrefix string
}

var _ config.Config = (*Config)(nil)
var _ config.KeyPrefixProvider = (*Config)(nil)

// NewConfig creates a new instance of the Config.
func NewConfig() *Config {
	return NewConfigWithKeyPrefix("")
}

// NewConfigWithKeyPrefix creates a new instance of the Config.
// Allows specifying key prefix which will be used for parsing configuration parameters.
func NewConfigWithKeyPrefix(keyPrefix string) *Config {
	return &Config{keyPrefix: keyPrefix}
}

// NewDefaultConfig returns the Config with default values and the default set of resources.
func NewDefaultConfig() *Config {
	return &Config{
		BatchSize:       DefaultBatchSize,
		MaxRetries:      DefaultMaxRetries,
		BaseBackoff:     DefaultBaseBackoff,
		MaxBackoff:      DefaultMaxBackoff,
		InterBatchPause: DefaultInterBatchPause,
		InFlightTTL:     DefaultInFlightTTL,
		Resources: map[string]ResourceConfig{
			"discogs": {MaxRequests: 25, Window: time.Minute},
			"songbpm": {MaxRequests: 50, Window: time.Minute},
		},
	}
}

// KeyPrefix returns a key prefix with which all configuration parameters should be presented.
func (c *Config) KeyPrefix() string {
	return c.keyPrefix
}

// SetProviderDefaults sets default configuration values for the queue in config.DataProvider.
func (c *Config) SetProviderDefaults(dp config.DataProvider) {
	dp.SetDefault(cfgKeyBatchSize, DefaultBatchSize)
	dp.SetDefault(cfgKeyMaxRetries, DefaultMaxRetries)
	dp.SetDefault(cfgKeyBaseBackoff, DefaultBaseBackoff.String())
	dp.SetDefault(cfgKeyMaxBackoff, DefaultMaxBackoff.String())
	dp.SetDefault(cfgKeyInterBatchPause, DefaultInterBatchPause.String())
	dp.SetDefault(cfgKeyInFlightTTL, DefaultInFlightTTL.String())
	dp.SetDefault(cfgKeyResources, map[string]interface{}{
		"discogs": map[string]interface{}{"maxRequests": 25, "window": "60s"},
		"songbpm": map[string]interface{}{"maxRequests": 50, "window": "60s"},
	})
}

// Set sets queue configuration values from config.DataProvider.
func (c *Config) Set(dp config.DataProvider) error {
	var err error

	if c.BatchSize, err = dp.GetInt(cfgKeyBatchSize); err != nil {
		return err
	}
	if c.BatchSize <= 0 {
		return dp.WrapKeyErr(cfgKeyBatchSize, fmt.Errorf("must be positive"))
	}
	if c.MaxRetries, err = dp.GetInt(cfgKeyMaxRetries); err != nil {
		return err
	}
	if c.MaxRetries < 0 {
		return dp.WrapKeyErr(cfgKeyMaxRetries, fmt.Errorf("cannot be negative"))
	}

	for _, d := range []struct {
		key string
		dst *time.Duration
	}{
		{cfgKeyBaseBackoff, &c.BaseBackoff},
		{cfgKeyMaxBackoff, &c.MaxBackoff},
		{cfgKeyInterBatchPause, &c.InterBatchPause},
		{cfgKeyInFlightTTL, &c.InFlightTTL},
	} {
		if *d.dst, err = dp.GetDuration(d.key); err != nil {
			return err
		}
		if *d.dst < 0 {
			return dp.WrapKeyErr(d.key, fmt.Errorf("cannot be negative"))
		}
	}
	if c.MaxBackoff < c.BaseBackoff {
		return dp.WrapKeyErr(cfgKeyMaxBackoff, fmt.Errorf("must not be less than %s", cfgKeyBaseBackoff))
	}

	c.Resources = nil
	if err = dp.UnmarshalKey(cfgKeyResources, &c.Resources); err != nil {
		return err
	}
	for name, res := range c.Resources {
		if err = res.rate().Validate(); err != nil {
			return dp.WrapKeyErr(cfgKeyResources+"."+name, err)
		}
	}
	return nil
}

// Rates returns rate limits of the configured resources.
func (c *Config) Rates() map[string]ratelimit.Rate {
	rates := make(map[string]ratelimit.Rate, len(c.Resources))
	for name, res := range c.Resources {
		rates[name] = res.rate()
	}
	return rates
}

// ResourceNames returns sorted names of the configured resources.
func (c *Config) ResourceNames() []string {
	names := make([]string, 0, len(c.Resources))
	for name := range c.Resources {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r ResourceConfig) rate() ratelimit.Rate {
	return ratelimit.Rate{Count: r.MaxRequests, Duration: r.Window}
}
