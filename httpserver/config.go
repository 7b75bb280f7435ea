/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package httpserver

import (
	"fmt"
	"time"

	"github.com/vinyldash/vinylgw/config"
)

const cfgDefaultKeyPrefix = "server"

const (
	cfgKeyAddress                 = "address"
	cfgKeyTLSEnabled              = "tls.enabled"
	cfgKeyTLSCert                 = "tls.cert"
	cfgKeyTLSKey                  = "tls.key"
	cfgKeyTimeoutsWrite           = "timeouts.write"
	cfgKeyTimeoutsRead            = "timeouts.read"
	cfgKeyTimeoutsReadHeader      = "timeouts.readHeader"
	cfgKeyTimeoutsIdle            = "timeouts.idle"
	cfgKeyTimeoutsShutdown        = "timeouts.shutdown"
	cfgKeyRateLimitEnabled        = "rateLimit.enabled"
	cfgKeyRateLimitMaxRequests    = "rateLimit.maxRequests"
	cfgKeyRateLimitWindow         = "rateLimit.window"
	cfgKeyRateLimitMaxKeys        = "rateLimit.maxKeys"
	cfgKeyLogRequestStart         = "log.requestStart"
	cfgKeyLogRequestHeaders       = "log.requestHeaders"
	cfgKeyLogExcludedEndpoints    = "log.excludedEndpoints"
	cfgKeyLogSecretQueryParams    = "log.secretQueryParams" // nolint:gosec // not a credential
	cfgKeyLogAddRequestInfo       = "log.addRequestInfo"
	cfgKeyLogSlowRequestThreshold = "log.slowRequestThreshold"
)

// Default values of the server parameters.
const (
	DefaultAddress              = ":8080"
	DefaultWriteTimeout         = time.Minute
	DefaultReadTimeout          = time.Second * 15
	DefaultReadHeaderTimeout    = time.Second * 10
	DefaultIdleTimeout          = time.Minute
	DefaultShutdownTimeout      = time.Second * 5
	DefaultSlowRequestThreshold = time.Second
	DefaultRateLimitMaxRequests = 600
	DefaultRateLimitWindow      = time.Minute
	DefaultRateLimitMaxKeys     = 10000
)

// Config represents a set of configuration parameters for HTTPServer.
type Config struct {
	Address   string          `mapstructure:"address" yaml:"address" json:"address"`
	Timeouts  TimeoutsConfig  `mapstructure:"timeouts" yaml:"timeouts" json:"timeouts"`
	RateLimit RateLimitConfig `mapstructure:"rateLimit" yaml:"rateLimit" json:"rateLimit"`
	Log       LogConfig       `mapstructure:"log" yaml:"log" json:"log"`
	TLS       TLSConfig       `mapstructure:"tls" yaml:"tls" json:"tls"`

	keyPrefix string
}

// TimeoutsConfig contains timeouts of http.Server and the graceful shutdown timeout.
type TimeoutsConfig struct {
	Write      config.TimeDuration `mapstructure:"write" yaml:"write" json:"write"`
	Read       config.TimeDuration `mapstructure:"read" yaml:"read" json:"read"`
	ReadHeader config.TimeDuration `mapstructure:"readHeader" yaml:"readHeader" json:"readHeader"`
	Idle       config.TimeDuration `mapstructure:"idle" yaml:"idle" json:"idle"`
	Shutdown   config.TimeDuration `mapstructure:"shutdown" yaml:"shutdown" json:"shutdown"`
}

// RateLimitConfig configures limiting of incoming requests per client IP address.
type RateLimitConfig struct {
	Enabled     bool                `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	MaxRequests int                 `mapstructure:"maxRequests" yaml:"maxRequests" json:"maxRequests"`
	Window      config.TimeDuration `mapstructure:"window" yaml:"window" json:"window"`
	// MaxKeys is the maximum number of clients tracked at once.
	MaxKeys int `mapstructure:"maxKeys" yaml:"maxKeys" json:"maxKeys"`
}

// LogConfig configures logging of served requests.
type LogConfig struct {
	RequestStart           bool                `mapstructure:"requestStart" yaml:"requestStart" json:"requestStart"`
	RequestHeaders         []string            `mapstructure:"requestHeaders" yaml:"requestHeaders" json:"requestHeaders"`
	ExcludedEndpoints      []string            `mapstructure:"excludedEndpoints" yaml:"excludedEndpoints" json:"excludedEndpoints"`
	SecretQueryParams      []string            `mapstructure:"secretQueryParams" yaml:"secretQueryParams" json:"secretQueryParams"`
	AddRequestInfoToLogger bool                `mapstructure:"addRequestInfo" yaml:"addRequestInfo" json:"addRequestInfo"`
	SlowRequestThreshold   config.TimeDuration `mapstructure:"slowRequestThreshold" yaml:"slowRequestThreshold" json:"slowRequestThreshold"`
}

// TLSConfig contains paths to the certificate and the private key for serving HTTPS.
type TLSConfig struct {
	Enabled     bool   `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	Certificate string `mapstructure:"cert" yaml:"cert" json:"cert"`
	Key         string `mapstructure:"key" yaml:"key" json:"key"`
}

var _ config.Config = (*Config)(nil)
var _ config.KeyPrefixProvider = (*Config)(nil)

// NewConfig creates a new instance of the Config.
func NewConfig() *Config {
	return NewConfigWithKeyPrefix(cfgDefaultKeyPrefix)
}

// NewConfigWithKeyPrefix creates a new instance of the Config.
// Allows specifying key prefix which will be used for parsing configuration parameters.
func NewConfigWithKeyPrefix(keyPrefix string) *Config {
	return &Config{keyPrefix: keyPrefix}
}

// NewDefaultConfig creates a new instance of the Config with default values.
func NewDefaultConfig() *Config {
	cfg := NewConfig()
	cfg.Address = DefaultAddress
	cfg.Timeouts = TimeoutsConfig{
		Write:      config.TimeDuration(DefaultWriteTimeout),
		Read:       config.TimeDuration(DefaultReadTimeout),
		ReadHeader: config.TimeDuration(DefaultReadHeaderTimeout),
		Idle:       config.TimeDuration(DefaultIdleTimeout),
		Shutdown:   config.TimeDuration(DefaultShutdownTimeout),
	}
	cfg.RateLimit = RateLimitConfig{
		Enabled:     true,
		MaxRequests: DefaultRateLimitMaxRequests,
		Window:      config.TimeDuration(DefaultRateLimitWindow),
		MaxKeys:     DefaultRateLimitMaxKeys,
	}
	cfg.Log.SlowRequestThreshold = config.TimeDuration(DefaultSlowRequestThreshold)
	return cfg
}

// KeyPrefix returns a key prefix with which all configuration parameters should be presented.
func (c *Config) KeyPrefix() string {
	return c.keyPrefix
}

// SetProviderDefaults sets default configuration values for HTTPServer in config.DataProvider.
func (c *Config) SetProviderDefaults(dp config.DataProvider) {
	def := NewDefaultConfig()
	dp.SetDefault(cfgKeyAddress, def.Address)
	for key, d := range def.durations() {
		dp.SetDefault(key, time.Duration(*d).String())
	}
	dp.SetDefault(cfgKeyRateLimitEnabled, def.RateLimit.Enabled)
	dp.SetDefault(cfgKeyRateLimitMaxRequests, def.RateLimit.MaxRequests)
	dp.SetDefault(cfgKeyRateLimitMaxKeys, def.RateLimit.MaxKeys)
}

// durations maps configuration keys to the duration fields.
func (c *Config) durations() map[string]*config.TimeDuration {
	return map[string]*config.TimeDuration{
		cfgKeyTimeoutsWrite:           &c.Timeouts.Write,
		cfgKeyTimeoutsRead:            &c.Timeouts.Read,
		cfgKeyTimeoutsReadHeader:      &c.Timeouts.ReadHeader,
		cfgKeyTimeoutsIdle:            &c.Timeouts.Idle,
		cfgKeyTimeoutsShutdown:        &c.Timeouts.Shutdown,
		cfgKeyRateLimitWindow:         &c.RateLimit.Window,
		cfgKeyLogSlowRequestThreshold: &c.Log.SlowRequestThreshold,
	}
}

// Set sets HTTPServer configuration values from config.DataProvider.
func (c *Config) Set(dp config.DataProvider) error {
	var err error

	if c.Address, err = dp.GetString(cfgKeyAddress); err != nil {
		return err
	}
	if c.Address == "" {
		return dp.WrapKeyErr(cfgKeyAddress, fmt.Errorf("must not be empty"))
	}

	for key, dst := range c.durations() {
		var dur time.Duration
		if dur, err = dp.GetDuration(key); err != nil {
			return err
		}
		if dur < 0 {
			return dp.WrapKeyErr(key, fmt.Errorf("cannot be negative"))
		}
		*dst = config.TimeDuration(dur)
	}

	if err = c.setTLS(dp); err != nil {
		return err
	}
	if err = c.setRateLimit(dp); err != nil {
		return err
	}
	return c.setLog(dp)
}

func (c *Config) setTLS(dp config.DataProvider) error {
	var err error
	if c.TLS.Enabled, err = dp.GetBool(cfgKeyTLSEnabled); err != nil {
		return err
	}
	if c.TLS.Certificate, err = dp.GetString(cfgKeyTLSCert); err != nil {
		return err
	}
	if c.TLS.Key, err = dp.GetString(cfgKeyTLSKey); err != nil {
		return err
	}
	if c.TLS.Enabled && (c.TLS.Certificate == "" || c.TLS.Key == "") {
		return dp.WrapKeyErr(cfgKeyTLSKey, fmt.Errorf("both cert and key should be set"))
	}
	return nil
}

func (c *Config) setRateLimit(dp config.DataProvider) error {
	var err error
	if c.RateLimit.Enabled, err = dp.GetBool(cfgKeyRateLimitEnabled); err != nil {
		return err
	}
	if c.RateLimit.MaxRequests, err = dp.GetInt(cfgKeyRateLimitMaxRequests); err != nil {
		return err
	}
	if c.RateLimit.MaxKeys, err = dp.GetInt(cfgKeyRateLimitMaxKeys); err != nil {
		return err
	}
	if !c.RateLimit.Enabled {
		return nil
	}
	for key, v := range map[string]int64{
		cfgKeyRateLimitMaxRequests: int64(c.RateLimit.MaxRequests),
		cfgKeyRateLimitWindow:      int64(c.RateLimit.Window),
		cfgKeyRateLimitMaxKeys:     int64(c.RateLimit.MaxKeys),
	} {
		if v <= 0 {
			return dp.WrapKeyErr(key, fmt.Errorf("must be positive"))
		}
	}
	return nil
}

func (c *Config) setLog(dp config.DataProvider) error {
	var err error
	if c.Log.RequestStart, err = dp.GetBool(cfgKeyLogRequestStart); err != nil {
		return err
	}
	if c.Log.AddRequestInfoToLogger, err = dp.GetBool(cfgKeyLogAddRequestInfo); err != nil {
		return err
	}
	for key, dst := range map[string]*[]string{
		cfgKeyLogRequestHeaders:    &c.Log.RequestHeaders,
		cfgKeyLogExcludedEndpoints: &c.Log.ExcludedEndpoints,
		cfgKeyLogSecretQueryParams: &c.Log.SecretQueryParams,
	} {
		if *dst, err = dp.GetStringSlice(key); err != nil {
			return err
		}
	}
	return nil
}
