/*
Copyright © 2025 The vinylgw Authors.

Released under MIT license.
*/

package gateway

import (
	"errors"
	"time"

	"github.com/vinyldash/vinylgw/config"
)

const cfgDefaultKeyPrefix = "gateway"

const (
	cfgKeyDiscogsUsername   = "discogs.username"
	cfgKeyDiscogsMaxPerPage = "discogs.maxPerPage"
	cfgKeyTTLCollection     = "ttl.collection"
	cfgKeyTTLRelease        = "ttl.release"
	cfgKeyTTLTempoSearch    = "ttl.tempoSearch"
	cfgKeyTTLSong           = "ttl.song"
)

// Default cache TTLs of the data classes.
const (
	DefaultCollectionTTL  = 1800 * time.Second
	DefaultReleaseTTL     = 86400 * time.Second
	DefaultTempoSearchTTL = 3600 * time.Second
	DefaultSongTTL        = 86400 * time.Second
)

// DefaultMaxPerPage is the default upper bound of the collection page size.
const DefaultMaxPerPage = 100

var _ config.Config = (*Config)(nil)
var _ config.KeyPrefixProvider = (*Config)(nil)

// TTLConfig contains cache TTLs of upstream responses per data class.
type TTLConfig struct {
	Collection  time.Duration
	Release     time.Duration
	TempoSearch time.Duration
	Song        time.Duration
}

// Config represents a configuration of the gateway routes.
type Config struct {
	// DiscogsUsername is the owner of the record collection.
	DiscogsUsername string
	MaxPerPage      int
	TTL             TTLConfig

	keyPrefix string
}

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
	return &Config{
		keyPrefix:  cfgDefaultKeyPrefix,
		MaxPerPage: DefaultMaxPerPage,
		TTL: TTLConfig{
			Collection:  DefaultCollectionTTL,
			Release:     DefaultReleaseTTL,
			TempoSearch: DefaultTempoSearchTTL,
			Song:        DefaultSongTTL,
		},
	}
}

// KeyPrefix returns a key prefix with which all configuration parameters should be presented.
func (c *Config) KeyPrefix() string {
	return c.keyPrefix
}

// SetProviderDefaults is part of config interface implementation.
func (c *Config) SetProviderDefaults(dp config.DataProvider) {
	dp.SetDefault(cfgKeyDiscogsMaxPerPage, DefaultMaxPerPage)
	dp.SetDefault(cfgKeyTTLCollection, DefaultCollectionTTL.String())
	dp.SetDefault(cfgKeyTTLRelease, DefaultReleaseTTL.String())
	dp.SetDefault(cfgKeyTTLTempoSearch, DefaultTempoSearchTTL.String())
	dp.SetDefault(cfgKeyTTLSong, DefaultSongTTL.String())
}

// Set is part of config interface implementation.
func (c *Config) Set(dp config.DataProvider) error {
	var err error
	if c.DiscogsUsername, err = dp.GetString(cfgKeyDiscogsUsername); err != nil {
		return err
	}
	if c.DiscogsUsername == "" {
		return dp.WrapKeyErr(cfgKeyDiscogsUsername, errors.New("must not be empty"))
	}
	if c.MaxPerPage, err = dp.GetInt(cfgKeyDiscogsMaxPerPage); err != nil {
		return err
	}
	if c.MaxPerPage <= 0 {
		return dp.WrapKeyErr(cfgKeyDiscogsMaxPerPage, errors.New("must be positive"))
	}

	for _, ttl := range []struct {
		key string
		dst *time.Duration
	}{
		{cfgKeyTTLCollection, &c.TTL.Collection},
		{cfgKeyTTLRelease, &c.TTL.Release},
		{cfgKeyTTLTempoSearch, &c.TTL.TempoSearch},
		{cfgKeyTTLSong, &c.TTL.Song},
	} {
		if *ttl.dst, err = dp.GetDuration(ttl.key); err != nil {
			return err
		}
		if *ttl.dst <= 0 {
			return dp.WrapKeyErr(ttl.key, errors.New("must be positive"))
		}
	}
	return nil
}
