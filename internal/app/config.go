/*
Copyright © 2025 The vinylgw Authors.

Released under MIT license.
*/

package app

import (
	"bytes"
	"path/filepath"
	"strings"

	"github.com/vinyldash/vinylgw/cache"
	"github.com/vinyldash/vinylgw/config"
	"github.com/vinyldash/vinylgw/httpserver"
	"github.com/vinyldash/vinylgw/internal/gateway"
	"github.com/vinyldash/vinylgw/log"
	"github.com/vinyldash/vinylgw/profserver"
	"github.com/vinyldash/vinylgw/queue"
	"github.com/vinyldash/vinylgw/upstream"
)

// EnvVarsPrefix is a prefix of environment variables that override values from the configuration file
// (e.g. VINYLGW_UPSTREAMS_DISCOGS_AUTH_TOKEN).
const EnvVarsPrefix = "vinylgw"

// Config is the configuration of the whole gateway service.
type Config struct {
	Log        *log.Config
	Server     *httpserver.Config
	ProfServer *profserver.Config
	Cache      *cache.Config
	Queue      *queue.Config
	Gateway    *gateway.Config
	Discogs    *upstream.Config
	SongBPM    *upstream.Config
}

var _ config.Config = (*Config)(nil)

// NewConfig creates a new instance of the Config.
func NewConfig() *Config {
	return &Config{
		Log:        log.NewConfig(),
		Server:     httpserver.NewConfig(),
		ProfServer: profserver.NewConfig(),
		Cache:      cache.NewConfig(),
		Queue:      queue.NewConfig(),
		Gateway:    gateway.NewConfig(),
		Discogs:    upstream.NewConfig(gateway.ResourceDiscogs),
		SongBPM:    upstream.NewConfig(gateway.ResourceSongBPM),
	}
}

// SetProviderDefaults is part of config interface implementation.
func (c *Config) SetProviderDefaults(dp config.DataProvider) {
	config.CallSetProviderDefaultsForFields(c, dp)
}

// Set is part of config interface implementation.
func (c *Config) Set(dp config.DataProvider) error {
	return config.CallSetForFields(c, dp)
}

// LoadConfigFromFile loads the configuration from the YAML or JSON file.
// Values may be overridden by environment variables with the VINYLGW_ prefix.
func LoadConfigFromFile(path string) (*Config, error) {
	cfg := NewConfig()
	dataType := config.DataTypeYAML
	if strings.EqualFold(filepath.Ext(path), ".json") {
		dataType = config.DataTypeJSON
	}
	if err := config.NewDefaultLoader(EnvVarsPrefix).LoadFromFile(path, dataType, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadConfigFromYAML loads the configuration from YAML data.
func LoadConfigFromYAML(data []byte) (*Config, error) {
	cfg := NewConfig()
	if err := config.NewDefaultLoader(EnvVarsPrefix).LoadFromReader(bytes.NewReader(data), config.DataTypeYAML, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
