/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package config

import (
	"io"
)

// Loader fills configuration objects from a DataProvider.
// Defaults of all objects are set before any value is read, so objects sharing keys see each other's defaults.
type Loader struct {
	DataProvider DataProvider
}

// NewLoader creates a new Loader reading from dp.
func NewLoader(dp DataProvider) *Loader {
	return &Loader{DataProvider: dp}
}

// NewDefaultLoader creates a new Loader backed by viper. Environment variables take precedence over values
// from files: "upstreams.discogs.auth.token" is overridden by <PREFIX>_UPSTREAMS_DISCOGS_AUTH_TOKEN.
func NewDefaultLoader(envVarsPrefix string) *Loader {
	va := NewViperAdapter()
	va.UseEnvVars(envVarsPrefix)
	return NewLoader(va)
}

// LoadFromFile reads the file and sets configuration values in cfgs.
func (l *Loader) LoadFromFile(path string, dataType DataType, cfgs ...Config) error {
	return l.load(func(dp DataProvider) error { return dp.SetFromFile(path, dataType) }, cfgs)
}

// LoadFromReader reads data from reader and sets configuration values in cfgs.
func (l *Loader) LoadFromReader(reader io.Reader, dataType DataType, cfgs ...Config) error {
	return l.load(func(dp DataProvider) error { return dp.SetFromReader(reader, dataType) }, cfgs)
}

func (l *Loader) load(read func(dp DataProvider) error, cfgs []Config) error {
	if err := read(l.DataProvider); err != nil {
		return err
	}
	for _, cfg := range cfgs {
		cfg.SetProviderDefaults(dataProviderFor(cfg, l.DataProvider))
	}
	for _, cfg := range cfgs {
		if err := cfg.Set(dataProviderFor(cfg, l.DataProvider)); err != nil {
			return err
		}
	}
	return nil
}
