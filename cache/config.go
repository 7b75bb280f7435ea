/*
Copyright © 2025 The vinylgw Authors.

Released under MIT license.
*/

package cache

import (
	"fmt"
	"strings"
	"time"

	"github.com/vinyldash/vinylgw/config"
)

const (
	cfgKeyBackend              = "cache.backend"
	cfgKeyCleanupInterval      = "cache.cleanupInterval"
	cfgKeyMemoryMaxEntries     = "cache.memory.maxEntries"
	cfgKeyRedisAddress         = "cache.redis.address"
	cfgKeyRedisPassword        = "cache.redis.password"
	cfgKeyRedisDB              = "cache.redis.db"
	cfgKeyRedisKeyPrefix       = "cache.redis.keyPrefix"
	cfgKeyRedisDialTimeout     = "cache.redis.dialTimeout"
	cfgKeyRedisConnectAttempts = "cache.redis.connectAttempts"
	cfgKeySQLitePath           = "cache.sqlite.path"
)

// BackendType is a kind of cache storage.
type BackendType string

// Supported cache backends.
const (
	BackendTypeMemory BackendType = "memory"
	BackendTypeRedis  BackendType = "redis"
	BackendTypeSQLite BackendType = "sqlite"
	BackendTypeNone   BackendType = "none"
)

// MemoryConfig represents configuration of the in-memory backend.
type MemoryConfig struct {
	MaxEntries int
}

// RedisConfig represents configuration of the Redis backend.
type RedisConfig struct {
	Address         string
	Password        string
	DB              int
	KeyPrefix       string
	DialTimeout     time.Duration
	ConnectAttempts int
}

// SQLiteConfig represents configuration of the SQLite backend.
type SQLiteConfig struct {
	Path string
}

// Config represents a set of configuration parameters for the cache.
type Config struct {
	Backend         BackendType
	CleanupInterval time.Duration
	Memory          MemoryConfig
	Redis           RedisConfig
	SQLite          SQLiteConfig

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

// NewDefaultConfig returns the Config with default values.
func NewDefaultConfig() *Config {
	return &Config{
		Backend:         BackendTypeMemory,
		CleanupInterval: time.Minute,
		Memory:          MemoryConfig{MaxEntries: 10000},
		Redis: RedisConfig{
			Address:         "127.0.0.1:6379",
			KeyPrefix:       "vinylgw:",
			DialTimeout:     2 * time.Second,
			ConnectAttempts: 3,
		},
		SQLite: SQLiteConfig{Path: "vinylgw-cache.db"},
	}
}

// KeyPrefix returns a key prefix with which all configuration parameters should be presented.
func (c *Config) KeyPrefix() string {
	return c.keyPrefix
}

// SetProviderDefaults sets default configuration values for the cache in config.DataProvider.
func (c *Config) SetProviderDefaults(dp config.DataProvider) {
	def := NewDefaultConfig()
	dp.SetDefault(cfgKeyBackend, string(def.Backend))
	dp.SetDefault(cfgKeyCleanupInterval, def.CleanupInterval.String())
	dp.SetDefault(cfgKeyMemoryMaxEntries, def.Memory.MaxEntries)
	dp.SetDefault(cfgKeyRedisAddress, def.Redis.Address)
	dp.SetDefault(cfgKeyRedisPassword, "")
	dp.SetDefault(cfgKeyRedisDB, 0)
	dp.SetDefault(cfgKeyRedisKeyPrefix, def.Redis.KeyPrefix)
	dp.SetDefault(cfgKeyRedisDialTimeout, def.Redis.DialTimeout.String())
	dp.SetDefault(cfgKeyRedisConnectAttempts, def.Redis.ConnectAttempts)
	dp.SetDefault(cfgKeySQLitePath, def.SQLite.Path)
}

// Set sets cache configuration values from config.DataProvider.
func (c *Config) Set(dp config.DataProvider) error {
	backend, err := dp.GetStringFromSet(cfgKeyBackend, []string{
		string(BackendTypeMemory), string(BackendTypeRedis), string(BackendTypeSQLite), string(BackendTypeNone),
	}, true)
	if err != nil {
		return err
	}
	c.Backend = BackendType(strings.ToLower(backend))

	if c.CleanupInterval, err = dp.GetDuration(cfgKeyCleanupInterval); err != nil {
		return err
	}
	if c.CleanupInterval < 0 {
		return dp.WrapKeyErr(cfgKeyCleanupInterval, fmt.Errorf("cannot be negative"))
	}

	if c.Memory.MaxEntries, err = dp.GetInt(cfgKeyMemoryMaxEntries); err != nil {
		return err
	}
	if c.Backend == BackendTypeMemory && c.Memory.MaxEntries <= 0 {
		return dp.WrapKeyErr(cfgKeyMemoryMaxEntries, fmt.Errorf("must be positive"))
	}

	if c.Redis.Address, err = dp.GetString(cfgKeyRedisAddress); err != nil {
		return err
	}
	if c.Redis.Password, err = dp.GetString(cfgKeyRedisPassword); err != nil {
		return err
	}
	if c.Redis.DB, err = dp.GetInt(cfgKeyRedisDB); err != nil {
		return err
	}
	if c.Redis.KeyPrefix, err = dp.GetString(cfgKeyRedisKeyPrefix); err != nil {
		return err
	}
	if c.Redis.DialTimeout, err = dp.GetDuration(cfgKeyRedisDialTimeout); err != nil {
		return err
	}
	if c.Redis.ConnectAttempts, err = dp.GetInt(cfgKeyRedisConnectAttempts); err != nil {
		return err
	}
	if c.Backend == BackendTypeRedis && c.Redis.Address == "" {
		return dp.WrapKeyErr(cfgKeyRedisAddress, fmt.Errorf("cannot be empty"))
	}

	if c.SQLite.Path, err = dp.GetString(cfgKeySQLitePath); err != nil {
		return err
	}
	if c.Backend == BackendTypeSQLite && c.SQLite.Path == "" {
		return dp.WrapKeyErr(cfgKeySQLitePath, fmt.Errorf("cannot be empty"))
	}
	return nil
}
