// Package config provides configuration management for datagrid services.
package config

import (
	"time"
)

// Config is the full service configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Grid     GridConfig     `mapstructure:"grid"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Database DatabaseConfig `mapstructure:"database"`
	Log      LogConfig      `mapstructure:"log"`
}

// ServerConfig holds configuration for the gRPC grid service.
type ServerConfig struct {
	Host           string        `mapstructure:"host" validate:"required"`
	Port           int           `mapstructure:"port" validate:"min=1,max=65535"`
	MetricsPort    int           `mapstructure:"metrics_port" validate:"min=0,max=65535"` // 0 disables /metrics
	RequestTimeout time.Duration `mapstructure:"request_timeout" validate:"gt=0"`
}

// GridConfig mirrors grid.Settings.
type GridConfig struct {
	CacheKeyPrefix  string `mapstructure:"cache_key_prefix" validate:"required,excludesall=#"`
	CacheTimeout    int    `mapstructure:"cache_timeout" validate:"min=-1"`
	DefaultPageSize int    `mapstructure:"default_page_size" validate:"min=1"`
	IsolationLevel  string `mapstructure:"isolation_level" validate:"oneof=default read-uncommitted read-committed repeatable-read snapshot serializable"`
}

// CacheConfig selects and configures the result cache store.
type CacheConfig struct {
	Backend         string        `mapstructure:"backend" validate:"oneof=memory redis"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval" validate:"min=0"`
	Redis           RedisConfig   `mapstructure:"redis"`
}

// RedisConfig is used when Backend is "redis". Password is read from
// DG_CACHE_REDIS_PASSWORD only.
type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	Database int    `mapstructure:"database" validate:"min=0,max=15"`
	PoolSize int    `mapstructure:"pool_size" validate:"min=0"`
}

type DatabaseConfig struct {
	URL string `mapstructure:"url"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=json console"`
}

// DefaultConfig returns configuration with default values.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:           "0.0.0.0",
			Port:           50061,
			MetricsPort:    9090,
			RequestTimeout: 30 * time.Second,
		},
		Grid: GridConfig{
			CacheKeyPrefix:  "Datagrid",
			CacheTimeout:    -1,
			DefaultPageSize: 10,
			IsolationLevel:  "read-uncommitted",
		},
		Cache: CacheConfig{
			Backend:         "memory",
			CleanupInterval: 5 * time.Minute,
			Redis: RedisConfig{
				Address:  "localhost:6379",
				PoolSize: 10,
			},
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}
