// Package config loads runtime settings for the farmcarbon binaries.
//
// Settings come from an optional YAML file overlaid with FARMCARBON_*
// environment variables; nested keys use underscores, so "ndvi.base_url" is
// read from FARMCARBON_NDVI_BASE_URL. Calibration coefficients live in a
// separate file so agronomists can revise them without touching deployment
// settings.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override.
const EnvPrefix = "FARMCARBON"

// Cache backends.
const (
	CacheMemory = "memory"
	CacheRedis  = "redis"
)

// Config holds all runtime settings.
type Config struct {
	HTTP            HTTPConfig      `mapstructure:"http"`
	GRPC            GRPCConfig      `mapstructure:"grpc"`
	Log             LogConfig       `mapstructure:"log"`
	NDVI            NDVIConfig      `mapstructure:"ndvi"`
	Cache           CacheConfig     `mapstructure:"cache"`
	Scheduler       SchedulerConfig `mapstructure:"scheduler"`
	CalibrationFile string          `mapstructure:"calibration_file"`
}

// HTTPConfig configures the REST listener.
type HTTPConfig struct {
	Addr string `mapstructure:"addr"`
}

// GRPCConfig configures the gRPC listener.
type GRPCConfig struct {
	Addr string `mapstructure:"addr"`
}

// LogConfig holds logging options.
type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, console
}

// NDVIConfig configures the classification service client.
type NDVIConfig struct {
	BaseURL     string        `mapstructure:"base_url"`
	Timeout     time.Duration `mapstructure:"timeout"`
	MaxAttempts int           `mapstructure:"max_attempts"`
	Backoff     time.Duration `mapstructure:"backoff"`
}

// CacheConfig selects the snapshot cache.
type CacheConfig struct {
	Backend string        `mapstructure:"backend"`
	TTL     time.Duration `mapstructure:"ttl"`
	Redis   RedisConfig   `mapstructure:"redis"`
}

// RedisConfig configures the Redis snapshot cache.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

// SchedulerConfig configures periodic snapshot refresh.
type SchedulerConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	Spec    string   `mapstructure:"spec"`
	Farmers []string `mapstructure:"farmers"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("grpc.addr", ":9090")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("ndvi.base_url", "")
	v.SetDefault("ndvi.timeout", 30*time.Second)
	v.SetDefault("ndvi.max_attempts", 3)
	v.SetDefault("ndvi.backoff", 400*time.Millisecond)
	v.SetDefault("cache.backend", CacheMemory)
	v.SetDefault("cache.ttl", time.Duration(0))
	v.SetDefault("cache.redis.addr", "localhost:6379")
	v.SetDefault("cache.redis.password", "")
	v.SetDefault("cache.redis.db", 0)
	v.SetDefault("cache.redis.prefix", "farmcarbon:snapshot")
	v.SetDefault("scheduler.enabled", false)
	v.SetDefault("scheduler.spec", "@every 6h")
	v.SetDefault("scheduler.farmers", []string{})
	v.SetDefault("calibration_file", "")
}

// Load reads the YAML file at path, when path is non-empty, and applies
// environment overrides on top of the defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values that would otherwise fail late at startup.
func (c *Config) Validate() error {
	var errs []error

	if c.NDVI.MaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("ndvi.max_attempts must be at least 1 (got %d)", c.NDVI.MaxAttempts))
	}
	if c.NDVI.Timeout < 0 {
		errs = append(errs, errors.New("ndvi.timeout must not be negative"))
	}
	if c.Cache.TTL < 0 {
		errs = append(errs, errors.New("cache.ttl must not be negative"))
	}

	switch c.Cache.Backend {
	case CacheMemory:
	case CacheRedis:
		if strings.TrimSpace(c.Cache.Redis.Addr) == "" {
			errs = append(errs, errors.New("cache.redis.addr is required for the redis backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("cache.backend must be %q or %q (got %q)", CacheMemory, CacheRedis, c.Cache.Backend))
	}

	if c.Scheduler.Enabled {
		if strings.TrimSpace(c.Scheduler.Spec) == "" {
			errs = append(errs, errors.New("scheduler.spec is required when the scheduler is enabled"))
		}
		if c.NDVI.BaseURL == "" {
			errs = append(errs, errors.New("ndvi.base_url is required when the scheduler is enabled"))
		}
	}

	return errors.Join(errs...)
}
