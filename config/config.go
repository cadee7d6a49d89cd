// Package config loads runtime configuration for the cmd/ CLI, following
// the precedence flag > environment > file > default that
// cmd/root.go establishes with viper against cobra/pflag flag sets.
package config

import (
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds every knob the cmd/ subcommands need to construct a Cache
// and drive Optimize calls.
type Config struct {
	CacheConcurrency     int    `mapstructure:"cache-concurrency"`
	CacheInitialCapacity int    `mapstructure:"cache-initial-capacity"`
	CacheLoadFactor      float64 `mapstructure:"cache-load-factor"`
	CacheEviction        string `mapstructure:"cache-eviction"`

	RTODefaultLimit int64  `mapstructure:"rto-default-limit"`
	RTOCostFunc     string `mapstructure:"rto-cost-func"`

	MetricsBindAddr string `mapstructure:"metrics-bind-addr"`
}

// Default returns the configuration used when no file, environment
// variable or flag overrides a field.
func Default() Config {
	return Config{
		CacheConcurrency:     16,
		CacheInitialCapacity: 16,
		CacheLoadFactor:      0.75,
		CacheEviction:        "lirs",
		RTODefaultLimit:      1000,
		RTOCostFunc:          "sum-est-card",
		MetricsBindAddr:      ":9090",
	}
}

// BindFlags registers every Config field as a persistent flag on fs and
// binds it into v, matching cmd/root.go's setAllConfig pattern: flags take
// precedence, then RTOCACHED_-prefixed environment variables, then the
// config file, then the compiled-in default.
func BindFlags(v *viper.Viper, fs *pflag.FlagSet, configFile string) error {
	def := Default()
	fs.Int("cache-concurrency", def.CacheConcurrency, "number of cache segments")
	fs.Int("cache-initial-capacity", def.CacheInitialCapacity, "initial total cache capacity")
	fs.Float64("cache-load-factor", def.CacheLoadFactor, "cache segment load factor")
	fs.String("cache-eviction", def.CacheEviction, "cache eviction strategy: none, lru, lirs")
	fs.Int64("rto-default-limit", def.RTODefaultLimit, "default cutoff-join sampling limit")
	fs.String("rto-cost-func", def.RTOCostFunc, "cost function name (sum-est-card, sum-est-read, sum-est-card-and-read); stored in Config, not applied by serve or bench")
	fs.String("metrics-bind-addr", def.MetricsBindAddr, "bind address for the /metrics HTTP endpoint")

	if err := v.BindPFlags(fs); err != nil {
		return err
	}
	v.SetEnvPrefix("rtocached")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return err
		}
	}
	return nil
}

// Load unmarshals v's resolved values into a Config seeded with Default().
func Load(v *viper.Viper) (Config, error) {
	cfg := Default()
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
