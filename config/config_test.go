package config_test

import (
	"testing"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Abiy-Samson/Blazegraph/config"
)

func TestLoad_DefaultsWhenNothingOverrides(t *testing.T) {
	v := viper.New()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	require.NoError(t, config.BindFlags(v, fs, ""))

	cfg, err := config.Load(v)
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)
}

func TestLoad_EnvironmentOverridesDefault(t *testing.T) {
	t.Setenv("RTOCACHED_CACHE_EVICTION", "lru")

	v := viper.New()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	require.NoError(t, config.BindFlags(v, fs, ""))

	cfg, err := config.Load(v)
	require.NoError(t, err)
	assert.Equal(t, "lru", cfg.CacheEviction)
}

func TestLoad_FlagOverridesEnvironment(t *testing.T) {
	t.Setenv("RTOCACHED_CACHE_EVICTION", "lru")

	v := viper.New()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	require.NoError(t, config.BindFlags(v, fs, ""))
	require.NoError(t, fs.Set("cache-eviction", "none"))

	cfg, err := config.Load(v)
	require.NoError(t, err)
	assert.Equal(t, "none", cfg.CacheEviction)
}
