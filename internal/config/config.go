// Package config loads the engine's runtime configuration via viper, in
// flags → environment (MMM_ prefix) → config.yaml → defaults precedence,
// mirroring the viper wiring of the corpus's CLI-oriented services.
package config

import (
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config is the engine's runtime configuration, per SPEC_FULL.md §5.1.
type Config struct {
	ListenAddr         string
	LogLevel           string
	MaxOptimIterations int
	OptimTolerance     float64
	RequestTimeout     time.Duration
}

const envPrefix = "MMM"

func defaults() map[string]any {
	return map[string]any{
		"listen_addr":          ":8080",
		"log_level":            "info",
		"max_optim_iterations": 500,
		"optim_tolerance":      1e-10,
		"request_timeout":      30 * time.Second,
	}
}

// Load builds a Config from flags, environment variables prefixed MMM_,
// an optional config.yaml, and the defaults above, in that precedence
// order (flags win).
func Load(flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	for key, val := range defaults() {
		v.SetDefault(key, val)
	}

	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if flags != nil {
		if f := flags.Lookup("config"); f != nil && f.Value.String() != "" {
			v.SetConfigFile(f.Value.String())
		}
	}
	if err := v.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			return nil, err
		}
	}

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, err
		}
	}

	return &Config{
		ListenAddr:         v.GetString("listen_addr"),
		LogLevel:           v.GetString("log_level"),
		MaxOptimIterations: v.GetInt("max_optim_iterations"),
		OptimTolerance:     v.GetFloat64("optim_tolerance"),
		RequestTimeout:     v.GetDuration("request_timeout"),
	}, nil
}
