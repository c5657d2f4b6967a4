package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// TrackConfig holds configuration for the track command.
type TrackConfig struct {
	RPCURL       string
	Pool         string
	Asset        string
	Schedule     string
	Out          string
	PGDSN        string
	MaxRetries   int
	RetryBackoff time.Duration
	LogLevel     string
}

// LoadTrack merges config file, environment variables, and flags into
// TrackConfig.
func LoadTrack(cfgFile string, flags *pflag.FlagSet) (TrackConfig, error) {
	v := viper.New()
	v.SetEnvPrefix("FEEDERPOOL")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("schedule", "0 * * * * *")
	v.SetDefault("out", "./data")
	v.SetDefault("max-retries", 5)
	v.SetDefault("retry-backoff", 500*time.Millisecond)
	v.SetDefault("log-level", "info")

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return TrackConfig{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return TrackConfig{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return TrackConfig{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg := TrackConfig{
		RPCURL:       v.GetString("rpc"),
		Pool:         v.GetString("pool"),
		Asset:        v.GetString("asset"),
		Schedule:     v.GetString("schedule"),
		Out:          v.GetString("out"),
		PGDSN:        v.GetString("pg-dsn"),
		MaxRetries:   v.GetInt("max-retries"),
		RetryBackoff: v.GetDuration("retry-backoff"),
		LogLevel:     v.GetString("log-level"),
	}

	return cfg, nil
}
