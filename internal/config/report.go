package config

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// ReportConfig holds configuration for the report command.
type ReportConfig struct {
	Input    string
	Decimals uint8
	LogLevel string
}

// LoadReport merges config file, environment variables, and flags into
// ReportConfig.
func LoadReport(cfgFile string, flags *pflag.FlagSet) (ReportConfig, error) {
	v := viper.New()
	v.SetEnvPrefix("FEEDERPOOL")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("decimals", 18)
	v.SetDefault("log-level", "info")

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return ReportConfig{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return ReportConfig{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return ReportConfig{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	decimals := v.GetUint("decimals")
	if decimals > 77 {
		return ReportConfig{}, fmt.Errorf("decimals out of range: %d", decimals)
	}

	cfg := ReportConfig{
		Input:    v.GetString("in"),
		Decimals: uint8(decimals),
		LogLevel: v.GetString("log-level"),
	}

	return cfg, nil
}
