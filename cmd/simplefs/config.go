package main

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/mit-pdos/go-simplefs/common"
)

type Config struct {
	Image     string `mapstructure:"image"`
	Debug     uint64 `mapstructure:"debug"`
	LogFormat string `mapstructure:"log_format"`
	Blocks    uint64 `mapstructure:"blocks"`
}

// LoadConfig reads simplefs.yaml (if any), SIMPLEFS_* environment variables
// and the flags bound to v.
func LoadConfig(v *viper.Viper) (*Config, error) {
	v.SetConfigName("simplefs")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.simplefs")
	v.AddConfigPath("/etc/simplefs")

	v.SetDefault("image", "simplefs.img")
	v.SetDefault("debug", 0)
	v.SetDefault("log_format", "text")
	v.SetDefault("blocks", common.NBLOCKS)

	v.SetEnvPrefix("SIMPLEFS")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if config.LogFormat != "text" && config.LogFormat != "json" {
		return nil, fmt.Errorf("log_format %q: must be text or json", config.LogFormat)
	}
	if config.Blocks < common.NBLOCKS {
		return nil, fmt.Errorf("blocks %d: need at least %d", config.Blocks, common.NBLOCKS)
	}
	return &config, nil
}
