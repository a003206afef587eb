// Package config provides colpoolctl's viper-backed configuration,
// following pkg/config/config.go's Load(path)/setDefaults shape.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds colpoolctl's runtime configuration.
type Config struct {
	Serve       ServeConfig `mapstructure:"serve"`
	Expansion   ExpansionConfig `mapstructure:"expansion"`
	Log         LogConfig   `mapstructure:"log"`
}

// ServeConfig holds the telemetry HTTP server's configuration.
type ServeConfig struct {
	Addr string `mapstructure:"addr"`
}

// ExpansionConfig holds the shared expansion table's sizing.
type ExpansionConfig struct {
	CapacityHint int `mapstructure:"capacity_hint"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json or text
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("serve.addr", ":8090")
	v.SetDefault("expansion.capacity_hint", 4096)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// Load reads configuration from configPath if non-empty, from
// well-known locations otherwise ("./colpoolctl.yaml",
// "/etc/colpoolctl/config.yaml"), and from COLPOOLCTL_-prefixed
// environment variables, in that order of precedence (env wins).
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("colpoolctl")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("colpoolctl")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/colpoolctl")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("config: read: %w", err)
		}
		// No config file is fine; defaults + env apply.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	return &cfg, nil
}
