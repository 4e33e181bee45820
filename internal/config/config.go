// Package config loads the optional TOML run configuration.
package config

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/loykin/logparsely/internal/logger"
)

// Config represents the top-level TOML structure.
//
// Example:
//
//	db_path = "logs/capture.db"
//	sources = ["tail -f /var/log/app.log", "journalctl -o json -f"]
//
//	[log]
//	level = "debug"
//	file = "logs/logparsely.log"
//
//	[metrics]
//	enabled = true
//	listen = ":9091"
type Config struct {
	DBPath  string         `toml:"db_path" mapstructure:"db_path"`
	Sources []string       `toml:"sources" mapstructure:"sources"`
	Log     logger.Config  `toml:"log" mapstructure:"log"`
	Metrics *MetricsConfig `toml:"metrics" mapstructure:"metrics"`
}

// MetricsConfig controls the optional Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `toml:"enabled" mapstructure:"enabled"`
	Listen  string `toml:"listen" mapstructure:"listen"`
}

// Load parses the TOML file at path.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if c.Metrics != nil && c.Metrics.Enabled && c.Metrics.Listen == "" {
		return nil, fmt.Errorf("config %s: metrics.listen is required when metrics are enabled", path)
	}
	if _, err := logger.ParseLevel(c.Log.Level); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return &c, nil
}
