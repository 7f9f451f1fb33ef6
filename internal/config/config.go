package config

import (
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Load reads the YAML config at path, applies defaults and validates.
func Load(path string) (*Config, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("config path cannot be empty")
	}
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config file failed (%s): %w", path, err)
	}
	var cfg Config
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.WeaklyTypedInput = true
	}); err != nil {
		return nil, fmt.Errorf("parsing config failed: %w", err)
	}
	cfg.applyDefaults()
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.App.Env == "" {
		c.App.Env = "dev"
	}
	if c.App.LogLevel == "" {
		c.App.LogLevel = "info"
	}
	if c.Market.Transport == "" {
		c.Market.Transport = "sdk"
	}
	if c.Market.HTTPTimeout <= 0 {
		c.Market.HTTPTimeout = 15
	}
	if c.Sync.DefaultGranularity == "" {
		c.Sync.DefaultGranularity = "1h"
	}
	if c.Sync.DebounceMs <= 0 {
		c.Sync.DebounceMs = 300
	}
	if c.Sync.ResizeWindowMs <= 0 {
		c.Sync.ResizeWindowMs = 150
	}
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":9991"
	}
}

func validate(c *Config) error {
	switch strings.ToLower(c.Market.Transport) {
	case "sdk", "rest":
	default:
		return fmt.Errorf("market.transport must be sdk or rest, got %q", c.Market.Transport)
	}
	switch strings.ToLower(c.App.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("app.log_level %q is not a known level", c.App.LogLevel)
	}
	return nil
}

// Dump renders the effective config as YAML for the startup log.
func (c *Config) Dump() string {
	out, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Sprintf("<config dump failed: %v>", err)
	}
	return string(out)
}
