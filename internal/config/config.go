// Package config
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	// StateDir holds the per-interface cache and pid files. Munin
	// exports MUNIN_PLUGSTATE for exactly this purpose.
	StateDir string `validate:"required"`

	// Interval between samples taken by the acquisition loop.
	Interval time.Duration `validate:"gt=0"`

	// Capacity of the rolling sample cache. Two samples are enough for
	// one rate delta; a few more survive a missed tick.
	Capacity int `validate:"gte=2"`

	// ReadTimeout bounds a single counter read.
	ReadTimeout time.Duration `validate:"gt=0"`

	LogLevel  string
	LogFormat string `validate:"oneof=text json"`
}

// fileConfig is the optional YAML overlay pointed to by IF1SEC_CONFIG.
// Durations are strings so "750ms" style values work.
type fileConfig struct {
	StateDir    string `yaml:"state_dir"`
	Interval    string `yaml:"interval"`
	Capacity    int    `yaml:"capacity"`
	ReadTimeout string `yaml:"read_timeout"`
	LogLevel    string `yaml:"log_level"`
	LogFormat   string `yaml:"log_format"`
}

func Load() (*Config, error) {
	godotenv.Load()

	cfg := &Config{
		StateDir:    "/tmp",
		Interval:    time.Second,
		Capacity:    5,
		ReadTimeout: 500 * time.Millisecond,
		LogLevel:    "info",
		LogFormat:   "text",
	}

	if dir := os.Getenv("MUNIN_PLUGSTATE"); dir != "" {
		cfg.StateDir = dir
	}

	if path := os.Getenv("IF1SEC_CONFIG"); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, err
		}
	}

	if raw := os.Getenv("IF1SEC_INTERVAL"); raw != "" {
		if parsed, err := time.ParseDuration(raw); err == nil && parsed > 0 {
			cfg.Interval = parsed
		}
	}

	if lvl := os.Getenv("LOG_LEVEL"); lvl != "" {
		cfg.LogLevel = lvl
	}
	if format := os.Getenv("LOG_FORMAT"); format != "" {
		cfg.LogFormat = format
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading config: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parsing config: %w", err)
	}

	if fc.StateDir != "" {
		c.StateDir = fc.StateDir
	}
	if fc.Interval != "" {
		parsed, err := time.ParseDuration(fc.Interval)
		if err != nil {
			return fmt.Errorf("parsing config interval: %w", err)
		}
		c.Interval = parsed
	}
	if fc.Capacity != 0 {
		c.Capacity = fc.Capacity
	}
	if fc.ReadTimeout != "" {
		parsed, err := time.ParseDuration(fc.ReadTimeout)
		if err != nil {
			return fmt.Errorf("parsing config read_timeout: %w", err)
		}
		c.ReadTimeout = parsed
	}
	if fc.LogLevel != "" {
		c.LogLevel = fc.LogLevel
	}
	if fc.LogFormat != "" {
		c.LogFormat = fc.LogFormat
	}

	return nil
}

// CachePath is the sample cache file for one interface.
func (c *Config) CachePath(iface string) string {
	return filepath.Join(c.StateDir, "if1sec-"+iface+".cache")
}

// PidPath is the liveness marker for one interface's acquisition loop.
func (c *Config) PidPath(iface string) string {
	return filepath.Join(c.StateDir, "if1sec-"+iface+".pid")
}
