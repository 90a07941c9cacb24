package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the member-export configuration file layout.
type Config struct {
	Gateway struct {
		// BaseURL of the tdlib gateway exposing the listing API.
		BaseURL string `yaml:"base_url"`
		// Token is the gateway bearer token.
		Token string `yaml:"token"`
	} `yaml:"gateway"`

	Redis struct {
		// Addr enables shared flood-wait state and channel info caching.
		// Empty disables Redis entirely.
		Addr string `yaml:"addr"`
	} `yaml:"redis"`

	Enumeration struct {
		PageSize      int      `yaml:"page_size"`
		MaxPerFilter  int      `yaml:"max_per_filter"`
		IntervalMS    int      `yaml:"interval_ms"`
		Workers       int      `yaml:"workers"`
		ProgressEvery int      `yaml:"progress_every"`
		Alphabet      []string `yaml:"alphabet"`
	} `yaml:"enumeration"`

	Metrics struct {
		// Addr serves Prometheus metrics on /metrics when non-empty,
		// e.g. ":9090". Mostly useful for long multi-channel runs.
		Addr string `yaml:"addr"`
	} `yaml:"metrics"`

	Export struct {
		// Format is "csv" or "sqlite".
		Format string `yaml:"format"`
		// Path of the artifact; empty generates a timestamped filename.
		Path string `yaml:"path"`
	} `yaml:"export"`

	Log struct {
		Level  string `yaml:"level"`
		Pretty bool   `yaml:"pretty"`
		File   string `yaml:"file"`
	} `yaml:"log"`
}

// defaultConfig returns the built-in defaults.
func defaultConfig() Config {
	var cfg Config
	cfg.Enumeration.PageSize = 200
	cfg.Enumeration.MaxPerFilter = 10000
	cfg.Enumeration.IntervalMS = 500
	cfg.Enumeration.Workers = 1
	cfg.Enumeration.ProgressEvery = 5
	cfg.Export.Format = "csv"
	cfg.Log.Level = "info"
	return cfg
}

// loadConfig reads the YAML config file (when path is non-empty) over
// the defaults, then applies environment overrides for the secrets and
// endpoints that rarely belong in a file.
func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config file: %w", err)
		}
	}

	if v := os.Getenv("TG_GATEWAY_URL"); v != "" {
		cfg.Gateway.BaseURL = v
	}
	if v := os.Getenv("TG_GATEWAY_TOKEN"); v != "" {
		cfg.Gateway.Token = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}

	return cfg, nil
}
