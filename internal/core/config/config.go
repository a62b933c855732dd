// Package config handles configuration loading and validation for the
// back-office CLI.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/colonyops/backoffice/internal/core/query"
	"gopkg.in/yaml.v3"
)

// Config holds the application configuration.
type Config struct {
	API     APIConfig     `yaml:"api"`
	Query   QueryConfig   `yaml:"query"`
	Toast   ToastConfig   `yaml:"toast"`
	History HistoryConfig `yaml:"history"`
	Locale  string        `yaml:"locale"`
	DataDir string        `yaml:"-"` // set by caller, not from config file
}

// APIConfig configures the back-office HTTP client.
type APIConfig struct {
	BaseURL string        `yaml:"base_url"`
	Token   string        `yaml:"token"`
	Timeout time.Duration `yaml:"timeout"`
	// RateLimit is requests per second. Zero disables client-side limiting.
	RateLimit float64 `yaml:"rate_limit"`
	Burst     int     `yaml:"burst"`
}

// QueryConfig configures the request engine.
type QueryConfig struct {
	Retry         int           `yaml:"retry"`
	RetryDelay    time.Duration `yaml:"retry_delay"`
	MaxRetryDelay time.Duration `yaml:"max_retry_delay"`
	StaleTime     time.Duration `yaml:"stale_time"`
}

// Options converts the config into engine options.
func (q QueryConfig) Options() query.Options {
	opts := query.Options{
		Retry:     q.Retry,
		StaleTime: q.StaleTime,
	}
	if q.RetryDelay > 0 {
		opts.RetryDelay = query.ExponentialDelay(q.RetryDelay, max(q.MaxRetryDelay, q.RetryDelay))
	}
	return opts
}

// ToastConfig configures how notifications are rendered in the terminal.
type ToastConfig struct {
	Theme  string        `yaml:"theme"`
	TTL    time.Duration `yaml:"ttl"`
	Max    int           `yaml:"max"`
	Dedupe bool          `yaml:"dedupe"`
}

// HistoryConfig configures notification history.
type HistoryConfig struct {
	Enabled bool `yaml:"enabled"`
	Limit   int  `yaml:"limit"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		API: APIConfig{
			BaseURL:   "http://localhost:3000/api/v1",
			Timeout:   30 * time.Second,
			RateLimit: 10,
			Burst:     5,
		},
		Query: QueryConfig{
			Retry:         query.DefaultRetry,
			RetryDelay:    time.Second,
			MaxRetryDelay: 30 * time.Second,
		},
		Toast: ToastConfig{
			Theme:  "tokyo-night",
			TTL:    5 * time.Second,
			Max:    5,
			Dedupe: true,
		},
		History: HistoryConfig{
			Enabled: true,
			Limit:   50,
		},
		Locale: "en",
	}
}

// Load reads configuration from the given path and sets the data directory.
// If configPath is empty or doesn't exist, returns defaults with the provided dataDir.
func Load(configPath, dataDir string) (*Config, error) {
	cfg, err := Read(configPath, dataDir)
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Read is Load without validation.
func Read(configPath, dataDir string) (*Config, error) {
	cfg := DefaultConfig()

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			data, err := os.ReadFile(configPath)
			if err != nil {
				return nil, fmt.Errorf("read config file: %w", err)
			}

			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("parse config file: %w", err)
			}
		}
	}

	cfg.DataDir = dataDir
	return &cfg, nil
}
