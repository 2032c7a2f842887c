// Package common provides shared utilities for Quiver
package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// Config holds all configuration for Quiver
type Config struct {
	Environment string        `toml:"environment"`
	Portfolios  []string      `toml:"portfolios"`
	Storage     StorageConfig `toml:"storage"`
	Clients     ClientsConfig `toml:"clients"`
	Fetch       FetchConfig   `toml:"fetch"`
	Refresh     RefreshConfig `toml:"refresh"`
	Logging     LoggingConfig `toml:"logging"`
}

// DefaultPortfolio returns the first portfolio in the list (the default), or empty string.
func (c *Config) DefaultPortfolio() string {
	if len(c.Portfolios) > 0 {
		return c.Portfolios[0]
	}
	return ""
}

// StorageConfig holds storage configuration.
type StorageConfig struct {
	Path string `toml:"path"`
}

// ClientsConfig holds API client configurations
type ClientsConfig struct {
	Yahoo   ProviderConfig `toml:"yahoo"`
	Brapi   ProviderConfig `toml:"brapi"`
	Tesouro TesouroConfig  `toml:"tesouro"`
}

// ProviderConfig holds configuration common to the HTTP price providers.
type ProviderConfig struct {
	BaseURL   string `toml:"base_url"`
	Token     string `toml:"token"`
	RateLimit int    `toml:"rate_limit"`
	Timeout   string `toml:"timeout"`
}

// GetTimeout parses and returns the timeout duration
func (c *ProviderConfig) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 15 * time.Second
	}
	return d
}

// TesouroConfig holds the fixed-income CSV source configuration.
// Multiple URLs are tried in order; the first that yields rows wins.
type TesouroConfig struct {
	URLs    []string `toml:"urls"`
	Timeout string   `toml:"timeout"`
}

// GetTimeout parses and returns the timeout duration
func (c *TesouroConfig) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// FetchConfig tunes the acquisition pipeline: fan-out limits, dispatch
// spacing, on-demand fetch cooldown, and split dedup window.
type FetchConfig struct {
	MaxConcurrent        int    `toml:"max_concurrent"`
	MinDelayMS           int    `toml:"min_delay_ms"`
	Cooldown             string `toml:"cooldown"`
	SplitDedupWindowDays int    `toml:"split_dedup_window_days"`
}

// GetCooldown parses and returns the fetch-failure cooldown duration.
func (c *FetchConfig) GetCooldown() time.Duration {
	d, err := time.ParseDuration(c.Cooldown)
	if err != nil {
		return 6 * time.Hour
	}
	return d
}

// GetMinDelay returns the minimum inter-dispatch delay.
func (c *FetchConfig) GetMinDelay() time.Duration {
	if c.MinDelayMS <= 0 {
		return 250 * time.Millisecond
	}
	return time.Duration(c.MinDelayMS) * time.Millisecond
}

// RefreshConfig holds the daily refresh scheduler configuration.
type RefreshConfig struct {
	Enabled bool   `toml:"enabled"`
	Cron    string `toml:"cron"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// NewDefaultConfig returns a Config with sensible defaults
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Storage: StorageConfig{
			Path: "data/quiver",
		},
		Clients: ClientsConfig{
			Yahoo: ProviderConfig{
				BaseURL:   "https://query1.finance.yahoo.com",
				RateLimit: 5,
				Timeout:   "15s",
			},
			Brapi: ProviderConfig{
				BaseURL:   "https://brapi.dev/api",
				RateLimit: 5,
				Timeout:   "15s",
			},
			Tesouro: TesouroConfig{
				Timeout: "30s",
			},
		},
		Fetch: FetchConfig{
			MaxConcurrent:        3,
			MinDelayMS:           250,
			Cooldown:             "6h",
			SplitDedupWindowDays: 14,
		},
		Refresh: RefreshConfig{
			Enabled: true,
			Cron:    "0 30 18 * * MON-FRI",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// LoadConfig loads configuration from files with environment overrides
func LoadConfig(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	// Load and merge each config file in order (later files override earlier)
	for _, path := range paths {
		if path == "" {
			continue
		}

		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue // Skip missing files
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("QUIVER_ENV"); env != "" {
		config.Environment = env
	}

	if level := os.Getenv("QUIVER_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}

	if path := os.Getenv("QUIVER_DATA_PATH"); path != "" {
		config.Storage.Path = path
	}

	if token := os.Getenv("QUIVER_BRAPI_TOKEN"); token != "" {
		config.Clients.Brapi.Token = token
	}

	if urls := os.Getenv("QUIVER_TESOURO_URLS"); urls != "" {
		parts := strings.Split(urls, ",")
		config.Clients.Tesouro.URLs = config.Clients.Tesouro.URLs[:0]
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				config.Clients.Tesouro.URLs = append(config.Clients.Tesouro.URLs, p)
			}
		}
	}

	if v := os.Getenv("QUIVER_FETCH_MAX_CONCURRENT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.Fetch.MaxConcurrent = n
		}
	}

	if v := os.Getenv("QUIVER_FETCH_MIN_DELAY_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.Fetch.MinDelayMS = n
		}
	}

	if v := os.Getenv("QUIVER_FETCH_COOLDOWN"); v != "" {
		config.Fetch.Cooldown = v
	}

	if dp := os.Getenv("QUIVER_DEFAULT_PORTFOLIO"); dp != "" {
		// Set as first portfolio (default), preserving any others
		if len(config.Portfolios) == 0 {
			config.Portfolios = []string{dp}
		} else if config.Portfolios[0] != dp {
			filtered := []string{dp}
			for _, p := range config.Portfolios {
				if p != dp {
					filtered = append(filtered, p)
				}
			}
			config.Portfolios = filtered
		}
	}
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}
