// Package common provides shared utilities for Folio
package common

import (
	"fmt"
	"os"
	"strconv"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// Config holds all configuration for Folio
type Config struct {
	Environment string          `toml:"environment"`
	Server      ServerConfig    `toml:"server"`
	Storage     StorageConfig   `toml:"storage"`
	Clients     ClientsConfig   `toml:"clients"`
	Scheduler   SchedulerConfig `toml:"scheduler"`
	Logging     LoggingConfig   `toml:"logging"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// StorageConfig holds path configuration for the 2 storage areas.
type StorageConfig struct {
	Cache     AreaConfig `toml:"cache"`     // Price-series cache (BadgerHold)
	Snapshots AreaConfig `toml:"snapshots"` // Daily value snapshots (file-based JSON)
}

// AreaConfig holds path configuration for a storage area.
type AreaConfig struct {
	Path string `toml:"path"`
}

// ClientsConfig holds API client configurations
type ClientsConfig struct {
	CoinGecko CoinGeckoConfig `toml:"coingecko"`
}

// CoinGeckoConfig configures the market-data provider client and the
// outbound request budget shared by all price-history fetches.
type CoinGeckoConfig struct {
	BaseURL           string `toml:"base_url"`
	APIKey            string `toml:"api_key"`
	MaxPerWindow      int    `toml:"max_per_window"`      // requests released per window
	WindowSeconds     int    `toml:"window_seconds"`      // rolling window length
	RequestTimeoutSec int    `toml:"request_timeout_sec"` // per-request HTTP timeout
}

// Window returns the rate-limit window as a duration.
func (c CoinGeckoConfig) Window() time.Duration {
	return time.Duration(c.WindowSeconds) * time.Second
}

// RequestTimeout returns the HTTP timeout as a duration.
func (c CoinGeckoConfig) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSec) * time.Second
}

// SchedulerConfig controls the background snapshot recorder.
type SchedulerConfig struct {
	SnapshotsEnabled  bool `toml:"snapshots_enabled"`
	CheckIntervalMins int  `toml:"check_interval_mins"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `toml:"level"`
}

// IsProduction returns true when running in the production environment.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// DefaultConfig returns a config with sensible defaults applied.
func DefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Host: "localhost",
			Port: 8090,
		},
		Storage: StorageConfig{
			Cache:     AreaConfig{Path: "data/cache"},
			Snapshots: AreaConfig{Path: "data/snapshots"},
		},
		Clients: ClientsConfig{
			CoinGecko: CoinGeckoConfig{
				BaseURL:           "https://api.coingecko.com/api/v3",
				MaxPerWindow:      10,
				WindowSeconds:     60,
				RequestTimeoutSec: 30,
			},
		},
		Scheduler: SchedulerConfig{
			SnapshotsEnabled:  true,
			CheckIntervalMins: 60,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadConfig loads configuration from a TOML file, applying defaults for
// missing values and environment variable overrides on top.
func LoadConfig(path string) (*Config, error) {
	config := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
			}
			// Missing file is fine, defaults + env overrides apply.
		} else if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)

	if err := config.validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// applyEnvOverrides applies FOLIO_* environment variables over file values.
func applyEnvOverrides(config *Config) {
	if v := os.Getenv("FOLIO_ENVIRONMENT"); v != "" {
		config.Environment = v
	}
	if v := os.Getenv("FOLIO_SERVER_HOST"); v != "" {
		config.Server.Host = v
	}
	if v := os.Getenv("FOLIO_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			config.Server.Port = port
		}
	}
	if v := os.Getenv("FOLIO_CACHE_PATH"); v != "" {
		config.Storage.Cache.Path = v
	}
	if v := os.Getenv("FOLIO_SNAPSHOTS_PATH"); v != "" {
		config.Storage.Snapshots.Path = v
	}
	if v := os.Getenv("FOLIO_COINGECKO_API_KEY"); v != "" {
		config.Clients.CoinGecko.APIKey = v
	}
	if v := os.Getenv("FOLIO_LOG_LEVEL"); v != "" {
		config.Logging.Level = v
	}
}

func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Clients.CoinGecko.MaxPerWindow <= 0 {
		return fmt.Errorf("invalid rate limit: max_per_window must be positive, got %d", c.Clients.CoinGecko.MaxPerWindow)
	}
	if c.Clients.CoinGecko.WindowSeconds <= 0 {
		return fmt.Errorf("invalid rate limit: window_seconds must be positive, got %d", c.Clients.CoinGecko.WindowSeconds)
	}
	return nil
}
