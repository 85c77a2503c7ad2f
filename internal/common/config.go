// Package common provides shared utilities for the stock analyzer
package common

import (
	"fmt"
	"os"
	"strconv"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// Config holds all configuration for the analyzer
type Config struct {
	Environment string        `toml:"environment"`
	Server      ServerConfig  `toml:"server"`
	Storage     StorageConfig `toml:"storage"`
	Clients     ClientsConfig `toml:"clients"`
	Cache       CacheConfig   `toml:"cache"`
	Logging     LoggingConfig `toml:"logging"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// StorageConfig holds the ledger file layout configuration.
type StorageConfig struct {
	DataPath string `toml:"data_path"` // holds stocks.csv and topups/
}

// ClientsConfig holds API client configurations
type ClientsConfig struct {
	NSE      NSEConfig      `toml:"nse"`
	Screener ScreenerConfig `toml:"screener"`
}

// NSEConfig holds NSE quote client configuration
type NSEConfig struct {
	BaseURL   string `toml:"base_url"`
	RateLimit int    `toml:"rate_limit"`
	Timeout   string `toml:"timeout"`
}

// GetTimeout parses and returns the per-source timeout duration
func (c *NSEConfig) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 10 * time.Second
	}
	return d
}

// ScreenerConfig holds screener.in scrape client configuration
type ScreenerConfig struct {
	BaseURL string `toml:"base_url"`
	Timeout string `toml:"timeout"`
}

// GetTimeout parses and returns the timeout duration
func (c *ScreenerConfig) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 10 * time.Second
	}
	return d
}

// CacheConfig holds the two cache expiry policies. The quote cache is
// long-lived (price snapshots), the summary cache is short-lived and
// additionally invalidated on every ledger mutation.
type CacheConfig struct {
	QuoteTTL       string `toml:"quote_ttl"`
	SummaryTTL     string `toml:"summary_ttl"`
	SummaryEntries int    `toml:"summary_entries"`
}

// GetQuoteTTL parses the quote cache TTL, defaulting to 30 minutes.
func (c *CacheConfig) GetQuoteTTL() time.Duration {
	d, err := time.ParseDuration(c.QuoteTTL)
	if err != nil {
		return 30 * time.Minute
	}
	return d
}

// GetSummaryTTL parses the summary cache TTL, defaulting to 2 minutes.
func (c *CacheConfig) GetSummaryTTL() time.Duration {
	d, err := time.ParseDuration(c.SummaryTTL)
	if err != nil {
		return 2 * time.Minute
	}
	return d
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `toml:"level"`
}

// NewDefaultConfig returns a Config with sensible defaults
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8000,
		},
		Storage: StorageConfig{
			DataPath: "data",
		},
		Clients: ClientsConfig{
			NSE: NSEConfig{
				BaseURL:   "https://www.nseindia.com/api",
				RateLimit: 5,
				Timeout:   "10s",
			},
			Screener: ScreenerConfig{
				BaseURL: "https://www.screener.in",
				Timeout: "10s",
			},
		},
		Cache: CacheConfig{
			QuoteTTL:       "30m",
			SummaryTTL:     "2m",
			SummaryEntries: 10,
		},
		Logging: LoggingConfig{
			Level: "info",
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
	if env := os.Getenv("ANALYZER_ENV"); env != "" {
		config.Environment = env
	}

	if host := os.Getenv("ANALYZER_HOST"); host != "" {
		config.Server.Host = host
	}

	if port := os.Getenv("ANALYZER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}

	if level := os.Getenv("ANALYZER_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}

	if path := os.Getenv("ANALYZER_DATA_PATH"); path != "" {
		config.Storage.DataPath = path
	}

	if url := os.Getenv("ANALYZER_NSE_BASE_URL"); url != "" {
		config.Clients.NSE.BaseURL = url
	}

	if url := os.Getenv("ANALYZER_SCREENER_BASE_URL"); url != "" {
		config.Clients.Screener.BaseURL = url
	}
}
