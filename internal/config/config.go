package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// WatchItem is one watchlist entry refreshed by the scheduler.
type WatchItem struct {
	Source   string `yaml:"source"`
	Symbol   string `yaml:"symbol"`
	Interval string `yaml:"interval"`
}

// Config holds all application configuration.
type Config struct {
	CacheDir string `yaml:"cache_dir"`
	CSVDir   string `yaml:"csv_dir"`
	Proxy    string `yaml:"proxy"`

	Journal struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"journal"`

	Polygon struct {
		BaseURL         string   `yaml:"base_url"`
		APIKey          string   `yaml:"api_key"`
		TickerPrefixes  []string `yaml:"ticker_prefixes"`
		CooldownSeconds int      `yaml:"cooldown_seconds"`
		PageLimit       int      `yaml:"page_limit"`
		RatePerMinute   int      `yaml:"rate_per_minute"`
	} `yaml:"polygon"`

	Binance struct {
		BaseURL string `yaml:"base_url"`
	} `yaml:"binance"`

	Watch struct {
		Cron         string      `yaml:"cron"`
		LookbackDays int         `yaml:"lookback_days"`
		Items        []WatchItem `yaml:"items"`
	} `yaml:"watch"`
}

// Load reads config from a YAML file, then applies environment variable
// overrides and defaults. A missing file is not an error; env and defaults
// still apply.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if v := os.Getenv("POLYGON_API_KEY"); v != "" {
		cfg.Polygon.APIKey = v
	}
	if v := os.Getenv("POLYGON_BASE_URL"); v != "" {
		cfg.Polygon.BaseURL = v
	}
	if v := os.Getenv("MVAULT_CACHE_DIR"); v != "" {
		cfg.CacheDir = v
	}
	if v := os.Getenv("MVAULT_CSV_DIR"); v != "" {
		cfg.CSVDir = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Journal.SQLitePath = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.Proxy = v
	}
	if v := os.Getenv("POLYGON_COOLDOWN_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Polygon.CooldownSeconds = n
		}
	}

	// Defaults
	if cfg.CacheDir == "" {
		cfg.CacheDir = "data/cache"
	}
	if cfg.CSVDir == "" {
		cfg.CSVDir = "data/csv"
	}
	if cfg.Polygon.BaseURL == "" {
		cfg.Polygon.BaseURL = "https://api.polygon.io"
	}
	if len(cfg.Polygon.TickerPrefixes) == 0 {
		// Most likely namespaces first: currency, crypto, index.
		cfg.Polygon.TickerPrefixes = []string{"C:", "X:", "I:"}
	}
	if cfg.Polygon.CooldownSeconds == 0 {
		cfg.Polygon.CooldownSeconds = 15
	}
	if cfg.Polygon.PageLimit == 0 {
		cfg.Polygon.PageLimit = 50000
	}
	if cfg.Polygon.RatePerMinute == 0 {
		cfg.Polygon.RatePerMinute = 5
	}
	if cfg.Watch.Cron == "" {
		cfg.Watch.Cron = "0 15 * * * *"
	}
	if cfg.Watch.LookbackDays == 0 {
		cfg.Watch.LookbackDays = 30
	}

	return cfg, nil
}

// Cooldown returns the resolver rate-limit cooldown as a duration.
func (c *Config) Cooldown() time.Duration {
	return time.Duration(c.Polygon.CooldownSeconds) * time.Second
}

// Validate checks invariants that would otherwise surface as confusing
// runtime failures.
func (c *Config) Validate() error {
	if c.CacheDir == "" {
		return fmt.Errorf("cache_dir is required")
	}
	if c.Polygon.CooldownSeconds < 0 {
		return fmt.Errorf("polygon.cooldown_seconds must not be negative")
	}
	if c.Polygon.PageLimit < 0 {
		return fmt.Errorf("polygon.page_limit must not be negative")
	}
	for i, item := range c.Watch.Items {
		if item.Source == "" || item.Symbol == "" || item.Interval == "" {
			return fmt.Errorf("watch.items[%d]: source, symbol and interval are all required", i)
		}
	}
	return nil
}
