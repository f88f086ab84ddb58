package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/robfig/cron/v3"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `toml:"server"`
	Prices    PricesConfig    `toml:"prices"`
	Dashboard DashboardConfig `toml:"dashboard"`
	History   HistoryConfig   `toml:"history"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int  `toml:"port"`
	AutoOpenBrowser bool `toml:"auto_open_browser"`
}

// PricesConfig holds upstream price API settings.
type PricesConfig struct {
	Coins      []string `toml:"coins"`
	APIBaseURL string   `toml:"api_base_url"`
	APIKey     string   `toml:"api_key"`
	BatchSize  int      `toml:"batch_size"`
}

// DashboardConfig holds settings for the server-rendered dashboard poller.
type DashboardConfig struct {
	// Endpoint is the URL the poller fetches. Empty means this server's own
	// /api/crypto on localhost.
	Endpoint            string `toml:"endpoint"`
	PollIntervalSeconds int    `toml:"poll_interval_seconds"`
}

// HistoryConfig holds price snapshot settings.
type HistoryConfig struct {
	Enabled       bool   `toml:"enabled"`
	SnapshotCron  string `toml:"snapshot_cron"`
	RetentionDays int    `toml:"retention_days"`
}

const (
	defaultPort          = 8080
	defaultAPIBaseURL    = "https://api.coingecko.com/api/v3"
	defaultBatchSize     = 50
	defaultPollInterval  = 60
	defaultSnapshotCron  = "@every 5m"
	defaultRetentionDays = 30
)

var defaultCoins = []string{"bitcoin", "dogecoin", "ethereum"}

const defaultConfigContent = `[server]
port = 8080
auto_open_browser = true

[prices]
coins = ["bitcoin", "dogecoin", "ethereum"]
api_base_url = "https://api.coingecko.com/api/v3"
api_key = ""                      # CoinGecko demo key (or set COINGECKO_API_KEY env var)
batch_size = 50

[dashboard]
endpoint = ""                     # Empty polls this server's /api/crypto
poll_interval_seconds = 60

[history]
enabled = true
snapshot_cron = "@every 5m"
retention_days = 30
`

// Load reads and parses the TOML config from the given path. If the file does
// not exist, it creates a default config file at that path. Environment
// variables override values from the file with highest priority.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		if err := createDefault(path); err != nil {
			return nil, fmt.Errorf("creating default config: %w", err)
		}
		slog.Info("created default config file", "path", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	md, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Explicit zeros are errors, not requests for the default.
	if err := validateExplicit(&cfg, md); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	applyDefaults(&cfg)
	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, fmt.Errorf("applying environment overrides: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// PollInterval returns the dashboard poll interval as a duration.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Dashboard.PollIntervalSeconds) * time.Second
}

// DashboardEndpoint returns the URL the dashboard poller should fetch.
func (c *Config) DashboardEndpoint() string {
	if c.Dashboard.Endpoint != "" {
		return c.Dashboard.Endpoint
	}
	return fmt.Sprintf("http://localhost:%d/api/crypto", c.Server.Port)
}

// createDefault writes the default config content to the given path,
// creating any parent directories as needed.
func createDefault(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(defaultConfigContent), 0o644); err != nil {
		return fmt.Errorf("writing default config: %w", err)
	}
	return nil
}

// validateExplicit checks values that were explicitly set in the TOML file.
// This catches cases like "port = 0" which would otherwise be silently
// replaced by the default value.
func validateExplicit(cfg *Config, md toml.MetaData) error {
	if md.IsDefined("server", "port") {
		if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
			return fmt.Errorf("invalid server.port %d: must be between 1 and 65535", cfg.Server.Port)
		}
	}
	if md.IsDefined("prices", "coins") && len(cfg.Prices.Coins) == 0 {
		return errors.New("invalid prices.coins: must list at least one coin id")
	}
	if md.IsDefined("prices", "batch_size") && cfg.Prices.BatchSize < 1 {
		return fmt.Errorf("invalid prices.batch_size %d: must be >= 1", cfg.Prices.BatchSize)
	}
	if md.IsDefined("dashboard", "poll_interval_seconds") && cfg.Dashboard.PollIntervalSeconds < 1 {
		return fmt.Errorf("invalid dashboard.poll_interval_seconds %d: must be >= 1", cfg.Dashboard.PollIntervalSeconds)
	}
	if md.IsDefined("history", "retention_days") && cfg.History.RetentionDays < 1 {
		return fmt.Errorf("invalid history.retention_days %d: must be >= 1", cfg.History.RetentionDays)
	}
	return nil
}

// applyDefaults sets default values for any zero-valued fields.
func applyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = defaultPort
	}
	if len(cfg.Prices.Coins) == 0 {
		cfg.Prices.Coins = append([]string(nil), defaultCoins...)
	}
	if cfg.Prices.APIBaseURL == "" {
		cfg.Prices.APIBaseURL = defaultAPIBaseURL
	}
	if cfg.Prices.BatchSize == 0 {
		cfg.Prices.BatchSize = defaultBatchSize
	}
	if cfg.Dashboard.PollIntervalSeconds == 0 {
		cfg.Dashboard.PollIntervalSeconds = defaultPollInterval
	}
	// history.enabled has the same bool problem as auto_open_browser: a
	// missing key reads as false. The default file sets both to true.
	if cfg.History.SnapshotCron == "" {
		cfg.History.SnapshotCron = defaultSnapshotCron
	}
	if cfg.History.RetentionDays == 0 {
		cfg.History.RetentionDays = defaultRetentionDays
	}
}

// applyEnvOverrides applies environment variable overrides. Environment
// variables take highest priority over config file values.
func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("COINGECKO_API_KEY"); v != "" {
		cfg.Prices.APIKey = v
	}
	if v := os.Getenv("COINPULSE_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parsing COINPULSE_PORT %q: %w", v, err)
		}
		cfg.Server.Port = port
	}
	return nil
}

// validate checks that configuration values are within acceptable ranges.
func validate(cfg *Config) error {
	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d: must be between 1 and 65535", cfg.Server.Port)
	}

	for _, coin := range cfg.Prices.Coins {
		if coin == "" {
			return errors.New("invalid prices.coins: coin ids must not be empty")
		}
	}

	if cfg.Prices.BatchSize < 1 {
		return fmt.Errorf("invalid prices.batch_size %d: must be >= 1", cfg.Prices.BatchSize)
	}

	if cfg.Dashboard.PollIntervalSeconds < 1 {
		return fmt.Errorf("invalid dashboard.poll_interval_seconds %d: must be >= 1", cfg.Dashboard.PollIntervalSeconds)
	}

	if _, err := cron.ParseStandard(cfg.History.SnapshotCron); err != nil {
		return fmt.Errorf("invalid history.snapshot_cron %q: %w", cfg.History.SnapshotCron, err)
	}

	if cfg.History.RetentionDays < 1 {
		return fmt.Errorf("invalid history.retention_days %d: must be >= 1", cfg.History.RetentionDays)
	}

	if cfg.Prices.APIKey == "" {
		slog.Debug("prices.api_key is empty: using the keyless CoinGecko public API")
	}

	return nil
}
