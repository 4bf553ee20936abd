// Package config defines the top-level configuration for the whale monitor
// and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by WHALEWATCH_* environment variables.
type Config struct {
	Polymarket PolymarketConfig `toml:"polymarket"`
	Monitor    MonitorConfig    `toml:"monitor"`
	Thresholds ThresholdConfig  `toml:"thresholds"`
	Database   DatabaseConfig   `toml:"database"`
	Redis      RedisConfig      `toml:"redis"`
	S3         S3Config         `toml:"s3"`
	Server     ServerConfig     `toml:"server"`
	Notify     NotifyConfig     `toml:"notify"`
	Mode       string           `toml:"mode"`
	LogLevel   string           `toml:"log_level"`
}

// PolymarketConfig holds Polymarket data API endpoints and pacing.
type PolymarketConfig struct {
	DataHost        string   `toml:"data_host"`
	ProfileHost     string   `toml:"profile_host"`
	RequestInterval duration `toml:"request_interval"`
}

// MonitorConfig holds the polling pipeline parameters.
type MonitorConfig struct {
	PollInterval       duration `toml:"poll_interval"`
	FetchLimit         int      `toml:"fetch_limit"`
	TradeDelay         duration `toml:"trade_delay"`
	PreventDuplicates  bool     `toml:"prevent_duplicates"`
	SuppressionWindow  duration `toml:"suppression_window"`
	RetentionDays      int      `toml:"retention_days"`
	AlertRetentionDays int      `toml:"alert_retention_days"`
	ArchiveCron        string   `toml:"archive_cron"`
}

// ThresholdConfig holds the whale qualification minimums.
type ThresholdConfig struct {
	MinTrades        int     `toml:"min_trades"`
	MinRealizedPnl   float64 `toml:"min_realized_pnl"`
	MinLargestWin    float64 `toml:"min_largest_win"`
	MinPositionValue float64 `toml:"min_position_value"`
	MinBetValue      float64 `toml:"min_bet_value"`
}

// DatabaseConfig holds PostgreSQL connection parameters.
type DatabaseConfig struct {
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Enabled    bool   `toml:"enabled"`
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// S3Config holds S3-compatible object storage parameters for cold archives.
type S3Config struct {
	Enabled        bool   `toml:"enabled"`
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Enabled         bool     `toml:"enabled"`
	Port            int      `toml:"port"`
	CORSOrigins     []string `toml:"cors_origins"`
	APIKey          string   `toml:"api_key"`
	RateLimitPerMin int      `toml:"rate_limit_per_min"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// duration is a wrapper around time.Duration that supports TOML string decoding
// (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with reasonable default values.
// These match the values in config.example.toml.
func Defaults() Config {
	return Config{
		Polymarket: PolymarketConfig{
			DataHost:        "https://data-api.polymarket.com",
			ProfileHost:     "https://polymarket.com",
			RequestInterval: duration{100 * time.Millisecond},
		},
		Monitor: MonitorConfig{
			PollInterval:       duration{time.Minute},
			FetchLimit:         100,
			TradeDelay:         duration{50 * time.Millisecond},
			PreventDuplicates:  true,
			SuppressionWindow:  duration{5 * time.Minute},
			RetentionDays:      7,
			AlertRetentionDays: 90,
			ArchiveCron:        "0 3 * * *",
		},
		Thresholds: ThresholdConfig{
			MinTrades:        100,
			MinRealizedPnl:   10_000,
			MinLargestWin:    1_000,
			MinPositionValue: 10_000,
			MinBetValue:      500,
		},
		Database: DatabaseConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "postgres",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Enabled:    true,
			Addr:       "localhost:6379",
			DB:         0,
			PoolSize:   20,
			MaxRetries: 3,
			TLSEnabled: false,
		},
		S3: S3Config{
			Enabled:        false,
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "whalewatch-data",
			UseSSL:         false,
			ForcePathStyle: true,
		},
		Server: ServerConfig{
			Enabled:         true,
			Port:            8000,
			CORSOrigins:     []string{"http://localhost:3000", "http://localhost:5173"},
			RateLimitPerMin: 120,
		},
		Notify: NotifyConfig{
			Events: []string{"alert_created", "error"},
		},
		Mode:     "monitor",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"monitor": true,
	"serve":   true,
	"full":    true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid or missing values and returns a
// combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: monitor, serve, full)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Polymarket
	if c.Polymarket.DataHost == "" {
		errs = append(errs, "polymarket: data_host must not be empty")
	}
	if c.Polymarket.ProfileHost == "" {
		errs = append(errs, "polymarket: profile_host must not be empty")
	}
	if c.Polymarket.RequestInterval.Duration < 0 {
		errs = append(errs, "polymarket: request_interval must not be negative")
	}

	// Monitor
	if c.Monitor.FetchLimit < 1 || c.Monitor.FetchLimit > 500 {
		errs = append(errs, fmt.Sprintf("monitor: fetch_limit must be 1-500, got %d", c.Monitor.FetchLimit))
	}
	if c.Monitor.PollInterval.Duration <= 0 {
		errs = append(errs, "monitor: poll_interval must be positive")
	}
	if c.Monitor.RetentionDays < 1 {
		errs = append(errs, "monitor: retention_days must be >= 1")
	}
	if c.Monitor.PreventDuplicates && c.Monitor.SuppressionWindow.Duration <= 0 {
		errs = append(errs, "monitor: suppression_window must be positive when prevent_duplicates is set")
	}
	if c.Monitor.ArchiveCron != "" && len(strings.Fields(c.Monitor.ArchiveCron)) != 5 {
		errs = append(errs, fmt.Sprintf("monitor: archive_cron must have 5 fields, got %q", c.Monitor.ArchiveCron))
	}

	// Thresholds
	if c.Thresholds.MinTrades < 0 {
		errs = append(errs, "thresholds: min_trades must not be negative")
	}
	if c.Thresholds.MinBetValue < 0 {
		errs = append(errs, "thresholds: min_bet_value must not be negative")
	}

	// Database
	if strings.TrimSpace(c.Database.DSN) == "" {
		if c.Database.Host == "" {
			errs = append(errs, "database: host must not be empty (or set database.dsn)")
		}
		if c.Database.Port <= 0 || c.Database.Port > 65535 {
			errs = append(errs, fmt.Sprintf("database: port must be 1-65535, got %d", c.Database.Port))
		}
		if c.Database.Database == "" {
			errs = append(errs, "database: database must not be empty")
		}
	}
	if c.Database.PoolMaxConns < 1 {
		errs = append(errs, "database: pool_max_conns must be >= 1")
	}
	if c.Database.PoolMinConns < 0 {
		errs = append(errs, "database: pool_min_conns must be >= 0")
	}
	if c.Database.PoolMinConns > c.Database.PoolMaxConns {
		errs = append(errs, "database: pool_min_conns must not exceed pool_max_conns")
	}

	// Redis
	if c.Redis.Enabled {
		if c.Redis.Addr == "" {
			errs = append(errs, "redis: addr must not be empty when enabled")
		}
		if c.Redis.PoolSize < 1 {
			errs = append(errs, "redis: pool_size must be >= 1")
		}
	}

	// S3
	if c.S3.Enabled {
		if c.S3.Endpoint == "" {
			errs = append(errs, "s3: endpoint must not be empty when enabled")
		}
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty when enabled")
		}
	}

	// Server
	if c.Server.Enabled {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
		if c.Server.RateLimitPerMin < 0 {
			errs = append(errs, "server: rate_limit_per_min must not be negative")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
