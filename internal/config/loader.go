package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies WHALEWATCH_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known WHALEWATCH_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Polymarket ──
	setStr(&cfg.Polymarket.DataHost, "WHALEWATCH_POLYMARKET_DATA_HOST")
	setStr(&cfg.Polymarket.ProfileHost, "WHALEWATCH_POLYMARKET_PROFILE_HOST")
	setDuration(&cfg.Polymarket.RequestInterval, "WHALEWATCH_POLYMARKET_REQUEST_INTERVAL")

	// ── Monitor ──
	setDuration(&cfg.Monitor.PollInterval, "WHALEWATCH_MONITOR_POLL_INTERVAL")
	setInt(&cfg.Monitor.FetchLimit, "WHALEWATCH_MONITOR_FETCH_LIMIT")
	setDuration(&cfg.Monitor.TradeDelay, "WHALEWATCH_MONITOR_TRADE_DELAY")
	setBool(&cfg.Monitor.PreventDuplicates, "WHALEWATCH_MONITOR_PREVENT_DUPLICATES")
	setDuration(&cfg.Monitor.SuppressionWindow, "WHALEWATCH_MONITOR_SUPPRESSION_WINDOW")
	setInt(&cfg.Monitor.RetentionDays, "WHALEWATCH_MONITOR_RETENTION_DAYS")
	setInt(&cfg.Monitor.AlertRetentionDays, "WHALEWATCH_MONITOR_ALERT_RETENTION_DAYS")
	setStr(&cfg.Monitor.ArchiveCron, "WHALEWATCH_MONITOR_ARCHIVE_CRON")

	// ── Thresholds ──
	setInt(&cfg.Thresholds.MinTrades, "WHALEWATCH_THRESHOLDS_MIN_TRADES")
	setFloat64(&cfg.Thresholds.MinRealizedPnl, "WHALEWATCH_THRESHOLDS_MIN_REALIZED_PNL")
	setFloat64(&cfg.Thresholds.MinLargestWin, "WHALEWATCH_THRESHOLDS_MIN_LARGEST_WIN")
	setFloat64(&cfg.Thresholds.MinPositionValue, "WHALEWATCH_THRESHOLDS_MIN_POSITION_VALUE")
	setFloat64(&cfg.Thresholds.MinBetValue, "WHALEWATCH_THRESHOLDS_MIN_BET_VALUE")

	// ── Database ──
	setStr(&cfg.Database.DSN, "WHALEWATCH_DATABASE_DSN")
	setStr(&cfg.Database.DSN, "WHALEWATCH_DATABASE_URL") // compatibility alias
	setStr(&cfg.Database.Host, "WHALEWATCH_DATABASE_HOST")
	setInt(&cfg.Database.Port, "WHALEWATCH_DATABASE_PORT")
	setStr(&cfg.Database.Database, "WHALEWATCH_DATABASE_NAME")
	setStr(&cfg.Database.User, "WHALEWATCH_DATABASE_USER")
	setStr(&cfg.Database.Password, "WHALEWATCH_DATABASE_PASSWORD")
	setStr(&cfg.Database.SSLMode, "WHALEWATCH_DATABASE_SSLMODE")
	setInt(&cfg.Database.PoolMaxConns, "WHALEWATCH_DATABASE_POOL_MAX_CONNS")
	setInt(&cfg.Database.PoolMinConns, "WHALEWATCH_DATABASE_POOL_MIN_CONNS")
	setBool(&cfg.Database.RunMigrations, "WHALEWATCH_DATABASE_RUN_MIGRATIONS")

	// ── Redis ──
	setBool(&cfg.Redis.Enabled, "WHALEWATCH_REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "WHALEWATCH_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "WHALEWATCH_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "WHALEWATCH_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "WHALEWATCH_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "WHALEWATCH_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "WHALEWATCH_REDIS_TLS_ENABLED")

	// ── S3 ──
	setBool(&cfg.S3.Enabled, "WHALEWATCH_S3_ENABLED")
	setStr(&cfg.S3.Endpoint, "WHALEWATCH_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "WHALEWATCH_S3_REGION")
	setStr(&cfg.S3.Bucket, "WHALEWATCH_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "WHALEWATCH_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "WHALEWATCH_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "WHALEWATCH_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "WHALEWATCH_S3_FORCE_PATH_STYLE")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "WHALEWATCH_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "WHALEWATCH_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "WHALEWATCH_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.APIKey, "WHALEWATCH_SERVER_API_KEY")
	setInt(&cfg.Server.RateLimitPerMin, "WHALEWATCH_SERVER_RATE_LIMIT_PER_MIN")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "WHALEWATCH_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "WHALEWATCH_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "WHALEWATCH_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "WHALEWATCH_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.Mode, "WHALEWATCH_MODE")
	setStr(&cfg.LogLevel, "WHALEWATCH_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
