package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultsValidate(t *testing.T) {
	cfg := Defaults()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate, got: %v", err)
	}
}

func TestLoadMergesOverDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
mode = "full"

[monitor]
fetch_limit = 25
poll_interval = "30s"

[thresholds]
min_bet_value = 750.0
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Mode != "full" {
		t.Errorf("mode = %q, want full", cfg.Mode)
	}
	if cfg.Monitor.FetchLimit != 25 {
		t.Errorf("fetch_limit = %d, want 25", cfg.Monitor.FetchLimit)
	}
	if cfg.Monitor.PollInterval.Duration != 30*time.Second {
		t.Errorf("poll_interval = %v, want 30s", cfg.Monitor.PollInterval.Duration)
	}
	if cfg.Thresholds.MinBetValue != 750 {
		t.Errorf("min_bet_value = %v, want 750", cfg.Thresholds.MinBetValue)
	}
	// Untouched fields keep their defaults.
	if cfg.Thresholds.MinTrades != 100 {
		t.Errorf("min_trades = %d, want default 100", cfg.Thresholds.MinTrades)
	}
	if cfg.Polymarket.DataHost != "https://data-api.polymarket.com" {
		t.Errorf("data_host = %q, want default", cfg.Polymarket.DataHost)
	}
}

func TestEnvOverridesWinOverFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte("[monitor]\nfetch_limit = 25\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("WHALEWATCH_MONITOR_FETCH_LIMIT", "10")
	t.Setenv("WHALEWATCH_LOG_LEVEL", "debug")
	t.Setenv("WHALEWATCH_REDIS_ENABLED", "false")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Monitor.FetchLimit != 10 {
		t.Errorf("fetch_limit = %d, want env override 10", cfg.Monitor.FetchLimit)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("log_level = %q, want debug", cfg.LogLevel)
	}
	if cfg.Redis.Enabled {
		t.Error("redis.enabled should be overridden to false")
	}
}

func TestValidateCollectsAllProblems(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "bogus"
	cfg.Monitor.FetchLimit = 0
	cfg.Database.PoolMaxConns = 0

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"unknown mode", "fetch_limit", "pool_max_conns"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error should mention %q, got: %v", want, err)
		}
	}
}

func TestValidateRejectsMalformedCron(t *testing.T) {
	cfg := Defaults()
	cfg.Monitor.ArchiveCron = "0 3 * *"

	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "archive_cron") {
		t.Errorf("expected archive_cron error, got: %v", err)
	}

	cfg.Monitor.ArchiveCron = ""
	if err := cfg.Validate(); err != nil {
		t.Errorf("empty archive_cron should be allowed, got: %v", err)
	}
}

func TestRedactedConfig(t *testing.T) {
	cfg := Defaults()
	cfg.Database.Password = "hunter2"
	cfg.Server.APIKey = "secret"
	cfg.Notify.TelegramToken = "tok"

	red := RedactedConfig(&cfg)

	if red.Database.Password != "***" || red.Server.APIKey != "***" || red.Notify.TelegramToken != "***" {
		t.Error("secrets should be redacted")
	}
	if cfg.Database.Password != "hunter2" {
		t.Error("original config must not be mutated")
	}
	if red.Database.DSN != "" {
		t.Error("empty fields stay empty")
	}
}
