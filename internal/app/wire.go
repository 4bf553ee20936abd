package app

import (
	"context"
	"fmt"
	"log/slog"

	s3blob "github.com/alanyoungcy/whalewatch/internal/blob/s3"
	"github.com/alanyoungcy/whalewatch/internal/cache/redis"
	"github.com/alanyoungcy/whalewatch/internal/config"
	"github.com/alanyoungcy/whalewatch/internal/domain"
	"github.com/alanyoungcy/whalewatch/internal/notify"
	"github.com/alanyoungcy/whalewatch/internal/platform/polymarket"
	"github.com/alanyoungcy/whalewatch/internal/store/postgres"
)

// Dependencies bundles every domain-level dependency that the application modes
// need to operate. It is constructed by Wire and torn down by the returned
// cleanup function.
type Dependencies struct {
	// Clients, exposed for health probes
	DB    *postgres.Client
	Cache *redis.Client

	// Stores
	AlertStore  domain.AlertStore
	LedgerStore domain.LedgerStore

	// Redis-backed (nil when redis is disabled)
	Suppressor  domain.Suppressor
	RateLimiter domain.RateLimiter
	SignalBus   domain.SignalBus

	// Blob storage (nil when s3 is disabled)
	BlobWriter   domain.BlobWriter
	BlobReader   domain.BlobReader
	BlobArchiver domain.Archiver

	// Upstream data API
	DataClient *polymarket.DataClient

	// Notifications
	Notifier *notify.Notifier
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config) (*Dependencies, func(), error) {
	logger := slog.Default()

	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- PostgreSQL ---
	pgClient, err := postgres.New(ctx, postgres.ClientConfig{
		DSN:      cfg.Database.DSN,
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		Database: cfg.Database.Database,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		SSLMode:  cfg.Database.SSLMode,
		MaxConns: cfg.Database.PoolMaxConns,
		MinConns: cfg.Database.PoolMinConns,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: postgres: %w", err)
	}
	closers = append(closers, pgClient.Close)

	if cfg.Database.RunMigrations {
		if err := pgClient.RunMigrations(ctx); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
		}
	}

	deps.DB = pgClient
	pool := pgClient.Pool()
	deps.AlertStore = postgres.NewAlertStore(pool)
	deps.LedgerStore = postgres.NewLedgerStore(pool)

	// --- Redis (optional; monitor falls back to store-backed suppression) ---
	if cfg.Redis.Enabled {
		redisClient, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })

		deps.Cache = redisClient
		deps.Suppressor = redis.NewSuppressor(redisClient)
		deps.RateLimiter = redis.NewRateLimiter(redisClient)
		deps.SignalBus = redis.NewSignalBus(redisClient)
	}

	// --- S3 blob storage (optional; archiver falls back to delete-only sweeps) ---
	if cfg.S3.Enabled {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		closers = append(closers, func() { _ = s3Client.Close() })

		deps.BlobWriter = s3blob.NewWriter(s3Client)
		deps.BlobReader = s3blob.NewReader(s3Client)
		deps.BlobArchiver = s3blob.NewArchiver(deps.BlobWriter, deps.LedgerStore, deps.AlertStore, logger)
	}

	// --- Upstream data API ---
	pacer := polymarket.NewPacer(cfg.Polymarket.RequestInterval.Duration)
	deps.DataClient = polymarket.NewDataClient(cfg.Polymarket.DataHost, cfg.Polymarket.ProfileHost, pacer)

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(
			cfg.Notify.TelegramToken,
			cfg.Notify.TelegramChatID,
		))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)

	return deps, cleanup, nil
}
