package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/whalewatch/internal/domain"
	"github.com/alanyoungcy/whalewatch/internal/notify"
	"github.com/alanyoungcy/whalewatch/internal/pipeline"
	"github.com/alanyoungcy/whalewatch/internal/server"
	"github.com/alanyoungcy/whalewatch/internal/server/handler"
	"github.com/alanyoungcy/whalewatch/internal/server/ws"
)

// MonitorMode runs the polling whale detector and retention sweeps. The HTTP
// API is started as well when server.enabled is set.
func (a *App) MonitorMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting monitor mode")

	g, ctx := errgroup.WithContext(ctx)

	archiver := a.buildArchiver(deps)
	monitor := a.buildMonitor(deps, archiver)
	triggerCh := make(chan struct{}, 1)

	a.startMonitorLoop(ctx, g, deps, monitor, triggerCh)
	a.startArchiver(ctx, g, archiver)

	if a.cfg.Server.Enabled {
		a.startHTTPServer(ctx, g, deps, monitor, triggerCh)
	}

	return g.Wait()
}

// ServeMode runs only the HTTP + WebSocket API. No background polling happens;
// runs are started on demand through POST /api/monitor/run, and each run's
// retention sweep keeps the ledger bounded without a scheduled archiver.
func (a *App) ServeMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting serve mode")

	g, ctx := errgroup.WithContext(ctx)

	monitor := a.buildMonitor(deps, a.buildArchiver(deps))
	a.startHTTPServer(ctx, g, deps, monitor, nil)

	return g.Wait()
}

// FullMode runs everything: the polling detector, retention sweeps, and the
// HTTP + WebSocket API.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting full mode")

	g, ctx := errgroup.WithContext(ctx)

	archiver := a.buildArchiver(deps)
	monitor := a.buildMonitor(deps, archiver)
	triggerCh := make(chan struct{}, 1)

	a.startMonitorLoop(ctx, g, deps, monitor, triggerCh)
	a.startArchiver(ctx, g, archiver)
	a.startHTTPServer(ctx, g, deps, monitor, triggerCh)

	return g.Wait()
}

// buildArchiver assembles the retention sweep from wired dependencies.
func (a *App) buildArchiver(deps *Dependencies) *pipeline.Archiver {
	return pipeline.NewArchiver(
		deps.BlobArchiver,
		deps.LedgerStore,
		deps.AlertStore,
		a.cfg.Monitor.RetentionDays,
		a.cfg.Monitor.AlertRetentionDays,
		a.logger,
	)
}

// buildMonitor assembles the detection pipeline from wired dependencies.
func (a *App) buildMonitor(deps *Dependencies, sweeper pipeline.Sweeper) *pipeline.Monitor {
	thresholds := domain.ThresholdSet{
		MinTrades:        a.cfg.Thresholds.MinTrades,
		MinRealizedPnl:   a.cfg.Thresholds.MinRealizedPnl,
		MinLargestWin:    a.cfg.Thresholds.MinLargestWin,
		MinPositionValue: a.cfg.Thresholds.MinPositionValue,
		MinBetValue:      a.cfg.Thresholds.MinBetValue,
	}

	return pipeline.NewMonitor(
		pipeline.MonitorDeps{
			Source:     deps.DataClient,
			Enricher:   pipeline.NewEnricher(deps.DataClient, a.logger),
			Evaluator:  pipeline.NewEvaluator(thresholds),
			Alerts:     deps.AlertStore,
			Ledger:     deps.LedgerStore,
			Suppressor: deps.Suppressor,
			Bus:        deps.SignalBus,
			Announcer:  notify.NewAlertAnnouncer(deps.Notifier),
			Sweeper:    sweeper,
		},
		pipeline.MonitorOptions{
			FetchLimit:        a.cfg.Monitor.FetchLimit,
			TradeDelay:        a.cfg.Monitor.TradeDelay.Duration,
			SuppressionWindow: a.cfg.Monitor.SuppressionWindow.Duration,
			PreventDuplicates: a.cfg.Monitor.PreventDuplicates,
		},
		a.logger,
	)
}

// startMonitorLoop adds the polling goroutine to the errgroup. The loop runs
// one cycle immediately, then on every poll interval tick, and additionally
// whenever triggerCh receives (POST /api/monitor/trigger).
func (a *App) startMonitorLoop(ctx context.Context, g *errgroup.Group, deps *Dependencies, monitor *pipeline.Monitor, triggerCh <-chan struct{}) {
	interval := a.cfg.Monitor.PollInterval.Duration
	if interval <= 0 {
		interval = time.Minute
	}

	runOnce := func() {
		summary, err := monitor.RunOnce(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			a.logger.ErrorContext(ctx, "monitor run failed", slog.String("error", err.Error()))
			_ = deps.Notifier.Notify(ctx, notify.EventError, "Monitor run failed", err.Error())
			return
		}
		a.logger.InfoContext(ctx, "monitor run finished",
			slog.String("run_id", summary.RunID),
			slog.Int("trades_fetched", summary.TotalTradesFetched),
			slog.Int("trades_processed", summary.TradesProcessed),
			slog.Int("unique_addresses", summary.UniqueAddresses),
			slog.Int("alerts_created", summary.AlertsCreated),
		)
	}

	g.Go(func() error {
		runOnce()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				runOnce()
			case <-triggerCh:
				runOnce()
			}
		}
	})

	a.logger.InfoContext(ctx, "monitor loop started", slog.Duration("interval", interval))
}

// startArchiver adds the scheduled retention sweep goroutine. With a cron
// expression configured the sweep follows it; otherwise it falls back to a
// daily ticker.
func (a *App) startArchiver(ctx context.Context, g *errgroup.Group, archiver *pipeline.Archiver) {
	cronExpr := a.cfg.Monitor.ArchiveCron
	g.Go(func() error {
		if cronExpr != "" {
			err := archiver.RunCron(ctx, cronExpr)
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("archiver cron: %w", err)
		}

		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				if err := archiver.Run(ctx); err != nil && ctx.Err() == nil {
					a.logger.ErrorContext(ctx, "retention sweep failed", slog.String("error", err.Error()))
				}
			}
		}
	})
}

// startHTTPServer adds the HTTP server (and, when Redis is wired, the
// WebSocket hub) to the errgroup. The server is shut down gracefully when the
// context is cancelled.
func (a *App) startHTTPServer(
	ctx context.Context,
	g *errgroup.Group,
	deps *Dependencies,
	monitor *pipeline.Monitor,
	triggerCh chan<- struct{},
) {
	monitorH := handler.NewMonitorHandler(monitor, deps.AlertStore, deps.LedgerStore, a.logger)
	if triggerCh != nil {
		monitorH = monitorH.WithTriggerChannel(triggerCh)
	}

	alertsH := handler.NewAlertHandler(deps.AlertStore, a.logger)
	if deps.SignalBus != nil {
		alertsH = alertsH.WithSignalBus(deps.SignalBus)
	}

	healthH := handler.NewHealthHandler(a.logger)
	if deps.DB != nil {
		healthH = healthH.WithCheck("postgres", deps.DB)
	}
	if deps.Cache != nil {
		healthH = healthH.WithCheck("redis", deps.Cache)
	}

	handlers := server.Handlers{
		Health:  healthH,
		Alerts:  alertsH,
		Monitor: monitorH,
	}
	if deps.BlobReader != nil {
		handlers.Archives = handler.NewArchiveHandler(deps.BlobReader, a.logger)
	}

	// The hub needs the Redis signal bus to have anything to forward.
	var hub *ws.Hub
	if deps.SignalBus != nil {
		hub = ws.NewHub(deps.SignalBus, a.logger, ws.Config{
			Mode:      a.cfg.Mode,
			StartedAt: time.Now().UTC(),
		})
		g.Go(func() error {
			return hub.Run(ctx)
		})
	}

	srv := server.NewServer(server.Config{
		Port:            a.cfg.Server.Port,
		CORSOrigins:     a.cfg.Server.CORSOrigins,
		APIKey:          a.cfg.Server.APIKey,
		RateLimiter:     deps.RateLimiter,
		RateLimit:       a.cfg.Server.RateLimitPerMin,
		RateLimitWindow: time.Minute,
	}, handlers, hub, a.logger)

	g.Go(func() error {
		return srv.Start()
	})

	g.Go(func() error {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})
}
