package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/alanyoungcy/whalewatch/internal/domain"
)

// siteBaseURL is the public site root used when constructing market and
// profile links for alerts.
const siteBaseURL = "https://polymarket.com"

// TradeSource provides the raw trade feed. *polymarket.DataClient satisfies
// it.
type TradeSource interface {
	RecentTrades(ctx context.Context, limit int) ([]domain.TradeEvent, error)
}

// Announcer delivers a freshly created alert to outbound notification
// channels. Delivery failures are the announcer's problem; the monitor never
// waits on them.
type Announcer interface {
	AnnounceAlert(ctx context.Context, alert domain.Alert)
}

// Sweeper prunes aged ledger rows and alerts. *Archiver satisfies it.
type Sweeper interface {
	Run(ctx context.Context) error
}

// MonitorDeps bundles the monitor's collaborators. Suppressor, Bus, Announcer,
// and Sweeper may be nil; the monitor degrades to store-backed suppression and
// skips fan-out and per-run sweeps respectively.
type MonitorDeps struct {
	Source     TradeSource
	Enricher   *Enricher
	Evaluator  *Evaluator
	Alerts     domain.AlertStore
	Ledger     domain.LedgerStore
	Suppressor domain.Suppressor
	Bus        domain.SignalBus
	Announcer  Announcer
	Sweeper    Sweeper
}

// MonitorOptions holds the tunable run parameters. PreventDuplicates toggles
// the time-windowed trader suppression; the transaction-identity ledger gate
// is always on.
type MonitorOptions struct {
	FetchLimit        int
	TradeDelay        time.Duration
	SuppressionWindow time.Duration
	PreventDuplicates bool
}

// Monitor executes whale-detection runs over the public trade feed: fetch,
// normalize, dedup against the ledger, enrich, evaluate thresholds, and
// persist qualifying alerts.
type Monitor struct {
	deps     MonitorDeps
	opts     MonitorOptions
	logger   *slog.Logger
	sweeping atomic.Bool
}

// NewMonitor creates a Monitor.
func NewMonitor(deps MonitorDeps, opts MonitorOptions, logger *slog.Logger) *Monitor {
	if opts.FetchLimit <= 0 {
		opts.FetchLimit = 100
	}
	return &Monitor{
		deps:   deps,
		opts:   opts,
		logger: logger,
	}
}

// RunOverrides carries optional per-run replacements for the configured
// thresholds and the trader suppression toggle, supplied by the manual
// trigger API. The transaction-identity ledger gate cannot be overridden.
type RunOverrides struct {
	Thresholds        *ThresholdOverrides `json:"thresholds"`
	PreventDuplicates *bool               `json:"preventDuplicates"`
}

// RunOnce performs a single monitor run with the configured settings.
func (m *Monitor) RunOnce(ctx context.Context) (domain.RunSummary, error) {
	return m.RunWith(ctx, RunOverrides{})
}

// RunWith performs a single monitor run and returns its summary. Only the
// initial feed fetch is fatal; every per-trade failure is logged, counted,
// and skipped so one bad trade never aborts the batch.
func (m *Monitor) RunWith(ctx context.Context, overrides RunOverrides) (domain.RunSummary, error) {
	evaluator := m.deps.Evaluator
	if overrides.Thresholds != nil {
		evaluator = evaluator.Override(*overrides.Thresholds)
	}
	suppressOn := m.opts.PreventDuplicates
	if overrides.PreventDuplicates != nil {
		suppressOn = *overrides.PreventDuplicates
	}

	summary := domain.RunSummary{
		RunID:  uuid.NewString(),
		Alerts: []domain.Alert{},
	}
	log := m.logger.With(slog.String("run_id", summary.RunID))

	trades, err := m.deps.Source.RecentTrades(ctx, m.opts.FetchLimit)
	if err != nil {
		return summary, fmt.Errorf("fetching recent trades: %w", err)
	}
	summary.TotalTradesFetched = len(trades)
	log.Info("monitor run started", slog.Int("trades_fetched", len(trades)))

	seenAddresses := make(map[string]struct{})

	for i := range trades {
		if err := ctx.Err(); err != nil {
			return summary, fmt.Errorf("run cancelled at trade %d: %w", i, err)
		}
		trade := trades[i]

		addr, ok := TraderAddress(trade)
		if !ok {
			summary.TradesMalformed++
			continue
		}
		identity, ok := TransactionIdentity(trade, addr)
		if !ok {
			summary.TradesMalformed++
			continue
		}

		// One evaluation per trader per run: the feed often contains several
		// fills from the same wallet and the enrichment lookups are the
		// expensive part.
		if _, dup := seenAddresses[addr]; dup {
			summary.TradesSkipped++
			continue
		}
		seenAddresses[addr] = struct{}{}

		// Claim the identity before enrichment so an overlapping run cannot
		// double-process the same transaction.
		err := m.deps.Ledger.Record(ctx, domain.ProcessedTransaction{
			TransactionID: identity,
			TraderAddress: addr,
			RecordedAt:    time.Now().UTC(),
		})
		if errors.Is(err, domain.ErrAlreadyExists) {
			summary.TradesSkipped++
			continue
		}
		if err != nil {
			log.Error("recording processed transaction",
				slog.String("transaction_id", identity),
				slog.String("error", err.Error()),
			)
			summary.TradesSkipped++
			continue
		}

		summary.TradesProcessed++

		if alert, created := m.evaluateCandidate(ctx, log, evaluator, suppressOn, trade, addr); created {
			summary.AlertsCreated++
			summary.Alerts = append(summary.Alerts, alert)
		}

		m.pause(ctx)
	}

	summary.UniqueAddresses = len(seenAddresses)
	summary.Success = true

	log.Info("monitor run complete",
		slog.Int("trades_fetched", summary.TotalTradesFetched),
		slog.Int("trades_processed", summary.TradesProcessed),
		slog.Int("trades_skipped", summary.TradesSkipped),
		slog.Int("trades_malformed", summary.TradesMalformed),
		slog.Int("unique_addresses", summary.UniqueAddresses),
		slog.Int("alerts_created", summary.AlertsCreated),
	)

	m.sweepAsync(log)

	return summary, nil
}

// sweepAsync fires the retention sweep in the background. At most one sweep
// runs at a time and a failed sweep only logs; it never affects the run that
// started it.
func (m *Monitor) sweepAsync(log *slog.Logger) {
	if m.deps.Sweeper == nil {
		return
	}
	if !m.sweeping.CompareAndSwap(false, true) {
		return
	}
	go func() {
		defer m.sweeping.Store(false)
		if err := m.deps.Sweeper.Run(context.Background()); err != nil {
			log.Warn("retention sweep failed", slog.String("error", err.Error()))
		}
	}()
}

// evaluateCandidate runs the post-claim stages for one trade: the cheap bet
// value gate, enrichment, threshold evaluation, optional trader suppression,
// and the alert write. Returns the created alert when one was written.
func (m *Monitor) evaluateCandidate(ctx context.Context, log *slog.Logger, evaluator *Evaluator, suppressOn bool, trade domain.TradeEvent, addr string) (domain.Alert, bool) {
	if !evaluator.BetQualifies(trade) {
		return domain.Alert{}, false
	}

	stats := m.deps.Enricher.Enrich(ctx, addr)
	if !evaluator.TraderQualifies(stats) {
		log.Debug("trader below thresholds",
			slog.String("address", addr),
			slog.Int("total_trades", stats.TotalTrades),
			slog.Float64("realized_pnl", stats.RealizedPnl),
			slog.Float64("largest_win", stats.LargestWin),
			slog.Float64("position_value", stats.PositionValue),
		)
		return domain.Alert{}, false
	}

	var claimed bool
	if suppressOn {
		suppressed, c, err := m.suppress(ctx, addr)
		claimed = c
		if err != nil {
			// Fail open: a broken suppression backend may duplicate an alert
			// but must not silence whales.
			log.Warn("suppression check failed",
				slog.String("address", addr),
				slog.String("error", err.Error()),
			)
		} else if suppressed {
			log.Debug("alert suppressed, trader alerted recently", slog.String("address", addr))
			return domain.Alert{}, false
		}
	}

	created, err := m.deps.Alerts.Insert(ctx, m.buildAlert(trade, addr, stats))
	if err != nil {
		// The window was claimed for an alert that never materialized; free
		// it so the trader's next qualifying trade is not silenced.
		if claimed {
			m.releaseSuppression(ctx, log, addr)
		}
		if errors.Is(err, domain.ErrAlreadyExists) {
			log.Debug("identical alert already stored", slog.String("address", addr))
			return domain.Alert{}, false
		}
		log.Error("inserting alert",
			slog.String("address", addr),
			slog.String("error", err.Error()),
		)
		return domain.Alert{}, false
	}

	log.Info("whale alert created",
		slog.Int64("alert_id", created.ID),
		slog.String("address", addr),
		slog.Float64("bet_value", created.BetValue),
		slog.String("market_slug", created.MarketSlug),
	)

	m.fanOut(ctx, log, created)
	return created, true
}

// suppress consults the suppression backend. The Redis suppressor marks and
// checks in one atomic step; without one the alert store's recent-alert query
// is used instead. claimed reports whether this call took the window mark, so
// the caller can release it if the alert write fails.
func (m *Monitor) suppress(ctx context.Context, addr string) (suppressed, claimed bool, err error) {
	if m.opts.SuppressionWindow <= 0 {
		return false, false, nil
	}
	if m.deps.Suppressor != nil {
		first, err := m.deps.Suppressor.Mark(ctx, addr, m.opts.SuppressionWindow)
		if err != nil {
			return false, false, err
		}
		return !first, first, nil
	}
	exists, err := m.deps.Alerts.ExistsRecent(ctx, addr, m.opts.SuppressionWindow)
	return exists, false, err
}

// releaseSuppression drops a suppression mark taken in this run. Best effort.
func (m *Monitor) releaseSuppression(ctx context.Context, log *slog.Logger, addr string) {
	if m.deps.Suppressor == nil {
		return
	}
	if err := m.deps.Suppressor.Clear(ctx, addr); err != nil {
		log.Warn("releasing suppression mark",
			slog.String("address", addr),
			slog.String("error", err.Error()),
		)
	}
}

// fanOut pushes a created alert to the signal bus and notification channels.
// Both are best-effort.
func (m *Monitor) fanOut(ctx context.Context, log *slog.Logger, alert domain.Alert) {
	if m.deps.Bus != nil {
		payload, err := json.Marshal(alert)
		if err == nil {
			if err := m.deps.Bus.Publish(ctx, "alerts", payload); err != nil {
				log.Warn("publishing alert to bus", slog.String("error", err.Error()))
			}
			if err := m.deps.Bus.StreamAppend(ctx, "alerts", payload); err != nil {
				log.Warn("appending alert to stream", slog.String("error", err.Error()))
			}
		}
	}
	if m.deps.Announcer != nil {
		m.deps.Announcer.AnnounceAlert(ctx, alert)
	}
}

// buildAlert assembles the alert row for a qualifying trade.
func (m *Monitor) buildAlert(trade domain.TradeEvent, addr string, stats domain.TraderStats) domain.Alert {
	slug := trade.EventSlug
	if slug == "" {
		slug = trade.Slug
	}
	if slug == "" {
		slug = trade.MarketSlug
	}

	var marketURL string
	switch {
	case slug != "" && slug != "unknown":
		marketURL = siteBaseURL + "/event/" + slug
	case trade.Market != "":
		marketURL = siteBaseURL + "/market/" + trade.Market
	}

	return domain.Alert{
		TraderAddress: addr,
		TotalTrades:   stats.TotalTrades,
		RealizedPnl:   stats.RealizedPnl,
		PositionValue: stats.PositionValue,
		LargestWin:    stats.LargestWin,
		BetSide:       trade.Side,
		BetSize:       trade.Size,
		BetPrice:      trade.Price,
		BetValue:      trade.BetValue(),
		MarketSlug:    slug,
		MarketTitle:   trade.Title,
		Outcome:       trade.Outcome,
		MarketURL:     marketURL,
		ProfileURL:    siteBaseURL + "/profile/" + addr,
	}
}

// pause sleeps for the configured per-trade delay, waking early on
// cancellation.
func (m *Monitor) pause(ctx context.Context) {
	if m.opts.TradeDelay <= 0 {
		return
	}
	timer := time.NewTimer(m.opts.TradeDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
