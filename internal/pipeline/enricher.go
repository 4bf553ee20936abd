package pipeline

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/whalewatch/internal/domain"
	"github.com/alanyoungcy/whalewatch/internal/platform/polymarket"
)

// StatsSource provides the three per-trader lookups used for enrichment.
// *polymarket.DataClient satisfies it.
type StatsSource interface {
	LeaderboardPnl(ctx context.Context, address string) (pnl float64, found bool, err error)
	PositionValue(ctx context.Context, address string) (float64, error)
	ProfileStats(ctx context.Context, address string) (polymarket.APIProfileStats, error)
}

// Enricher gathers trader statistics from the data API. The three lookups
// run concurrently; a failed lookup degrades that statistic to zero instead
// of failing the trade, since a missing record and a transient upstream
// error both mean the trader cannot currently prove whale status.
type Enricher struct {
	source StatsSource
	logger *slog.Logger
}

// NewEnricher creates an Enricher.
func NewEnricher(source StatsSource, logger *slog.Logger) *Enricher {
	return &Enricher{
		source: source,
		logger: logger,
	}
}

// Enrich returns the trader's statistics. It never fails: each lookup error
// is logged at warn level and the corresponding fields stay zero.
func (e *Enricher) Enrich(ctx context.Context, address string) domain.TraderStats {
	var stats domain.TraderStats

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		pnl, found, err := e.source.LeaderboardPnl(ctx, address)
		if err != nil {
			e.logger.Warn("leaderboard lookup failed",
				slog.String("address", address),
				slog.String("error", err.Error()),
			)
			return nil
		}
		if found {
			stats.RealizedPnl = pnl
		}
		return nil
	})

	g.Go(func() error {
		value, err := e.source.PositionValue(ctx, address)
		if err != nil {
			e.logger.Warn("position value lookup failed",
				slog.String("address", address),
				slog.String("error", err.Error()),
			)
			return nil
		}
		stats.PositionValue = value
		return nil
	})

	g.Go(func() error {
		profile, err := e.source.ProfileStats(ctx, address)
		if err != nil {
			e.logger.Warn("profile stats lookup failed",
				slog.String("address", address),
				slog.String("error", err.Error()),
			)
			return nil
		}
		stats.TotalTrades = int(profile.Trades)
		stats.LargestWin = profile.LargestWin
		return nil
	})

	// Goroutines only return nil; Wait is a barrier here.
	_ = g.Wait()

	return stats
}
