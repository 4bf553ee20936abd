package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/alanyoungcy/whalewatch/internal/domain"
	"github.com/alanyoungcy/whalewatch/internal/platform/polymarket"
)

// statsFuncs lets each lookup fail independently.
type statsFuncs struct {
	pnl     func() (float64, bool, error)
	value   func() (float64, error)
	profile func() (polymarket.APIProfileStats, error)
}

func (s statsFuncs) LeaderboardPnl(ctx context.Context, addr string) (float64, bool, error) {
	return s.pnl()
}

func (s statsFuncs) PositionValue(ctx context.Context, addr string) (float64, error) {
	return s.value()
}

func (s statsFuncs) ProfileStats(ctx context.Context, addr string) (polymarket.APIProfileStats, error) {
	return s.profile()
}

func TestEnrichAggregatesAllThreeLookups(t *testing.T) {
	e := NewEnricher(statsFuncs{
		pnl:   func() (float64, bool, error) { return 42_000, true, nil },
		value: func() (float64, error) { return 12_000, nil },
		profile: func() (polymarket.APIProfileStats, error) {
			return polymarket.APIProfileStats{Trades: 321, LargestWin: 9_000}, nil
		},
	}, discardLogger())

	stats := e.Enrich(context.Background(), whaleAddr)

	want := domain.TraderStats{
		TotalTrades:   321,
		RealizedPnl:   42_000,
		LargestWin:    9_000,
		PositionValue: 12_000,
	}
	if stats != want {
		t.Errorf("stats = %+v, want %+v", stats, want)
	}
}

func TestEnrichSingleLookupFailureDegradesOnlyThatField(t *testing.T) {
	e := NewEnricher(statsFuncs{
		pnl:   func() (float64, bool, error) { return 0, false, errors.New("leaderboard down") },
		value: func() (float64, error) { return 12_000, nil },
		profile: func() (polymarket.APIProfileStats, error) {
			return polymarket.APIProfileStats{Trades: 321, LargestWin: 9_000}, nil
		},
	}, discardLogger())

	stats := e.Enrich(context.Background(), whaleAddr)

	if stats.RealizedPnl != 0 {
		t.Errorf("failed lookup should leave pnl at 0, got %v", stats.RealizedPnl)
	}
	if stats.TotalTrades != 321 || stats.PositionValue != 12_000 || stats.LargestWin != 9_000 {
		t.Errorf("surviving lookups should still populate: %+v", stats)
	}
}

func TestEnrichAbsentLeaderboardEntryIsZero(t *testing.T) {
	e := NewEnricher(statsFuncs{
		pnl:     func() (float64, bool, error) { return 0, false, nil },
		value:   func() (float64, error) { return 0, nil },
		profile: func() (polymarket.APIProfileStats, error) { return polymarket.APIProfileStats{}, nil },
	}, discardLogger())

	stats := e.Enrich(context.Background(), whaleAddr)
	if stats != (domain.TraderStats{}) {
		t.Errorf("unknown trader should yield zero stats, got %+v", stats)
	}
}
