package pipeline

import "github.com/alanyoungcy/whalewatch/internal/domain"

// Evaluator applies the whale qualification thresholds. All comparisons are
// inclusive: a value exactly at its threshold qualifies.
type Evaluator struct {
	thresholds domain.ThresholdSet
}

// NewEvaluator creates an Evaluator.
func NewEvaluator(thresholds domain.ThresholdSet) *Evaluator {
	return &Evaluator{thresholds: thresholds}
}

// ThresholdOverrides carries optional per-run threshold replacements. A nil
// field keeps the configured value.
type ThresholdOverrides struct {
	MinTrades        *int     `json:"minTrades"`
	MinRealizedPnl   *float64 `json:"minRealizedPnl"`
	MinLargestWin    *float64 `json:"minLargestWin"`
	MinPositionValue *float64 `json:"minPositionValue"`
	MinBetValue      *float64 `json:"minBetValue"`
}

// Override returns a new Evaluator with the given overrides applied on top
// of this evaluator's threshold set.
func (e *Evaluator) Override(ov ThresholdOverrides) *Evaluator {
	t := e.thresholds
	if ov.MinTrades != nil {
		t.MinTrades = *ov.MinTrades
	}
	if ov.MinRealizedPnl != nil {
		t.MinRealizedPnl = *ov.MinRealizedPnl
	}
	if ov.MinLargestWin != nil {
		t.MinLargestWin = *ov.MinLargestWin
	}
	if ov.MinPositionValue != nil {
		t.MinPositionValue = *ov.MinPositionValue
	}
	if ov.MinBetValue != nil {
		t.MinBetValue = *ov.MinBetValue
	}
	return &Evaluator{thresholds: t}
}

// BetQualifies reports whether the trade's notional value clears the minimum
// bet threshold. It is checked before enrichment so small trades never cost
// API lookups.
func (e *Evaluator) BetQualifies(t domain.TradeEvent) bool {
	return t.BetValue() >= e.thresholds.MinBetValue
}

// TraderQualifies reports whether the enriched trader statistics clear all
// four whale thresholds.
func (e *Evaluator) TraderQualifies(stats domain.TraderStats) bool {
	return stats.TotalTrades >= e.thresholds.MinTrades &&
		stats.RealizedPnl >= e.thresholds.MinRealizedPnl &&
		stats.LargestWin >= e.thresholds.MinLargestWin &&
		stats.PositionValue >= e.thresholds.MinPositionValue
}
