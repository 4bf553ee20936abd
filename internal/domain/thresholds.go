package domain

// ThresholdSet holds the minimums a trade and its trader must clear before an
// alert is written. All comparisons are >=.
type ThresholdSet struct {
	MinTrades        int
	MinRealizedPnl   float64
	MinLargestWin    float64
	MinPositionValue float64
	MinBetValue      float64
}

// DefaultThresholds returns the stock whale thresholds.
func DefaultThresholds() ThresholdSet {
	return ThresholdSet{
		MinTrades:        100,
		MinRealizedPnl:   10_000,
		MinLargestWin:    1_000,
		MinPositionValue: 10_000,
		MinBetValue:      500,
	}
}
