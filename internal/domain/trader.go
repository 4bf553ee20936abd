package domain

// TraderStats aggregates the enrichment lookups for one trader. Each field
// defaults to zero when its upstream lookup fails or returns nothing; a
// missing stat must never block trade processing.
type TraderStats struct {
	TotalTrades   int
	RealizedPnl   float64
	PositionValue float64
	LargestWin    float64
}
