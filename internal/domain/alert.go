package domain

import "time"

// Alert is a persisted whale-trade alert: a trade whose trader cleared every
// configured threshold.
type Alert struct {
	ID            int64     `json:"id"`
	TraderAddress string    `json:"trader_address"`
	TotalTrades   int       `json:"total_trades"`
	RealizedPnl   float64   `json:"realized_pnl"`
	PositionValue float64   `json:"position_value"`
	LargestWin    float64   `json:"largest_win"`
	BetSide       string    `json:"bet_side"`
	BetSize       float64   `json:"bet_size"`
	BetPrice      float64   `json:"bet_price"`
	BetValue      float64   `json:"bet_value"`
	MarketSlug    string    `json:"market_slug"`
	MarketTitle   string    `json:"market_title"`
	Outcome       string    `json:"outcome"`
	MarketURL     string    `json:"market_url"`
	ProfileURL    string    `json:"profile_url"`
	CreatedAt     time.Time `json:"created_at"`
}
