package domain

// TradeEvent is a single trade from the Polymarket data API. The feed is
// heterogeneous: depending on the source path a trade may carry a proxy
// wallet or only maker/taker addresses, and any of several transaction hash
// spellings. TxHash holds the first hash variant present in the payload;
// the remaining fallbacks (ID, synthesized identity) are applied by the
// pipeline normalizer.
type TradeEvent struct {
	ID          string
	TxHash      string
	ProxyWallet string
	Maker       string
	Taker       string
	Asset       string
	Side        string // "BUY" or "SELL"
	Outcome     string
	Size        float64
	Price       float64
	Timestamp   int64 // unix seconds
	Title       string
	Market      string
	Slug        string
	EventSlug   string
	MarketSlug  string
}

// BetValue is the notional USD value of the trade.
func (t TradeEvent) BetValue() float64 {
	return t.Size * t.Price
}
