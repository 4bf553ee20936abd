package polymarket

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/alanyoungcy/whalewatch/internal/domain"
)

// flexFloat decodes a JSON number or numeric string. The data API is loosely
// typed and the same field may arrive as 12.5, "12.5", or null depending on
// the endpoint; anything unparsable decodes to zero.
type flexFloat float64

// UnmarshalJSON implements json.Unmarshaler. It never returns an error so a
// single garbage field cannot reject a whole payload.
func (f *flexFloat) UnmarshalJSON(data []byte) error {
	*f = 0
	s := strings.TrimSpace(string(data))
	if s == "" || s == "null" {
		return nil
	}
	s = strings.Trim(s, `"`)
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		*f = flexFloat(v)
	}
	return nil
}

// flexInt decodes a JSON integer, float, or numeric string to an int64, with
// the same unparsable-to-zero behavior as flexFloat.
type flexInt int64

// UnmarshalJSON implements json.Unmarshaler.
func (f *flexInt) UnmarshalJSON(data []byte) error {
	*f = 0
	s := strings.TrimSpace(string(data))
	if s == "" || s == "null" {
		return nil
	}
	s = strings.Trim(s, `"`)
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		*f = flexInt(v)
		return nil
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		*f = flexInt(int64(v))
	}
	return nil
}

// APITrade is the wire representation of a trade from GET /trades. The feed
// is heterogeneous: a trade may identify its trader via proxyWallet or only
// maker/taker addresses, spell its transaction hash several ways, and report
// its size under either "size" or "amount". Size and Amount are pointers so
// an explicit zero can be told apart from an absent field.
type APITrade struct {
	ID              string     `json:"id"`
	TransactionHash string     `json:"transactionHash"`
	TxHashSnake     string     `json:"transaction_hash"`
	TxHashShort     string     `json:"txHash"`
	TxHashShortAlt  string     `json:"tx_hash"`
	Hash            string     `json:"hash"`
	ProxyWallet     string     `json:"proxyWallet"`
	MakerAddress    string     `json:"maker_address"`
	TakerAddress    string     `json:"taker_address"`
	Size            *flexFloat `json:"size"`
	Amount          *flexFloat `json:"amount"`
	Price           flexFloat  `json:"price"`
	Side            string     `json:"side"`
	Timestamp       flexInt    `json:"timestamp"`
	Market          string     `json:"market"`
	Asset           string     `json:"asset"`
	AssetID         string     `json:"asset_id"`
	EventSlug       string     `json:"eventSlug"`
	Slug            string     `json:"slug"`
	MarketSlug      string     `json:"market_slug"`
	Title           string     `json:"title"`
	Outcome         string     `json:"outcome"`
}

// ToTradeEvent converts the wire trade to the domain representation,
// coalescing the variant fields: first transaction hash spelling wins, size
// falls back to amount only when size is absent, asset falls back to
// asset_id. Trader address selection and identity synthesis are left to the
// pipeline normalizer.
func (t *APITrade) ToTradeEvent() domain.TradeEvent {
	var size float64
	switch {
	case t.Size != nil:
		size = float64(*t.Size)
	case t.Amount != nil:
		size = float64(*t.Amount)
	}

	var txHash string
	for _, candidate := range []string{t.TransactionHash, t.TxHashSnake, t.TxHashShort, t.TxHashShortAlt, t.Hash} {
		if candidate != "" {
			txHash = candidate
			break
		}
	}

	asset := t.Asset
	if asset == "" {
		asset = t.AssetID
	}

	return domain.TradeEvent{
		ID:          t.ID,
		TxHash:      txHash,
		ProxyWallet: t.ProxyWallet,
		Maker:       t.MakerAddress,
		Taker:       t.TakerAddress,
		Asset:       asset,
		Side:        t.Side,
		Outcome:     t.Outcome,
		Size:        size,
		Price:       float64(t.Price),
		Timestamp:   int64(t.Timestamp),
		Title:       t.Title,
		Market:      t.Market,
		Slug:        t.Slug,
		EventSlug:   t.EventSlug,
		MarketSlug:  t.MarketSlug,
	}
}

// APILeaderboardEntry is one row of GET /v1/leaderboard.
type APILeaderboardEntry struct {
	Pnl flexFloat `json:"pnl"`
}

// APIPositionValue is one entry of GET /value.
type APIPositionValue struct {
	Value flexFloat `json:"value"`
}

// APIProfileStats is the response of the polymarket.com profile stats
// endpoint. Absent or malformed fields decode to zero.
type APIProfileStats struct {
	Trades     int64
	LargestWin float64
}

// UnmarshalJSON implements json.Unmarshaler with the same loose-typing
// tolerance as the rest of the feed.
func (s *APIProfileStats) UnmarshalJSON(data []byte) error {
	var raw struct {
		Trades     flexInt   `json:"trades"`
		LargestWin flexFloat `json:"largestWin"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	s.Trades = int64(raw.Trades)
	s.LargestWin = float64(raw.LargestWin)
	return nil
}
