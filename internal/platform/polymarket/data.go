// Package polymarket provides REST clients for the public Polymarket data
// API and the polymarket.com profile endpoint.
package polymarket

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/alanyoungcy/whalewatch/internal/domain"
)

// DataClient is the REST client for the Polymarket data API, which serves
// the public trade feed, leaderboard, and position values, plus the
// polymarket.com profile stats endpoint. Every request first waits on the
// shared Pacer, so lookups issued concurrently still hit the upstream at the
// configured minimum spacing.
type DataClient struct {
	dataHost    string
	profileHost string
	httpClient  *http.Client
	pacer       *Pacer
}

// NewDataClient creates a data API client.
//
// dataHost is the data API root, e.g. "https://data-api.polymarket.com".
// profileHost is the site root serving profile stats, e.g.
// "https://polymarket.com".
func NewDataClient(dataHost, profileHost string, pacer *Pacer) *DataClient {
	if profileHost == "" {
		profileHost = "https://polymarket.com"
	}
	if pacer == nil {
		pacer = NewPacer(0)
	}
	return &DataClient{
		dataHost:    dataHost,
		profileHost: profileHost,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		pacer: pacer,
	}
}

// RecentTrades returns the most recent trades from the public feed.
func (c *DataClient) RecentTrades(ctx context.Context, limit int) ([]domain.TradeEvent, error) {
	if limit <= 0 {
		limit = 100
	}
	params := url.Values{}
	params.Set("_limit", strconv.Itoa(limit))

	body, err := c.doGet(ctx, c.dataHost+"/trades?"+params.Encode())
	if err != nil {
		return nil, fmt.Errorf("polymarket/data: get trades: %w", err)
	}

	var apiTrades []APITrade
	if err := json.Unmarshal(body, &apiTrades); err != nil {
		return nil, fmt.Errorf("polymarket/data: decode trades: %w", err)
	}

	trades := make([]domain.TradeEvent, 0, len(apiTrades))
	for i := range apiTrades {
		trades = append(trades, apiTrades[i].ToTradeEvent())
	}

	return trades, nil
}

// LeaderboardPnl returns the trader's all-time realized PnL from the
// leaderboard. found is false when the trader has no leaderboard entry.
func (c *DataClient) LeaderboardPnl(ctx context.Context, address string) (pnl float64, found bool, err error) {
	params := url.Values{}
	params.Set("timePeriod", "all")
	params.Set("orderBy", "VOL")
	params.Set("limit", "1")
	params.Set("offset", "0")
	params.Set("category", "overall")
	params.Set("user", address)

	body, err := c.doGet(ctx, c.dataHost+"/v1/leaderboard?"+params.Encode())
	if err != nil {
		return 0, false, fmt.Errorf("polymarket/data: get leaderboard for %s: %w", address, err)
	}

	var entries []APILeaderboardEntry
	if err := json.Unmarshal(body, &entries); err != nil {
		return 0, false, fmt.Errorf("polymarket/data: decode leaderboard: %w", err)
	}

	if len(entries) == 0 {
		return 0, false, nil
	}
	return float64(entries[0].Pnl), true, nil
}

// PositionValue returns the current USD value of the trader's open
// positions. A trader with no positions yields 0.
func (c *DataClient) PositionValue(ctx context.Context, address string) (float64, error) {
	params := url.Values{}
	params.Set("user", address)

	body, err := c.doGet(ctx, c.dataHost+"/value?"+params.Encode())
	if err != nil {
		return 0, fmt.Errorf("polymarket/data: get position value for %s: %w", address, err)
	}

	var entries []APIPositionValue
	if err := json.Unmarshal(body, &entries); err != nil {
		return 0, fmt.Errorf("polymarket/data: decode position value: %w", err)
	}

	if len(entries) == 0 {
		return 0, nil
	}
	return float64(entries[0].Value), nil
}

// ProfileStats returns lifetime trade count and largest win for a trader
// from the polymarket.com profile endpoint.
func (c *DataClient) ProfileStats(ctx context.Context, address string) (APIProfileStats, error) {
	params := url.Values{}
	params.Set("proxyAddress", address)

	body, err := c.doGet(ctx, c.profileHost+"/api/profile/stats?"+params.Encode())
	if err != nil {
		return APIProfileStats{}, fmt.Errorf("polymarket/data: get profile stats for %s: %w", address, err)
	}

	var stats APIProfileStats
	if err := json.Unmarshal(body, &stats); err != nil {
		return APIProfileStats{}, fmt.Errorf("polymarket/data: decode profile stats: %w", err)
	}

	return stats, nil
}

// --------------------------------------------------------------------------
// Internal helpers
// --------------------------------------------------------------------------

// doGet waits for a pacer slot, then sends an unauthenticated GET request.
func (c *DataClient) doGet(ctx context.Context, rawURL string) ([]byte, error) {
	if err := c.pacer.Wait(ctx); err != nil {
		return nil, fmt.Errorf("wait for request slot: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if err := checkHTTPStatus(resp.StatusCode, body); err != nil {
		return nil, err
	}

	return body, nil
}

// checkHTTPStatus maps non-2xx responses to sentinel errors where a sentinel
// applies.
func checkHTTPStatus(statusCode int, body []byte) error {
	if statusCode >= 200 && statusCode < 300 {
		return nil
	}

	bodyStr := string(body)
	switch statusCode {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", domain.ErrNotFound, bodyStr)
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %s", domain.ErrUnauthorized, bodyStr)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", domain.ErrRateLimited, bodyStr)
	default:
		return fmt.Errorf("HTTP %d: %s", statusCode, bodyStr)
	}
}
