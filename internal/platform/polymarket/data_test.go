package polymarket

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alanyoungcy/whalewatch/internal/domain"
)

func newTestClient(t *testing.T, handler http.Handler) *DataClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewDataClient(srv.URL, srv.URL, NewPacer(time.Millisecond))
}

func TestRecentTradesCoalescesVariantFields(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/trades" {
			t.Errorf("path = %s, want /trades", r.URL.Path)
		}
		if got := r.URL.Query().Get("_limit"); got != "25" {
			t.Errorf("_limit = %q, want 25", got)
		}
		w.Write([]byte(`[
			{"id":"t1","transactionHash":"0xaaa","transaction_hash":"0xbbb","proxyWallet":"0x1111","size":"12.5","price":"0.40","timestamp":"1700000000","side":"BUY","eventSlug":"us-election","title":"US Election"},
			{"id":"t2","transaction_hash":"0xccc","maker_address":"0x2222","amount":80,"price":0.25,"timestamp":1700000100,"asset_id":"asset-2"}
		]`))
	}))

	trades, err := c.RecentTrades(context.Background(), 25)
	if err != nil {
		t.Fatalf("RecentTrades: %v", err)
	}
	if len(trades) != 2 {
		t.Fatalf("got %d trades, want 2", len(trades))
	}

	first := trades[0]
	if first.TxHash != "0xaaa" {
		t.Errorf("first hash spelling should win, got %q", first.TxHash)
	}
	if first.Size != 12.5 || first.Price != 0.40 {
		t.Errorf("string numerics should decode, got size=%v price=%v", first.Size, first.Price)
	}
	if first.Timestamp != 1700000000 {
		t.Errorf("string timestamp should decode, got %d", first.Timestamp)
	}
	if first.BetValue() != 5 {
		t.Errorf("bet value = %v, want 5", first.BetValue())
	}

	second := trades[1]
	if second.TxHash != "0xccc" {
		t.Errorf("snake_case hash should apply when camelCase absent, got %q", second.TxHash)
	}
	if second.Size != 80 {
		t.Errorf("amount should back absent size, got %v", second.Size)
	}
	if second.Asset != "asset-2" {
		t.Errorf("asset_id should back absent asset, got %q", second.Asset)
	}
	if second.Maker != "0x2222" {
		t.Errorf("maker = %q, want 0x2222", second.Maker)
	}
}

func TestToTradeEventHashSpellings(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{"txHash", `{"txHash":"0x1"}`, "0x1"},
		{"tx_hash", `{"tx_hash":"0x2"}`, "0x2"},
		{"hash", `{"hash":"0x3"}`, "0x3"},
		{"canonical wins", `{"transactionHash":"0xa","hash":"0x3"}`, "0xa"},
	}
	for _, tc := range cases {
		var tr APITrade
		if err := json.Unmarshal([]byte(tc.body), &tr); err != nil {
			t.Fatalf("%s: unmarshal: %v", tc.name, err)
		}
		if got := tr.ToTradeEvent().TxHash; got != tc.want {
			t.Errorf("%s: tx hash = %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestToTradeEventExplicitZeroSizeStaysZero(t *testing.T) {
	zero := flexFloat(0)
	amount := flexFloat(40)
	tr := APITrade{ID: "t3", Size: &zero, Amount: &amount}

	if got := tr.ToTradeEvent().Size; got != 0 {
		t.Errorf("explicit zero size must not fall back to amount, got %v", got)
	}

	tr.Size = nil
	if got := tr.ToTradeEvent().Size; got != 40 {
		t.Errorf("absent size should fall back to amount, got %v", got)
	}
}

func TestLeaderboardPnl(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/leaderboard" {
			t.Errorf("path = %s, want /v1/leaderboard", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("timePeriod") != "all" || q.Get("orderBy") != "VOL" || q.Get("limit") != "1" ||
			q.Get("category") != "overall" || q.Get("user") != "0x1111" {
			t.Errorf("unexpected query: %s", r.URL.RawQuery)
		}
		w.Write([]byte(`[{"pnl":"15000.5"}]`))
	}))

	pnl, found, err := c.LeaderboardPnl(context.Background(), "0x1111")
	if err != nil {
		t.Fatalf("LeaderboardPnl: %v", err)
	}
	if !found || pnl != 15000.5 {
		t.Errorf("got pnl=%v found=%v, want 15000.5 true", pnl, found)
	}
}

func TestLeaderboardPnlNoEntry(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))

	pnl, found, err := c.LeaderboardPnl(context.Background(), "0x1111")
	if err != nil {
		t.Fatalf("LeaderboardPnl: %v", err)
	}
	if found || pnl != 0 {
		t.Errorf("got pnl=%v found=%v, want 0 false", pnl, found)
	}
}

func TestPositionValueEmptyIsZero(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/value" {
			t.Errorf("path = %s, want /value", r.URL.Path)
		}
		w.Write([]byte(`[]`))
	}))

	v, err := c.PositionValue(context.Background(), "0x1111")
	if err != nil {
		t.Fatalf("PositionValue: %v", err)
	}
	if v != 0 {
		t.Errorf("value = %v, want 0", v)
	}
}

func TestProfileStatsToleratesLooseTypes(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/profile/stats" {
			t.Errorf("path = %s, want /api/profile/stats", r.URL.Path)
		}
		if got := r.URL.Query().Get("proxyAddress"); got != "0x1111" {
			t.Errorf("proxyAddress = %q, want 0x1111", got)
		}
		w.Write([]byte(`{"trades":"250","largestWin":"not-a-number"}`))
	}))

	stats, err := c.ProfileStats(context.Background(), "0x1111")
	if err != nil {
		t.Fatalf("ProfileStats: %v", err)
	}
	if stats.Trades != 250 {
		t.Errorf("trades = %d, want 250", stats.Trades)
	}
	if stats.LargestWin != 0 {
		t.Errorf("garbage largestWin should decode to 0, got %v", stats.LargestWin)
	}
}

func TestCheckHTTPStatusSentinels(t *testing.T) {
	cases := []struct {
		code int
		want error
	}{
		{http.StatusNotFound, domain.ErrNotFound},
		{http.StatusUnauthorized, domain.ErrUnauthorized},
		{http.StatusForbidden, domain.ErrUnauthorized},
		{http.StatusTooManyRequests, domain.ErrRateLimited},
	}
	for _, tc := range cases {
		err := checkHTTPStatus(tc.code, []byte("nope"))
		if !errors.Is(err, tc.want) {
			t.Errorf("status %d: got %v, want %v", tc.code, err, tc.want)
		}
	}
	if err := checkHTTPStatus(http.StatusOK, nil); err != nil {
		t.Errorf("2xx should be nil, got %v", err)
	}
	if err := checkHTTPStatus(http.StatusBadGateway, []byte("down")); err == nil {
		t.Error("5xx should produce an error")
	}
}

func TestRecentTradesServerError(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusInternalServerError)
	}))

	if _, err := c.RecentTrades(context.Background(), 10); err == nil {
		t.Fatal("expected error on 500 response")
	}
}
