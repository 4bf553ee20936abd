package pipeline

import (
	"strings"
	"testing"

	"github.com/alanyoungcy/whalewatch/internal/domain"
)

func TestTraderAddressFallbackOrder(t *testing.T) {
	cases := []struct {
		name  string
		trade domain.TradeEvent
		want  string
		ok    bool
	}{
		{
			name:  "proxy wallet wins",
			trade: domain.TradeEvent{ProxyWallet: "0xAbC0000000000000000000000000000000000001", Maker: "0x2", Taker: "0x3"},
			want:  "0xabc0000000000000000000000000000000000001",
			ok:    true,
		},
		{
			name:  "maker when no proxy",
			trade: domain.TradeEvent{Maker: "0xAbC0000000000000000000000000000000000002"},
			want:  "0xabc0000000000000000000000000000000000002",
			ok:    true,
		},
		{
			name:  "taker last",
			trade: domain.TradeEvent{Taker: "0xAbC0000000000000000000000000000000000003"},
			want:  "0xabc0000000000000000000000000000000000003",
			ok:    true,
		},
		{
			name:  "non-hex address passes through untouched",
			trade: domain.TradeEvent{ProxyWallet: "SomeTrader"},
			want:  "SomeTrader",
			ok:    true,
		},
		{
			name:  "no address",
			trade: domain.TradeEvent{},
			ok:    false,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := TraderAddress(tc.trade)
			if ok != tc.ok || got != tc.want {
				t.Errorf("got (%q, %v), want (%q, %v)", got, ok, tc.want, tc.ok)
			}
		})
	}
}

func TestTransactionIdentityChain(t *testing.T) {
	trader := "0xabc0000000000000000000000000000000000001"

	id, ok := TransactionIdentity(domain.TradeEvent{TxHash: "0xdead", ID: "feed-1"}, trader)
	if !ok || id != "0xdead" {
		t.Errorf("tx hash should win, got (%q, %v)", id, ok)
	}

	id, ok = TransactionIdentity(domain.TradeEvent{ID: "feed-1"}, trader)
	if !ok || id != "feed-1" {
		t.Errorf("feed ID should back absent hash, got (%q, %v)", id, ok)
	}

	trade := domain.TradeEvent{Asset: "a1", Timestamp: 1700000000, Size: 100, Price: 0.5}
	id, ok = TransactionIdentity(trade, trader)
	if !ok {
		t.Fatal("synthetic identity should be derivable")
	}
	if !strings.HasPrefix(id, syntheticPrefix) {
		t.Errorf("synthetic identity should carry prefix, got %q", id)
	}

	again, _ := TransactionIdentity(trade, trader)
	if again != id {
		t.Errorf("synthetic identity must be deterministic: %q vs %q", id, again)
	}

	trade.Size = 101
	other, _ := TransactionIdentity(trade, trader)
	if other == id {
		t.Error("different trades must synthesize different identities")
	}
}

func TestTransactionIdentityUnderivable(t *testing.T) {
	if _, ok := TransactionIdentity(domain.TradeEvent{}, ""); ok {
		t.Error("no trader and no fields should yield no identity")
	}
	if _, ok := TransactionIdentity(domain.TradeEvent{}, "0xabc"); ok {
		t.Error("empty trade contents should yield no identity even with a trader")
	}
}
