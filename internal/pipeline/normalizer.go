package pipeline

import (
	"encoding/hex"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/crypto/sha3"

	"github.com/alanyoungcy/whalewatch/internal/domain"
)

// syntheticPrefix marks identities derived from trade contents rather than
// taken from the feed. The prefix keeps synthesized identities from ever
// colliding with a real transaction hash or feed ID.
const syntheticPrefix = "synthetic:"

// TraderAddress resolves the trader behind a trade. The feed populates at
// most one of proxy wallet, maker, or taker depending on the source path;
// the first non-empty candidate wins. Well-formed hex addresses are
// lowercased so the same wallet always maps to one ledger key. Returns
// ok=false when the trade carries no address at all.
func TraderAddress(t domain.TradeEvent) (addr string, ok bool) {
	for _, candidate := range []string{t.ProxyWallet, t.Maker, t.Taker} {
		if candidate == "" {
			continue
		}
		if common.IsHexAddress(candidate) {
			return strings.ToLower(candidate), true
		}
		return candidate, true
	}
	return "", false
}

// TransactionIdentity derives the deduplication identity for a trade. The
// chain is: transaction hash if present, then the feed ID, then a synthetic
// digest of the trade contents. Returns ok=false when none can be derived,
// which makes the trade malformed.
//
// The synthetic digest is deterministic, so the same trade observed in two
// overlapping fetches synthesizes the same identity. Two genuinely distinct
// trades that agree on trader, asset, timestamp, size, and price collapse to
// one identity; the feed's one-second timestamp resolution makes that
// collision possible and it is accepted.
func TransactionIdentity(t domain.TradeEvent, trader string) (id string, ok bool) {
	if t.TxHash != "" {
		return t.TxHash, true
	}
	if t.ID != "" {
		return t.ID, true
	}
	if trader == "" {
		return "", false
	}
	if t.Asset == "" && t.Timestamp == 0 && t.Size == 0 && t.Price == 0 {
		return "", false
	}

	payload := strings.Join([]string{
		trader,
		t.Asset,
		strconv.FormatInt(t.Timestamp, 10),
		strconv.FormatFloat(t.Size, 'f', -1, 64),
		strconv.FormatFloat(t.Price, 'f', -1, 64),
	}, "|")

	sum := sha3.Sum256([]byte(payload))
	return syntheticPrefix + hex.EncodeToString(sum[:]), true
}
