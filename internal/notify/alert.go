package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/alanyoungcy/whalewatch/internal/domain"
)

// Event types used to filter outbound notifications.
const (
	EventAlertCreated = "alert_created"
	EventError        = "error"
)

// AlertAnnouncer formats whale alerts and pushes them through a Notifier. It
// satisfies the monitor's announcer dependency; delivery errors are already
// logged per sender inside the Notifier, so announcing never fails the run.
type AlertAnnouncer struct {
	notifier *Notifier
}

// NewAlertAnnouncer creates an AlertAnnouncer.
func NewAlertAnnouncer(n *Notifier) *AlertAnnouncer {
	return &AlertAnnouncer{notifier: n}
}

// AnnounceAlert delivers a created alert to every configured channel.
func (a *AlertAnnouncer) AnnounceAlert(ctx context.Context, alert domain.Alert) {
	title, message := FormatAlert(alert)
	_ = a.notifier.Notify(ctx, EventAlertCreated, title, message)
}

// FormatAlert renders an alert as a notification title and plain-text body.
func FormatAlert(alert domain.Alert) (title, message string) {
	title = fmt.Sprintf("Whale bet: $%.0f on %s", alert.BetValue, alert.MarketTitle)
	if alert.MarketTitle == "" {
		title = fmt.Sprintf("Whale bet: $%.0f", alert.BetValue)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Trader: %s\n", alert.TraderAddress)
	fmt.Fprintf(&b, "Bet: %s %.2f @ %.3f ($%.2f)\n", alert.BetSide, alert.BetSize, alert.BetPrice, alert.BetValue)
	if alert.MarketTitle != "" {
		if alert.Outcome != "" {
			fmt.Fprintf(&b, "Market: %s (%s)\n", alert.MarketTitle, alert.Outcome)
		} else {
			fmt.Fprintf(&b, "Market: %s\n", alert.MarketTitle)
		}
	}
	fmt.Fprintf(&b, "Trades: %d | PnL: $%.2f | Largest win: $%.2f | Positions: $%.2f\n",
		alert.TotalTrades, alert.RealizedPnl, alert.LargestWin, alert.PositionValue)
	if alert.MarketURL != "" {
		fmt.Fprintf(&b, "%s\n", alert.MarketURL)
	}
	fmt.Fprintf(&b, "%s", alert.ProfileURL)

	return title, b.String()
}
