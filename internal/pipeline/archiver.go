package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/alanyoungcy/whalewatch/internal/domain"
)

// Archiver prunes aged rows from the ledger and alert tables, optionally
// exporting them to object storage first. Alerts are the product and keep a
// long retention; ledger rows only need to outlive the dedup horizon.
type Archiver struct {
	blobArchiver       domain.Archiver // nil disables the cold-storage export
	ledger             domain.LedgerStore
	alerts             domain.AlertStore
	retentionDays      int
	alertRetentionDays int
	logger             *slog.Logger
}

// NewArchiver creates a new Archiver.
func NewArchiver(
	blobArchiver domain.Archiver,
	ledger domain.LedgerStore,
	alerts domain.AlertStore,
	retentionDays int,
	alertRetentionDays int,
	logger *slog.Logger,
) *Archiver {
	return &Archiver{
		blobArchiver:       blobArchiver,
		ledger:             ledger,
		alerts:             alerts,
		retentionDays:      retentionDays,
		alertRetentionDays: alertRetentionDays,
		logger:             logger,
	}
}

// Run executes a single retention sweep. Export happens before deletion, so
// a failed export leaves the rows in place for the next sweep.
func (a *Archiver) Run(ctx context.Context) error {
	ledgerCutoff := time.Now().UTC().Add(-time.Duration(a.retentionDays) * 24 * time.Hour)
	alertCutoff := time.Now().UTC().Add(-time.Duration(a.alertRetentionDays) * 24 * time.Hour)

	a.logger.Info("starting retention sweep",
		slog.Time("ledger_cutoff", ledgerCutoff),
		slog.Time("alert_cutoff", alertCutoff),
	)

	if a.blobArchiver != nil {
		ledgerExported, err := a.blobArchiver.ArchiveLedger(ctx, ledgerCutoff)
		if err != nil {
			return fmt.Errorf("archiving ledger rows before %v: %w", ledgerCutoff, err)
		}
		alertsExported, err := a.blobArchiver.ArchiveAlerts(ctx, alertCutoff)
		if err != nil {
			return fmt.Errorf("archiving alerts before %v: %w", alertCutoff, err)
		}
		a.logger.Info("exported to cold storage",
			slog.Int64("ledger_rows", ledgerExported),
			slog.Int64("alerts", alertsExported),
		)
	}

	ledgerDeleted, err := a.ledger.DeleteBefore(ctx, ledgerCutoff)
	if err != nil {
		return fmt.Errorf("pruning ledger rows before %v: %w", ledgerCutoff, err)
	}

	alertsDeleted, err := a.alerts.DeleteBefore(ctx, alertCutoff)
	if err != nil {
		return fmt.Errorf("pruning alerts before %v: %w", alertCutoff, err)
	}

	a.logger.Info("retention sweep complete",
		slog.Int64("ledger_deleted", ledgerDeleted),
		slog.Int64("alerts_deleted", alertsDeleted),
	)

	return nil
}

// RunCron runs the archiver on a cron schedule until the context is cancelled.
// It supports cron expressions in the standard 5-field format:
// "minute hour day-of-month month day-of-week"
//
// Example: "0 3 1 * *" runs at 3:00 AM on the 1st of every month.
func (a *Archiver) RunCron(ctx context.Context, cronExpr string) error {
	a.logger.Info("archiver cron started", slog.String("cron", cronExpr))

	for {
		next, err := nextCronTime(cronExpr, time.Now().UTC())
		if err != nil {
			return fmt.Errorf("parsing cron expression %q: %w", cronExpr, err)
		}

		waitDuration := time.Until(next)
		a.logger.Info("archiver waiting for next cron trigger",
			slog.Time("next_run", next),
			slog.Duration("wait", waitDuration),
		)

		timer := time.NewTimer(waitDuration)
		select {
		case <-ctx.Done():
			timer.Stop()
			a.logger.Info("archiver cron stopped")
			return ctx.Err()
		case <-timer.C:
			if err := a.Run(ctx); err != nil {
				a.logger.Error("archive run failed", slog.String("error", err.Error()))
			}
		}
	}
}

// cronField represents a parsed cron field that can match against a value.
type cronField struct {
	wildcard bool
	values   []int
}

// matches returns true if the given value matches this cron field.
func (f cronField) matches(val int) bool {
	if f.wildcard {
		return true
	}
	for _, v := range f.values {
		if v == val {
			return true
		}
	}
	return false
}

// parseCronField parses a single cron field (e.g. "0", "*", "1,15").
func parseCronField(field string) (cronField, error) {
	if field == "*" {
		return cronField{wildcard: true}, nil
	}

	parts := strings.Split(field, ",")
	values := make([]int, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		v, err := strconv.Atoi(p)
		if err != nil {
			return cronField{}, fmt.Errorf("invalid cron field value %q: %w", p, err)
		}
		values = append(values, v)
	}
	return cronField{values: values}, nil
}

// parsedCron holds five parsed cron fields.
type parsedCron struct {
	minute     cronField
	hour       cronField
	dayOfMonth cronField
	month      cronField
	dayOfWeek  cronField
}

// matchesTime returns true if the given time matches all five cron fields.
func (c parsedCron) matchesTime(t time.Time) bool {
	return c.minute.matches(t.Minute()) &&
		c.hour.matches(t.Hour()) &&
		c.dayOfMonth.matches(t.Day()) &&
		c.month.matches(int(t.Month())) &&
		c.dayOfWeek.matches(int(t.Weekday()))
}

// parseCron parses a 5-field cron expression into a parsedCron struct.
func parseCron(expr string) (parsedCron, error) {
	fields := strings.Fields(expr)
	if len(fields) != 5 {
		return parsedCron{}, fmt.Errorf("cron expression must have 5 fields, got %d", len(fields))
	}

	minute, err := parseCronField(fields[0])
	if err != nil {
		return parsedCron{}, fmt.Errorf("parsing minute field: %w", err)
	}
	hour, err := parseCronField(fields[1])
	if err != nil {
		return parsedCron{}, fmt.Errorf("parsing hour field: %w", err)
	}
	dayOfMonth, err := parseCronField(fields[2])
	if err != nil {
		return parsedCron{}, fmt.Errorf("parsing day-of-month field: %w", err)
	}
	month, err := parseCronField(fields[3])
	if err != nil {
		return parsedCron{}, fmt.Errorf("parsing month field: %w", err)
	}
	dayOfWeek, err := parseCronField(fields[4])
	if err != nil {
		return parsedCron{}, fmt.Errorf("parsing day-of-week field: %w", err)
	}

	return parsedCron{
		minute:     minute,
		hour:       hour,
		dayOfMonth: dayOfMonth,
		month:      month,
		dayOfWeek:  dayOfWeek,
	}, nil
}

// nextCronTime calculates the next time after 'after' that matches the given
// cron expression. It searches minute-by-minute up to one year ahead.
func nextCronTime(cronExpr string, after time.Time) (time.Time, error) {
	cron, err := parseCron(cronExpr)
	if err != nil {
		return time.Time{}, err
	}

	// Start from the next minute boundary.
	candidate := after.Truncate(time.Minute).Add(time.Minute)

	// Search up to one year ahead to avoid infinite loops.
	limit := after.Add(366 * 24 * time.Hour)

	for candidate.Before(limit) {
		if cron.matchesTime(candidate) {
			return candidate, nil
		}
		candidate = candidate.Add(time.Minute)
	}

	return time.Time{}, fmt.Errorf("no matching cron time found within one year for %q", cronExpr)
}
