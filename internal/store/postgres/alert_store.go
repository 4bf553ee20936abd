package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/whalewatch/internal/domain"
)

// AlertStore implements domain.AlertStore using PostgreSQL.
type AlertStore struct {
	pool *pgxpool.Pool
}

// NewAlertStore creates a new AlertStore backed by the given connection pool.
func NewAlertStore(pool *pgxpool.Pool) *AlertStore {
	return &AlertStore{pool: pool}
}

const alertSelectCols = `id, trader_address, total_trades, realized_pnl,
	position_value, largest_win, bet_side, bet_size, bet_price, bet_value,
	market_slug, market_title, outcome, market_url, profile_url, created_at`

func scanAlertRows(rows pgx.Rows) ([]domain.Alert, error) {
	var alerts []domain.Alert
	for rows.Next() {
		var a domain.Alert
		if err := rows.Scan(
			&a.ID, &a.TraderAddress, &a.TotalTrades, &a.RealizedPnl,
			&a.PositionValue, &a.LargestWin, &a.BetSide, &a.BetSize,
			&a.BetPrice, &a.BetValue, &a.MarketSlug, &a.MarketTitle,
			&a.Outcome, &a.MarketURL, &a.ProfileURL, &a.CreatedAt,
		); err != nil {
			return nil, err
		}
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}

// Insert writes an alert and returns it with its assigned ID and creation
// time. Hitting the bet_alerts_identity constraint returns
// domain.ErrAlreadyExists.
func (s *AlertStore) Insert(ctx context.Context, alert domain.Alert) (domain.Alert, error) {
	const query = `
		INSERT INTO bet_alerts (
			trader_address, total_trades, realized_pnl, position_value,
			largest_win, bet_side, bet_size, bet_price, bet_value,
			market_slug, market_title, outcome, market_url, profile_url
		) VALUES (
			$1, $2, $3, $4,
			$5, $6, $7, $8, $9,
			$10, $11, $12, $13, $14
		)
		ON CONFLICT ON CONSTRAINT bet_alerts_identity DO NOTHING
		RETURNING id, created_at`

	err := s.pool.QueryRow(ctx, query,
		alert.TraderAddress, alert.TotalTrades, alert.RealizedPnl, alert.PositionValue,
		alert.LargestWin, alert.BetSide, alert.BetSize, alert.BetPrice, alert.BetValue,
		alert.MarketSlug, alert.MarketTitle, alert.Outcome, alert.MarketURL, alert.ProfileURL,
	).Scan(&alert.ID, &alert.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		// DO NOTHING returned no row: an identical alert is already stored.
		return domain.Alert{}, fmt.Errorf("postgres: insert alert: %w", domain.ErrAlreadyExists)
	}
	if err != nil {
		return domain.Alert{}, fmt.Errorf("postgres: insert alert: %w", err)
	}
	return alert, nil
}

// GetByID returns a single alert by ID.
func (s *AlertStore) GetByID(ctx context.Context, id int64) (domain.Alert, error) {
	query := `SELECT ` + alertSelectCols + ` FROM bet_alerts WHERE id = $1`

	rows, err := s.pool.Query(ctx, query, id)
	if err != nil {
		return domain.Alert{}, fmt.Errorf("postgres: get alert %d: %w", id, err)
	}
	defer rows.Close()

	alerts, err := scanAlertRows(rows)
	if err != nil {
		return domain.Alert{}, fmt.Errorf("postgres: scan alert %d: %w", id, err)
	}
	if len(alerts) == 0 {
		return domain.Alert{}, fmt.Errorf("postgres: get alert %d: %w", id, domain.ErrNotFound)
	}
	return alerts[0], nil
}

// List returns alerts ordered newest first with pagination and optional time
// filtering.
func (s *AlertStore) List(ctx context.Context, opts domain.ListOpts) ([]domain.Alert, error) {
	query := `SELECT ` + alertSelectCols + ` FROM bet_alerts WHERE TRUE`
	args := []any{}
	argIdx := 1

	if opts.Since != nil {
		query += fmt.Sprintf(" AND created_at >= $%d", argIdx)
		args = append(args, *opts.Since)
		argIdx++
	}
	if opts.Until != nil {
		query += fmt.Sprintf(" AND created_at <= $%d", argIdx)
		args = append(args, *opts.Until)
		argIdx++
	}

	query += " ORDER BY created_at DESC"

	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, opts.Limit)
		argIdx++
	}
	if opts.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIdx)
		args = append(args, opts.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list alerts: %w", err)
	}
	defer rows.Close()

	alerts, err := scanAlertRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan alerts: %w", err)
	}
	return alerts, nil
}

// ListByTrader returns alerts for one trader, newest first.
func (s *AlertStore) ListByTrader(ctx context.Context, trader string, opts domain.ListOpts) ([]domain.Alert, error) {
	query := `SELECT ` + alertSelectCols + ` FROM bet_alerts WHERE trader_address = $1`
	args := []any{trader}
	argIdx := 2

	if opts.Since != nil {
		query += fmt.Sprintf(" AND created_at >= $%d", argIdx)
		args = append(args, *opts.Since)
		argIdx++
	}
	if opts.Until != nil {
		query += fmt.Sprintf(" AND created_at <= $%d", argIdx)
		args = append(args, *opts.Until)
		argIdx++
	}

	query += " ORDER BY created_at DESC"

	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, opts.Limit)
		argIdx++
	}
	if opts.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIdx)
		args = append(args, opts.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list alerts by trader: %w", err)
	}
	defer rows.Close()

	alerts, err := scanAlertRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan alerts by trader: %w", err)
	}
	return alerts, nil
}

// ExistsRecent reports whether the trader produced an alert within the given
// window. It backs alert suppression when Redis is not wired.
func (s *AlertStore) ExistsRecent(ctx context.Context, trader string, window time.Duration) (bool, error) {
	cutoff := time.Now().UTC().Add(-window)

	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM bet_alerts WHERE trader_address = $1 AND created_at >= $2)`,
		trader, cutoff,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("postgres: check recent alert: %w", err)
	}
	return exists, nil
}

// Count returns the total number of stored alerts.
func (s *AlertStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM bet_alerts`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("postgres: count alerts: %w", err)
	}
	return count, nil
}

// ListBefore returns all alerts created strictly before the given time (for
// archiving).
func (s *AlertStore) ListBefore(ctx context.Context, before time.Time) ([]domain.Alert, error) {
	query := `SELECT ` + alertSelectCols + ` FROM bet_alerts WHERE created_at < $1 ORDER BY created_at ASC`
	rows, err := s.pool.Query(ctx, query, before)
	if err != nil {
		return nil, fmt.Errorf("postgres: list alerts before: %w", err)
	}
	defer rows.Close()
	return scanAlertRows(rows)
}

// DeleteBefore deletes all alerts created before the given time. Returns the
// number deleted.
func (s *AlertStore) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM bet_alerts WHERE created_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("postgres: delete alerts before: %w", err)
	}
	return tag.RowsAffected(), nil
}
