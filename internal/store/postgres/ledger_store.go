package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/whalewatch/internal/domain"
)

// LedgerStore implements domain.LedgerStore using PostgreSQL.
type LedgerStore struct {
	pool *pgxpool.Pool
}

// NewLedgerStore creates a new LedgerStore backed by the given connection
// pool.
func NewLedgerStore(pool *pgxpool.Pool) *LedgerStore {
	return &LedgerStore{pool: pool}
}

func scanLedgerRows(rows pgx.Rows) ([]domain.ProcessedTransaction, error) {
	var recs []domain.ProcessedTransaction
	for rows.Next() {
		var rec domain.ProcessedTransaction
		if err := rows.Scan(&rec.TransactionID, &rec.TraderAddress, &rec.RecordedAt); err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// Record claims a transaction identity. The insert and the duplicate check
// are one atomic statement: a second claim for the same identity affects
// zero rows and returns domain.ErrAlreadyExists.
func (s *LedgerStore) Record(ctx context.Context, rec domain.ProcessedTransaction) error {
	recordedAt := rec.RecordedAt
	if recordedAt.IsZero() {
		recordedAt = time.Now().UTC()
	}

	tag, err := s.pool.Exec(ctx, `
		INSERT INTO processed_transactions (transaction_id, trader_address, recorded_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (transaction_id) DO NOTHING`,
		rec.TransactionID, rec.TraderAddress, recordedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: record processed transaction: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("postgres: record processed transaction %s: %w",
			rec.TransactionID, domain.ErrAlreadyExists)
	}
	return nil
}

// Seen reports whether a transaction identity has already been recorded.
func (s *LedgerStore) Seen(ctx context.Context, transactionID string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM processed_transactions WHERE transaction_id = $1)`,
		transactionID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("postgres: check processed transaction: %w", err)
	}
	return exists, nil
}

// Count returns the number of ledger rows.
func (s *LedgerStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM processed_transactions`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("postgres: count processed transactions: %w", err)
	}
	return count, nil
}

// ListBefore returns ledger rows recorded strictly before the given time
// (for archiving).
func (s *LedgerStore) ListBefore(ctx context.Context, before time.Time) ([]domain.ProcessedTransaction, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT transaction_id, trader_address, recorded_at
		FROM processed_transactions
		WHERE recorded_at < $1
		ORDER BY recorded_at ASC`,
		before,
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: list processed transactions before: %w", err)
	}
	defer rows.Close()
	return scanLedgerRows(rows)
}

// DeleteBefore removes ledger rows recorded before the given time. Returns
// the number deleted.
func (s *LedgerStore) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM processed_transactions WHERE recorded_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("postgres: delete processed transactions before: %w", err)
	}
	return tag.RowsAffected(), nil
}
