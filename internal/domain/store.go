package domain

import (
	"context"
	"time"
)

// ListOpts provides pagination and filtering for list queries.
type ListOpts struct {
	Limit  int
	Offset int
	Since  *time.Time
	Until  *time.Time
}

// AlertStore persists whale alerts.
type AlertStore interface {
	// Insert writes an alert and returns it with its assigned ID. It returns
	// ErrAlreadyExists when an identical alert is already present; callers
	// treat that as success.
	Insert(ctx context.Context, alert Alert) (Alert, error)
	GetByID(ctx context.Context, id int64) (Alert, error)
	List(ctx context.Context, opts ListOpts) ([]Alert, error)
	ListByTrader(ctx context.Context, trader string, opts ListOpts) ([]Alert, error)
	// ExistsRecent reports whether the trader produced an alert within the
	// given window. Used as the suppression fallback when Redis is not wired.
	ExistsRecent(ctx context.Context, trader string, window time.Duration) (bool, error)
	Count(ctx context.Context) (int64, error)
	ListBefore(ctx context.Context, before time.Time) ([]Alert, error)
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}

// LedgerStore persists the processed-transaction dedup ledger.
type LedgerStore interface {
	// Record inserts a processed-transaction row. Hitting the unique
	// constraint on the transaction identity returns ErrAlreadyExists.
	Record(ctx context.Context, rec ProcessedTransaction) error
	Seen(ctx context.Context, transactionID string) (bool, error)
	Count(ctx context.Context) (int64, error)
	ListBefore(ctx context.Context, before time.Time) ([]ProcessedTransaction, error)
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}
