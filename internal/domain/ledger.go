package domain

import "time"

// ProcessedTransaction is a dedup-ledger row recording that a transaction
// identity has already been handled. The identity is unique; inserting a
// duplicate is a no-op success.
type ProcessedTransaction struct {
	TransactionID string    `json:"transaction_id"`
	TraderAddress string    `json:"trader_address"`
	RecordedAt    time.Time `json:"recorded_at"`
}
