package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/alanyoungcy/whalewatch/internal/domain"
)

// ---------------------------------------------------------------------------
// Narrow store interfaces required by the archiver.
//
// The archiver only needs the time-ranged read of each store, not the full
// domain interfaces. The Postgres stores satisfy these implicitly.
// ---------------------------------------------------------------------------

// LedgerArchiveStore provides read access to ledger rows for archival.
type LedgerArchiveStore interface {
	// ListBefore returns all ledger rows recorded strictly before the cutoff.
	ListBefore(ctx context.Context, before time.Time) ([]domain.ProcessedTransaction, error)
}

// AlertArchiveStore provides read access to alerts for archival.
type AlertArchiveStore interface {
	// ListBefore returns all alerts created strictly before the cutoff.
	ListBefore(ctx context.Context, before time.Time) ([]domain.Alert, error)
}

// ---------------------------------------------------------------------------
// ArchiveImpl
// ---------------------------------------------------------------------------

// ArchiveImpl implements domain.Archiver by querying the stores for aging
// rows, serializing them to JSONL, and uploading the result to S3.
//
// Deletion of the exported rows is intentionally NOT performed here -- the
// retention sweep deletes only after the export has succeeded.
type ArchiveImpl struct {
	writer domain.BlobWriter
	ledger LedgerArchiveStore
	alerts AlertArchiveStore
	logger *slog.Logger
}

// NewArchiver creates a new ArchiveImpl.
func NewArchiver(writer domain.BlobWriter, ledger LedgerArchiveStore, alerts AlertArchiveStore, logger *slog.Logger) *ArchiveImpl {
	return &ArchiveImpl{
		writer: writer,
		ledger: ledger,
		alerts: alerts,
		logger: logger,
	}
}

// ArchiveLedger exports all ledger rows before the cutoff to a cutoff-stamped
// key under archive/ledger/ and returns the number of rows exported.
func (a *ArchiveImpl) ArchiveLedger(ctx context.Context, before time.Time) (int64, error) {
	rows, err := a.ledger.ListBefore(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive ledger query: %w", err)
	}
	if len(rows) == 0 {
		return 0, nil
	}

	buf, err := marshalJSONL(rows)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive ledger marshal: %w", err)
	}

	path := archivePath("ledger", before)
	if err := a.writer.Put(ctx, path, bytes.NewReader(buf), "application/x-ndjson"); err != nil {
		return 0, fmt.Errorf("s3blob: archive ledger upload: %w", err)
	}

	a.logger.Info("ledger rows archived",
		slog.String("path", path),
		slog.Int("count", len(rows)),
		slog.Time("before", before),
	)
	return int64(len(rows)), nil
}

// ArchiveAlerts exports all alerts before the cutoff to a cutoff-stamped key
// under archive/alerts/ and returns the number of alerts exported.
func (a *ArchiveImpl) ArchiveAlerts(ctx context.Context, before time.Time) (int64, error) {
	alerts, err := a.alerts.ListBefore(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive alerts query: %w", err)
	}
	if len(alerts) == 0 {
		return 0, nil
	}

	buf, err := marshalJSONL(alerts)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive alerts marshal: %w", err)
	}

	path := archivePath("alerts", before)
	if err := a.writer.Put(ctx, path, bytes.NewReader(buf), "application/x-ndjson"); err != nil {
		return 0, fmt.Errorf("s3blob: archive alerts upload: %w", err)
	}

	a.logger.Info("alerts archived",
		slog.String("path", path),
		slog.Int("count", len(alerts)),
		slog.Time("before", before),
	)
	return int64(len(alerts)), nil
}

// ---------------------------------------------------------------------------
// helpers
// ---------------------------------------------------------------------------

// archivePath builds the S3 key for an archive file, stamped with the full
// cutoff instant so sweeps never overwrite an earlier export whose rows have
// already been deleted from the database.
//
//	archive/ledger/2026-01-05T030000Z.jsonl
//	archive/alerts/2026-01-05T030000Z.jsonl
func archivePath(kind string, before time.Time) string {
	return fmt.Sprintf("archive/%s/%s.jsonl", kind, before.UTC().Format("2006-01-02T150405Z"))
}

// marshalJSONL serialises a slice of values as newline-delimited JSON (JSONL).
// Each element is marshalled as a single compact JSON line followed by '\n'.
func marshalJSONL[T any](records []T) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	for i, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return nil, fmt.Errorf("jsonl encode record %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}

// Compile-time interface check.
var _ domain.Archiver = (*ArchiveImpl)(nil)
