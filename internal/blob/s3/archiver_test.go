package s3blob

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/alanyoungcy/whalewatch/internal/domain"
)

type captureWriter struct {
	paths    []string
	payloads []string
}

func (w *captureWriter) Put(ctx context.Context, path string, data io.Reader, contentType string) error {
	b, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	w.paths = append(w.paths, path)
	w.payloads = append(w.payloads, string(b))
	return nil
}

func (w *captureWriter) PutMultipart(ctx context.Context, path string, data io.Reader, partSize int64) error {
	return w.Put(ctx, path, data, "")
}

type staticLedger []domain.ProcessedTransaction

func (l staticLedger) ListBefore(ctx context.Context, before time.Time) ([]domain.ProcessedTransaction, error) {
	return l, nil
}

type staticAlerts []domain.Alert

func (a staticAlerts) ListBefore(ctx context.Context, before time.Time) ([]domain.Alert, error) {
	return a, nil
}

func TestArchiveLedgerWritesJSONL(t *testing.T) {
	writer := &captureWriter{}
	ledger := staticLedger{
		{TransactionID: "0xaaa", TraderAddress: "0x1", RecordedAt: time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)},
		{TransactionID: "0xbbb", TraderAddress: "0x2", RecordedAt: time.Date(2026, 1, 6, 0, 0, 0, 0, time.UTC)},
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	a := NewArchiver(writer, ledger, staticAlerts{}, logger)

	cutoff := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	n, err := a.ArchiveLedger(context.Background(), cutoff)
	if err != nil {
		t.Fatalf("ArchiveLedger: %v", err)
	}
	if n != 2 {
		t.Errorf("count = %d, want 2", n)
	}
	if len(writer.paths) != 1 || writer.paths[0] != "archive/ledger/2026-02-01T000000Z.jsonl" {
		t.Errorf("paths = %v", writer.paths)
	}

	lines := strings.Split(strings.TrimRight(writer.payloads[0], "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("payload should hold one JSON line per row, got %d", len(lines))
	}
	if !strings.Contains(lines[0], `"transaction_id":"0xaaa"`) {
		t.Errorf("first line = %s", lines[0])
	}
}

func TestArchiveAlertsEmptyIsNoUpload(t *testing.T) {
	writer := &captureWriter{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	a := NewArchiver(writer, staticLedger{}, staticAlerts{}, logger)

	n, err := a.ArchiveAlerts(context.Background(), time.Now())
	if err != nil {
		t.Fatalf("ArchiveAlerts: %v", err)
	}
	if n != 0 || len(writer.paths) != 0 {
		t.Errorf("empty store should skip the upload, n=%d paths=%v", n, writer.paths)
	}
}
