package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alanyoungcy/whalewatch/internal/domain"
)

type fakeBlobArchiver struct {
	mu          sync.Mutex
	ledgerCalls int
	alertCalls  int
	err         error
}

func (a *fakeBlobArchiver) ArchiveLedger(ctx context.Context, before time.Time) (int64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.ledgerCalls++
	return 3, a.err
}

func (a *fakeBlobArchiver) ArchiveAlerts(ctx context.Context, before time.Time) (int64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.alertCalls++
	return 2, a.err
}

func TestArchiverRunPrunesAgedRows(t *testing.T) {
	ctx := context.Background()
	ledger := newFakeLedger()
	alerts := &fakeAlertStore{}

	old := time.Now().UTC().Add(-30 * 24 * time.Hour)
	ledger.rows["old-tx"] = domain.ProcessedTransaction{TransactionID: "old-tx", RecordedAt: old}
	ledger.rows["new-tx"] = domain.ProcessedTransaction{TransactionID: "new-tx", RecordedAt: time.Now().UTC()}
	alerts.alerts = append(alerts.alerts,
		domain.Alert{ID: 1, TraderAddress: whaleAddr, CreatedAt: time.Now().UTC().Add(-200 * 24 * time.Hour)},
		domain.Alert{ID: 2, TraderAddress: whaleAddr, CreatedAt: time.Now().UTC()},
	)

	blob := &fakeBlobArchiver{}
	a := NewArchiver(blob, ledger, alerts, 7, 90, discardLogger())

	if err := a.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if blob.ledgerCalls != 1 || blob.alertCalls != 1 {
		t.Errorf("export should run once per kind, got ledger=%d alerts=%d", blob.ledgerCalls, blob.alertCalls)
	}
	if seen, _ := ledger.Seen(ctx, "old-tx"); seen {
		t.Error("aged ledger row should be pruned")
	}
	if seen, _ := ledger.Seen(ctx, "new-tx"); !seen {
		t.Error("recent ledger row must survive")
	}
	if n, _ := alerts.Count(ctx); n != 1 {
		t.Errorf("alert count after sweep = %d, want 1", n)
	}
}

func TestArchiverRunWithoutBlobStillPrunes(t *testing.T) {
	ctx := context.Background()
	ledger := newFakeLedger()
	old := time.Now().UTC().Add(-30 * 24 * time.Hour)
	ledger.rows["old-tx"] = domain.ProcessedTransaction{TransactionID: "old-tx", RecordedAt: old}

	a := NewArchiver(nil, ledger, &fakeAlertStore{}, 7, 90, discardLogger())
	if err := a.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if n, _ := ledger.Count(ctx); n != 0 {
		t.Errorf("ledger count = %d, want 0", n)
	}
}

func TestArchiverExportFailureLeavesRows(t *testing.T) {
	ctx := context.Background()
	ledger := newFakeLedger()
	old := time.Now().UTC().Add(-30 * 24 * time.Hour)
	ledger.rows["old-tx"] = domain.ProcessedTransaction{TransactionID: "old-tx", RecordedAt: old}

	blob := &fakeBlobArchiver{err: errors.New("bucket gone")}
	a := NewArchiver(blob, ledger, &fakeAlertStore{}, 7, 90, discardLogger())

	if err := a.Run(ctx); err == nil {
		t.Fatal("export failure must fail the sweep")
	}
	if n, _ := ledger.Count(ctx); n != 1 {
		t.Error("rows must survive a failed export")
	}
}

func TestNextCronTime(t *testing.T) {
	after := time.Date(2026, 3, 10, 2, 30, 0, 0, time.UTC)

	next, err := nextCronTime("0 3 * * *", after)
	if err != nil {
		t.Fatalf("nextCronTime: %v", err)
	}
	want := time.Date(2026, 3, 10, 3, 0, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Errorf("next = %v, want %v", next, want)
	}

	next, err = nextCronTime("0 3 1 * *", after)
	if err != nil {
		t.Fatalf("nextCronTime: %v", err)
	}
	want = time.Date(2026, 4, 1, 3, 0, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Errorf("next = %v, want %v", next, want)
	}

	if _, err := nextCronTime("bad cron", after); err == nil {
		t.Error("malformed expression should error")
	}
}
