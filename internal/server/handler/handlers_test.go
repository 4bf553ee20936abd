package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alanyoungcy/whalewatch/internal/domain"
	"github.com/alanyoungcy/whalewatch/internal/pipeline"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeAlertStore struct {
	alerts      []domain.Alert
	listErr     error
	lastTrader  string
	lastOpts    domain.ListOpts
	countResult int64
}

func (s *fakeAlertStore) Insert(ctx context.Context, alert domain.Alert) (domain.Alert, error) {
	return alert, nil
}

func (s *fakeAlertStore) GetByID(ctx context.Context, id int64) (domain.Alert, error) {
	for _, a := range s.alerts {
		if a.ID == id {
			return a, nil
		}
	}
	return domain.Alert{}, domain.ErrNotFound
}

func (s *fakeAlertStore) List(ctx context.Context, opts domain.ListOpts) ([]domain.Alert, error) {
	s.lastOpts = opts
	return s.alerts, s.listErr
}

func (s *fakeAlertStore) ListByTrader(ctx context.Context, trader string, opts domain.ListOpts) ([]domain.Alert, error) {
	s.lastTrader = trader
	s.lastOpts = opts
	var out []domain.Alert
	for _, a := range s.alerts {
		if a.TraderAddress == trader {
			out = append(out, a)
		}
	}
	return out, s.listErr
}

func (s *fakeAlertStore) ExistsRecent(ctx context.Context, trader string, window time.Duration) (bool, error) {
	return false, nil
}

func (s *fakeAlertStore) Count(ctx context.Context) (int64, error) {
	return s.countResult, nil
}

func (s *fakeAlertStore) ListBefore(ctx context.Context, before time.Time) ([]domain.Alert, error) {
	return nil, nil
}

func (s *fakeAlertStore) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	return 0, nil
}

type fakeLedgerStore struct {
	countResult int64
}

func (s *fakeLedgerStore) Record(ctx context.Context, rec domain.ProcessedTransaction) error {
	return nil
}

func (s *fakeLedgerStore) Seen(ctx context.Context, transactionID string) (bool, error) {
	return false, nil
}

func (s *fakeLedgerStore) Count(ctx context.Context) (int64, error) {
	return s.countResult, nil
}

func (s *fakeLedgerStore) ListBefore(ctx context.Context, before time.Time) ([]domain.ProcessedTransaction, error) {
	return nil, nil
}

func (s *fakeLedgerStore) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	return 0, nil
}

type fakeRunner struct {
	summary   domain.RunSummary
	err       error
	overrides pipeline.RunOverrides
}

func (r *fakeRunner) RunWith(ctx context.Context, overrides pipeline.RunOverrides) (domain.RunSummary, error) {
	r.overrides = overrides
	return r.summary, r.err
}

func TestListAlerts(t *testing.T) {
	store := &fakeAlertStore{alerts: []domain.Alert{
		{ID: 1, TraderAddress: "0xaaa"},
		{ID: 2, TraderAddress: "0xbbb"},
	}}
	h := NewAlertHandler(store, testLogger())

	rec := httptest.NewRecorder()
	h.ListAlerts(rec, httptest.NewRequest(http.MethodGet, "/api/alerts", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body struct {
		Alerts []domain.Alert `json:"alerts"`
		Count  int            `json:"count"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if body.Count != 2 || len(body.Alerts) != 2 {
		t.Errorf("count = %d, alerts = %d, want 2 each", body.Count, len(body.Alerts))
	}
}

func TestListAlertsTraderFilter(t *testing.T) {
	store := &fakeAlertStore{alerts: []domain.Alert{
		{ID: 1, TraderAddress: "0xaaa"},
		{ID: 2, TraderAddress: "0xbbb"},
	}}
	h := NewAlertHandler(store, testLogger())

	rec := httptest.NewRecorder()
	h.ListAlerts(rec, httptest.NewRequest(http.MethodGet, "/api/alerts?trader=0xbbb", nil))

	if store.lastTrader != "0xbbb" {
		t.Errorf("trader filter not forwarded, got %q", store.lastTrader)
	}
	var body struct {
		Count int `json:"count"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if body.Count != 1 {
		t.Errorf("count = %d, want 1", body.Count)
	}
}

func TestListAlertsTimeFilters(t *testing.T) {
	store := &fakeAlertStore{}
	h := NewAlertHandler(store, testLogger())

	rec := httptest.NewRecorder()
	h.ListAlerts(rec, httptest.NewRequest(http.MethodGet,
		"/api/alerts?since=2026-08-01T00:00:00Z&until=2026-08-28T00:00:00Z", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if store.lastOpts.Since == nil || !store.lastOpts.Since.Equal(time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("since filter not forwarded, got %v", store.lastOpts.Since)
	}
	if store.lastOpts.Until == nil || !store.lastOpts.Until.Equal(time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("until filter not forwarded, got %v", store.lastOpts.Until)
	}
}

func TestListAlertsMalformedSinceIgnored(t *testing.T) {
	store := &fakeAlertStore{}
	h := NewAlertHandler(store, testLogger())

	rec := httptest.NewRecorder()
	h.ListAlerts(rec, httptest.NewRequest(http.MethodGet, "/api/alerts?since=yesterday", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if store.lastOpts.Since != nil {
		t.Errorf("malformed since should be dropped, got %v", store.lastOpts.Since)
	}
}

func TestGetAlertNotFound(t *testing.T) {
	h := NewAlertHandler(&fakeAlertStore{}, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/alerts/42", nil)
	req.SetPathValue("id", "42")
	rec := httptest.NewRecorder()
	h.GetAlert(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestGetAlertBadID(t *testing.T) {
	h := NewAlertHandler(&fakeAlertStore{}, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/alerts/abc", nil)
	req.SetPathValue("id", "abc")
	rec := httptest.NewRecorder()
	h.GetAlert(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

type fakeBus struct {
	msgs       []domain.StreamMessage
	lastCursor string
}

func (b *fakeBus) Publish(ctx context.Context, channel string, payload []byte) error { return nil }

func (b *fakeBus) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	ch := make(chan []byte)
	close(ch)
	return ch, nil
}

func (b *fakeBus) StreamAppend(ctx context.Context, stream string, payload []byte) error {
	return nil
}

func (b *fakeBus) StreamRead(ctx context.Context, stream string, lastID string, count int) ([]domain.StreamMessage, error) {
	b.lastCursor = lastID
	return b.msgs, nil
}

func TestStreamAlerts(t *testing.T) {
	bus := &fakeBus{msgs: []domain.StreamMessage{
		{ID: "1-0", Payload: []byte(`{"id":1}`)},
		{ID: "2-0", Payload: []byte(`{"id":2}`)},
	}}
	h := NewAlertHandler(&fakeAlertStore{}, testLogger()).WithSignalBus(bus)

	rec := httptest.NewRecorder()
	h.StreamAlerts(rec, httptest.NewRequest(http.MethodGet, "/api/alerts/stream?last_id=0-0", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if bus.lastCursor != "0-0" {
		t.Errorf("cursor = %q, want 0-0", bus.lastCursor)
	}
	var body struct {
		Entries []struct {
			ID string `json:"id"`
		} `json:"entries"`
		NextID string `json:"next_id"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(body.Entries) != 2 || body.NextID != "2-0" {
		t.Errorf("entries = %d, next_id = %q", len(body.Entries), body.NextID)
	}
}

func TestStreamAlertsWithoutBus(t *testing.T) {
	h := NewAlertHandler(&fakeAlertStore{}, testLogger())

	rec := httptest.NewRecorder()
	h.StreamAlerts(rec, httptest.NewRequest(http.MethodGet, "/api/alerts/stream", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

func TestRunMonitorReturnsSummary(t *testing.T) {
	runner := &fakeRunner{summary: domain.RunSummary{
		RunID:              "run-1",
		TotalTradesFetched: 10,
		AlertsCreated:      2,
		Alerts:             []domain.Alert{},
	}}
	h := NewMonitorHandler(runner, &fakeAlertStore{}, &fakeLedgerStore{}, testLogger())

	rec := httptest.NewRecorder()
	h.RunMonitor(rec, httptest.NewRequest(http.MethodPost, "/api/monitor/run", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body domain.RunSummary
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if body.RunID != "run-1" || body.AlertsCreated != 2 {
		t.Errorf("summary = %+v", body)
	}
}

func TestRunMonitorForwardsOverrides(t *testing.T) {
	runner := &fakeRunner{summary: domain.RunSummary{RunID: "run-2"}}
	h := NewMonitorHandler(runner, &fakeAlertStore{}, &fakeLedgerStore{}, testLogger())

	body := strings.NewReader(`{"preventDuplicates":false,"thresholds":{"minBetValue":1000}}`)
	rec := httptest.NewRecorder()
	h.RunMonitor(rec, httptest.NewRequest(http.MethodPost, "/api/monitor/run", body))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if runner.overrides.PreventDuplicates == nil || *runner.overrides.PreventDuplicates {
		t.Error("preventDuplicates override not forwarded")
	}
	if runner.overrides.Thresholds == nil ||
		runner.overrides.Thresholds.MinBetValue == nil ||
		*runner.overrides.Thresholds.MinBetValue != 1000 {
		t.Errorf("threshold override not forwarded: %+v", runner.overrides.Thresholds)
	}
}

func TestRunMonitorRejectsBadBody(t *testing.T) {
	h := NewMonitorHandler(&fakeRunner{}, &fakeAlertStore{}, &fakeLedgerStore{}, testLogger())

	rec := httptest.NewRecorder()
	h.RunMonitor(rec, httptest.NewRequest(http.MethodPost, "/api/monitor/run", strings.NewReader("{not json")))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestRunMonitorFailure(t *testing.T) {
	runner := &fakeRunner{err: errors.New("feed unavailable")}
	h := NewMonitorHandler(runner, &fakeAlertStore{}, &fakeLedgerStore{}, testLogger())

	rec := httptest.NewRecorder()
	h.RunMonitor(rec, httptest.NewRequest(http.MethodPost, "/api/monitor/run", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	var body struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if body.Success || body.Error == "" {
		t.Errorf("body = %+v, want success=false with an error", body)
	}
}

func TestTriggerMonitorSendsOnChannel(t *testing.T) {
	ch := make(chan struct{}, 1)
	h := NewMonitorHandler(&fakeRunner{}, &fakeAlertStore{}, &fakeLedgerStore{}, testLogger()).
		WithTriggerChannel(ch)

	rec := httptest.NewRecorder()
	h.TriggerMonitor(rec, httptest.NewRequest(http.MethodPost, "/api/monitor/trigger", nil))

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", rec.Code)
	}
	select {
	case <-ch:
	default:
		t.Error("expected a trigger send on the channel")
	}
}

func TestMonitorStats(t *testing.T) {
	h := NewMonitorHandler(
		&fakeRunner{},
		&fakeAlertStore{countResult: 7},
		&fakeLedgerStore{countResult: 1234},
		testLogger(),
	)

	rec := httptest.NewRecorder()
	h.Stats(rec, httptest.NewRequest(http.MethodGet, "/api/monitor/stats", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body struct {
		AlertsTotal           int64 `json:"alerts_total"`
		ProcessedTransactions int64 `json:"processed_transactions"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if body.AlertsTotal != 7 || body.ProcessedTransactions != 1234 {
		t.Errorf("body = %+v", body)
	}
}

type fakePinger struct {
	err error
}

func (p *fakePinger) Ping(ctx context.Context) error {
	return p.err
}

func TestHealthCheckReportsProbes(t *testing.T) {
	h := NewHealthHandler(testLogger()).
		WithCheck("postgres", &fakePinger{}).
		WithCheck("redis", &fakePinger{})

	rec := httptest.NewRecorder()
	h.HealthCheck(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if body.Status != "ok" || body.Checks["postgres"] != "ok" || body.Checks["redis"] != "ok" {
		t.Errorf("body = %+v", body)
	}
}

func TestHealthCheckDegradedOnFailedProbe(t *testing.T) {
	h := NewHealthHandler(testLogger()).
		WithCheck("postgres", &fakePinger{}).
		WithCheck("redis", &fakePinger{err: errors.New("connection refused")})

	rec := httptest.NewRecorder()
	h.HealthCheck(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
	var body struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if body.Status != "degraded" || body.Checks["redis"] == "ok" {
		t.Errorf("body = %+v", body)
	}
}
