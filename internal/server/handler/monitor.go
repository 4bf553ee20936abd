package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/alanyoungcy/whalewatch/internal/domain"
	"github.com/alanyoungcy/whalewatch/internal/pipeline"
)

// MonitorRunner executes one whale-detection run synchronously.
type MonitorRunner interface {
	RunWith(ctx context.Context, overrides pipeline.RunOverrides) (domain.RunSummary, error)
}

// MonitorHandler serves monitor control and stats endpoints.
type MonitorHandler struct {
	runner    MonitorRunner
	alerts    domain.AlertStore
	ledger    domain.LedgerStore
	logger    *slog.Logger
	triggerCh chan<- struct{} // when non-nil, sending triggers one poll cycle
}

// NewMonitorHandler creates a MonitorHandler.
func NewMonitorHandler(runner MonitorRunner, alerts domain.AlertStore, ledger domain.LedgerStore, logger *slog.Logger) *MonitorHandler {
	return &MonitorHandler{
		runner: runner,
		alerts: alerts,
		ledger: ledger,
		logger: logger,
	}
}

// WithTriggerChannel sets the channel to send on when an async trigger is
// requested. The poll loop must receive from this channel to run one cycle.
func (h *MonitorHandler) WithTriggerChannel(ch chan<- struct{}) *MonitorHandler {
	h.triggerCh = ch
	return h
}

// RunMonitor executes one monitor run synchronously and returns its summary.
// An optional JSON body {"thresholds": {...}, "preventDuplicates": bool}
// overrides the configured settings for this run only. A failed run answers
// 500 with {"success": false, "error": "..."}.
// POST /api/monitor/run
func (h *MonitorHandler) RunMonitor(w http.ResponseWriter, r *http.Request) {
	log := logHandler(h.logger, "run_monitor")
	log.InfoContext(r.Context(), "manual monitor run requested")

	var overrides pipeline.RunOverrides
	if r.Body != nil {
		if err := json.NewDecoder(r.Body).Decode(&overrides); err != nil && !errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	summary, err := h.runner.RunWith(r.Context(), overrides)
	if err != nil {
		log.ErrorContext(r.Context(), "monitor run failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"success": false,
			"error":   err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, summary)
}

// TriggerMonitor enqueues one poll cycle without waiting for it. If a trigger
// channel is configured, a non-blocking send wakes the poll loop.
// POST /api/monitor/trigger
func (h *MonitorHandler) TriggerMonitor(w http.ResponseWriter, r *http.Request) {
	logHandler(h.logger, "trigger_monitor").InfoContext(r.Context(), "monitor trigger requested")
	if h.triggerCh != nil {
		select {
		case h.triggerCh <- struct{}{}:
		default:
			// already triggered and not yet consumed
		}
	}
	writeJSON(w, http.StatusAccepted, map[string]any{
		"status":       "accepted",
		"message":      "monitor run enqueued",
		"requested_at": time.Now().UTC().Format(time.RFC3339),
	})
}

// Stats returns aggregate counters for dashboards.
// GET /api/monitor/stats
func (h *MonitorHandler) Stats(w http.ResponseWriter, r *http.Request) {
	log := logHandler(h.logger, "monitor_stats")

	alertCount, err := h.alerts.Count(r.Context())
	if err != nil {
		log.ErrorContext(r.Context(), "counting alerts", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to read stats")
		return
	}
	ledgerCount, err := h.ledger.Count(r.Context())
	if err != nil {
		log.ErrorContext(r.Context(), "counting ledger rows", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to read stats")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"alerts_total":           alertCount,
		"processed_transactions": ledgerCount,
	})
}
