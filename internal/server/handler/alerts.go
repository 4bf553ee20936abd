package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/alanyoungcy/whalewatch/internal/domain"
)

// AlertHandler serves whale alert read endpoints.
type AlertHandler struct {
	store  domain.AlertStore
	bus    domain.SignalBus // when non-nil, the durable alert stream is exposed
	logger *slog.Logger
}

// NewAlertHandler creates an AlertHandler backed by the given store.
func NewAlertHandler(store domain.AlertStore, logger *slog.Logger) *AlertHandler {
	return &AlertHandler{store: store, logger: logger}
}

// WithSignalBus enables GET /api/alerts/stream, which reads the durable
// Redis alert stream for clients that poll with a cursor instead of holding
// a WebSocket open.
func (h *AlertHandler) WithSignalBus(bus domain.SignalBus) *AlertHandler {
	h.bus = bus
	return h
}

// ListAlerts returns stored alerts, newest first. An optional ?trader=
// parameter narrows the list to one trader.
// GET /api/alerts
func (h *AlertHandler) ListAlerts(w http.ResponseWriter, r *http.Request) {
	opts := parseListOpts(r)
	log := logHandler(h.logger, "list_alerts")

	var (
		alerts []domain.Alert
		err    error
	)
	if trader := r.URL.Query().Get("trader"); trader != "" {
		alerts, err = h.store.ListByTrader(r.Context(), trader, opts)
	} else {
		alerts, err = h.store.List(r.Context(), opts)
	}
	if err != nil {
		log.ErrorContext(r.Context(), "listing alerts", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "failed to list alerts")
		return
	}

	if alerts == nil {
		alerts = []domain.Alert{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"alerts": alerts,
		"count":  len(alerts),
	})
}

// StreamAlerts reads the durable alert stream starting after the client's
// cursor. Clients pass the last stream ID they saw via ?last_id= ("0" reads
// from the beginning) and receive entries plus the cursor to resume from.
// GET /api/alerts/stream
func (h *AlertHandler) StreamAlerts(w http.ResponseWriter, r *http.Request) {
	if h.bus == nil {
		writeError(w, http.StatusServiceUnavailable, "alert stream requires redis")
		return
	}

	lastID := r.URL.Query().Get("last_id")
	if lastID == "" {
		lastID = "0"
	}
	count := 50
	if v := r.URL.Query().Get("count"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 500 {
			count = n
		}
	}

	msgs, err := h.bus.StreamRead(r.Context(), "alerts", lastID, count)
	if err != nil {
		logHandler(h.logger, "stream_alerts").ErrorContext(r.Context(), "reading alert stream",
			slog.String("last_id", lastID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to read alert stream")
		return
	}

	type streamEntry struct {
		ID    string          `json:"id"`
		Alert json.RawMessage `json:"alert"`
	}
	entries := make([]streamEntry, 0, len(msgs))
	nextID := lastID
	for _, m := range msgs {
		entries = append(entries, streamEntry{ID: m.ID, Alert: json.RawMessage(m.Payload)})
		nextID = m.ID
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"entries": entries,
		"next_id": nextID,
	})
}

// GetAlert returns a single alert by ID.
// GET /api/alerts/{id}
func (h *AlertHandler) GetAlert(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(pathParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid alert id")
		return
	}

	alert, err := h.store.GetByID(r.Context(), id)
	if errors.Is(err, domain.ErrNotFound) {
		writeError(w, http.StatusNotFound, "alert not found")
		return
	}
	if err != nil {
		logHandler(h.logger, "get_alert").ErrorContext(r.Context(), "fetching alert",
			slog.Int64("id", id),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to fetch alert")
		return
	}

	writeJSON(w, http.StatusOK, alert)
}
