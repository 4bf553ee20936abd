package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// Pinger reports whether a backing service is reachable. The Postgres and
// Redis clients satisfy it.
type Pinger interface {
	Ping(ctx context.Context) error
}

type healthCheck struct {
	name   string
	pinger Pinger
}

// HealthHandler serves the health-check endpoint.
type HealthHandler struct {
	logger *slog.Logger
	checks []healthCheck
}

// NewHealthHandler creates a HealthHandler with the provided logger.
func NewHealthHandler(logger *slog.Logger) *HealthHandler {
	return &HealthHandler{logger: logger}
}

// WithCheck registers a named dependency probe run on every health request.
func (h *HealthHandler) WithCheck(name string, p Pinger) *HealthHandler {
	h.checks = append(h.checks, healthCheck{name: name, pinger: p})
	return h
}

// HealthCheck responds with the server status plus the result of each
// registered dependency probe. Any failing probe turns the response into a
// 503 so load balancers stop routing here.
// GET /api/health
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	httpStatus := http.StatusOK

	checks := make(map[string]string, len(h.checks))
	for _, c := range h.checks {
		if err := c.pinger.Ping(r.Context()); err != nil {
			logHandler(h.logger, "health").WarnContext(r.Context(), "health probe failed",
				slog.String("check", c.name),
				slog.String("error", err.Error()),
			)
			checks[c.name] = err.Error()
			status = "degraded"
			httpStatus = http.StatusServiceUnavailable
			continue
		}
		checks[c.name] = "ok"
	}

	body := map[string]any{
		"status":    status,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	if len(checks) > 0 {
		body["checks"] = checks
	}
	writeJSON(w, httpStatus, body)
}
