package handler

import (
	"context"
	"net/http"
	"time"
)

// Pinger checks connectivity of a backing service.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler reports liveness of the API and its backing stores.
type HealthHandler struct {
	checks map[string]Pinger
}

// NewHealthHandler creates a HealthHandler over the given named checks.
// A nil Pinger is skipped.
func NewHealthHandler(checks map[string]Pinger) *HealthHandler {
	return &HealthHandler{checks: checks}
}

// HealthCheck responds with per-dependency status. It returns 200 when every
// configured dependency is reachable, 503 otherwise.
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	status := http.StatusOK
	deps := make(map[string]string, len(h.checks))
	for name, check := range h.checks {
		if check == nil {
			continue
		}
		if err := check.Ping(ctx); err != nil {
			deps[name] = err.Error()
			status = http.StatusServiceUnavailable
		} else {
			deps[name] = "ok"
		}
	}

	writeJSON(w, status, map[string]any{
		"status":       httpStatusWord(status),
		"dependencies": deps,
	})
}

func httpStatusWord(status int) string {
	if status == http.StatusOK {
		return "ok"
	}
	return "degraded"
}
