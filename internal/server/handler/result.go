package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/luckypick/wingo/internal/domain"
)

// ResultHandler serves settled round results, reading through the cache to
// the store.
type ResultHandler struct {
	cache   domain.ResultCache // optional
	results domain.ResultStore
	logger  *slog.Logger
}

// NewResultHandler creates a ResultHandler. cache may be nil.
func NewResultHandler(cache domain.ResultCache, results domain.ResultStore, logger *slog.Logger) *ResultHandler {
	return &ResultHandler{
		cache:   cache,
		results: results,
		logger:  logger.With(slog.String("handler", "result")),
	}
}

// ListRecent returns recent results most-recent-first. The cache is
// consulted first; on miss or failure the store is authoritative.
func (h *ResultHandler) ListRecent(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}

	if h.cache != nil {
		cached, err := h.cache.ListRecent(r.Context(), limit)
		if err == nil && len(cached) > 0 {
			writeJSON(w, http.StatusOK, cached)
			return
		}
		if err != nil {
			h.logger.WarnContext(r.Context(), "result cache read failed",
				slog.String("error", err.Error()),
			)
		}
	}

	results, err := h.results.ListRecent(r.Context(), limit)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "list results failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "could not list results")
		return
	}
	if results == nil {
		results = []domain.RoundResult{}
	}
	writeJSON(w, http.StatusOK, results)
}

// GetByRound returns the result for one round, 404 if it has not settled.
func (h *ResultHandler) GetByRound(w http.ResponseWriter, r *http.Request) {
	roundID := r.PathValue("id")

	result, err := h.results.GetByRound(r.Context(), roundID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "round not settled")
			return
		}
		h.logger.ErrorContext(r.Context(), "get result failed",
			slog.String("round_id", roundID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "could not read result")
		return
	}
	writeJSON(w, http.StatusOK, result)
}
