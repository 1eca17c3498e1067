package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/luckypick/wingo/internal/domain"
)

// UserHandler serves per-user read paths: balance and wager history.
type UserHandler struct {
	users  domain.UserStore
	wagers domain.WagerStore
	logger *slog.Logger
}

// NewUserHandler creates a UserHandler.
func NewUserHandler(users domain.UserStore, wagers domain.WagerStore, logger *slog.Logger) *UserHandler {
	return &UserHandler{
		users:  users,
		wagers: wagers,
		logger: logger.With(slog.String("handler", "user")),
	}
}

// GetBalance returns a user's current balance.
func (h *UserHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("id")

	balance, err := h.users.GetBalance(r.Context(), userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "unknown user")
			return
		}
		h.logger.ErrorContext(r.Context(), "get balance failed",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "could not read balance")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"user_id": userID,
		"balance": balance.String(),
	})
}

// ListWagers returns a user's wagers most-recent-first.
func (h *UserHandler) ListWagers(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("id")

	wagers, err := h.wagers.ListByUser(r.Context(), userID, parseListOpts(r))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "list wagers failed",
			slog.String("user_id", userID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "could not list wagers")
		return
	}
	if wagers == nil {
		wagers = []domain.Wager{}
	}
	writeJSON(w, http.StatusOK, wagers)
}
