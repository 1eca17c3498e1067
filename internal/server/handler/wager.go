package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/luckypick/wingo/internal/domain"
	"github.com/luckypick/wingo/internal/engine"
)

// WagerHandler exposes the wager submission path.
type WagerHandler struct {
	intake *engine.Intake
	logger *slog.Logger
}

// NewWagerHandler creates a WagerHandler over the intake guard.
func NewWagerHandler(intake *engine.Intake, logger *slog.Logger) *WagerHandler {
	return &WagerHandler{
		intake: intake,
		logger: logger.With(slog.String("handler", "wager")),
	}
}

type placeWagerRequest struct {
	UserID  string `json:"user_id"`
	RoundID string `json:"round_id"`
	Amount  string `json:"amount"`
	Kind    string `json:"kind"`
	Target  string `json:"target"`
}

// PlaceWager accepts a wager submission for the current round. Rejected
// submissions get 400 (malformed) or 409 (betting window closed / wrong
// round); nothing is persisted on rejection.
func (h *WagerHandler) PlaceWager(w http.ResponseWriter, r *http.Request) {
	var req placeWagerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid amount")
		return
	}

	wager, err := h.intake.Submit(r.Context(), engine.WagerRequest{
		UserID:  req.UserID,
		RoundID: req.RoundID,
		Amount:  amount,
		Kind:    domain.BetKind(req.Kind),
		Target:  req.Target,
	})
	if err != nil {
		var verr *domain.ValidationError
		switch {
		case errors.As(err, &verr):
			writeError(w, http.StatusBadRequest, verr.Error())
		case errors.Is(err, domain.ErrRoundClosed):
			writeError(w, http.StatusConflict, "betting window closed")
		case errors.Is(err, domain.ErrRoundMismatch):
			writeError(w, http.StatusConflict, "round is no longer current")
		default:
			h.logger.ErrorContext(r.Context(), "wager submission failed",
				slog.String("error", err.Error()),
			)
			writeError(w, http.StatusInternalServerError, "could not place wager")
		}
		return
	}

	writeJSON(w, http.StatusCreated, wager)
}
