package handler

import (
	"net/http"

	"github.com/luckypick/wingo/internal/domain"
	"github.com/luckypick/wingo/internal/engine"
)

// RoundHandler exposes the coordinator's read-only round state.
type RoundHandler struct {
	coord *engine.Coordinator
}

// NewRoundHandler creates a RoundHandler over the coordinator.
func NewRoundHandler(coord *engine.Coordinator) *RoundHandler {
	return &RoundHandler{coord: coord}
}

type currentRoundResponse struct {
	Round      domain.Round        `json:"round"`
	IsSettling bool                `json:"is_settling"`
	LastResult *domain.RoundResult `json:"last_result,omitempty"`
}

// GetCurrent returns the current round, whether settlement is in flight, and
// the most recent settled result.
func (h *RoundHandler) GetCurrent(w http.ResponseWriter, r *http.Request) {
	resp := currentRoundResponse{
		Round:      h.coord.CurrentRound(),
		IsSettling: h.coord.IsSettling(),
	}
	if last, ok := h.coord.LastResult(); ok {
		resp.LastResult = &last
	}
	writeJSON(w, http.StatusOK, resp)
}
