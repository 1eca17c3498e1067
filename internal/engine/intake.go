package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/luckypick/wingo/internal/domain"
)

// WagerRequest is a wager submission prior to validation. RoundID may be
// empty, in which case the wager targets the current round.
type WagerRequest struct {
	UserID  string
	RoundID string
	Amount  decimal.Decimal
	Kind    domain.BetKind
	Target  string
}

// Intake guards the wager submission path: it accepts a wager only while the
// targeted round is the current one and its betting window is still open,
// and rejects malformed submissions before anything is persisted.
type Intake struct {
	coord  *Coordinator
	wagers domain.WagerStore
	logger *slog.Logger
	now    func() time.Time
}

// NewIntake creates an Intake bound to the coordinator's round view.
func NewIntake(coord *Coordinator, wagers domain.WagerStore, logger *slog.Logger) *Intake {
	return &Intake{
		coord:  coord,
		wagers: wagers,
		logger: logger.With(slog.String("component", "intake")),
		now:    time.Now,
	}
}

// Submit validates and persists a wager. Accepted wagers are stored pending
// with zero payout and a server-assigned creation timestamp. Rejections are
// *domain.ValidationError, domain.ErrRoundClosed, or domain.ErrRoundMismatch.
func (g *Intake) Submit(ctx context.Context, req WagerRequest) (domain.Wager, error) {
	if err := validateRequest(req); err != nil {
		return domain.Wager{}, err
	}

	current := g.coord.CurrentRound()
	if current.ID == "" {
		return domain.Wager{}, domain.ErrRoundClosed
	}
	if req.RoundID != "" && req.RoundID != current.ID {
		return domain.Wager{}, domain.ErrRoundMismatch
	}
	if current.Phase != domain.RoundPhaseOpen {
		return domain.Wager{}, domain.ErrRoundClosed
	}

	w := domain.Wager{
		ID:        uuid.NewString(),
		UserID:    req.UserID,
		RoundID:   current.ID,
		Amount:    req.Amount,
		Kind:      req.Kind,
		Target:    req.Target,
		Status:    domain.WagerStatusPending,
		Payout:    decimal.Zero,
		CreatedAt: g.now(),
	}

	if err := g.wagers.Create(ctx, w); err != nil {
		return domain.Wager{}, fmt.Errorf("intake: persist wager: %w", err)
	}

	g.logger.Debug("wager accepted",
		slog.String("wager_id", w.ID),
		slog.String("round_id", w.RoundID),
		slog.String("user_id", w.UserID),
		slog.String("kind", string(w.Kind)),
		slog.String("target", w.Target),
	)
	return w, nil
}

func validateRequest(req WagerRequest) error {
	if req.UserID == "" {
		return &domain.ValidationError{Field: "user_id", Reason: "missing"}
	}
	if !req.Amount.IsPositive() {
		return &domain.ValidationError{Field: "amount", Reason: "must be positive"}
	}
	switch req.Kind {
	case domain.BetKindNumber, domain.BetKindColor, domain.BetKindSize:
	default:
		return &domain.ValidationError{Field: "kind", Reason: "unknown bet kind"}
	}
	probe := domain.Wager{Kind: req.Kind, Target: req.Target}
	if !probe.ValidTarget() {
		return &domain.ValidationError{Field: "target", Reason: fmt.Sprintf("invalid for kind %s", req.Kind)}
	}
	return nil
}
