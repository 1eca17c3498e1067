package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// ListOpts provides pagination for display-oriented list queries.
type ListOpts struct {
	Limit  int
	Offset int
}

// WagerStore persists wagers. Wager creation is the only write path here;
// settlement-state fields (status, payout) are mutated exclusively through
// SettlementStore.Apply.
type WagerStore interface {
	Create(ctx context.Context, w Wager) error
	GetByID(ctx context.Context, id string) (Wager, error)
	// ListPending returns the wagers still pending for a round that were
	// created strictly before the cutoff. The cutoff is the round's lock
	// timestamp; it keeps wagers that raced past the intake guard at lock
	// time out of settlement.
	ListPending(ctx context.Context, roundID string, before time.Time) ([]Wager, error)
	// ListByUser returns a user's wagers most-recent-first. Display only.
	ListByUser(ctx context.Context, userID string, opts ListOpts) ([]Wager, error)
}

// ResultStore reads round results. Results are written only through
// SettlementStore.Apply.
type ResultStore interface {
	GetByRound(ctx context.Context, roundID string) (RoundResult, error)
	// ListRecent returns results most-recent-first for display.
	ListRecent(ctx context.Context, limit int) ([]RoundResult, error)
}

// UserStore reads user account state. Balances are credited only through
// SettlementStore.Apply.
type UserStore interface {
	GetBalance(ctx context.Context, userID string) (decimal.Decimal, error)
}

// WagerSettlement is the terminal state computed for one wager.
type WagerSettlement struct {
	WagerID string
	Status  WagerStatus
	Payout  decimal.Decimal
}

// BalanceCredit is one user's aggregated winnings for a round. There is at
// most one credit per user per round regardless of how many wagers won.
type BalanceCredit struct {
	UserID string
	Amount decimal.Decimal
}

// Settlement is the full set of state changes for one round, applied
// atomically.
type Settlement struct {
	Result  RoundResult
	Wagers  []WagerSettlement
	Credits []BalanceCredit
}

// SettlementStore applies a round settlement as a single atomic unit: the
// result row, every wager's terminal status and payout, and every winner's
// balance credit all commit together or not at all.
//
// Apply must return ErrAlreadySettled without any side effects when a result
// for the round already exists, which makes settlement idempotent at round
// granularity.
type SettlementStore interface {
	Apply(ctx context.Context, s Settlement) error
}
