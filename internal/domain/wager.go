package domain

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// BetKind is the kind of target a wager bets on.
type BetKind string

const (
	// BetKindNumber bets on an exact digit, target "0".."9".
	BetKindNumber BetKind = "number"
	// BetKindColor bets on the winning digit's color class.
	BetKindColor BetKind = "color"
	// BetKindSize bets on the winning digit's size class.
	BetKindSize BetKind = "size"
)

// WagerStatus is a wager's settlement state. Pending is the only non-terminal
// status; win and loss are final and never revisited.
type WagerStatus string

const (
	WagerStatusPending WagerStatus = "pending"
	WagerStatusWin     WagerStatus = "win"
	WagerStatusLoss    WagerStatus = "loss"
)

// Wager is one user's stake on a round outcome. Payout stays zero until the
// wager settles as a win.
type Wager struct {
	ID        string          `json:"id"`
	UserID    string          `json:"user_id"`
	RoundID   string          `json:"round_id"`
	Amount    decimal.Decimal `json:"amount"`
	Kind      BetKind         `json:"kind"`
	Target    string          `json:"target"`
	Status    WagerStatus     `json:"status"`
	Payout    decimal.Decimal `json:"payout"`
	CreatedAt time.Time       `json:"created_at"`
	SettledAt *time.Time      `json:"settled_at,omitempty"`
}

// Matches reports whether the wager wins when digit is the round outcome.
// A wager with an unknown kind or malformed target never matches.
func (w Wager) Matches(digit int) bool {
	switch w.Kind {
	case BetKindNumber:
		return w.Target == strconv.Itoa(digit)
	case BetKindColor:
		return w.Target == string(ColorOf(digit))
	case BetKindSize:
		return w.Target == string(SizeOf(digit))
	default:
		return false
	}
}

// ValidTarget reports whether the wager's target is well-formed for its kind.
// Number targets must be the canonical decimal form of a digit, so "07" is
// rejected.
func (w Wager) ValidTarget() bool {
	switch w.Kind {
	case BetKindNumber:
		n, err := strconv.Atoi(w.Target)
		if err != nil || n < 0 || n >= DigitCount {
			return false
		}
		return w.Target == strconv.Itoa(n)
	case BetKindColor:
		switch Color(w.Target) {
		case ColorWhite, ColorGreen, ColorOrange:
			return true
		}
		return false
	case BetKindSize:
		switch Size(w.Target) {
		case SizeSmall, SizeBig:
			return true
		}
		return false
	default:
		return false
	}
}
