// Package domain holds the core types of the betting game: rounds, wagers,
// results, and the store interfaces the engine runs against.
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// DigitCount is the number of candidate outcome digits (0 through 9).
const DigitCount = 10

// RoundPhase is the lifecycle phase of a round.
type RoundPhase string

const (
	// RoundPhaseOpen means the betting window is open and wagers are accepted.
	RoundPhaseOpen RoundPhase = "open"
	// RoundPhaseLocked means the betting window has closed and settlement is
	// pending or in flight.
	RoundPhaseLocked RoundPhase = "locked"
	// RoundPhaseSettled means the round's result has been durably committed.
	RoundPhaseSettled RoundPhase = "settled"
)

// Round is one timed game cycle. LockedAt is set once the betting window
// closes and is the creation cutoff for settleable wagers.
type Round struct {
	ID       string     `json:"id"`
	Phase    RoundPhase `json:"phase"`
	OpenedAt time.Time  `json:"opened_at"`
	LocksAt  time.Time  `json:"locks_at"`
	EndsAt   time.Time  `json:"ends_at"`
	LockedAt *time.Time `json:"locked_at,omitempty"`
}

// Color is a digit's color class.
type Color string

const (
	ColorWhite  Color = "white"
	ColorGreen  Color = "green"
	ColorOrange Color = "orange"
)

// Size is a digit's size class.
type Size string

const (
	SizeSmall Size = "small"
	SizeBig   Size = "big"
)

// ColorOf maps a digit to its color: 0 and 5 are white, other odd digits
// green, other even digits orange.
func ColorOf(digit int) Color {
	switch {
	case digit == 0 || digit == 5:
		return ColorWhite
	case digit%2 == 1:
		return ColorGreen
	default:
		return ColorOrange
	}
}

// SizeOf maps a digit to its size: 0-4 small, 5-9 big.
func SizeOf(digit int) Size {
	if digit < 5 {
		return SizeSmall
	}
	return SizeBig
}

// payoutMultiplier is the flat multiplier applied to every winning wager's
// stake, regardless of bet kind.
var payoutMultiplier = decimal.NewFromInt(2)

// WinPayout returns the payout for a winning wager of the given amount.
func WinPayout(amount decimal.Decimal) decimal.Decimal {
	return amount.Mul(payoutMultiplier)
}

// RoundResult is the durable outcome of a settled round. The color and size
// are derived from the winning digit and stored denormalized for display.
type RoundResult struct {
	RoundID       string    `json:"round_id"`
	WinningNumber int       `json:"winning_number"`
	WinningColor  Color     `json:"winning_color"`
	WinningSize   Size      `json:"winning_size"`
	EndedAt       time.Time `json:"ended_at"`
}

// NewRoundResult builds a result for the given winning digit, deriving its
// color and size classes.
func NewRoundResult(roundID string, digit int, endedAt time.Time) RoundResult {
	return RoundResult{
		RoundID:       roundID,
		WinningNumber: digit,
		WinningColor:  ColorOf(digit),
		WinningSize:   SizeOf(digit),
		EndedAt:       endedAt,
	}
}
