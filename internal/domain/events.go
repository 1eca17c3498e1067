package domain

import "time"

// RoundEventType enumerates the round lifecycle events published on the bus.
type RoundEventType string

const (
	// RoundEventOpened fires when a new round's betting window opens.
	RoundEventOpened RoundEventType = "round_opened"
	// RoundEventLocked fires when the betting window closes.
	RoundEventLocked RoundEventType = "round_locked"
	// RoundEventSettled fires when the round's result is durably committed.
	RoundEventSettled RoundEventType = "round_settled"
)

// RoundEventsChannel is the bus channel round events are published on.
const RoundEventsChannel = "rounds"

// RoundEvent is the payload pushed to presentation clients on each round
// phase transition. Result is set only for RoundEventSettled.
type RoundEvent struct {
	Type    RoundEventType `json:"type"`
	RoundID string         `json:"round_id"`
	LocksAt time.Time      `json:"locks_at,omitempty"`
	EndsAt  time.Time      `json:"ends_at,omitempty"`
	Result  *RoundResult   `json:"result,omitempty"`
	At      time.Time      `json:"at"`
}
