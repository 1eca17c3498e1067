package engine

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luckypick/wingo/internal/domain"
)

func newTestIntake(t *testing.T, store *memStore) (*Intake, *Coordinator) {
	t.Helper()
	coord := NewCoordinator(newTestSettler(store, SettlerConfig{Attempts: 1}), testLogger())
	coord.Bind(context.Background())
	return NewIntake(coord, store, testLogger()), coord
}

func TestIntake_AcceptsWagerWhileOpen(t *testing.T) {
	store := newMemStore()
	intake, coord := newTestIntake(t, store)
	coord.RoundOpened(openRound("r1", time.Now()))

	w, err := intake.Submit(context.Background(), WagerRequest{
		UserID: "alice",
		Amount: decimal.RequireFromString("12.50"),
		Kind:   domain.BetKindColor,
		Target: "green",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, w.ID)
	assert.Equal(t, "r1", w.RoundID)
	assert.Equal(t, domain.WagerStatusPending, w.Status)
	assert.True(t, w.Payout.IsZero())
	assert.False(t, w.CreatedAt.IsZero())

	stored, err := store.GetByID(context.Background(), w.ID)
	require.NoError(t, err)
	assert.Equal(t, w, stored)
}

func TestIntake_AcceptsExplicitCurrentRoundID(t *testing.T) {
	store := newMemStore()
	intake, coord := newTestIntake(t, store)
	coord.RoundOpened(openRound("r1", time.Now()))

	w, err := intake.Submit(context.Background(), WagerRequest{
		UserID:  "alice",
		RoundID: "r1",
		Amount:  decimal.RequireFromString("5"),
		Kind:    domain.BetKindNumber,
		Target:  "7",
	})
	require.NoError(t, err)
	assert.Equal(t, "r1", w.RoundID)
}

func TestIntake_RejectsStaleRoundID(t *testing.T) {
	store := newMemStore()
	intake, coord := newTestIntake(t, store)
	coord.RoundOpened(openRound("r2", time.Now()))

	_, err := intake.Submit(context.Background(), WagerRequest{
		UserID:  "alice",
		RoundID: "r1",
		Amount:  decimal.RequireFromString("5"),
		Kind:    domain.BetKindNumber,
		Target:  "7",
	})
	assert.ErrorIs(t, err, domain.ErrRoundMismatch)
	assert.Empty(t, store.wagers)
}

func TestIntake_RejectsWhenNoRoundYet(t *testing.T) {
	store := newMemStore()
	intake, _ := newTestIntake(t, store)

	_, err := intake.Submit(context.Background(), WagerRequest{
		UserID: "alice",
		Amount: decimal.RequireFromString("5"),
		Kind:   domain.BetKindSize,
		Target: "big",
	})
	assert.ErrorIs(t, err, domain.ErrRoundClosed)
}

func TestIntake_RejectsWhenWindowClosed(t *testing.T) {
	store := newMemStore()
	intake, coord := newTestIntake(t, store)

	round := openRound("r1", time.Now())
	coord.RoundOpened(round)
	coord.RoundLocked("r1", round.LocksAt)

	_, err := intake.Submit(context.Background(), WagerRequest{
		UserID: "alice",
		Amount: decimal.RequireFromString("5"),
		Kind:   domain.BetKindSize,
		Target: "big",
	})
	assert.ErrorIs(t, err, domain.ErrRoundClosed)
	assert.Empty(t, store.wagers)
}

func TestIntake_RejectsMalformedRequests(t *testing.T) {
	store := newMemStore()
	intake, coord := newTestIntake(t, store)
	coord.RoundOpened(openRound("r1", time.Now()))

	tests := []struct {
		name  string
		req   WagerRequest
		field string
	}{
		{
			name:  "missing user",
			req:   WagerRequest{Amount: decimal.NewFromInt(5), Kind: domain.BetKindNumber, Target: "7"},
			field: "user_id",
		},
		{
			name:  "zero amount",
			req:   WagerRequest{UserID: "alice", Amount: decimal.Zero, Kind: domain.BetKindNumber, Target: "7"},
			field: "amount",
		},
		{
			name:  "negative amount",
			req:   WagerRequest{UserID: "alice", Amount: decimal.NewFromInt(-5), Kind: domain.BetKindNumber, Target: "7"},
			field: "amount",
		},
		{
			name:  "unknown kind",
			req:   WagerRequest{UserID: "alice", Amount: decimal.NewFromInt(5), Kind: "parlay", Target: "7"},
			field: "kind",
		},
		{
			name:  "number target out of range",
			req:   WagerRequest{UserID: "alice", Amount: decimal.NewFromInt(5), Kind: domain.BetKindNumber, Target: "10"},
			field: "target",
		},
		{
			name:  "number target not canonical",
			req:   WagerRequest{UserID: "alice", Amount: decimal.NewFromInt(5), Kind: domain.BetKindNumber, Target: "07"},
			field: "target",
		},
		{
			name:  "unknown color",
			req:   WagerRequest{UserID: "alice", Amount: decimal.NewFromInt(5), Kind: domain.BetKindColor, Target: "red"},
			field: "target",
		},
		{
			name:  "unknown size",
			req:   WagerRequest{UserID: "alice", Amount: decimal.NewFromInt(5), Kind: domain.BetKindSize, Target: "medium"},
			field: "target",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := intake.Submit(context.Background(), tt.req)
			var verr *domain.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}

	assert.Empty(t, store.wagers, "rejected submissions must not persist")
}
