package engine

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luckypick/wingo/internal/domain"
)

func openRound(id string, at time.Time) domain.Round {
	return domain.Round{
		ID:       id,
		Phase:    domain.RoundPhaseOpen,
		OpenedAt: at,
		LocksAt:  at.Add(45 * time.Second),
		EndsAt:   at.Add(60 * time.Second),
	}
}

func TestCoordinator_LockTriggersSettlement(t *testing.T) {
	store := newMemStore()
	openedAt := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	uniqueMinRound(store, "r1", openedAt)

	bus := &recordingBus{}
	coord := NewCoordinator(
		newTestSettler(store, SettlerConfig{Attempts: 1}),
		testLogger(),
		WithEventBus(bus),
	)
	coord.Bind(context.Background())

	round := openRound("r1", openedAt)
	coord.RoundOpened(round)
	assert.Equal(t, round, coord.CurrentRound())
	assert.False(t, coord.IsSettling())

	lockedAt := round.LocksAt
	coord.RoundLocked("r1", lockedAt)

	require.Eventually(t, func() bool {
		_, ok := coord.LastResult()
		return ok
	}, time.Second, 5*time.Millisecond)

	require.Eventually(t, func() bool { return !coord.IsSettling() }, time.Second, 5*time.Millisecond)

	current := coord.CurrentRound()
	assert.Equal(t, domain.RoundPhaseSettled, current.Phase)
	require.NotNil(t, current.LockedAt)
	assert.Equal(t, lockedAt, *current.LockedAt)

	result, ok := coord.LastResult()
	require.True(t, ok)
	assert.Equal(t, "r1", result.RoundID)
	assert.Equal(t, 0, result.WinningNumber)
	assert.Equal(t, 1, store.applied())
}

func TestCoordinator_IgnoresLockForNonCurrentRound(t *testing.T) {
	store := newMemStore()
	coord := NewCoordinator(newTestSettler(store, SettlerConfig{Attempts: 1}), testLogger())
	coord.Bind(context.Background())

	round := openRound("r2", time.Now())
	coord.RoundOpened(round)
	coord.RoundLocked("r1", time.Now())

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, domain.RoundPhaseOpen, coord.CurrentRound().Phase)
	assert.False(t, coord.IsSettling())
	assert.Equal(t, 0, store.applied())
}

func TestCoordinator_FailedSettlementLeavesRoundLocked(t *testing.T) {
	store := newMemStore()
	openedAt := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	uniqueMinRound(store, "r1", openedAt)
	store.applyErrs = []error{errors.New("constraint violation")}

	alerts := &recordingAlerter{}
	coord := NewCoordinator(
		newTestSettler(store, SettlerConfig{Attempts: 1}),
		testLogger(),
		WithAlerter(alerts),
	)
	coord.Bind(context.Background())

	round := openRound("r1", openedAt)
	coord.RoundOpened(round)
	coord.RoundLocked("r1", round.LocksAt)

	require.Eventually(t, func() bool { return !coord.IsSettling() }, time.Second, 5*time.Millisecond)

	// No result, round stays locked for operator intervention, and the
	// failure was alerted.
	_, ok := coord.LastResult()
	assert.False(t, ok)
	assert.Equal(t, domain.RoundPhaseLocked, coord.CurrentRound().Phase)
	assert.Equal(t, []string{EventSettlementFailed}, alerts.recorded())
}

func TestCoordinator_AlertsWhenSettlementLagsIntoNextRound(t *testing.T) {
	store := newMemStore()
	openedAt := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	uniqueMinRound(store, "r1", openedAt)
	gate := make(chan struct{})
	store.applyGate = gate

	alerts := &recordingAlerter{}
	coord := NewCoordinator(
		newTestSettler(store, SettlerConfig{Attempts: 1}),
		testLogger(),
		WithAlerter(alerts),
	)
	coord.Bind(context.Background())

	first := openRound("r1", openedAt)
	coord.RoundOpened(first)
	coord.RoundLocked("r1", first.LocksAt)
	require.Eventually(t, coord.IsSettling, time.Second, time.Millisecond)

	// The clock advances while r1 is still settling.
	second := openRound("r2", openedAt.Add(time.Minute))
	coord.RoundOpened(second)
	assert.Equal(t, []string{EventSettlementLagging}, alerts.recorded())
	assert.Equal(t, "r2", coord.CurrentRound().ID)

	close(gate)
	require.Eventually(t, func() bool { return !coord.IsSettling() }, time.Second, 5*time.Millisecond)

	// r1's late result lands without touching r2's phase.
	result, ok := coord.LastResult()
	require.True(t, ok)
	assert.Equal(t, "r1", result.RoundID)
	assert.Equal(t, domain.RoundPhaseOpen, coord.CurrentRound().Phase)
}

func TestCoordinator_PublishesLifecycleEvents(t *testing.T) {
	store := newMemStore()
	openedAt := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	uniqueMinRound(store, "r1", openedAt)

	bus := &recordingBus{}
	coord := NewCoordinator(
		newTestSettler(store, SettlerConfig{Attempts: 1}),
		testLogger(),
		WithEventBus(bus),
	)
	coord.Bind(context.Background())

	round := openRound("r1", openedAt)
	coord.RoundOpened(round)
	coord.RoundLocked("r1", round.LocksAt)

	require.Eventually(t, func() bool { return len(bus.published()) == 3 }, time.Second, 5*time.Millisecond)

	var events []domain.RoundEvent
	for _, payload := range bus.published() {
		var ev domain.RoundEvent
		require.NoError(t, json.Unmarshal(payload, &ev))
		events = append(events, ev)
	}

	require.Len(t, events, 3)
	assert.Equal(t, domain.RoundEventOpened, events[0].Type)
	assert.Equal(t, "r1", events[0].RoundID)
	assert.Equal(t, domain.RoundEventLocked, events[1].Type)
	assert.Equal(t, domain.RoundEventSettled, events[2].Type)
	require.NotNil(t, events[2].Result)
	assert.Equal(t, 0, events[2].Result.WinningNumber)
}

func TestCoordinator_ConcurrentDuplicateSettlementCreditsOnce(t *testing.T) {
	store := newMemStore()
	openedAt := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	uniqueMinRound(store, "r1", openedAt)

	settler := NewSettler(store, store, store, rand.New(rand.NewSource(1)), SettlerConfig{Attempts: 1}, testLogger())
	lockedAt := openedAt.Add(45 * time.Second)

	type outcome struct {
		result domain.RoundResult
		err    error
	}
	results := make(chan outcome, 2)
	for i := 0; i < 2; i++ {
		go func() {
			r, err := settler.Settle(context.Background(), "r1", lockedAt)
			results <- outcome{result: r, err: err}
		}()
	}

	first := <-results
	second := <-results
	require.NoError(t, first.err)
	require.NoError(t, second.err)
	assert.Equal(t, first.result, second.result)

	balance, err := store.GetBalance(context.Background(), "alice")
	require.NoError(t, err)
	assert.True(t, balance.Equal(domain.WinPayout(store.wager("w-white").Amount)))
}
