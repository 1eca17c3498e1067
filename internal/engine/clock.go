package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/luckypick/wingo/internal/domain"
)

// ClockHandler receives the clock's phase-transition events. RoundOpened is
// both the advance signal for the previous round and the open signal for the
// next one.
type ClockHandler interface {
	RoundOpened(round domain.Round)
	RoundLocked(roundID string, lockedAt time.Time)
}

// Clock produces the periodic round sequence: a fresh round every total
// duration, with the betting window closing window into each round. Both
// timers are scheduled relative to the round's own start, so scheduling error
// does not accumulate across rounds.
type Clock struct {
	total   time.Duration
	window  time.Duration
	handler ClockHandler
	logger  *slog.Logger

	mu          sync.Mutex
	lastID      int64
	cancelRound context.CancelFunc
}

// NewClock creates a Clock emitting lock after window and advance after total
// for every round. window must be shorter than total.
func NewClock(total, window time.Duration, handler ClockHandler, logger *slog.Logger) (*Clock, error) {
	if total <= 0 || window <= 0 {
		return nil, fmt.Errorf("clock: durations must be positive (total=%s window=%s)", total, window)
	}
	if window >= total {
		return nil, fmt.Errorf("clock: betting window %s must be shorter than round duration %s", window, total)
	}
	return &Clock{
		total:   total,
		window:  window,
		handler: handler,
		logger:  logger.With(slog.String("component", "round_clock")),
	}, nil
}

// Run drives rounds until ctx is cancelled. It opens a round, fires the lock
// event when the betting window ends, waits out the remainder of the round,
// and advances to the next. It returns ctx.Err() on shutdown.
func (c *Clock) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		round, roundCtx := c.openRound(ctx)
		c.logger.Debug("round opened",
			slog.String("round_id", round.ID),
			slog.Time("locks_at", round.LocksAt),
			slog.Time("ends_at", round.EndsAt),
		)
		c.handler.RoundOpened(round)
		c.runRound(roundCtx, round)
	}
}

// Supersede cancels the current round's outstanding timers. The clock
// immediately opens a fresh round with a new identifier; no lock or advance
// callback for the superseded round will fire afterwards.
func (c *Clock) Supersede() {
	c.mu.Lock()
	cancel := c.cancelRound
	c.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (c *Clock) openRound(ctx context.Context) (domain.Round, context.Context) {
	now := time.Now()
	round := domain.Round{
		ID:       c.nextID(now),
		Phase:    domain.RoundPhaseOpen,
		OpenedAt: now,
		LocksAt:  now.Add(c.window),
		EndsAt:   now.Add(c.total),
	}

	roundCtx, cancel := context.WithCancel(ctx)
	c.mu.Lock()
	c.cancelRound = cancel
	c.mu.Unlock()

	return round, roundCtx
}

// runRound fires the lock event at the window boundary and returns once the
// round's total duration elapses or the round is cancelled.
func (c *Clock) runRound(roundCtx context.Context, round domain.Round) {
	lock := time.NewTimer(time.Until(round.LocksAt))
	defer lock.Stop()

	select {
	case <-roundCtx.Done():
		c.logger.Debug("round superseded before lock", slog.String("round_id", round.ID))
		return
	case <-lock.C:
		c.handler.RoundLocked(round.ID, round.LocksAt)
	}

	advance := time.NewTimer(time.Until(round.EndsAt))
	defer advance.Stop()

	select {
	case <-roundCtx.Done():
		c.logger.Debug("round superseded before advance", slog.String("round_id", round.ID))
	case <-advance.C:
	}
}

// nextID derives a round identifier from the wall clock in milliseconds,
// bumped past the previous identifier when two rounds open within the same
// millisecond (possible under Supersede).
func (c *Clock) nextID(now time.Time) string {
	ms := now.UnixMilli()
	c.mu.Lock()
	if ms <= c.lastID {
		ms = c.lastID + 1
	}
	c.lastID = ms
	c.mu.Unlock()
	return strconv.FormatInt(ms, 10)
}
