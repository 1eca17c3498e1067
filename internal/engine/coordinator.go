package engine

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/luckypick/wingo/internal/domain"
)

// Alerter delivers operator alerts for settlement conditions that need
// attention. Implemented by notify.Notifier.
type Alerter interface {
	Notify(ctx context.Context, event, title, message string) error
}

// Alert event names.
const (
	EventSettlementFailed  = "settlement_failed"
	EventSettlementLagging = "settlement_lagging"
)

// Coordinator wires the clock's events to the settler and owns the engine's
// externally visible round state. It is the ClockHandler: on lock it starts
// settlement of the current round in the background; on the next round open
// it switches its view over, even if the previous round is still settling
// (all settlement state is partitioned by round id, so the overlap is safe).
type Coordinator struct {
	settler       *Settler
	cache         domain.ResultCache // optional
	bus           domain.EventBus    // optional
	alerts        Alerter            // optional
	logger        *slog.Logger
	settleTimeout time.Duration

	mu         sync.Mutex
	baseCtx    context.Context
	current    domain.Round
	settling   map[string]bool
	lastResult *domain.RoundResult
}

// CoordinatorOption customizes a Coordinator.
type CoordinatorOption func(*Coordinator)

// WithResultCache attaches a display cache updated on every settlement.
func WithResultCache(cache domain.ResultCache) CoordinatorOption {
	return func(c *Coordinator) { c.cache = cache }
}

// WithEventBus attaches a bus that receives round lifecycle events.
func WithEventBus(bus domain.EventBus) CoordinatorOption {
	return func(c *Coordinator) { c.bus = bus }
}

// WithAlerter attaches an operator alert sink.
func WithAlerter(a Alerter) CoordinatorOption {
	return func(c *Coordinator) { c.alerts = a }
}

// WithSettleTimeout bounds how long one round's settlement (including
// retries) may run. Default 2 minutes.
func WithSettleTimeout(d time.Duration) CoordinatorOption {
	return func(c *Coordinator) { c.settleTimeout = d }
}

// NewCoordinator creates a Coordinator around the given settler.
func NewCoordinator(settler *Settler, logger *slog.Logger, opts ...CoordinatorOption) *Coordinator {
	c := &Coordinator{
		settler:       settler,
		logger:        logger.With(slog.String("component", "coordinator")),
		settleTimeout: 2 * time.Minute,
		baseCtx:       context.Background(),
		settling:      make(map[string]bool),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Bind sets the base context for background settlement goroutines. Call it
// before the clock starts; settlements inherit cancellation from ctx.
func (c *Coordinator) Bind(ctx context.Context) {
	c.mu.Lock()
	c.baseCtx = ctx
	c.mu.Unlock()
}

// CurrentRound returns the coordinator's view of the current round.
func (c *Coordinator) CurrentRound() domain.Round {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// IsSettling reports whether any round's settlement is in flight, i.e. a
// lock event has fired and its settlement has not yet completed or failed.
func (c *Coordinator) IsSettling() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.settling) > 0
}

// LastResult returns the most recently settled result, if any.
func (c *Coordinator) LastResult() (domain.RoundResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.lastResult == nil {
		return domain.RoundResult{}, false
	}
	return *c.lastResult, true
}

// RoundOpened switches the coordinator to the new round. If the previous
// round's settlement is still in flight this is logged and alerted but does
// not block the new round; the two rounds' state never overlaps.
func (c *Coordinator) RoundOpened(round domain.Round) {
	c.mu.Lock()
	lagging := make([]string, 0, len(c.settling))
	for id := range c.settling {
		lagging = append(lagging, id)
	}
	c.current = round
	ctx := c.baseCtx
	c.mu.Unlock()

	for _, prevID := range lagging {
		c.logger.Warn("settlement still pending when next round opened",
			slog.String("settling_round_id", prevID),
			slog.String("new_round_id", round.ID),
		)
		c.alert(ctx, EventSettlementLagging, "Settlement lagging",
			"round "+prevID+" was still settling when round "+round.ID+" opened")
	}

	c.publish(ctx, domain.RoundEvent{
		Type:    domain.RoundEventOpened,
		RoundID: round.ID,
		LocksAt: round.LocksAt,
		EndsAt:  round.EndsAt,
		At:      round.OpenedAt,
	})
}

// RoundLocked closes the betting window and kicks off settlement of the
// round in the background.
func (c *Coordinator) RoundLocked(roundID string, lockedAt time.Time) {
	c.mu.Lock()
	if c.current.ID != roundID {
		// Stale event for a superseded round.
		c.mu.Unlock()
		c.logger.Warn("ignoring lock for non-current round", slog.String("round_id", roundID))
		return
	}
	c.current.Phase = domain.RoundPhaseLocked
	c.current.LockedAt = &lockedAt
	c.settling[roundID] = true
	ctx := c.baseCtx
	c.mu.Unlock()

	c.publish(ctx, domain.RoundEvent{
		Type:    domain.RoundEventLocked,
		RoundID: roundID,
		At:      lockedAt,
	})

	go c.settle(ctx, roundID, lockedAt)
}

func (c *Coordinator) settle(baseCtx context.Context, roundID string, lockedAt time.Time) {
	ctx, cancel := context.WithTimeout(baseCtx, c.settleTimeout)
	defer cancel()

	result, err := c.settler.Settle(ctx, roundID, lockedAt)

	c.mu.Lock()
	delete(c.settling, roundID)
	if err != nil {
		// The round stays locked; an operator retries or intervenes.
		c.mu.Unlock()
		c.logger.Error("settlement failed",
			slog.String("round_id", roundID),
			slog.String("error", err.Error()),
		)
		c.alert(baseCtx, EventSettlementFailed, "Settlement failed",
			"round "+roundID+": "+err.Error())
		return
	}

	c.lastResult = &result
	if c.current.ID == roundID {
		c.current.Phase = domain.RoundPhaseSettled
	}
	c.mu.Unlock()

	if c.cache != nil {
		if err := c.cache.SetLast(ctx, result); err != nil {
			c.logger.Warn("result cache update failed",
				slog.String("round_id", roundID),
				slog.String("error", err.Error()),
			)
		}
	}

	c.publish(ctx, domain.RoundEvent{
		Type:    domain.RoundEventSettled,
		RoundID: roundID,
		Result:  &result,
		At:      result.EndedAt,
	})
}

func (c *Coordinator) publish(ctx context.Context, ev domain.RoundEvent) {
	if c.bus == nil {
		return
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		c.logger.Warn("marshal round event", slog.String("error", err.Error()))
		return
	}
	if err := c.bus.Publish(ctx, domain.RoundEventsChannel, payload); err != nil {
		c.logger.Warn("publish round event",
			slog.String("type", string(ev.Type)),
			slog.String("error", err.Error()),
		)
	}
}

func (c *Coordinator) alert(ctx context.Context, event, title, message string) {
	if c.alerts == nil {
		return
	}
	if err := c.alerts.Notify(ctx, event, title, message); err != nil {
		c.logger.Warn("alert delivery failed",
			slog.String("event", event),
			slog.String("error", err.Error()),
		)
	}
}
