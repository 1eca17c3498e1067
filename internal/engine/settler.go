package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/luckypick/wingo/internal/domain"
)

// SettlerConfig controls the retry behaviour of settlement attempts.
type SettlerConfig struct {
	// Attempts is the maximum number of full settlement attempts (read,
	// select, commit) for one round. Minimum 1.
	Attempts int
	// Backoff is the base delay between attempts; attempt n waits n*Backoff.
	Backoff time.Duration
}

// Settler runs the settlement of a locked round: it reads the round's pending
// wagers, selects the minimum-payout outcome, and applies the whole
// settlement through the store's atomic commit. Transient failures retry the
// entire sequence from the read step; a concurrent duplicate settlement is
// absorbed as success by re-reading the persisted result.
type Settler struct {
	wagers  domain.WagerStore
	store   domain.SettlementStore
	results domain.ResultStore
	cfg     SettlerConfig
	logger  *slog.Logger
	now     func() time.Time

	rngMu sync.Mutex
	rng   *rand.Rand
}

// NewSettler creates a Settler. rng is the random source used for outcome
// tie-breaking; injecting it keeps outcome selection deterministic in tests.
func NewSettler(
	wagers domain.WagerStore,
	store domain.SettlementStore,
	results domain.ResultStore,
	rng *rand.Rand,
	cfg SettlerConfig,
	logger *slog.Logger,
) *Settler {
	if cfg.Attempts < 1 {
		cfg.Attempts = 1
	}
	return &Settler{
		wagers:  wagers,
		store:   store,
		results: results,
		cfg:     cfg,
		logger:  logger.With(slog.String("component", "settler")),
		now:     time.Now,
		rng:     rng,
	}
}

// Settle resolves the given round against the wagers that were pending before
// lockedAt and returns the persisted result. It is safe to call concurrently
// with a duplicate attempt for the same round: exactly one attempt commits,
// the others observe the committed result and return it.
func (s *Settler) Settle(ctx context.Context, roundID string, lockedAt time.Time) (domain.RoundResult, error) {
	var lastErr error

	for attempt := 1; attempt <= s.cfg.Attempts; attempt++ {
		result, err := s.attempt(ctx, roundID, lockedAt)
		if err == nil {
			return result, nil
		}

		if errors.Is(err, domain.ErrAlreadySettled) {
			// A duplicate attempt won the commit. The in-memory outcome we
			// computed is not trustworthy; re-read the persisted result.
			persisted, readErr := s.results.GetByRound(ctx, roundID)
			if readErr != nil {
				return domain.RoundResult{}, fmt.Errorf("settle round %s: read persisted result: %w", roundID, readErr)
			}
			s.logger.Info("settlement already applied",
				slog.String("round_id", roundID),
				slog.Int("winning_number", persisted.WinningNumber),
			)
			return persisted, nil
		}

		lastErr = err
		if !domain.IsTransient(err) || attempt == s.cfg.Attempts {
			break
		}

		s.logger.Warn("settlement attempt failed, retrying",
			slog.String("round_id", roundID),
			slog.Int("attempt", attempt),
			slog.String("error", err.Error()),
		)
		select {
		case <-ctx.Done():
			return domain.RoundResult{}, fmt.Errorf("settle round %s: %w", roundID, ctx.Err())
		case <-time.After(time.Duration(attempt) * s.cfg.Backoff):
		}
	}

	return domain.RoundResult{}, lastErr
}

// attempt performs one full settlement sequence. The pending-wager read uses
// lockedAt as a creation cutoff so a wager that slipped past the intake guard
// during the lock race is never settled in this round.
func (s *Settler) attempt(ctx context.Context, roundID string, lockedAt time.Time) (domain.RoundResult, error) {
	pending, err := s.wagers.ListPending(ctx, roundID, lockedAt)
	if err != nil {
		return domain.RoundResult{}, fmt.Errorf("settle round %s: list pending wagers: %w", roundID, err)
	}

	digit := s.selectOutcome(pending)
	result := domain.NewRoundResult(roundID, digit, s.now())
	settlement := BuildSettlement(result, pending)

	if err := s.store.Apply(ctx, settlement); err != nil {
		if errors.Is(err, domain.ErrAlreadySettled) {
			return domain.RoundResult{}, err
		}
		return domain.RoundResult{}, fmt.Errorf("settle round %s: apply: %w", roundID, err)
	}

	s.logger.Info("round settled",
		slog.String("round_id", roundID),
		slog.Int("winning_number", digit),
		slog.String("winning_color", string(result.WinningColor)),
		slog.String("winning_size", string(result.WinningSize)),
		slog.Int("wagers", len(pending)),
		slog.Int("winners", len(settlement.Credits)),
	)
	return result, nil
}

func (s *Settler) selectOutcome(pending []domain.Wager) int {
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	return SelectOutcome(pending, s.rng)
}

// BuildSettlement resolves each pending wager against the result's winning
// digit and aggregates winner payouts into one balance credit per user.
func BuildSettlement(result domain.RoundResult, pending []domain.Wager) domain.Settlement {
	settlement := domain.Settlement{Result: result}
	totals := make(map[string]decimal.Decimal)

	for _, w := range pending {
		if w.Status != domain.WagerStatusPending {
			// Already resolved by a concurrent attempt; never re-process.
			continue
		}

		ws := domain.WagerSettlement{WagerID: w.ID, Status: domain.WagerStatusLoss, Payout: decimal.Zero}
		if w.Matches(result.WinningNumber) {
			ws.Status = domain.WagerStatusWin
			ws.Payout = domain.WinPayout(w.Amount)
			totals[w.UserID] = totals[w.UserID].Add(ws.Payout)
		}
		settlement.Wagers = append(settlement.Wagers, ws)
	}

	users := make([]string, 0, len(totals))
	for userID := range totals {
		users = append(users, userID)
	}
	sort.Strings(users)
	for _, userID := range users {
		settlement.Credits = append(settlement.Credits, domain.BalanceCredit{
			UserID: userID,
			Amount: totals[userID],
		})
	}

	return settlement
}
