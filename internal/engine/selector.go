// Package engine implements the round settlement engine: the round clock,
// the minimum-payout outcome selector, the wager intake guard, the settlement
// orchestration, and the coordinator that wires them together.
package engine

import (
	"math/rand"

	"github.com/shopspring/decimal"

	"github.com/luckypick/wingo/internal/domain"
)

// SelectOutcome picks the winning digit for a round: the digit whose
// aggregate payout over the given pending wagers is minimal. Ties at the
// minimum (including the all-zero case when no wagers are pending) are broken
// uniformly at random using rng, so the outcome stays unpredictable while the
// function remains deterministic for a seeded source.
func SelectOutcome(wagers []domain.Wager, rng *rand.Rand) int {
	payouts := DigitPayouts(wagers)

	min := payouts[0]
	for _, p := range payouts[1:] {
		if p.LessThan(min) {
			min = p
		}
	}

	ties := make([]int, 0, domain.DigitCount)
	for d, p := range payouts {
		if p.Equal(min) {
			ties = append(ties, d)
		}
	}

	return ties[rng.Intn(len(ties))]
}

// DigitPayouts returns the house's total payout for each candidate digit:
// the sum of 2x amount over every wager that would win if that digit were
// the outcome.
func DigitPayouts(wagers []domain.Wager) [domain.DigitCount]decimal.Decimal {
	var payouts [domain.DigitCount]decimal.Decimal
	for d := range payouts {
		payouts[d] = decimal.Zero
	}
	for _, w := range wagers {
		for d := 0; d < domain.DigitCount; d++ {
			if w.Matches(d) {
				payouts[d] = payouts[d].Add(domain.WinPayout(w.Amount))
			}
		}
	}
	return payouts
}
