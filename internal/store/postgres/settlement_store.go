package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/luckypick/wingo/internal/domain"
)

// SettlementStore implements domain.SettlementStore using a single pgx
// transaction: the round result insert, every wager's terminal update, and
// every winner's balance credit commit together or not at all.
type SettlementStore struct {
	pool *pgxpool.Pool
}

// NewSettlementStore creates a new SettlementStore backed by the given pool.
func NewSettlementStore(pool *pgxpool.Pool) *SettlementStore {
	return &SettlementStore{pool: pool}
}

// Apply commits the settlement atomically. The round_results primary key is
// the idempotency guard: if a result row for the round already exists the
// insert affects zero rows and Apply rolls back and returns
// domain.ErrAlreadySettled, leaving wagers and balances untouched.
func (s *SettlementStore) Apply(ctx context.Context, settlement domain.Settlement) error {
	roundID := settlement.Result.RoundID

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return wrapErr(fmt.Sprintf("begin settlement for round %s", roundID), err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`INSERT INTO round_results (round_id, winning_number, winning_color, winning_size, ended_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (round_id) DO NOTHING`,
		roundID,
		settlement.Result.WinningNumber,
		string(settlement.Result.WinningColor),
		string(settlement.Result.WinningSize),
		settlement.Result.EndedAt,
	)
	if err != nil {
		return wrapErr(fmt.Sprintf("insert result for round %s", roundID), err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAlreadySettled
	}

	// The status guard keeps any wager resolved by a concurrent duplicate
	// attempt out of this update; terminal states never revert.
	batch := &pgx.Batch{}
	for _, ws := range settlement.Wagers {
		batch.Queue(
			`UPDATE wagers SET status = $1, payout = $2, settled_at = $3
			 WHERE id = $4 AND status = 'pending'`,
			string(ws.Status), ws.Payout.String(), settlement.Result.EndedAt, ws.WagerID,
		)
	}
	for _, credit := range settlement.Credits {
		batch.Queue(
			`UPDATE users SET balance = balance + $1 WHERE id = $2`,
			credit.Amount.String(), credit.UserID,
		)
	}
	if batch.Len() > 0 {
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return wrapErr(fmt.Sprintf("apply settlement for round %s", roundID), err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return wrapErr(fmt.Sprintf("commit settlement for round %s", roundID), err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.SettlementStore = (*SettlementStore)(nil)
