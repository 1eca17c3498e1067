package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/luckypick/wingo/internal/domain"
)

// ResultStore implements domain.ResultStore using PostgreSQL. Results are
// written only by SettlementStore.Apply; this store is read-only.
type ResultStore struct {
	pool *pgxpool.Pool
}

// NewResultStore creates a new ResultStore backed by the given connection pool.
func NewResultStore(pool *pgxpool.Pool) *ResultStore {
	return &ResultStore{pool: pool}
}

const resultSelectCols = `round_id, winning_number, winning_color, winning_size, ended_at`

// GetByRound retrieves the result for a round, or domain.ErrNotFound if the
// round has not settled.
func (s *ResultStore) GetByRound(ctx context.Context, roundID string) (domain.RoundResult, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+resultSelectCols+` FROM round_results WHERE round_id = $1`, roundID)

	var r domain.RoundResult
	var color, size string
	if err := row.Scan(&r.RoundID, &r.WinningNumber, &color, &size, &r.EndedAt); err != nil {
		return domain.RoundResult{}, wrapErr(fmt.Sprintf("get result for round %s", roundID), err)
	}
	r.WinningColor = domain.Color(color)
	r.WinningSize = domain.Size(size)
	return r, nil
}

// ListRecent returns settled results most-recent-first.
func (s *ResultStore) ListRecent(ctx context.Context, limit int) ([]domain.RoundResult, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx,
		`SELECT `+resultSelectCols+` FROM round_results
		 ORDER BY ended_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, wrapErr("list recent results", err)
	}
	defer rows.Close()

	var results []domain.RoundResult
	for rows.Next() {
		var r domain.RoundResult
		var color, size string
		if err := rows.Scan(&r.RoundID, &r.WinningNumber, &color, &size, &r.EndedAt); err != nil {
			return nil, wrapErr("scan recent results", err)
		}
		r.WinningColor = domain.Color(color)
		r.WinningSize = domain.Size(size)
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("scan recent results", err)
	}
	return results, nil
}

// Compile-time interface check.
var _ domain.ResultStore = (*ResultStore)(nil)
