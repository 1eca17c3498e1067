package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/luckypick/wingo/internal/domain"
)

// WagerStore implements domain.WagerStore using PostgreSQL.
type WagerStore struct {
	pool *pgxpool.Pool
}

// NewWagerStore creates a new WagerStore backed by the given connection pool.
func NewWagerStore(pool *pgxpool.Pool) *WagerStore {
	return &WagerStore{pool: pool}
}

// Create inserts a new pending wager.
func (s *WagerStore) Create(ctx context.Context, w domain.Wager) error {
	const query = `
		INSERT INTO wagers (
			id, user_id, round_id, amount, kind, target,
			status, payout, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := s.pool.Exec(ctx, query,
		w.ID, w.UserID, w.RoundID,
		w.Amount.String(), string(w.Kind), w.Target,
		string(w.Status), w.Payout.String(), w.CreatedAt,
	)
	if err != nil {
		return wrapErr(fmt.Sprintf("create wager %s", w.ID), err)
	}
	return nil
}

const wagerSelectCols = `id, user_id, round_id, amount, kind, target,
	status, payout, created_at, settled_at`

func scanWagerFromRow(
	scanner interface{ Scan(dest ...any) error },
) (domain.Wager, error) {
	var w domain.Wager
	var kind, status, amountStr, payoutStr string

	err := scanner.Scan(
		&w.ID, &w.UserID, &w.RoundID,
		&amountStr, &kind, &w.Target,
		&status, &payoutStr, &w.CreatedAt, &w.SettledAt,
	)
	if err != nil {
		return domain.Wager{}, err
	}

	w.Kind = domain.BetKind(kind)
	w.Status = domain.WagerStatus(status)

	if w.Amount, err = decimal.NewFromString(amountStr); err != nil {
		return domain.Wager{}, fmt.Errorf("parse amount %q: %w", amountStr, err)
	}
	if w.Payout, err = decimal.NewFromString(payoutStr); err != nil {
		return domain.Wager{}, fmt.Errorf("parse payout %q: %w", payoutStr, err)
	}

	return w, nil
}

func scanWagerRows(rows pgx.Rows) ([]domain.Wager, error) {
	var wagers []domain.Wager
	for rows.Next() {
		w, err := scanWagerFromRow(rows)
		if err != nil {
			return nil, err
		}
		wagers = append(wagers, w)
	}
	return wagers, rows.Err()
}

// GetByID retrieves a single wager by ID.
func (s *WagerStore) GetByID(ctx context.Context, id string) (domain.Wager, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+wagerSelectCols+` FROM wagers WHERE id = $1`, id)

	w, err := scanWagerFromRow(row)
	if err != nil {
		return domain.Wager{}, wrapErr(fmt.Sprintf("get wager %s", id), err)
	}
	return w, nil
}

// ListPending returns the wagers still pending for the round that were
// created strictly before the cutoff. Ordering is by creation time ascending;
// settlement outcomes do not depend on it.
func (s *WagerStore) ListPending(ctx context.Context, roundID string, before time.Time) ([]domain.Wager, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+wagerSelectCols+` FROM wagers
		 WHERE round_id = $1 AND status = 'pending' AND created_at < $2
		 ORDER BY created_at`, roundID, before)
	if err != nil {
		return nil, wrapErr("list pending wagers", err)
	}
	defer rows.Close()

	wagers, err := scanWagerRows(rows)
	if err != nil {
		return nil, wrapErr("scan pending wagers", err)
	}
	return wagers, nil
}

// ListByUser returns a user's wagers most-recent-first with pagination.
func (s *WagerStore) ListByUser(ctx context.Context, userID string, opts domain.ListOpts) ([]domain.Wager, error) {
	query := `SELECT ` + wagerSelectCols + ` FROM wagers
		WHERE user_id = $1 ORDER BY created_at DESC`
	args := []any{userID}

	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", len(args)+1)
		args = append(args, opts.Limit)
	}
	if opts.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", len(args)+1)
		args = append(args, opts.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, wrapErr("list wagers by user", err)
	}
	defer rows.Close()

	wagers, err := scanWagerRows(rows)
	if err != nil {
		return nil, wrapErr("scan wagers by user", err)
	}
	return wagers, nil
}

// Compile-time interface check.
var _ domain.WagerStore = (*WagerStore)(nil)
