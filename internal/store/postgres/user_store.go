package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/luckypick/wingo/internal/domain"
)

// UserStore implements domain.UserStore using PostgreSQL. The engine never
// writes balances here; credits go through SettlementStore.Apply.
type UserStore struct {
	pool *pgxpool.Pool
}

// NewUserStore creates a new UserStore backed by the given connection pool.
func NewUserStore(pool *pgxpool.Pool) *UserStore {
	return &UserStore{pool: pool}
}

// GetBalance returns a user's current balance, or domain.ErrNotFound for an
// unknown user.
func (s *UserStore) GetBalance(ctx context.Context, userID string) (decimal.Decimal, error) {
	var balanceStr string
	err := s.pool.QueryRow(ctx,
		`SELECT balance FROM users WHERE id = $1`, userID).Scan(&balanceStr)
	if err != nil {
		return decimal.Zero, wrapErr(fmt.Sprintf("get balance for user %s", userID), err)
	}

	balance, err := decimal.NewFromString(balanceStr)
	if err != nil {
		return decimal.Zero, fmt.Errorf("postgres: parse balance %q: %w", balanceStr, err)
	}
	return balance, nil
}

// Compile-time interface check.
var _ domain.UserStore = (*UserStore)(nil)
