package postgres

import (
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/luckypick/wingo/internal/domain"
)

// wrapErr maps driver errors onto the domain error taxonomy: missing rows
// become ErrNotFound, permission denials become terminal ErrPermissionDenied,
// and connection-level or serialization failures are marked transient so the
// settlement loop retries them.
func wrapErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == "42501":
			return fmt.Errorf("postgres: %s: %s: %w", op, pgErr.Message, domain.ErrPermissionDenied)
		case strings.HasPrefix(pgErr.Code, "08"), // connection exceptions
			pgErr.Code == "40001", // serialization failure
			pgErr.Code == "40P01", // deadlock detected
			pgErr.Code == "57P01": // admin shutdown
			return domain.Transient(fmt.Errorf("postgres: %s: %w", op, err))
		}
		return fmt.Errorf("postgres: %s: %w", op, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) || pgconn.SafeToRetry(err) {
		return domain.Transient(fmt.Errorf("postgres: %s: %w", op, err))
	}

	return fmt.Errorf("postgres: %s: %w", op, err)
}
