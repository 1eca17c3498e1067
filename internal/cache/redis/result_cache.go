package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/luckypick/wingo/internal/domain"
)

// recentMaxLen caps the cached recent-results list.
const recentMaxLen = 100

// ResultCache implements domain.ResultCache using a plain key for the latest
// result and a capped list for recent history.
//
// Key schema:
//
//	result:last   - JSON of the latest RoundResult
//	result:recent - list of JSON results, newest first, trimmed to 100
type ResultCache struct {
	rdb *redis.Client
}

// NewResultCache creates a ResultCache backed by the given Client.
func NewResultCache(c *Client) *ResultCache {
	return &ResultCache{rdb: c.Underlying()}
}

const (
	lastResultKey    = "result:last"
	recentResultsKey = "result:recent"
)

// SetLast stores the result as the latest and prepends it to the recent list,
// trimming the list to its cap. Both writes go through one pipeline.
func (rc *ResultCache) SetLast(ctx context.Context, r domain.RoundResult) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("redis: marshal result %s: %w", r.RoundID, err)
	}

	pipe := rc.rdb.TxPipeline()
	pipe.Set(ctx, lastResultKey, data, 0)
	pipe.LPush(ctx, recentResultsKey, data)
	pipe.LTrim(ctx, recentResultsKey, 0, recentMaxLen-1)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: set result %s: %w", r.RoundID, err)
	}
	return nil
}

// GetLast retrieves the latest cached result. It returns domain.ErrNotFound
// when no result has been cached yet.
func (rc *ResultCache) GetLast(ctx context.Context) (domain.RoundResult, error) {
	data, err := rc.rdb.Get(ctx, lastResultKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.RoundResult{}, domain.ErrNotFound
		}
		return domain.RoundResult{}, fmt.Errorf("redis: get last result: %w", err)
	}

	var r domain.RoundResult
	if err := json.Unmarshal(data, &r); err != nil {
		return domain.RoundResult{}, fmt.Errorf("redis: unmarshal last result: %w", err)
	}
	return r, nil
}

// ListRecent returns up to limit cached results, newest first.
func (rc *ResultCache) ListRecent(ctx context.Context, limit int) ([]domain.RoundResult, error) {
	if limit <= 0 || limit > recentMaxLen {
		limit = recentMaxLen
	}

	items, err := rc.rdb.LRange(ctx, recentResultsKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: list recent results: %w", err)
	}

	results := make([]domain.RoundResult, 0, len(items))
	for _, item := range items {
		var r domain.RoundResult
		if err := json.Unmarshal([]byte(item), &r); err != nil {
			return nil, fmt.Errorf("redis: unmarshal recent result: %w", err)
		}
		results = append(results, r)
	}
	return results, nil
}

// Compile-time interface check.
var _ domain.ResultCache = (*ResultCache)(nil)
