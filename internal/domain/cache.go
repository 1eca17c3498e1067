package domain

import (
	"context"
	"time"
)

// ResultCache is a display-side cache of settled results. It is best-effort:
// callers fall back to the ResultStore on ErrNotFound or cache failure.
type ResultCache interface {
	// SetLast stores the most recent result and prepends it to the recent
	// list.
	SetLast(ctx context.Context, r RoundResult) error
	GetLast(ctx context.Context) (RoundResult, error)
	ListRecent(ctx context.Context, limit int) ([]RoundResult, error)
}

// EventBus is a fan-out channel for round lifecycle events consumed by the
// presentation layer (WebSocket hub, dashboards).
type EventBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	// Subscribe returns a channel of payloads published to the given channel.
	// The returned channel is closed when ctx is cancelled.
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
}

// RateLimiter limits request rates per key over a sliding window.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}
