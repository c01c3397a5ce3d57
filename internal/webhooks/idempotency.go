package webhooks

import (
	"context"
	"fmt"
	"time"

	pkgredis "github.com/ollyhq/olly-backend/pkg/redis"
)

// IdempotencyGuard fences webhook deliveries so a retried payload is
// acknowledged without re-running its side effects. The mark is released on
// handler failure so the vendor's retry gets another chance.
type IdempotencyGuard struct {
	store pkgredis.IdempotencyStore
	ttl   time.Duration
}

// NewIdempotencyGuard builds a guard over the shared Redis client.
func NewIdempotencyGuard(store pkgredis.IdempotencyStore, ttl time.Duration) (*IdempotencyGuard, error) {
	if store == nil {
		return nil, fmt.Errorf("idempotency store required")
	}
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	return &IdempotencyGuard{store: store, ttl: ttl}, nil
}

// CheckAndMark returns true when this delivery is the first of its kind.
// A false return means the event was already processed.
func (g *IdempotencyGuard) CheckAndMark(ctx context.Context, scope, eventID string) (bool, error) {
	if eventID == "" {
		// Events without an id cannot be fenced; treat them as fresh.
		return true, nil
	}
	key := g.store.IdempotencyKey(scope, eventID)
	return g.store.SetNX(ctx, key, time.Now().UTC().Format(time.RFC3339), g.ttl)
}

// Release drops the mark after a failed handler run.
func (g *IdempotencyGuard) Release(ctx context.Context, scope, eventID string) error {
	if eventID == "" {
		return nil
	}
	return g.store.Del(ctx, g.store.IdempotencyKey(scope, eventID))
}
