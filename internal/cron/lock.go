package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

type lockStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
	LockKey(name string) string
}

// RedisLock serializes a named job across worker replicas. The owner token
// keeps a replica from releasing a lock it no longer holds after a long run.
type RedisLock struct {
	store lockStore
	name  string
	ttl   time.Duration
	owner string
}

// NewRedisLock builds a lock for one job name.
func NewRedisLock(store lockStore, name string, ttl time.Duration) (*RedisLock, error) {
	if store == nil {
		return nil, fmt.Errorf("lock store required")
	}
	if name == "" {
		return nil, fmt.Errorf("lock name required")
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &RedisLock{
		store: store,
		name:  name,
		ttl:   ttl,
		owner: uuid.NewString(),
	}, nil
}

// Acquire returns true when this replica won the lock.
func (l *RedisLock) Acquire(ctx context.Context) (bool, error) {
	return l.store.SetNX(ctx, l.store.LockKey(l.name), l.owner, l.ttl)
}

// Release drops the lock only if this replica still owns it.
func (l *RedisLock) Release(ctx context.Context) error {
	key := l.store.LockKey(l.name)
	current, err := l.store.Get(ctx, key)
	if err != nil {
		// An expired lock has nothing left to release.
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return err
	}
	if current != l.owner {
		return nil
	}
	return l.store.Del(ctx, key)
}
