package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/marketplace-cart/pkg/config"
	pkgerrors "github.com/angelmondragon/marketplace-cart/pkg/errors"
)

const cartLockKeyPrefix = "cart_lock"

// Locker serializes mutations of a single cart. Two concurrent item writes
// against the same cart must not interleave their stock checks.
type Locker interface {
	WithLock(ctx context.Context, cartID uuid.UUID, fn func(ctx context.Context) error) error
}

// redisStore defines the operations used by RedisLocker.
type redisStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
}

// RedisLocker implements Locker using Redis SETNX + TTL, retrying until the
// configured wait budget is spent.
type RedisLocker struct {
	client redisStore
	ttl    time.Duration
	wait   time.Duration
	retry  time.Duration
}

// NewRedisLocker constructs a Redis-backed cart locker.
func NewRedisLocker(client redisStore, cfg config.CartConfig) (*RedisLocker, error) {
	if client == nil {
		return nil, errors.New("redis client required for cart locker")
	}
	ttl := cfg.LockTTL
	if ttl <= 0 {
		ttl = 5 * time.Second
	}
	wait := cfg.LockWait
	if wait <= 0 {
		wait = 2 * time.Second
	}
	retry := cfg.LockRetryInterval
	if retry <= 0 {
		retry = 50 * time.Millisecond
	}
	return &RedisLocker{client: client, ttl: ttl, wait: wait, retry: retry}, nil
}

// WithLock runs fn while holding the cart's mutex. When the lock cannot be
// acquired within the wait budget the operation fails with a conflict the
// caller may retry.
func (l *RedisLocker) WithLock(ctx context.Context, cartID uuid.UUID, fn func(ctx context.Context) error) error {
	key := fmt.Sprintf("%s:%s", cartLockKeyPrefix, cartID)
	owner := uuid.NewString()

	acquired, err := l.acquire(ctx, key, owner)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "acquire cart lock")
	}
	if !acquired {
		return pkgerrors.New(pkgerrors.CodeConflict, "cart is being modified by another request")
	}
	defer l.release(context.WithoutCancel(ctx), key, owner)

	return fn(ctx)
}

func (l *RedisLocker) acquire(ctx context.Context, key, owner string) (bool, error) {
	deadline := time.Now().Add(l.wait)
	for {
		ok, err := l.client.SetNX(ctx, key, owner, l.ttl)
		if err != nil {
			return false, fmt.Errorf("setnx: %w", err)
		}
		if ok {
			return true, nil
		}
		if time.Now().After(deadline) {
			return false, nil
		}
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-time.After(l.retry):
		}
	}
}

// release frees the lock only if the owner value still matches.
func (l *RedisLocker) release(ctx context.Context, key, owner string) {
	value, err := l.client.Get(ctx, key)
	if err != nil {
		return
	}
	if value != owner {
		return
	}
	_ = l.client.Del(ctx, key)
}
