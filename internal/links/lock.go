package links

import (
	"context"

	infraredis "github.com/jonesrussell/north-cloud/affiliate-engine/infrastructure/redis"
)

// Lock is a held cross-instance lock.
type Lock interface {
	Release(ctx context.Context) error
}

// Locker serializes generation for one pair across instances. acquired is
// false when another instance holds the key.
type Locker interface {
	TryAcquire(ctx context.Context, key string) (lock Lock, acquired bool, err error)
}

// RedisLocker adapts the Redis locker.
type RedisLocker struct {
	locker *infraredis.Locker
}

// NewRedisLocker wraps l.
func NewRedisLocker(l *infraredis.Locker) *RedisLocker {
	return &RedisLocker{locker: l}
}

// TryAcquire implements Locker.
func (r *RedisLocker) TryAcquire(ctx context.Context, key string) (Lock, bool, error) {
	lk, ok, err := r.locker.TryAcquire(ctx, key)
	if err != nil || !ok {
		return nil, ok, err
	}
	return lk, true, nil
}
