package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// DefaultLockTTL bounds how long a crashed holder can block a key.
const DefaultLockTTL = 30 * time.Second

// ErrLockNotHeld is returned by Release when the token no longer owns the key.
var ErrLockNotHeld = errors.New("lock not held")

// releaseScript deletes the key only when it still carries our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Locker hands out per-key locks across processes sharing one Redis.
type Locker struct {
	client redis.Cmdable
	prefix string
	ttl    time.Duration
}

// NewLocker creates a Locker. Keys are stored as prefix+key.
func NewLocker(client redis.Cmdable, prefix string, ttl time.Duration) *Locker {
	if ttl <= 0 {
		ttl = DefaultLockTTL
	}
	return &Locker{client: client, prefix: prefix, ttl: ttl}
}

// Lock is a held key.
type Lock struct {
	locker *Locker
	key    string
	token  string
}

// TryAcquire takes the lock without waiting. ok is false when another holder has it.
func (l *Locker) TryAcquire(ctx context.Context, key string) (*Lock, bool, error) {
	token := uuid.NewString()
	fullKey := l.prefix + key

	ok, err := l.client.SetNX(ctx, fullKey, token, l.ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("acquire lock %s: %w", fullKey, err)
	}
	if !ok {
		return nil, false, nil
	}
	return &Lock{locker: l, key: fullKey, token: token}, true, nil
}

// Release frees the lock if this holder still owns it.
func (lk *Lock) Release(ctx context.Context) error {
	n, err := releaseScript.Run(ctx, lk.locker.client, []string{lk.key}, lk.token).Int()
	if err != nil {
		return fmt.Errorf("release lock %s: %w", lk.key, err)
	}
	if n == 0 {
		return ErrLockNotHeld
	}
	return nil
}
