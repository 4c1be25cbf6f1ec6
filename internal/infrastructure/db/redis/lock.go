package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const defaultLockTTL = 5 * time.Minute

// ErrLockHeld is returned by Acquire when another holder owns the lock.
var ErrLockHeld = errors.New("lock held by another process")

// releaseLua deletes the key only if it still carries the caller's token, so a
// holder whose TTL lapsed cannot release somebody else's lock.
var releaseLua = redis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
  return redis.call('DEL', KEYS[1])
end
return 0
`)

// Lock is a single-holder lock across processes.
// Key format: lock:<name>
type Lock struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

// NewLock returns a lock named name that expires after ttl if its holder
// dies. If ttl <= 0, defaultLockTTL is used.
func NewLock(client *redis.Client, name string, ttl time.Duration) *Lock {
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &Lock{client: client, key: "lock:" + name, ttl: ttl}
}

// Acquire takes the lock or fails with ErrLockHeld. The returned function
// releases it.
func (l *Lock) Acquire(ctx context.Context) (func(context.Context) error, error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, l.key, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire %s: %w", l.key, err)
	}
	if !ok {
		return nil, ErrLockHeld
	}
	return func(ctx context.Context) error {
		if err := releaseLua.Run(ctx, l.client, []string{l.key}, token).Err(); err != nil {
			return fmt.Errorf("release %s: %w", l.key, err)
		}
		return nil
	}, nil
}
