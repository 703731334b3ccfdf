package lock

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrHeld is returned by TryWithLock when another holder owns the key.
var ErrHeld = errors.New("lock: held by another owner")

// Locker provides a Redis-backed distributed lock. Keys are namespaced with
// Prefix so order locks never collide with cache or idempotency keys.
type Locker struct {
	R      *redis.Client
	Prefix string
}

const releaseScript = `if redis.call("get", KEYS[1]) == ARGV[1] then
  return redis.call("del", KEYS[1])
else
  return 0
end`

func (l Locker) key(name string) string {
	prefix := l.Prefix
	if prefix == "" {
		prefix = "lock:"
	}
	return prefix + name
}

func (l Locker) check(fn func(context.Context) error) error {
	if l.R == nil {
		return errors.New("lock: redis client not configured")
	}
	if fn == nil {
		return errors.New("lock: callback not provided")
	}
	return nil
}

// TryWithLock runs fn only when the lock for name is free, returning ErrHeld
// otherwise.
func (l Locker) TryWithLock(ctx context.Context, name string, ttl time.Duration, fn func(context.Context) error) error {
	if err := l.check(fn); err != nil {
		return err
	}
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	key := l.key(name)
	token := uuid.NewString()
	ok, err := l.R.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return err
	}
	if !ok {
		return ErrHeld
	}
	defer l.release(context.WithoutCancel(ctx), key, token)
	return fn(ctx)
}

func (l Locker) release(ctx context.Context, key, token string) {
	if err := l.R.Eval(ctx, releaseScript, []string{key}, token).Err(); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "unknown command") {
			_ = l.R.Del(ctx, key).Err()
		}
	}
}
