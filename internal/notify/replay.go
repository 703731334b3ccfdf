package notify

import (
	"context"
	"errors"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// RedisOnce marks one-shot side effects as done in Redis. The stored value is
// the time the mark was taken.
type RedisOnce struct {
	Client *redis.Client
}

// Acquire takes the mark for key. It reports false when another attempt holds
// it already. Without a client every attempt is allowed.
func (o RedisOnce) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if o.Client == nil {
		return true, nil
	}
	err := o.Client.SetArgs(ctx, key, time.Now().UTC().Format(time.RFC3339), redis.SetArgs{Mode: "NX", TTL: ttl}).Err()
	switch {
	case errors.Is(err, redis.Nil):
		return false, nil
	case err != nil:
		return false, err
	}
	return true, nil
}

// Release drops the mark so a later attempt may run the side effect.
func (o RedisOnce) Release(ctx context.Context, key string) error {
	if o.Client == nil {
		return nil
	}
	return o.Client.Del(ctx, key).Err()
}
