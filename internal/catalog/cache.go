package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Cache wraps Redis helpers for JSON payloads.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache constructs a cache helper.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

// GetJSON unmarshals a cached JSON payload into dst. It reports whether the key existed.
func (c *Cache) GetJSON(ctx context.Context, key string, dst any) (bool, error) {
	if c == nil || c.client == nil || key == "" {
		return false, nil
	}
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, err
	}
	return true, nil
}

// SetJSON serialises v as JSON and stores it with the configured TTL.
func (c *Cache) SetJSON(ctx context.Context, key string, v any) error {
	if c == nil || c.client == nil || key == "" || c.ttl <= 0 {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, data, c.ttl).Err()
}

// Delete drops the given keys.
func (c *Cache) Delete(ctx context.Context, keys ...string) error {
	if c == nil || c.client == nil || len(keys) == 0 {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}

// ItemKey is the cache key for an available item lookup.
func ItemKey(sku string) string {
	return "catalog:item:" + sku
}

// CachedStore is a read-through cache in front of another Store. Only hits are
// cached; a miss always reaches the underlying store. Cache failures degrade to
// the underlying store. Writers that change stock or availability call
// Invalidate so the next lookup reads through.
type CachedStore struct {
	Next   Store
	Cache  *Cache
	Logger zerolog.Logger
}

// FindAvailableItem implements Store.
func (s CachedStore) FindAvailableItem(ctx context.Context, sku string) (Item, bool, error) {
	var item Item
	key := ItemKey(sku)
	hit, err := s.Cache.GetJSON(ctx, key, &item)
	if err != nil {
		s.Logger.Warn().Err(err).Str("sku", sku).Msg("catalog cache read failed")
	}
	if hit && item.Available() {
		return item, true, nil
	}
	item, ok, err := s.Next.FindAvailableItem(ctx, sku)
	if err != nil || !ok {
		return item, ok, err
	}
	if err := s.Cache.SetJSON(ctx, key, item); err != nil {
		s.Logger.Warn().Err(err).Str("sku", sku).Msg("catalog cache write failed")
	}
	return item, true, nil
}

// Invalidate drops the cached lookups for skus.
func (s CachedStore) Invalidate(ctx context.Context, skus ...string) error {
	keys := make([]string, 0, len(skus))
	for _, sku := range skus {
		keys = append(keys, ItemKey(sku))
	}
	return s.Cache.Delete(ctx, keys...)
}
