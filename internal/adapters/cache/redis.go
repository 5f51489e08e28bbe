package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/devquest-io/analytics/internal/domain/model"
)

const redisKeyPrefix = "user:stats:"

// redisCache stores snapshots as JSON values with a server-side TTL. Redis
// evicts expired keys itself, so reads never see a stale entry.
type redisCache struct {
	client redis.UniversalClient
}

// NewRedisCache creates a Cache backed by the given Redis client.
func NewRedisCache(client redis.UniversalClient) Cache {
	return &redisCache{client: client}
}

func redisKey(key model.UserKey) string {
	return redisKeyPrefix + key.String()
}

func (c *redisCache) Get(ctx context.Context, key model.UserKey) (model.ActivityRecord, bool, error) {
	raw, err := c.client.Get(ctx, redisKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return model.ActivityRecord{}, false, nil
	}
	if err != nil {
		return model.ActivityRecord{}, false, fmt.Errorf("%w: get %q: %w", ErrUnavailable, key, err)
	}

	var rec model.ActivityRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return model.ActivityRecord{}, false, fmt.Errorf("%w: decode %q: %w", ErrEncoding, key, err)
	}

	return rec, true, nil
}

func (c *redisCache) Put(ctx context.Context, key model.UserKey, rec model.ActivityRecord, ttl time.Duration) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("%w: encode %q: %w", ErrEncoding, key, err)
	}

	if err := c.client.Set(ctx, redisKey(key), raw, ttl).Err(); err != nil {
		return fmt.Errorf("%w: set %q: %w", ErrUnavailable, key, err)
	}

	return nil
}

func (c *redisCache) Invalidate(ctx context.Context, key model.UserKey) error {
	if err := c.client.Del(ctx, redisKey(key)).Err(); err != nil {
		return fmt.Errorf("%w: del %q: %w", ErrUnavailable, key, err)
	}

	return nil
}
