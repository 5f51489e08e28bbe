package cache

import (
	"context"
	"sync"
	"time"

	"github.com/coder/quartz"

	"github.com/devquest-io/analytics/internal/domain/model"
)

type entry struct {
	rec       model.ActivityRecord
	expiresAt time.Time
}

func (e entry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

// inMemoryCache is a map-backed Cache with lazy expiry: stale entries are
// dropped on read rather than by a background reaper.
type inMemoryCache struct {
	mu      sync.RWMutex
	entries map[model.UserKey]entry
	clock   quartz.Clock
}

// NewInMemoryCache creates an in-process Cache with configuration options.
func NewInMemoryCache(opts ...Option) Cache {
	c := &inMemoryCache{
		entries: make(map[model.UserKey]entry),
		clock:   quartz.NewReal(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

func (c *inMemoryCache) Get(_ context.Context, key model.UserKey) (model.ActivityRecord, bool, error) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		return model.ActivityRecord{}, false, nil
	}

	if e.expired(c.clock.Now()) {
		c.mu.Lock()
		// Another writer may have refreshed the entry since the read lock
		// was dropped; only evict the copy we judged stale.
		if cur, ok := c.entries[key]; ok && cur.expiresAt.Equal(e.expiresAt) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return model.ActivityRecord{}, false, nil
	}

	return e.rec, true, nil
}

func (c *inMemoryCache) Put(_ context.Context, key model.UserKey, rec model.ActivityRecord, ttl time.Duration) error {
	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = c.clock.Now().Add(ttl)
	}

	c.mu.Lock()
	c.entries[key] = entry{rec: rec, expiresAt: expiresAt}
	c.mu.Unlock()

	return nil
}

func (c *inMemoryCache) Invalidate(_ context.Context, key model.UserKey) error {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()

	return nil
}
