// Package cache provides the snapshot cache sitting in front of the
// upstream client. Entries expire logically: an expired entry reads as
// absent regardless of when the backend physically evicts it.
package cache

import (
	"context"
	"time"

	"github.com/devquest-io/analytics/internal/domain/model"
)

// Cache stores activity snapshots keyed by user.
type Cache interface {
	// Get returns the cached record for key. The boolean reports whether a
	// live entry was found; expired entries read as absent.
	Get(ctx context.Context, key model.UserKey) (model.ActivityRecord, bool, error)

	// Put stores rec under key with the given time to live.
	Put(ctx context.Context, key model.UserKey, rec model.ActivityRecord, ttl time.Duration) error

	// Invalidate removes the entry for key. Removing an absent entry is
	// not an error.
	Invalidate(ctx context.Context, key model.UserKey) error
}
