// Package sink persists activity snapshots after a successful refresh.
// The sink is write-only from the pipeline's point of view: failures are
// reported to the caller but never block delivery of a fresh record.
package sink

import (
	"context"

	"github.com/devquest-io/analytics/internal/domain/model"
)

// Sink stores the latest snapshot per user.
type Sink interface {
	// Upsert writes rec, replacing any previous snapshot for the same user.
	// Upserting the same record twice is a no-op.
	Upsert(ctx context.Context, rec model.ActivityRecord) error
}
