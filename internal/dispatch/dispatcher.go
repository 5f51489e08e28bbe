// Package dispatch coordinates refresh requests for user snapshots.
//
// All paths that want fresh data for a user funnel through the dispatcher:
// scheduled sweeps and on-demand requests alike. Concurrent requests for
// the same user coalesce onto a single upstream fetch, the cache is
// consulted first, and successful results fan out to the cache and the
// persistence sink.
package dispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/devquest-io/analytics/internal/adapters/cache"
	"github.com/devquest-io/analytics/internal/adapters/leetcode"
	"github.com/devquest-io/analytics/internal/adapters/sink"
	"github.com/devquest-io/analytics/internal/domain/flight"
	"github.com/devquest-io/analytics/internal/domain/model"
	"github.com/devquest-io/analytics/pkg/logger"
	"github.com/devquest-io/analytics/pkg/metrics"
)

const defaultTTL = time.Hour

// Fetcher retrieves a fresh snapshot from the upstream source.
type Fetcher interface {
	Fetch(ctx context.Context, key model.UserKey) (model.ActivityRecord, error)
}

// Dispatcher owns the refresh path for user snapshots.
type Dispatcher struct {
	fetcher Fetcher
	cache   cache.Cache
	sink    sink.Sink
	flight  flight.Group
	ttl     time.Duration

	logger logger.Logger
}

// NewDispatcher creates a Dispatcher with configuration options.
func NewDispatcher(fetcher Fetcher, store cache.Cache, persist sink.Sink, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		fetcher: fetcher,
		cache:   store,
		sink:    persist,
		flight:  flight.NewInMemoryGroup(flight.WithSizeGauge(metrics.UpdateInFlight)),
		ttl:     defaultTTL,
		logger:  logger.Get().Named("dispatch"),
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// RequestRefresh returns the current snapshot for key, fetching from
// upstream when the cache has no live entry. Concurrent requests for the
// same key share one fetch; every caller receives the same result.
//
// Waiters may abandon the wait through ctx without disturbing the refresh:
// the fetch itself runs on a context detached from any single requester.
func (d *Dispatcher) RequestRefresh(ctx context.Context, key model.UserKey, reason model.RefreshReason) (model.ActivityRecord, error) {
	if !key.Valid() {
		return model.ActivityRecord{}, ErrEmptyKey
	}

	// The owner's work must outlive the requester that started it, so the
	// refresh closure captures a detached copy of the caller's context.
	ownerCtx := context.WithoutCancel(ctx)
	task := model.NewRefreshTask(key, reason, time.Now().UTC())

	rec, owner, err := d.flight.Do(ctx, key, func() (model.ActivityRecord, error) {
		return d.refresh(ownerCtx, task)
	})
	if !owner && err == nil {
		metrics.RecordCoalescedWaiter()
	}

	return rec, err
}

// refresh is the owner path: consult the cache, fetch on a miss, then fan
// the fresh record out to the cache and the sink.
func (d *Dispatcher) refresh(ctx context.Context, task model.RefreshTask) (model.ActivityRecord, error) {
	if rec, ok := d.lookup(ctx, task.Key); ok {
		metrics.RecordCacheHit()
		metrics.RecordRefresh(string(task.Reason), metrics.OutcomeCacheHit)
		return rec, nil
	}
	metrics.RecordCacheMiss()

	d.logger.Debug(ctx, "refreshing from upstream",
		logger.String("task", task.ID),
		logger.String("user", task.Key.String()),
		logger.String("reason", string(task.Reason)),
	)

	start := time.Now()
	rec, err := d.fetcher.Fetch(ctx, task.Key)
	metrics.RecordRefreshLatency(float64(time.Since(start).Milliseconds()))
	if err != nil {
		outcome := metrics.OutcomeTransient
		if leetcode.IsPermanent(err) {
			outcome = metrics.OutcomePermanent
		}
		metrics.RecordRefresh(string(task.Reason), outcome)
		return model.ActivityRecord{}, fmt.Errorf("refresh %q: %w", task.Key, err)
	}

	if err := d.cache.Put(ctx, task.Key, rec, d.ttl); err != nil {
		// A write failure only costs the next request a cache miss.
		metrics.RecordCacheError()
		d.logger.Warn(ctx, "cache write failed",
			logger.String("task", task.ID),
			logger.String("user", task.Key.String()),
			logger.Error(err),
		)
	}

	if err := d.sink.Upsert(ctx, rec); err != nil {
		// The fresh record is still delivered to all waiting callers.
		metrics.RecordSinkError()
		d.logger.Error(ctx, "sink upsert failed",
			logger.String("task", task.ID),
			logger.String("user", task.Key.String()),
			logger.Error(err),
		)
	} else {
		metrics.RecordSinkUpsert()
	}

	metrics.RecordRefresh(string(task.Reason), metrics.OutcomeSuccess)
	return rec, nil
}

// lookup reads the cache, degrading any backend failure to a miss.
func (d *Dispatcher) lookup(ctx context.Context, key model.UserKey) (model.ActivityRecord, bool) {
	rec, ok, err := d.cache.Get(ctx, key)
	if err != nil {
		metrics.RecordCacheError()
		d.logger.Warn(ctx, "cache read failed; treating as miss",
			logger.String("user", key.String()),
			logger.Error(err),
		)
		return model.ActivityRecord{}, false
	}
	return rec, ok
}

// Invalidate drops the cached snapshot for key. The next refresh for the
// user goes to the upstream source.
func (d *Dispatcher) Invalidate(ctx context.Context, key model.UserKey) error {
	if !key.Valid() {
		return ErrEmptyKey
	}

	if err := d.cache.Invalidate(ctx, key); err != nil {
		return fmt.Errorf("invalidate %q: %w", key, err)
	}
	metrics.RecordCacheInvalidation()

	return nil
}

// InFlight reports the number of refreshes currently executing.
func (d *Dispatcher) InFlight() int {
	return d.flight.Size()
}
