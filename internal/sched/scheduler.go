// Package sched drives periodic refresh sweeps over the tracked user set.
//
// The scheduler is deliberately thin: it decides when to refresh, the
// dispatcher decides how. One failing user never blocks the rest of a
// sweep, and overlapping demand for the same user collapses inside the
// dispatcher rather than here.
package sched

import (
	"context"
	"sync"
	"time"

	"github.com/coder/quartz"

	"github.com/devquest-io/analytics/internal/domain/model"
	"github.com/devquest-io/analytics/pkg/logger"
	"github.com/devquest-io/analytics/pkg/metrics"
)

const defaultInterval = 24 * time.Hour

// Refresher dispatches a refresh for one user.
type Refresher interface {
	RequestRefresh(ctx context.Context, key model.UserKey, reason model.RefreshReason) (model.ActivityRecord, error)
}

// Scheduler sweeps the tracked users on a fixed interval.
type Scheduler struct {
	refresher Refresher
	keys      []model.UserKey
	interval  time.Duration
	clock     quartz.Clock

	logger logger.Logger

	startOnce sync.Once
	stopOnce  sync.Once
	shutdown  chan struct{}
	done      chan struct{}
}

// New creates a Scheduler over keys with configuration options.
func New(refresher Refresher, keys []model.UserKey, opts ...Option) *Scheduler {
	s := &Scheduler{
		refresher: refresher,
		keys:      keys,
		interval:  defaultInterval,
		clock:     quartz.NewReal(),
		logger:    logger.Get().Named("sched"),
		shutdown:  make(chan struct{}),
		done:      make(chan struct{}),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start launches the sweep loop. The first sweep runs immediately;
// subsequent sweeps fire every interval until ctx is done or Stop is
// called.
func (s *Scheduler) Start(ctx context.Context) {
	s.startOnce.Do(func() {
		metrics.UpdateTrackedUsers(len(s.keys))
		go s.run(ctx)
	})
}

// Stop terminates the sweep loop and waits for it to exit. Refreshes
// already dispatched run to completion in the dispatcher.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		close(s.shutdown)
	})
	<-s.done
}

func (s *Scheduler) run(ctx context.Context) {
	defer close(s.done)

	s.sweep(ctx)

	ticker := s.clock.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.shutdown:
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

// sweep refreshes every tracked user concurrently and waits for the slowest
// one. Failures are logged per user and never abort the sweep.
func (s *Scheduler) sweep(ctx context.Context) {
	if len(s.keys) == 0 {
		return
	}

	s.logger.Info(ctx, "starting sweep", logger.Int("users", len(s.keys)))
	start := time.Now()

	var wg sync.WaitGroup
	for _, key := range s.keys {
		wg.Add(1)
		go func(key model.UserKey) {
			defer wg.Done()
			if _, err := s.refresher.RequestRefresh(ctx, key, model.ReasonScheduled); err != nil {
				s.logger.Warn(ctx, "scheduled refresh failed",
					logger.String("user", key.String()),
					logger.Error(err),
				)
			}
		}(key)
	}
	wg.Wait()

	elapsed := time.Since(start)
	metrics.RecordSweepDuration(float64(elapsed.Milliseconds()))
	s.logger.Info(ctx, "sweep complete",
		logger.Int("users", len(s.keys)),
		logger.Duration("elapsed", elapsed),
	)
}
