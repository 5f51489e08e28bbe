package sched

import (
	"time"

	"github.com/coder/quartz"

	"github.com/devquest-io/analytics/pkg/logger"
)

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithInterval sets the time between sweeps.
func WithInterval(interval time.Duration) Option {
	return func(s *Scheduler) {
		s.interval = interval
	}
}

// WithClock sets the clock driving the sweep ticker.
func WithClock(clock quartz.Clock) Option {
	return func(s *Scheduler) {
		s.clock = clock
	}
}

// WithLogger sets the logger.
func WithLogger(log logger.Logger) Option {
	return func(s *Scheduler) {
		s.logger = log
	}
}
