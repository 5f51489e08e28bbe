package dispatch

import (
	"time"

	"github.com/devquest-io/analytics/internal/domain/flight"
	"github.com/devquest-io/analytics/pkg/logger"
)

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithTTL sets the lifetime applied to cached snapshots.
func WithTTL(ttl time.Duration) Option {
	return func(d *Dispatcher) {
		d.ttl = ttl
	}
}

// WithFlightGroup replaces the coalescing group, mainly for tests.
func WithFlightGroup(group flight.Group) Option {
	return func(d *Dispatcher) {
		d.flight = group
	}
}

// WithLogger sets the logger.
func WithLogger(log logger.Logger) Option {
	return func(d *Dispatcher) {
		d.logger = log
	}
}
