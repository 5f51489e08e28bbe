package cache

import "github.com/coder/quartz"

// Option configures the in-memory cache backend.
type Option func(*inMemoryCache)

// WithClock sets the clock used for expiry decisions.
func WithClock(clock quartz.Clock) Option {
	return func(c *inMemoryCache) {
		c.clock = clock
	}
}
