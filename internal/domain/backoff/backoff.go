// Package backoff computes retry delays for transient upstream failures.
//
// The policy is a pure function of the attempt number: it performs no I/O
// and owns no clock, so callers can test their retry loops without sleeping.
package backoff

import (
	"math"
	"math/rand"
	"time"
)

// Default policy constants.
const (
	defaultBaseDelay   = 500 * time.Millisecond
	defaultMultiplier  = 2.0
	defaultMaxDelay    = 30 * time.Second
	defaultMaxAttempts = 3
)

// Policy computes the delay before retrying a failed attempt.
type Policy struct {
	base        time.Duration
	multiplier  float64
	maxDelay    time.Duration
	maxAttempts int
	jitter      JitterFunc
}

// JitterFunc returns a random offset in [0, max).
type JitterFunc func(max time.Duration) time.Duration

// NewPolicy creates a Policy with configuration options.
func NewPolicy(opts ...Option) Policy {
	p := Policy{
		base:        defaultBaseDelay,
		multiplier:  defaultMultiplier,
		maxDelay:    defaultMaxDelay,
		maxAttempts: defaultMaxAttempts,
		jitter:      defaultJitter,
	}

	for _, opt := range opts {
		opt(&p)
	}

	return p
}

// MaxAttempts returns the attempt cap, always at least 1.
func (p Policy) MaxAttempts() int {
	if p.maxAttempts < 1 {
		return 1
	}
	return p.maxAttempts
}

// Delay returns the wait before retry number attempt (0-based): the delay
// applied after attempt n has failed transiently.
// delay(n) = min(base * multiplier^n + jitter, maxDelay).
func (p Policy) Delay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}

	scaled := float64(p.base) * math.Pow(p.multiplier, float64(attempt))
	if scaled > float64(p.maxDelay) || scaled < 0 {
		// Overflow or past the cap; jitter no longer matters.
		return p.maxDelay
	}

	d := time.Duration(scaled)
	if p.jitter != nil {
		d += p.jitter(d)
	}
	if d > p.maxDelay {
		return p.maxDelay
	}
	return d
}

// defaultJitter spreads retries over [0, max/2) to avoid synchronized
// retry storms against a rate-limited upstream.
func defaultJitter(max time.Duration) time.Duration {
	if max <= 1 {
		return 0
	}
	return time.Duration(rand.Int63n(int64(max / 2))) //nolint:gosec // jitter needs no cryptographic quality
}
