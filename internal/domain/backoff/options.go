// Package backoff computes retry delays for transient upstream failures.
package backoff

import "time"

// Option applies a configuration option to the Policy.
type Option func(*Policy)

// WithBaseDelay sets the delay applied after the first failed attempt.
func WithBaseDelay(d time.Duration) Option {
	return func(p *Policy) {
		if d > 0 {
			p.base = d
		}
	}
}

// WithMultiplier sets the exponential growth factor between attempts.
func WithMultiplier(m float64) Option {
	return func(p *Policy) {
		if m >= 1 {
			p.multiplier = m
		}
	}
}

// WithMaxDelay caps the delay for any single retry.
func WithMaxDelay(d time.Duration) Option {
	return func(p *Policy) {
		if d > 0 {
			p.maxDelay = d
		}
	}
}

// WithMaxAttempts sets the total number of upstream attempts.
func WithMaxAttempts(n int) Option {
	return func(p *Policy) {
		if n >= 1 {
			p.maxAttempts = n
		}
	}
}

// WithJitter replaces the jitter source. Pass a func returning 0 for
// deterministic delays in tests.
func WithJitter(j JitterFunc) Option {
	return func(p *Policy) {
		if j != nil {
			p.jitter = j
		}
	}
}
