// Package aggregate normalizes raw upstream activity into ActivityRecord snapshots.
package aggregate

// Option applies a configuration option to the Aggregator.
type Option func(*Aggregator)

// WithRecentLimit caps the recent-solves list on built records.
// A limit of 0 keeps every solve.
func WithRecentLimit(n int) Option {
	return func(a *Aggregator) {
		if n >= 0 {
			a.recentLimit = n
		}
	}
}
