// Package flight tracks in-flight refresh tasks for single-flight coalescing.
package flight

// Option applies a configuration option to the in-memory group.
type Option func(*inMemoryGroup)

// WithSizeGauge registers a callback invoked with the in-flight count after
// every insert and removal. Used to feed the in-flight metrics gauge.
func WithSizeGauge(fn func(int)) Option {
	return func(g *inMemoryGroup) {
		g.onSize = fn
	}
}
