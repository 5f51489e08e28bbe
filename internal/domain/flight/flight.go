// Package flight tracks in-flight refresh tasks for single-flight coalescing.
package flight

import (
	"context"
	"fmt"
	"sync"

	"github.com/devquest-io/analytics/internal/domain/model"
)

// Fetch produces the aggregated record for one key. It is executed by the
// owning caller; coalesced callers share its result.
type Fetch func() (model.ActivityRecord, error)

// Group guarantees at most one outstanding fetch per key at any instant.
type Group interface {
	// Do runs fn for key unless a fetch for key is already in flight, in
	// which case the caller attaches to the pending result instead.
	// The returned owner flag reports whether this caller executed fn.
	// A waiter whose ctx ends stops waiting; the fetch itself keeps running.
	Do(ctx context.Context, key model.UserKey, fn Fetch) (rec model.ActivityRecord, owner bool, err error)

	// Size returns the current number of in-flight fetches.
	Size() int
}

// call is the shared completion handle for one in-flight fetch.
type call struct {
	done chan struct{}

	// Written once by the owner before done is closed.
	rec model.ActivityRecord
	err error
}

// inMemoryGroup implements Group with an explicit key -> handle map guarded
// by one mutex; insert-or-attach is a single critical section.
type inMemoryGroup struct {
	mu    sync.Mutex
	calls map[model.UserKey]*call

	onSize func(int)
}

// NewInMemoryGroup creates a new in-flight group with configuration options.
func NewInMemoryGroup(opts ...Option) Group {
	g := &inMemoryGroup{
		calls: make(map[model.UserKey]*call),
	}

	for _, opt := range opts {
		opt(g)
	}

	return g
}

// Do implements Group.
func (g *inMemoryGroup) Do(ctx context.Context, key model.UserKey, fn Fetch) (model.ActivityRecord, bool, error) {
	g.mu.Lock()
	if c, ok := g.calls[key]; ok {
		// Attach to the pending handle; no new fetch is issued.
		g.mu.Unlock()
		select {
		case <-c.done:
			return c.rec, false, c.err
		case <-ctx.Done():
			// The caller gives up waiting; the owner keeps the fetch alive.
			return model.ActivityRecord{}, false, fmt.Errorf("abandoned refresh wait for %q: %w", key, ctx.Err())
		}
	}

	c := &call{done: make(chan struct{})}
	g.calls[key] = c
	g.notifySize(len(g.calls))
	g.mu.Unlock()

	// Owner path. The entry is removed exactly once, before waiters wake,
	// so a later Do for the same key starts a fresh fetch.
	defer func() {
		g.mu.Lock()
		delete(g.calls, key)
		g.notifySize(len(g.calls))
		g.mu.Unlock()
		close(c.done)
	}()

	c.rec, c.err = fn()
	return c.rec, true, c.err
}

// Size implements Group.
func (g *inMemoryGroup) Size() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.calls)
}

// notifySize must be called with g.mu held.
func (g *inMemoryGroup) notifySize(n int) {
	if g.onSize != nil {
		g.onSize(n)
	}
}
