package sink

import (
	"context"
	"sync"

	"github.com/devquest-io/analytics/internal/domain/model"
)

// inMemorySink keeps the latest snapshot per user in process memory.
// It backs tests and single-node deployments that skip durable storage.
type inMemorySink struct {
	mu      sync.RWMutex
	records map[model.UserKey]model.ActivityRecord
}

// NewInMemorySink creates an in-process Sink.
func NewInMemorySink() Sink {
	return &inMemorySink{
		records: make(map[model.UserKey]model.ActivityRecord),
	}
}

func (s *inMemorySink) Upsert(_ context.Context, rec model.ActivityRecord) error {
	if !rec.User.Valid() {
		return ErrEmptyKey
	}

	s.mu.Lock()
	s.records[rec.User] = rec
	s.mu.Unlock()

	return nil
}

// Load returns the stored snapshot for key, for inspection in tests.
func (s *inMemorySink) Load(key model.UserKey) (model.ActivityRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[key]
	return rec, ok
}
