package memory

import (
	"context"
	"maps"
	"sync"

	audit "ringside/pkg/platform/audit"
)

const defaultListLimit = 50

// InMemoryStore is an append-only audit store for tests and local development.
// Entries are kept in write order; there is no way to modify or remove one.
type InMemoryStore struct {
	mu      sync.RWMutex
	entries []audit.Entry
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Append(_ context.Context, entry audit.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry.Details = maps.Clone(entry.Details)
	s.entries = append(s.entries, entry)
	return nil
}

// List returns matching entries, most recent first.
func (s *InMemoryStore) List(_ context.Context, filter audit.Filter) ([]audit.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	out := make([]audit.Entry, 0, min(limit, len(s.entries)))
	for i := len(s.entries) - 1; i >= 0 && len(out) < limit; i-- {
		e := s.entries[i]
		if filter.Action != "" && e.Action != filter.Action {
			continue
		}
		if filter.TargetType != "" && e.TargetType != filter.TargetType {
			continue
		}
		if filter.TargetID != "" && e.TargetID != filter.TargetID {
			continue
		}
		e.Details = maps.Clone(e.Details)
		out = append(out, e)
	}
	return out, nil
}

// Count returns the number of entries, optionally restricted to one action.
func (s *InMemoryStore) Count(action audit.Action) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if action == "" {
		return len(s.entries)
	}
	n := 0
	for _, e := range s.entries {
		if e.Action == action {
			n++
		}
	}
	return n
}
