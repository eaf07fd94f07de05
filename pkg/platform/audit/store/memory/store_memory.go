package memory

import (
	"context"
	"sync"

	audit "auditkit/pkg/platform/audit"
)

// InMemoryStore keeps events in insertion order. It backs the default
// publisher in the host application and doubles as a capture sink in tests.
type InMemoryStore struct {
	mu     sync.RWMutex
	events []audit.Event
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = nil
}

func (s *InMemoryStore) Append(_ context.Context, event audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

// Publish lets the store act directly as an audit.Publisher.
func (s *InMemoryStore) Publish(ctx context.Context, event audit.Event) error {
	return s.Append(ctx, event)
}

// ListAll returns every stored event, oldest first.
func (s *InMemoryStore) ListAll(_ context.Context) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]audit.Event{}, s.events...), nil
}

// ListRecent returns the most recent N events, newest first.
func (s *InMemoryStore) ListRecent(_ context.Context, limit int) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 || limit > len(s.events) {
		limit = len(s.events)
	}
	result := make([]audit.Event, 0, limit)
	for i := len(s.events) - 1; i >= 0 && len(result) < limit; i-- {
		result = append(result, s.events[i])
	}
	return result, nil
}

// ListByEntity returns events of the given entity type that reference entityID.
func (s *InMemoryStore) ListByEntity(_ context.Context, entityType, entityID string) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []audit.Event
	for _, event := range s.events {
		if event.EntityType == entityType && event.HasEntity(entityID) {
			matched = append(matched, event)
		}
	}
	return matched, nil
}

// Len returns the number of stored events.
func (s *InMemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events)
}
