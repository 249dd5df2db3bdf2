package memory

import (
	"context"
	"sync"

	id "gatepass/pkg/domain"
	audit "gatepass/pkg/platform/audit"
)

// InMemoryStore keeps audit events in memory for tests and development.
type InMemoryStore struct {
	mu      sync.RWMutex
	byVisit map[id.VisitID][]audit.Event
	all     []audit.Event
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{byVisit: make(map[id.VisitID][]audit.Event)}
}

func (s *InMemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byVisit = make(map[id.VisitID][]audit.Event)
	s.all = nil
}

func (s *InMemoryStore) Append(_ context.Context, event audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !event.VisitID.IsNil() {
		s.byVisit[event.VisitID] = append(s.byVisit[event.VisitID], event)
	}
	s.all = append(s.all, event)
	return nil
}

func (s *InMemoryStore) ListByVisit(_ context.Context, visitID id.VisitID) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]audit.Event{}, s.byVisit[visitID]...), nil
}

// ListAll returns every event in emission order.
func (s *InMemoryStore) ListAll(_ context.Context) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]audit.Event{}, s.all...), nil
}

// ListRecent returns the most recent limit events, oldest first.
func (s *InMemoryStore) ListRecent(_ context.Context, limit int) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	start := max(len(s.all)-limit, 0)
	return append([]audit.Event{}, s.all[start:]...), nil
}
