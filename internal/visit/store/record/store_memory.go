package record

import (
	"context"
	"sort"
	"sync"
	"time"

	"gatepass/internal/visit/models"
	id "gatepass/pkg/domain"
	"gatepass/pkg/platform/sentinel"
)

// entry guards one record. Mutations of different records never contend
// on the same mutex.
type entry struct {
	mu      sync.Mutex
	rec     *models.VisitRecord
	deleted bool
}

// InMemoryStore keeps visit records in process memory.
//
// Lock order is always index lock, then entry lock. Execute takes only the
// entry lock so scans on different visitors run in parallel.
type InMemoryStore struct {
	mu      sync.RWMutex
	byID    map[id.VisitID]*entry
	byEmail map[string]*entry
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		byID:    make(map[id.VisitID]*entry),
		byEmail: make(map[string]*entry),
	}
}

// Upsert inserts candidate, or replaces the registration fields of the record
// already holding candidate.Email. The stored record keeps its original ID.
func (s *InMemoryStore) Upsert(_ context.Context, candidate *models.VisitRecord) (*models.VisitRecord, error) {
	if err := candidate.CheckInvariants(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.byEmail[candidate.Email]; ok {
		e.mu.Lock()
		defer e.mu.Unlock()
		e.rec.ApplyRegistration(registrationOf(candidate), candidate.UpdatedAt)
		return e.rec.Clone(), nil
	}

	e := &entry{rec: candidate.Clone()}
	s.byID[candidate.ID] = e
	s.byEmail[candidate.Email] = e
	return candidate.Clone(), nil
}

func (s *InMemoryStore) FindByID(_ context.Context, visitID id.VisitID) (*models.VisitRecord, error) {
	s.mu.RLock()
	e, ok := s.byID[visitID]
	s.mu.RUnlock()
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.deleted {
		return nil, sentinel.ErrNotFound
	}
	return e.rec.Clone(), nil
}

func (s *InMemoryStore) FindByEmail(_ context.Context, email string) (*models.VisitRecord, error) {
	s.mu.RLock()
	e, ok := s.byEmail[email]
	s.mu.RUnlock()
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.deleted {
		return nil, sentinel.ErrNotFound
	}
	return e.rec.Clone(), nil
}

// ListByStatus returns matching records ordered by creation time.
func (s *InMemoryStore) ListByStatus(_ context.Context, status models.Status) ([]*models.VisitRecord, error) {
	return s.collect(func(r *models.VisitRecord) bool { return r.Status == status }), nil
}

// ListInRange returns records whose visit date or any entry time falls in [from, to].
func (s *InMemoryStore) ListInRange(_ context.Context, from, to time.Time) ([]*models.VisitRecord, error) {
	return s.collect(func(r *models.VisitRecord) bool { return overlaps(r, from, to) }), nil
}

// Execute runs validate then mutate on the record while holding its lock.
// A validate error aborts without writing. The mutated record must pass
// CheckInvariants or nothing is stored.
func (s *InMemoryStore) Execute(_ context.Context, visitID id.VisitID, validate func(*models.VisitRecord) error, mutate func(*models.VisitRecord)) (*models.VisitRecord, error) {
	s.mu.RLock()
	e, ok := s.byID[visitID]
	s.mu.RUnlock()
	if !ok {
		return nil, sentinel.ErrNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.deleted {
		return nil, sentinel.ErrNotFound
	}

	working := e.rec.Clone()
	if err := validate(working); err != nil {
		return nil, err
	}
	mutate(working)
	if err := working.CheckInvariants(); err != nil {
		return nil, err
	}
	e.rec = working
	return working.Clone(), nil
}

// Delete removes the record if it still has the expected status. A record
// that moved on (for example re-registered to pending) is kept and
// sentinel.ErrInvalidState is returned.
func (s *InMemoryStore) Delete(_ context.Context, visitID id.VisitID, expected models.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.byID[visitID]
	if !ok {
		return sentinel.ErrNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.rec.Status != expected {
		return sentinel.ErrInvalidState
	}
	e.deleted = true
	delete(s.byID, visitID)
	delete(s.byEmail, e.rec.Email)
	return nil
}

func (s *InMemoryStore) collect(match func(*models.VisitRecord) bool) []*models.VisitRecord {
	s.mu.RLock()
	entries := make([]*entry, 0, len(s.byID))
	for _, e := range s.byID {
		entries = append(entries, e)
	}
	s.mu.RUnlock()

	var out []*models.VisitRecord
	for _, e := range entries {
		e.mu.Lock()
		if !e.deleted && match(e.rec) {
			out = append(out, e.rec.Clone())
		}
		e.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func registrationOf(r *models.VisitRecord) models.Registration {
	return models.Registration{
		Email:   r.Email,
		Name:    r.Name,
		Mobile:  r.Mobile,
		Purpose: r.Purpose,
		VisitAt: r.VisitAt,
	}
}

func overlaps(r *models.VisitRecord, from, to time.Time) bool {
	if inRange(r.VisitAt, from, to) {
		return true
	}
	for _, e := range r.Events {
		if inRange(e.EntryTime, from, to) {
			return true
		}
	}
	return false
}

func inRange(t, from, to time.Time) bool {
	return !t.Before(from) && !t.After(to)
}
