package store

import (
	"context"
	"sync"
	"time"

	"gatepass/internal/credential/models"
	id "gatepass/pkg/domain"
	"gatepass/pkg/platform/sentinel"
)

// InMemoryStore keeps credentials in a map keyed by token.
type InMemoryStore struct {
	mu      sync.RWMutex
	byToken map[string]*models.Credential
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{byToken: make(map[string]*models.Credential)}
}

// Issue stores cred and deactivates every other active credential of the
// same visit under one lock.
func (s *InMemoryStore) Issue(_ context.Context, cred *models.Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byToken[cred.Token]; exists {
		return sentinel.ErrConflict
	}
	for _, existing := range s.byToken {
		if existing.VisitID == cred.VisitID && existing.IsActive {
			existing.IsActive = false
		}
	}
	stored := *cred
	s.byToken[cred.Token] = &stored
	return nil
}

// ResolveActive returns the credential for token when it is active and
// unexpired at now.
func (s *InMemoryStore) ResolveActive(_ context.Context, token string, now time.Time) (*models.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cred, ok := s.byToken[token]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if !cred.IsActive {
		return nil, sentinel.ErrAlreadyUsed
	}
	if cred.IsExpired(now) {
		return nil, sentinel.ErrExpired
	}
	out := *cred
	return &out, nil
}

// Deactivate marks the credential inactive. Deactivating an inactive
// credential is a no-op.
func (s *InMemoryStore) Deactivate(_ context.Context, token string) (*models.Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cred, ok := s.byToken[token]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cred.IsActive = false
	out := *cred
	return &out, nil
}

// ListByVisit returns every credential issued for the visit.
func (s *InMemoryStore) ListByVisit(_ context.Context, visitID id.VisitID) ([]*models.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Credential
	for _, cred := range s.byToken {
		if cred.VisitID == visitID {
			c := *cred
			out = append(out, &c)
		}
	}
	return out, nil
}

// DeleteExpired removes credentials whose lifetime ended at or before now.
func (s *InMemoryStore) DeleteExpired(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	deleted := 0
	for token, cred := range s.byToken {
		if cred.IsExpired(now) {
			delete(s.byToken, token)
			deleted++
		}
	}
	return deleted, nil
}
