package store

import (
	"context"
	"sync"

	"gatepass/internal/admin/models"
	id "gatepass/pkg/domain"
	"gatepass/pkg/platform/sentinel"
)

// InMemoryStore keeps admin accounts keyed by id with an email index.
type InMemoryStore struct {
	mu      sync.RWMutex
	byID    map[id.AdminID]*models.Admin
	byEmail map[string]id.AdminID
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		byID:    make(map[id.AdminID]*models.Admin),
		byEmail: make(map[string]id.AdminID),
	}
}

// Create stores admin. A second account for the same email is a conflict.
func (s *InMemoryStore) Create(_ context.Context, admin *models.Admin) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byEmail[admin.Email]; exists {
		return sentinel.ErrConflict
	}
	if _, exists := s.byID[admin.ID]; exists {
		return sentinel.ErrConflict
	}
	stored := *admin
	s.byID[admin.ID] = &stored
	s.byEmail[admin.Email] = admin.ID
	return nil
}

func (s *InMemoryStore) FindByEmail(_ context.Context, email string) (*models.Admin, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	adminID, ok := s.byEmail[email]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	found := *s.byID[adminID]
	return &found, nil
}

func (s *InMemoryStore) FindByID(_ context.Context, adminID id.AdminID) (*models.Admin, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	admin, ok := s.byID[adminID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	found := *admin
	return &found, nil
}
