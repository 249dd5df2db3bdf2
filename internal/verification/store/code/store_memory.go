package code

import (
	"context"
	"fmt"
	"sync"
	"time"

	"gatepass/internal/verification/models"
	"gatepass/pkg/platform/sentinel"
)

type key struct {
	email string
	code  string
}

// InMemoryStore keeps one-time codes in process memory for tests and single-node dev.
type InMemoryStore struct {
	mu    sync.Mutex
	codes map[key]*models.OneTimeCode
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{codes: make(map[key]*models.OneTimeCode)}
}

func (s *InMemoryStore) Save(_ context.Context, c *models.OneTimeCode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *c
	s.codes[key{c.Email, c.Code}] = &copied
	return nil
}

// Consume deletes the exact {email, code} pair. An expired pair is deleted
// too and reported as sentinel.ErrExpired.
func (s *InMemoryStore) Consume(_ context.Context, email, code string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := key{email, code}
	c, ok := s.codes[k]
	if !ok {
		return fmt.Errorf("one-time code not found: %w", sentinel.ErrNotFound)
	}
	delete(s.codes, k)
	if c.IsExpired(now) {
		return fmt.Errorf("one-time code expired: %w", sentinel.ErrExpired)
	}
	return nil
}

// DeleteExpired removes codes expired at now and returns how many were removed.
func (s *InMemoryStore) DeleteExpired(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	deleted := 0
	for k, c := range s.codes {
		if c.IsExpired(now) {
			delete(s.codes, k)
			deleted++
		}
	}
	return deleted, nil
}
