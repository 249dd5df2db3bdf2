package store

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"gatepass/internal/admin/models"
	id "gatepass/pkg/domain"
	"gatepass/pkg/platform/sentinel"
)

type InMemoryStoreSuite struct {
	suite.Suite
	store *InMemoryStore
}

func TestInMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryStoreSuite))
}

func (s *InMemoryStoreSuite) SetupTest() {
	s.store = NewInMemoryStore()
}

func newAdmin(email string) *models.Admin {
	return &models.Admin{
		ID:           id.NewAdminID(),
		Email:        email,
		Name:         "Desk Officer",
		PasswordHash: "hash",
		CreatedAt:    time.Now(),
	}
}

func (s *InMemoryStoreSuite) TestCreateAndFind() {
	ctx := context.Background()
	admin := newAdmin("desk@example.com")
	s.Require().NoError(s.store.Create(ctx, admin))

	byEmail, err := s.store.FindByEmail(ctx, "desk@example.com")
	s.Require().NoError(err)
	s.Equal(admin.ID, byEmail.ID)

	byID, err := s.store.FindByID(ctx, admin.ID)
	s.Require().NoError(err)
	s.Equal("desk@example.com", byID.Email)
}

func (s *InMemoryStoreSuite) TestDuplicateEmailConflicts() {
	ctx := context.Background()
	s.Require().NoError(s.store.Create(ctx, newAdmin("desk@example.com")))
	s.ErrorIs(s.store.Create(ctx, newAdmin("desk@example.com")), sentinel.ErrConflict)
}

func (s *InMemoryStoreSuite) TestNotFound() {
	ctx := context.Background()
	_, err := s.store.FindByEmail(ctx, "nobody@example.com")
	s.ErrorIs(err, sentinel.ErrNotFound)
	_, err = s.store.FindByID(ctx, id.NewAdminID())
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *InMemoryStoreSuite) TestReturnedCopiesAreIsolated() {
	ctx := context.Background()
	admin := newAdmin("desk@example.com")
	s.Require().NoError(s.store.Create(ctx, admin))
	admin.Name = "changed"

	found, err := s.store.FindByEmail(ctx, "desk@example.com")
	s.Require().NoError(err)
	s.Equal("Desk Officer", found.Name)
}

func (s *InMemoryStoreSuite) TestConcurrentCreateSameEmail() {
	ctx := context.Background()
	var (
		wg        sync.WaitGroup
		created   atomic.Int32
		conflicts atomic.Int32
	)
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.store.Create(ctx, newAdmin("race@example.com"))
			if err == nil {
				created.Add(1)
			} else if err == sentinel.ErrConflict {
				conflicts.Add(1)
			}
		}()
	}
	wg.Wait()
	s.Equal(int32(1), created.Load())
	s.Equal(int32(9), conflicts.Load())
}
