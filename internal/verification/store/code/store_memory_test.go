package code

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"gatepass/internal/verification/models"
	"gatepass/pkg/platform/sentinel"
)

type InMemoryStoreSuite struct {
	suite.Suite
	store *InMemoryStore
	ctx   context.Context
	now   time.Time
}

func TestInMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryStoreSuite))
}

func (s *InMemoryStoreSuite) SetupTest() {
	s.store = NewInMemoryStore()
	s.ctx = context.Background()
	s.now = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
}

func (s *InMemoryStoreSuite) save(email, code string, issuedAt time.Time) {
	s.Require().NoError(s.store.Save(s.ctx, &models.OneTimeCode{
		Email: email, Code: code, IssuedAt: issuedAt, ExpiresAt: issuedAt.Add(10 * time.Minute),
	}))
}

func (s *InMemoryStoreSuite) TestConsumeIsSingleUse() {
	s.save("a@x.com", "123456", s.now)

	s.Require().NoError(s.store.Consume(s.ctx, "a@x.com", "123456", s.now))
	err := s.store.Consume(s.ctx, "a@x.com", "123456", s.now)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *InMemoryStoreSuite) TestConsumeRequiresExactPair() {
	s.save("a@x.com", "123456", s.now)

	s.ErrorIs(s.store.Consume(s.ctx, "b@x.com", "123456", s.now), sentinel.ErrNotFound)
	s.ErrorIs(s.store.Consume(s.ctx, "a@x.com", "654321", s.now), sentinel.ErrNotFound)
	s.NoError(s.store.Consume(s.ctx, "a@x.com", "123456", s.now))
}

func (s *InMemoryStoreSuite) TestCodesCoexist() {
	s.save("a@x.com", "111111", s.now)
	s.save("a@x.com", "222222", s.now.Add(time.Minute))

	s.NoError(s.store.Consume(s.ctx, "a@x.com", "111111", s.now.Add(2*time.Minute)))
	s.NoError(s.store.Consume(s.ctx, "a@x.com", "222222", s.now.Add(2*time.Minute)))
}

func (s *InMemoryStoreSuite) TestExpiredBeforeSweepIsRejected() {
	s.save("a@x.com", "123456", s.now)

	err := s.store.Consume(s.ctx, "a@x.com", "123456", s.now.Add(10*time.Minute))
	s.ErrorIs(err, sentinel.ErrExpired)
	// The expired pair is gone, not resurrected by a later clock.
	s.ErrorIs(s.store.Consume(s.ctx, "a@x.com", "123456", s.now), sentinel.ErrNotFound)
}

func (s *InMemoryStoreSuite) TestDeleteExpired() {
	s.save("a@x.com", "111111", s.now)
	s.save("b@x.com", "222222", s.now.Add(5*time.Minute))

	deleted, err := s.store.DeleteExpired(s.ctx, s.now.Add(11*time.Minute))
	s.Require().NoError(err)
	s.Equal(1, deleted)

	s.ErrorIs(s.store.Consume(s.ctx, "a@x.com", "111111", s.now), sentinel.ErrNotFound)
	s.NoError(s.store.Consume(s.ctx, "b@x.com", "222222", s.now.Add(11*time.Minute)))
}

func (s *InMemoryStoreSuite) TestConcurrentConsume() {
	s.save("a@x.com", "123456", s.now)

	const goroutines = 20
	var wg sync.WaitGroup
	var successes atomic.Int32
	for range goroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if s.store.Consume(s.ctx, "a@x.com", "123456", s.now) == nil {
				successes.Add(1)
			}
		}()
	}
	wg.Wait()
	s.Equal(int32(1), successes.Load())
}
