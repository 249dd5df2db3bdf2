package bucket

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

const (
	testLimit  = 5
	testWindow = time.Minute
)

type InMemoryStoreSuite struct {
	suite.Suite
	ctx   context.Context
	now   time.Time
	store *InMemoryStore
}

func TestInMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryStoreSuite))
}

func (s *InMemoryStoreSuite) SetupTest() {
	s.ctx = context.Background()
	s.now = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	s.store = NewInMemoryStore(WithClock(func() time.Time { return s.now }))
}

func (s *InMemoryStoreSuite) fill(key string) {
	for range testLimit {
		result, err := s.store.Allow(s.ctx, key, testLimit, testWindow)
		s.Require().NoError(err)
		s.Require().True(result.Allowed)
	}
}

func (s *InMemoryStoreSuite) TestAllow() {
	s.Run("first request reports remaining", func() {
		result, err := s.store.Allow(s.ctx, "ip:first", testLimit, testWindow)
		s.Require().NoError(err)
		s.True(result.Allowed)
		s.Equal(testLimit, result.Limit)
		s.Equal(testLimit-1, result.Remaining)
		s.Equal(s.now.Add(testWindow), result.ResetAt)
	})

	s.Run("request over the limit is denied with retry hint", func() {
		s.fill("ip:over")
		s.now = s.now.Add(20 * time.Second)
		result, err := s.store.Allow(s.ctx, "ip:over", testLimit, testWindow)
		s.Require().NoError(err)
		s.False(result.Allowed)
		s.Equal(0, result.Remaining)
		s.Equal(40, result.RetryAfter)
	})

	s.Run("window slides", func() {
		s.fill("ip:slide")
		s.now = s.now.Add(testWindow + time.Second)
		result, err := s.store.Allow(s.ctx, "ip:slide", testLimit, testWindow)
		s.Require().NoError(err)
		s.True(result.Allowed)
	})

	s.Run("keys are independent", func() {
		s.fill("ip:a")
		result, err := s.store.Allow(s.ctx, "ip:b", testLimit, testWindow)
		s.Require().NoError(err)
		s.True(result.Allowed)
	})
}

func (s *InMemoryStoreSuite) TestReset() {
	s.fill("email:reset")
	s.Require().NoError(s.store.Reset(s.ctx, "email:reset"))
	result, err := s.store.Allow(s.ctx, "email:reset", testLimit, testWindow)
	s.Require().NoError(err)
	s.True(result.Allowed)
}

func (s *InMemoryStoreSuite) TestDeleteExpired() {
	_, err := s.store.Allow(s.ctx, "ip:stale", testLimit, testWindow)
	s.Require().NoError(err)
	s.now = s.now.Add(30 * time.Second)
	_, err = s.store.Allow(s.ctx, "ip:live", testLimit, testWindow)
	s.Require().NoError(err)

	n, err := s.store.DeleteExpired(s.ctx, s.now.Add(45*time.Second))
	s.Require().NoError(err)
	s.Equal(1, n)
}

func (s *InMemoryStoreSuite) TestConcurrentAdmission() {
	var (
		wg      sync.WaitGroup
		allowed atomic.Int32
	)
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := s.store.Allow(s.ctx, "ip:race", testLimit, testWindow)
			if err == nil && result.Allowed {
				allowed.Add(1)
			}
		}()
	}
	wg.Wait()
	s.Equal(int32(testLimit), allowed.Load())
}
