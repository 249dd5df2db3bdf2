package revocation

import (
	"context"
	"sync"
	"time"
)

// InMemoryList keeps revoked jtis with their expiry.
type InMemoryList struct {
	mu      sync.RWMutex
	revoked map[string]time.Time
	clock   Clock
}

type InMemoryOption func(*InMemoryList)

func WithClock(clock Clock) InMemoryOption {
	return func(l *InMemoryList) {
		if clock != nil {
			l.clock = clock
		}
	}
}

func NewInMemory(opts ...InMemoryOption) *InMemoryList {
	l := &InMemoryList{
		revoked: make(map[string]time.Time),
		clock:   time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *InMemoryList) RevokeToken(_ context.Context, jti string, expiresAt time.Time) error {
	if jti == "" {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.revoked[jti] = expiresAt
	return nil
}

func (l *InMemoryList) IsTokenRevoked(_ context.Context, jti string) (bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	expiresAt, ok := l.revoked[jti]
	if !ok {
		return false, nil
	}
	return l.clock().Before(expiresAt), nil
}

// DeleteExpired drops entries whose token has expired.
func (l *InMemoryList) DeleteExpired(_ context.Context, now time.Time) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	deleted := 0
	for jti, expiresAt := range l.revoked {
		if !now.Before(expiresAt) {
			delete(l.revoked, jti)
			deleted++
		}
	}
	return deleted, nil
}
