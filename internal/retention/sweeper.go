// Package retention periodically removes expired one-time codes, credentials
// and token revocations. Lookups already enforce expiry; this only reclaims storage.
package retention

import (
	"context"
	"log/slog"
	"time"

	"gatepass/internal/platform/metrics"
)

const defaultInterval = time.Minute

// Reclaimer deletes entries that expired at or before now.
type Reclaimer interface {
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
}

type target struct {
	kind  string
	store Reclaimer
}

// Sweeper runs every registered Reclaimer on a fixed interval.
type Sweeper struct {
	targets  []target
	interval time.Duration
	clock    func() time.Time
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

type Option func(*Sweeper)

func WithInterval(d time.Duration) Option {
	return func(s *Sweeper) {
		if d > 0 {
			s.interval = d
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Sweeper) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Sweeper) {
		s.metrics = m
	}
}

func WithClock(clock func() time.Time) Option {
	return func(s *Sweeper) {
		if clock != nil {
			s.clock = clock
		}
	}
}

func New(opts ...Option) *Sweeper {
	s := &Sweeper{
		interval: defaultInterval,
		clock:    time.Now,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Add registers store under kind, the label used in logs and metrics.
func (s *Sweeper) Add(kind string, store Reclaimer) *Sweeper {
	s.targets = append(s.targets, target{kind: kind, store: store})
	return s
}

// Run sweeps until ctx is cancelled. A failing store is logged and retried next tick.
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.SweepOnce(ctx)
		}
	}
}

// SweepOnce runs every store once and returns the deletions per kind.
func (s *Sweeper) SweepOnce(ctx context.Context) map[string]int {
	now := s.clock()
	deleted := make(map[string]int, len(s.targets))
	for _, t := range s.targets {
		n, err := t.store.DeleteExpired(ctx, now)
		if err != nil {
			s.logger.ErrorContext(ctx, "retention sweep failed",
				"kind", t.kind,
				"error", err,
			)
			continue
		}
		deleted[t.kind] = n
		if n > 0 {
			s.metrics.AddRetentionDeleted(t.kind, n)
			s.logger.DebugContext(ctx, "retention sweep removed expired entries",
				"kind", t.kind,
				"count", n,
			)
		}
	}
	return deleted
}
