package retention

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	credentialmodels "gatepass/internal/credential/models"
	credentialstore "gatepass/internal/credential/store"
	"gatepass/internal/platform/metrics"
	"gatepass/internal/verification/models"
	"gatepass/internal/verification/store/code"
	id "gatepass/pkg/domain"
)

type failingStore struct{ calls atomic.Int32 }

func (f *failingStore) DeleteExpired(context.Context, time.Time) (int, error) {
	f.calls.Add(1)
	return 0, errors.New("db down")
}

func TestSweepOnce(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

	codes := code.NewInMemoryStore()
	require.NoError(t, codes.Save(ctx, &models.OneTimeCode{
		Email: "old@example.com", Code: "111111", IssuedAt: now.Add(-time.Hour), ExpiresAt: now.Add(-50 * time.Minute),
	}))
	require.NoError(t, codes.Save(ctx, &models.OneTimeCode{
		Email: "new@example.com", Code: "222222", IssuedAt: now, ExpiresAt: now.Add(10 * time.Minute),
	}))

	creds := credentialstore.NewInMemoryStore()
	require.NoError(t, creds.Issue(ctx, credentialmodels.NewCredential(id.NewVisitID(), now.Add(-48*time.Hour), 24*time.Hour)))
	live := credentialmodels.NewCredential(id.NewVisitID(), now, 24*time.Hour)
	require.NoError(t, creds.Issue(ctx, live))

	failing := &failingStore{}
	m := metrics.NewWithRegisterer(prometheus.NewRegistry())
	sweeper := New(
		WithClock(func() time.Time { return now }),
		WithMetrics(m),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	).
		Add("code", codes).
		Add("credential", creds).
		Add("broken", failing)

	deleted := sweeper.SweepOnce(ctx)

	assert.Equal(t, 1, deleted["code"])
	assert.Equal(t, 1, deleted["credential"])
	assert.NotContains(t, deleted, "broken")
	assert.Equal(t, int32(1), failing.calls.Load())
	assert.InDelta(t, 1, promtestutil.ToFloat64(m.RetentionDeleted.WithLabelValues("code")), 0)

	// Live entries survive.
	require.NoError(t, codes.Consume(ctx, "new@example.com", "222222", now))
	_, err := creds.ResolveActive(ctx, live.Token, now)
	require.NoError(t, err)
}

func TestRunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var calls atomic.Int32
	sweeper := New(WithInterval(5*time.Millisecond), WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))).
		Add("counting", reclaimerFunc(func(context.Context, time.Time) (int, error) {
			calls.Add(1)
			return 0, nil
		}))

	done := make(chan error, 1)
	go func() { done <- sweeper.Run(ctx) }()

	assert.Eventually(t, func() bool { return calls.Load() >= 2 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}

type reclaimerFunc func(ctx context.Context, now time.Time) (int, error)

func (f reclaimerFunc) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	return f(ctx, now)
}
