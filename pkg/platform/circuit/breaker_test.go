package circuit

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// outcome is one delivery attempt against the primary provider.
type outcome bool

const (
	ok   outcome = true
	fail outcome = false
)

func replay(b *Breaker, outcomes ...outcome) (opened, closed int) {
	for _, o := range outcomes {
		var change StateChange
		if o {
			_, change = b.RecordSuccess()
		} else {
			_, change = b.RecordFailure()
		}
		if change.Opened {
			opened++
		}
		if change.Closed {
			closed++
		}
	}
	return opened, closed
}

func TestBreaker_Defaults(t *testing.T) {
	b := New("mail-mailersend")
	assert.Equal(t, "mail-mailersend", b.Name())
	assert.Equal(t, StateClosed, b.State())

	opened, _ := replay(b, fail, fail, fail, fail)
	assert.Zero(t, opened, "four failures stay under the default threshold of five")
	opened, _ = replay(b, fail)
	assert.Equal(t, 1, opened)

	_, closed := replay(b, ok)
	assert.Zero(t, closed, "one success stays under the default threshold of two")
	_, closed = replay(b, ok)
	assert.Equal(t, 1, closed)
}

func TestBreaker_Transitions(t *testing.T) {
	tests := []struct {
		name       string
		failures   int
		successes  int
		outcomes   []outcome
		wantState  State
		wantOpened int
		wantClosed int
	}{
		{
			name:       "opens on the threshold failure",
			failures:   3,
			outcomes:   []outcome{fail, fail, fail},
			wantState:  StateOpen,
			wantOpened: 1,
		},
		{
			name:      "a success resets the failure streak",
			failures:  3,
			outcomes:  []outcome{fail, fail, ok, fail, fail},
			wantState: StateClosed,
		},
		{
			name:       "closes after consecutive successes",
			failures:   1,
			successes:  2,
			outcomes:   []outcome{fail, ok, ok},
			wantState:  StateClosed,
			wantOpened: 1,
			wantClosed: 1,
		},
		{
			name:       "a failure while open resets the success streak",
			failures:   1,
			successes:  3,
			outcomes:   []outcome{fail, ok, ok, fail, ok, ok},
			wantState:  StateOpen,
			wantOpened: 1,
		},
		{
			name:       "repeated failures while open do not reopen",
			failures:   1,
			outcomes:   []outcome{fail, fail, fail},
			wantState:  StateOpen,
			wantOpened: 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := New("test", WithFailureThreshold(tt.failures), WithSuccessThreshold(tt.successes))
			opened, closed := replay(b, tt.outcomes...)
			assert.Equal(t, tt.wantState, b.State())
			assert.Equal(t, tt.wantOpened, opened)
			assert.Equal(t, tt.wantClosed, closed)
		})
	}
}

func TestBreaker_RecordResults(t *testing.T) {
	b := New("test", WithFailureThreshold(2), WithSuccessThreshold(1))

	useFallback, _ := b.RecordFailure()
	assert.False(t, useFallback, "primary is still preferred below the threshold")
	useFallback, _ = b.RecordFailure()
	assert.True(t, useFallback)

	usePrimary, change := b.RecordSuccess()
	assert.True(t, usePrimary)
	assert.True(t, change.Closed)
}

func TestBreaker_Reset(t *testing.T) {
	b := New("test", WithFailureThreshold(1))
	replay(b, fail)
	require.True(t, b.IsOpen())

	b.Reset()
	assert.False(t, b.IsOpen())
	opened, _ := replay(b, fail)
	assert.Equal(t, 1, opened, "counters start over after reset")
}

func TestBreaker_ConcurrentFailuresOpenOnce(t *testing.T) {
	b := New("test", WithFailureThreshold(10))
	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		opened int
	)
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, change := b.RecordFailure(); change.Opened {
				mu.Lock()
				opened++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, opened)
	assert.True(t, b.IsOpen())
}
