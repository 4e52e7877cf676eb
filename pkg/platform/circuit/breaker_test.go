package circuit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type outcome bool

const (
	ok   outcome = true
	fail outcome = false
)

func record(b *Breaker, results []outcome) (opened, closed int) {
	for _, r := range results {
		var change StateChange
		if r {
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

func TestBreaker_Transitions(t *testing.T) {
	tests := []struct {
		name       string
		opts       []Option
		results    []outcome
		wantState  State
		wantOpened int
		wantClosed int
	}{
		{
			name:      "new directory breaker is closed",
			wantState: StateClosed,
		},
		{
			name:       "directory outage opens after the threshold",
			opts:       []Option{WithFailureThreshold(3)},
			results:    []outcome{fail, fail, fail},
			wantState:  StateOpen,
			wantOpened: 1,
		},
		{
			name:      "an answered call between timeouts keeps the directory reachable",
			opts:      []Option{WithFailureThreshold(3)},
			results:   []outcome{fail, fail, ok, fail, fail},
			wantState: StateClosed,
		},
		{
			name:       "further directory failures while open do not reopen",
			opts:       []Option{WithFailureThreshold(1)},
			results:    []outcome{fail, fail, fail},
			wantState:  StateOpen,
			wantOpened: 1,
		},
		{
			name:       "publisher recovers after consecutive deliveries",
			opts:       []Option{WithFailureThreshold(1), WithSuccessThreshold(2)},
			results:    []outcome{fail, ok, ok},
			wantState:  StateClosed,
			wantOpened: 1,
			wantClosed: 1,
		},
		{
			name:       "a failed delivery restarts publisher recovery",
			opts:       []Option{WithFailureThreshold(1), WithSuccessThreshold(3)},
			results:    []outcome{fail, ok, ok, fail, ok, ok},
			wantState:  StateOpen,
			wantOpened: 1,
		},
		{
			name:       "publisher closes once recovery completes",
			opts:       []Option{WithFailureThreshold(1), WithSuccessThreshold(3)},
			results:    []outcome{fail, ok, ok, fail, ok, ok, ok},
			wantState:  StateClosed,
			wantOpened: 1,
			wantClosed: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := New("directory", tt.opts...)
			opened, closed := record(b, tt.results)
			assert.Equal(t, tt.wantState, b.State())
			assert.Equal(t, tt.wantState == StateOpen, b.IsOpen())
			assert.Equal(t, tt.wantOpened, opened)
			assert.Equal(t, tt.wantClosed, closed)
		})
	}
}

func TestBreaker_RecordReportsAvailability(t *testing.T) {
	b := New("outbox-publisher", WithFailureThreshold(2), WithSuccessThreshold(1))
	assert.Equal(t, "outbox-publisher", b.Name())

	unavailable, _ := b.RecordFailure()
	assert.False(t, unavailable, "a single failed publish leaves the broker usable")
	unavailable, _ = b.RecordFailure()
	assert.True(t, unavailable)

	closed, change := b.RecordSuccess()
	assert.True(t, closed)
	assert.True(t, change.Closed)
}

func TestBreaker_ResetClosesOpenDirectory(t *testing.T) {
	b := New("directory", WithFailureThreshold(1))
	b.RecordFailure()
	require.True(t, b.IsOpen())

	b.Reset()
	assert.Equal(t, StateClosed, b.State())

	unavailable, change := b.RecordFailure()
	assert.True(t, unavailable, "counters start over after a reset")
	assert.True(t, change.Opened)
}

func TestBreaker_AllowHonoursCooldown(t *testing.T) {
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	b := New("directory",
		WithFailureThreshold(1),
		WithCooldown(30*time.Second),
		WithClock(func() time.Time { return now }),
	)

	assert.True(t, b.Allow())
	b.RecordFailure()
	assert.False(t, b.Allow(), "directory calls rejected during cooldown")

	now = now.Add(29 * time.Second)
	assert.False(t, b.Allow())

	now = now.Add(2 * time.Second)
	assert.True(t, b.Allow(), "trial call allowed once cooldown elapsed")

	b.RecordFailure()
	assert.False(t, b.Allow(), "failed trial call restarts the cooldown")

	now = now.Add(31 * time.Second)
	require.True(t, b.Allow())
	b.RecordSuccess()
	b.RecordSuccess()
	assert.True(t, b.Allow())
	assert.False(t, b.IsOpen())
}
