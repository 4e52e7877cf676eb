package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pixkeys/pkg/platform/circuit"
	"pixkeys/pkg/platform/outbox"
	"pixkeys/pkg/platform/outbox/store/memory"
	"pixkeys/pkg/platform/tx"
)

type recordingPublisher struct {
	mu        sync.Mutex
	delivered []uuid.UUID
	failOn    map[uuid.UUID]bool
}

func (p *recordingPublisher) Publish(_ context.Context, e outbox.Entry) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failOn[e.ID] {
		return errors.New("broker down")
	}
	p.delivered = append(p.delivered, e.ID)
	return nil
}

func entry(aggregateID string) outbox.Entry {
	return outbox.Entry{
		ID:            uuid.New(),
		AggregateType: "pix_key",
		AggregateID:   aggregateID,
		EventType:     "key_created",
		Payload:       []byte(`{}`),
	}
}

func TestRelay_PublishesAndMarksProcessed(t *testing.T) {
	ctx := context.Background()
	store := memory.NewInMemoryStore()
	pub := &recordingPublisher{}
	relay := NewRelay(store, pub, tx.NewMemory(), WithMetrics(NewMetrics(prometheus.NewRegistry())))

	first, second := entry("a"), entry("b")
	require.NoError(t, store.Append(ctx, first, second))

	n, err := relay.RelayOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []uuid.UUID{first.ID, second.ID}, pub.delivered)

	n, err = relay.RelayOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "processed entries are not relayed twice")
}

func TestRelay_DuplicateAppendIsIgnored(t *testing.T) {
	ctx := context.Background()
	store := memory.NewInMemoryStore()
	e := entry("a")
	require.NoError(t, store.Append(ctx, e))
	require.NoError(t, store.Append(ctx, e))
	assert.Len(t, store.All(), 1)
}

func TestRelay_StopsAtFirstFailure(t *testing.T) {
	ctx := context.Background()
	store := memory.NewInMemoryStore()
	first, second, third := entry("a"), entry("a"), entry("a")
	require.NoError(t, store.Append(ctx, first, second, third))

	pub := &recordingPublisher{failOn: map[uuid.UUID]bool{second.ID: true}}
	relay := NewRelay(store, pub, tx.NewMemory())

	n, err := relay.RelayOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	pending, err := store.FetchUnprocessed(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, second.ID, pending[0].ID)

	delete(pub.failOn, second.ID)
	n, err = relay.RelayOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []uuid.UUID{first.ID, second.ID, third.ID}, pub.delivered)
}

func TestRelay_OpenBreakerSkipsPass(t *testing.T) {
	ctx := context.Background()
	store := memory.NewInMemoryStore()
	e := entry("a")
	require.NoError(t, store.Append(ctx, e))

	now := time.Now()
	breaker := circuit.New("test", circuit.WithFailureThreshold(1), circuit.WithCooldown(time.Minute),
		circuit.WithClock(func() time.Time { return now }))
	pub := &recordingPublisher{failOn: map[uuid.UUID]bool{e.ID: true}}
	relay := NewRelay(store, pub, tx.NewMemory(), WithBreaker(breaker))

	_, err := relay.RelayOnce(ctx)
	require.NoError(t, err)
	assert.True(t, breaker.IsOpen())

	delete(pub.failOn, e.ID)
	n, err := relay.RelayOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "open breaker holds delivery until cooldown")

	now = now.Add(2 * time.Minute)
	n, err = relay.RelayOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
