package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pixkeys/internal/verification/metrics"
	"pixkeys/internal/verification/models"
	pixmodels "pixkeys/internal/pixkey/models"
	id "pixkeys/pkg/domain"
)

type captureSender struct {
	topic   string
	key     []byte
	value   []byte
	headers map[string]string
}

func (s *captureSender) Send(_ context.Context, topic string, key, value []byte, headers map[string]string) error {
	s.topic, s.key, s.value, s.headers = topic, key, value, headers
	return nil
}

type recordingNotifier struct {
	mu    sync.Mutex
	notes []models.Notification
	err   error
}

func (r *recordingNotifier) Notify(_ context.Context, n models.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.notes = append(r.notes, n)
	return nil
}

func (r *recordingNotifier) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.notes)
}

func note() models.Notification {
	return models.Notification{
		KeyID:       id.KeyID(uuid.New()),
		Purpose:     pixmodels.CodeKeyConfirmation,
		Destination: "ana@example.com",
		Code:        "04821",
		ExpiresAt:   time.Date(2026, 1, 1, 12, 10, 0, 0, time.UTC),
	}
}

func TestKafkaNotifier(t *testing.T) {
	sender := &captureSender{}
	n := note()

	require.NoError(t, NewKafkaNotifier(sender, "pix.code.notifications").Notify(context.Background(), n))
	assert.Equal(t, "pix.code.notifications", sender.topic)
	assert.Equal(t, n.KeyID.String(), string(sender.key))
	assert.Equal(t, "KEY_CONFIRMATION", sender.headers["purpose"])

	var decoded models.Notification
	require.NoError(t, json.Unmarshal(sender.value, &decoded))
	assert.Equal(t, n, decoded)
}

func TestAsync(t *testing.T) {
	t.Run("delivers queued notifications", func(t *testing.T) {
		next := &recordingNotifier{}
		async := NewAsync(next, 4, nil, nil)
		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- async.Run(ctx) }()

		require.NoError(t, async.Notify(ctx, note()))
		require.NoError(t, async.Notify(ctx, note()))
		assert.Eventually(t, func() bool { return next.count() == 2 }, time.Second, 5*time.Millisecond)

		cancel()
		assert.ErrorIs(t, <-done, context.Canceled)
	})

	t.Run("full queue drops and counts", func(t *testing.T) {
		m := metrics.New(prometheus.NewRegistry())
		async := NewAsync(&recordingNotifier{}, 1, nil, m)

		require.NoError(t, async.Notify(context.Background(), note()))
		assert.ErrorIs(t, async.Notify(context.Background(), note()), ErrQueueFull)
		assert.Equal(t, 1, async.Len())
		assert.Equal(t, 1.0, promtestutil.ToFloat64(m.NotifyQueueDrops))
	})

	t.Run("delivery failures are counted", func(t *testing.T) {
		m := metrics.New(prometheus.NewRegistry())
		async := NewAsync(&recordingNotifier{err: errors.New("smtp down")}, 1, nil, m)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go func() { _ = async.Run(ctx) }()

		require.NoError(t, async.Notify(ctx, note()))
		assert.Eventually(t, func() bool {
			return promtestutil.ToFloat64(m.NotifyFailures) == 1
		}, time.Second, 5*time.Millisecond)
	})
}

func TestLogNotifier_MasksDestination(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	err := NewLogNotifier(logger).Notify(context.Background(), models.Notification{
		KeyID:       id.KeyID(uuid.New()),
		Purpose:     pixmodels.CodeKeyConfirmation,
		Destination: "ana@example.com",
		Code:        "123456",
	})
	require.NoError(t, err)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "a***@example.com", entry["destination"])
	assert.Equal(t, "123456", entry["code"])
}
