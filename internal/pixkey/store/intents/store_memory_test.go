package intents

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pixkeys/internal/pixkey/models"
	id "pixkeys/pkg/domain"
	"pixkeys/pkg/platform/sentinel"
)

func pendingIntent(requestID string, at time.Time) *models.Intent {
	keyID := id.NewKeyID()
	return &models.Intent{
		RequestID: requestID,
		KeyID:     keyID,
		Trigger:   models.TriggerDelete,
		FromState: models.StateReady,
		ToState:   models.StateDeleting,
		Call: models.DirectoryCall{
			RequestID: requestID,
			Action:    models.ActionDelete,
			KeyID:     keyID,
		},
		CreatedAt: at,
		UpdatedAt: at,
	}
}

func TestInMemory_UpsertCountsAttempts(t *testing.T) {
	ctx := context.Background()
	s := NewInMemory()
	t0 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	stored, err := s.Upsert(ctx, pendingIntent("req-1", t0))
	require.NoError(t, err)
	assert.Equal(t, 1, stored.Attempts)
	assert.Equal(t, models.IntentPending, stored.Status)

	retry := pendingIntent("req-1", t0.Add(time.Minute))
	stored, err = s.Upsert(ctx, retry)
	require.NoError(t, err)
	assert.Equal(t, 2, stored.Attempts)
	assert.Equal(t, t0, stored.CreatedAt, "retry keeps the original record")

	t.Run("a failed intent is reopened by a retry", func(t *testing.T) {
		require.NoError(t, s.Resolve(ctx, "req-1", models.IntentFailed, "rejected", t0))
		stored, err := s.Upsert(ctx, retry)
		require.NoError(t, err)
		assert.Equal(t, models.IntentPending, stored.Status)
	})

	t.Run("a committed intent stays committed", func(t *testing.T) {
		require.NoError(t, s.Resolve(ctx, "req-1", models.IntentCommitted, "", t0))
		stored, err := s.Upsert(ctx, retry)
		require.NoError(t, err)
		assert.Equal(t, models.IntentCommitted, stored.Status)
	})
}

func TestInMemory_ListPending(t *testing.T) {
	ctx := context.Background()
	s := NewInMemory()
	t0 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	_, err := s.Upsert(ctx, pendingIntent("old", t0))
	require.NoError(t, err)
	_, err = s.Upsert(ctx, pendingIntent("older", t0.Add(-time.Minute)))
	require.NoError(t, err)
	_, err = s.Upsert(ctx, pendingIntent("fresh", t0.Add(time.Hour)))
	require.NoError(t, err)
	_, err = s.Upsert(ctx, pendingIntent("done", t0))
	require.NoError(t, err)
	require.NoError(t, s.Resolve(ctx, "done", models.IntentCommitted, "", t0))

	pending, err := s.ListPending(ctx, t0.Add(time.Second), 10)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, "older", pending[0].RequestID)
	assert.Equal(t, "old", pending[1].RequestID)
}

func TestInMemory_ResolveMissing(t *testing.T) {
	err := NewInMemory().Resolve(context.Background(), "nope", models.IntentFailed, "", time.Now())
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}
