package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"pixkeys/internal/directory/fake"
	"pixkeys/internal/pixkey/adapters"
	"pixkeys/internal/pixkey/mocks"
	"pixkeys/internal/pixkey/models"
	"pixkeys/internal/pixkey/store/intents"
	"pixkeys/internal/pixkey/store/keys"
	id "pixkeys/pkg/domain"
	dErrors "pixkeys/pkg/domain-errors"
	"pixkeys/pkg/platform/outbox/store/memory"
	"pixkeys/pkg/platform/tx"
)

// =============================================================================
// Directory Callbacks
// =============================================================================

func (s *ServiceSuite) TestCallbackValidation() {
	s.Run("event id is required", func() {
		cb := s.callback(id.NewKeyID(), models.CallbackEntryCreated)
		cb.EventID = id.EventID(uuid.Nil)
		_, err := s.service.OnDirectoryCallback(s.ctx, cb)
		s.requireCode(err, dErrors.CodeValidation)
	})

	s.Run("unknown claim status is rejected", func() {
		cb := s.callback(s.readyKey().ID, models.CallbackClaimStatus)
		cb.Status = "SOMETHING"
		_, err := s.service.OnDirectoryCallback(s.ctx, cb)
		s.requireCode(err, dErrors.CodeValidation)
	})

	s.Run("unknown key fails and can be redelivered", func() {
		cb := s.callback(id.NewKeyID(), models.CallbackEntryCreated)
		_, err := s.service.OnDirectoryCallback(s.ctx, cb)
		s.requireCode(err, dErrors.CodeNotFound)

		_, err = s.service.OnDirectoryCallback(s.ctx, cb)
		s.requireCode(err, dErrors.CodeNotFound)
	})
}

func (s *ServiceSuite) TestDuplicateCallbacks() {
	key := s.readyKey()

	s.Run("same delivery twice", func() {
		cb := s.callback(key.ID, models.CallbackEntryDeleted)
		_, err := s.service.DeleteKey(s.ctx, s.owner, key.ID, "")
		s.Require().NoError(err)

		first := s.deliver(cb)
		s.Equal(OutcomeApplied, first.Outcome)
		second := s.deliver(cb)
		s.Equal(OutcomeDuplicate, second.Outcome)
		s.Equal(first.Key.Version, second.Key.Version)
	})

	s.Run("new delivery of an applied notification", func() {
		res := s.deliver(s.callback(key.ID, models.CallbackEntryDeleted))
		s.Equal(OutcomeDuplicate, res.Outcome)
		s.Equal(models.StateDeleted, res.Key.State)
	})

	s.Equal(float64(2), promtestutil.ToFloat64(s.metrics.Callbacks.WithLabelValues(string(models.CallbackEntryDeleted), string(OutcomeDuplicate))))
}

func (s *ServiceSuite) TestStaleCallbacks() {
	key := s.readyKey()
	pending, err := s.service.StartPortabilityClaim(s.ctx, s.owner, key.ID, counterparty)
	s.Require().NoError(err)

	s.Run("other claim id", func() {
		cb := s.callback(key.ID, models.CallbackClaimOpened)
		cb.ClaimID = "claim-99"
		cb.Role = models.RoleClaimer
		res := s.deliver(cb)
		s.Equal(OutcomeStale, res.Outcome)
		s.Equal(models.StatePortabilityPending, res.Key.State)
	})

	s.Run("claim opened before the active one", func() {
		cb := s.callback(key.ID, models.CallbackClaimOpened)
		cb.Role = models.RoleClaimer
		cb.ClaimOpenedAt = pending.ActiveClaim.OpenedAt.Add(-time.Hour)
		res := s.deliver(cb)
		s.Equal(OutcomeStale, res.Outcome)
	})

	s.Run("transition not allowed in the current state", func() {
		cb := s.callback(key.ID, models.CallbackClaimConfirmedByCounterparty)
		cb.ClaimID = pending.ActiveClaim.ID
		res := s.deliver(cb)
		s.Equal(OutcomeStale, res.Outcome)
		s.Equal(pending.Version, res.Key.Version)
	})

	s.Run("callback for an expired claim", func() {
		s.advance(testPolicy.ClaimOpenTimeout + time.Minute)
		cb := s.callback(key.ID, models.CallbackClaimOpened)
		cb.ClaimID = pending.ActiveClaim.ID
		cb.Role = models.RoleClaimer
		res := s.deliver(cb)
		s.Equal(OutcomeStale, res.Outcome)
		s.Equal(models.StateCanceled, res.Key.State)
	})
}

func (s *ServiceSuite) TestOwnershipConflictReports() {
	key := s.readyKey()
	pending, err := s.service.StartOwnershipClaim(s.ctx, s.owner, key.ID, counterparty)
	s.Require().NoError(err)

	conflict := s.callback(key.ID, models.CallbackClaimStatus)
	conflict.ClaimID = pending.ActiveClaim.ID
	conflict.Status = models.ClaimStatusConflict
	s.Equal(models.StateOwnershipConflict, s.deliver(conflict).Key.State)

	waiting := s.callback(key.ID, models.CallbackClaimStatus)
	waiting.ClaimID = pending.ActiveClaim.ID
	waiting.Status = models.ClaimStatusWaiting
	s.Equal(models.StateOwnershipWaiting, s.deliver(waiting).Key.State)

	denied := s.callback(key.ID, models.CallbackClaimDeniedByCounterparty)
	denied.ClaimID = pending.ActiveClaim.ID
	res := s.deliver(denied)
	s.Equal(models.StateOwnershipCanceled, res.Key.State)
	s.Nil(res.Key.ActiveClaim)
}

func (s *ServiceSuite) TestDonorClaimWithdrawnByDirectory() {
	key := s.donorClaim(s.readyKey(), models.ClaimOwnership, "ext-9")

	expired := s.callback(key.ID, models.CallbackClaimExpiredByDirectory)
	expired.ClaimID = "ext-9"
	res := s.deliver(expired)
	s.Equal(OutcomeApplied, res.Outcome)
	s.Equal(models.StateReady, res.Key.State)
	s.Equal(models.ClaimOwnership, res.Key.LastClaimKind)
}

func (s *ServiceSuite) TestClaimEndedBeforeItOpened() {
	key := s.readyKey()

	canceled := s.callback(key.ID, models.CallbackClaimCanceled)
	canceled.ClaimID = "ext-1"
	res := s.deliver(canceled)
	s.Equal(OutcomeStale, res.Outcome)
	s.Equal(models.StateReady, res.Key.State)
	s.True(s.stored(key.ID).ClaimResolved("ext-1"))

	s.Run("late open for the ended claim is dropped", func() {
		opened := s.callback(key.ID, models.CallbackClaimOpened)
		opened.ClaimID = "ext-1"
		opened.ClaimKind = models.ClaimOwnership
		opened.Role = models.RoleDonor
		opened.Counterparty = id.ISPB("33333333")
		opened.ClaimOpenedAt = s.clock()
		res := s.deliver(opened)
		s.Equal(OutcomeStale, res.Outcome)
		s.Equal(models.StateReady, s.stored(key.ID).State)
		s.Nil(s.stored(key.ID).ActiveClaim)
	})

	s.Run("redelivered end is a duplicate", func() {
		again := s.callback(key.ID, models.CallbackClaimCanceled)
		again.ClaimID = "ext-1"
		s.Equal(OutcomeDuplicate, s.deliver(again).Outcome)
	})

	s.Run("nothing expires later", func() {
		s.advance(testPolicy.ResolutionPeriod + time.Minute)
		n, err := s.service.SweepOnce(s.ctx)
		s.Require().NoError(err)
		s.Zero(n)
		s.Equal(models.StateReady, s.stored(key.ID).State)
		s.NotContains(s.eventTypes(key.ID), string(models.EventClaimExpired))
	})

	s.Run("a different claim still opens", func() {
		claimed := s.donorClaim(s.stored(key.ID), models.ClaimOwnership, "ext-2")
		s.Equal(models.StateClaimPending, claimed.State)
		s.Equal("ext-2", claimed.ActiveClaim.ID)
	})
}

func TestCallbackDelivery_MarkedAfterCommit(t *testing.T) {
	ctx := context.Background()
	owner := id.OwnerID(uuid.New())

	setup := func(t *testing.T) (*Service, *keys.InMemory, *mocks.MockCallbackDeduper, *models.Key) {
		ctrl := gomock.NewController(t)
		deduper := mocks.NewMockCallbackDeduper(ctrl)
		store := keys.NewInMemory()
		svc := New(store, intents.NewInMemory(), adapters.NewOutboxPublisher(memory.NewInMemoryStore()),
			fake.New(), newCodeBook(), tx.NewMemory(), testPolicy, WithCallbackDeduper(deduper))

		key, err := svc.CreateKey(ctx, owner, models.KeyTypeRandom, "")
		require.NoError(t, err)
		require.Equal(t, models.StateConfirmed, key.State)
		return svc, store, deduper, key
	}
	created := func(keyID id.KeyID) models.DirectoryCallback {
		return models.DirectoryCallback{
			EventID: id.EventID(uuid.New()),
			Type:    models.CallbackEntryCreated,
			KeyID:   keyID,
		}
	}

	t.Run("delivery is marked once the key is committed", func(t *testing.T) {
		svc, store, deduper, key := setup(t)
		cb := created(key.ID)
		gomock.InOrder(
			deduper.EXPECT().Seen(gomock.Any(), cb.EventID).Return(false, nil),
			deduper.EXPECT().MarkSeen(gomock.Any(), cb.EventID).DoAndReturn(func(ctx context.Context, _ id.EventID) error {
				committed, err := store.Load(ctx, key.ID)
				require.NoError(t, err)
				assert.Equal(t, models.StateReady, committed.State)
				return nil
			}),
		)

		res, err := svc.OnDirectoryCallback(ctx, cb)
		require.NoError(t, err)
		assert.Equal(t, OutcomeApplied, res.Outcome)
	})

	t.Run("failed delivery is not marked", func(t *testing.T) {
		svc, _, deduper, _ := setup(t)
		cb := created(id.NewKeyID())
		deduper.EXPECT().Seen(gomock.Any(), cb.EventID).Return(false, nil).Times(2)

		_, err := svc.OnDirectoryCallback(ctx, cb)
		assert.Equal(t, dErrors.CodeNotFound, dErrors.CodeOf(err))
		_, err = svc.OnDirectoryCallback(ctx, cb)
		assert.Equal(t, dErrors.CodeNotFound, dErrors.CodeOf(err))
	})

	t.Run("seen delivery leaves the key alone", func(t *testing.T) {
		svc, store, deduper, key := setup(t)
		cb := created(key.ID)
		deduper.EXPECT().Seen(gomock.Any(), cb.EventID).Return(true, nil)

		res, err := svc.OnDirectoryCallback(ctx, cb)
		require.NoError(t, err)
		assert.Equal(t, OutcomeDuplicate, res.Outcome)
		unchanged, err := store.Load(ctx, key.ID)
		require.NoError(t, err)
		assert.Equal(t, models.StateConfirmed, unchanged.State)
	})

	t.Run("mark failure keeps the applied result", func(t *testing.T) {
		svc, _, deduper, key := setup(t)
		cb := created(key.ID)
		gomock.InOrder(
			deduper.EXPECT().Seen(gomock.Any(), cb.EventID).Return(false, nil),
			deduper.EXPECT().MarkSeen(gomock.Any(), cb.EventID).Return(errors.New("connection refused")),
		)

		res, err := svc.OnDirectoryCallback(ctx, cb)
		require.NoError(t, err)
		assert.Equal(t, OutcomeApplied, res.Outcome)
		assert.Equal(t, models.StateReady, res.Key.State)
	})
}
