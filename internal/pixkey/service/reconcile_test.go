package service

import (
	"time"

	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"

	"pixkeys/internal/pixkey/models"
	dErrors "pixkeys/pkg/domain-errors"
)

// =============================================================================
// Intent Reconciliation
// =============================================================================

func (s *ServiceSuite) TestReconcileAppliesLostAck() {
	key := s.readyKey()
	requestID := models.RequestIDFor(key, models.ActionProposePortabilityClaim)
	s.directory.LoseNextAck()

	_, err := s.service.StartPortabilityClaim(s.ctx, s.owner, key.ID, counterparty)
	s.requireCode(err, dErrors.CodeDirectoryUnavailable)
	s.Equal(models.StateReady, s.stored(key.ID).State)

	s.Run("intents inside the grace period are left alone", func() {
		report, err := s.service.ReconcileOnce(s.ctx)
		s.Require().NoError(err)
		s.Equal(ReconcileReport{}, report)
	})

	s.advance(time.Minute)
	report, err := s.service.ReconcileOnce(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, report.Applied)

	applied := s.stored(key.ID)
	s.Equal(models.StatePortabilityPending, applied.State)
	s.Require().NotNil(applied.ActiveClaim)
	s.Equal("claim-1", applied.ActiveClaim.ID)
	s.Equal(requestID, applied.ActiveClaim.RequestID)

	intent, err := s.intents.Get(s.ctx, requestID)
	s.Require().NoError(err)
	s.Equal(models.IntentCommitted, intent.Status)
	s.Len(s.directory.CallsFor(models.ActionProposePortabilityClaim), 1)
	s.Equal(float64(1), promtestutil.ToFloat64(s.metrics.Reconciled.WithLabelValues("applied")))
}

func (s *ServiceSuite) TestReconcileCompensatesSupersededProposal() {
	key := s.readyKey()
	requestID := models.RequestIDFor(key, models.ActionProposePortabilityClaim)
	s.directory.LoseNextAck()

	_, err := s.service.StartPortabilityClaim(s.ctx, s.owner, key.ID, counterparty)
	s.requireCode(err, dErrors.CodeDirectoryUnavailable)
	_, err = s.service.DeleteKey(s.ctx, s.owner, key.ID, "")
	s.Require().NoError(err)

	s.advance(time.Minute)
	report, err := s.service.ReconcileOnce(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, report.Stale)

	intent, err := s.intents.Get(s.ctx, requestID)
	s.Require().NoError(err)
	s.Equal(models.IntentStale, intent.Status)
	s.Equal(models.StateDeleting, s.stored(key.ID).State)

	cancels := s.directory.CallsFor(models.ActionCancelClaim)
	s.Require().Len(cancels, 1)
	s.Equal(models.CompensationRequestID(requestID), cancels[0].RequestID)
	s.Equal(requestID, cancels[0].ProposalID)
	s.Equal("claim-1", cancels[0].ClaimID)
	s.Equal(models.ReasonDefaultOperation, cancels[0].Reason)
}

func (s *ServiceSuite) TestReconcileResendsUnansweredCreate() {
	s.directory.FailNext()
	key, err := s.service.CreateKey(s.ctx, s.owner, models.KeyTypeRandom, "")
	s.Require().NoError(err)
	s.Equal(models.StateConfirmed, key.State)
	s.Empty(s.directory.CallsFor(models.ActionProposeCreate))

	s.advance(time.Minute)
	report, err := s.service.ReconcileOnce(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, report.Committed)

	calls := s.directory.CallsFor(models.ActionProposeCreate)
	s.Require().Len(calls, 1)
	intent, err := s.intents.Get(s.ctx, calls[0].RequestID)
	s.Require().NoError(err)
	s.Equal(models.IntentCommitted, intent.Status)
	s.Equal(2, intent.Attempts)
}

func (s *ServiceSuite) TestReconcileFailsRejectedCreate() {
	s.directory.FailNext()
	key, err := s.service.CreateKey(s.ctx, s.owner, models.KeyTypeRandom, "")
	s.Require().NoError(err)

	s.directory.Reject(models.ActionProposeCreate)
	s.advance(time.Minute)
	report, err := s.service.ReconcileOnce(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, report.Failed)
	s.Equal(models.StateError, s.stored(key.ID).State)
}

func (s *ServiceSuite) TestReconcileGivesUpAfterMaxAttempts() {
	svc := s.newService(WithReconcilePolicy(time.Second, 2))

	s.directory.FailNext()
	_, err := svc.CreateKey(s.ctx, s.owner, models.KeyTypeRandom, "")
	s.Require().NoError(err)

	s.directory.FailNext()
	s.advance(time.Minute)
	report, err := svc.ReconcileOnce(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, report.Resent)

	s.advance(time.Minute)
	report, err = svc.ReconcileOnce(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, report.Failed)

	pending, err := s.intents.ListPending(s.ctx, s.clock().Add(time.Hour), 10)
	s.Require().NoError(err)
	s.Empty(pending)
}
