package service

import (
	"context"
	"errors"
	"time"

	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"

	"pixkeys/internal/pixkey/models"
)

// =============================================================================
// Deadline Sweep
// =============================================================================

func (s *ServiceSuite) TestSweepExpiresOverdueKeys() {
	claimed := s.readyKey()
	_, err := s.service.StartPortabilityClaim(s.ctx, s.owner, claimed.ID, counterparty)
	s.Require().NoError(err)
	unconfirmed, err := s.service.CreateKey(s.ctx, s.owner, models.KeyTypeEmail, "slow@example.com")
	s.Require().NoError(err)

	s.Run("nothing is due yet", func() {
		n, err := s.service.SweepOnce(s.ctx)
		s.Require().NoError(err)
		s.Zero(n)
	})

	s.Run("claim deadline cancels the claim", func() {
		s.advance(testPolicy.ClaimOpenTimeout + time.Minute)
		n, err := s.service.SweepOnce(s.ctx)
		s.Require().NoError(err)
		s.Equal(1, n)

		s.Equal(models.StateCanceled, s.stored(claimed.ID).State)
		s.Equal(models.StatePending, s.stored(unconfirmed.ID).State)

		cancels := s.directory.CallsFor(models.ActionCancelClaim)
		s.Require().Len(cancels, 1)
		s.Equal(models.ReasonDeadlineExpired, cancels[0].Reason)
	})

	s.Run("confirmation deadline expires the pending key", func() {
		s.advance(defaultPendingTTL)
		n, err := s.service.SweepOnce(s.ctx)
		s.Require().NoError(err)
		s.Equal(1, n)
		s.Equal(models.StateNotConfirmed, s.stored(unconfirmed.ID).State)
	})

	s.Run("a second pass finds nothing", func() {
		n, err := s.service.SweepOnce(s.ctx)
		s.Require().NoError(err)
		s.Zero(n)
	})

	s.Equal(float64(1), promtestutil.ToFloat64(s.metrics.Expirations.WithLabelValues(string(models.StatePending))))
}

func (s *ServiceSuite) TestSweepCommitsWhenDirectoryIsDown() {
	key := s.readyKey()
	_, err := s.service.StartPortabilityClaim(s.ctx, s.owner, key.ID, counterparty)
	s.Require().NoError(err)

	s.directory.FailNext()
	s.advance(testPolicy.ClaimOpenTimeout + time.Minute)
	n, err := s.service.SweepOnce(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, n)
	s.Equal(models.StateCanceled, s.stored(key.ID).State)
	s.Empty(s.directory.CallsFor(models.ActionCancelClaim))

	s.advance(time.Minute)
	report, err := s.service.ReconcileOnce(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, report.Committed)
	s.Len(s.directory.CallsFor(models.ActionCancelClaim), 1)
}

func (s *ServiceSuite) TestSweepAutoConfirmsUnansweredPortabilityRequest() {
	key := s.donorClaim(s.readyKey(), models.ClaimPortability, "ext-5")

	s.advance(testPolicy.ResolutionPeriod + time.Minute)
	n, err := s.service.SweepOnce(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, n)

	expired := s.stored(key.ID)
	s.Equal(models.StatePortabilityRequestAutoConfirmed, expired.State)
	confirms := s.directory.CallsFor(models.ActionConfirmClaim)
	s.Require().Len(confirms, 1)
	s.Equal("ext-5", confirms[0].ClaimID)
}

// startedPortability drives a new claim of ours up to PORTABILITY_STARTED.
func (s *ServiceSuite) startedPortability() *models.Key {
	s.T().Helper()
	key := s.readyKey()
	pending, err := s.service.StartPortabilityClaim(s.ctx, s.owner, key.ID, counterparty)
	s.Require().NoError(err)

	opened := s.callback(key.ID, models.CallbackClaimOpened)
	opened.ClaimID = pending.ActiveClaim.ID
	opened.ClaimKind = models.ClaimPortability
	opened.Role = models.RoleClaimer
	s.Require().Equal(models.StatePortabilityOpened, s.deliver(opened).Key.State)

	started, err := s.service.ApprovePortabilityStart(s.ctx, s.owner, key.ID)
	s.Require().NoError(err)
	s.Require().Equal(models.StatePortabilityStarted, started.State)
	return started
}

func (s *ServiceSuite) TestSweepSettlesClaimCompletedByDirectory() {
	key := s.startedPortability()

	s.advance(365 * 24 * time.Hour)
	n, err := s.service.SweepOnce(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, n)

	settled := s.stored(key.ID)
	s.Equal(models.StateReady, settled.State)
	s.Nil(settled.ActiveClaim)
	s.Contains(s.eventTypes(key.ID), string(models.EventPortabilityCompleted))
	s.Empty(s.directory.CallsFor(models.ActionCancelClaim))
}

func (s *ServiceSuite) TestSweepCancelsClaimLeftOpenPastSettleTimeout() {
	key := s.startedPortability()
	s.directory.SetClaimStatus(key.ActiveClaim.ID, models.ClaimOutcomeOpen)

	s.Run("not due before the settle timeout", func() {
		s.advance(testPolicy.SettleTimeout - time.Minute)
		n, err := s.service.SweepOnce(s.ctx)
		s.Require().NoError(err)
		s.Zero(n)
	})

	s.Run("due afterwards", func() {
		s.advance(2 * time.Minute)
		n, err := s.service.SweepOnce(s.ctx)
		s.Require().NoError(err)
		s.Equal(1, n)

		s.Equal(models.StatePortabilityCanceled, s.stored(key.ID).State)
		cancels := s.directory.CallsFor(models.ActionCancelClaim)
		s.Require().Len(cancels, 1)
		s.Equal(key.ActiveClaim.ID, cancels[0].ClaimID)
		s.Equal(models.ReasonDeadlineExpired, cancels[0].Reason)
	})
}

func (s *ServiceSuite) TestSweepSettlesCancelingClaim() {
	key := s.startedPortability()
	canceling, err := s.service.CancelPortabilityInProgress(s.ctx, s.owner, key.ID, models.ReasonFraud)
	s.Require().NoError(err)
	s.Require().Equal(models.StatePortabilityCanceling, canceling.State)

	s.advance(testPolicy.SettleTimeout + time.Minute)
	n, err := s.service.SweepOnce(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, n)
	s.Equal(models.StatePortabilityCanceled, s.stored(key.ID).State)

	again, err := s.service.CancelPortabilityInProgress(s.ctx, s.owner, key.ID, models.ReasonFraud)
	s.Require().NoError(err)
	s.Equal(models.StatePortabilityCanceled, again.State)
}

func (s *ServiceSuite) TestSweepClosesReleasedKey() {
	key := s.donorClaim(s.readyKey(), models.ClaimOwnership, "ext-6")
	closing, err := s.service.ReleaseClaimedKey(s.ctx, s.owner, key.ID)
	s.Require().NoError(err)
	s.Require().Equal(models.StateClaimClosing, closing.State)

	s.advance(testPolicy.SettleTimeout + time.Minute)
	n, err := s.service.SweepOnce(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, n)
	s.Equal(models.StateClaimClosed, s.stored(key.ID).State)
	s.Contains(s.eventTypes(key.ID), string(models.EventKeyReleased))
}

func (s *ServiceSuite) TestSweepRetriesSettleLookupLater() {
	key := s.startedPortability()
	s.advance(testPolicy.SettleTimeout + time.Minute)

	s.directory.FailNext()
	n, err := s.service.SweepOnce(s.ctx)
	s.Require().NoError(err)
	s.Zero(n)
	unchanged := s.stored(key.ID)
	s.Equal(models.StatePortabilityStarted, unchanged.State)
	s.Equal(key.Version, unchanged.Version)

	n, err = s.service.SweepOnce(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, n)
	s.Equal(models.StateReady, s.stored(key.ID).State)
}

func (s *ServiceSuite) TestCancelAfterDeadlineSweepIsNoOp() {
	s.Run("portability", func() {
		key := s.readyKey()
		_, err := s.service.StartPortabilityClaim(s.ctx, s.owner, key.ID, counterparty)
		s.Require().NoError(err)

		s.advance(testPolicy.ClaimOpenTimeout + time.Minute)
		_, err = s.service.SweepOnce(s.ctx)
		s.Require().NoError(err)
		swept := s.stored(key.ID)
		s.Require().Equal(models.StateCanceled, swept.State)
		cancels := len(s.directory.CallsFor(models.ActionCancelClaim))

		again, err := s.service.CancelPortabilityStart(s.ctx, s.owner, key.ID, models.ReasonUserRequested)
		s.Require().NoError(err)
		s.Equal(models.StateCanceled, again.State)
		s.Equal(swept.Version, again.Version)
		s.Len(s.directory.CallsFor(models.ActionCancelClaim), cancels)
	})

	s.Run("ownership", func() {
		key := s.readyKey()
		_, err := s.service.StartOwnershipClaim(s.ctx, s.owner, key.ID, counterparty)
		s.Require().NoError(err)

		s.advance(testPolicy.ClaimOpenTimeout + time.Minute)
		_, err = s.service.SweepOnce(s.ctx)
		s.Require().NoError(err)
		swept := s.stored(key.ID)
		s.Require().Equal(models.StateCanceled, swept.State)
		cancels := len(s.directory.CallsFor(models.ActionCancelClaim))

		again, err := s.service.CancelOwnershipStart(s.ctx, s.owner, key.ID, models.ReasonUserRequested)
		s.Require().NoError(err)
		s.Equal(models.StateCanceled, again.State)
		s.Equal(swept.Version, again.Version)
		s.Len(s.directory.CallsFor(models.ActionCancelClaim), cancels)
	})
}

func (s *ServiceSuite) TestExpireLeavesKeyWithinDeadline() {
	key, err := s.service.CreateKey(s.ctx, s.owner, models.KeyTypeEmail, "early@example.com")
	s.Require().NoError(err)

	got, err := s.service.Expire(s.ctx, key.ID)
	s.Require().NoError(err)
	s.Equal(models.StatePending, got.State)
	s.Equal(key.Version, got.Version)
}

func (s *ServiceSuite) TestRunSweeperStopsWithContext() {
	key, err := s.service.CreateKey(s.ctx, s.owner, models.KeyTypeEmail, "ticker@example.com")
	s.Require().NoError(err)
	s.advance(defaultPendingTTL + time.Minute)

	ctx, cancel := context.WithCancel(s.ctx)
	done := make(chan error, 1)
	go func() { done <- s.service.RunSweeper(ctx, 10*time.Millisecond) }()

	s.Eventually(func() bool {
		got, err := s.keys.Load(s.ctx, key.ID)
		return err == nil && got.State == models.StateNotConfirmed
	}, time.Second, 10*time.Millisecond)

	cancel()
	s.True(errors.Is(<-done, context.Canceled))
}
