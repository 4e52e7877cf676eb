package service

import (
	"context"
	"errors"
	"time"

	"pixkeys/internal/pixkey/models"
	"pixkeys/internal/pixkey/ports"
	dErrors "pixkeys/pkg/domain-errors"
	"pixkeys/pkg/platform/sentinel"
)

// ReconcileReport counts what one reconciliation pass did.
type ReconcileReport struct {
	Applied   int
	Committed int
	Stale     int
	Failed    int
	Resent    int
	Pending   int
}

// ReconcileOnce resolves pending intents whose calls went unanswered. The
// directory is asked what it knows about each request id: accepted calls
// are applied if the key has not moved on, unknown calls are resent with
// the same request id, rejected calls fail.
func (s *Service) ReconcileOnce(ctx context.Context) (ReconcileReport, error) {
	var report ReconcileReport
	now := s.now(ctx)
	pending, err := s.intents.ListPending(ctx, now.Add(-s.reconcileGrace), defaultReconcileBatch)
	if err != nil {
		return report, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list pending intents")
	}
	for _, intent := range pending {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		outcome := s.reconcile(ctx, intent)
		s.metrics.IncrementReconciled(outcome)
		switch outcome {
		case "applied":
			report.Applied++
		case "committed":
			report.Committed++
		case "stale":
			report.Stale++
		case "failed":
			report.Failed++
		case "resent":
			report.Resent++
		default:
			report.Pending++
		}
	}
	return report, nil
}

func (s *Service) reconcile(ctx context.Context, intent *models.Intent) string {
	status, ack, err := s.directory.RequestStatus(ctx, intent.RequestID)
	if err != nil {
		s.logger.WarnContext(ctx, "directory status lookup failed",
			"request_id", intent.RequestID,
			"error", err,
		)
		return "pending"
	}

	switch status {
	case models.RequestAccepted:
		return s.reconcileAccepted(ctx, intent, ack)
	case models.RequestRejected:
		s.rejected(ctx, intent, "rejected by directory")
		return "failed"
	}

	if intent.Attempts >= s.reconcileAttempts {
		s.resolveIntent(ctx, intent, models.IntentFailed, "directory never acknowledged the request")
		return "failed"
	}
	retry := *intent
	retry.UpdatedAt = s.now(ctx)
	if _, err := s.intents.Upsert(ctx, &retry); err != nil {
		s.logger.ErrorContext(ctx, "failed to record intent retry",
			"request_id", intent.RequestID,
			"error", err,
		)
		return "pending"
	}
	ack, err = ports.Send(ctx, s.directory, intent.Call)
	if err != nil {
		if errors.Is(err, ports.ErrDirectoryRejected) {
			s.rejected(ctx, intent, err.Error())
			return "failed"
		}
		s.logger.WarnContext(ctx, "intent resend failed",
			"request_id", intent.RequestID,
			"attempts", intent.Attempts+1,
			"error", err,
		)
		return "resent"
	}
	return s.reconcileAccepted(ctx, intent, ack)
}

// reconcileAccepted applies the intent's transition if the key still sits
// where the intent left it.
func (s *Service) reconcileAccepted(ctx context.Context, intent *models.Intent, ack models.Ack) string {
	key, err := s.keys.Load(ctx, intent.KeyID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			s.resolveIntent(ctx, intent, models.IntentStale, "key no longer exists")
			return "stale"
		}
		s.logger.ErrorContext(ctx, "failed to load key for intent",
			"request_id", intent.RequestID,
			"error", err,
		)
		return "pending"
	}

	switch {
	case intent.FromState == intent.ToState:
		s.resolveIntent(ctx, intent, models.IntentCommitted, "")
		return "committed"
	case key.State == intent.FromState && key.Version == intent.FromVersion:
		if err := s.replay(ctx, key, intent, ack); err != nil {
			s.logger.WarnContext(ctx, "failed to apply acknowledged intent",
				"request_id", intent.RequestID,
				"key_id", key.ID,
				"error", err,
			)
			return "pending"
		}
		return "applied"
	case key.State == intent.ToState && key.Version > intent.FromVersion:
		s.resolveIntent(ctx, intent, models.IntentCommitted, "")
		return "committed"
	}

	s.resolveIntent(ctx, intent, models.IntentStale, "key moved to "+string(key.State))
	if isProposal(intent.Call.Action) {
		s.compensate(ctx, intent, ack)
	}
	return "stale"
}

func (s *Service) replay(ctx context.Context, key *models.Key, intent *models.Intent, ack models.Ack) error {
	in := models.Input{
		Trigger:      intent.Trigger,
		Actor:        intent.Actor,
		Now:          s.now(ctx),
		Reason:       intent.Call.Reason,
		Counterparty: intent.Call.Counterparty,
	}
	d, err := s.machine.Decide(key, in)
	if err != nil {
		return err
	}
	if d.NoOp || d.To != intent.ToState {
		return dErrors.Newf(dErrors.CodeInvalidTransition, "intent no longer applies in state %s", key.State)
	}
	_, err = s.transition(ctx, key, d, in, execOptions{skipCode: true, ack: &ack, intent: intent})
	if errors.Is(err, errVersionConflict) {
		return dErrors.New(dErrors.CodeVersionConflict, "key changed while applying intent")
	}
	return err
}

// compensate withdraws a claim the directory opened for a proposal we
// could not record.
func (s *Service) compensate(ctx context.Context, intent *models.Intent, ack models.Ack) {
	call := intent.Call
	call.RequestID = models.CompensationRequestID(intent.RequestID)
	call.Action = models.ActionCancelClaim
	call.ClaimID = ack.ClaimID
	call.ProposalID = intent.RequestID
	call.Reason = models.ReasonDefaultOperation
	if _, err := s.directory.CancelClaim(ctx, call); err != nil {
		s.logger.WarnContext(ctx, "compensating cancel failed",
			"request_id", intent.RequestID,
			"claim_id", ack.ClaimID,
			"error", err,
		)
		return
	}
	s.logger.InfoContext(ctx, "compensating cancel sent",
		"request_id", intent.RequestID,
		"claim_id", ack.ClaimID,
	)
}

// rejected fails intent. A refused registration also fails its key.
func (s *Service) rejected(ctx context.Context, intent *models.Intent, detail string) {
	s.resolveIntent(ctx, intent, models.IntentFailed, detail)
	if intent.Trigger != models.TriggerCreate {
		return
	}
	if _, err := s.failCreated(ctx, intent.KeyID); err != nil {
		s.logger.ErrorContext(ctx, "failed to mark rejected key",
			"key_id", intent.KeyID,
			"error", err,
		)
	}
}

func (s *Service) resolveIntent(ctx context.Context, intent *models.Intent, status models.IntentStatus, detail string) {
	if err := s.intents.Resolve(ctx, intent.RequestID, status, detail, s.now(ctx)); err != nil {
		s.logger.ErrorContext(ctx, "failed to resolve intent",
			"request_id", intent.RequestID,
			"status", status,
			"error", err,
		)
		return
	}
	s.logger.InfoContext(ctx, "intent reconciled",
		"request_id", intent.RequestID,
		"key_id", intent.KeyID,
		"status", status,
		"detail", detail,
	)
}

// RunReconciler calls ReconcileOnce every interval until ctx is done.
func (s *Service) RunReconciler(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			report, err := s.ReconcileOnce(ctx)
			if err != nil && !errors.Is(err, context.Canceled) {
				s.logger.ErrorContext(ctx, "intent reconciliation failed", "error", err)
				continue
			}
			if report != (ReconcileReport{}) {
				s.logger.InfoContext(ctx, "intent reconciliation pass",
					"applied", report.Applied,
					"committed", report.Committed,
					"stale", report.Stale,
					"failed", report.Failed,
					"resent", report.Resent,
					"pending", report.Pending,
				)
			}
		}
	}
}
