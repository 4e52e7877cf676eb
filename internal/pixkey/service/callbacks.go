package service

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"pixkeys/internal/pixkey/models"
	dErrors "pixkeys/pkg/domain-errors"
	"pixkeys/pkg/platform/sentinel"
)

// Outcome is what happened to one callback delivery.
type Outcome string

const (
	OutcomeApplied   Outcome = "applied"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeStale     Outcome = "stale"
)

// CallbackResult reports the handling of a directory callback. Key is the
// key after handling, when it exists.
type CallbackResult struct {
	Outcome Outcome
	Key     *models.Key
	Detail  string
}

// OnDirectoryCallback applies an inbound directory notification. Deliveries
// are at-least-once and unordered: repeats come back as duplicate and
// callbacks about superseded claims as stale, neither of which is an error.
func (s *Service) OnDirectoryCallback(ctx context.Context, cb models.DirectoryCallback) (*CallbackResult, error) {
	ctx, span := s.tracer.Start(ctx, "pixkey.callback", trace.WithAttributes(
		attribute.String("pix.key_id", cb.KeyID.String()),
		attribute.String("pix.callback_type", string(cb.Type)),
	))
	defer span.End()

	res, err := s.onDirectoryCallback(ctx, cb)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		s.metrics.IncrementCallback(string(cb.Type), "error")
		return nil, err
	}
	span.SetAttributes(attribute.String("pix.callback_outcome", string(res.Outcome)))
	s.metrics.IncrementCallback(string(cb.Type), string(res.Outcome))
	return res, nil
}

func (s *Service) onDirectoryCallback(ctx context.Context, cb models.DirectoryCallback) (*CallbackResult, error) {
	if cb.EventID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "callback event id is required")
	}
	if cb.KeyID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "callback key id is required")
	}
	trigger, err := cb.Trigger()
	if err != nil {
		return nil, err
	}

	if s.dedupe != nil {
		seen, err := s.dedupe.Seen(ctx, cb.EventID)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check callback delivery")
		}
		if seen {
			s.logger.InfoContext(ctx, "duplicate callback delivery dropped",
				"event_id", cb.EventID,
				"key_id", cb.KeyID,
				"callback_type", cb.Type,
			)
			key, _ := s.keys.Load(ctx, cb.KeyID)
			return &CallbackResult{Outcome: OutcomeDuplicate, Key: key, Detail: "delivery already processed"}, nil
		}
	}

	var res *CallbackResult
	_, err = s.retryOnConflict(ctx, func(ctx context.Context) (*models.Key, error) {
		var err error
		res, err = s.attemptCallback(ctx, cb, trigger)
		if err != nil {
			return nil, err
		}
		return res.Key, nil
	})
	if err != nil {
		return nil, err
	}

	if s.dedupe != nil {
		if err := s.dedupe.MarkSeen(ctx, cb.EventID); err != nil {
			s.logger.WarnContext(ctx, "failed to record callback delivery",
				"event_id", cb.EventID,
				"error", err,
			)
		}
	}
	return res, nil
}

func (s *Service) attemptCallback(ctx context.Context, cb models.DirectoryCallback, trigger models.Trigger) (*CallbackResult, error) {
	now := s.now(ctx)
	key, err := s.load(ctx, cb.KeyID)
	if err != nil {
		return nil, err
	}
	key, err = s.expireIfOverdue(ctx, key, now)
	if err != nil {
		return nil, err
	}

	if key.ClaimResolved(cb.ClaimID) && cb.IsClaimScoped() {
		if cb.EndsClaim() {
			return &CallbackResult{Outcome: OutcomeDuplicate, Key: key, Detail: "claim already resolved"}, nil
		}
		return s.stale(ctx, key, cb, "claim already resolved"), nil
	}
	if reason := s.staleReason(key, cb); reason != "" {
		return s.dropUnknownClaim(ctx, key, cb, reason)
	}

	in := models.Input{
		Trigger:      trigger,
		Now:          now,
		Reason:       cb.Reason,
		Counterparty: cb.Counterparty,
		Callback:     &cb,
	}
	d, err := s.machine.Decide(key, in)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInvalidTransition) {
			return s.dropUnknownClaim(ctx, key, cb, err.Error())
		}
		return nil, err
	}
	if d.NoOp {
		if key.ActiveClaim == nil && cb.EndsClaim() && cb.ClaimID != "" {
			return s.dropUnknownClaim(ctx, key, cb, "claim is not active on this key")
		}
		s.logger.InfoContext(ctx, "callback already applied",
			"event_id", cb.EventID,
			"key_id", key.ID,
			"callback_type", cb.Type,
			"state", key.State,
		)
		return &CallbackResult{Outcome: OutcomeDuplicate, Key: key, Detail: "key already in target state"}, nil
	}

	next, err := s.transition(ctx, key, d, in, execOptions{})
	if err != nil {
		return nil, err
	}
	return &CallbackResult{Outcome: OutcomeApplied, Key: next}, nil
}

// staleReason explains why cb cannot refer to the key's current claim, or
// returns "" when it may.
func (s *Service) staleReason(key *models.Key, cb models.DirectoryCallback) string {
	claim := key.ActiveClaim
	if !cb.IsClaimScoped() || claim == nil {
		return ""
	}
	if cb.ClaimID != "" && claim.ID != "" && cb.ClaimID != claim.ID {
		return "claim id does not match the active claim"
	}
	if claim.ID == "" && cb.RequestID != "" && claim.RequestID != "" && cb.RequestID != claim.RequestID {
		return "request id does not match the active claim"
	}
	if !cb.ClaimOpenedAt.IsZero() && cb.ClaimOpenedAt.Before(claim.OpenedAt.Add(-s.callbackSkew)) {
		return "callback refers to a claim opened before the active one"
	}
	return ""
}

// dropUnknownClaim reports cb as stale. When cb ends a claim other than the
// active one, the claim id is remembered so a late notification opening that
// claim is dropped too.
func (s *Service) dropUnknownClaim(ctx context.Context, key *models.Key, cb models.DirectoryCallback, reason string) (*CallbackResult, error) {
	res := s.stale(ctx, key, cb, reason)
	if !cb.EndsClaim() || cb.ClaimID == "" {
		return res, nil
	}
	if key.ActiveClaim != nil && key.ActiveClaim.ID == cb.ClaimID {
		return res, nil
	}

	next := key.Clone()
	next.ResolveClaim(cb.ClaimID)
	if err := s.keys.Save(ctx, next, key.Version); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, errVersionConflict
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to record resolved claim")
	}
	res.Key = next
	return res, nil
}

func (s *Service) stale(ctx context.Context, key *models.Key, cb models.DirectoryCallback, reason string) *CallbackResult {
	s.logger.WarnContext(ctx, "stale callback dropped",
		"event_id", cb.EventID,
		"key_id", key.ID,
		"callback_type", cb.Type,
		"claim_id", cb.ClaimID,
		"state", key.State,
		"reason", reason,
	)
	return &CallbackResult{Outcome: OutcomeStale, Key: key, Detail: reason}
}
