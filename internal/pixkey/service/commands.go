package service

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"pixkeys/internal/pixkey/models"
	"pixkeys/internal/pixkey/ports"
	id "pixkeys/pkg/domain"
	dErrors "pixkeys/pkg/domain-errors"
	"pixkeys/pkg/platform/sentinel"
)

// CreateKey registers a new key for ownerID. EMAIL and PHONE keys start
// PENDING and get a confirmation code; DOCUMENT and RANDOM keys start
// CONFIRMED and are proposed to the directory right away.
func (s *Service) CreateKey(ctx context.Context, ownerID id.OwnerID, keyType models.KeyType, value string) (*models.Key, error) {
	ctx, span := s.tracer.Start(ctx, "pixkey.create", trace.WithAttributes(
		attribute.String("pix.key_type", string(keyType)),
	))
	defer span.End()

	key, err := s.createKey(ctx, ownerID, keyType, value)
	if err != nil {
		s.metrics.IncrementCommandFailure(string(models.TriggerCreate), string(dErrors.CodeOf(err)))
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return nil, err
	}
	return key, nil
}

func (s *Service) createKey(ctx context.Context, ownerID id.OwnerID, keyType models.KeyType, value string) (*models.Key, error) {
	now := s.now(ctx)
	key, err := models.NewKey(id.NewKeyID(), ownerID, keyType, value, now, s.pendingTTL)
	if err != nil {
		return nil, err
	}

	var intent *models.Intent
	if !keyType.RequiresConfirmation() {
		call := models.DirectoryCall{
			Action:  models.ActionProposeCreate,
			KeyID:   key.ID,
			KeyType: key.Type,
			Value:   key.Value,
			OwnerID: key.OwnerID,
		}
		call.RequestID = models.RequestIDFor(key, call.Action)
		intent = &models.Intent{
			RequestID: call.RequestID,
			KeyID:     key.ID,
			Trigger:   models.TriggerCreate,
			Actor:     ownerID,
			FromState: key.State,
			ToState:   key.State,
			Call:      call,
			CreatedAt: now,
			UpdatedAt: now,
		}
	}

	created := models.Event{
		Type:       models.EventKeyCreated,
		KeyID:      key.ID,
		OwnerID:    key.OwnerID,
		KeyType:    key.Type,
		To:         key.State,
		OccurredAt: now,
	}
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.keys.Create(ctx, key); err != nil {
			return err
		}
		created.ID = models.EventIDFor(key.ID, key.Version)
		created.Version = key.Version
		if err := s.events.Publish(ctx, created); err != nil {
			return err
		}
		if intent != nil {
			_, err := s.intents.Upsert(ctx, intent)
			return err
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "a key with this value is already registered")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create key")
	}
	s.metrics.IncrementTransition(string(models.TriggerCreate), "", string(key.State))
	s.logger.InfoContext(ctx, "key created",
		"key_id", key.ID,
		"owner_id", key.OwnerID,
		"key_type", key.Type,
		"to_state", key.State,
	)

	if keyType.RequiresConfirmation() {
		s.issueCode(ctx, key, models.CodeKeyConfirmation)
		return key, nil
	}
	return s.proposeCreate(ctx, key, intent, now)
}

// proposeCreate sends the registration of a self-evident key. An unanswered
// call leaves the intent for the reconciler; a rejection fails the key.
func (s *Service) proposeCreate(ctx context.Context, key *models.Key, intent *models.Intent, now time.Time) (*models.Key, error) {
	_, err := ports.Send(ctx, s.directory, intent.Call)
	switch {
	case err == nil:
		if err := s.intents.Resolve(ctx, intent.RequestID, models.IntentCommitted, "", now); err != nil {
			s.logger.ErrorContext(ctx, "failed to resolve create intent",
				"request_id", intent.RequestID,
				"error", err,
			)
		}
		return key, nil
	case errors.Is(err, ports.ErrDirectoryRejected):
		if rerr := s.intents.Resolve(ctx, intent.RequestID, models.IntentFailed, err.Error(), now); rerr != nil {
			s.logger.ErrorContext(ctx, "failed to resolve create intent",
				"request_id", intent.RequestID,
				"error", rerr,
			)
		}
		if _, ferr := s.failCreated(ctx, key.ID); ferr != nil {
			s.logger.ErrorContext(ctx, "failed to mark rejected key",
				"key_id", key.ID,
				"error", ferr,
			)
		}
		return nil, dErrors.Wrap(err, dErrors.CodeDirectoryRejected, "directory rejected the key")
	}
	s.logger.WarnContext(ctx, "create proposal unanswered, intent left pending",
		"key_id", key.ID,
		"request_id", intent.RequestID,
		"error", err,
	)
	return key, nil
}

// failCreated moves a key the directory refused to register into ERROR.
func (s *Service) failCreated(ctx context.Context, keyID id.KeyID) (*models.Key, error) {
	return s.retryOnConflict(ctx, func(ctx context.Context) (*models.Key, error) {
		key, err := s.load(ctx, keyID)
		if err != nil {
			return nil, err
		}
		in := models.Input{Trigger: models.TriggerEntryRejected, Now: s.now(ctx)}
		d, err := s.machine.Decide(key, in)
		if err != nil || d.NoOp {
			return key, nil
		}
		return s.transition(ctx, key, d, in, execOptions{})
	})
}

// GetKey returns one of the owner's keys, applying an overdue deadline first.
func (s *Service) GetKey(ctx context.Context, ownerID id.OwnerID, keyID id.KeyID) (*models.Key, error) {
	return s.retryOnConflict(ctx, func(ctx context.Context) (*models.Key, error) {
		key, err := s.loadOwned(ctx, keyID, ownerID)
		if err != nil {
			return nil, err
		}
		return s.expireIfOverdue(ctx, key, s.now(ctx))
	})
}

// ListKeys returns the owner's keys, newest first.
func (s *Service) ListKeys(ctx context.Context, ownerID id.OwnerID) ([]*models.Key, error) {
	keys, err := s.keys.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list keys")
	}
	return keys, nil
}

// VerifyCode proves the pending verification step of a key: registration,
// possession of a claimed key, or a portability response.
func (s *Service) VerifyCode(ctx context.Context, ownerID id.OwnerID, keyID id.KeyID, code string) (*models.Key, error) {
	if code == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "code is required")
	}
	return s.execute(ctx, command{keyID: keyID, trigger: models.TriggerVerifyCode, actor: ownerID, code: code})
}

// ResendCode issues a fresh code for the step the key is waiting on. The
// previous code stops working.
func (s *Service) ResendCode(ctx context.Context, ownerID id.OwnerID, keyID id.KeyID) (*models.Key, error) {
	key, err := s.GetKey(ctx, ownerID, keyID)
	if err != nil {
		return nil, err
	}
	purpose, ok := pendingCodePurpose(key.State)
	if !ok {
		return nil, dErrors.Newf(dErrors.CodeInvalidTransition, "no verification pending in state %s", key.State)
	}
	if err := s.codes.Issue(ctx, key.ID, purpose, key.Value); err != nil {
		return nil, codeError(err)
	}
	return key, nil
}

func pendingCodePurpose(state models.State) (models.CodePurpose, bool) {
	switch state {
	case models.StatePending:
		return models.CodeKeyConfirmation, true
	case models.StateClaimPending:
		return models.CodeClaimPossession, true
	case models.StatePortabilityRequestConfirmOpened, models.StatePortabilityRequestCancelOpened:
		return models.CodePortabilityResponse, true
	}
	return "", false
}

func (s *Service) StartPortabilityClaim(ctx context.Context, ownerID id.OwnerID, keyID id.KeyID, counterparty id.ISPB) (*models.Key, error) {
	return s.execute(ctx, command{keyID: keyID, trigger: models.TriggerStartPortability, actor: ownerID, ispb: counterparty})
}

func (s *Service) ApprovePortabilityStart(ctx context.Context, ownerID id.OwnerID, keyID id.KeyID) (*models.Key, error) {
	return s.execute(ctx, command{keyID: keyID, trigger: models.TriggerApprovePortabilityStart, actor: ownerID})
}

// CancelPortabilityStart withdraws a portability claim before the
// counterparty acted. Repeating it on an already canceled claim succeeds.
func (s *Service) CancelPortabilityStart(ctx context.Context, ownerID id.OwnerID, keyID id.KeyID, reason models.Reason) (*models.Key, error) {
	return s.execute(ctx, command{keyID: keyID, trigger: models.TriggerCancelPortabilityStart, actor: ownerID, reason: reason})
}

func (s *Service) CancelPortabilityInProgress(ctx context.Context, ownerID id.OwnerID, keyID id.KeyID, reason models.Reason) (*models.Key, error) {
	return s.execute(ctx, command{keyID: keyID, trigger: models.TriggerCancelPortabilityInProgress, actor: ownerID, reason: reason})
}

func (s *Service) StartOwnershipClaim(ctx context.Context, ownerID id.OwnerID, keyID id.KeyID, counterparty id.ISPB) (*models.Key, error) {
	return s.execute(ctx, command{keyID: keyID, trigger: models.TriggerStartOwnership, actor: ownerID, ispb: counterparty})
}

func (s *Service) ApproveOwnershipStart(ctx context.Context, ownerID id.OwnerID, keyID id.KeyID) (*models.Key, error) {
	return s.execute(ctx, command{keyID: keyID, trigger: models.TriggerApproveOwnershipStart, actor: ownerID})
}

func (s *Service) CancelOwnershipStart(ctx context.Context, ownerID id.OwnerID, keyID id.KeyID, reason models.Reason) (*models.Key, error) {
	return s.execute(ctx, command{keyID: keyID, trigger: models.TriggerCancelOwnershipStart, actor: ownerID, reason: reason})
}

func (s *Service) CancelOwnershipInProgress(ctx context.Context, ownerID id.OwnerID, keyID id.KeyID, reason models.Reason) (*models.Key, error) {
	return s.execute(ctx, command{keyID: keyID, trigger: models.TriggerCancelOwnershipInProgress, actor: ownerID, reason: reason})
}

// ConfirmPortabilityRequest starts handing our key over to the claiming
// institution. The owner confirms with the code issued by this step.
func (s *Service) ConfirmPortabilityRequest(ctx context.Context, ownerID id.OwnerID, keyID id.KeyID) (*models.Key, error) {
	return s.execute(ctx, command{keyID: keyID, trigger: models.TriggerConfirmPortabilityRequest, actor: ownerID})
}

func (s *Service) DenyPortabilityRequest(ctx context.Context, ownerID id.OwnerID, keyID id.KeyID, reason models.Reason) (*models.Key, error) {
	return s.execute(ctx, command{keyID: keyID, trigger: models.TriggerDenyPortabilityRequest, actor: ownerID, reason: reason})
}

// ReleaseClaimedKey gives up a key under a third-party ownership claim.
func (s *Service) ReleaseClaimedKey(ctx context.Context, ownerID id.OwnerID, keyID id.KeyID) (*models.Key, error) {
	return s.execute(ctx, command{keyID: keyID, trigger: models.TriggerReleaseClaimedKey, actor: ownerID})
}

// DeleteKey removes a key from the directory. Keys with an active claim
// cannot be deleted.
func (s *Service) DeleteKey(ctx context.Context, ownerID id.OwnerID, keyID id.KeyID, reason models.Reason) (*models.Key, error) {
	return s.execute(ctx, command{keyID: keyID, trigger: models.TriggerDelete, actor: ownerID, reason: reason})
}
