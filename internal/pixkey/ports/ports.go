// Package ports defines the collaborators the key lifecycle engine depends on.
// Stores return sentinel errors; the service translates them at its boundary.
package ports

import (
	"context"
	"errors"
	"time"

	"pixkeys/internal/pixkey/models"
	id "pixkeys/pkg/domain"
)

//go:generate mockgen -source=ports.go -destination=../mocks/ports_mock.go -package=mocks

// Gateway failures. Anything that is neither rejected nor accepted is treated
// as "ack pending": the directory may have applied the call.
var (
	ErrDirectoryRejected    = errors.New("directory rejected request")
	ErrDirectoryTimeout     = errors.New("directory request timed out")
	ErrDirectoryUnavailable = errors.New("directory unavailable")
)

// KeyStore persists key aggregates under optimistic concurrency.
type KeyStore interface {
	// Create stores a new key at version 1. It fails with sentinel.ErrConflict
	// when a live key with the same type and value already exists.
	Create(ctx context.Context, key *models.Key) error

	// Load returns the key or sentinel.ErrNotFound.
	Load(ctx context.Context, keyID id.KeyID) (*models.Key, error)

	// Save writes key only if the stored version equals expectedVersion and
	// bumps key.Version on success. A mismatch returns sentinel.ErrConflict.
	Save(ctx context.Context, key *models.Key, expectedVersion int64) error

	// ListByOwner returns the owner's keys, newest first.
	ListByOwner(ctx context.Context, ownerID id.OwnerID) ([]*models.Key, error)

	// ListOverdue returns ids of keys whose deadline is at or before now.
	ListOverdue(ctx context.Context, now time.Time, limit int) ([]id.KeyID, error)
}

// IntentStore keeps the write-ahead record of outbound directory calls.
type IntentStore interface {
	// Upsert records intent as PENDING. A retry of the same request id
	// increments Attempts and returns the stored record.
	Upsert(ctx context.Context, intent *models.Intent) (*models.Intent, error)

	Get(ctx context.Context, requestID string) (*models.Intent, error)

	// Resolve moves an intent to a final status.
	Resolve(ctx context.Context, requestID string, status models.IntentStatus, lastError string, now time.Time) error

	// ListPending returns PENDING intents last touched before olderThan.
	ListPending(ctx context.Context, olderThan time.Time, limit int) ([]*models.Intent, error)
}

// EventPublisher appends domain events. Implementations enlist in the
// transaction carried by ctx so events commit together with the key.
type EventPublisher interface {
	Publish(ctx context.Context, events ...models.Event) error
}

// DirectoryGateway is the outbound contract to the key directory. Every call
// is idempotent on call.RequestID.
type DirectoryGateway interface {
	ProposeCreate(ctx context.Context, call models.DirectoryCall) (models.Ack, error)
	ProposeOwnershipClaim(ctx context.Context, call models.DirectoryCall) (models.Ack, error)
	ProposePortabilityClaim(ctx context.Context, call models.DirectoryCall) (models.Ack, error)
	ConfirmClaim(ctx context.Context, call models.DirectoryCall) (models.Ack, error)
	CancelClaim(ctx context.Context, call models.DirectoryCall) (models.Ack, error)
	Delete(ctx context.Context, call models.DirectoryCall) (models.Ack, error)

	// RequestStatus asks the directory what it knows about a request id.
	RequestStatus(ctx context.Context, requestID string) (models.RequestStatus, models.Ack, error)

	// ClaimStatus asks the directory how the claim addressed by call ended.
	// call carries ClaimID or, before the directory assigned one, ProposalID.
	ClaimStatus(ctx context.Context, call models.DirectoryCall) (models.ClaimOutcome, error)
}

// CodeIssuer issues and checks verification codes. Verify does not consume;
// the engine consumes only after the transition commits.
type CodeIssuer interface {
	Issue(ctx context.Context, keyID id.KeyID, purpose models.CodePurpose, destination string) error
	Verify(ctx context.Context, keyID id.KeyID, purpose models.CodePurpose, code string) error
	Consume(ctx context.Context, keyID id.KeyID, purpose models.CodePurpose) error
}

// CallbackDeduper remembers processed callback deliveries. A delivery is
// marked only after its effects committed, so a crash in between leads to a
// redelivery instead of a lost callback.
type CallbackDeduper interface {
	// Seen reports whether eventID was already processed.
	Seen(ctx context.Context, eventID id.EventID) (bool, error)
	// MarkSeen records eventID as processed.
	MarkSeen(ctx context.Context, eventID id.EventID) error
}

// Send dispatches call to the gateway method matching its action.
func Send(ctx context.Context, gw DirectoryGateway, call models.DirectoryCall) (models.Ack, error) {
	switch call.Action {
	case models.ActionProposeCreate:
		return gw.ProposeCreate(ctx, call)
	case models.ActionProposeOwnershipClaim:
		return gw.ProposeOwnershipClaim(ctx, call)
	case models.ActionProposePortabilityClaim:
		return gw.ProposePortabilityClaim(ctx, call)
	case models.ActionConfirmClaim:
		return gw.ConfirmClaim(ctx, call)
	case models.ActionCancelClaim:
		return gw.CancelClaim(ctx, call)
	case models.ActionDelete:
		return gw.Delete(ctx, call)
	}
	return models.Ack{}, errors.New("unknown directory action " + string(call.Action))
}
