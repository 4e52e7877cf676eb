package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	id "pixkeys/pkg/domain"
)

type EventType string

const (
	EventKeyCreated                 EventType = "key_created"
	EventKeyConfirmed               EventType = "key_confirmed"
	EventKeyReady                   EventType = "key_ready"
	EventKeyFailed                  EventType = "key_failed"
	EventKeyNotConfirmed            EventType = "key_not_confirmed"
	EventKeyDeletionRequested       EventType = "key_deletion_requested"
	EventKeyDeleted                 EventType = "key_deleted"
	EventPortabilityRequested       EventType = "portability_requested"
	EventPortabilityStarted         EventType = "portability_started"
	EventPortabilityCompleted       EventType = "portability_completed"
	EventOwnershipClaimRequested    EventType = "ownership_claim_requested"
	EventOwnershipStarted           EventType = "ownership_started"
	EventOwnershipTransferred       EventType = "ownership_transferred"
	EventClaimOpened                EventType = "claim_opened"
	EventClaimCancelRequested       EventType = "claim_cancel_requested"
	EventClaimCanceled              EventType = "claim_canceled"
	EventClaimDenied                EventType = "claim_denied"
	EventClaimExpired               EventType = "claim_expired"
	EventClaimConflict              EventType = "claim_conflict"
	EventClaimWaiting               EventType = "claim_waiting"
	EventClaimWithdrawn             EventType = "claim_withdrawn"
	EventPortabilityRequestReceived EventType = "portability_request_received"
	EventPortabilityResponseOpened  EventType = "portability_response_opened"
	EventPortabilityRequestApproved EventType = "portability_request_confirmed"
	EventPortabilityRequestDenied   EventType = "portability_request_denied"
	EventOwnershipClaimReceived     EventType = "ownership_claim_received"
	EventKeyReleaseRequested        EventType = "key_release_requested"
	EventKeyReleased                EventType = "key_released"
)

// Event is the domain event published for every committed transition.
type Event struct {
	ID           id.EventID
	Type         EventType
	KeyID        id.KeyID
	OwnerID      id.OwnerID
	KeyType      KeyType
	From         State
	To           State
	Via          []State
	ClaimKind    ClaimKind
	Counterparty id.ISPB
	Reason       Reason
	Version      int64
	OccurredAt   time.Time
}

var eventNamespace = uuid.MustParse("5d0c0a7e-8f4b-4c2e-9a51-3e7f2b8c1d64")

// EventIDFor derives a stable event id from the committed version, so a
// replayed commit can never produce a second event.
func EventIDFor(keyID id.KeyID, version int64) id.EventID {
	return id.EventID(uuid.NewSHA1(eventNamespace, []byte(fmt.Sprintf("%s/%d", keyID, version))))
}
