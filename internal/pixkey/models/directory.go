package models

import (
	"time"

	id "pixkeys/pkg/domain"
	dErrors "pixkeys/pkg/domain-errors"
)

// Action is an outbound directory operation.
type Action string

const (
	ActionProposeCreate           Action = "PROPOSE_CREATE"
	ActionProposeOwnershipClaim   Action = "PROPOSE_OWNERSHIP_CLAIM"
	ActionProposePortabilityClaim Action = "PROPOSE_PORTABILITY_CLAIM"
	ActionConfirmClaim            Action = "CONFIRM_CLAIM"
	ActionCancelClaim             Action = "CANCEL_CLAIM"
	ActionDelete                  Action = "DELETE"
)

// DirectoryCall is the outbound effect of a transition. RequestID is the
// idempotency key the directory dedupes on.
type DirectoryCall struct {
	RequestID string
	Action    Action
	KeyID     id.KeyID
	KeyType   KeyType
	Value     string
	OwnerID   id.OwnerID
	ClaimID   string
	// ProposalID is the request id of the proposal that opened the claim. It
	// addresses claims the directory has not assigned an id to yet.
	ProposalID   string
	ClaimKind    ClaimKind
	Counterparty id.ISPB
	Reason       Reason
}

// Ack is the directory's synchronous answer to an accepted call.
type Ack struct {
	RequestID string
	// ClaimID is set when a claim proposal is acknowledged with its directory id.
	ClaimID string
}

// RequestStatus is what the directory remembers about a request id.
type RequestStatus string

const (
	RequestAccepted RequestStatus = "ACCEPTED"
	RequestRejected RequestStatus = "REJECTED"
	RequestUnknown  RequestStatus = "UNKNOWN"
)

// ClaimOutcome is how the directory reports a claim it knows about.
type ClaimOutcome string

const (
	ClaimOutcomeOpen      ClaimOutcome = "OPEN"
	ClaimOutcomeCompleted ClaimOutcome = "COMPLETED"
	ClaimOutcomeCanceled  ClaimOutcome = "CANCELED"
	ClaimOutcomeUnknown   ClaimOutcome = "UNKNOWN"
)

// ParseClaimOutcome maps a directory status onto a ClaimOutcome. Statuses
// still awaiting a decision count as open.
func ParseClaimOutcome(s string) ClaimOutcome {
	switch s {
	case "COMPLETED":
		return ClaimOutcomeCompleted
	case "CANCELED", "CANCELLED", "EXPIRED", "DENIED":
		return ClaimOutcomeCanceled
	case "OPEN", "CONFIRMED", "WAITING_RESOLUTION", ClaimStatusConflict, ClaimStatusWaiting:
		return ClaimOutcomeOpen
	}
	return ClaimOutcomeUnknown
}

// CallbackType is the kind of an inbound directory notification.
type CallbackType string

const (
	CallbackEntryCreated                 CallbackType = "ENTRY_CREATED"
	CallbackEntryRejected                CallbackType = "ENTRY_REJECTED"
	CallbackEntryDeleted                 CallbackType = "ENTRY_DELETED"
	CallbackClaimOpened                  CallbackType = "CLAIM_OPENED"
	CallbackClaimConfirmedByCounterparty CallbackType = "CLAIM_CONFIRMED_BY_COUNTERPARTY"
	CallbackClaimDeniedByCounterparty    CallbackType = "CLAIM_DENIED_BY_COUNTERPARTY"
	CallbackClaimCompleted               CallbackType = "CLAIM_COMPLETED"
	CallbackClaimCanceled                CallbackType = "CLAIM_CANCELED"
	CallbackClaimExpiredByDirectory      CallbackType = "CLAIM_EXPIRED_BY_DIRECTORY"
	CallbackClaimStatus                  CallbackType = "CLAIM_STATUS"
)

// Claim statuses reported through CallbackClaimStatus.
const (
	ClaimStatusConflict = "CONFLICT"
	ClaimStatusWaiting  = "WAITING"
)

// DirectoryCallback is an inbound notification. Delivery is at-least-once
// and unordered; EventID identifies one delivery.
type DirectoryCallback struct {
	EventID       id.EventID
	Type          CallbackType
	KeyID         id.KeyID
	ClaimID       string
	RequestID     string
	ClaimKind     ClaimKind
	Role          ClaimRole
	Counterparty  id.ISPB
	ClaimOpenedAt time.Time
	DeadlineAt    time.Time
	Status        string
	Reason        Reason
	OccurredAt    time.Time
}

// IsClaimScoped reports whether the callback refers to a specific claim.
func (c DirectoryCallback) IsClaimScoped() bool {
	switch c.Type {
	case CallbackEntryCreated, CallbackEntryRejected, CallbackEntryDeleted:
		return false
	}
	return true
}

// EndsClaim reports whether the callback announces the end of a claim.
func (c DirectoryCallback) EndsClaim() bool {
	switch c.Type {
	case CallbackClaimCompleted, CallbackClaimCanceled, CallbackClaimExpiredByDirectory, CallbackClaimDeniedByCounterparty:
		return true
	}
	return false
}

// OpensDonorClaim reports whether the callback announces a third-party claim
// against one of our keys.
func (c DirectoryCallback) OpensDonorClaim() bool {
	return c.Type == CallbackClaimOpened && c.Role == RoleDonor
}

// Trigger maps the callback onto the transition table.
func (c DirectoryCallback) Trigger() (Trigger, error) {
	switch c.Type {
	case CallbackEntryCreated:
		return TriggerEntryCreated, nil
	case CallbackEntryRejected:
		return TriggerEntryRejected, nil
	case CallbackEntryDeleted:
		return TriggerEntryDeleted, nil
	case CallbackClaimOpened:
		if c.Role != RoleDonor {
			return TriggerClaimOpened, nil
		}
		switch c.ClaimKind {
		case ClaimPortability:
			return TriggerPortabilityRequestReceived, nil
		case ClaimOwnership:
			return TriggerOwnershipClaimReceived, nil
		}
		return "", dErrors.New(dErrors.CodeValidation, "donor claim callback without a valid claim kind")
	case CallbackClaimConfirmedByCounterparty:
		return TriggerClaimConfirmed, nil
	case CallbackClaimDeniedByCounterparty:
		return TriggerClaimDenied, nil
	case CallbackClaimCompleted:
		return TriggerClaimCompleted, nil
	case CallbackClaimCanceled:
		return TriggerClaimCanceled, nil
	case CallbackClaimExpiredByDirectory:
		return TriggerClaimExpired, nil
	case CallbackClaimStatus:
		switch c.Status {
		case ClaimStatusConflict:
			return TriggerClaimConflictReported, nil
		case ClaimStatusWaiting:
			return TriggerClaimWaitingReported, nil
		}
		return "", dErrors.Newf(dErrors.CodeValidation, "unknown claim status %q", c.Status)
	}
	return "", dErrors.Newf(dErrors.CodeValidation, "unknown callback type %q", c.Type)
}
