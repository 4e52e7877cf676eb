package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	id "pixkeys/pkg/domain"
)

type IntentStatus string

const (
	// IntentPending: recorded before the call; the directory may or may not have it.
	IntentPending IntentStatus = "PENDING"
	// IntentCommitted: the directory accepted and the key transition is stored.
	IntentCommitted IntentStatus = "COMMITTED"
	// IntentFailed: the directory rejected the call or retries were exhausted.
	IntentFailed IntentStatus = "FAILED"
	// IntentStale: the directory accepted but the key moved on before commit.
	IntentStale IntentStatus = "STALE"
)

// Intent is the write-ahead record of an outbound directory call.
type Intent struct {
	RequestID   string
	KeyID       id.KeyID
	Trigger     Trigger
	Actor       id.OwnerID
	FromState   State
	ToState     State
	FromVersion int64
	Call        DirectoryCall
	Status      IntentStatus
	Attempts    int
	LastError   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

var requestNamespace = uuid.MustParse("a3f1e6d2-4b7c-4e89-8d0f-92c5b1a7e314")

// RequestIDFor derives the idempotency key of an outbound call from the
// key's current state. Retrying the same command against an unchanged key
// reuses the id; any intervening transition yields a new one.
func RequestIDFor(k *Key, action Action) string {
	changed := int64(0)
	if k.Version > 0 {
		changed = k.StateChangedAt.UnixNano()
	}
	name := fmt.Sprintf("%s/%s/%s/%d", k.ID, action, k.State, changed)
	return uuid.NewSHA1(requestNamespace, []byte(name)).String()
}

// CompensationRequestID derives the request id of the cancel that undoes an
// accepted proposal whose transition could not be applied.
func CompensationRequestID(requestID string) string {
	return uuid.NewSHA1(requestNamespace, []byte("compensate/"+requestID)).String()
}
