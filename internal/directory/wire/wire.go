// Package wire holds the JSON shapes exchanged with the key directory.
package wire

import (
	"encoding/json"
	"time"

	"pixkeys/internal/pixkey/models"
	id "pixkeys/pkg/domain"
	dErrors "pixkeys/pkg/domain-errors"
)

// Call is the body of every outbound request.
type Call struct {
	RequestID    string `json:"request_id"`
	Action       string `json:"action"`
	KeyID        string `json:"key_id"`
	KeyType      string `json:"key_type,omitempty"`
	Value        string `json:"value,omitempty"`
	OwnerID      string `json:"owner_id,omitempty"`
	ClaimID      string `json:"claim_id,omitempty"`
	ProposalID   string `json:"proposal_id,omitempty"`
	ClaimKind    string `json:"claim_kind,omitempty"`
	Counterparty string `json:"counterparty,omitempty"`
	Reason       string `json:"reason,omitempty"`
}

func FromCall(c models.DirectoryCall) Call {
	out := Call{
		RequestID:    c.RequestID,
		Action:       string(c.Action),
		KeyID:        c.KeyID.String(),
		KeyType:      string(c.KeyType),
		Value:        c.Value,
		ClaimID:      c.ClaimID,
		ProposalID:   c.ProposalID,
		ClaimKind:    string(c.ClaimKind),
		Counterparty: string(c.Counterparty),
		Reason:       string(c.Reason),
	}
	if !c.OwnerID.IsNil() {
		out.OwnerID = c.OwnerID.String()
	}
	return out
}

// Ack is the directory's answer to an accepted call.
type Ack struct {
	RequestID string `json:"request_id"`
	ClaimID   string `json:"claim_id,omitempty"`
}

func (a Ack) ToModel() models.Ack {
	return models.Ack{RequestID: a.RequestID, ClaimID: a.ClaimID}
}

// Status answers a request status lookup.
type Status struct {
	RequestID string `json:"request_id"`
	Status    string `json:"status"`
	ClaimID   string `json:"claim_id,omitempty"`
}

// ClaimState answers a claim lookup.
type ClaimState struct {
	ClaimID string `json:"claim_id"`
	Status  string `json:"status"`
}

// Problem is the error body the directory returns on refusal.
type Problem struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Callback is one inbound notification as delivered over HTTP or Kafka.
type Callback struct {
	EventID       string    `json:"event_id"`
	Type          string    `json:"type"`
	KeyID         string    `json:"key_id"`
	ClaimID       string    `json:"claim_id,omitempty"`
	RequestID     string    `json:"request_id,omitempty"`
	ClaimKind     string    `json:"claim_kind,omitempty"`
	Role          string    `json:"role,omitempty"`
	Counterparty  string    `json:"counterparty,omitempty"`
	ClaimOpenedAt time.Time `json:"claim_opened_at,omitzero"`
	DeadlineAt    time.Time `json:"deadline_at,omitzero"`
	Status        string    `json:"status,omitempty"`
	Reason        string    `json:"reason,omitempty"`
	OccurredAt    time.Time `json:"occurred_at,omitzero"`
}

// DecodeCallback parses and validates a callback payload. Every failure is
// CodeInvalidInput: the payload can never succeed on redelivery.
func DecodeCallback(data []byte) (models.DirectoryCallback, error) {
	var c Callback
	if err := json.Unmarshal(data, &c); err != nil {
		return models.DirectoryCallback{}, dErrors.Wrap(err, dErrors.CodeInvalidInput, "malformed callback payload")
	}
	return c.ToModel()
}

func (c Callback) ToModel() (models.DirectoryCallback, error) {
	eventID, err := id.ParseEventID(c.EventID)
	if err != nil {
		return models.DirectoryCallback{}, err
	}
	keyID, err := id.ParseKeyID(c.KeyID)
	if err != nil {
		return models.DirectoryCallback{}, err
	}
	if c.Type == "" {
		return models.DirectoryCallback{}, dErrors.New(dErrors.CodeInvalidInput, "callback type is required")
	}
	var counterparty id.ISPB
	if c.Counterparty != "" {
		if counterparty, err = id.ParseISPB(c.Counterparty); err != nil {
			return models.DirectoryCallback{}, err
		}
	}
	return models.DirectoryCallback{
		EventID:       eventID,
		Type:          models.CallbackType(c.Type),
		KeyID:         keyID,
		ClaimID:       c.ClaimID,
		RequestID:     c.RequestID,
		ClaimKind:     models.ClaimKind(c.ClaimKind),
		Role:          models.ClaimRole(c.Role),
		Counterparty:  counterparty,
		ClaimOpenedAt: c.ClaimOpenedAt,
		DeadlineAt:    c.DeadlineAt,
		Status:        c.Status,
		Reason:        models.Reason(c.Reason),
		OccurredAt:    c.OccurredAt,
	}, nil
}

func FromCallback(cb models.DirectoryCallback) Callback {
	return Callback{
		EventID:       cb.EventID.String(),
		Type:          string(cb.Type),
		KeyID:         cb.KeyID.String(),
		ClaimID:       cb.ClaimID,
		RequestID:     cb.RequestID,
		ClaimKind:     string(cb.ClaimKind),
		Role:          string(cb.Role),
		Counterparty:  string(cb.Counterparty),
		ClaimOpenedAt: cb.ClaimOpenedAt,
		DeadlineAt:    cb.DeadlineAt,
		Status:        cb.Status,
		Reason:        string(cb.Reason),
		OccurredAt:    cb.OccurredAt,
	}
}
