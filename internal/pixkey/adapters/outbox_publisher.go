package adapters

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"pixkeys/internal/pixkey/models"
	"pixkeys/pkg/platform/outbox"
)

// AggregateType tags outbox rows written for key events.
const AggregateType = "pix_key"

// OutboxPublisher appends domain events to the transactional outbox. It
// enlists in the transaction carried by ctx, so events commit with the key.
type OutboxPublisher struct {
	store outbox.Store
}

func NewOutboxPublisher(store outbox.Store) *OutboxPublisher {
	return &OutboxPublisher{store: store}
}

func (p *OutboxPublisher) Publish(ctx context.Context, events ...models.Event) error {
	if len(events) == 0 {
		return nil
	}
	entries := make([]outbox.Entry, 0, len(events))
	for _, e := range events {
		payload, err := json.Marshal(NewEventPayload(e))
		if err != nil {
			return fmt.Errorf("marshal event %s: %w", e.Type, err)
		}
		entries = append(entries, outbox.Entry{
			ID:            uuid.UUID(e.ID),
			AggregateType: AggregateType,
			AggregateID:   e.KeyID.String(),
			EventType:     string(e.Type),
			Payload:       payload,
			CreatedAt:     e.OccurredAt,
		})
	}
	return p.store.Append(ctx, entries...)
}

// EventPayload is the wire form of a key event on the events topic.
type EventPayload struct {
	ID           string    `json:"id"`
	Type         string    `json:"type"`
	KeyID        string    `json:"key_id"`
	OwnerID      string    `json:"owner_id"`
	KeyType      string    `json:"key_type"`
	From         string    `json:"from"`
	To           string    `json:"to"`
	Via          []string  `json:"via,omitempty"`
	ClaimKind    string    `json:"claim_kind,omitempty"`
	Counterparty string    `json:"counterparty,omitempty"`
	Reason       string    `json:"reason,omitempty"`
	Version      int64     `json:"version"`
	OccurredAt   time.Time `json:"occurred_at"`
}

func NewEventPayload(e models.Event) EventPayload {
	p := EventPayload{
		ID:           e.ID.String(),
		Type:         string(e.Type),
		KeyID:        e.KeyID.String(),
		OwnerID:      e.OwnerID.String(),
		KeyType:      string(e.KeyType),
		From:         string(e.From),
		To:           string(e.To),
		ClaimKind:    string(e.ClaimKind),
		Counterparty: string(e.Counterparty),
		Reason:       string(e.Reason),
		Version:      e.Version,
		OccurredAt:   e.OccurredAt,
	}
	for _, s := range e.Via {
		p.Via = append(p.Via, string(s))
	}
	return p
}
