// Package outbox implements the transactional outbox: events are appended in
// the same transaction as the state change and relayed to the broker later.
package outbox

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Entry is one outbox row. ID doubles as the broker message id, so appending
// the same ID twice is a no-op.
type Entry struct {
	ID            uuid.UUID
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
	CreatedAt     time.Time
	ProcessedAt   *time.Time
}

// Store persists outbox entries. Append enlists in the transaction carried
// by ctx; FetchUnprocessed locks the rows it returns until that transaction ends.
type Store interface {
	Append(ctx context.Context, entries ...Entry) error
	FetchUnprocessed(ctx context.Context, limit int) ([]Entry, error)
	MarkProcessed(ctx context.Context, ids []uuid.UUID, at time.Time) error
}

// Publisher delivers an entry to its final destination.
type Publisher interface {
	Publish(ctx context.Context, entry Entry) error
}
