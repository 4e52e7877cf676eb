package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"pixkeys/pkg/platform/outbox"
	txcontext "pixkeys/pkg/platform/tx"
)

// Store implements outbox.Store on the outbox table.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Append inserts entries. Entries whose id already exists are skipped, which
// makes replaying a commit harmless.
func (s *Store) Append(ctx context.Context, entries ...outbox.Entry) error {
	query := `
		INSERT INTO outbox (id, aggregate_type, aggregate_id, event_type, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO NOTHING
	`
	exec := txcontext.Executor(ctx, s.db)
	for _, e := range entries {
		createdAt := e.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now()
		}
		_, err := exec.ExecContext(ctx, query,
			e.ID,
			e.AggregateType,
			e.AggregateID,
			e.EventType,
			e.Payload,
			createdAt,
		)
		if err != nil {
			return fmt.Errorf("insert outbox entry: %w", err)
		}
	}
	return nil
}

// FetchUnprocessed returns the oldest unprocessed entries. Within a
// transaction the rows stay locked and concurrent relays skip them.
func (s *Store) FetchUnprocessed(ctx context.Context, limit int) ([]outbox.Entry, error) {
	query := `
		SELECT id, aggregate_type, aggregate_id, event_type, payload, created_at
		FROM outbox
		WHERE processed_at IS NULL
		ORDER BY created_at
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	`
	rows, err := txcontext.Executor(ctx, s.db).QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query outbox: %w", err)
	}
	defer rows.Close()

	var entries []outbox.Entry
	for rows.Next() {
		var e outbox.Entry
		if err := rows.Scan(&e.ID, &e.AggregateType, &e.AggregateID, &e.EventType, &e.Payload, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan outbox entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outbox: %w", err)
	}
	return entries, nil
}

func (s *Store) MarkProcessed(ctx context.Context, ids []uuid.UUID, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	raw := make([]string, 0, len(ids))
	for _, id := range ids {
		raw = append(raw, id.String())
	}
	query := `UPDATE outbox SET processed_at = $1 WHERE id = ANY($2::uuid[])`
	if _, err := txcontext.Executor(ctx, s.db).ExecContext(ctx, query, at, pq.Array(raw)); err != nil {
		return fmt.Errorf("mark outbox processed: %w", err)
	}
	return nil
}
