package intents

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"pixkeys/internal/pixkey/models"
	id "pixkeys/pkg/domain"
	"pixkeys/pkg/platform/sentinel"
	"pixkeys/pkg/platform/tx"
)

// PostgresStore persists intents in directory_intents. The outbound call is
// stored as JSON so the reconciler can resend it verbatim.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const intentColumns = `
	request_id, key_id, trigger, actor_id, from_state, to_state, from_version,
	call, status, attempts, last_error, created_at, updated_at`

func (s *PostgresStore) Upsert(ctx context.Context, intent *models.Intent) (*models.Intent, error) {
	if intent == nil || intent.RequestID == "" {
		return nil, fmt.Errorf("intent with request id is required")
	}
	call, err := json.Marshal(intent.Call)
	if err != nil {
		return nil, fmt.Errorf("marshal intent call: %w", err)
	}
	var actor uuid.NullUUID
	if !intent.Actor.IsNil() {
		actor = uuid.NullUUID{UUID: uuid.UUID(intent.Actor), Valid: true}
	}

	query := `
		INSERT INTO directory_intents (` + intentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 'PENDING', 1, '', $9, $9)
		ON CONFLICT (request_id) DO UPDATE SET
			attempts = directory_intents.attempts + 1,
			updated_at = EXCLUDED.updated_at,
			status = CASE WHEN directory_intents.status = 'FAILED' THEN 'PENDING' ELSE directory_intents.status END
		RETURNING ` + intentColumns
	stored, err := scanIntent(tx.Executor(ctx, s.db).QueryRowContext(ctx, query,
		intent.RequestID,
		uuid.UUID(intent.KeyID),
		string(intent.Trigger),
		actor,
		string(intent.FromState),
		string(intent.ToState),
		intent.FromVersion,
		call,
		intent.CreatedAt,
	))
	if err != nil {
		return nil, fmt.Errorf("upsert intent: %w", err)
	}
	return stored, nil
}

func (s *PostgresStore) Get(ctx context.Context, requestID string) (*models.Intent, error) {
	query := `SELECT ` + intentColumns + ` FROM directory_intents WHERE request_id = $1`
	intent, err := scanIntent(tx.Executor(ctx, s.db).QueryRowContext(ctx, query, requestID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get intent: %w", err)
	}
	return intent, nil
}

func (s *PostgresStore) Resolve(ctx context.Context, requestID string, status models.IntentStatus, lastError string, now time.Time) error {
	query := `
		UPDATE directory_intents
		SET status = $2, last_error = $3, updated_at = $4
		WHERE request_id = $1
	`
	result, err := tx.Executor(ctx, s.db).ExecContext(ctx, query, requestID, string(status), lastError, now)
	if err != nil {
		return fmt.Errorf("resolve intent: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("resolve intent rows affected: %w", err)
	}
	if rows == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ListPending(ctx context.Context, olderThan time.Time, limit int) ([]*models.Intent, error) {
	query := `
		SELECT ` + intentColumns + `
		FROM directory_intents
		WHERE status = 'PENDING' AND updated_at < $1
		ORDER BY updated_at
		LIMIT $2
	`
	rows, err := tx.Executor(ctx, s.db).QueryContext(ctx, query, olderThan, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending intents: %w", err)
	}
	defer rows.Close()

	var out []*models.Intent
	for rows.Next() {
		intent, err := scanIntent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan intent: %w", err)
		}
		out = append(out, intent)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate intents: %w", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanIntent(row scanner) (*models.Intent, error) {
	var (
		intent                      models.Intent
		keyID                       uuid.UUID
		actor                       uuid.NullUUID
		trigger, fromState, toState string
		status                      string
		call                        []byte
	)
	err := row.Scan(
		&intent.RequestID, &keyID, &trigger, &actor, &fromState, &toState, &intent.FromVersion,
		&call, &status, &intent.Attempts, &intent.LastError, &intent.CreatedAt, &intent.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(call, &intent.Call); err != nil {
		return nil, fmt.Errorf("decode intent call: %w", err)
	}
	intent.KeyID = id.KeyID(keyID)
	intent.Trigger = models.Trigger(trigger)
	intent.FromState = models.State(fromState)
	intent.ToState = models.State(toState)
	intent.Status = models.IntentStatus(status)
	if actor.Valid {
		intent.Actor = id.OwnerID(actor.UUID)
	}
	return &intent, nil
}
