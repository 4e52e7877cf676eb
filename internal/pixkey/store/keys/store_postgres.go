package keys

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"pixkeys/internal/pixkey/models"
	"pixkeys/internal/platform/postgres"
	id "pixkeys/pkg/domain"
	"pixkeys/pkg/platform/sentinel"
	"pixkeys/pkg/platform/tx"
)

// PostgresStore persists keys in the pix_keys table. The active claim is
// flattened into claim_* columns; deadline_at is derived on write so the
// sweep can use an index.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const keyColumns = `
	id, owner_id, key_type, key_value, state, last_claim_kind, expires_at,
	claim_id, claim_kind, claim_role, claim_reason, claim_counterparty,
	claim_proposer_id, claim_request_id, claim_opened_at, claim_deadline_at,
	created_at, state_changed_at, version, resolved_claims`

func (s *PostgresStore) Create(ctx context.Context, key *models.Key) error {
	if key == nil {
		return fmt.Errorf("key is required")
	}
	row := newKeyRow(key)
	query := `
		INSERT INTO pix_keys (` + keyColumns + `, live, deadline_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, 1, $19, $20, $21)
	`
	_, err := tx.Executor(ctx, s.db).ExecContext(ctx, query, append(row.args(), pq.Array(row.resolvedClaims), row.live, row.deadlineAt)...)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return fmt.Errorf("create key %s: %w", key.ID, sentinel.ErrConflict)
		}
		return fmt.Errorf("create key: %w", err)
	}
	key.Version = 1
	return nil
}

func (s *PostgresStore) Load(ctx context.Context, keyID id.KeyID) (*models.Key, error) {
	query := `SELECT ` + keyColumns + ` FROM pix_keys WHERE id = $1`
	key, err := scanKey(tx.Executor(ctx, s.db).QueryRowContext(ctx, query, uuid.UUID(keyID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("load key: %w", err)
	}
	return key, nil
}

func (s *PostgresStore) Save(ctx context.Context, key *models.Key, expectedVersion int64) error {
	if key == nil {
		return fmt.Errorf("key is required")
	}
	row := newKeyRow(key)
	query := `
		UPDATE pix_keys SET
			state = $2,
			last_claim_kind = $3,
			expires_at = $4,
			claim_id = $5,
			claim_kind = $6,
			claim_role = $7,
			claim_reason = $8,
			claim_counterparty = $9,
			claim_proposer_id = $10,
			claim_request_id = $11,
			claim_opened_at = $12,
			claim_deadline_at = $13,
			state_changed_at = $14,
			live = $15,
			deadline_at = $16,
			resolved_claims = $17,
			version = version + 1
		WHERE id = $1 AND version = $18
	`
	result, err := tx.Executor(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(key.ID),
		row.state,
		row.lastClaimKind,
		row.expiresAt,
		row.claimID,
		row.claimKind,
		row.claimRole,
		row.claimReason,
		row.claimCounterparty,
		row.claimProposerID,
		row.claimRequestID,
		row.claimOpenedAt,
		row.claimDeadlineAt,
		key.StateChangedAt,
		row.live,
		row.deadlineAt,
		pq.Array(row.resolvedClaims),
		expectedVersion,
	)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return fmt.Errorf("save key %s: %w", key.ID, sentinel.ErrConflict)
		}
		return fmt.Errorf("save key: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("save key rows affected: %w", err)
	}
	if rows == 0 {
		if _, err := s.Load(ctx, key.ID); errors.Is(err, sentinel.ErrNotFound) {
			return sentinel.ErrNotFound
		}
		return fmt.Errorf("key %s changed since version %d: %w", key.ID, expectedVersion, sentinel.ErrConflict)
	}
	key.Version = expectedVersion + 1
	return nil
}

func (s *PostgresStore) ListByOwner(ctx context.Context, ownerID id.OwnerID) ([]*models.Key, error) {
	query := `SELECT ` + keyColumns + ` FROM pix_keys WHERE owner_id = $1 ORDER BY created_at DESC`
	rows, err := tx.Executor(ctx, s.db).QueryContext(ctx, query, uuid.UUID(ownerID))
	if err != nil {
		return nil, fmt.Errorf("list keys by owner: %w", err)
	}
	defer rows.Close()

	var out []*models.Key
	for rows.Next() {
		key, err := scanKey(rows)
		if err != nil {
			return nil, fmt.Errorf("scan key: %w", err)
		}
		out = append(out, key)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate keys: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) ListOverdue(ctx context.Context, now time.Time, limit int) ([]id.KeyID, error) {
	states := make([]string, 0)
	for _, st := range models.DeadlineStates() {
		states = append(states, string(st))
	}
	query := `
		SELECT id FROM pix_keys
		WHERE deadline_at <= $1 AND state = ANY($2)
		ORDER BY deadline_at
		LIMIT $3
	`
	rows, err := tx.Executor(ctx, s.db).QueryContext(ctx, query, now, pq.Array(states), limit)
	if err != nil {
		return nil, fmt.Errorf("list overdue keys: %w", err)
	}
	defer rows.Close()

	var out []id.KeyID
	for rows.Next() {
		var raw uuid.UUID
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan overdue key: %w", err)
		}
		out = append(out, id.KeyID(raw))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate overdue keys: %w", err)
	}
	return out, nil
}

// keyRow is the flattened column form of a key.
type keyRow struct {
	state             string
	lastClaimKind     string
	expiresAt         sql.NullTime
	claimID           sql.NullString
	claimKind         sql.NullString
	claimRole         sql.NullString
	claimReason       sql.NullString
	claimCounterparty sql.NullString
	claimProposerID   uuid.NullUUID
	claimRequestID    sql.NullString
	claimOpenedAt     sql.NullTime
	claimDeadlineAt   sql.NullTime
	live              bool
	deadlineAt        sql.NullTime
	resolvedClaims    []string

	key *models.Key
}

func newKeyRow(key *models.Key) keyRow {
	row := keyRow{
		key:           key,
		state:         string(key.State),
		lastClaimKind: string(key.LastClaimKind),
		live:          !key.State.IsTerminal(),
	}
	// The column rejects NULL, which is what a nil slice encodes to.
	row.resolvedClaims = append([]string{}, key.ResolvedClaims...)
	if key.ExpiresAt != nil {
		row.expiresAt = sql.NullTime{Time: *key.ExpiresAt, Valid: true}
	}
	if deadline, ok := key.Deadline(); ok {
		row.deadlineAt = sql.NullTime{Time: deadline, Valid: true}
	}
	if c := key.ActiveClaim; c != nil {
		row.claimID = sql.NullString{String: c.ID, Valid: true}
		row.claimKind = sql.NullString{String: string(c.Kind), Valid: true}
		row.claimRole = sql.NullString{String: string(c.Role), Valid: true}
		row.claimReason = sql.NullString{String: string(c.Reason), Valid: true}
		row.claimCounterparty = sql.NullString{String: string(c.Counterparty), Valid: true}
		row.claimProposerID = uuid.NullUUID{UUID: uuid.UUID(c.ProposerID), Valid: !c.ProposerID.IsNil()}
		row.claimRequestID = sql.NullString{String: c.RequestID, Valid: true}
		row.claimOpenedAt = sql.NullTime{Time: c.OpenedAt, Valid: true}
		row.claimDeadlineAt = sql.NullTime{Time: c.DeadlineAt, Valid: !c.DeadlineAt.IsZero()}
	}
	return row
}

// args returns the values for keyColumns minus version, in column order.
func (r keyRow) args() []any {
	k := r.key
	return []any{
		uuid.UUID(k.ID),
		uuid.UUID(k.OwnerID),
		string(k.Type),
		k.Value,
		r.state,
		r.lastClaimKind,
		r.expiresAt,
		r.claimID,
		r.claimKind,
		r.claimRole,
		r.claimReason,
		r.claimCounterparty,
		r.claimProposerID,
		r.claimRequestID,
		r.claimOpenedAt,
		r.claimDeadlineAt,
		k.CreatedAt,
		k.StateChangedAt,
	}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanKey(row scanner) (*models.Key, error) {
	var (
		key                                        models.Key
		keyID, ownerID                             uuid.UUID
		keyType, state, lastClaimKind              string
		expiresAt, openedAt, deadlineAt            sql.NullTime
		claimID, claimKind, claimRole, claimReason sql.NullString
		claimCounterparty, claimRequestID          sql.NullString
		claimProposerID                            uuid.NullUUID
		resolvedClaims                             []string
	)
	err := row.Scan(
		&keyID, &ownerID, &keyType, &key.Value, &state, &lastClaimKind, &expiresAt,
		&claimID, &claimKind, &claimRole, &claimReason, &claimCounterparty,
		&claimProposerID, &claimRequestID, &openedAt, &deadlineAt,
		&key.CreatedAt, &key.StateChangedAt, &key.Version, pq.Array(&resolvedClaims),
	)
	if err != nil {
		return nil, err
	}

	key.ID = id.KeyID(keyID)
	key.OwnerID = id.OwnerID(ownerID)
	key.Type = models.KeyType(keyType)
	key.State = models.State(state)
	key.LastClaimKind = models.ClaimKind(lastClaimKind)
	if len(resolvedClaims) > 0 {
		key.ResolvedClaims = resolvedClaims
	}
	if expiresAt.Valid {
		t := expiresAt.Time
		key.ExpiresAt = &t
	}
	if claimKind.Valid {
		key.ActiveClaim = &models.Claim{
			ID:           claimID.String,
			Kind:         models.ClaimKind(claimKind.String),
			Role:         models.ClaimRole(claimRole.String),
			Reason:       models.Reason(claimReason.String),
			Counterparty: id.ISPB(claimCounterparty.String),
			RequestID:    claimRequestID.String,
			OpenedAt:     openedAt.Time,
			DeadlineAt:   deadlineAt.Time,
		}
		if claimProposerID.Valid {
			key.ActiveClaim.ProposerID = id.OwnerID(claimProposerID.UUID)
		}
	}
	return &key, nil
}
