package keys

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"pixkeys/internal/pixkey/models"
	id "pixkeys/pkg/domain"
	"pixkeys/pkg/platform/sentinel"
)

// InMemory keeps keys in a map guarded by a RWMutex. It stores clones so
// callers can never mutate persisted state by accident.
type InMemory struct {
	mu   sync.RWMutex
	keys map[id.KeyID]*models.Key
}

func NewInMemory() *InMemory {
	return &InMemory{keys: make(map[id.KeyID]*models.Key)}
}

func (s *InMemory) Create(_ context.Context, key *models.Key) error {
	if key == nil {
		return fmt.Errorf("key is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.keys[key.ID]; ok {
		return fmt.Errorf("key %s exists: %w", key.ID, sentinel.ErrConflict)
	}
	for _, existing := range s.keys {
		if existing.Type == key.Type && existing.Value == key.Value && !existing.State.IsTerminal() {
			return fmt.Errorf("live key with the same value: %w", sentinel.ErrConflict)
		}
	}
	key.Version = 1
	s.keys[key.ID] = key.Clone()
	return nil
}

func (s *InMemory) Load(_ context.Context, keyID id.KeyID) (*models.Key, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	key, ok := s.keys[keyID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return key.Clone(), nil
}

func (s *InMemory) Save(_ context.Context, key *models.Key, expectedVersion int64) error {
	if key == nil {
		return fmt.Errorf("key is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.keys[key.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if current.Version != expectedVersion {
		return fmt.Errorf("key %s at version %d, expected %d: %w", key.ID, current.Version, expectedVersion, sentinel.ErrConflict)
	}
	key.Version = expectedVersion + 1
	s.keys[key.ID] = key.Clone()
	return nil
}

func (s *InMemory) ListByOwner(_ context.Context, ownerID id.OwnerID) ([]*models.Key, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Key
	for _, key := range s.keys {
		if key.OwnerID == ownerID {
			out = append(out, key.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *InMemory) ListOverdue(_ context.Context, now time.Time, limit int) ([]id.KeyID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	type due struct {
		id id.KeyID
		at time.Time
	}
	var overdue []due
	for _, key := range s.keys {
		if deadline, ok := key.Deadline(); ok && !now.Before(deadline) {
			overdue = append(overdue, due{id: key.ID, at: deadline})
		}
	}
	sort.Slice(overdue, func(i, j int) bool { return overdue[i].at.Before(overdue[j].at) })
	if limit > 0 && len(overdue) > limit {
		overdue = overdue[:limit]
	}
	out := make([]id.KeyID, 0, len(overdue))
	for _, d := range overdue {
		out = append(out, d.id)
	}
	return out, nil
}
