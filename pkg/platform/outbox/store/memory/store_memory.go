package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"pixkeys/pkg/platform/outbox"
)

// InMemoryStore keeps outbox entries in insertion order.
type InMemoryStore struct {
	mu      sync.Mutex
	entries []outbox.Entry
	index   map[uuid.UUID]int
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{index: make(map[uuid.UUID]int)}
}

func (s *InMemoryStore) Append(_ context.Context, entries ...outbox.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range entries {
		if _, ok := s.index[e.ID]; ok {
			continue
		}
		if e.CreatedAt.IsZero() {
			e.CreatedAt = time.Now()
		}
		s.index[e.ID] = len(s.entries)
		s.entries = append(s.entries, e)
	}
	return nil
}

func (s *InMemoryStore) FetchUnprocessed(_ context.Context, limit int) ([]outbox.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []outbox.Entry
	for _, e := range s.entries {
		if e.ProcessedAt != nil {
			continue
		}
		out = append(out, e)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *InMemoryStore) MarkProcessed(_ context.Context, ids []uuid.UUID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range ids {
		if i, ok := s.index[id]; ok {
			t := at
			s.entries[i].ProcessedAt = &t
		}
	}
	return nil
}

// All returns a copy of every entry, processed or not.
func (s *InMemoryStore) All() []outbox.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]outbox.Entry, len(s.entries))
	copy(out, s.entries)
	return out
}
