package dedupe

import (
	"context"
	"sync"
	"time"

	id "pixkeys/pkg/domain"
)

// InMemory keeps seen deliveries in a map. Entries expire after ttl.
type InMemory struct {
	mu   sync.Mutex
	seen map[id.EventID]time.Time
	ttl  time.Duration
	now  func() time.Time
}

func NewInMemory() *InMemory {
	return &InMemory{
		seen: make(map[id.EventID]time.Time),
		ttl:  DefaultTTL,
		now:  time.Now,
	}
}

func (s *InMemory) Seen(_ context.Context, eventID id.EventID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	at, ok := s.seen[eventID]
	if ok && s.now().Sub(at) >= s.ttl {
		delete(s.seen, eventID)
		return false, nil
	}
	return ok, nil
}

func (s *InMemory) MarkSeen(_ context.Context, eventID id.EventID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seen[eventID] = s.now()
	return nil
}
