package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"pixkeys/internal/verification/models"
	pixmodels "pixkeys/internal/pixkey/models"
	id "pixkeys/pkg/domain"
	"pixkeys/pkg/platform/sentinel"
)

type slot struct {
	keyID   id.KeyID
	purpose pixmodels.CodePurpose
}

type entry struct {
	code    models.Code
	evictAt   time.Time
}

// InMemory mirrors RedisStore with maps and explicit expiry checks.
type InMemory struct {
	mu     sync.Mutex
	codes  map[slot]entry
	resend map[slot]time.Time
	now    func() time.Time
}

func NewInMemory() *InMemory {
	return &InMemory{
		codes:  make(map[slot]entry),
		resend: make(map[slot]time.Time),
		now:    time.Now,
	}
}

// WithClock replaces the clock used for TTL eviction.
func (s *InMemory) WithClock(now func() time.Time) *InMemory {
	s.now = now
	return s
}

func (s *InMemory) Save(_ context.Context, code *models.Code, ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("code ttl must be positive")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.codes[slot{code.KeyID, code.Purpose}] = entry{code: *code, evictAt: s.now().Add(ttl)}
	return nil
}

func (s *InMemory) Get(_ context.Context, keyID id.KeyID, purpose pixmodels.CodePurpose) (*models.Code, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.live(slot{keyID, purpose})
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := e.code
	return &cp, nil
}

func (s *InMemory) RecordFailure(_ context.Context, keyID id.KeyID, purpose pixmodels.CodePurpose) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := slot{keyID, purpose}
	e, ok := s.live(k)
	if !ok {
		return 0, sentinel.ErrNotFound
	}
	e.code.Attempts++
	s.codes[k] = e
	return e.code.Attempts, nil
}

func (s *InMemory) Delete(_ context.Context, keyID id.KeyID, purpose pixmodels.CodePurpose) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.codes, slot{keyID, purpose})
	return nil
}

func (s *InMemory) AllowIssue(_ context.Context, keyID id.KeyID, purpose pixmodels.CodePurpose, interval time.Duration) (bool, error) {
	if interval <= 0 {
		return true, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	k := slot{keyID, purpose}
	now := s.now()
	if until, ok := s.resend[k]; ok && now.Before(until) {
		return false, nil
	}
	s.resend[k] = now.Add(interval)
	return true, nil
}

func (s *InMemory) live(k slot) (entry, bool) {
	e, ok := s.codes[k]
	if !ok {
		return entry{}, false
	}
	if !s.now().Before(e.evictAt) {
		delete(s.codes, k)
		return entry{}, false
	}
	return e, true
}
