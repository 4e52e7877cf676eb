package intents

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"pixkeys/internal/pixkey/models"
	"pixkeys/pkg/platform/sentinel"
)

type InMemory struct {
	mu      sync.Mutex
	intents map[string]*models.Intent
}

func NewInMemory() *InMemory {
	return &InMemory{intents: make(map[string]*models.Intent)}
}

func (s *InMemory) Upsert(_ context.Context, intent *models.Intent) (*models.Intent, error) {
	if intent == nil || intent.RequestID == "" {
		return nil, fmt.Errorf("intent with request id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.intents[intent.RequestID]; ok {
		existing.Attempts++
		existing.UpdatedAt = intent.UpdatedAt
		if existing.Status == models.IntentFailed {
			existing.Status = models.IntentPending
		}
		cp := *existing
		return &cp, nil
	}
	stored := *intent
	stored.Status = models.IntentPending
	if stored.Attempts == 0 {
		stored.Attempts = 1
	}
	s.intents[intent.RequestID] = &stored
	cp := stored
	return &cp, nil
}

func (s *InMemory) Get(_ context.Context, requestID string) (*models.Intent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	intent, ok := s.intents[requestID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *intent
	return &cp, nil
}

func (s *InMemory) Resolve(_ context.Context, requestID string, status models.IntentStatus, lastError string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	intent, ok := s.intents[requestID]
	if !ok {
		return sentinel.ErrNotFound
	}
	intent.Status = status
	intent.LastError = lastError
	intent.UpdatedAt = now
	return nil
}

func (s *InMemory) ListPending(_ context.Context, olderThan time.Time, limit int) ([]*models.Intent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*models.Intent
	for _, intent := range s.intents {
		if intent.Status == models.IntentPending && intent.UpdatedAt.Before(olderThan) {
			cp := *intent
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.Before(out[j].UpdatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
