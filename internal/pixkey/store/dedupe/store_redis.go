package dedupe

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	id "pixkeys/pkg/domain"
)

const (
	callbackKeyPrefix = "pix:callback:"

	// DefaultTTL outlives the longest claim resolution period.
	DefaultTTL = 14 * 24 * time.Hour
)

// RedisStore remembers processed callback deliveries as expiring keys.
// Concurrent deliveries of one event may both pass Seen; the second one then
// finds the key already moved and is reported as a duplicate.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

type Option func(*RedisStore)

func WithTTL(ttl time.Duration) Option {
	return func(s *RedisStore) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

func NewRedis(client *redis.Client, opts ...Option) *RedisStore {
	s := &RedisStore{client: client, ttl: DefaultTTL}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisStore) Seen(ctx context.Context, eventID id.EventID) (bool, error) {
	n, err := s.client.Exists(ctx, callbackKeyPrefix+eventID.String()).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *RedisStore) MarkSeen(ctx context.Context, eventID id.EventID) error {
	return s.client.Set(ctx, callbackKeyPrefix+eventID.String(), "1", s.ttl).Err()
}
