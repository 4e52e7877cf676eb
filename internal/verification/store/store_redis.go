package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"pixkeys/internal/verification/models"
	pixmodels "pixkeys/internal/pixkey/models"
	id "pixkeys/pkg/domain"
	"pixkeys/pkg/platform/sentinel"
)

const (
	codeKeyPrefix   = "pix:code:"
	resendKeyPrefix = "pix:code-resend:"
	watchRetries    = 3
)

// RedisStore keeps one live code per key and purpose. Expiry is delegated to
// Redis TTLs so abandoned codes clean themselves up.
type RedisStore struct {
	client *redis.Client
}

func NewRedis(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

type record struct {
	Hash        []byte    `json:"hash"`
	Destination string    `json:"destination"`
	Attempts    int       `json:"attempts"`
	IssuedAt    time.Time `json:"issued_at"`
	ExpiresAt   time.Time `json:"expires_at"`
}

func codeKey(keyID id.KeyID, purpose pixmodels.CodePurpose) string {
	return codeKeyPrefix + keyID.String() + ":" + string(purpose)
}

// Save replaces any previous code for the same key and purpose.
func (s *RedisStore) Save(ctx context.Context, code *models.Code, ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("code ttl must be positive")
	}
	data, err := json.Marshal(record{
		Hash:        code.Hash,
		Destination: code.Destination,
		Attempts:    code.Attempts,
		IssuedAt:    code.IssuedAt,
		ExpiresAt:   code.ExpiresAt,
	})
	if err != nil {
		return fmt.Errorf("marshal code: %w", err)
	}
	return s.client.Set(ctx, codeKey(code.KeyID, code.Purpose), data, ttl).Err()
}

func (s *RedisStore) Get(ctx context.Context, keyID id.KeyID, purpose pixmodels.CodePurpose) (*models.Code, error) {
	raw, err := s.client.Get(ctx, codeKey(keyID, purpose)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get code: %w", err)
	}
	return decode(keyID, purpose, raw)
}

// RecordFailure counts a wrong guess and returns the new attempt count. The
// read-modify-write runs under WATCH so concurrent guesses are all counted.
func (s *RedisStore) RecordFailure(ctx context.Context, keyID id.KeyID, purpose pixmodels.CodePurpose) (int, error) {
	key := codeKey(keyID, purpose)
	var attempts int
	update := func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return sentinel.ErrNotFound
		}
		if err != nil {
			return err
		}
		var rec record
		if err := json.Unmarshal(raw, &rec); err != nil {
			return fmt.Errorf("decode code: %w", err)
		}
		rec.Attempts++
		attempts = rec.Attempts
		data, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.SetArgs(ctx, key, data, redis.SetArgs{KeepTTL: true})
			return nil
		})
		return err
	}

	for range watchRetries {
		err := s.client.Watch(ctx, update, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return 0, err
		}
		return attempts, nil
	}
	return 0, fmt.Errorf("record code failure: %w", sentinel.ErrConflict)
}

func (s *RedisStore) Delete(ctx context.Context, keyID id.KeyID, purpose pixmodels.CodePurpose) error {
	return s.client.Del(ctx, codeKey(keyID, purpose)).Err()
}

// AllowIssue reserves the resend window for key and purpose. It reports
// false while a previous reservation is still live.
func (s *RedisStore) AllowIssue(ctx context.Context, keyID id.KeyID, purpose pixmodels.CodePurpose, interval time.Duration) (bool, error) {
	if interval <= 0 {
		return true, nil
	}
	ok, err := s.client.SetNX(ctx, resendKeyPrefix+keyID.String()+":"+string(purpose), "1", interval).Result()
	if err != nil {
		return false, fmt.Errorf("reserve resend window: %w", err)
	}
	return ok, nil
}

func decode(keyID id.KeyID, purpose pixmodels.CodePurpose, raw []byte) (*models.Code, error) {
	var rec record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("decode code: %w", err)
	}
	return &models.Code{
		KeyID:       keyID,
		Purpose:     purpose,
		Hash:        rec.Hash,
		Destination: rec.Destination,
		Attempts:    rec.Attempts,
		IssuedAt:    rec.IssuedAt,
		ExpiresAt:   rec.ExpiresAt,
	}, nil
}
