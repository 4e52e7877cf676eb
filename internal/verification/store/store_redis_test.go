//go:build integration

package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"pixkeys/internal/verification/models"
	pixmodels "pixkeys/internal/pixkey/models"
	id "pixkeys/pkg/domain"
	"pixkeys/pkg/platform/sentinel"
	"pixkeys/pkg/testutil/containers"
)

type RedisStoreSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	store *RedisStore
}

func TestRedisStoreSuite(t *testing.T) {
	suite.Run(t, new(RedisStoreSuite))
}

func (s *RedisStoreSuite) SetupSuite() {
	s.redis = containers.GetManager().GetRedis(s.T())
	s.store = NewRedis(s.redis.Client)
}

func (s *RedisStoreSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisStoreSuite) code(keyID id.KeyID) *models.Code {
	now := time.Now().UTC().Truncate(time.Millisecond)
	return &models.Code{
		KeyID:       keyID,
		Purpose:     pixmodels.CodeKeyConfirmation,
		Hash:        []byte("$2a$04$hash"),
		Destination: "+5561999990000",
		IssuedAt:    now,
		ExpiresAt:   now.Add(10 * time.Minute),
	}
}

func (s *RedisStoreSuite) TestRoundTripAndTTL() {
	ctx := context.Background()
	keyID := id.KeyID(uuid.New())
	code := s.code(keyID)
	s.Require().NoError(s.store.Save(ctx, code, 10*time.Minute))

	got, err := s.store.Get(ctx, keyID, pixmodels.CodeKeyConfirmation)
	s.Require().NoError(err)
	s.Equal(code.Hash, got.Hash)
	s.Equal(code.Destination, got.Destination)
	s.True(code.ExpiresAt.Equal(got.ExpiresAt))

	ttl, err := s.redis.Client.TTL(ctx, codeKey(keyID, pixmodels.CodeKeyConfirmation)).Result()
	s.Require().NoError(err)
	s.InDelta(10*time.Minute, ttl, float64(5*time.Second))

	s.Require().NoError(s.store.Delete(ctx, keyID, pixmodels.CodeKeyConfirmation))
	_, err = s.store.Get(ctx, keyID, pixmodels.CodeKeyConfirmation)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *RedisStoreSuite) TestConcurrentFailuresAreAllCounted() {
	ctx := context.Background()
	keyID := id.KeyID(uuid.New())
	s.Require().NoError(s.store.Save(ctx, s.code(keyID), time.Minute))

	var wg sync.WaitGroup
	for range 2 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.store.RecordFailure(ctx, keyID, pixmodels.CodeKeyConfirmation)
			s.NoError(err)
		}()
	}
	wg.Wait()

	got, err := s.store.Get(ctx, keyID, pixmodels.CodeKeyConfirmation)
	s.Require().NoError(err)
	s.Equal(2, got.Attempts)

	ttl, err := s.redis.Client.TTL(ctx, codeKey(keyID, pixmodels.CodeKeyConfirmation)).Result()
	s.Require().NoError(err)
	s.Greater(ttl, time.Duration(0), "failure count keeps the ttl")
}

func (s *RedisStoreSuite) TestAllowIssue() {
	ctx := context.Background()
	keyID := id.KeyID(uuid.New())

	ok, err := s.store.AllowIssue(ctx, keyID, pixmodels.CodeKeyConfirmation, time.Minute)
	s.Require().NoError(err)
	s.True(ok)

	ok, err = s.store.AllowIssue(ctx, keyID, pixmodels.CodeKeyConfirmation, time.Minute)
	s.Require().NoError(err)
	s.False(ok)

	ok, err = s.store.AllowIssue(ctx, keyID, pixmodels.CodePortabilityResponse, time.Minute)
	s.Require().NoError(err)
	s.True(ok)
}
