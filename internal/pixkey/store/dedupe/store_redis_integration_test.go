//go:build integration

package dedupe_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"pixkeys/internal/pixkey/store/dedupe"
	id "pixkeys/pkg/domain"
	"pixkeys/pkg/testutil/containers"
)

type RedisDedupeSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	store *dedupe.RedisStore
}

func TestRedisDedupeSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisDedupeSuite))
}

func (s *RedisDedupeSuite) SetupSuite() {
	s.redis = containers.GetManager().GetRedis(s.T())
	s.store = dedupe.NewRedis(s.redis.Client)
}

func (s *RedisDedupeSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func (s *RedisDedupeSuite) TestOnlyMarkedDeliveriesAreSeen() {
	ctx := context.Background()
	eventID := id.EventID(uuid.New())

	seen, err := s.store.Seen(ctx, eventID)
	s.Require().NoError(err)
	s.False(seen)

	s.Require().NoError(s.store.MarkSeen(ctx, eventID))

	seen, err = s.store.Seen(ctx, eventID)
	s.Require().NoError(err)
	s.True(seen)

	ttl, err := s.redis.Client.TTL(ctx, "pix:callback:"+eventID.String()).Result()
	s.Require().NoError(err)
	s.Greater(ttl, time.Duration(0))
	s.LessOrEqual(ttl, dedupe.DefaultTTL)
}

func (s *RedisDedupeSuite) TestConcurrentMarksAgree() {
	ctx := context.Background()
	eventID := id.EventID(uuid.New())

	const consumers = 16
	var wg sync.WaitGroup
	for range consumers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.NoError(s.store.MarkSeen(ctx, eventID))
		}()
	}
	wg.Wait()

	seen, err := s.store.Seen(ctx, eventID)
	s.Require().NoError(err)
	s.True(seen)
}
