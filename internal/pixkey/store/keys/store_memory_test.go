package keys

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"pixkeys/internal/pixkey/models"
	id "pixkeys/pkg/domain"
	"pixkeys/pkg/platform/sentinel"
)

type InMemoryStoreSuite struct {
	suite.Suite
	store *InMemory
	owner id.OwnerID
	now   time.Time
}

func TestInMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryStoreSuite))
}

func (s *InMemoryStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.owner = id.OwnerID(uuid.New())
	s.now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
}

func (s *InMemoryStoreSuite) newEmailKey(value string) *models.Key {
	key, err := models.NewKey(id.NewKeyID(), s.owner, models.KeyTypeEmail, value, s.now, time.Hour)
	s.Require().NoError(err)
	return key
}

func (s *InMemoryStoreSuite) TestCreate() {
	ctx := context.Background()

	s.Run("stores the key at version 1", func() {
		key := s.newEmailKey("ana@example.com")
		s.Require().NoError(s.store.Create(ctx, key))
		s.Equal(int64(1), key.Version)

		loaded, err := s.store.Load(ctx, key.ID)
		s.Require().NoError(err)
		s.Equal(key.Value, loaded.Value)
		s.Equal(models.StatePending, loaded.State)
	})

	s.Run("rejects a second live key with the same value", func() {
		s.Require().NoError(s.store.Create(ctx, s.newEmailKey("bia@example.com")))
		err := s.store.Create(ctx, s.newEmailKey("bia@example.com"))
		s.ErrorIs(err, sentinel.ErrConflict)
	})

	s.Run("allows reuse of a value once the old key is terminal", func() {
		old := s.newEmailKey("caio@example.com")
		s.Require().NoError(s.store.Create(ctx, old))
		old.State = models.StateDeleted
		old.ExpiresAt = nil
		s.Require().NoError(s.store.Save(ctx, old, 1))

		s.NoError(s.store.Create(ctx, s.newEmailKey("caio@example.com")))
	})
}

func (s *InMemoryStoreSuite) TestSaveChecksVersion() {
	ctx := context.Background()
	key := s.newEmailKey("dora@example.com")
	s.Require().NoError(s.store.Create(ctx, key))

	first := key.Clone()
	first.State = models.StateConfirmed
	s.Require().NoError(s.store.Save(ctx, first, 1))
	s.Equal(int64(2), first.Version)

	stale := key.Clone()
	stale.State = models.StateNotConfirmed
	err := s.store.Save(ctx, stale, 1)
	s.ErrorIs(err, sentinel.ErrConflict)

	loaded, err := s.store.Load(ctx, key.ID)
	s.Require().NoError(err)
	s.Equal(models.StateConfirmed, loaded.State)
}

func (s *InMemoryStoreSuite) TestLoadReturnsCopies() {
	ctx := context.Background()
	key := s.newEmailKey("eva@example.com")
	s.Require().NoError(s.store.Create(ctx, key))

	loaded, err := s.store.Load(ctx, key.ID)
	s.Require().NoError(err)
	loaded.State = models.StateDeleted

	again, err := s.store.Load(ctx, key.ID)
	s.Require().NoError(err)
	s.Equal(models.StatePending, again.State)
}

func (s *InMemoryStoreSuite) TestListOverdue() {
	ctx := context.Background()
	soon := s.newEmailKey("f@example.com")
	s.Require().NoError(s.store.Create(ctx, soon))

	later, err := models.NewKey(id.NewKeyID(), s.owner, models.KeyTypeEmail, "g@example.com", s.now, 3*time.Hour)
	s.Require().NoError(err)
	s.Require().NoError(s.store.Create(ctx, later))

	due, err := s.store.ListOverdue(ctx, s.now.Add(30*time.Minute), 10)
	s.Require().NoError(err)
	s.Empty(due)

	due, err = s.store.ListOverdue(ctx, s.now.Add(time.Hour), 10)
	s.Require().NoError(err)
	s.Equal([]id.KeyID{soon.ID}, due)

	due, err = s.store.ListOverdue(ctx, s.now.Add(4*time.Hour), 1)
	s.Require().NoError(err)
	s.Equal([]id.KeyID{soon.ID}, due, "limit keeps the earliest deadline")
}

func TestInMemory_ListByOwnerNewestFirst(t *testing.T) {
	ctx := context.Background()
	store := NewInMemory()
	owner := id.OwnerID(uuid.New())
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	var ids []id.KeyID
	for i := range 3 {
		key, err := models.NewKey(id.NewKeyID(), owner, models.KeyTypeRandom, "", base.Add(time.Duration(i)*time.Minute), time.Hour)
		require.NoError(t, err)
		require.NoError(t, store.Create(ctx, key))
		ids = append(ids, key.ID)
	}
	other, err := models.NewKey(id.NewKeyID(), id.OwnerID(uuid.New()), models.KeyTypeRandom, "", base, time.Hour)
	require.NoError(t, err)
	require.NoError(t, store.Create(ctx, other))

	listed, err := store.ListByOwner(ctx, owner)
	require.NoError(t, err)
	require.Len(t, listed, 3)
	assert.Equal(t, ids[2], listed[0].ID)
	assert.Equal(t, ids[0], listed[2].ID)
}
