package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/suite"

	"pixkeys/internal/directory/fake"
	"pixkeys/internal/pixkey/adapters"
	"pixkeys/internal/pixkey/metrics"
	"pixkeys/internal/pixkey/models"
	"pixkeys/internal/pixkey/store/dedupe"
	"pixkeys/internal/pixkey/store/intents"
	"pixkeys/internal/pixkey/store/keys"
	id "pixkeys/pkg/domain"
	dErrors "pixkeys/pkg/domain-errors"
	"pixkeys/pkg/platform/outbox/store/memory"
	"pixkeys/pkg/platform/tx"
)

const (
	validCode    = "24680"
	participant  = id.ISPB("11111111")
	counterparty = id.ISPB("22222222")
)

var testPolicy = models.Policy{
	Participant:      participant,
	ClaimOpenTimeout: time.Hour,
	ResolutionPeriod: 7 * 24 * time.Hour,
	SettleTimeout:    3 * 24 * time.Hour,
}

// codeBook accepts validCode for the purpose issued last per key.
type codeBook struct {
	mu       sync.Mutex
	issued   map[id.KeyID]models.CodePurpose
	consumed []models.CodePurpose
}

func newCodeBook() *codeBook {
	return &codeBook{issued: make(map[id.KeyID]models.CodePurpose)}
}

func (c *codeBook) Issue(_ context.Context, keyID id.KeyID, purpose models.CodePurpose, _ string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.issued[keyID] = purpose
	return nil
}

func (c *codeBook) Verify(_ context.Context, keyID id.KeyID, purpose models.CodePurpose, code string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.issued[keyID] != purpose || code != validCode {
		return dErrors.New(dErrors.CodeInvalidCode, "invalid verification code")
	}
	return nil
}

func (c *codeBook) Consume(_ context.Context, keyID id.KeyID, purpose models.CodePurpose) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.issued, keyID)
	c.consumed = append(c.consumed, purpose)
	return nil
}

func (c *codeBook) pending(keyID id.KeyID) models.CodePurpose {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.issued[keyID]
}

// =============================================================================
// Engine Test Suite
// =============================================================================
// The engine is exercised end to end against in-memory stores and the fake
// directory; callbacks are delivered by hand so ordering stays deterministic.

type ServiceSuite struct {
	suite.Suite
	ctx       context.Context
	now       time.Time
	clockMu   sync.Mutex
	keys      *keys.InMemory
	intents   *intents.InMemory
	outbox    *memory.InMemoryStore
	directory *fake.Directory
	codes     *codeBook
	metrics   *metrics.Metrics
	service   *Service
	owner     id.OwnerID
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.now = time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	s.keys = keys.NewInMemory()
	s.intents = intents.NewInMemory()
	s.outbox = memory.NewInMemoryStore()
	s.directory = fake.New(fake.WithClock(s.clock))
	s.codes = newCodeBook()
	s.metrics = metrics.New(prometheus.NewRegistry())
	s.owner = id.OwnerID(uuid.New())
	s.service = s.newService()
}

func (s *ServiceSuite) newService(opts ...Option) *Service {
	base := []Option{
		WithClock(s.clock),
		WithMetrics(s.metrics),
		WithCallbackDeduper(dedupe.NewInMemory()),
	}
	return New(s.keys, s.intents, adapters.NewOutboxPublisher(s.outbox), s.directory, s.codes,
		tx.NewMemory(), testPolicy, append(base, opts...)...)
}

func (s *ServiceSuite) clock() time.Time {
	s.clockMu.Lock()
	defer s.clockMu.Unlock()
	return s.now
}

func (s *ServiceSuite) advance(d time.Duration) {
	s.clockMu.Lock()
	defer s.clockMu.Unlock()
	s.now = s.now.Add(d)
}

func (s *ServiceSuite) requireCode(err error, code dErrors.Code) {
	s.T().Helper()
	s.Require().Error(err)
	s.Equal(code, dErrors.CodeOf(err), "unexpected error: %v", err)
}

func (s *ServiceSuite) stored(keyID id.KeyID) *models.Key {
	key, err := s.keys.Load(s.ctx, keyID)
	s.Require().NoError(err)
	return key
}

func (s *ServiceSuite) callback(keyID id.KeyID, typ models.CallbackType) models.DirectoryCallback {
	return models.DirectoryCallback{
		EventID:    id.EventID(uuid.New()),
		Type:       typ,
		KeyID:      keyID,
		OccurredAt: s.clock(),
	}
}

func (s *ServiceSuite) deliver(cb models.DirectoryCallback) *CallbackResult {
	s.T().Helper()
	res, err := s.service.OnDirectoryCallback(s.ctx, cb)
	s.Require().NoError(err)
	return res
}

// readyKey registers a RANDOM key and confirms it through the directory.
func (s *ServiceSuite) readyKey() *models.Key {
	s.T().Helper()
	key, err := s.service.CreateKey(s.ctx, s.owner, models.KeyTypeRandom, "")
	s.Require().NoError(err)
	s.Require().Equal(models.StateConfirmed, key.State)

	res := s.deliver(s.callback(key.ID, models.CallbackEntryCreated))
	s.Require().Equal(OutcomeApplied, res.Outcome)
	s.Require().Equal(models.StateReady, res.Key.State)
	return res.Key
}

func (s *ServiceSuite) donorClaim(key *models.Key, kind models.ClaimKind, claimID string) *models.Key {
	s.T().Helper()
	cb := s.callback(key.ID, models.CallbackClaimOpened)
	cb.ClaimID = claimID
	cb.ClaimKind = kind
	cb.Role = models.RoleDonor
	cb.Counterparty = id.ISPB("33333333")
	cb.ClaimOpenedAt = s.clock()
	res := s.deliver(cb)
	s.Require().Equal(OutcomeApplied, res.Outcome)
	return res.Key
}

func (s *ServiceSuite) eventTypes(keyID id.KeyID) []string {
	var out []string
	for _, e := range s.outbox.All() {
		if e.AggregateID == keyID.String() {
			out = append(out, e.EventType)
		}
	}
	return out
}

// =============================================================================
// Registration
// =============================================================================

func (s *ServiceSuite) TestCreateKey() {
	s.Run("email key waits for its confirmation code", func() {
		key, err := s.service.CreateKey(s.ctx, s.owner, models.KeyTypeEmail, " Ana@Example.com ")
		s.Require().NoError(err)
		s.Equal(models.StatePending, key.State)
		s.Equal("ana@example.com", key.Value)
		s.Equal(int64(1), key.Version)
		s.Require().NotNil(key.ExpiresAt)
		s.Equal(s.clock().Add(defaultPendingTTL), *key.ExpiresAt)
		s.Equal(models.CodeKeyConfirmation, s.codes.pending(key.ID))
		s.Empty(s.directory.CallsFor(models.ActionProposeCreate))
	})

	s.Run("random key is proposed right away", func() {
		key, err := s.service.CreateKey(s.ctx, s.owner, models.KeyTypeRandom, "")
		s.Require().NoError(err)
		s.Equal(models.StateConfirmed, key.State)
		s.NotEmpty(key.Value)

		calls := s.directory.CallsFor(models.ActionProposeCreate)
		s.Require().Len(calls, 1)
		s.Equal(key.ID, calls[0].KeyID)

		intent, err := s.intents.Get(s.ctx, calls[0].RequestID)
		s.Require().NoError(err)
		s.Equal(models.IntentCommitted, intent.Status)
	})

	s.Run("invalid value is rejected before anything is stored", func() {
		_, err := s.service.CreateKey(s.ctx, s.owner, models.KeyTypePhone, "5511999990000")
		s.requireCode(err, dErrors.CodeValidation)
	})

	s.Run("live duplicate value conflicts", func() {
		_, err := s.service.CreateKey(s.ctx, s.owner, models.KeyTypeEmail, "dup@example.com")
		s.Require().NoError(err)
		_, err = s.service.CreateKey(s.ctx, id.OwnerID(uuid.New()), models.KeyTypeEmail, "dup@example.com")
		s.requireCode(err, dErrors.CodeConflict)
	})
}

func (s *ServiceSuite) TestCreateKeyRejectedByDirectory() {
	s.directory.Reject(models.ActionProposeCreate)

	_, err := s.service.CreateKey(s.ctx, s.owner, models.KeyTypeRandom, "")
	s.requireCode(err, dErrors.CodeDirectoryRejected)

	owned, err := s.service.ListKeys(s.ctx, s.owner)
	s.Require().NoError(err)
	s.Require().Len(owned, 1)
	s.Equal(models.StateError, owned[0].State)
}

func (s *ServiceSuite) TestEmailRoundTrip() {
	key, err := s.service.CreateKey(s.ctx, s.owner, models.KeyTypeEmail, "round@example.com")
	s.Require().NoError(err)

	s.Run("wrong code keeps the key pending", func() {
		_, err := s.service.VerifyCode(s.ctx, s.owner, key.ID, "00000")
		s.requireCode(err, dErrors.CodeInvalidCode)
		s.Equal(models.StatePending, s.stored(key.ID).State)
	})

	s.Run("right code confirms and proposes the key", func() {
		confirmed, err := s.service.VerifyCode(s.ctx, s.owner, key.ID, validCode)
		s.Require().NoError(err)
		s.Equal(models.StateConfirmed, confirmed.State)
		s.Nil(confirmed.ExpiresAt)
		s.Len(s.directory.CallsFor(models.ActionProposeCreate), 1)
		s.Contains(s.codes.consumed, models.CodeKeyConfirmation)
	})

	s.Run("directory registration makes the key ready", func() {
		res := s.deliver(s.callback(key.ID, models.CallbackEntryCreated))
		s.Equal(OutcomeApplied, res.Outcome)
		s.Equal(models.StateReady, res.Key.State)
	})

	s.Equal([]string{
		string(models.EventKeyCreated),
		string(models.EventKeyConfirmed),
		string(models.EventKeyReady),
	}, s.eventTypes(key.ID))
}

func (s *ServiceSuite) TestResendCode() {
	s.Run("pending key gets a new confirmation code", func() {
		key, err := s.service.CreateKey(s.ctx, s.owner, models.KeyTypePhone, "+5511999990000")
		s.Require().NoError(err)
		s.Require().NoError(s.codes.Consume(s.ctx, key.ID, models.CodeKeyConfirmation))

		_, err = s.service.ResendCode(s.ctx, s.owner, key.ID)
		s.Require().NoError(err)
		s.Equal(models.CodeKeyConfirmation, s.codes.pending(key.ID))
	})

	s.Run("ready key has nothing to resend", func() {
		key := s.readyKey()
		_, err := s.service.ResendCode(s.ctx, s.owner, key.ID)
		s.requireCode(err, dErrors.CodeInvalidTransition)
	})
}

// =============================================================================
// Ownership of keys
// =============================================================================

func (s *ServiceSuite) TestOtherOwnersSeeNotFound() {
	key := s.readyKey()
	stranger := id.OwnerID(uuid.New())

	_, err := s.service.GetKey(s.ctx, stranger, key.ID)
	s.requireCode(err, dErrors.CodeNotFound)

	_, err = s.service.StartPortabilityClaim(s.ctx, stranger, key.ID, counterparty)
	s.requireCode(err, dErrors.CodeNotFound)

	_, err = s.service.DeleteKey(s.ctx, stranger, key.ID, "")
	s.requireCode(err, dErrors.CodeNotFound)

	s.Equal(models.StateReady, s.stored(key.ID).State)
}

func (s *ServiceSuite) TestGetKeyExpiresOverduePendingKey() {
	key, err := s.service.CreateKey(s.ctx, s.owner, models.KeyTypeEmail, "late@example.com")
	s.Require().NoError(err)

	s.advance(defaultPendingTTL + time.Minute)
	got, err := s.service.GetKey(s.ctx, s.owner, key.ID)
	s.Require().NoError(err)
	s.Equal(models.StateNotConfirmed, got.State)

	_, err = s.service.VerifyCode(s.ctx, s.owner, key.ID, validCode)
	s.requireCode(err, dErrors.CodeInvalidTransition)
}

// =============================================================================
// Claims we open
// =============================================================================

func (s *ServiceSuite) TestPortabilityClaimCompletes() {
	key := s.readyKey()

	pending, err := s.service.StartPortabilityClaim(s.ctx, s.owner, key.ID, counterparty)
	s.Require().NoError(err)
	s.Equal(models.StatePortabilityPending, pending.State)
	s.Require().NotNil(pending.ActiveClaim)
	s.Equal("claim-1", pending.ActiveClaim.ID)
	s.Equal(models.RoleClaimer, pending.ActiveClaim.Role)
	s.NotEmpty(pending.ActiveClaim.RequestID)

	opened := s.callback(key.ID, models.CallbackClaimOpened)
	opened.ClaimID = "claim-1"
	opened.ClaimKind = models.ClaimPortability
	opened.Role = models.RoleClaimer
	opened.ClaimOpenedAt = s.clock()
	res := s.deliver(opened)
	s.Require().Equal(OutcomeApplied, res.Outcome)
	s.Equal(models.StatePortabilityOpened, res.Key.State)

	started, err := s.service.ApprovePortabilityStart(s.ctx, s.owner, key.ID)
	s.Require().NoError(err)
	s.Equal(models.StatePortabilityStarted, started.State)
	s.Len(s.directory.CallsFor(models.ActionConfirmClaim), 1)

	completed := s.callback(key.ID, models.CallbackClaimCompleted)
	completed.ClaimID = "claim-1"
	res = s.deliver(completed)
	s.Require().Equal(OutcomeApplied, res.Outcome)
	s.Equal(models.StateReady, res.Key.State)
	s.Nil(res.Key.ActiveClaim)

	s.Contains(s.eventTypes(key.ID), string(models.EventPortabilityCompleted))
}

func (s *ServiceSuite) TestCancelPortabilityStartTwice() {
	key := s.readyKey()
	_, err := s.service.StartPortabilityClaim(s.ctx, s.owner, key.ID, counterparty)
	s.Require().NoError(err)

	canceled, err := s.service.CancelPortabilityStart(s.ctx, s.owner, key.ID, "")
	s.Require().NoError(err)
	s.Equal(models.StateCanceled, canceled.State)

	again, err := s.service.CancelPortabilityStart(s.ctx, s.owner, key.ID, "")
	s.Require().NoError(err)
	s.Equal(models.StateCanceled, again.State)
	s.Equal(canceled.Version, again.Version)

	cancels := s.directory.CallsFor(models.ActionCancelClaim)
	s.Require().Len(cancels, 1)
	s.Equal("claim-1", cancels[0].ClaimID)
	s.Equal(models.ReasonUserRequested, cancels[0].Reason)
}

func (s *ServiceSuite) TestCancelPortabilityAfterDirectoryOpenedIt() {
	key := s.readyKey()
	pending, err := s.service.StartPortabilityClaim(s.ctx, s.owner, key.ID, counterparty)
	s.Require().NoError(err)

	opened := s.callback(key.ID, models.CallbackClaimOpened)
	opened.ClaimID = pending.ActiveClaim.ID
	opened.ClaimKind = models.ClaimPortability
	opened.Role = models.RoleClaimer
	s.Require().Equal(models.StatePortabilityOpened, s.deliver(opened).Key.State)

	canceled, err := s.service.CancelPortabilityStart(s.ctx, s.owner, key.ID, models.ReasonFraud)
	s.Require().NoError(err)
	s.Equal(models.StateCanceled, canceled.State)
	s.Nil(canceled.ActiveClaim)
	s.True(canceled.ClaimResolved("claim-1"))

	cancels := s.directory.CallsFor(models.ActionCancelClaim)
	s.Require().Len(cancels, 1)
	s.Equal("claim-1", cancels[0].ClaimID)
	s.Equal(models.ReasonFraud, cancels[0].Reason)
	s.Contains(s.eventTypes(key.ID), string(models.EventClaimCanceled))
}

func (s *ServiceSuite) TestOwnershipClaimTransfersKey() {
	key := s.readyKey()

	pending, err := s.service.StartOwnershipClaim(s.ctx, s.owner, key.ID, counterparty)
	s.Require().NoError(err)
	s.Equal(models.StateOwnershipPending, pending.State)

	opened := s.callback(key.ID, models.CallbackClaimOpened)
	opened.ClaimID = pending.ActiveClaim.ID
	opened.Role = models.RoleClaimer
	opened.ClaimKind = models.ClaimOwnership
	s.Equal(models.StateOwnershipOpened, s.deliver(opened).Key.State)

	_, err = s.service.ApproveOwnershipStart(s.ctx, s.owner, key.ID)
	s.Require().NoError(err)

	completed := s.callback(key.ID, models.CallbackClaimCompleted)
	completed.ClaimID = pending.ActiveClaim.ID
	res := s.deliver(completed)
	s.Equal(models.StateOwnershipReady, res.Key.State)
	s.Len(s.directory.CallsFor(models.ActionProposeCreate), 2, "registration of the transferred key follows the claim")
}

func (s *ServiceSuite) TestCancelOwnershipInProgress() {
	key := s.readyKey()
	pending, err := s.service.StartOwnershipClaim(s.ctx, s.owner, key.ID, counterparty)
	s.Require().NoError(err)

	opened := s.callback(key.ID, models.CallbackClaimOpened)
	opened.ClaimID = pending.ActiveClaim.ID
	opened.Role = models.RoleClaimer
	opened.ClaimKind = models.ClaimOwnership
	s.deliver(opened)
	_, err = s.service.ApproveOwnershipStart(s.ctx, s.owner, key.ID)
	s.Require().NoError(err)

	canceling, err := s.service.CancelOwnershipInProgress(s.ctx, s.owner, key.ID, models.ReasonFraud)
	s.Require().NoError(err)
	s.Equal(models.StateOwnershipCanceling, canceling.State)
	s.Equal(models.ReasonFraud, canceling.ActiveClaim.Reason)

	canceled := s.callback(key.ID, models.CallbackClaimCanceled)
	canceled.ClaimID = pending.ActiveClaim.ID
	s.Equal(models.StateOwnershipCanceled, s.deliver(canceled).Key.State)

	_, err = s.service.CancelOwnershipInProgress(s.ctx, s.owner, key.ID, models.ReasonFraud)
	s.Require().NoError(err, "repeating a resolved cancel succeeds")
}

func (s *ServiceSuite) TestStartClaimValidation() {
	key := s.readyKey()

	_, err := s.service.StartPortabilityClaim(s.ctx, s.owner, key.ID, participant)
	s.requireCode(err, dErrors.CodeValidation)

	_, err = s.service.StartOwnershipClaim(s.ctx, s.owner, key.ID, id.ISPB("12ab"))
	s.requireCode(err, dErrors.CodeValidation)

	s.Empty(s.directory.Calls()[1:], "only the key registration reached the directory")
}

// =============================================================================
// Claims against our keys
// =============================================================================

func (s *ServiceSuite) TestClaimPendingVerifyDenies() {
	key := s.donorClaim(s.readyKey(), models.ClaimOwnership, "ext-1")
	s.Equal(models.StateClaimPending, key.State)
	s.Equal(models.CodeClaimPossession, s.codes.pending(key.ID))

	denied, err := s.service.VerifyCode(s.ctx, s.owner, key.ID, validCode)
	s.Require().NoError(err)
	s.Equal(models.StateClaimDenied, denied.State)

	_, err = s.service.VerifyCode(s.ctx, s.owner, key.ID, validCode)
	s.requireCode(err, dErrors.CodeInvalidTransition)

	cancels := s.directory.CallsFor(models.ActionCancelClaim)
	s.Require().Len(cancels, 1)
	s.Equal("ext-1", cancels[0].ClaimID)
	s.Equal(models.ReasonPossessionConfirmed, cancels[0].Reason)
}

func (s *ServiceSuite) TestReleaseClaimedKey() {
	key := s.donorClaim(s.readyKey(), models.ClaimOwnership, "ext-2")

	closing, err := s.service.ReleaseClaimedKey(s.ctx, s.owner, key.ID)
	s.Require().NoError(err)
	s.Equal(models.StateClaimClosing, closing.State)

	completed := s.callback(key.ID, models.CallbackClaimCompleted)
	completed.ClaimID = "ext-2"
	s.Equal(models.StateClaimClosed, s.deliver(completed).Key.State)
}

func (s *ServiceSuite) TestPortabilityRequestResponses() {
	s.Run("confirmed with a code", func() {
		key := s.donorClaim(s.readyKey(), models.ClaimPortability, "ext-3")
		s.Equal(models.StatePortabilityRequestPending, key.State)

		opened, err := s.service.ConfirmPortabilityRequest(s.ctx, s.owner, key.ID)
		s.Require().NoError(err)
		s.Equal(models.StatePortabilityRequestConfirmOpened, opened.State)
		s.Equal(models.CodePortabilityResponse, s.codes.pending(key.ID))

		started, err := s.service.VerifyCode(s.ctx, s.owner, key.ID, validCode)
		s.Require().NoError(err)
		s.Equal(models.StatePortabilityRequestConfirmStarted, started.State)
	})

	s.Run("denied with a code", func() {
		key := s.donorClaim(s.readyKey(), models.ClaimPortability, "ext-4")

		_, err := s.service.DenyPortabilityRequest(s.ctx, s.owner, key.ID, models.ReasonUserRequested)
		s.Require().NoError(err)
		started, err := s.service.VerifyCode(s.ctx, s.owner, key.ID, validCode)
		s.Require().NoError(err)
		s.Equal(models.StatePortabilityRequestCancelStarted, started.State)

		var reason models.Reason
		for _, c := range s.directory.CallsFor(models.ActionCancelClaim) {
			if c.ClaimID == "ext-4" {
				reason = c.Reason
			}
		}
		s.Equal(models.ReasonDonorRequest, reason)

		withdrawn := s.callback(key.ID, models.CallbackClaimCanceled)
		withdrawn.ClaimID = "ext-4"
		s.Equal(models.StateReady, s.deliver(withdrawn).Key.State)
	})
}

// =============================================================================
// Deletion
// =============================================================================

func (s *ServiceSuite) TestDeleteKey() {
	s.Run("ready key is deleted through the directory", func() {
		key := s.readyKey()

		deleting, err := s.service.DeleteKey(s.ctx, s.owner, key.ID, "")
		s.Require().NoError(err)
		s.Equal(models.StateDeleting, deleting.State)

		again, err := s.service.DeleteKey(s.ctx, s.owner, key.ID, "")
		s.Require().NoError(err)
		s.Equal(deleting.Version, again.Version)

		res := s.deliver(s.callback(key.ID, models.CallbackEntryDeleted))
		s.Equal(models.StateDeleted, res.Key.State)

		_, err = s.service.DeleteKey(s.ctx, s.owner, key.ID, "")
		s.requireCode(err, dErrors.CodeInvalidTransition)

		deletes := 0
		for _, c := range s.directory.CallsFor(models.ActionDelete) {
			if c.KeyID == key.ID {
				deletes++
			}
		}
		s.Equal(1, deletes)
	})

	s.Run("key under claim cannot be deleted", func() {
		key := s.readyKey()
		_, err := s.service.StartPortabilityClaim(s.ctx, s.owner, key.ID, counterparty)
		s.Require().NoError(err)

		_, err = s.service.DeleteKey(s.ctx, s.owner, key.ID, "")
		s.requireCode(err, dErrors.CodeInvalidTransition)
		s.Equal(models.StatePortabilityPending, s.stored(key.ID).State)
	})

	s.Run("pending key is deleted locally", func() {
		key, err := s.service.CreateKey(s.ctx, s.owner, models.KeyTypeEmail, "gone@example.com")
		s.Require().NoError(err)
		before := len(s.directory.Calls())

		deleted, err := s.service.DeleteKey(s.ctx, s.owner, key.ID, "")
		s.Require().NoError(err)
		s.Equal(models.StateDeleted, deleted.State)
		s.Len(s.directory.Calls(), before)
	})

	s.Run("value can be registered again after deletion", func() {
		key, err := s.service.CreateKey(s.ctx, s.owner, models.KeyTypeEmail, "gone@example.com")
		s.Require().NoError(err)
		s.Equal(models.StatePending, key.State)
	})
}

// =============================================================================
// Directory failures
// =============================================================================

func (s *ServiceSuite) TestDirectoryUnavailableLeavesKeyUnchanged() {
	key := s.readyKey()
	s.directory.FailNext()

	_, err := s.service.StartPortabilityClaim(s.ctx, s.owner, key.ID, counterparty)
	s.requireCode(err, dErrors.CodeDirectoryUnavailable)

	unchanged := s.stored(key.ID)
	s.Equal(models.StateReady, unchanged.State)
	s.Equal(key.Version, unchanged.Version)
	s.Contains(s.eventTypes(key.ID), string(models.EventKeyReady))
	s.NotContains(s.eventTypes(key.ID), string(models.EventPortabilityRequested))

	requestID := models.RequestIDFor(key, models.ActionProposePortabilityClaim)
	pending, err := s.service.StartPortabilityClaim(s.ctx, s.owner, key.ID, counterparty)
	s.Require().NoError(err)
	s.Equal(requestID, pending.ActiveClaim.RequestID, "the retry reuses the request id")

	intent, err := s.intents.Get(s.ctx, requestID)
	s.Require().NoError(err)
	s.Equal(2, intent.Attempts)
	s.Equal(models.IntentCommitted, intent.Status)
}

func (s *ServiceSuite) TestConcurrentCommandsCommitOnce() {
	key := s.readyKey()

	const workers = 6
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		failures  []error
	)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.service.StartPortabilityClaim(s.ctx, s.owner, key.ID, counterparty)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failures = append(failures, err)
				return
			}
			succeeded++
		}()
	}
	wg.Wait()

	s.Equal(1, succeeded)
	for _, err := range failures {
		code := dErrors.CodeOf(err)
		s.True(code == dErrors.CodeInvalidTransition || code == dErrors.CodeVersionConflict, "unexpected error: %v", err)
	}
	final := s.stored(key.ID)
	s.Equal(models.StatePortabilityPending, final.State)
	s.Equal(key.Version+1, final.Version)
	s.Len(s.directory.CallsFor(models.ActionProposePortabilityClaim), 1)
}
