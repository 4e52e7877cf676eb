package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"pixkeys/internal/pixkey/metrics"
	"pixkeys/internal/pixkey/models"
	"pixkeys/internal/pixkey/ports"
	id "pixkeys/pkg/domain"
	dErrors "pixkeys/pkg/domain-errors"
	"pixkeys/pkg/platform/sentinel"
	"pixkeys/pkg/platform/tx"
	"pixkeys/pkg/requestcontext"
)

const (
	defaultPendingTTL        = 24 * time.Hour
	defaultCallbackSkew      = 5 * time.Minute
	defaultSweepBatch        = 100
	defaultSweepConcurrency  = 8
	defaultReconcileGrace    = 30 * time.Second
	defaultReconcileAttempts = 10
	defaultReconcileBatch    = 100
)

var errVersionConflict = errors.New("version conflict")

// Service is the claim lifecycle engine. Every mutation goes through the
// transition table, a write-ahead intent for outbound directory calls and an
// optimistic-concurrency save.
type Service struct {
	keys      ports.KeyStore
	intents   ports.IntentStore
	events    ports.EventPublisher
	directory ports.DirectoryGateway
	codes     ports.CodeIssuer
	dedupe    ports.CallbackDeduper
	tx        tx.Runner
	machine   *models.Machine

	logger  *slog.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer
	clock   func() time.Time

	pendingTTL        time.Duration
	callbackSkew      time.Duration
	sweepBatch        int
	sweepConcurrency  int
	reconcileGrace    time.Duration
	reconcileAttempts int
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = tracer
	}
}

// WithClock fixes the engine's notion of now. Without it the request-scoped
// time from the context is used.
func WithClock(clock func() time.Time) Option {
	return func(s *Service) {
		s.clock = clock
	}
}

func WithCallbackDeduper(dedupe ports.CallbackDeduper) Option {
	return func(s *Service) {
		s.dedupe = dedupe
	}
}

// WithPendingTTL bounds how long a key waits in PENDING for its code.
func WithPendingTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.pendingTTL = ttl
		}
	}
}

// WithCallbackSkew tolerates clock differences when comparing claim open times.
func WithCallbackSkew(skew time.Duration) Option {
	return func(s *Service) {
		if skew >= 0 {
			s.callbackSkew = skew
		}
	}
}

func WithSweepLimits(batch, concurrency int) Option {
	return func(s *Service) {
		if batch > 0 {
			s.sweepBatch = batch
		}
		if concurrency > 0 {
			s.sweepConcurrency = concurrency
		}
	}
}

func WithReconcilePolicy(grace time.Duration, maxAttempts int) Option {
	return func(s *Service) {
		if grace > 0 {
			s.reconcileGrace = grace
		}
		if maxAttempts > 0 {
			s.reconcileAttempts = maxAttempts
		}
	}
}

// New constructs the engine.
func New(
	keys ports.KeyStore,
	intents ports.IntentStore,
	events ports.EventPublisher,
	directory ports.DirectoryGateway,
	codes ports.CodeIssuer,
	runner tx.Runner,
	policy models.Policy,
	opts ...Option,
) *Service {
	s := &Service{
		keys:              keys,
		intents:           intents,
		events:            events,
		directory:         directory,
		codes:             codes,
		tx:                runner,
		machine:           models.NewMachine(policy),
		logger:            slog.Default(),
		tracer:            otel.Tracer("pixkeys/pixkey"),
		pendingTTL:        defaultPendingTTL,
		callbackSkew:      defaultCallbackSkew,
		sweepBatch:        defaultSweepBatch,
		sweepConcurrency:  defaultSweepConcurrency,
		reconcileGrace:    defaultReconcileGrace,
		reconcileAttempts: defaultReconcileAttempts,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// execOptions tune one pass through transition.
type execOptions struct {
	// code proves the verification step a rule may require.
	code string
	// skipCode is set by the reconciler, which replays a transition whose
	// code was verified when the intent was recorded.
	skipCode bool
	// ack replays an acknowledgement already obtained for intent instead of
	// calling the directory again.
	ack    *models.Ack
	intent *models.Intent
}

// command is one user request against one key.
type command struct {
	keyID   id.KeyID
	trigger models.Trigger
	actor   id.OwnerID
	reason  models.Reason
	ispb    id.ISPB
	code    string
}

func (s *Service) now(ctx context.Context) time.Time {
	if s.clock != nil {
		return s.clock()
	}
	return requestcontext.Now(ctx)
}

// execute runs a user command with one reload-and-re-decide on conflict.
func (s *Service) execute(ctx context.Context, cmd command) (*models.Key, error) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "pixkey."+string(cmd.trigger), trace.WithAttributes(
		attribute.String("pix.key_id", cmd.keyID.String()),
	))
	defer span.End()
	defer s.metrics.ObserveCommand(string(cmd.trigger), start)

	key, err := s.retryOnConflict(ctx, func(ctx context.Context) (*models.Key, error) {
		return s.attemptCommand(ctx, cmd)
	})
	if err != nil {
		s.metrics.IncrementCommandFailure(string(cmd.trigger), string(dErrors.CodeOf(err)))
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.String("pix.state", string(key.State)))
	return key, nil
}

func (s *Service) retryOnConflict(ctx context.Context, fn func(ctx context.Context) (*models.Key, error)) (*models.Key, error) {
	for attempt := 0; ; attempt++ {
		key, err := fn(ctx)
		if !errors.Is(err, errVersionConflict) {
			return key, err
		}
		s.metrics.IncrementVersionConflict()
		if attempt >= 1 {
			return nil, dErrors.New(dErrors.CodeVersionConflict, "key was modified concurrently")
		}
		s.logger.InfoContext(ctx, "version conflict, re-evaluating", "error", err)
	}
}

func (s *Service) attemptCommand(ctx context.Context, cmd command) (*models.Key, error) {
	now := s.now(ctx)
	key, err := s.loadOwned(ctx, cmd.keyID, cmd.actor)
	if err != nil {
		return nil, err
	}
	key, err = s.expireIfOverdue(ctx, key, now)
	if err != nil {
		return nil, err
	}

	in := models.Input{
		Trigger:      cmd.trigger,
		Actor:        cmd.actor,
		Now:          now,
		Reason:       cmd.reason,
		Counterparty: cmd.ispb,
	}
	d, err := s.machine.Decide(key, in)
	if err != nil {
		return nil, err
	}
	if d.NoOp {
		s.logger.InfoContext(ctx, "command already applied",
			"key_id", key.ID,
			"trigger", cmd.trigger,
			"state", key.State,
		)
		return key, nil
	}
	return s.transition(ctx, key, d, in, execOptions{code: cmd.code})
}

// load fetches a key and translates store errors.
func (s *Service) load(ctx context.Context, keyID id.KeyID) (*models.Key, error) {
	key, err := s.keys.Load(ctx, keyID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "key not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load key")
	}
	return key, nil
}

// loadOwned hides keys of other owners behind not-found.
func (s *Service) loadOwned(ctx context.Context, keyID id.KeyID, ownerID id.OwnerID) (*models.Key, error) {
	key, err := s.load(ctx, keyID)
	if err != nil {
		return nil, err
	}
	if key.OwnerID != ownerID {
		return nil, dErrors.New(dErrors.CodeNotFound, "key not found")
	}
	return key, nil
}

// expireIfOverdue applies the deadline transition before anything else is
// evaluated against key. A settling key first learns from the directory how
// its claim ended and records that instead when it can.
func (s *Service) expireIfOverdue(ctx context.Context, key *models.Key, now time.Time) (*models.Key, error) {
	if !key.Overdue(now) {
		return key, nil
	}
	trigger := models.TriggerDeadline
	if key.State.IsSettling() {
		settled, ok := s.settledBy(ctx, key)
		if !ok {
			return key, nil
		}
		trigger = settled
	}
	in := models.Input{Trigger: trigger, Now: now}
	d, err := s.machine.Decide(key, in)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInvalidTransition) {
			return key, nil
		}
		return nil, err
	}
	return s.transition(ctx, key, d, in, execOptions{})
}

// settledBy maps the directory's view of a settling claim onto a trigger.
// ok is false when the directory could not answer; the key then waits for
// the next sweep.
func (s *Service) settledBy(ctx context.Context, key *models.Key) (models.Trigger, bool) {
	claim := key.ActiveClaim
	outcome, err := s.directory.ClaimStatus(ctx, models.DirectoryCall{
		KeyID:        key.ID,
		KeyType:      key.Type,
		Value:        key.Value,
		OwnerID:      key.OwnerID,
		ClaimID:      claim.ID,
		ProposalID:   claim.RequestID,
		ClaimKind:    claim.Kind,
		Counterparty: claim.Counterparty,
	})
	if err != nil {
		s.logger.WarnContext(ctx, "claim status lookup failed",
			"key_id", key.ID,
			"claim_id", claim.ID,
			"state", key.State,
			"error", err,
		)
		return "", false
	}

	switch outcome {
	case models.ClaimOutcomeCompleted:
		if s.machine.Allowed(key.State, models.TriggerClaimCompleted) {
			return models.TriggerClaimCompleted, true
		}
	case models.ClaimOutcomeCanceled:
		if s.machine.Allowed(key.State, models.TriggerClaimCanceled) {
			return models.TriggerClaimCanceled, true
		}
	}
	return models.TriggerDeadline, true
}

// transition verifies, calls out and commits one decision against key.
func (s *Service) transition(ctx context.Context, key *models.Key, d models.Decision, in models.Input, opts execOptions) (*models.Key, error) {
	if d.RequiresCode != "" && !opts.skipCode {
		if err := s.codes.Verify(ctx, key.ID, d.RequiresCode, opts.code); err != nil {
			return nil, codeError(err)
		}
	}

	var (
		intent *models.Intent
		acked  bool
		err    error
	)
	if d.Call != nil {
		intent, acked, err = s.callDirectory(ctx, key, &d, in, opts)
		if err != nil {
			return nil, err
		}
	}

	next := s.machine.Apply(key, d, in.Now)
	if err := next.CheckInvariants(); err != nil {
		return nil, err
	}

	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.keys.Save(ctx, next, key.Version); err != nil {
			return err
		}
		if err := s.events.Publish(ctx, eventFor(key, next, d, in)); err != nil {
			return err
		}
		if intent != nil && acked {
			return s.intents.Resolve(ctx, intent.RequestID, models.IntentCommitted, "", in.Now)
		}
		return nil
	})
	if err != nil {
		switch {
		case errors.Is(err, sentinel.ErrConflict):
			return nil, errVersionConflict
		case errors.Is(err, sentinel.ErrNotFound):
			return nil, dErrors.New(dErrors.CodeNotFound, "key not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to commit transition")
	}

	s.afterCommit(ctx, key, next, d, opts, intent)
	return next, nil
}

// callDirectory records the intent and sends the decision's call. A
// best-effort call never blocks the commit; its intent stays pending for
// the reconciler when the directory did not answer.
func (s *Service) callDirectory(ctx context.Context, key *models.Key, d *models.Decision, in models.Input, opts execOptions) (*models.Intent, bool, error) {
	call := *d.Call
	call.RequestID = models.RequestIDFor(key, call.Action)
	if opts.intent != nil {
		call.RequestID = opts.intent.RequestID
	}
	if d.Claim != nil && d.Claim.RequestID == "" && isProposal(call.Action) {
		d.Claim.RequestID = call.RequestID
		call.ProposalID = call.RequestID
	}
	d.Call = &call

	intent := opts.intent
	if intent == nil {
		recorded, err := s.intents.Upsert(ctx, &models.Intent{
			RequestID:   call.RequestID,
			KeyID:       key.ID,
			Trigger:     d.Trigger,
			Actor:       in.Actor,
			FromState:   d.From,
			ToState:     d.To,
			FromVersion: key.Version,
			Call:        call,
			CreatedAt:   in.Now,
			UpdatedAt:   in.Now,
		})
		if err != nil {
			return nil, false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to record directory intent")
		}
		intent = recorded
	}

	ack := opts.ack
	if ack == nil {
		got, err := ports.Send(ctx, s.directory, call)
		if err != nil {
			return intent, false, s.directoryFailure(ctx, intent, *d, in.Now, err)
		}
		ack = &got
	}
	if ack.ClaimID != "" && d.Claim != nil && d.Claim.ID == "" {
		d.Claim.ID = ack.ClaimID
	}
	return intent, true, nil
}

// directoryFailure classifies a failed call. It returns nil when the
// decision is best-effort and may commit without an acknowledgement.
func (s *Service) directoryFailure(ctx context.Context, intent *models.Intent, d models.Decision, now time.Time, err error) error {
	rejected := errors.Is(err, ports.ErrDirectoryRejected)
	if rejected {
		if rerr := s.intents.Resolve(ctx, intent.RequestID, models.IntentFailed, err.Error(), now); rerr != nil {
			s.logger.ErrorContext(ctx, "failed to resolve rejected intent",
				"request_id", intent.RequestID,
				"error", rerr,
			)
		}
	}
	if d.BestEffort {
		s.logger.WarnContext(ctx, "best-effort directory call failed, committing anyway",
			"key_id", intent.KeyID,
			"request_id", intent.RequestID,
			"action", intent.Call.Action,
			"error", err,
		)
		return nil
	}
	if rejected {
		return dErrors.Wrap(err, dErrors.CodeDirectoryRejected, "directory rejected the request")
	}
	s.logger.WarnContext(ctx, "directory call failed, intent left pending",
		"key_id", intent.KeyID,
		"request_id", intent.RequestID,
		"action", intent.Call.Action,
		"error", err,
	)
	return dErrors.Wrap(err, dErrors.CodeDirectoryUnavailable, "directory unavailable, retry later")
}

func (s *Service) afterCommit(ctx context.Context, prev, next *models.Key, d models.Decision, opts execOptions, intent *models.Intent) {
	if d.RequiresCode != "" && !opts.skipCode {
		if err := s.codes.Consume(ctx, next.ID, d.RequiresCode); err != nil {
			s.logger.WarnContext(ctx, "failed to consume verification code",
				"key_id", next.ID,
				"purpose", d.RequiresCode,
				"error", err,
			)
		}
	}
	if d.IssueCode != "" {
		s.issueCode(ctx, next, d.IssueCode)
	}

	s.metrics.IncrementTransition(string(d.Trigger), string(d.From), string(d.To))
	if d.Trigger == models.TriggerDeadline {
		s.metrics.IncrementExpiration(string(d.From))
	}
	requestID := ""
	if intent != nil {
		requestID = intent.RequestID
	}
	s.logTransition(ctx, prev, next, d, requestID)
}

func (s *Service) issueCode(ctx context.Context, key *models.Key, purpose models.CodePurpose) {
	if err := s.codes.Issue(ctx, key.ID, purpose, key.Value); err != nil {
		s.logger.WarnContext(ctx, "failed to issue verification code",
			"key_id", key.ID,
			"purpose", purpose,
			"error", err,
		)
	}
}

func (s *Service) logTransition(ctx context.Context, prev, next *models.Key, d models.Decision, requestID string) {
	args := []any{
		"key_id", next.ID,
		"owner_id", next.OwnerID,
		"trigger", d.Trigger,
		"from_state", prev.State,
		"to_state", next.State,
		"version", next.Version,
	}
	if len(d.Via) > 0 {
		args = append(args, "via", d.Via)
	}
	if requestID != "" {
		args = append(args, "request_id", requestID)
	}
	s.logger.InfoContext(ctx, "key transition", args...)
}

func eventFor(prev, next *models.Key, d models.Decision, in models.Input) models.Event {
	e := models.Event{
		ID:         models.EventIDFor(next.ID, next.Version),
		Type:       d.Event,
		KeyID:      next.ID,
		OwnerID:    next.OwnerID,
		KeyType:    next.Type,
		From:       d.From,
		To:         d.To,
		Via:        d.Via,
		Version:    next.Version,
		OccurredAt: in.Now,
	}
	claim := next.ActiveClaim
	if claim == nil {
		claim = prev.ActiveClaim
	}
	if claim != nil {
		e.ClaimKind = claim.Kind
		e.Counterparty = claim.Counterparty
		e.Reason = claim.Reason
	}
	if in.Reason != "" {
		e.Reason = in.Reason
	}
	if d.Call != nil && d.Call.Reason != "" {
		e.Reason = d.Call.Reason
	}
	return e
}

// codeError keeps coded errors from the issuer and hides anything else.
func codeError(err error) error {
	var de *dErrors.Error
	if errors.As(err, &de) {
		return err
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "failed to verify code")
}

func isProposal(action models.Action) bool {
	return action == models.ActionProposePortabilityClaim || action == models.ActionProposeOwnershipClaim
}
