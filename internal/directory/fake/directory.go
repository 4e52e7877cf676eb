// Package fake is an in-process key directory. It accepts every call unless
// told otherwise, dedupes on request id and can echo the callbacks a real
// directory would send.
package fake

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"pixkeys/internal/pixkey/models"
	"pixkeys/internal/pixkey/ports"
	id "pixkeys/pkg/domain"
)

// CallbackSink receives callbacks emitted by the directory.
type CallbackSink func(ctx context.Context, cb models.DirectoryCallback) error

type fault int

const (
	faultUnavailable fault = iota + 1
	faultLoseAck
)

// Directory implements ports.DirectoryGateway in memory.
type Directory struct {
	mu        sync.Mutex
	accepted  map[string]models.Ack
	rejected  map[string]bool
	calls     []models.DirectoryCall
	attempts  int
	faults    []fault
	rejecting map[models.Action]bool
	claimSeq  int
	// claims tracks claim outcomes by directory claim id; proposals maps a
	// proposal request id onto the claim it opened.
	claims    map[string]models.ClaimOutcome
	proposals map[string]string

	sink   CallbackSink
	delay  time.Duration
	logger *slog.Logger
	now    func() time.Time
}

type Option func(*Directory)

// WithCallbackSink makes the directory answer accepted calls with the
// matching callback, delivered asynchronously after delay.
func WithCallbackSink(sink CallbackSink, delay time.Duration) Option {
	return func(d *Directory) {
		d.sink = sink
		d.delay = delay
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(d *Directory) { d.logger = logger }
}

func WithClock(now func() time.Time) Option {
	return func(d *Directory) { d.now = now }
}

func New(opts ...Option) *Directory {
	d := &Directory{
		accepted:  make(map[string]models.Ack),
		rejected:  make(map[string]bool),
		rejecting: make(map[models.Action]bool),
		claims:    make(map[string]models.ClaimOutcome),
		proposals: make(map[string]string),
		logger:    slog.Default(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// SetCallbackSink attaches a sink after construction, for wiring where the
// engine is built after the directory.
func (d *Directory) SetCallbackSink(sink CallbackSink, delay time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sink = sink
	d.delay = delay
}

// FailNext makes the next call fail before reaching the directory.
func (d *Directory) FailNext() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.faults = append(d.faults, faultUnavailable)
}

// LoseNextAck makes the next call take effect but report a timeout.
func (d *Directory) LoseNextAck() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.faults = append(d.faults, faultLoseAck)
}

// Reject makes every future call with action fail as rejected.
func (d *Directory) Reject(action models.Action) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.rejecting[action] = true
}

// Calls returns the distinct calls the directory accepted, in order.
func (d *Directory) Calls() []models.DirectoryCall {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]models.DirectoryCall(nil), d.calls...)
}

// CallsFor returns the accepted calls with action.
func (d *Directory) CallsFor(action models.Action) []models.DirectoryCall {
	var out []models.DirectoryCall
	for _, c := range d.Calls() {
		if c.Action == action {
			out = append(out, c)
		}
	}
	return out
}

// Attempts counts every call received, including retries and failures.
func (d *Directory) Attempts() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.attempts
}

func (d *Directory) ProposeCreate(ctx context.Context, call models.DirectoryCall) (models.Ack, error) {
	return d.handle(ctx, call)
}

func (d *Directory) ProposeOwnershipClaim(ctx context.Context, call models.DirectoryCall) (models.Ack, error) {
	return d.handle(ctx, call)
}

func (d *Directory) ProposePortabilityClaim(ctx context.Context, call models.DirectoryCall) (models.Ack, error) {
	return d.handle(ctx, call)
}

func (d *Directory) ConfirmClaim(ctx context.Context, call models.DirectoryCall) (models.Ack, error) {
	return d.handle(ctx, call)
}

func (d *Directory) CancelClaim(ctx context.Context, call models.DirectoryCall) (models.Ack, error) {
	return d.handle(ctx, call)
}

func (d *Directory) Delete(ctx context.Context, call models.DirectoryCall) (models.Ack, error) {
	return d.handle(ctx, call)
}

func (d *Directory) RequestStatus(_ context.Context, requestID string) (models.RequestStatus, models.Ack, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if ack, ok := d.accepted[requestID]; ok {
		return models.RequestAccepted, ack, nil
	}
	if d.rejected[requestID] {
		return models.RequestRejected, models.Ack{}, nil
	}
	return models.RequestUnknown, models.Ack{}, nil
}

// SetClaimStatus overrides what ClaimStatus reports for claimID.
func (d *Directory) SetClaimStatus(claimID string, outcome models.ClaimOutcome) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.claims[claimID] = outcome
}

func (d *Directory) ClaimStatus(ctx context.Context, call models.DirectoryCall) (models.ClaimOutcome, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%w: %v", ports.ErrDirectoryTimeout, err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.faults) > 0 && d.faults[0] == faultUnavailable {
		d.faults = d.faults[1:]
		return "", ports.ErrDirectoryUnavailable
	}
	if outcome, ok := d.claims[d.claimIDFor(call)]; ok {
		return outcome, nil
	}
	return models.ClaimOutcomeUnknown, nil
}

// claimIDFor resolves the claim call addresses. Callers hold d.mu.
func (d *Directory) claimIDFor(call models.DirectoryCall) string {
	if _, ok := d.claims[call.ClaimID]; ok {
		return call.ClaimID
	}
	if claimID, ok := d.proposals[call.ProposalID]; ok {
		return claimID
	}
	return call.ClaimID
}

func (d *Directory) handle(ctx context.Context, call models.DirectoryCall) (models.Ack, error) {
	if err := ctx.Err(); err != nil {
		return models.Ack{}, fmt.Errorf("%w: %v", ports.ErrDirectoryTimeout, err)
	}
	if call.RequestID == "" {
		return models.Ack{}, fmt.Errorf("%w: missing request id", ports.ErrDirectoryRejected)
	}

	d.mu.Lock()
	d.attempts++
	var f fault
	if len(d.faults) > 0 {
		f, d.faults = d.faults[0], d.faults[1:]
	}
	if f == faultUnavailable {
		d.mu.Unlock()
		return models.Ack{}, ports.ErrDirectoryUnavailable
	}
	if ack, ok := d.accepted[call.RequestID]; ok {
		d.mu.Unlock()
		return ack, nil
	}
	if d.rejecting[call.Action] {
		d.rejected[call.RequestID] = true
		d.mu.Unlock()
		return models.Ack{}, fmt.Errorf("%w: %s", ports.ErrDirectoryRejected, call.Action)
	}

	ack := models.Ack{RequestID: call.RequestID, ClaimID: call.ClaimID}
	switch {
	case isProposal(call.Action):
		d.claimSeq++
		ack.ClaimID = fmt.Sprintf("claim-%d", d.claimSeq)
		d.claims[ack.ClaimID] = models.ClaimOutcomeOpen
		d.proposals[call.RequestID] = ack.ClaimID
	case call.Action == models.ActionConfirmClaim:
		d.claims[d.claimIDFor(call)] = models.ClaimOutcomeCompleted
	case call.Action == models.ActionCancelClaim:
		d.claims[d.claimIDFor(call)] = models.ClaimOutcomeCanceled
	}
	d.accepted[call.RequestID] = ack
	d.calls = append(d.calls, call)
	sink, delay := d.sink, d.delay
	d.mu.Unlock()

	if sink != nil {
		if cb, ok := d.echo(call, ack); ok {
			go d.deliver(sink, delay, cb)
		}
	}
	if f == faultLoseAck {
		return models.Ack{}, ports.ErrDirectoryTimeout
	}
	return ack, nil
}

// CallbackFor builds the callback the directory sends for an accepted call
// of the given type.
func (d *Directory) CallbackFor(call models.DirectoryCall, ack models.Ack, typ models.CallbackType) models.DirectoryCallback {
	now := d.now()
	return models.DirectoryCallback{
		EventID:       id.EventID(uuid.New()),
		Type:          typ,
		KeyID:         call.KeyID,
		ClaimID:       ack.ClaimID,
		RequestID:     firstNonEmpty(call.ProposalID, call.RequestID),
		ClaimKind:     call.ClaimKind,
		Role:          models.RoleClaimer,
		Counterparty:  call.Counterparty,
		ClaimOpenedAt: now,
		Reason:        call.Reason,
		OccurredAt:    now,
	}
}

func (d *Directory) echo(call models.DirectoryCall, ack models.Ack) (models.DirectoryCallback, bool) {
	var typ models.CallbackType
	switch call.Action {
	case models.ActionProposeCreate:
		typ = models.CallbackEntryCreated
	case models.ActionProposePortabilityClaim, models.ActionProposeOwnershipClaim:
		typ = models.CallbackClaimOpened
	case models.ActionConfirmClaim:
		typ = models.CallbackClaimCompleted
	case models.ActionCancelClaim:
		typ = models.CallbackClaimCanceled
	case models.ActionDelete:
		typ = models.CallbackEntryDeleted
	default:
		return models.DirectoryCallback{}, false
	}
	cb := d.CallbackFor(call, ack, typ)
	if !cb.IsClaimScoped() {
		cb.ClaimID, cb.RequestID, cb.ClaimKind, cb.Role = "", "", "", ""
		cb.ClaimOpenedAt = time.Time{}
	}
	return cb, true
}

func (d *Directory) deliver(sink CallbackSink, delay time.Duration, cb models.DirectoryCallback) {
	if delay > 0 {
		time.Sleep(delay)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := sink(ctx, cb); err != nil {
		d.logger.WarnContext(ctx, "fake directory callback failed",
			"key_id", cb.KeyID,
			"callback_type", cb.Type,
			"error", err,
		)
	}
}

func isProposal(action models.Action) bool {
	return action == models.ActionProposePortabilityClaim || action == models.ActionProposeOwnershipClaim
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
