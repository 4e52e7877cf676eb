package models

import (
	"time"

	id "pixkeys/pkg/domain"
	dErrors "pixkeys/pkg/domain-errors"
)

// Trigger is anything that can move a key: a user command, a directory
// callback or the passage of a deadline.
type Trigger string

const (
	TriggerCreate                      Trigger = "create"
	TriggerVerifyCode                  Trigger = "verify_code"
	TriggerStartPortability            Trigger = "start_portability"
	TriggerApprovePortabilityStart     Trigger = "approve_portability_start"
	TriggerCancelPortabilityStart      Trigger = "cancel_portability_start"
	TriggerCancelPortabilityInProgress Trigger = "cancel_portability_in_progress"
	TriggerStartOwnership              Trigger = "start_ownership"
	TriggerApproveOwnershipStart       Trigger = "approve_ownership_start"
	TriggerCancelOwnershipStart        Trigger = "cancel_ownership_start"
	TriggerCancelOwnershipInProgress   Trigger = "cancel_ownership_in_progress"
	TriggerConfirmPortabilityRequest   Trigger = "confirm_portability_request"
	TriggerDenyPortabilityRequest      Trigger = "deny_portability_request"
	TriggerReleaseClaimedKey           Trigger = "release_claimed_key"
	TriggerDelete                      Trigger = "delete"

	TriggerDeadline Trigger = "deadline"

	TriggerEntryCreated               Trigger = "entry_created"
	TriggerEntryRejected              Trigger = "entry_rejected"
	TriggerEntryDeleted               Trigger = "entry_deleted"
	TriggerClaimOpened                Trigger = "claim_opened"
	TriggerPortabilityRequestReceived Trigger = "portability_request_received"
	TriggerOwnershipClaimReceived     Trigger = "ownership_claim_received"
	TriggerClaimConfirmed             Trigger = "claim_confirmed"
	TriggerClaimDenied                Trigger = "claim_denied"
	TriggerClaimCompleted             Trigger = "claim_completed"
	TriggerClaimCanceled              Trigger = "claim_canceled"
	TriggerClaimExpired               Trigger = "claim_expired"
	TriggerClaimConflictReported      Trigger = "claim_conflict_reported"
	TriggerClaimWaitingReported       Trigger = "claim_waiting_reported"
)

var callbackTriggers = map[Trigger]bool{
	TriggerEntryCreated:               true,
	TriggerEntryRejected:              true,
	TriggerEntryDeleted:               true,
	TriggerClaimOpened:                true,
	TriggerPortabilityRequestReceived: true,
	TriggerOwnershipClaimReceived:     true,
	TriggerClaimConfirmed:             true,
	TriggerClaimDenied:                true,
	TriggerClaimCompleted:             true,
	TriggerClaimCanceled:              true,
	TriggerClaimExpired:               true,
	TriggerClaimConflictReported:      true,
	TriggerClaimWaitingReported:       true,
}

func (t Trigger) IsCallback() bool { return callbackTriggers[t] }

func (t Trigger) IsCommand() bool { return !t.IsCallback() && t != TriggerDeadline }

// CodePurpose binds a verification code to the step it authorises.
type CodePurpose string

const (
	CodeKeyConfirmation     CodePurpose = "KEY_CONFIRMATION"
	CodeClaimPossession     CodePurpose = "CLAIM_POSSESSION"
	CodePortabilityResponse CodePurpose = "PORTABILITY_RESPONSE"
)

// Policy carries the timing and identity parameters of the table.
type Policy struct {
	// Participant is our own institution code.
	Participant id.ISPB
	// ClaimOpenTimeout bounds how long a proposal may wait for the directory to open it.
	ClaimOpenTimeout time.Duration
	// ResolutionPeriod bounds how long an open claim waits for the other side.
	ResolutionPeriod time.Duration
	// SettleTimeout bounds how long a decided claim waits for the directory
	// to complete it.
	SettleTimeout time.Duration
}

// Input is everything Decide needs besides the key itself.
type Input struct {
	Trigger      Trigger
	Actor        id.OwnerID
	Now          time.Time
	Reason       Reason
	Counterparty id.ISPB
	Callback     *DirectoryCallback
}

// Decision is the outcome of evaluating one trigger against one key.
type Decision struct {
	Trigger    Trigger
	From       State
	To         State
	Via        []State
	Claim      *Claim
	Call       *DirectoryCall
	BestEffort bool
	Event      EventType
	// RequiresCode is the code purpose the caller must prove before commit.
	RequiresCode CodePurpose
	// IssueCode is the code purpose to issue after commit.
	IssueCode CodePurpose
	// NoOp marks an already-applied trigger: nothing to call, save or publish.
	NoOp bool
}

type claimEffect int

const (
	claimKeep claimEffect = iota
	claimOpen
	claimReceive
	claimOpened
	claimRespond
	claimSettle
	claimClear
)

type guard func(k *Key, in Input, p Policy) error

type rule struct {
	from       []State
	on         Trigger
	to         State
	via        []State
	guards     []guard
	claim      claimEffect
	kind       ClaimKind
	call       Action
	reason     Reason
	bestEffort bool
	event      EventType
	needsCode  CodePurpose
	issueCode  CodePurpose
}

type ruleKey struct {
	from State
	on   Trigger
}

// resolved lists, per cancel-like command, the states in which the command
// has already taken effect. Matching keys return unchanged without error.
type resolution struct {
	states map[State]bool
	kind   ClaimKind
}

var transitionRules = []rule{
	// key registration
	{from: []State{StatePending}, on: TriggerVerifyCode, to: StateConfirmed,
		guards: []guard{ownedByActor}, needsCode: CodeKeyConfirmation,
		call: ActionProposeCreate, event: EventKeyConfirmed},
	{from: []State{StateConfirmed, StateAddKeyReady, StatePortabilityReady, StateOwnershipReady}, on: TriggerEntryCreated, to: StateReady,
		event: EventKeyReady},
	{from: []State{StateConfirmed, StateOwnershipReady}, on: TriggerEntryRejected, to: StateError,
		event: EventKeyFailed},

	// portability, our user claims
	{from: []State{StateReady}, on: TriggerStartPortability, to: StatePortabilityPending,
		guards: []guard{ownedByActor, validCounterparty}, claim: claimOpen, kind: ClaimPortability,
		call: ActionProposePortabilityClaim, event: EventPortabilityRequested},
	{from: []State{StatePortabilityPending}, on: TriggerClaimOpened, to: StatePortabilityOpened,
		claim: claimOpened, event: EventClaimOpened},
	{from: []State{StatePortabilityOpened}, on: TriggerApprovePortabilityStart, to: StatePortabilityStarted,
		guards: []guard{proposedByActor, beforeDeadline}, claim: claimSettle, call: ActionConfirmClaim, event: EventPortabilityStarted},
	{from: []State{StatePortabilityOpened}, on: TriggerClaimConfirmed, to: StatePortabilityStarted,
		claim: claimSettle, event: EventPortabilityStarted},
	{from: []State{StatePortabilityStarted, StatePortabilityCanceling}, on: TriggerClaimCompleted, to: StateReady,
		via: []State{StatePortabilityConfirmed}, claim: claimClear, event: EventPortabilityCompleted},
	{from: []State{StatePortabilityPending, StatePortabilityOpened}, on: TriggerCancelPortabilityStart, to: StateCanceled,
		guards: []guard{proposedByActor, validReason}, claim: claimClear, call: ActionCancelClaim, event: EventClaimCanceled},
	{from: []State{StatePortabilityStarted}, on: TriggerCancelPortabilityInProgress, to: StatePortabilityCanceling,
		guards: []guard{proposedByActor, validReason}, claim: claimSettle, call: ActionCancelClaim, event: EventClaimCancelRequested},
	{from: []State{StatePortabilityStarted, StatePortabilityCanceling}, on: TriggerClaimCanceled, to: StatePortabilityCanceled,
		claim: claimClear, event: EventClaimCanceled},
	{from: []State{StatePortabilityOpened, StatePortabilityStarted}, on: TriggerClaimDenied, to: StatePortabilityCanceled,
		claim: claimClear, event: EventClaimDenied},

	// ownership, our user claims
	{from: []State{StateReady}, on: TriggerStartOwnership, to: StateOwnershipPending,
		guards: []guard{ownedByActor, validCounterparty}, claim: claimOpen, kind: ClaimOwnership,
		call: ActionProposeOwnershipClaim, event: EventOwnershipClaimRequested},
	{from: []State{StateOwnershipPending, StateOwnershipConflict, StateOwnershipWaiting}, on: TriggerClaimOpened, to: StateOwnershipOpened,
		claim: claimOpened, event: EventClaimOpened},
	{from: []State{StateOwnershipPending, StateOwnershipOpened}, on: TriggerCancelOwnershipStart, to: StateCanceled,
		guards: []guard{ownedByActor, validReason}, claim: claimClear, call: ActionCancelClaim, event: EventClaimCanceled},
	{from: []State{StateOwnershipOpened}, on: TriggerApproveOwnershipStart, to: StateOwnershipStarted,
		guards: []guard{ownedByActor, beforeDeadline}, claim: claimSettle, call: ActionConfirmClaim, event: EventOwnershipStarted},
	{from: []State{StateOwnershipOpened}, on: TriggerClaimConfirmed, to: StateOwnershipStarted,
		claim: claimSettle, event: EventOwnershipStarted},
	{from: []State{StateOwnershipStarted}, on: TriggerCancelOwnershipInProgress, to: StateOwnershipCanceling,
		guards: []guard{ownedByActor, validReason}, claim: claimSettle, call: ActionCancelClaim, event: EventClaimCancelRequested},
	{from: []State{StateOwnershipStarted, StateOwnershipCanceling}, on: TriggerClaimCanceled, to: StateOwnershipCanceled,
		claim: claimClear, event: EventClaimCanceled},
	{from: []State{StateOwnershipStarted, StateOwnershipCanceling}, on: TriggerClaimCompleted, to: StateOwnershipReady,
		via: []State{StateOwnershipConfirmed}, claim: claimClear, call: ActionProposeCreate, bestEffort: true,
		event: EventOwnershipTransferred},
	{from: []State{StateOwnershipOpened, StateOwnershipStarted, StateOwnershipConflict, StateOwnershipWaiting}, on: TriggerClaimDenied, to: StateOwnershipCanceled,
		claim: claimClear, event: EventClaimDenied},
	{from: []State{StateOwnershipPending, StateOwnershipOpened, StateOwnershipWaiting}, on: TriggerClaimConflictReported, to: StateOwnershipConflict,
		event: EventClaimConflict},
	{from: []State{StateOwnershipPending, StateOwnershipOpened, StateOwnershipConflict}, on: TriggerClaimWaitingReported, to: StateOwnershipWaiting,
		event: EventClaimWaiting},
	{from: []State{StatePortabilityPending, StatePortabilityOpened, StateOwnershipPending, StateOwnershipOpened, StateOwnershipConflict, StateOwnershipWaiting}, on: TriggerClaimExpired, to: StateCanceled,
		claim: claimClear, event: EventClaimExpired},

	// portability, a third party claims our key
	{from: []State{StateReady}, on: TriggerPortabilityRequestReceived, to: StatePortabilityRequestPending,
		claim: claimReceive, kind: ClaimPortability, event: EventPortabilityRequestReceived},
	{from: []State{StatePortabilityRequestPending}, on: TriggerConfirmPortabilityRequest, to: StatePortabilityRequestConfirmOpened,
		guards: []guard{ownedByActor, beforeDeadline}, claim: claimRespond, issueCode: CodePortabilityResponse,
		event: EventPortabilityResponseOpened},
	{from: []State{StatePortabilityRequestPending}, on: TriggerDenyPortabilityRequest, to: StatePortabilityRequestCancelOpened,
		guards: []guard{ownedByActor, beforeDeadline, validReason}, claim: claimRespond, issueCode: CodePortabilityResponse,
		event: EventPortabilityResponseOpened},
	{from: []State{StatePortabilityRequestConfirmOpened}, on: TriggerVerifyCode, to: StatePortabilityRequestConfirmStarted,
		guards: []guard{ownedByActor}, needsCode: CodePortabilityResponse, claim: claimSettle,
		call: ActionConfirmClaim, event: EventPortabilityRequestApproved},
	{from: []State{StatePortabilityRequestCancelOpened}, on: TriggerVerifyCode, to: StatePortabilityRequestCancelStarted,
		guards: []guard{ownedByActor}, needsCode: CodePortabilityResponse, claim: claimSettle,
		call: ActionCancelClaim, reason: ReasonDonorRequest, event: EventPortabilityRequestDenied},
	{from: []State{StatePortabilityRequestConfirmStarted, StatePortabilityRequestAutoConfirmed, StatePortabilityRequestCancelStarted}, on: TriggerClaimCompleted, to: StateClaimClosed,
		claim: claimClear, event: EventKeyReleased},
	{from: []State{StatePortabilityRequestPending, StatePortabilityRequestCancelOpened, StatePortabilityRequestCancelStarted, StatePortabilityRequestConfirmOpened, StatePortabilityRequestConfirmStarted, StatePortabilityRequestAutoConfirmed}, on: TriggerClaimCanceled, to: StateReady,
		claim: claimClear, event: EventClaimWithdrawn},
	{from: []State{StatePortabilityRequestPending, StatePortabilityRequestCancelOpened, StatePortabilityRequestCancelStarted, StatePortabilityRequestConfirmOpened}, on: TriggerClaimExpired, to: StateReady,
		claim: claimClear, event: EventClaimWithdrawn},

	// ownership, a third party claims our key
	{from: []State{StateReady}, on: TriggerOwnershipClaimReceived, to: StateClaimPending,
		claim: claimReceive, kind: ClaimOwnership, issueCode: CodeClaimPossession, event: EventOwnershipClaimReceived},
	{from: []State{StateClaimPending}, on: TriggerVerifyCode, to: StateClaimDenied,
		guards: []guard{ownedByActor}, needsCode: CodeClaimPossession, claim: claimClear,
		call: ActionCancelClaim, reason: ReasonPossessionConfirmed, event: EventClaimDenied},
	{from: []State{StateClaimPending}, on: TriggerReleaseClaimedKey, to: StateClaimClosing,
		guards: []guard{ownedByActor, beforeDeadline}, claim: claimSettle, call: ActionConfirmClaim, event: EventKeyReleaseRequested},
	{from: []State{StateClaimClosing}, on: TriggerClaimCompleted, to: StateClaimClosed,
		claim: claimClear, event: EventKeyReleased},
	{from: []State{StateClaimPending, StateClaimClosing}, on: TriggerClaimCanceled, to: StateReady,
		claim: claimClear, event: EventClaimWithdrawn},
	{from: []State{StateClaimPending}, on: TriggerClaimExpired, to: StateReady,
		claim: claimClear, event: EventClaimWithdrawn},

	// deletion
	{from: []State{StateReady, StateConfirmed, StateAddKeyReady, StatePortabilityReady, StateOwnershipReady}, on: TriggerDelete, to: StateDeleting,
		guards: []guard{ownedByActor}, call: ActionDelete, event: EventKeyDeletionRequested},
	{from: []State{StatePending}, on: TriggerDelete, to: StateDeleted,
		guards: []guard{ownedByActor}, event: EventKeyDeleted},
	{from: []State{StateDeleting}, on: TriggerEntryDeleted, to: StateDeleted,
		event: EventKeyDeleted},

	// deadlines
	{from: []State{StatePending}, on: TriggerDeadline, to: StateNotConfirmed,
		guards: []guard{deadlinePassed}, event: EventKeyNotConfirmed},
	{from: []State{StatePortabilityPending, StatePortabilityOpened, StateOwnershipPending, StateOwnershipOpened, StateOwnershipConflict, StateOwnershipWaiting}, on: TriggerDeadline, to: StateCanceled,
		guards: []guard{deadlinePassed}, claim: claimClear, call: ActionCancelClaim, reason: ReasonDeadlineExpired, bestEffort: true,
		event: EventClaimExpired},
	{from: []State{StatePortabilityRequestPending, StatePortabilityRequestCancelOpened, StatePortabilityRequestConfirmOpened}, on: TriggerDeadline, to: StatePortabilityRequestAutoConfirmed,
		guards: []guard{deadlinePassed}, claim: claimSettle, call: ActionConfirmClaim, bestEffort: true, event: EventClaimExpired},
	{from: []State{StateClaimPending}, on: TriggerDeadline, to: StateClaimNotConfirmed,
		guards: []guard{deadlinePassed}, claim: claimClear, event: EventClaimExpired},

	// settle deadlines, reached only when the directory reports the claim
	// neither completed nor canceled
	{from: []State{StatePortabilityStarted}, on: TriggerDeadline, to: StatePortabilityCanceled,
		guards: []guard{deadlinePassed}, claim: claimClear, call: ActionCancelClaim, reason: ReasonDeadlineExpired, bestEffort: true,
		event: EventClaimExpired},
	{from: []State{StateOwnershipStarted}, on: TriggerDeadline, to: StateOwnershipCanceled,
		guards: []guard{deadlinePassed}, claim: claimClear, call: ActionCancelClaim, reason: ReasonDeadlineExpired, bestEffort: true,
		event: EventClaimExpired},
	{from: []State{StatePortabilityCanceling}, on: TriggerDeadline, to: StatePortabilityCanceled,
		guards: []guard{deadlinePassed}, claim: claimClear, event: EventClaimCanceled},
	{from: []State{StateOwnershipCanceling}, on: TriggerDeadline, to: StateOwnershipCanceled,
		guards: []guard{deadlinePassed}, claim: claimClear, event: EventClaimCanceled},
	{from: []State{StateClaimClosing, StatePortabilityRequestConfirmStarted, StatePortabilityRequestAutoConfirmed}, on: TriggerDeadline, to: StateClaimClosed,
		guards: []guard{deadlinePassed}, claim: claimClear, event: EventKeyReleased},
	{from: []State{StatePortabilityRequestCancelStarted}, on: TriggerDeadline, to: StateReady,
		guards: []guard{deadlinePassed}, claim: claimClear, event: EventClaimWithdrawn},
}

var resolutions = map[Trigger]resolution{
	TriggerCancelPortabilityStart: {
		states: map[State]bool{StateCanceled: true, StatePortabilityCanceled: true},
		kind:   ClaimPortability,
	},
	TriggerCancelPortabilityInProgress: {
		states: map[State]bool{StatePortabilityCanceling: true, StatePortabilityCanceled: true},
		kind:   ClaimPortability,
	},
	TriggerCancelOwnershipStart: {
		states: map[State]bool{StateCanceled: true, StateOwnershipCanceled: true},
		kind:   ClaimOwnership,
	},
	TriggerCancelOwnershipInProgress: {
		states: map[State]bool{StateOwnershipCanceling: true, StateOwnershipCanceled: true},
		kind:   ClaimOwnership,
	},
	TriggerDelete: {
		states: map[State]bool{StateDeleting: true},
	},
}

// Machine evaluates the transition table. It holds no mutable state and
// performs no I/O; the same inputs always produce the same Decision.
type Machine struct {
	policy  Policy
	rules   map[ruleKey]*rule
	targets map[Trigger]map[State]bool
}

func NewMachine(policy Policy) *Machine {
	m := &Machine{
		policy:  policy,
		rules:   make(map[ruleKey]*rule),
		targets: make(map[Trigger]map[State]bool),
	}
	for i := range transitionRules {
		r := &transitionRules[i]
		for _, from := range r.from {
			m.rules[ruleKey{from: from, on: r.on}] = r
		}
		if m.targets[r.on] == nil {
			m.targets[r.on] = make(map[State]bool)
		}
		m.targets[r.on][r.to] = true
	}
	return m
}

func (m *Machine) Policy() Policy { return m.policy }

// Allowed reports whether the table has a rule for trigger from state.
func (m *Machine) Allowed(from State, on Trigger) bool {
	_, ok := m.rules[ruleKey{from: from, on: on}]
	return ok
}

// Decide evaluates in against k. Illegal triggers fail with
// CodeInvalidTransition; a trigger that has already taken effect returns a
// NoOp decision.
func (m *Machine) Decide(k *Key, in Input) (Decision, error) {
	r, ok := m.rules[ruleKey{from: k.State, on: in.Trigger}]
	if !ok {
		if m.alreadyApplied(k, in) {
			return Decision{Trigger: in.Trigger, From: k.State, To: k.State, NoOp: true}, nil
		}
		if k.State.IsTerminal() {
			return Decision{}, dErrors.Newf(dErrors.CodeInvalidTransition,
				"key is in terminal state %s", k.State)
		}
		return Decision{}, dErrors.Newf(dErrors.CodeInvalidTransition,
			"%s is not allowed in state %s", in.Trigger, k.State)
	}

	for _, g := range r.guards {
		if err := g(k, in, m.policy); err != nil {
			return Decision{}, err
		}
	}

	d := Decision{
		Trigger:      in.Trigger,
		From:         k.State,
		To:           r.to,
		Via:          r.via,
		BestEffort:   r.bestEffort,
		Event:        r.event,
		RequiresCode: r.needsCode,
		IssueCode:    r.issueCode,
	}
	d.Claim = m.nextClaim(k, r, in)
	if r.call != "" {
		d.Call = m.buildCall(k, d.Claim, r, in)
	}
	return d, nil
}

// Apply returns the key after d. The version is left to the store.
func (m *Machine) Apply(k *Key, d Decision, now time.Time) *Key {
	next := k.Clone()
	if d.NoOp {
		return next
	}
	if k.ActiveClaim != nil && d.Claim == nil {
		next.LastClaimKind = k.ActiveClaim.Kind
		next.ResolveClaim(k.ActiveClaim.ID)
	}
	next.State = d.To
	next.ActiveClaim = d.Claim.clone()
	if d.To != StatePending {
		next.ExpiresAt = nil
	}
	if d.To != d.From {
		next.StateChangedAt = now
	}
	return next
}

// alreadyApplied recognises repeated cancels and duplicate callbacks.
func (m *Machine) alreadyApplied(k *Key, in Input) bool {
	if res, ok := resolutions[in.Trigger]; ok && res.states[k.State] {
		return res.kind == "" || k.LastClaimKind == res.kind || k.ActiveClaim != nil && k.ActiveClaim.Kind == res.kind
	}
	if in.Trigger.IsCallback() {
		return m.targets[in.Trigger][k.State]
	}
	return false
}

func (m *Machine) nextClaim(k *Key, r *rule, in Input) *Claim {
	switch r.claim {
	case claimClear:
		return nil
	case claimOpen:
		reason := in.Reason
		if reason == "" {
			reason = ReasonUserRequested
		}
		return &Claim{
			Kind:         r.kind,
			Role:         RoleClaimer,
			Reason:       reason,
			Counterparty: in.Counterparty,
			ProposerID:   in.Actor,
			OpenedAt:     in.Now,
			DeadlineAt:   in.Now.Add(m.policy.ClaimOpenTimeout),
		}
	case claimReceive:
		c := &Claim{
			Kind:       r.kind,
			Role:       RoleDonor,
			Reason:     ReasonDefaultOperation,
			OpenedAt:   in.Now,
			DeadlineAt: in.Now.Add(m.policy.ResolutionPeriod),
		}
		if cb := in.Callback; cb != nil {
			c.ID = cb.ClaimID
			c.RequestID = cb.RequestID
			c.Counterparty = cb.Counterparty
			if cb.Reason != "" {
				c.Reason = cb.Reason
			}
			if !cb.ClaimOpenedAt.IsZero() {
				c.OpenedAt = cb.ClaimOpenedAt
			}
			if !cb.DeadlineAt.IsZero() {
				c.DeadlineAt = cb.DeadlineAt
			}
		}
		return c
	case claimOpened:
		c := k.ActiveClaim.clone()
		c.DeadlineAt = in.Now.Add(m.policy.ResolutionPeriod)
		if cb := in.Callback; cb != nil {
			if cb.ClaimID != "" {
				c.ID = cb.ClaimID
			}
			if !cb.ClaimOpenedAt.IsZero() {
				c.OpenedAt = cb.ClaimOpenedAt
			}
			if !cb.DeadlineAt.IsZero() {
				c.DeadlineAt = cb.DeadlineAt
			}
		}
		return c
	case claimRespond:
		c := k.ActiveClaim.clone()
		if in.Reason != "" {
			c.Reason = in.Reason
		}
		return c
	case claimSettle:
		c := k.ActiveClaim.clone()
		if in.Reason != "" && in.Trigger.IsCommand() {
			c.Reason = in.Reason
		}
		c.DeadlineAt = in.Now.Add(m.policy.SettleTimeout)
		return c
	}
	return k.ActiveClaim.clone()
}

func (m *Machine) buildCall(k *Key, next *Claim, r *rule, in Input) *DirectoryCall {
	call := &DirectoryCall{
		Action:  r.call,
		KeyID:   k.ID,
		KeyType: k.Type,
		Value:   k.Value,
		OwnerID: k.OwnerID,
	}
	claim := k.ActiveClaim
	if claim == nil {
		claim = next
	}
	if claim != nil {
		call.ClaimID = claim.ID
		call.ProposalID = claim.RequestID
		call.ClaimKind = claim.Kind
		call.Counterparty = claim.Counterparty
	}
	if r.call == ActionCancelClaim || r.call == ActionDelete {
		call.Reason = r.reason
		if call.Reason == "" {
			call.Reason = in.Reason
		}
		if call.Reason == "" && claim != nil {
			call.Reason = claim.Reason
		}
		if call.Reason == "" {
			call.Reason = ReasonUserRequested
		}
	}
	return call
}

func ownedByActor(k *Key, in Input, _ Policy) error {
	if in.Actor != k.OwnerID {
		return dErrors.New(dErrors.CodeForbidden, "key is not owned by caller")
	}
	return nil
}

func proposedByActor(k *Key, in Input, _ Policy) error {
	if k.ActiveClaim == nil || k.ActiveClaim.ProposerID != in.Actor {
		return dErrors.New(dErrors.CodeForbidden, "only the proposer may act on this claim")
	}
	return nil
}

func validCounterparty(_ *Key, in Input, p Policy) error {
	if _, err := id.ParseISPB(string(in.Counterparty)); err != nil {
		return dErrors.Wrap(err, dErrors.CodeValidation, "invalid counterparty")
	}
	if in.Counterparty == p.Participant {
		return dErrors.New(dErrors.CodeValidation, "counterparty must be another institution")
	}
	return nil
}

func validReason(_ *Key, in Input, _ Policy) error {
	if in.Reason != "" && !in.Reason.IsValid() {
		return dErrors.Newf(dErrors.CodeValidation, "unknown reason %q", in.Reason)
	}
	return nil
}

func beforeDeadline(k *Key, in Input, _ Policy) error {
	if k.ActiveClaim.Overdue(in.Now) {
		return dErrors.New(dErrors.CodeInvalidTransition, "claim deadline has passed")
	}
	return nil
}

func deadlinePassed(k *Key, in Input, _ Policy) error {
	if !k.Overdue(in.Now) {
		return dErrors.New(dErrors.CodeInvalidTransition, "deadline has not passed")
	}
	return nil
}
