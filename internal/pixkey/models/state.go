package models

// State is the lifecycle state of a key.
type State string

const (
	StatePending      State = "PENDING"
	StateConfirmed    State = "CONFIRMED"
	StateNotConfirmed State = "NOT_CONFIRMED"
	StateAddKeyReady  State = "ADD_KEY_READY"
	StateReady        State = "READY"
	StateCanceled     State = "CANCELED"
	StateError        State = "ERROR"
	StateDeleting     State = "DELETING"
	StateDeleted      State = "DELETED"

	StatePortabilityPending   State = "PORTABILITY_PENDING"
	StatePortabilityOpened    State = "PORTABILITY_OPENED"
	StatePortabilityStarted   State = "PORTABILITY_STARTED"
	StatePortabilityReady     State = "PORTABILITY_READY"
	StatePortabilityConfirmed State = "PORTABILITY_CONFIRMED"
	StatePortabilityCanceling State = "PORTABILITY_CANCELING"
	StatePortabilityCanceled  State = "PORTABILITY_CANCELED"

	StatePortabilityRequestPending        State = "PORTABILITY_REQUEST_PENDING"
	StatePortabilityRequestCancelOpened   State = "PORTABILITY_REQUEST_CANCEL_OPENED"
	StatePortabilityRequestCancelStarted  State = "PORTABILITY_REQUEST_CANCEL_STARTED"
	StatePortabilityRequestConfirmOpened  State = "PORTABILITY_REQUEST_CONFIRM_OPENED"
	StatePortabilityRequestConfirmStarted State = "PORTABILITY_REQUEST_CONFIRM_STARTED"
	StatePortabilityRequestAutoConfirmed  State = "PORTABILITY_REQUEST_AUTO_CONFIRMED"

	StateOwnershipPending   State = "OWNERSHIP_PENDING"
	StateOwnershipOpened    State = "OWNERSHIP_OPENED"
	StateOwnershipStarted   State = "OWNERSHIP_STARTED"
	StateOwnershipConfirmed State = "OWNERSHIP_CONFIRMED"
	StateOwnershipReady     State = "OWNERSHIP_READY"
	StateOwnershipCanceling State = "OWNERSHIP_CANCELING"
	StateOwnershipCanceled  State = "OWNERSHIP_CANCELED"
	StateOwnershipConflict  State = "OWNERSHIP_CONFLICT"
	StateOwnershipWaiting   State = "OWNERSHIP_WAITING"

	StateClaimNotConfirmed State = "CLAIM_NOT_CONFIRMED"
	StateClaimPending      State = "CLAIM_PENDING"
	StateClaimClosing      State = "CLAIM_CLOSING"
	StateClaimDenied       State = "CLAIM_DENIED"
	StateClaimClosed       State = "CLAIM_CLOSED"
)

type stateInfo struct {
	terminal bool
	// claim is the kind of active claim the state requires; empty means none.
	claim ClaimKind
	role  ClaimRole
	// passThrough states appear in Event.Via and are never persisted.
	passThrough bool
	// expiresTo is the state reached when the claim deadline passes.
	expiresTo State
	// settling states wait on the directory to finish a decision already
	// taken; their deadline first asks the directory how the claim ended.
	settling bool
}

var states = map[State]stateInfo{
	StatePending:      {expiresTo: StateNotConfirmed},
	StateConfirmed:    {},
	StateNotConfirmed: {terminal: true},
	StateAddKeyReady:  {},
	StateReady:        {},
	StateCanceled:     {terminal: true},
	StateError:        {terminal: true},
	StateDeleting:     {},
	StateDeleted:      {terminal: true},

	StatePortabilityPending:   {claim: ClaimPortability, role: RoleClaimer, expiresTo: StateCanceled},
	StatePortabilityOpened:    {claim: ClaimPortability, role: RoleClaimer, expiresTo: StateCanceled},
	StatePortabilityStarted:   {claim: ClaimPortability, role: RoleClaimer, settling: true, expiresTo: StatePortabilityCanceled},
	StatePortabilityReady:     {},
	StatePortabilityConfirmed: {claim: ClaimPortability, role: RoleClaimer, passThrough: true},
	StatePortabilityCanceling: {claim: ClaimPortability, role: RoleClaimer, settling: true, expiresTo: StatePortabilityCanceled},
	StatePortabilityCanceled:  {terminal: true},

	StatePortabilityRequestPending:        {claim: ClaimPortability, role: RoleDonor, expiresTo: StatePortabilityRequestAutoConfirmed},
	StatePortabilityRequestCancelOpened:   {claim: ClaimPortability, role: RoleDonor, expiresTo: StatePortabilityRequestAutoConfirmed},
	StatePortabilityRequestCancelStarted:  {claim: ClaimPortability, role: RoleDonor, settling: true, expiresTo: StateReady},
	StatePortabilityRequestConfirmOpened:  {claim: ClaimPortability, role: RoleDonor, expiresTo: StatePortabilityRequestAutoConfirmed},
	StatePortabilityRequestConfirmStarted: {claim: ClaimPortability, role: RoleDonor, settling: true, expiresTo: StateClaimClosed},
	StatePortabilityRequestAutoConfirmed:  {claim: ClaimPortability, role: RoleDonor, settling: true, expiresTo: StateClaimClosed},

	StateOwnershipPending:   {claim: ClaimOwnership, role: RoleClaimer, expiresTo: StateCanceled},
	StateOwnershipOpened:    {claim: ClaimOwnership, role: RoleClaimer, expiresTo: StateCanceled},
	StateOwnershipStarted:   {claim: ClaimOwnership, role: RoleClaimer, settling: true, expiresTo: StateOwnershipCanceled},
	StateOwnershipConfirmed: {claim: ClaimOwnership, role: RoleClaimer, passThrough: true},
	StateOwnershipReady:     {},
	StateOwnershipCanceling: {claim: ClaimOwnership, role: RoleClaimer, settling: true, expiresTo: StateOwnershipCanceled},
	StateOwnershipCanceled:  {terminal: true},
	StateOwnershipConflict:  {claim: ClaimOwnership, role: RoleClaimer, expiresTo: StateCanceled},
	StateOwnershipWaiting:   {claim: ClaimOwnership, role: RoleClaimer, expiresTo: StateCanceled},

	StateClaimNotConfirmed: {terminal: true},
	StateClaimPending:      {claim: ClaimOwnership, role: RoleDonor, expiresTo: StateClaimNotConfirmed},
	StateClaimClosing:      {claim: ClaimOwnership, role: RoleDonor, settling: true, expiresTo: StateClaimClosed},
	StateClaimDenied:       {terminal: true},
	StateClaimClosed:       {terminal: true},
}

// AllStates returns every known state in no particular order.
func AllStates() []State {
	out := make([]State, 0, len(states))
	for s := range states {
		out = append(out, s)
	}
	return out
}

func (s State) String() string { return string(s) }

func (s State) IsValid() bool {
	_, ok := states[s]
	return ok
}

func (s State) IsTerminal() bool { return states[s].terminal }

// HoldsClaim reports whether a key in s must carry an active claim.
func (s State) HoldsClaim() bool { return states[s].claim != "" }

// ClaimKind is the claim kind required by s, empty when none.
func (s State) ClaimKind() ClaimKind { return states[s].claim }

// ClaimRole is the side of the claim our institution plays in s.
func (s State) ClaimRole() ClaimRole { return states[s].role }

func (s State) IsPassThrough() bool { return states[s].passThrough }

// HasDeadline reports whether the sweep can expire a key in s.
func (s State) HasDeadline() bool { return states[s].expiresTo != "" }

// IsActiveClaim reports whether s is a claim state still awaiting a human or
// directory decision under a deadline.
func (s State) IsActiveClaim() bool {
	return s.HoldsClaim() && s.HasDeadline() && !states[s].settling
}

// IsSettling reports whether s only waits for the directory to complete a
// decision that was already sent.
func (s State) IsSettling() bool { return states[s].settling }

// ExpiresTo is the state a deadline moves s into.
func (s State) ExpiresTo() State { return states[s].expiresTo }

// DeadlineStates lists states the sweep must inspect.
func DeadlineStates() []State {
	var out []State
	for s, info := range states {
		if info.expiresTo != "" {
			out = append(out, s)
		}
	}
	return out
}
