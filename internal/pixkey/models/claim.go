package models

import (
	"time"

	id "pixkeys/pkg/domain"
)

type ClaimKind string

const (
	ClaimOwnership   ClaimKind = "OWNERSHIP"
	ClaimPortability ClaimKind = "PORTABILITY"
)

func (k ClaimKind) IsValid() bool {
	return k == ClaimOwnership || k == ClaimPortability
}

// ClaimRole is the side our institution plays in a claim.
type ClaimRole string

const (
	// RoleClaimer: our user asked to take the key.
	RoleClaimer ClaimRole = "CLAIMER"
	// RoleDonor: a third party asked to take our user's key.
	RoleDonor ClaimRole = "DONOR"
)

type Reason string

const (
	ReasonUserRequested       Reason = "USER_REQUESTED"
	ReasonFraud               Reason = "FRAUD"
	ReasonAccountClosure      Reason = "ACCOUNT_CLOSURE"
	ReasonDefaultOperation    Reason = "DEFAULT_OPERATION"
	ReasonDeadlineExpired     Reason = "DEADLINE_EXPIRED"
	ReasonPossessionConfirmed Reason = "POSSESSION_CONFIRMED"
	ReasonDonorRequest        Reason = "DONOR_REQUEST"
)

var validReasons = map[Reason]bool{
	ReasonUserRequested:       true,
	ReasonFraud:               true,
	ReasonAccountClosure:      true,
	ReasonDefaultOperation:    true,
	ReasonDeadlineExpired:     true,
	ReasonPossessionConfirmed: true,
	ReasonDonorRequest:        true,
}

func (r Reason) IsValid() bool { return validReasons[r] }

// Claim is the in-flight ownership or portability negotiation embedded in a key.
type Claim struct {
	// ID is the directory's claim id; empty until the directory opens the claim.
	ID           string
	Kind         ClaimKind
	Role         ClaimRole
	Reason       Reason
	Counterparty id.ISPB
	// ProposerID is the owner who opened a claimer-side claim.
	ProposerID id.OwnerID
	// RequestID correlates directory callbacks with our proposal.
	RequestID  string
	OpenedAt   time.Time
	DeadlineAt time.Time
}

// Overdue reports whether the claim deadline has passed at now.
func (c *Claim) Overdue(now time.Time) bool {
	return c != nil && !c.DeadlineAt.IsZero() && !now.Before(c.DeadlineAt)
}

func (c *Claim) clone() *Claim {
	if c == nil {
		return nil
	}
	cp := *c
	return &cp
}
