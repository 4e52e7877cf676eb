package models

import (
	"fmt"
	"net/mail"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	id "pixkeys/pkg/domain"
	dErrors "pixkeys/pkg/domain-errors"
)

type KeyType string

const (
	KeyTypeDocument KeyType = "DOCUMENT"
	KeyTypeEmail    KeyType = "EMAIL"
	KeyTypePhone    KeyType = "PHONE"
	KeyTypeRandom   KeyType = "RANDOM"
)

func ParseKeyType(s string) (KeyType, error) {
	switch t := KeyType(strings.ToUpper(s)); t {
	case KeyTypeDocument, KeyTypeEmail, KeyTypePhone, KeyTypeRandom:
		return t, nil
	}
	return "", dErrors.Newf(dErrors.CodeValidation, "unknown key type %q", s)
}

// RequiresConfirmation reports whether ownership of the value must be proven
// with a verification code before the directory is asked to register it.
func (t KeyType) RequiresConfirmation() bool {
	return t == KeyTypeEmail || t == KeyTypePhone
}

const maxEmailLength = 77

var phonePattern = regexp.MustCompile(`^\+[1-9][0-9]{7,14}$`)

// Key is the aggregate root of the lifecycle engine.
type Key struct {
	ID      id.KeyID
	OwnerID id.OwnerID
	Type    KeyType
	Value   string
	State   State
	// ActiveClaim is present only while State holds a claim.
	ActiveClaim *Claim
	// LastClaimKind remembers the kind of the most recently resolved claim so
	// a repeated cancel can be recognised as already resolved.
	LastClaimKind ClaimKind
	// ResolvedClaims holds the directory ids of the most recent claims that
	// ended on this key, oldest first. Callbacks naming them are stale.
	ResolvedClaims []string
	// ExpiresAt bounds how long a PENDING key waits for its confirmation code.
	ExpiresAt      *time.Time
	CreatedAt      time.Time
	StateChangedAt time.Time
	Version        int64
}

// NewKey validates the command input and builds a key in its initial state.
// RANDOM keys get a generated value; EMAIL and PHONE start PENDING.
func NewKey(keyID id.KeyID, ownerID id.OwnerID, keyType KeyType, value string, now time.Time, pendingTTL time.Duration) (*Key, error) {
	if ownerID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "owner id is required")
	}
	normalized, err := NormalizeValue(keyType, value)
	if err != nil {
		return nil, err
	}

	k := &Key{
		ID:             keyID,
		OwnerID:        ownerID,
		Type:           keyType,
		Value:          normalized,
		State:          StateConfirmed,
		CreatedAt:      now,
		StateChangedAt: now,
	}
	if keyType.RequiresConfirmation() {
		k.State = StatePending
		expires := now.Add(pendingTTL)
		k.ExpiresAt = &expires
	}
	return k, nil
}

// NormalizeValue validates value for keyType and returns its canonical form.
func NormalizeValue(keyType KeyType, value string) (string, error) {
	value = strings.TrimSpace(value)
	switch keyType {
	case KeyTypeEmail:
		value = strings.ToLower(value)
		if len(value) == 0 || len(value) > maxEmailLength {
			return "", dErrors.New(dErrors.CodeValidation, "email key must have 1 to 77 characters")
		}
		addr, err := mail.ParseAddress(value)
		if err != nil || addr.Address != value {
			return "", dErrors.New(dErrors.CodeValidation, "invalid email key")
		}
		return value, nil
	case KeyTypePhone:
		if !phonePattern.MatchString(value) {
			return "", dErrors.New(dErrors.CodeValidation, "phone key must be in E.164 format")
		}
		return value, nil
	case KeyTypeDocument:
		digits := onlyDigits(value)
		if !validCPF(digits) && !validCNPJ(digits) {
			return "", dErrors.New(dErrors.CodeValidation, "document key must be a valid CPF or CNPJ")
		}
		return digits, nil
	case KeyTypeRandom:
		if value != "" {
			return "", dErrors.New(dErrors.CodeValidation, "random keys are generated and must not carry a value")
		}
		return uuid.NewString(), nil
	}
	return "", dErrors.Newf(dErrors.CodeValidation, "unknown key type %q", keyType)
}

// Clone returns a deep copy safe to mutate.
func (k *Key) Clone() *Key {
	cp := *k
	cp.ActiveClaim = k.ActiveClaim.clone()
	if k.ResolvedClaims != nil {
		cp.ResolvedClaims = append([]string(nil), k.ResolvedClaims...)
	}
	if k.ExpiresAt != nil {
		t := *k.ExpiresAt
		cp.ExpiresAt = &t
	}
	return &cp
}

// MaxResolvedClaims bounds ResolvedClaims.
const MaxResolvedClaims = 16

// ClaimResolved reports whether claimID names a claim that already ended on k.
func (k *Key) ClaimResolved(claimID string) bool {
	if claimID == "" {
		return false
	}
	for _, c := range k.ResolvedClaims {
		if c == claimID {
			return true
		}
	}
	return false
}

// ResolveClaim records claimID as ended on k.
func (k *Key) ResolveClaim(claimID string) {
	if claimID == "" || k.ClaimResolved(claimID) {
		return
	}
	k.ResolvedClaims = append(k.ResolvedClaims, claimID)
	if n := len(k.ResolvedClaims); n > MaxResolvedClaims {
		k.ResolvedClaims = append([]string(nil), k.ResolvedClaims[n-MaxResolvedClaims:]...)
	}
}

// Deadline is the instant the sweep must act on this key, if any.
func (k *Key) Deadline() (time.Time, bool) {
	if !k.State.HasDeadline() {
		return time.Time{}, false
	}
	if k.ActiveClaim != nil && !k.ActiveClaim.DeadlineAt.IsZero() {
		return k.ActiveClaim.DeadlineAt, true
	}
	if k.State == StatePending && k.ExpiresAt != nil {
		return *k.ExpiresAt, true
	}
	return time.Time{}, false
}

// Overdue reports whether the key's deadline has passed at now.
func (k *Key) Overdue(now time.Time) bool {
	deadline, ok := k.Deadline()
	return ok && !now.Before(deadline)
}

// CheckInvariants verifies the state/claim mapping. A violation means a bug
// in the transition table, never bad input.
func (k *Key) CheckInvariants() error {
	if !k.State.IsValid() {
		return dErrors.Newf(dErrors.CodeInvariantViolation, "unknown state %q", k.State)
	}
	if k.State.IsPassThrough() {
		return dErrors.Newf(dErrors.CodeInvariantViolation, "pass-through state %s cannot be persisted", k.State)
	}
	if k.State.HoldsClaim() != (k.ActiveClaim != nil) {
		return dErrors.Newf(dErrors.CodeInvariantViolation,
			"state %s and active claim presence (%t) disagree", k.State, k.ActiveClaim != nil)
	}
	if k.ActiveClaim == nil {
		return nil
	}
	if k.ActiveClaim.Kind != k.State.ClaimKind() {
		return dErrors.Newf(dErrors.CodeInvariantViolation,
			"state %s requires a %s claim, got %s", k.State, k.State.ClaimKind(), k.ActiveClaim.Kind)
	}
	if k.ActiveClaim.Role != k.State.ClaimRole() {
		return dErrors.Newf(dErrors.CodeInvariantViolation,
			"state %s requires role %s, got %s", k.State, k.State.ClaimRole(), k.ActiveClaim.Role)
	}
	return nil
}

func (k *Key) String() string {
	return fmt.Sprintf("key(%s %s %s v%d)", k.ID, k.Type, k.State, k.Version)
}

func onlyDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func allSame(s string) bool {
	return strings.Count(s, s[:1]) == len(s)
}

func validCPF(d string) bool {
	if len(d) != 11 || allSame(d) {
		return false
	}
	return checkDigit(d[:9], 10) == d[9] && checkDigit(d[:10], 11) == d[10]
}

func checkDigit(prefix string, weight int) byte {
	sum := 0
	for i := 0; i < len(prefix); i++ {
		sum += int(prefix[i]-'0') * (weight - i)
	}
	r := (sum * 10) % 11
	if r == 10 {
		r = 0
	}
	return byte('0' + r)
}

var (
	cnpjWeights1 = []int{5, 4, 3, 2, 9, 8, 7, 6, 5, 4, 3, 2}
	cnpjWeights2 = []int{6, 5, 4, 3, 2, 9, 8, 7, 6, 5, 4, 3, 2}
)

func validCNPJ(d string) bool {
	if len(d) != 14 || allSame(d) {
		return false
	}
	return cnpjDigit(d[:12], cnpjWeights1) == d[12] && cnpjDigit(d[:13], cnpjWeights2) == d[13]
}

func cnpjDigit(prefix string, weights []int) byte {
	sum := 0
	for i := 0; i < len(prefix); i++ {
		sum += int(prefix[i]-'0') * weights[i]
	}
	r := sum % 11
	if r < 2 {
		return '0'
	}
	return byte('0' + 11 - r)
}
