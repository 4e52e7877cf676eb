package domain

import (
	"github.com/google/uuid"

	dErrors "pixkeys/pkg/domain-errors"
)

// Typed identifiers. Distinct named types keep a key id from being passed
// where an owner id is expected.
type (
	KeyID   uuid.UUID
	OwnerID uuid.UUID
	EventID uuid.UUID
)

func NewKeyID() KeyID { return KeyID(uuid.New()) }

func (k KeyID) String() string { return uuid.UUID(k).String() }
func (k KeyID) IsNil() bool    { return uuid.UUID(k) == uuid.Nil }

func (o OwnerID) String() string { return uuid.UUID(o).String() }
func (o OwnerID) IsNil() bool    { return uuid.UUID(o) == uuid.Nil }

func (e EventID) String() string { return uuid.UUID(e).String() }
func (e EventID) IsNil() bool    { return uuid.UUID(e) == uuid.Nil }

func (k KeyID) MarshalText() ([]byte, error)   { return uuid.UUID(k).MarshalText() }
func (o OwnerID) MarshalText() ([]byte, error) { return uuid.UUID(o).MarshalText() }
func (e EventID) MarshalText() ([]byte, error) { return uuid.UUID(e).MarshalText() }

func (k *KeyID) UnmarshalText(b []byte) error   { return (*uuid.UUID)(k).UnmarshalText(b) }
func (o *OwnerID) UnmarshalText(b []byte) error { return (*uuid.UUID)(o).UnmarshalText(b) }
func (e *EventID) UnmarshalText(b []byte) error { return (*uuid.UUID)(e).UnmarshalText(b) }

// ParseKeyID parses a key id at a trust boundary.
func ParseKeyID(s string) (KeyID, error) {
	u, err := parseUUID(s, "key id")
	return KeyID(u), err
}

// ParseOwnerID parses an owner id at a trust boundary.
func ParseOwnerID(s string) (OwnerID, error) {
	u, err := parseUUID(s, "owner id")
	return OwnerID(u), err
}

// ParseEventID parses a directory delivery id.
func ParseEventID(s string) (EventID, error) {
	u, err := parseUUID(s, "event id")
	return EventID(u), err
}

func parseUUID(s, field string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, field+" is required")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid "+field)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, field+" must not be nil")
	}
	return u, nil
}
