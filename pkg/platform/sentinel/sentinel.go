package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores and adapters return these
// (optionally wrapped) and services translate them into domain errors:
// - ErrNotFound: record does not exist
// - ErrConflict: conditional write lost (version mismatch, duplicate insert)
// - ErrExpired: verification code past its TTL
// - ErrAlreadyUsed: verification code already consumed or superseded
// - ErrInvalidState: record in the wrong state for the requested write
// - ErrUnavailable: backing service temporarily unreachable
// - ErrRateLimited: caller must wait before repeating the operation
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrExpired      = errors.New("expired")
	ErrAlreadyUsed  = errors.New("already used")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
	ErrRateLimited  = errors.New("rate limited")
)
