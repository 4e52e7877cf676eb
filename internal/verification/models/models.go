package models

import (
	"time"

	pixmodels "pixkeys/internal/pixkey/models"
	id "pixkeys/pkg/domain"
)

const (
	// CodeLength is the number of decimal digits in a verification code.
	CodeLength = 5
	// MaxAttempts is how many wrong guesses burn a code.
	MaxAttempts = 5
)

// Code is an issued verification code. Only the bcrypt hash is stored.
type Code struct {
	KeyID       id.KeyID
	Purpose     pixmodels.CodePurpose
	Hash        []byte
	Destination string
	Attempts    int
	IssuedAt    time.Time
	ExpiresAt   time.Time
}

func (c *Code) Expired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}

// Exhausted reports whether the code took too many wrong guesses.
func (c *Code) Exhausted() bool {
	return c.Attempts >= MaxAttempts
}

// Notification asks a delivery channel to send a code to its destination.
type Notification struct {
	KeyID       id.KeyID              `json:"key_id"`
	Purpose     pixmodels.CodePurpose `json:"purpose"`
	Destination string                `json:"destination"`
	Code        string                `json:"code"`
	ExpiresAt   time.Time             `json:"expires_at"`
}
