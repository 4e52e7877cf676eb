package domain

import (
	dErrors "pixkeys/pkg/domain-errors"
)

// ISPB is the 8-digit code identifying a financial institution in the
// payment system. Leading zeros are significant.
type ISPB string

func (i ISPB) String() string { return string(i) }

// ParseISPB validates an institution code.
func ParseISPB(s string) (ISPB, error) {
	if len(s) != 8 {
		return "", dErrors.New(dErrors.CodeInvalidInput, "ispb must have 8 digits")
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return "", dErrors.New(dErrors.CodeInvalidInput, "ispb must be numeric")
		}
	}
	return ISPB(s), nil
}
