package jwttoken

import (
	dErrors "pixkeys/pkg/domain-errors"
	authmw "pixkeys/pkg/platform/middleware/auth"
)

// OwnerValidator is the bearer middleware's view of a JWTService. A token
// whose subject names someone other than owner_id is refused.
type OwnerValidator struct {
	tokens *JWTService
}

func NewOwnerValidator(tokens *JWTService) *OwnerValidator {
	return &OwnerValidator{tokens: tokens}
}

func (v *OwnerValidator) ValidateToken(raw string) (*authmw.JWTClaims, error) {
	claims, err := v.tokens.ValidateToken(raw)
	if err != nil {
		return nil, err
	}
	if claims.Subject != "" && claims.Subject != claims.OwnerID {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "token subject does not match owner")
	}
	return &authmw.JWTClaims{
		OwnerID: claims.OwnerID,
		JTI:     claims.ID,
	}, nil
}
