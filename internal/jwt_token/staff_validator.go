package jwttoken

import (
	"github.com/google/uuid"

	dErrors "reliefpass/pkg/domain-errors"
	authmw "reliefpass/pkg/platform/middleware/auth"
)

// StaffValidator narrows JWTService to what the staff middleware consumes.
// Tokens whose staff claim is not a UUID are refused here rather than at
// redemption time.
type StaffValidator struct {
	tokens *JWTService
}

func NewStaffValidator(tokens *JWTService) *StaffValidator {
	return &StaffValidator{tokens: tokens}
}

func (v *StaffValidator) ValidateToken(tokenString string) (*authmw.JWTClaims, error) {
	claims, err := v.tokens.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	if _, err := uuid.Parse(claims.StaffID); err != nil {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "staff claim is not an identifier")
	}
	return &authmw.JWTClaims{StaffID: claims.StaffID, JTI: claims.ID}, nil
}
