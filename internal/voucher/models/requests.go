package models

import (
	"strings"

	dErrors "reliefpass/pkg/domain-errors"
)

const (
	maxTokenLength = 128
	maxNoteLength  = 500
)

// RedeemRequest is what a scanner submits. The staff identity is taken from
// the authenticated request, never from the body.
type RedeemRequest struct {
	Token string `json:"token"`
	Note  string `json:"note"`
}

func (r *RedeemRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.Token = strings.TrimSpace(r.Token)
	r.Note = strings.TrimSpace(r.Note)
	if r.Token == "" {
		return dErrors.New(dErrors.CodeValidation, "token is required")
	}
	if len(r.Token) > maxTokenLength {
		return dErrors.New(dErrors.CodeValidation, "token is too long")
	}
	if len(r.Note) > maxNoteLength {
		return dErrors.New(dErrors.CodeValidation, "note must be at most 500 characters")
	}
	return nil
}
