package models

import (
	"strings"

	id "reliefpass/pkg/domain"
	dErrors "reliefpass/pkg/domain-errors"
)

const maxContactLength = 320

// EnrollRequest admits a participant into a program's pool. ProgramID comes
// from the URL path.
type EnrollRequest struct {
	ProgramID     id.ProgramID `json:"-"`
	ParticipantID string       `json:"participant_id"`
	Kind          string       `json:"kind"`
	Contact       string       `json:"contact"`

	participant id.ParticipantID
	kind        id.Kind
}

// Validate parses the raw fields. Kind defaults to REGISTRATION.
func (r *EnrollRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	participant, err := id.ParseParticipantID(strings.TrimSpace(r.ParticipantID))
	if err != nil {
		return err
	}
	kind := id.KindRegistration
	if k := strings.TrimSpace(r.Kind); k != "" {
		kind, err = id.ParseKind(k)
		if err != nil {
			return err
		}
	}
	r.Contact = strings.TrimSpace(r.Contact)
	if len(r.Contact) > maxContactLength {
		return dErrors.New(dErrors.CodeValidation, "contact is too long")
	}
	r.participant = participant
	r.kind = kind
	return nil
}

func (r *EnrollRequest) Participant() id.ParticipantID { return r.participant }
func (r *EnrollRequest) PoolKind() id.Kind             { return r.kind }

// SetCeilingRequest changes one pool's ceiling. Program and kind come from
// the URL path.
type SetCeilingRequest struct {
	Ceiling *int `json:"ceiling"`
}

func (r *SetCeilingRequest) Validate() error {
	if r == nil || r.Ceiling == nil {
		return dErrors.New(dErrors.CodeValidation, "ceiling is required")
	}
	if *r.Ceiling < 0 {
		return dErrors.New(dErrors.CodeValidation, "ceiling cannot be negative")
	}
	return nil
}
