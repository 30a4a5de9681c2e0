package models

import (
	"strings"
	"time"

	dErrors "reliefpass/pkg/domain-errors"
)

// CreateProgramRequest carries a new program and its initial ceilings.
type CreateProgramRequest struct {
	Title               string    `json:"title"`
	Location            string    `json:"location"`
	ScheduledAt         time.Time `json:"scheduled_at"`
	RegistrationCeiling int       `json:"registration_ceiling"`
	StallCeiling        int       `json:"stall_ceiling"`
}

func (r *CreateProgramRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.Title = strings.TrimSpace(r.Title)
	r.Location = strings.TrimSpace(r.Location)
	if r.Title == "" {
		return dErrors.New(dErrors.CodeValidation, "title is required")
	}
	if r.ScheduledAt.IsZero() {
		return dErrors.New(dErrors.CodeValidation, "scheduled_at is required")
	}
	if r.RegistrationCeiling < 0 || r.StallCeiling < 0 {
		return dErrors.New(dErrors.CodeValidation, "ceilings cannot be negative")
	}
	return nil
}

type RescheduleRequest struct {
	ScheduledAt time.Time `json:"scheduled_at"`
}

func (r *RescheduleRequest) Validate() error {
	if r == nil || r.ScheduledAt.IsZero() {
		return dErrors.New(dErrors.CodeValidation, "scheduled_at is required")
	}
	return nil
}
