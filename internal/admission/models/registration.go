package models

import (
	"time"

	capacitymodels "reliefpass/internal/capacity/models"
	vouchermodels "reliefpass/internal/voucher/models"
	id "reliefpass/pkg/domain"
	dErrors "reliefpass/pkg/domain-errors"
)

// Status is the lifecycle state of a registration or stall reservation.
type Status string

const (
	StatusPending  Status = "PENDING"
	StatusApproved Status = "APPROVED"
	StatusClaimed  Status = "CLAIMED"
	StatusCanceled Status = "CANCELED"
	StatusRejected Status = "REJECTED"
)

// Occupies reports whether a registration in this status holds a slot.
func (s Status) Occupies() bool {
	return s == StatusPending || s == StatusApproved || s == StatusClaimed
}

// OccupyingStatuses lists every status that counts against the ceiling.
func OccupyingStatuses() []Status {
	return []Status{StatusPending, StatusApproved, StatusClaimed}
}

// Registration is a participant's claim on one slot of a program. Beneficiary
// registrations and donor stall reservations share this shape; Kind tells
// them apart.
//
// Invariants:
//   - Slot is at least 1 and unique among occupying registrations of the pool
//   - at most one registration per (ProgramID, ParticipantID, Kind)
//   - CLAIMED, CANCELED and REJECTED are terminal
type Registration struct {
	ID            id.RegistrationID `json:"id"`
	ProgramID     id.ProgramID      `json:"program_id"`
	ParticipantID id.ParticipantID  `json:"participant_id"`
	Kind          id.Kind           `json:"kind"`
	Slot          int               `json:"slot"`
	Status        Status            `json:"status"`
	Contact       string            `json:"contact,omitempty"`
	AdmittedAt    time.Time         `json:"admitted_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
	CanceledAt    *time.Time        `json:"canceled_at,omitempty"`
}

// NewRegistration builds an admission that already holds slot.
func NewRegistration(programID id.ProgramID, participantID id.ParticipantID, kind id.Kind, slot int, contact string, now time.Time) (*Registration, error) {
	if programID.IsNil() || participantID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "program and participant are required")
	}
	if !kind.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "invalid kind")
	}
	if slot < 1 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "slot must be positive")
	}
	return &Registration{
		ID:            id.NewRegistrationID(),
		ProgramID:     programID,
		ParticipantID: participantID,
		Kind:          kind,
		Slot:          slot,
		Status:        StatusPending,
		Contact:       contact,
		AdmittedAt:    now,
		UpdatedAt:     now,
	}, nil
}

// Occupant projects the registration into the capacity ledger's view.
func (r *Registration) Occupant() capacitymodels.Occupant {
	return capacitymodels.Occupant{
		RegistrationID: r.ID,
		Slot:           r.Slot,
		AdmittedAt:     r.AdmittedAt,
	}
}

// Eviction describes an admission removed by a lowered ceiling, with enough
// context for the caller to inform the participant.
type Eviction struct {
	RegistrationID id.RegistrationID `json:"registration_id"`
	ParticipantID  id.ParticipantID  `json:"participant_id"`
	Kind           id.Kind           `json:"kind"`
	Slot           int               `json:"slot"`
	Contact        string            `json:"contact,omitempty"`
	VoucherToken   string            `json:"cancelled_voucher_token,omitempty"`
}

// Enrollment is the result of admitting a participant. Voucher is set when
// the registration was approved on the spot and its voucher issued.
type Enrollment struct {
	Registration *Registration          `json:"registration"`
	Voucher      *vouchermodels.Voucher `json:"voucher,omitempty"`
	// Created is false when an existing registration was returned.
	Created bool `json:"-"`
}

// History is one of a participant's registrations with its voucher and the
// scans recorded against it.
type History struct {
	Registration *Registration               `json:"registration"`
	Voucher      *vouchermodels.Voucher      `json:"voucher,omitempty"`
	Scans        []*vouchermodels.ScanRecord `json:"scans"`
}
