// Package domain holds typed identifiers and small value types shared across
// services. Parse functions are the trust boundary: handlers call them on
// external input, everything past that point works with typed values.
package domain

import (
	"github.com/google/uuid"

	dErrors "reliefpass/pkg/domain-errors"
)

type (
	ProgramID      uuid.UUID
	RegistrationID uuid.UUID
	ParticipantID  uuid.UUID
	VoucherID      uuid.UUID
	ScanID         uuid.UUID
	StaffID        uuid.UUID
)

func NewProgramID() ProgramID           { return ProgramID(uuid.New()) }
func NewRegistrationID() RegistrationID { return RegistrationID(uuid.New()) }
func NewVoucherID() VoucherID           { return VoucherID(uuid.New()) }
func NewScanID() ScanID                 { return ScanID(uuid.New()) }

func (id ProgramID) String() string      { return uuid.UUID(id).String() }
func (id RegistrationID) String() string { return uuid.UUID(id).String() }
func (id ParticipantID) String() string  { return uuid.UUID(id).String() }
func (id VoucherID) String() string      { return uuid.UUID(id).String() }
func (id ScanID) String() string         { return uuid.UUID(id).String() }
func (id StaffID) String() string        { return uuid.UUID(id).String() }

func (id ProgramID) IsNil() bool      { return uuid.UUID(id) == uuid.Nil }
func (id RegistrationID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id ParticipantID) IsNil() bool  { return uuid.UUID(id) == uuid.Nil }
func (id VoucherID) IsNil() bool      { return uuid.UUID(id) == uuid.Nil }
func (id StaffID) IsNil() bool        { return uuid.UUID(id) == uuid.Nil }

// Text marshalling keeps JSON payloads in canonical UUID form.
func (id ProgramID) MarshalText() ([]byte, error)      { return uuid.UUID(id).MarshalText() }
func (id RegistrationID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }
func (id ParticipantID) MarshalText() ([]byte, error)  { return uuid.UUID(id).MarshalText() }
func (id VoucherID) MarshalText() ([]byte, error)      { return uuid.UUID(id).MarshalText() }
func (id ScanID) MarshalText() ([]byte, error)         { return uuid.UUID(id).MarshalText() }
func (id StaffID) MarshalText() ([]byte, error)        { return uuid.UUID(id).MarshalText() }

func (id *ProgramID) UnmarshalText(b []byte) error      { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *RegistrationID) UnmarshalText(b []byte) error { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *ParticipantID) UnmarshalText(b []byte) error  { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *VoucherID) UnmarshalText(b []byte) error      { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *ScanID) UnmarshalText(b []byte) error         { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *StaffID) UnmarshalText(b []byte) error        { return (*uuid.UUID)(id).UnmarshalText(b) }

func ParseProgramID(s string) (ProgramID, error) {
	u, err := parseUUID(s, "program ID")
	return ProgramID(u), err
}

func ParseRegistrationID(s string) (RegistrationID, error) {
	u, err := parseUUID(s, "registration ID")
	return RegistrationID(u), err
}

func ParseParticipantID(s string) (ParticipantID, error) {
	u, err := parseUUID(s, "participant ID")
	return ParticipantID(u), err
}

func ParseVoucherID(s string) (VoucherID, error) {
	u, err := parseUUID(s, "voucher ID")
	return VoucherID(u), err
}

func ParseStaffID(s string) (StaffID, error) {
	u, err := parseUUID(s, "staff ID")
	return StaffID(u), err
}

// parseUUID rejects empty, malformed and nil UUIDs with CodeValidation.
func parseUUID(s, label string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeValidation, label+" cannot be empty")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeValidation, "invalid "+label)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeValidation, label+" cannot be nil")
	}
	return u, nil
}
