package models

import (
	"time"

	id "reliefpass/pkg/domain"
	dErrors "reliefpass/pkg/domain-errors"
)

// Status is the redemption state of a voucher. It leaves PENDING exactly once.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusCompleted Status = "COMPLETED"
	StatusCancelled Status = "CANCELLED"
)

func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Voucher is the single-use credential bound to one registration. The token
// is a bearer capability and carries no structure.
type Voucher struct {
	ID                      id.VoucherID      `json:"id"`
	RegistrationID          id.RegistrationID `json:"registration_id"`
	ProgramID               id.ProgramID      `json:"program_id"`
	Token                   string            `json:"token"`
	ImageRef                string            `json:"image_ref,omitempty"`
	ScheduledRedemptionDate time.Time         `json:"scheduled_redemption_date"`
	Status                  Status            `json:"status"`
	RedeemedAt              *time.Time        `json:"redeemed_at,omitempty"`
	RedeemedBy              *id.StaffID       `json:"redeemed_by,omitempty"`
	CancelledAt             *time.Time        `json:"cancelled_at,omitempty"`
	CreatedAt               time.Time         `json:"created_at"`
}

// NewVoucher builds a PENDING voucher pinned to the program's current date.
func NewVoucher(registrationID id.RegistrationID, programID id.ProgramID, token string, scheduledDate, now time.Time) (*Voucher, error) {
	if registrationID.IsNil() || programID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "voucher needs a registration and a program")
	}
	if token == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "voucher token is required")
	}
	return &Voucher{
		ID:                      id.NewVoucherID(),
		RegistrationID:          registrationID,
		ProgramID:               programID,
		Token:                   token,
		ScheduledRedemptionDate: scheduledDate.UTC(),
		Status:                  StatusPending,
		CreatedAt:               now,
	}, nil
}

// Expired reports whether a PENDING voucher missed its redemption date.
func (v *Voucher) Expired(now time.Time) bool {
	return v.Status == StatusPending && v.ScheduledRedemptionDate.Before(now)
}

// ExpiryCursor is a position in the (date, ID) order expired vouchers are
// listed in. The zero cursor sorts before every voucher.
type ExpiryCursor struct {
	Date time.Time
	ID   id.VoucherID
}

// CursorAt returns the cursor positioned on v.
func CursorAt(v *Voucher) ExpiryCursor {
	return ExpiryCursor{Date: v.ScheduledRedemptionDate, ID: v.ID}
}

// Precedes reports whether v sorts strictly after the cursor.
func (c ExpiryCursor) Precedes(v *Voucher) bool {
	if !v.ScheduledRedemptionDate.Equal(c.Date) {
		return v.ScheduledRedemptionDate.After(c.Date)
	}
	return v.ID.String() > c.ID.String()
}

// ScanRecord is the append-only audit entry of an accepted redemption.
type ScanRecord struct {
	ID        id.ScanID    `json:"id"`
	VoucherID id.VoucherID `json:"voucher_id"`
	StaffID   id.StaffID   `json:"staff_id"`
	ScannedAt time.Time    `json:"scanned_at"`
	Note      string       `json:"note,omitempty"`
	Device    string       `json:"device,omitempty"`
}

// Outcome classifies a redemption attempt. Only REDEEMED changes state.
type Outcome string

const (
	OutcomeRedeemed         Outcome = "REDEEMED"
	OutcomeAlreadyRedeemed  Outcome = "ALREADY_REDEEMED"
	OutcomeTokenNotFound    Outcome = "TOKEN_NOT_FOUND"
	OutcomeVoucherCancelled Outcome = "VOUCHER_CANCELLED"
)

// Redemption is the result of a scan. Voucher and ScanRecord are empty for
// TOKEN_NOT_FOUND so an unknown token reveals nothing.
type Redemption struct {
	Outcome    Outcome     `json:"outcome"`
	Voucher    *Voucher    `json:"voucher,omitempty"`
	ScanRecord *ScanRecord `json:"scan_record,omitempty"`
}

// Lookup is the read-only staff view of a voucher.
type Lookup struct {
	Voucher *Voucher      `json:"voucher"`
	Scans   []*ScanRecord `json:"scans"`
}

// Stats summarises the vouchers of one program.
type Stats struct {
	Total     int     `json:"total"`
	Pending   int     `json:"pending"`
	Completed int     `json:"completed"`
	Cancelled int     `json:"cancelled"`
	ScanRate  float64 `json:"scan_rate"`
}

// ComputeRate fills ScanRate as completed over all non-cancelled vouchers.
func (s *Stats) ComputeRate() {
	live := s.Total - s.Cancelled
	if live <= 0 {
		s.ScanRate = 0
		return
	}
	s.ScanRate = float64(s.Completed) / float64(live)
}
