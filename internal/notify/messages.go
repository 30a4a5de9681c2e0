// Package notify delivers participant notifications. Services hand messages
// to a Dispatcher, which queues them and sends them in the background so a
// slow or failing transport never holds up a voucher issue or a scan.
package notify

import "time"

const (
	TypeVoucherIssued       = "voucher_issued"
	TypeRedemptionConfirmed = "redemption_confirmed"
)

// VoucherIssued carries everything a participant needs to show up with
// their voucher.
type VoucherIssued struct {
	RegistrationID string    `json:"registration_id"`
	Contact        string    `json:"contact"`
	Token          string    `json:"token"`
	Image          string    `json:"image"`
	ProgramTitle   string    `json:"program_title"`
	Location       string    `json:"location"`
	ScheduledDate  time.Time `json:"scheduled_date"`
}

// RedemptionConfirmed tells a participant their voucher was used.
type RedemptionConfirmed struct {
	RegistrationID string    `json:"registration_id"`
	Contact        string    `json:"contact"`
	ProgramTitle   string    `json:"program_title"`
	RedeemedAt     time.Time `json:"redeemed_at"`
}

// Message is the envelope written to the transport.
type Message struct {
	Type       string    `json:"type"`
	Key        string    `json:"-"`
	OccurredAt time.Time `json:"occurred_at"`
	Payload    any       `json:"payload"`
}
