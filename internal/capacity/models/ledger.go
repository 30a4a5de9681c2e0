package models

import (
	"time"

	id "reliefpass/pkg/domain"
)

// Ledger tracks one capacity pool of a program.
//
// Invariants:
//   - 0 <= Occupied <= Ceiling after every mutation
//   - LastSlot only decreases when a ceiling change evicts occupants
//   - Ceiling 0 disables admission for the pool
type Ledger struct {
	ProgramID id.ProgramID `json:"program_id"`
	Kind      id.Kind      `json:"kind"`
	Ceiling   int          `json:"ceiling"`
	Occupied  int          `json:"occupied"`
	LastSlot  int          `json:"last_slot"`
}

// Available is the number of free slots.
func (l Ledger) Available() int {
	if free := l.Ceiling - l.Occupied; free > 0 {
		return free
	}
	return 0
}

// Occupant is an admission currently holding a slot.
type Occupant struct {
	RegistrationID id.RegistrationID
	Slot           int
	AdmittedAt     time.Time
}

// Entry is an occupant displaced by a lowered ceiling.
type Entry = Occupant

// CeilingPlan is a validated ceiling change that has not been applied yet.
type CeilingPlan struct {
	Previous Ledger
	Next     Ledger
	Evicted  []Entry
}
