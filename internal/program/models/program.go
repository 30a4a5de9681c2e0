package models

import (
	"strings"
	"time"

	id "reliefpass/pkg/domain"
	dErrors "reliefpass/pkg/domain-errors"
)

// Status is the lifecycle state of a distribution event.
type Status string

const (
	StatusDraft     Status = "DRAFT"
	StatusOpen      Status = "OPEN"
	StatusClosed    Status = "CLOSED"
	StatusCancelled Status = "CANCELLED"
)

var transitions = map[Status][]Status{
	StatusDraft: {StatusOpen, StatusCancelled},
	StatusOpen:  {StatusClosed, StatusCancelled},
}

// CanTransitionTo reports whether s may move to next. CLOSED and CANCELLED
// are terminal.
func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s Status) IsTerminal() bool {
	return s == StatusClosed || s == StatusCancelled
}

const maxTitleLength = 200

// Program is a scheduled, capacity-limited distribution event.
//
// Invariants:
//   - Title is non-empty and at most 200 characters
//   - ScheduledAt is set
//   - Status only moves along DRAFT→OPEN→CLOSED, or to CANCELLED from DRAFT/OPEN
//
// Ceilings and occupancy are not stored here; the capacity ledger owns them.
type Program struct {
	ID          id.ProgramID `json:"id"`
	Title       string       `json:"title"`
	Location    string       `json:"location"`
	ScheduledAt time.Time    `json:"scheduled_at"`
	Status      Status       `json:"status"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// NewProgram builds a DRAFT program.
func NewProgram(programID id.ProgramID, title, location string, scheduledAt, now time.Time) (*Program, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "title is required")
	}
	if len(title) > maxTitleLength {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "title must be at most 200 characters")
	}
	if scheduledAt.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "scheduled date is required")
	}
	return &Program{
		ID:          programID,
		Title:       title,
		Location:    strings.TrimSpace(location),
		ScheduledAt: scheduledAt.UTC(),
		Status:      StatusDraft,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// AcceptsEnrollmentAt reports whether new admissions are allowed at now.
func (p *Program) AcceptsEnrollmentAt(now time.Time) bool {
	return p.Status == StatusOpen && now.Before(p.ScheduledAt)
}

// CeilingMutableAt reports whether capacity may still be changed at now.
func (p *Program) CeilingMutableAt(now time.Time) bool {
	return (p.Status == StatusDraft || p.Status == StatusOpen) && now.Before(p.ScheduledAt)
}

// Transition moves the program to next or fails with a conflict.
func (p *Program) Transition(next Status, now time.Time) error {
	if !p.Status.CanTransitionTo(next) {
		return dErrors.New(dErrors.CodeConflict, "program cannot move from "+string(p.Status)+" to "+string(next))
	}
	p.Status = next
	p.UpdatedAt = now
	return nil
}

// Reschedule changes the event date. Issued vouchers keep the date they were
// issued with.
func (p *Program) Reschedule(scheduledAt, now time.Time) error {
	if p.Status.IsTerminal() {
		return dErrors.New(dErrors.CodeConflict, "program is "+string(p.Status))
	}
	if !scheduledAt.After(now) {
		return dErrors.New(dErrors.CodeValidation, "scheduled date must be in the future")
	}
	p.ScheduledAt = scheduledAt.UTC()
	p.UpdatedAt = now
	return nil
}
