package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "reliefpass/pkg/domain"
	dErrors "reliefpass/pkg/domain-errors"
)

func TestStatusTransitions(t *testing.T) {
	assert.True(t, StatusDraft.CanTransitionTo(StatusOpen))
	assert.True(t, StatusDraft.CanTransitionTo(StatusCancelled))
	assert.True(t, StatusOpen.CanTransitionTo(StatusClosed))
	assert.True(t, StatusOpen.CanTransitionTo(StatusCancelled))
	assert.False(t, StatusDraft.CanTransitionTo(StatusClosed))
	assert.False(t, StatusClosed.CanTransitionTo(StatusOpen))
	assert.False(t, StatusCancelled.CanTransitionTo(StatusOpen))
}

func TestProgramWindows(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	p, err := NewProgram(id.NewProgramID(), "  Rice drive ", "Hall", now.Add(48*time.Hour), now)
	require.NoError(t, err)
	assert.Equal(t, "Rice drive", p.Title)
	assert.Equal(t, StatusDraft, p.Status)

	assert.False(t, p.AcceptsEnrollmentAt(now), "drafts do not accept enrollment")
	assert.True(t, p.CeilingMutableAt(now))

	require.NoError(t, p.Transition(StatusOpen, now))
	assert.True(t, p.AcceptsEnrollmentAt(now))
	assert.False(t, p.AcceptsEnrollmentAt(p.ScheduledAt), "enrollment closes at the start time")
	assert.False(t, p.CeilingMutableAt(p.ScheduledAt.Add(time.Minute)))

	err = p.Transition(StatusDraft, now)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
}

func TestNewProgramValidation(t *testing.T) {
	now := time.Now()
	_, err := NewProgram(id.NewProgramID(), " ", "", now.Add(time.Hour), now)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))

	_, err = NewProgram(id.NewProgramID(), "ok", "", time.Time{}, now)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
}

func TestReschedule(t *testing.T) {
	now := time.Now()
	p, err := NewProgram(id.NewProgramID(), "Produce", "", now.Add(time.Hour), now)
	require.NoError(t, err)

	assert.True(t, dErrors.HasCode(p.Reschedule(now.Add(-time.Hour), now), dErrors.CodeValidation))
	require.NoError(t, p.Reschedule(now.Add(72*time.Hour), now))

	require.NoError(t, p.Transition(StatusCancelled, now))
	assert.True(t, dErrors.HasCode(p.Reschedule(now.Add(96*time.Hour), now), dErrors.CodeConflict))
}
