package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "reliefpass/pkg/domain"
	dErrors "reliefpass/pkg/domain-errors"
)

func TestNewVoucher(t *testing.T) {
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	day := now.Add(24 * time.Hour)

	t.Run("starts pending with the pinned date", func(t *testing.T) {
		v, err := NewVoucher(id.NewRegistrationID(), id.NewProgramID(), "tok", day, now)
		require.NoError(t, err)
		assert.Equal(t, StatusPending, v.Status)
		assert.True(t, v.ScheduledRedemptionDate.Equal(day))
	})

	t.Run("requires a token", func(t *testing.T) {
		_, err := NewVoucher(id.NewRegistrationID(), id.NewProgramID(), "", day, now)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})
}

func TestVoucher_Expired(t *testing.T) {
	day := time.Date(2026, 5, 2, 9, 0, 0, 0, time.UTC)
	v := &Voucher{Status: StatusPending, ScheduledRedemptionDate: day}

	assert.False(t, v.Expired(day))
	assert.True(t, v.Expired(day.Add(time.Second)))

	v.Status = StatusCompleted
	assert.False(t, v.Expired(day.Add(time.Hour)))
}

func TestStats_ComputeRate(t *testing.T) {
	s := Stats{Total: 10, Completed: 3, Cancelled: 4, Pending: 3}
	s.ComputeRate()
	assert.InDelta(t, 0.5, s.ScanRate, 0.0001)

	empty := Stats{Total: 2, Cancelled: 2}
	empty.ComputeRate()
	assert.Zero(t, empty.ScanRate)
}

func TestRedeemRequest_Validate(t *testing.T) {
	t.Run("trims and accepts", func(t *testing.T) {
		r := &RedeemRequest{Token: "  abc ", Note: " gate 2 "}
		require.NoError(t, r.Validate())
		assert.Equal(t, "abc", r.Token)
		assert.Equal(t, "gate 2", r.Note)
	})

	t.Run("empty token", func(t *testing.T) {
		err := (&RedeemRequest{}).Validate()
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})
}
