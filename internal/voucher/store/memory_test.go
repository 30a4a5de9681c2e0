package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"reliefpass/internal/voucher/models"
	id "reliefpass/pkg/domain"
	"reliefpass/pkg/platform/sentinel"
)

type VoucherStoreSuite struct {
	suite.Suite
	store     *InMemory
	scans     *ScanInMemory
	ctx       context.Context
	programID id.ProgramID
	day       time.Time
}

func TestVoucherStoreSuite(t *testing.T) {
	suite.Run(t, new(VoucherStoreSuite))
}

func (s *VoucherStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.scans = NewScanInMemory()
	s.ctx = context.Background()
	s.programID = id.NewProgramID()
	s.day = time.Date(2026, 7, 1, 9, 0, 0, 0, time.UTC)
}

func (s *VoucherStoreSuite) add(date time.Time) *models.Voucher {
	v, err := models.NewVoucher(id.NewRegistrationID(), s.programID, uuid.NewString(), date, s.day.Add(-72*time.Hour))
	s.Require().NoError(err)
	s.Require().NoError(s.store.Create(s.ctx, v))
	return v
}

func (s *VoucherStoreSuite) TestCreateEnforcesUniqueness() {
	v := s.add(s.day)

	sameRegistration, err := models.NewVoucher(v.RegistrationID, s.programID, "other", s.day, s.day)
	s.Require().NoError(err)
	s.ErrorIs(s.store.Create(s.ctx, sameRegistration), sentinel.ErrAlreadyUsed)

	sameToken, err := models.NewVoucher(id.NewRegistrationID(), s.programID, v.Token, s.day, s.day)
	s.Require().NoError(err)
	s.ErrorIs(s.store.Create(s.ctx, sameToken), sentinel.ErrAlreadyUsed)

	found, err := s.store.FindByToken(s.ctx, v.Token)
	s.Require().NoError(err)
	s.Equal(v.ID, found.ID)
}

func (s *VoucherStoreSuite) TestLeavingPendingHappensOnce() {
	v := s.add(s.day)
	staff := id.StaffID(uuid.New())

	completed, err := s.store.Complete(s.ctx, v.ID, staff, s.day)
	s.Require().NoError(err)
	s.Equal(models.StatusCompleted, completed.Status)
	s.Equal(staff, *completed.RedeemedBy)

	_, err = s.store.Complete(s.ctx, v.ID, staff, s.day)
	s.ErrorIs(err, sentinel.ErrInvalidState)
	_, err = s.store.Cancel(s.ctx, v.ID, s.day)
	s.ErrorIs(err, sentinel.ErrInvalidState)
	_, err = s.store.Cancel(s.ctx, id.NewVoucherID(), s.day)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *VoucherStoreSuite) TestListExpired() {
	old := s.add(s.day.Add(-48 * time.Hour))
	older := s.add(s.day.Add(-72 * time.Hour))
	s.add(s.day.Add(24 * time.Hour))
	done := s.add(s.day.Add(-96 * time.Hour))
	_, err := s.store.Complete(s.ctx, done.ID, id.StaffID(uuid.New()), s.day)
	s.Require().NoError(err)

	expired, err := s.store.ListExpired(s.ctx, s.day, models.ExpiryCursor{}, 10)
	s.Require().NoError(err)
	s.Require().Len(expired, 2)
	s.Equal(older.ID, expired[0].ID)
	s.Equal(old.ID, expired[1].ID)

	limited, err := s.store.ListExpired(s.ctx, s.day, models.ExpiryCursor{}, 1)
	s.Require().NoError(err)
	s.Require().Len(limited, 1)

	next, err := s.store.ListExpired(s.ctx, s.day, models.CursorAt(limited[0]), 1)
	s.Require().NoError(err)
	s.Require().Len(next, 1)
	s.Equal(old.ID, next[0].ID)

	rest, err := s.store.ListExpired(s.ctx, s.day, models.CursorAt(next[0]), 1)
	s.Require().NoError(err)
	s.Empty(rest)
}

func (s *VoucherStoreSuite) TestListExpiredPagesThroughSharedDate() {
	date := s.day.Add(-time.Hour)
	seen := map[id.VoucherID]bool{}
	for i := 0; i < 4; i++ {
		seen[s.add(date).ID] = false
	}

	var cursor models.ExpiryCursor
	for {
		page, err := s.store.ListExpired(s.ctx, s.day, cursor, 1)
		s.Require().NoError(err)
		if len(page) == 0 {
			break
		}
		s.False(seen[page[0].ID], "listed twice")
		seen[page[0].ID] = true
		cursor = models.CursorAt(page[0])
	}
	for voucherID, listed := range seen {
		s.True(listed, voucherID.String())
	}
}

func (s *VoucherStoreSuite) TestDeleteByRegistration() {
	v := s.add(s.day)
	s.Require().NoError(s.scans.Create(s.ctx, &models.ScanRecord{ID: id.NewScanID(), VoucherID: v.ID, ScannedAt: s.day}))

	s.Require().NoError(s.scans.DeleteByVoucher(s.ctx, v.ID))
	s.Require().NoError(s.store.DeleteByRegistration(s.ctx, v.RegistrationID))

	_, err := s.store.FindByToken(s.ctx, v.Token)
	s.ErrorIs(err, sentinel.ErrNotFound)
	_, err = s.scans.FindByVoucher(s.ctx, v.ID)
	s.ErrorIs(err, sentinel.ErrNotFound)
	s.NoError(s.store.DeleteByRegistration(s.ctx, v.RegistrationID))
}

func (s *VoucherStoreSuite) TestOneScanPerVoucher() {
	voucherID := id.NewVoucherID()
	s.Require().NoError(s.scans.Create(s.ctx, &models.ScanRecord{ID: id.NewScanID(), VoucherID: voucherID}))
	s.ErrorIs(s.scans.Create(s.ctx, &models.ScanRecord{ID: id.NewScanID(), VoucherID: voucherID}), sentinel.ErrAlreadyUsed)
}
