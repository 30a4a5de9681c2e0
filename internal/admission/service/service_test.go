package service

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"reliefpass/internal/admission/models"
	"reliefpass/internal/admission/store"
	capacitymodels "reliefpass/internal/capacity/models"
	capacityservice "reliefpass/internal/capacity/service"
	capacitystore "reliefpass/internal/capacity/store"
	programmodels "reliefpass/internal/program/models"
	programstore "reliefpass/internal/program/store"
	vouchermodels "reliefpass/internal/voucher/models"
	voucherservice "reliefpass/internal/voucher/service"
	voucherstore "reliefpass/internal/voucher/store"
	id "reliefpass/pkg/domain"
	dErrors "reliefpass/pkg/domain-errors"
	"reliefpass/pkg/platform/tx"
	"reliefpass/pkg/requestcontext"
)

// AdmissionServiceSuite runs admission against the real in-memory stack so
// ledger, registrations and vouchers are checked together.
type AdmissionServiceSuite struct {
	suite.Suite
	programs      *programstore.InMemory
	ledgers       *capacitystore.InMemory
	registrations *store.InMemory
	capacity      *capacityservice.Service
	voucherStore  *voucherstore.InMemory
	vouchers      *voucherservice.Service
	runner        *tx.InMemory
	now           time.Time
	ctx           context.Context
}

func TestAdmissionServiceSuite(t *testing.T) {
	suite.Run(t, new(AdmissionServiceSuite))
}

func (s *AdmissionServiceSuite) SetupTest() {
	s.now = time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)

	s.runner = tx.NewInMemory()
	s.programs = programstore.NewInMemory()
	s.ledgers = capacitystore.NewInMemory(s.programs)
	s.registrations = store.NewInMemory()
	s.capacity = capacityservice.New(s.ledgers, s.programs, s.registrations, s.runner)
	s.voucherStore = voucherstore.NewInMemory()
	s.vouchers = voucherservice.New(
		s.voucherStore,
		voucherstore.NewScanInMemory(),
		s.registrations,
		s.programs,
		s.capacity,
		s.runner,
	)
}

func (s *AdmissionServiceSuite) newService(opts ...Option) *Service {
	return New(s.registrations, s.capacity, s.vouchers, s.runner, opts...)
}

func (s *AdmissionServiceSuite) openProgram(ceilings map[id.Kind]int) id.ProgramID {
	p, err := programmodels.NewProgram(id.NewProgramID(), "Winter coats", "Depot 4", s.now.Add(72*time.Hour), s.now)
	s.Require().NoError(err)
	p.Status = programmodels.StatusOpen
	s.Require().NoError(s.programs.Create(s.ctx, p))
	s.Require().NoError(s.capacity.InitializeLedgers(s.ctx, p.ID, ceilings))
	return p.ID
}

// at returns a request context minutes after the suite's clock so admission
// order is unambiguous.
func (s *AdmissionServiceSuite) at(minutes int) context.Context {
	return requestcontext.WithTime(context.Background(), s.now.Add(time.Duration(minutes)*time.Minute))
}

func (s *AdmissionServiceSuite) enroll(svc *Service, ctx context.Context, programID id.ProgramID, participant id.ParticipantID, kind id.Kind) (*models.Enrollment, error) {
	return svc.Enroll(ctx, &models.EnrollRequest{
		ProgramID:     programID,
		ParticipantID: participant.String(),
		Kind:          string(kind),
		Contact:       "person@example.org",
	})
}

func (s *AdmissionServiceSuite) ledger(programID id.ProgramID, kind id.Kind) (occupied, lastSlot, ceiling int) {
	l, err := s.ledgers.Find(s.ctx, programID, kind)
	s.Require().NoError(err)
	return l.Occupied, l.LastSlot, l.Ceiling
}

func (s *AdmissionServiceSuite) redeem(token string) *vouchermodels.Redemption {
	r, err := s.vouchers.Redeem(s.ctx, &vouchermodels.RedeemRequest{Token: token}, newStaff())
	s.Require().NoError(err)
	return r
}

func newParticipant() id.ParticipantID { return id.ParticipantID(uuid.New()) }
func newStaff() id.StaffID             { return id.StaffID(uuid.New()) }

func (s *AdmissionServiceSuite) TestEnroll() {
	s.Run("admits into the next slot as pending", func() {
		svc := s.newService()
		programID := s.openProgram(map[id.Kind]int{id.KindRegistration: 5})

		enrollment, err := s.enroll(svc, s.ctx, programID, newParticipant(), id.KindRegistration)
		s.Require().NoError(err)
		s.True(enrollment.Created)
		s.Equal(1, enrollment.Registration.Slot)
		s.Equal(models.StatusPending, enrollment.Registration.Status)
		s.Nil(enrollment.Voucher)

		occupied, _, _ := s.ledger(programID, id.KindRegistration)
		s.Equal(1, occupied)
	})

	s.Run("repeating an enrollment returns the held registration", func() {
		svc := s.newService()
		programID := s.openProgram(map[id.Kind]int{id.KindRegistration: 5})
		participant := newParticipant()

		first, err := s.enroll(svc, s.ctx, programID, participant, id.KindRegistration)
		s.Require().NoError(err)
		second, err := s.enroll(svc, s.ctx, programID, participant, id.KindRegistration)
		s.Require().NoError(err)

		s.False(second.Created)
		s.Equal(first.Registration.ID, second.Registration.ID)
		occupied, lastSlot, _ := s.ledger(programID, id.KindRegistration)
		s.Equal(1, occupied)
		s.Equal(1, lastSlot)
	})

	s.Run("the same participant may hold one slot per kind", func() {
		svc := s.newService()
		programID := s.openProgram(map[id.Kind]int{id.KindRegistration: 5, id.KindStall: 5})
		participant := newParticipant()

		_, err := s.enroll(svc, s.ctx, programID, participant, id.KindRegistration)
		s.Require().NoError(err)
		stall, err := s.enroll(svc, s.ctx, programID, participant, id.KindStall)
		s.Require().NoError(err)
		s.True(stall.Created)
		s.Equal(1, stall.Registration.Slot)
	})

	s.Run("full pool rejects and leaves the ledger alone", func() {
		svc := s.newService()
		programID := s.openProgram(map[id.Kind]int{id.KindRegistration: 1})

		_, err := s.enroll(svc, s.ctx, programID, newParticipant(), id.KindRegistration)
		s.Require().NoError(err)
		_, err = s.enroll(svc, s.ctx, programID, newParticipant(), id.KindRegistration)
		s.True(dErrors.Is(err, dErrors.CodeCapacityExceeded))

		occupied, lastSlot, _ := s.ledger(programID, id.KindRegistration)
		s.Equal(1, occupied)
		s.Equal(1, lastSlot)
	})

	s.Run("stall reservations are approved with a voucher", func() {
		svc := s.newService()
		programID := s.openProgram(map[id.Kind]int{id.KindStall: 2})

		enrollment, err := s.enroll(svc, s.ctx, programID, newParticipant(), id.KindStall)
		s.Require().NoError(err)
		s.Equal(models.StatusApproved, enrollment.Registration.Status)
		s.Require().NotNil(enrollment.Voucher)
		s.Equal(vouchermodels.StatusPending, enrollment.Voucher.Status)
		s.Equal(enrollment.Registration.ID, enrollment.Voucher.RegistrationID)
	})

	s.Run("auto approval issues beneficiary vouchers", func() {
		svc := s.newService(WithAutoApprove(true))
		programID := s.openProgram(map[id.Kind]int{id.KindRegistration: 2})

		enrollment, err := s.enroll(svc, s.ctx, programID, newParticipant(), id.KindRegistration)
		s.Require().NoError(err)
		s.Equal(models.StatusApproved, enrollment.Registration.Status)
		s.NotNil(enrollment.Voucher)
	})

	s.Run("invalid input", func() {
		svc := s.newService()
		programID := s.openProgram(map[id.Kind]int{id.KindRegistration: 2})

		_, err := svc.Enroll(s.ctx, &models.EnrollRequest{ProgramID: programID, ParticipantID: "nope"})
		s.True(dErrors.Is(err, dErrors.CodeValidation))

		_, err = svc.Enroll(s.ctx, &models.EnrollRequest{ParticipantID: newParticipant().String()})
		s.True(dErrors.Is(err, dErrors.CodeValidation))
	})

	s.Run("program must be open", func() {
		svc := s.newService()
		programID := s.openProgram(map[id.Kind]int{id.KindRegistration: 2})

		late := requestcontext.WithTime(context.Background(), s.now.Add(80*time.Hour))
		_, err := s.enroll(svc, late, programID, newParticipant(), id.KindRegistration)
		s.True(dErrors.Is(err, dErrors.CodeProgramNotOpen))

		_, err = s.enroll(svc, s.ctx, id.NewProgramID(), newParticipant(), id.KindRegistration)
		s.True(dErrors.Is(err, dErrors.CodeNotFound))
	})
}

func (s *AdmissionServiceSuite) TestApproveAndReject() {
	s.Run("approve issues the voucher once", func() {
		svc := s.newService()
		programID := s.openProgram(map[id.Kind]int{id.KindRegistration: 2})
		enrollment, err := s.enroll(svc, s.ctx, programID, newParticipant(), id.KindRegistration)
		s.Require().NoError(err)

		approved, err := svc.Approve(s.ctx, enrollment.Registration.ID)
		s.Require().NoError(err)
		s.Equal(models.StatusApproved, approved.Registration.Status)
		s.Require().NotNil(approved.Voucher)

		_, err = svc.Approve(s.ctx, enrollment.Registration.ID)
		s.True(dErrors.Is(err, dErrors.CodeConflict))
	})

	s.Run("reject frees the slot", func() {
		svc := s.newService()
		programID := s.openProgram(map[id.Kind]int{id.KindRegistration: 2})
		enrollment, err := s.enroll(svc, s.ctx, programID, newParticipant(), id.KindRegistration)
		s.Require().NoError(err)

		rejected, err := svc.Reject(s.ctx, enrollment.Registration.ID)
		s.Require().NoError(err)
		s.Equal(models.StatusRejected, rejected.Status)

		occupied, lastSlot, _ := s.ledger(programID, id.KindRegistration)
		s.Equal(0, occupied)
		s.Equal(1, lastSlot)
	})

	s.Run("only pending registrations can be rejected", func() {
		svc := s.newService(WithAutoApprove(true))
		programID := s.openProgram(map[id.Kind]int{id.KindRegistration: 2})
		enrollment, err := s.enroll(svc, s.ctx, programID, newParticipant(), id.KindRegistration)
		s.Require().NoError(err)

		_, err = svc.Reject(s.ctx, enrollment.Registration.ID)
		s.True(dErrors.Is(err, dErrors.CodeConflict))

		_, err = svc.Reject(s.ctx, id.NewRegistrationID())
		s.True(dErrors.Is(err, dErrors.CodeNotFound))
	})
}

func (s *AdmissionServiceSuite) TestWithdraw() {
	s.Run("cancels the voucher then frees the slot", func() {
		svc := s.newService(WithAutoApprove(true))
		programID := s.openProgram(map[id.Kind]int{id.KindRegistration: 2})
		participant := newParticipant()
		enrollment, err := s.enroll(svc, s.ctx, programID, participant, id.KindRegistration)
		s.Require().NoError(err)
		s.Require().NotNil(enrollment.Voucher)

		withdrawn, err := svc.Withdraw(s.ctx, enrollment.Registration.ID)
		s.Require().NoError(err)
		s.Equal(models.StatusCanceled, withdrawn.Status)
		s.NotNil(withdrawn.CanceledAt)

		lookup, err := s.vouchers.Lookup(s.ctx, enrollment.Voucher.Token)
		s.Require().NoError(err)
		s.Equal(vouchermodels.StatusCancelled, lookup.Voucher.Status)
		s.Equal(vouchermodels.OutcomeVoucherCancelled, s.redeem(enrollment.Voucher.Token).Outcome)

		occupied, _, _ := s.ledger(programID, id.KindRegistration)
		s.Equal(0, occupied)
	})

	s.Run("a withdrawn participant cannot enroll again", func() {
		svc := s.newService()
		programID := s.openProgram(map[id.Kind]int{id.KindRegistration: 2})
		participant := newParticipant()
		enrollment, err := s.enroll(svc, s.ctx, programID, participant, id.KindRegistration)
		s.Require().NoError(err)
		_, err = svc.Withdraw(s.ctx, enrollment.Registration.ID)
		s.Require().NoError(err)

		_, err = s.enroll(svc, s.ctx, programID, participant, id.KindRegistration)
		s.True(dErrors.Is(err, dErrors.CodeDuplicateEnrollment))
	})

	s.Run("claimed registrations stay", func() {
		svc := s.newService(WithAutoApprove(true))
		programID := s.openProgram(map[id.Kind]int{id.KindRegistration: 2})
		enrollment, err := s.enroll(svc, s.ctx, programID, newParticipant(), id.KindRegistration)
		s.Require().NoError(err)
		s.Require().Equal(vouchermodels.OutcomeRedeemed, s.redeem(enrollment.Voucher.Token).Outcome)

		_, err = svc.Withdraw(s.ctx, enrollment.Registration.ID)
		s.True(dErrors.Is(err, dErrors.CodeConflict))

		occupied, _, _ := s.ledger(programID, id.KindRegistration)
		s.Equal(1, occupied)
	})

	s.Run("twice is a conflict", func() {
		svc := s.newService()
		programID := s.openProgram(map[id.Kind]int{id.KindRegistration: 2})
		enrollment, err := s.enroll(svc, s.ctx, programID, newParticipant(), id.KindRegistration)
		s.Require().NoError(err)
		_, err = svc.Withdraw(s.ctx, enrollment.Registration.ID)
		s.Require().NoError(err)

		_, err = svc.Withdraw(s.ctx, enrollment.Registration.ID)
		s.True(dErrors.Is(err, dErrors.CodeConflict))
		occupied, _, _ := s.ledger(programID, id.KindRegistration)
		s.Equal(0, occupied)
	})
}

func (s *AdmissionServiceSuite) TestSetCeiling() {
	s.Run("evicts the latest admissions and their vouchers", func() {
		svc := s.newService(WithAutoApprove(true))
		programID := s.openProgram(map[id.Kind]int{id.KindRegistration: 4})

		enrollments := make([]*models.Enrollment, 0, 4)
		for i := 0; i < 4; i++ {
			e, err := s.enroll(svc, s.at(i), programID, newParticipant(), id.KindRegistration)
			s.Require().NoError(err)
			enrollments = append(enrollments, e)
		}
		a, b, c, d := enrollments[0], enrollments[1], enrollments[2], enrollments[3]

		evictions, err := svc.SetCeiling(s.ctx, programID, id.KindRegistration, 2)
		s.Require().NoError(err)
		s.Require().Len(evictions, 2)
		s.ElementsMatch(
			[]id.RegistrationID{c.Registration.ID, d.Registration.ID},
			[]id.RegistrationID{evictions[0].RegistrationID, evictions[1].RegistrationID},
		)
		for _, e := range evictions {
			s.NotEmpty(e.VoucherToken)
			s.Equal("person@example.org", e.Contact)
		}

		for _, kept := range []*models.Enrollment{a, b} {
			reg, err := svc.Get(s.ctx, kept.Registration.ID)
			s.Require().NoError(err)
			s.Equal(kept.Registration.Slot, reg.Slot)
			s.Equal(models.StatusApproved, reg.Status)
		}
		for _, gone := range []*models.Enrollment{c, d} {
			_, err := svc.Get(s.ctx, gone.Registration.ID)
			s.True(dErrors.Is(err, dErrors.CodeNotFound))
			_, err = s.vouchers.Lookup(s.ctx, gone.Voucher.Token)
			s.True(dErrors.Is(err, dErrors.CodeNotFound))
		}

		occupied, lastSlot, ceiling := s.ledger(programID, id.KindRegistration)
		s.Equal(2, occupied)
		s.Equal(2, lastSlot)
		s.Equal(2, ceiling)
	})

	s.Run("raising the ceiling evicts nobody", func() {
		svc := s.newService()
		programID := s.openProgram(map[id.Kind]int{id.KindRegistration: 1})
		_, err := s.enroll(svc, s.ctx, programID, newParticipant(), id.KindRegistration)
		s.Require().NoError(err)

		evictions, err := svc.SetCeiling(s.ctx, programID, id.KindRegistration, 3)
		s.Require().NoError(err)
		s.Empty(evictions)
		s.NotNil(evictions)

		second, err := s.enroll(svc, s.ctx, programID, newParticipant(), id.KindRegistration)
		s.Require().NoError(err)
		s.Equal(2, second.Registration.Slot)
	})

	s.Run("pools are independent", func() {
		svc := s.newService()
		programID := s.openProgram(map[id.Kind]int{id.KindRegistration: 2, id.KindStall: 2})
		_, err := s.enroll(svc, s.ctx, programID, newParticipant(), id.KindRegistration)
		s.Require().NoError(err)
		stall, err := s.enroll(svc, s.ctx, programID, newParticipant(), id.KindStall)
		s.Require().NoError(err)

		evictions, err := svc.SetCeiling(s.ctx, programID, id.KindRegistration, 0)
		s.Require().NoError(err)
		s.Len(evictions, 1)

		reg, err := svc.Get(s.ctx, stall.Registration.ID)
		s.Require().NoError(err)
		s.Equal(models.StatusApproved, reg.Status)
	})

	s.Run("closed programs keep their ceiling", func() {
		svc := s.newService()
		programID := s.openProgram(map[id.Kind]int{id.KindRegistration: 2})
		p, err := s.programs.FindByID(s.ctx, programID)
		s.Require().NoError(err)
		s.Require().NoError(p.Transition(programmodels.StatusClosed, s.now))
		s.Require().NoError(s.programs.Update(s.ctx, p, programmodels.StatusOpen))

		_, err = svc.SetCeiling(s.ctx, programID, id.KindRegistration, 1)
		s.True(dErrors.Is(err, dErrors.CodeImmutableCeiling))
	})
}

func (s *AdmissionServiceSuite) TestLowerCeilingThenRedeem() {
	svc := s.newService()
	programID := s.openProgram(map[id.Kind]int{id.KindRegistration: 2})

	p1, err := s.enroll(svc, s.at(0), programID, newParticipant(), id.KindRegistration)
	s.Require().NoError(err)
	p2, err := s.enroll(svc, s.at(1), programID, newParticipant(), id.KindRegistration)
	s.Require().NoError(err)
	s.Equal(1, p1.Registration.Slot)
	s.Equal(2, p2.Registration.Slot)

	_, err = s.enroll(svc, s.at(2), programID, newParticipant(), id.KindRegistration)
	s.True(dErrors.Is(err, dErrors.CodeCapacityExceeded))

	evictions, err := svc.SetCeiling(s.ctx, programID, id.KindRegistration, 1)
	s.Require().NoError(err)
	s.Require().Len(evictions, 1)
	s.Equal(p2.Registration.ID, evictions[0].RegistrationID)

	approved, err := svc.Approve(s.ctx, p1.Registration.ID)
	s.Require().NoError(err)
	s.Equal(1, approved.Registration.Slot)
	s.Require().NotNil(approved.Voucher)
	token := approved.Voucher.Token

	staffX, staffY := newStaff(), newStaff()
	first, err := s.vouchers.Redeem(s.ctx, &vouchermodels.RedeemRequest{Token: token}, staffX)
	s.Require().NoError(err)
	s.Equal(vouchermodels.OutcomeRedeemed, first.Outcome)

	second, err := s.vouchers.Redeem(s.at(5), &vouchermodels.RedeemRequest{Token: token}, staffY)
	s.Require().NoError(err)
	s.Equal(vouchermodels.OutcomeAlreadyRedeemed, second.Outcome)
	s.Require().NotNil(second.ScanRecord)
	s.Equal(staffX, second.ScanRecord.StaffID)
	s.Equal(first.ScanRecord.ScannedAt, second.ScanRecord.ScannedAt)

	reg, err := svc.Get(s.ctx, p1.Registration.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusClaimed, reg.Status)
}

func (s *AdmissionServiceSuite) TestCancelProgramAdmissions() {
	svc := s.newService(WithAutoApprove(true))
	programID := s.openProgram(map[id.Kind]int{id.KindRegistration: 5})

	claimed, err := s.enroll(svc, s.at(0), programID, newParticipant(), id.KindRegistration)
	s.Require().NoError(err)
	s.Require().Equal(vouchermodels.OutcomeRedeemed, s.redeem(claimed.Voucher.Token).Outcome)

	open, err := s.enroll(svc, s.at(1), programID, newParticipant(), id.KindRegistration)
	s.Require().NoError(err)
	pending, err := s.newService().Enroll(s.at(2), &models.EnrollRequest{
		ProgramID:     programID,
		ParticipantID: newParticipant().String(),
	})
	s.Require().NoError(err)
	s.Equal(models.StatusPending, pending.Registration.Status)

	cancelled, err := svc.CancelProgramAdmissions(s.ctx, programID)
	s.Require().NoError(err)
	s.Equal(2, cancelled)

	regs, err := svc.ListByProgram(s.ctx, programID)
	s.Require().NoError(err)
	statuses := map[id.RegistrationID]models.Status{}
	for _, r := range regs {
		statuses[r.ID] = r.Status
	}
	s.Equal(models.StatusClaimed, statuses[claimed.Registration.ID])
	s.Equal(models.StatusCanceled, statuses[open.Registration.ID])
	s.Equal(models.StatusCanceled, statuses[pending.Registration.ID])
	s.Equal(vouchermodels.OutcomeVoucherCancelled, s.redeem(open.Voucher.Token).Outcome)

	occupied, _, _ := s.ledger(programID, id.KindRegistration)
	s.Equal(1, occupied)
}

func (s *AdmissionServiceSuite) TestListByProgramEmpty() {
	regs, err := s.newService().ListByProgram(s.ctx, id.NewProgramID())
	s.Require().NoError(err)
	s.NotNil(regs)
	s.Empty(regs)
}

// TestOccupancyMatchesAdmissions drives a random mix of enrollments,
// withdrawals and ceiling changes and checks after every step that the
// ledger counts exactly the registrations holding a slot.
func (s *AdmissionServiceSuite) TestOccupancyMatchesAdmissions() {
	svc := s.newService(WithAutoApprove(true))
	programID := s.openProgram(map[id.Kind]int{id.KindRegistration: 4})
	rng := rand.New(rand.NewSource(7))

	for step := 0; step < 300; step++ {
		ctx := s.at(step)
		switch op := rng.Intn(10); {
		case op < 6:
			_, err := s.enroll(svc, ctx, programID, newParticipant(), id.KindRegistration)
			if err != nil {
				s.Require().True(dErrors.Is(err, dErrors.CodeCapacityExceeded), err)
			}
		case op < 8:
			holding, err := s.registrations.ListByProgram(ctx, programID, models.OccupyingStatuses()...)
			s.Require().NoError(err)
			if len(holding) > 0 {
				_, err := svc.Withdraw(ctx, holding[rng.Intn(len(holding))].ID)
				s.Require().NoError(err)
			}
		default:
			_, err := svc.SetCeiling(ctx, programID, id.KindRegistration, rng.Intn(7))
			s.Require().NoError(err)
		}

		holding, err := s.registrations.ListByProgram(ctx, programID, models.OccupyingStatuses()...)
		s.Require().NoError(err)
		occupied, _, ceiling := s.ledger(programID, id.KindRegistration)
		s.Require().Equal(len(holding), occupied, "step %d", step)
		s.Require().LessOrEqual(occupied, ceiling, "step %d", step)
	}
}

func (s *AdmissionServiceSuite) TestRefusedEvictionChangesNothing() {
	svc := s.newService(WithAutoApprove(true))
	programID := s.openProgram(map[id.Kind]int{id.KindRegistration: 3})

	enrollments := make([]*models.Enrollment, 0, 3)
	for i := 0; i < 3; i++ {
		e, err := s.enroll(svc, s.at(i), programID, newParticipant(), id.KindRegistration)
		s.Require().NoError(err)
		enrollments = append(enrollments, e)
	}
	b, c := enrollments[1], enrollments[2]
	s.Require().Equal(vouchermodels.OutcomeRedeemed, s.redeem(c.Voucher.Token).Outcome)

	assertUntouched := func() {
		occupied, lastSlot, ceiling := s.ledger(programID, id.KindRegistration)
		s.Equal(3, occupied)
		s.Equal(3, lastSlot)
		s.Equal(3, ceiling)

		reg, err := svc.Get(s.ctx, b.Registration.ID)
		s.Require().NoError(err)
		s.Equal(models.StatusApproved, reg.Status)
		lookup, err := s.vouchers.Lookup(s.ctx, b.Voucher.Token)
		s.Require().NoError(err)
		s.Equal(vouchermodels.StatusPending, lookup.Voucher.Status)
	}

	s.Run("through the ceiling change", func() {
		_, err := svc.SetCeiling(s.ctx, programID, id.KindRegistration, 1)
		s.True(dErrors.Is(err, dErrors.CodeInvariantViolation))
		assertUntouched()
	})

	s.Run("when the cascade is handed a redeemed entry", func() {
		entries := []capacitymodels.Entry{b.Registration.Occupant(), c.Registration.Occupant()}
		_, err := svc.OnCeilingLowered(s.ctx, programID, id.KindRegistration, entries)
		s.True(dErrors.Is(err, dErrors.CodeInvariantViolation))
		assertUntouched()
	})

	s.Run("the pool still admits after the refusal", func() {
		_, err := svc.Withdraw(s.ctx, b.Registration.ID)
		s.Require().NoError(err)
		e, err := s.enroll(svc, s.at(10), programID, newParticipant(), id.KindRegistration)
		s.Require().NoError(err)
		s.Equal(4, e.Registration.Slot)
	})
}

func (s *AdmissionServiceSuite) TestWithdrawAfterScanIsConflict() {
	svc := s.newService(WithAutoApprove(true))
	programID := s.openProgram(map[id.Kind]int{id.KindRegistration: 2})
	enrollment, err := s.enroll(svc, s.ctx, programID, newParticipant(), id.KindRegistration)
	s.Require().NoError(err)

	// the scan has completed the voucher but not yet claimed the registration
	_, err = s.voucherStore.Complete(s.ctx, enrollment.Voucher.ID, newStaff(), s.now)
	s.Require().NoError(err)

	_, err = svc.Withdraw(s.ctx, enrollment.Registration.ID)
	s.True(dErrors.Is(err, dErrors.CodeConflict))

	reg, err := svc.Get(s.ctx, enrollment.Registration.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusApproved, reg.Status)
	occupied, _, _ := s.ledger(programID, id.KindRegistration)
	s.Equal(1, occupied)
}

func (s *AdmissionServiceSuite) TestListByParticipant() {
	svc := s.newService(WithAutoApprove(true))
	participant := newParticipant()
	first := s.openProgram(map[id.Kind]int{id.KindRegistration: 2})
	second := s.openProgram(map[id.Kind]int{id.KindRegistration: 2})

	older, err := s.enroll(svc, s.at(0), first, participant, id.KindRegistration)
	s.Require().NoError(err)
	s.Require().Equal(vouchermodels.OutcomeRedeemed, s.redeem(older.Voucher.Token).Outcome)
	newer, err := s.enroll(svc, s.at(5), second, participant, id.KindRegistration)
	s.Require().NoError(err)
	_, err = s.enroll(svc, s.at(6), second, newParticipant(), id.KindRegistration)
	s.Require().NoError(err)

	history, err := svc.ListByParticipant(s.ctx, participant)
	s.Require().NoError(err)
	s.Require().Len(history, 2)

	s.Equal(newer.Registration.ID, history[0].Registration.ID)
	s.Require().NotNil(history[0].Voucher)
	s.Equal(vouchermodels.StatusPending, history[0].Voucher.Status)
	s.Empty(history[0].Scans)

	s.Equal(older.Registration.ID, history[1].Registration.ID)
	s.Equal(models.StatusClaimed, history[1].Registration.Status)
	s.Require().NotNil(history[1].Voucher)
	s.Equal(vouchermodels.StatusCompleted, history[1].Voucher.Status)
	s.Len(history[1].Scans, 1)

	none, err := svc.ListByParticipant(s.ctx, newParticipant())
	s.Require().NoError(err)
	s.Empty(none)

	_, err = svc.ListByParticipant(s.ctx, id.ParticipantID{})
	s.True(dErrors.Is(err, dErrors.CodeValidation))
}
