package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"reliefpass/internal/admission/models"
	id "reliefpass/pkg/domain"
	"reliefpass/pkg/platform/sentinel"
)

type RegistrationStoreSuite struct {
	suite.Suite
	store     *InMemory
	ctx       context.Context
	programID id.ProgramID
	now       time.Time
}

func TestRegistrationStoreSuite(t *testing.T) {
	suite.Run(t, new(RegistrationStoreSuite))
}

func (s *RegistrationStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
	s.programID = id.NewProgramID()
	s.now = time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC)
}

func (s *RegistrationStoreSuite) add(kind id.Kind, slot int, admitted time.Time, status models.Status) *models.Registration {
	r, err := models.NewRegistration(s.programID, id.ParticipantID(uuid.New()), kind, slot, "", admitted)
	s.Require().NoError(err)
	r.Status = status
	s.Require().NoError(s.store.Create(s.ctx, r))
	return r
}

func (s *RegistrationStoreSuite) TestCreate() {
	s.Run("one registration per participant and kind", func() {
		r := s.add(id.KindRegistration, 1, s.now, models.StatusPending)

		again, err := models.NewRegistration(s.programID, r.ParticipantID, id.KindRegistration, 2, "", s.now)
		s.Require().NoError(err)
		s.ErrorIs(s.store.Create(s.ctx, again), sentinel.ErrAlreadyUsed)

		stall, err := models.NewRegistration(s.programID, r.ParticipantID, id.KindStall, 1, "", s.now)
		s.Require().NoError(err)
		s.NoError(s.store.Create(s.ctx, stall))
	})

	s.Run("found by participant", func() {
		r := s.add(id.KindRegistration, 3, s.now, models.StatusPending)
		found, err := s.store.FindByParticipant(s.ctx, s.programID, r.ParticipantID, id.KindRegistration)
		s.Require().NoError(err)
		s.Equal(r.ID, found.ID)

		_, err = s.store.FindByParticipant(s.ctx, id.NewProgramID(), r.ParticipantID, id.KindRegistration)
		s.ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *RegistrationStoreSuite) TestListOrdering() {
	late := s.add(id.KindRegistration, 2, s.now.Add(time.Minute), models.StatusApproved)
	early := s.add(id.KindRegistration, 1, s.now, models.StatusPending)
	gone := s.add(id.KindRegistration, 3, s.now.Add(2*time.Minute), models.StatusCanceled)
	stall := s.add(id.KindStall, 1, s.now, models.StatusApproved)

	all, err := s.store.ListByProgram(s.ctx, s.programID)
	s.Require().NoError(err)
	s.Require().Len(all, 4)
	s.Equal([]id.RegistrationID{early.ID, late.ID, gone.ID, stall.ID},
		[]id.RegistrationID{all[0].ID, all[1].ID, all[2].ID, all[3].ID})

	open, err := s.store.ListByProgram(s.ctx, s.programID, models.StatusPending, models.StatusApproved)
	s.Require().NoError(err)
	s.Len(open, 3)

	occupants, err := s.store.ListOccupants(s.ctx, s.programID, id.KindRegistration)
	s.Require().NoError(err)
	s.Require().Len(occupants, 2)
	s.Equal(early.ID, occupants[0].RegistrationID)
	s.Equal(late.ID, occupants[1].RegistrationID)
}

func (s *RegistrationStoreSuite) TestListByParticipant() {
	participant := id.ParticipantID(uuid.New())
	enrol := func(programID id.ProgramID, kind id.Kind, admitted time.Time) *models.Registration {
		r, err := models.NewRegistration(programID, participant, kind, 1, "", admitted)
		s.Require().NoError(err)
		s.Require().NoError(s.store.Create(s.ctx, r))
		return r
	}
	first := enrol(s.programID, id.KindRegistration, s.now)
	stall := enrol(s.programID, id.KindStall, s.now.Add(time.Hour))
	elsewhere := enrol(id.NewProgramID(), id.KindRegistration, s.now.Add(2*time.Hour))
	s.add(id.KindRegistration, 2, s.now, models.StatusPending)

	regs, err := s.store.ListByParticipant(s.ctx, participant)
	s.Require().NoError(err)
	s.Require().Len(regs, 3)
	s.Equal([]id.RegistrationID{elsewhere.ID, stall.ID, first.ID},
		[]id.RegistrationID{regs[0].ID, regs[1].ID, regs[2].ID})

	none, err := s.store.ListByParticipant(s.ctx, id.ParticipantID(uuid.New()))
	s.Require().NoError(err)
	s.Empty(none)
}

func (s *RegistrationStoreSuite) TestTransition() {
	s.Run("moves from an allowed status", func() {
		r := s.add(id.KindRegistration, 1, s.now, models.StatusApproved)
		at := s.now.Add(time.Hour)

		updated, err := s.store.Transition(s.ctx, r.ID,
			[]models.Status{models.StatusPending, models.StatusApproved}, models.StatusCanceled, at)
		s.Require().NoError(err)
		s.Equal(models.StatusCanceled, updated.Status)
		s.Require().NotNil(updated.CanceledAt)
		s.Equal(at, *updated.CanceledAt)
		s.Equal(at, updated.UpdatedAt)
	})

	s.Run("refuses any other status", func() {
		r := s.add(id.KindRegistration, 1, s.now, models.StatusClaimed)
		_, err := s.store.Transition(s.ctx, r.ID, []models.Status{models.StatusApproved}, models.StatusCanceled, s.now)
		s.ErrorIs(err, sentinel.ErrInvalidState)

		found, err := s.store.FindByID(s.ctx, r.ID)
		s.Require().NoError(err)
		s.Equal(models.StatusClaimed, found.Status)
	})

	s.Run("unknown registration", func() {
		_, err := s.store.Transition(s.ctx, id.NewRegistrationID(), []models.Status{models.StatusPending}, models.StatusApproved, s.now)
		s.ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *RegistrationStoreSuite) TestDeleteFreesParticipantKey() {
	r := s.add(id.KindRegistration, 1, s.now, models.StatusPending)
	s.Require().NoError(s.store.Delete(s.ctx, r.ID))

	_, err := s.store.FindByID(s.ctx, r.ID)
	s.ErrorIs(err, sentinel.ErrNotFound)
	_, err = s.store.FindByParticipant(s.ctx, s.programID, r.ParticipantID, id.KindRegistration)
	s.ErrorIs(err, sentinel.ErrNotFound)
	s.ErrorIs(s.store.Delete(s.ctx, r.ID), sentinel.ErrNotFound)
}
