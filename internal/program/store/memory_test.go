package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"reliefpass/internal/program/models"
	id "reliefpass/pkg/domain"
	"reliefpass/pkg/platform/sentinel"
)

type ProgramStoreSuite struct {
	suite.Suite
	store *InMemory
	ctx   context.Context
}

func TestProgramStoreSuite(t *testing.T) {
	suite.Run(t, new(ProgramStoreSuite))
}

func (s *ProgramStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
}

func (s *ProgramStoreSuite) newProgram() *models.Program {
	now := time.Now()
	p, err := models.NewProgram(id.NewProgramID(), "Rice distribution", "Barangay hall", now.Add(24*time.Hour), now)
	s.Require().NoError(err)
	return p
}

func (s *ProgramStoreSuite) TestCreateAndFind() {
	s.Run("round trips a program", func() {
		p := s.newProgram()
		s.Require().NoError(s.store.Create(s.ctx, p))

		found, err := s.store.FindByID(s.ctx, p.ID)
		s.Require().NoError(err)
		s.Equal(p.Title, found.Title)
	})

	s.Run("returned copies do not alias stored state", func() {
		p := s.newProgram()
		s.Require().NoError(s.store.Create(s.ctx, p))
		found, _ := s.store.FindByID(s.ctx, p.ID)
		found.Title = "mutated"

		again, _ := s.store.FindByID(s.ctx, p.ID)
		s.Equal("Rice distribution", again.Title)
	})

	s.Run("unknown ID is not found", func() {
		_, err := s.store.FindByID(s.ctx, id.NewProgramID())
		s.ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *ProgramStoreSuite) TestUpdateGuardsExpectedStatus() {
	p := s.newProgram()
	s.Require().NoError(s.store.Create(s.ctx, p))

	opened := *p
	s.Require().NoError(opened.Transition(models.StatusOpen, time.Now()))
	s.Require().NoError(s.store.Update(s.ctx, &opened, models.StatusDraft))

	stale := *p
	s.Require().NoError(stale.Transition(models.StatusCancelled, time.Now()))
	s.ErrorIs(s.store.Update(s.ctx, &stale, models.StatusDraft), sentinel.ErrInvalidState)
}
