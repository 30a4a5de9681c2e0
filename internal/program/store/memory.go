package store

import (
	"context"
	"sync"

	"reliefpass/internal/program/models"
	id "reliefpass/pkg/domain"
	"reliefpass/pkg/platform/sentinel"
)

// InMemory keeps programs in a map. Values are copied in and out so callers
// cannot mutate stored state.
type InMemory struct {
	mu       sync.RWMutex
	programs map[id.ProgramID]models.Program
}

func NewInMemory() *InMemory {
	return &InMemory{programs: make(map[id.ProgramID]models.Program)}
}

func (s *InMemory) Create(_ context.Context, p *models.Program) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.programs[p.ID]; exists {
		return sentinel.ErrAlreadyUsed
	}
	s.programs[p.ID] = *p
	return nil
}

func (s *InMemory) FindByID(_ context.Context, programID id.ProgramID) (*models.Program, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.programs[programID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &p, nil
}

// Update persists status and schedule changes when the stored status still
// equals expected, so two racing transitions cannot both win.
func (s *InMemory) Update(_ context.Context, p *models.Program, expected models.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.programs[p.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if current.Status != expected {
		return sentinel.ErrInvalidState
	}
	s.programs[p.ID] = *p
	return nil
}
