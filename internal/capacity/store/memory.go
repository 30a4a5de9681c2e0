package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"reliefpass/internal/capacity/models"
	programmodels "reliefpass/internal/program/models"
	id "reliefpass/pkg/domain"
	"reliefpass/pkg/platform/sentinel"
)

// ProgramLookup reads the program a ledger belongs to.
type ProgramLookup interface {
	FindByID(ctx context.Context, programID id.ProgramID) (*programmodels.Program, error)
}

type ledgerKey struct {
	program id.ProgramID
	kind    id.Kind
}

// InMemory keeps ledgers in a map. Reserve checks the program status itself,
// mirroring the join the Postgres store does in one statement.
type InMemory struct {
	mu       sync.Mutex
	ledgers  map[ledgerKey]models.Ledger
	programs ProgramLookup
}

func NewInMemory(programs ProgramLookup) *InMemory {
	return &InMemory{
		ledgers:  make(map[ledgerKey]models.Ledger),
		programs: programs,
	}
}

func (s *InMemory) Create(_ context.Context, ledger models.Ledger) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := ledgerKey{ledger.ProgramID, ledger.Kind}
	if _, exists := s.ledgers[key]; exists {
		return sentinel.ErrAlreadyUsed
	}
	s.ledgers[key] = ledger
	return nil
}

func (s *InMemory) Find(_ context.Context, programID id.ProgramID, kind id.Kind) (*models.Ledger, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ledger, ok := s.ledgers[ledgerKey{programID, kind}]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &ledger, nil
}

// FindForUpdate is Find; the in-memory transaction runner already serialises
// callers.
func (s *InMemory) FindForUpdate(ctx context.Context, programID id.ProgramID, kind id.Kind) (*models.Ledger, error) {
	return s.Find(ctx, programID, kind)
}

func (s *InMemory) ListByProgram(_ context.Context, programID id.ProgramID) ([]models.Ledger, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Ledger
	for _, kind := range id.Kinds() {
		if ledger, ok := s.ledgers[ledgerKey{programID, kind}]; ok {
			out = append(out, ledger)
		}
	}
	return out, nil
}

func (s *InMemory) Reserve(ctx context.Context, programID id.ProgramID, kind id.Kind, now time.Time) (int, error) {
	program, err := s.programs.FindByID(ctx, programID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return 0, sentinel.ErrNotFound
		}
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	key := ledgerKey{programID, kind}
	ledger, ok := s.ledgers[key]
	if !ok {
		return 0, sentinel.ErrNotFound
	}
	if !program.AcceptsEnrollmentAt(now) {
		return 0, sentinel.ErrInvalidState
	}
	if ledger.Occupied >= ledger.Ceiling {
		return 0, sentinel.ErrCapacity
	}
	ledger.Occupied++
	ledger.LastSlot++
	s.ledgers[key] = ledger
	return ledger.LastSlot, nil
}

func (s *InMemory) Release(_ context.Context, programID id.ProgramID, kind id.Kind) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := ledgerKey{programID, kind}
	ledger, ok := s.ledgers[key]
	if !ok {
		return sentinel.ErrNotFound
	}
	if ledger.Occupied > 0 {
		ledger.Occupied--
	}
	s.ledgers[key] = ledger
	return nil
}

func (s *InMemory) Apply(_ context.Context, ledger models.Ledger) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := ledgerKey{ledger.ProgramID, ledger.Kind}
	if _, ok := s.ledgers[key]; !ok {
		return sentinel.ErrNotFound
	}
	if ledger.Occupied > ledger.Ceiling || ledger.Occupied < 0 {
		return sentinel.ErrInvalidState
	}
	s.ledgers[key] = ledger
	return nil
}
