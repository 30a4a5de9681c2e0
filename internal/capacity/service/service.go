// Package service implements the capacity ledger: per (program, kind) slot
// accounting that never lets occupancy exceed the ceiling.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"reliefpass/internal/capacity/metrics"
	"reliefpass/internal/capacity/models"
	programmodels "reliefpass/internal/program/models"
	id "reliefpass/pkg/domain"
	dErrors "reliefpass/pkg/domain-errors"
	"reliefpass/pkg/platform/sentinel"
	"reliefpass/pkg/platform/tx"
	"reliefpass/pkg/requestcontext"
)

type LedgerStore interface {
	Create(ctx context.Context, ledger models.Ledger) error
	Find(ctx context.Context, programID id.ProgramID, kind id.Kind) (*models.Ledger, error)
	FindForUpdate(ctx context.Context, programID id.ProgramID, kind id.Kind) (*models.Ledger, error)
	ListByProgram(ctx context.Context, programID id.ProgramID) ([]models.Ledger, error)
	Reserve(ctx context.Context, programID id.ProgramID, kind id.Kind, now time.Time) (int, error)
	Release(ctx context.Context, programID id.ProgramID, kind id.Kind) error
	Apply(ctx context.Context, ledger models.Ledger) error
}

type ProgramReader interface {
	FindByID(ctx context.Context, programID id.ProgramID) (*programmodels.Program, error)
}

// Occupants lists the admissions currently holding slots in a pool.
type Occupants interface {
	ListOccupants(ctx context.Context, programID id.ProgramID, kind id.Kind) ([]models.Occupant, error)
}

type Service struct {
	ledgers   LedgerStore
	programs  ProgramReader
	occupants Occupants
	tx        tx.Runner
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func New(ledgers LedgerStore, programs ProgramReader, occupants Occupants, runner tx.Runner, opts ...Option) *Service {
	s := &Service{
		ledgers:   ledgers,
		programs:  programs,
		occupants: occupants,
		tx:        runner,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// InitializeLedgers creates one empty ledger per kind.
func (s *Service) InitializeLedgers(ctx context.Context, programID id.ProgramID, ceilings map[id.Kind]int) error {
	for _, kind := range id.Kinds() {
		ceiling := ceilings[kind]
		if ceiling < 0 {
			return dErrors.New(dErrors.CodeValidation, "ceiling cannot be negative")
		}
		if err := s.ledgers.Create(ctx, models.Ledger{ProgramID: programID, Kind: kind, Ceiling: ceiling}); err != nil {
			if errors.Is(err, sentinel.ErrAlreadyUsed) {
				return dErrors.New(dErrors.CodeConflict, "ledger already exists")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to create ledger")
		}
	}
	return nil
}

// ReserveSlot takes one slot and returns its number. Numbers are never handed
// out twice unless a ceiling change rewound the sequence.
func (s *Service) ReserveSlot(ctx context.Context, programID id.ProgramID, kind id.Kind) (int, error) {
	var slot int
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		slot, err = s.ledgers.Reserve(txCtx, programID, kind, requestcontext.Now(ctx))
		return err
	})
	switch {
	case err == nil:
		s.metrics.IncrementReservation(string(kind), "reserved")
		return slot, nil
	case errors.Is(err, sentinel.ErrCapacity):
		s.metrics.IncrementReservation(string(kind), "full")
		return 0, dErrors.New(dErrors.CodeCapacityExceeded, "no "+kindLabel(kind)+" slots left")
	case errors.Is(err, sentinel.ErrInvalidState):
		s.metrics.IncrementReservation(string(kind), "not_open")
		return 0, dErrors.New(dErrors.CodeProgramNotOpen, "program is not accepting enrollment")
	case errors.Is(err, sentinel.ErrNotFound):
		return 0, dErrors.New(dErrors.CodeNotFound, "program not found")
	default:
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to reserve slot")
	}
}

// ReleaseSlot frees one slot. Occupancy never drops below zero.
func (s *Service) ReleaseSlot(ctx context.Context, programID id.ProgramID, kind id.Kind, slot int) error {
	if err := s.ledgers.Release(ctx, programID, kind); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "ledger not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to release slot")
	}
	s.logger.DebugContext(ctx, "slot released",
		"program_id", programID,
		"kind", kind,
		"slot", slot,
	)
	return nil
}

// PlanCeiling validates a ceiling change and works out which occupants it
// would evict, without changing anything. Inside a transaction the ledger row
// stays locked, so a following SetCeiling evicts exactly the planned entries.
func (s *Service) PlanCeiling(ctx context.Context, programID id.ProgramID, kind id.Kind, newCeiling int) (*models.CeilingPlan, error) {
	if newCeiling < 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "ceiling cannot be negative")
	}
	if !kind.IsValid() {
		return nil, dErrors.New(dErrors.CodeValidation, "invalid kind")
	}

	program, err := s.programs.FindByID(ctx, programID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "program not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load program")
	}
	if !program.CeilingMutableAt(requestcontext.Now(ctx)) {
		return nil, dErrors.New(dErrors.CodeImmutableCeiling, "ceiling can no longer change for this program")
	}

	ledger, err := s.ledgers.FindForUpdate(ctx, programID, kind)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "ledger not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load ledger")
	}

	plan := &models.CeilingPlan{Previous: *ledger, Next: *ledger}
	plan.Next.Ceiling = newCeiling
	if newCeiling >= ledger.Occupied {
		return plan, nil
	}

	occupants, err := s.occupants.ListOccupants(ctx, programID, kind)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list occupants")
	}
	if len(occupants) != ledger.Occupied {
		s.logger.WarnContext(ctx, "ledger occupancy disagrees with admissions",
			"program_id", programID,
			"kind", kind,
			"ledger_occupied", ledger.Occupied,
			"admissions", len(occupants),
		)
	}
	models.SortByAdmission(occupants)
	kept, evicted, lastSlot := models.PlanEviction(occupants, newCeiling)
	plan.Next.Occupied = len(kept)
	plan.Next.LastSlot = lastSlot
	plan.Evicted = evicted
	return plan, nil
}

// SetCeiling changes a pool's ceiling. Lowering it below occupancy evicts the
// most recent admissions; the returned entries are the evicted occupants in
// admission order. Callers that must react to evictions run this inside their
// own transaction so ledger and admissions change together.
func (s *Service) SetCeiling(ctx context.Context, programID id.ProgramID, kind id.Kind, newCeiling int) ([]models.Entry, error) {
	var plan *models.CeilingPlan
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		plan, err = s.PlanCeiling(txCtx, programID, kind, newCeiling)
		if err != nil {
			return err
		}
		if err := s.ledgers.Apply(txCtx, plan.Next); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update ledger")
		}
		s.metrics.IncrementCeilingChange(string(kind), direction(plan.Previous.Ceiling, newCeiling))
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "ceiling changed",
		"program_id", programID,
		"kind", kind,
		"ceiling", newCeiling,
		"evicted", len(plan.Evicted),
		"request_id", requestcontext.RequestID(ctx),
	)
	return plan.Evicted, nil
}

// Snapshot returns both ledgers of a program.
func (s *Service) Snapshot(ctx context.Context, programID id.ProgramID) ([]models.Ledger, error) {
	if _, err := s.programs.FindByID(ctx, programID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "program not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load program")
	}
	ledgers, err := s.ledgers.ListByProgram(ctx, programID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list ledgers")
	}
	return ledgers, nil
}

func direction(from, to int) string {
	switch {
	case to > from:
		return "raised"
	case to < from:
		return "lowered"
	default:
		return "unchanged"
	}
}

func kindLabel(kind id.Kind) string {
	if kind == id.KindStall {
		return "stall"
	}
	return "registration"
}
