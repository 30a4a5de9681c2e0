package service

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks

import (
	"context"
	"errors"
	"log/slog"

	"reliefpass/internal/program/metrics"
	"reliefpass/internal/program/models"
	id "reliefpass/pkg/domain"
	dErrors "reliefpass/pkg/domain-errors"
	"reliefpass/pkg/platform/sentinel"
	"reliefpass/pkg/platform/tx"
	"reliefpass/pkg/requestcontext"
)

type ProgramStore interface {
	Create(ctx context.Context, p *models.Program) error
	FindByID(ctx context.Context, programID id.ProgramID) (*models.Program, error)
	Update(ctx context.Context, p *models.Program, expected models.Status) error
}

// LedgerInitializer creates the capacity ledgers for a new program.
type LedgerInitializer interface {
	InitializeLedgers(ctx context.Context, programID id.ProgramID, ceilings map[id.Kind]int) error
}

// AdmissionCanceller withdraws every open admission of a cancelled program.
type AdmissionCanceller interface {
	CancelProgramAdmissions(ctx context.Context, programID id.ProgramID) (int, error)
}

// Service manages the program lifecycle.
type Service struct {
	programs ProgramStore
	ledgers  LedgerInitializer
	cascade  AdmissionCanceller
	tx       tx.Runner
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithAdmissionCanceller enables the cancellation cascade. Without it,
// Cancel only changes the program status.
func WithAdmissionCanceller(c AdmissionCanceller) Option {
	return func(s *Service) { s.cascade = c }
}

func New(programs ProgramStore, ledgers LedgerInitializer, runner tx.Runner, opts ...Option) *Service {
	s := &Service{
		programs: programs,
		ledgers:  ledgers,
		tx:       runner,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetAdmissionCanceller wires the cascade after construction; admission is
// built on top of programs, so main links them last.
func (s *Service) SetAdmissionCanceller(c AdmissionCanceller) {
	s.cascade = c
}

// Create stores a DRAFT program together with its ledgers.
func (s *Service) Create(ctx context.Context, req *models.CreateProgramRequest) (*models.Program, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	now := requestcontext.Now(ctx)
	if !req.ScheduledAt.After(now) {
		return nil, dErrors.New(dErrors.CodeValidation, "scheduled_at must be in the future")
	}
	p, err := models.NewProgram(id.NewProgramID(), req.Title, req.Location, req.ScheduledAt, now)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
			return nil, dErrors.New(dErrors.CodeValidation, err.Error())
		}
		return nil, err
	}

	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.programs.Create(txCtx, p); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to create program")
		}
		ceilings := map[id.Kind]int{
			id.KindRegistration: req.RegistrationCeiling,
			id.KindStall:        req.StallCeiling,
		}
		if err := s.ledgers.InitializeLedgers(txCtx, p.ID, ceilings); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to initialise capacity")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncrementCreated()
	s.logger.InfoContext(ctx, "program created",
		"program_id", p.ID,
		"scheduled_at", p.ScheduledAt,
		"request_id", requestcontext.RequestID(ctx),
	)
	return p, nil
}

func (s *Service) Get(ctx context.Context, programID id.ProgramID) (*models.Program, error) {
	p, err := s.programs.FindByID(ctx, programID)
	if err != nil {
		return nil, translate(err)
	}
	return p, nil
}

func (s *Service) Open(ctx context.Context, programID id.ProgramID) (*models.Program, error) {
	return s.transition(ctx, programID, models.StatusOpen)
}

func (s *Service) Close(ctx context.Context, programID id.ProgramID) (*models.Program, error) {
	return s.transition(ctx, programID, models.StatusClosed)
}

// Cancel ends the program and, in the same transaction, cancels pending
// vouchers and withdraws every unclaimed admission.
func (s *Service) Cancel(ctx context.Context, programID id.ProgramID) (*models.Program, error) {
	var (
		cancelled *models.Program
		withdrawn int
	)
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		p, err := s.transition(txCtx, programID, models.StatusCancelled)
		if err != nil {
			return err
		}
		cancelled = p
		if s.cascade == nil {
			return nil
		}
		withdrawn, err = s.cascade.CancelProgramAdmissions(txCtx, programID)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "program cancelled",
		"program_id", programID,
		"admissions_cancelled", withdrawn,
		"request_id", requestcontext.RequestID(ctx),
	)
	return cancelled, nil
}

// Reschedule moves the event date. Vouchers already issued keep their date.
func (s *Service) Reschedule(ctx context.Context, programID id.ProgramID, req *models.RescheduleRequest) (*models.Program, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	p, err := s.programs.FindByID(ctx, programID)
	if err != nil {
		return nil, translate(err)
	}
	expected := p.Status
	if err := p.Reschedule(req.ScheduledAt, requestcontext.Now(ctx)); err != nil {
		return nil, err
	}
	if err := s.programs.Update(ctx, p, expected); err != nil {
		return nil, translate(err)
	}
	s.logger.InfoContext(ctx, "program rescheduled",
		"program_id", programID,
		"scheduled_at", p.ScheduledAt,
		"request_id", requestcontext.RequestID(ctx),
	)
	return p, nil
}

func (s *Service) transition(ctx context.Context, programID id.ProgramID, next models.Status) (*models.Program, error) {
	p, err := s.programs.FindByID(ctx, programID)
	if err != nil {
		return nil, translate(err)
	}
	expected := p.Status
	if err := p.Transition(next, requestcontext.Now(ctx)); err != nil {
		return nil, err
	}
	if err := s.programs.Update(ctx, p, expected); err != nil {
		return nil, translate(err)
	}
	s.metrics.IncrementTransition(string(next))
	return p, nil
}

func translate(err error) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "program not found")
	case errors.Is(err, sentinel.ErrInvalidState):
		return dErrors.New(dErrors.CodeConflict, "program changed concurrently")
	default:
		var de *dErrors.Error
		if errors.As(err, &de) {
			return err
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "program store failure")
	}
}
