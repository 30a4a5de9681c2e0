// Package service admits participants into programs and unwinds admissions
// when they are withdrawn, rejected, evicted or their program is cancelled.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"reliefpass/internal/admission/metrics"
	"reliefpass/internal/admission/models"
	capacitymodels "reliefpass/internal/capacity/models"
	vouchermodels "reliefpass/internal/voucher/models"
	id "reliefpass/pkg/domain"
	dErrors "reliefpass/pkg/domain-errors"
	"reliefpass/pkg/platform/sentinel"
	"reliefpass/pkg/platform/tx"
	"reliefpass/pkg/requestcontext"
)

var tracer = otel.Tracer("reliefpass/admission")

type RegistrationStore interface {
	Create(ctx context.Context, r *models.Registration) error
	FindByID(ctx context.Context, registrationID id.RegistrationID) (*models.Registration, error)
	FindByParticipant(ctx context.Context, programID id.ProgramID, participantID id.ParticipantID, kind id.Kind) (*models.Registration, error)
	ListByProgram(ctx context.Context, programID id.ProgramID, statuses ...models.Status) ([]*models.Registration, error)
	ListByParticipant(ctx context.Context, participantID id.ParticipantID) ([]*models.Registration, error)
	Transition(ctx context.Context, registrationID id.RegistrationID, from []models.Status, next models.Status, now time.Time) (*models.Registration, error)
	Delete(ctx context.Context, registrationID id.RegistrationID) error
}

// Ledger is the capacity ledger as admission uses it.
type Ledger interface {
	ReserveSlot(ctx context.Context, programID id.ProgramID, kind id.Kind) (int, error)
	ReleaseSlot(ctx context.Context, programID id.ProgramID, kind id.Kind, slot int) error
	PlanCeiling(ctx context.Context, programID id.ProgramID, kind id.Kind, newCeiling int) (*capacitymodels.CeilingPlan, error)
	SetCeiling(ctx context.Context, programID id.ProgramID, kind id.Kind, newCeiling int) ([]capacitymodels.Entry, error)
}

// Vouchers issues and withdraws the credential bound to a registration.
type Vouchers interface {
	Issue(ctx context.Context, registrationID id.RegistrationID) (*vouchermodels.Voucher, error)
	CancelForRegistration(ctx context.Context, registrationID id.RegistrationID) (*vouchermodels.Voucher, error)
	Discard(ctx context.Context, registrationID id.RegistrationID) error
	ForRegistration(ctx context.Context, registrationID id.RegistrationID) (*vouchermodels.Lookup, error)
}

type Service struct {
	registrations RegistrationStore
	ledger        Ledger
	vouchers      Vouchers
	tx            tx.Runner
	autoApprove   bool
	logger        *slog.Logger
	metrics       *metrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithAutoApprove approves beneficiary registrations on enrollment instead
// of leaving them PENDING for review.
func WithAutoApprove(enabled bool) Option {
	return func(s *Service) { s.autoApprove = enabled }
}

func New(registrations RegistrationStore, ledger Ledger, vouchers Vouchers, runner tx.Runner, opts ...Option) *Service {
	s := &Service{
		registrations: registrations,
		ledger:        ledger,
		vouchers:      vouchers,
		tx:            runner,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// errExisting marks a lost race on the participant's unique key.
var errExisting = errors.New("participant already enrolled")

// Enroll admits a participant. Repeating the call returns the registration
// already held and leaves occupancy alone. Stall reservations are approved
// immediately and get their voucher in the same call.
func (s *Service) Enroll(ctx context.Context, req *models.EnrollRequest) (*models.Enrollment, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if req.ProgramID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "program ID is required")
	}
	programID, participantID, kind := req.ProgramID, req.Participant(), req.PoolKind()

	ctx, span := tracer.Start(ctx, "admission.Enroll")
	defer span.End()
	span.SetAttributes(
		attribute.String("program_id", programID.String()),
		attribute.String("kind", kind.String()),
	)

	var (
		reg      *models.Registration
		existing *models.Registration
	)
	now := requestcontext.Now(ctx)
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		found, err := s.registrations.FindByParticipant(txCtx, programID, participantID, kind)
		if err == nil {
			existing = found
			return nil
		}
		if !errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to check existing registration")
		}

		slot, err := s.ledger.ReserveSlot(txCtx, programID, kind)
		if err != nil {
			return err
		}
		reg, err = models.NewRegistration(programID, participantID, kind, slot, req.Contact, now)
		if err != nil {
			return err
		}
		if kind == id.KindStall || s.autoApprove {
			reg.Status = models.StatusApproved
		}
		if err := s.registrations.Create(txCtx, reg); err != nil {
			if errors.Is(err, sentinel.ErrAlreadyUsed) {
				return errExisting
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to store registration")
		}
		return nil
	})
	if errors.Is(err, errExisting) {
		existing, err = s.registrations.FindByParticipant(ctx, programID, participantID, kind)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load existing registration")
		}
	}
	if err != nil {
		s.metrics.IncrementEnrollment(kind.String(), string(dErrors.CodeOf(err)))
		span.SetStatus(codes.Error, string(dErrors.CodeOf(err)))
		return nil, err
	}

	if existing != nil {
		if !existing.Status.Occupies() {
			s.metrics.IncrementEnrollment(kind.String(), string(dErrors.CodeDuplicateEnrollment))
			return nil, dErrors.New(dErrors.CodeDuplicateEnrollment, "participant was already enrolled and is now "+string(existing.Status))
		}
		s.metrics.IncrementEnrollment(kind.String(), "existing")
		return &models.Enrollment{Registration: existing}, nil
	}

	s.metrics.IncrementEnrollment(kind.String(), "admitted")
	s.logger.InfoContext(ctx, "participant enrolled",
		"registration_id", reg.ID,
		"program_id", programID,
		"kind", kind,
		"slot", reg.Slot,
		"status", reg.Status,
		"request_id", requestcontext.RequestID(ctx),
	)

	enrollment := &models.Enrollment{Registration: reg, Created: true}
	if reg.Status == models.StatusApproved {
		enrollment.Voucher = s.issueAfterApproval(ctx, reg)
	}
	return enrollment, nil
}

// issueAfterApproval issues the voucher once the approval is committed. A
// failure leaves the registration approved; the voucher can be issued again
// through the voucher endpoint.
func (s *Service) issueAfterApproval(ctx context.Context, reg *models.Registration) *vouchermodels.Voucher {
	voucher, err := s.vouchers.Issue(ctx, reg.ID)
	if err != nil {
		s.logger.ErrorContext(ctx, "voucher not issued after approval",
			"registration_id", reg.ID,
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		return nil
	}
	return voucher
}

// Approve moves a PENDING registration to APPROVED and issues its voucher.
func (s *Service) Approve(ctx context.Context, registrationID id.RegistrationID) (*models.Enrollment, error) {
	reg, err := s.registrations.Transition(ctx, registrationID,
		[]models.Status{models.StatusPending}, models.StatusApproved, requestcontext.Now(ctx))
	if err != nil {
		return nil, s.transitionError(ctx, registrationID, err)
	}
	s.logger.InfoContext(ctx, "registration approved",
		"registration_id", reg.ID,
		"request_id", requestcontext.RequestID(ctx),
	)
	return &models.Enrollment{Registration: reg, Voucher: s.issueAfterApproval(ctx, reg)}, nil
}

// Reject turns a PENDING registration down and frees its slot.
func (s *Service) Reject(ctx context.Context, registrationID id.RegistrationID) (*models.Registration, error) {
	var reg *models.Registration
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		reg, err = s.registrations.Transition(txCtx, registrationID,
			[]models.Status{models.StatusPending}, models.StatusRejected, requestcontext.Now(ctx))
		if err != nil {
			return s.transitionError(txCtx, registrationID, err)
		}
		return s.ledger.ReleaseSlot(txCtx, reg.ProgramID, reg.Kind, reg.Slot)
	})
	if err != nil {
		return nil, err
	}
	s.metrics.IncrementRelease(reg.Kind.String(), "rejected")
	s.logger.InfoContext(ctx, "registration rejected",
		"registration_id", reg.ID,
		"request_id", requestcontext.RequestID(ctx),
	)
	return reg, nil
}

// Withdraw cancels an unclaimed registration: its pending voucher first,
// then the registration, then the slot.
func (s *Service) Withdraw(ctx context.Context, registrationID id.RegistrationID) (*models.Registration, error) {
	var reg *models.Registration
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		current, err := s.registrations.FindByID(txCtx, registrationID)
		if err != nil {
			return registrationError(err)
		}
		if current.Status == models.StatusClaimed {
			return errAlreadyClaimed
		}
		if !current.Status.Occupies() {
			return dErrors.New(dErrors.CodeConflict, "registration is "+string(current.Status))
		}
		redeemed, err := s.redeemed(txCtx, current.ID)
		if err != nil {
			return err
		}
		if redeemed {
			return errAlreadyClaimed
		}
		reg, err = s.cancel(txCtx, current)
		if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
			// a scan completed the voucher after the check above
			if redeemed, findErr := s.redeemed(txCtx, current.ID); findErr == nil && redeemed {
				return errAlreadyClaimed
			}
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	s.metrics.IncrementRelease(reg.Kind.String(), "withdrawn")
	s.logger.InfoContext(ctx, "registration withdrawn",
		"registration_id", reg.ID,
		"program_id", reg.ProgramID,
		"request_id", requestcontext.RequestID(ctx),
	)
	return reg, nil
}

var errAlreadyClaimed = dErrors.New(dErrors.CodeConflict, "registration was already claimed")

// redeemed reports whether the registration's voucher was scanned.
func (s *Service) redeemed(ctx context.Context, registrationID id.RegistrationID) (bool, error) {
	history, err := s.vouchers.ForRegistration(ctx, registrationID)
	if err != nil {
		return false, err
	}
	return history != nil && history.Voucher.Status == vouchermodels.StatusCompleted, nil
}

// cancel runs the withdrawal cascade inside the caller's transaction.
func (s *Service) cancel(ctx context.Context, current *models.Registration) (*models.Registration, error) {
	if _, err := s.vouchers.CancelForRegistration(ctx, current.ID); err != nil {
		return nil, err
	}
	reg, err := s.registrations.Transition(ctx, current.ID,
		[]models.Status{models.StatusPending, models.StatusApproved}, models.StatusCanceled, requestcontext.Now(ctx))
	if err != nil {
		return nil, s.transitionError(ctx, current.ID, err)
	}
	if err := s.ledger.ReleaseSlot(ctx, reg.ProgramID, reg.Kind, reg.Slot); err != nil {
		return nil, err
	}
	return reg, nil
}

// SetCeiling changes a pool's ceiling and, in the same transaction, removes
// every admission the new ceiling no longer fits. The evictions are returned
// so the caller can tell the people affected. Every planned eviction is
// checked before the ledger changes, so a refused change leaves no trace.
func (s *Service) SetCeiling(ctx context.Context, programID id.ProgramID, kind id.Kind, newCeiling int) ([]models.Eviction, error) {
	ctx, span := tracer.Start(ctx, "admission.SetCeiling")
	defer span.End()
	span.SetAttributes(
		attribute.String("program_id", programID.String()),
		attribute.String("kind", kind.String()),
		attribute.Int("ceiling", newCeiling),
	)

	var evictions []models.Eviction
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		plan, err := s.ledger.PlanCeiling(txCtx, programID, kind, newCeiling)
		if err != nil {
			return err
		}
		if _, err := s.evictable(txCtx, programID, kind, plan.Evicted); err != nil {
			return err
		}
		evicted, err := s.ledger.SetCeiling(txCtx, programID, kind, newCeiling)
		if err != nil {
			return err
		}
		evictions, err = s.OnCeilingLowered(txCtx, programID, kind, evicted)
		return err
	})
	if err != nil {
		s.logAbortedEviction(ctx, programID, kind, err)
		span.SetStatus(codes.Error, string(dErrors.CodeOf(err)))
		return nil, err
	}
	if evictions == nil {
		evictions = []models.Eviction{}
	}

	s.metrics.AddEvictions(kind.String(), len(evictions))
	span.SetAttributes(attribute.Int("evicted", len(evictions)))
	return evictions, nil
}

// evictable loads the registrations behind evicted entries and refuses the
// whole set when any of them no longer belongs to the pool or was already
// redeemed. It changes nothing.
func (s *Service) evictable(ctx context.Context, programID id.ProgramID, kind id.Kind, evicted []capacitymodels.Entry) ([]*models.Registration, error) {
	regs := make([]*models.Registration, 0, len(evicted))
	for _, entry := range evicted {
		reg, err := s.registrations.FindByID(ctx, entry.RegistrationID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return nil, dErrors.New(dErrors.CodeInvariantViolation, "evicted slot has no registration")
			}
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load evicted registration")
		}
		if reg.ProgramID != programID || reg.Kind != kind {
			return nil, dErrors.New(dErrors.CodeInvariantViolation, "evicted registration belongs to another pool")
		}
		if reg.Status == models.StatusClaimed {
			return nil, dErrors.New(dErrors.CodeInvariantViolation, "voucher was already redeemed")
		}
		redeemed, err := s.redeemed(ctx, reg.ID)
		if err != nil {
			return nil, err
		}
		if redeemed {
			return nil, dErrors.New(dErrors.CodeInvariantViolation, "voucher was already redeemed")
		}
		regs = append(regs, reg)
	}
	return regs, nil
}

// OnCeilingLowered removes evicted admissions top-down: the voucher is
// cancelled and discarded before its registration is deleted, so a voucher
// never outlives its registration. A redeemed voucher cannot be evicted and
// aborts the whole change before anything is removed.
func (s *Service) OnCeilingLowered(ctx context.Context, programID id.ProgramID, kind id.Kind, evicted []capacitymodels.Entry) ([]models.Eviction, error) {
	evictions := make([]models.Eviction, 0, len(evicted))
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		regs, err := s.evictable(txCtx, programID, kind, evicted)
		if err != nil {
			return err
		}
		for _, reg := range regs {
			voucher, err := s.vouchers.CancelForRegistration(txCtx, reg.ID)
			if err != nil {
				return err
			}
			if err := s.vouchers.Discard(txCtx, reg.ID); err != nil {
				return err
			}
			if err := s.registrations.Delete(txCtx, reg.ID); err != nil {
				return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete evicted registration")
			}

			eviction := models.Eviction{
				RegistrationID: reg.ID,
				ParticipantID:  reg.ParticipantID,
				Kind:           reg.Kind,
				Slot:           reg.Slot,
				Contact:        reg.Contact,
			}
			if voucher != nil {
				eviction.VoucherToken = voucher.Token
			}
			evictions = append(evictions, eviction)
			s.logger.InfoContext(ctx, "admission evicted",
				"registration_id", reg.ID,
				"program_id", programID,
				"kind", kind,
				"slot", reg.Slot,
				"request_id", requestcontext.RequestID(ctx),
			)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return evictions, nil
}

func (s *Service) logAbortedEviction(ctx context.Context, programID id.ProgramID, kind id.Kind, err error) {
	if !dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
		return
	}
	s.logger.ErrorContext(ctx, "eviction aborted",
		"program_id", programID,
		"kind", kind,
		"error", err,
		"request_id", requestcontext.RequestID(ctx),
	)
}

// CancelProgramAdmissions withdraws every PENDING and APPROVED admission of
// a program. CLAIMED admissions already received their goods and stay.
func (s *Service) CancelProgramAdmissions(ctx context.Context, programID id.ProgramID) (int, error) {
	var cancelled int
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		open, err := s.registrations.ListByProgram(txCtx, programID, models.StatusPending, models.StatusApproved)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to list admissions")
		}
		for _, reg := range open {
			if _, err := s.cancel(txCtx, reg); err != nil {
				return err
			}
			s.metrics.IncrementRelease(reg.Kind.String(), "program_cancelled")
			cancelled++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return cancelled, nil
}

func (s *Service) Get(ctx context.Context, registrationID id.RegistrationID) (*models.Registration, error) {
	reg, err := s.registrations.FindByID(ctx, registrationID)
	if err != nil {
		return nil, registrationError(err)
	}
	return reg, nil
}

// ListByProgram returns every registration of a program in admission order.
func (s *Service) ListByProgram(ctx context.Context, programID id.ProgramID) ([]*models.Registration, error) {
	regs, err := s.registrations.ListByProgram(ctx, programID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list registrations")
	}
	if regs == nil {
		regs = []*models.Registration{}
	}
	return regs, nil
}

// ListByParticipant returns every registration a participant holds across
// programs, newest first, each with its voucher and scan history.
func (s *Service) ListByParticipant(ctx context.Context, participantID id.ParticipantID) ([]*models.History, error) {
	if participantID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "participant ID is required")
	}
	regs, err := s.registrations.ListByParticipant(ctx, participantID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list registrations")
	}
	history := make([]*models.History, 0, len(regs))
	for _, reg := range regs {
		entry := &models.History{Registration: reg, Scans: []*vouchermodels.ScanRecord{}}
		voucher, err := s.vouchers.ForRegistration(ctx, reg.ID)
		if err != nil {
			return nil, err
		}
		if voucher != nil {
			entry.Voucher = voucher.Voucher
			entry.Scans = voucher.Scans
		}
		history = append(history, entry)
	}
	return history, nil
}

// transitionError explains a failed status change with the current status.
func (s *Service) transitionError(ctx context.Context, registrationID id.RegistrationID, err error) error {
	if !errors.Is(err, sentinel.ErrInvalidState) {
		return registrationError(err)
	}
	current, findErr := s.registrations.FindByID(ctx, registrationID)
	if findErr != nil {
		return registrationError(findErr)
	}
	return dErrors.New(dErrors.CodeConflict, "registration is "+string(current.Status))
}

func registrationError(err error) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "registration not found")
	}
	var de *dErrors.Error
	if errors.As(err, &de) {
		return err
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "registration store failure")
}
