// Package service issues vouchers, verifies them at the handout point and
// expires the ones nobody redeemed.
package service

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks -exclude_interfaces=VoucherStore,ScanStore,RegistrationStore,ProgramReader,SlotReleaser

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	admissionmodels "reliefpass/internal/admission/models"
	"reliefpass/internal/notify"
	programmodels "reliefpass/internal/program/models"
	"reliefpass/internal/voucher/metrics"
	"reliefpass/internal/voucher/models"
	id "reliefpass/pkg/domain"
	dErrors "reliefpass/pkg/domain-errors"
	"reliefpass/pkg/platform/sentinel"
	"reliefpass/pkg/platform/tx"
	"reliefpass/pkg/requestcontext"
)

// tokenBytes gives 128 bits of entropy.
const tokenBytes = 16

const defaultSweepBatch = 200

var tracer = otel.Tracer("reliefpass/voucher")

type VoucherStore interface {
	Create(ctx context.Context, v *models.Voucher) error
	FindByID(ctx context.Context, voucherID id.VoucherID) (*models.Voucher, error)
	FindByToken(ctx context.Context, token string) (*models.Voucher, error)
	FindByRegistration(ctx context.Context, registrationID id.RegistrationID) (*models.Voucher, error)
	Complete(ctx context.Context, voucherID id.VoucherID, staffID id.StaffID, at time.Time) (*models.Voucher, error)
	Cancel(ctx context.Context, voucherID id.VoucherID, at time.Time) (*models.Voucher, error)
	ListExpired(ctx context.Context, cutoff time.Time, after models.ExpiryCursor, limit int) ([]*models.Voucher, error)
	Stats(ctx context.Context, programID id.ProgramID) (*models.Stats, error)
	DeleteByRegistration(ctx context.Context, registrationID id.RegistrationID) error
}

type ScanStore interface {
	Create(ctx context.Context, record *models.ScanRecord) error
	FindByVoucher(ctx context.Context, voucherID id.VoucherID) (*models.ScanRecord, error)
	DeleteByVoucher(ctx context.Context, voucherID id.VoucherID) error
}

// RegistrationStore is the slice of the admission store a voucher needs.
type RegistrationStore interface {
	FindByID(ctx context.Context, registrationID id.RegistrationID) (*admissionmodels.Registration, error)
	Transition(ctx context.Context, registrationID id.RegistrationID, from []admissionmodels.Status, next admissionmodels.Status, now time.Time) (*admissionmodels.Registration, error)
}

type ProgramReader interface {
	FindByID(ctx context.Context, programID id.ProgramID) (*programmodels.Program, error)
}

// SlotReleaser gives a slot back to the capacity ledger.
type SlotReleaser interface {
	ReleaseSlot(ctx context.Context, programID id.ProgramID, kind id.Kind, slot int) error
}

// Notifier hands messages to the notification collaborator. Implementations
// must not block on delivery.
type Notifier interface {
	SendVoucher(ctx context.Context, n notify.VoucherIssued) error
	SendRedemptionConfirmation(ctx context.Context, n notify.RedemptionConfirmed) error
}

// Renderer turns a token into an image.
type Renderer interface {
	Render(token string) ([]byte, error)
}

// RedemptionCache remembers completed redemptions by token.
type RedemptionCache interface {
	Get(ctx context.Context, token string) (*models.Redemption, bool, error)
	Put(ctx context.Context, token string, r *models.Redemption) error
}

type Service struct {
	vouchers      VoucherStore
	scans         ScanStore
	registrations RegistrationStore
	programs      ProgramReader
	slots         SlotReleaser
	tx            tx.Runner
	notifier      Notifier
	renderer      Renderer
	cache         RedemptionCache
	batchSize     int
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

func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

func WithRenderer(r Renderer) Option {
	return func(s *Service) { s.renderer = r }
}

func WithCache(c RedemptionCache) Option {
	return func(s *Service) { s.cache = c }
}

func WithSweepBatchSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

func New(
	vouchers VoucherStore,
	scans ScanStore,
	registrations RegistrationStore,
	programs ProgramReader,
	slots SlotReleaser,
	runner tx.Runner,
	opts ...Option,
) *Service {
	s := &Service{
		vouchers:      vouchers,
		scans:         scans,
		registrations: registrations,
		programs:      programs,
		slots:         slots,
		tx:            runner,
		batchSize:     defaultSweepBatch,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Issue creates the voucher of an approved registration and queues its
// delivery once the voucher is committed. Call it outside any surrounding
// transaction so the notification never describes a rolled-back voucher.
func (s *Service) Issue(ctx context.Context, registrationID id.RegistrationID) (*models.Voucher, error) {
	ctx, span := tracer.Start(ctx, "voucher.Issue")
	defer span.End()
	span.SetAttributes(attribute.String("registration_id", registrationID.String()))

	var (
		voucher *models.Voucher
		reg     *admissionmodels.Registration
		program *programmodels.Program
	)
	now := requestcontext.Now(ctx)
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if _, err := s.vouchers.FindByRegistration(txCtx, registrationID); err == nil {
			return dErrors.New(dErrors.CodeAlreadyIssued, "a voucher was already issued for this registration")
		} else if !errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to check existing voucher")
		}

		var err error
		reg, err = s.registrations.FindByID(txCtx, registrationID)
		if err != nil {
			return registrationError(err)
		}
		if reg.Status != admissionmodels.StatusApproved {
			return dErrors.New(dErrors.CodeRegistrationNotApproved, "registration is "+string(reg.Status))
		}
		program, err = s.programs.FindByID(txCtx, reg.ProgramID)
		if err != nil {
			return programError(err)
		}

		token, err := newToken()
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to generate token")
		}
		voucher, err = models.NewVoucher(reg.ID, reg.ProgramID, token, program.ScheduledAt, now)
		if err != nil {
			return err
		}
		voucher.ImageRef = s.render(ctx, token)

		if err := s.vouchers.Create(txCtx, voucher); err != nil {
			if errors.Is(err, sentinel.ErrAlreadyUsed) {
				return dErrors.New(dErrors.CodeAlreadyIssued, "a voucher was already issued for this registration")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to store voucher")
		}
		return nil
	})
	if err != nil {
		span.SetStatus(codes.Error, string(dErrors.CodeOf(err)))
		return nil, err
	}

	s.metrics.IncrementIssued(string(reg.Kind))
	s.logger.InfoContext(ctx, "voucher issued",
		"voucher_id", voucher.ID,
		"registration_id", reg.ID,
		"program_id", reg.ProgramID,
		"request_id", requestcontext.RequestID(ctx),
	)
	if err := s.dispatchVoucher(ctx, voucher, reg, program); err != nil {
		s.logger.WarnContext(ctx, "voucher notification not queued",
			"voucher_id", voucher.ID,
			"error", err,
		)
	}
	return voucher, nil
}

// Resend queues the voucher notification again for a still-pending voucher.
func (s *Service) Resend(ctx context.Context, registrationID id.RegistrationID) (*models.Voucher, error) {
	voucher, err := s.vouchers.FindByRegistration(ctx, registrationID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "no voucher issued for this registration")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load voucher")
	}
	if voucher.Status != models.StatusPending {
		return nil, dErrors.New(dErrors.CodeConflict, "voucher is "+string(voucher.Status))
	}
	reg, err := s.registrations.FindByID(ctx, registrationID)
	if err != nil {
		return nil, registrationError(err)
	}
	program, err := s.programs.FindByID(ctx, voucher.ProgramID)
	if err != nil {
		return nil, programError(err)
	}
	if err := s.dispatchVoucher(ctx, voucher, reg, program); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to queue notification")
	}
	return voucher, nil
}

// CancelForRegistration cancels the registration's pending voucher. It is a
// no-op without a voucher and idempotent for a cancelled one. A completed
// voucher cannot be taken back, so it aborts the caller's transaction.
func (s *Service) CancelForRegistration(ctx context.Context, registrationID id.RegistrationID) (*models.Voucher, error) {
	var cancelled *models.Voucher
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		voucher, err := s.vouchers.FindByRegistration(txCtx, registrationID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return nil
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load voucher")
		}
		switch voucher.Status {
		case models.StatusCancelled:
			cancelled = voucher
			return nil
		case models.StatusCompleted:
			return s.completedVoucherViolation(ctx, voucher)
		}

		cancelled, err = s.vouchers.Cancel(txCtx, voucher.ID, requestcontext.Now(ctx))
		if errors.Is(err, sentinel.ErrInvalidState) {
			current, findErr := s.vouchers.FindByID(txCtx, voucher.ID)
			if findErr != nil {
				return dErrors.Wrap(findErr, dErrors.CodeInternal, "failed to reload voucher")
			}
			if current.Status == models.StatusCompleted {
				return s.completedVoucherViolation(ctx, current)
			}
			cancelled = current
			return nil
		}
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to cancel voucher")
		}
		s.metrics.IncrementCancelled("admission")
		return nil
	})
	if err != nil {
		return nil, err
	}
	return cancelled, nil
}

func (s *Service) completedVoucherViolation(ctx context.Context, voucher *models.Voucher) error {
	s.logger.ErrorContext(ctx, "refusing to cancel a redeemed voucher",
		"voucher_id", voucher.ID,
		"registration_id", voucher.RegistrationID,
		"request_id", requestcontext.RequestID(ctx),
	)
	return dErrors.New(dErrors.CodeInvariantViolation, "voucher was already redeemed")
}

// Discard deletes the registration's voucher and its scan record. The
// admission cascade calls it after CancelForRegistration and before it
// deletes the registration itself.
func (s *Service) Discard(ctx context.Context, registrationID id.RegistrationID) error {
	return s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		voucher, err := s.vouchers.FindByRegistration(txCtx, registrationID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return nil
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load voucher")
		}
		if err := s.scans.DeleteByVoucher(txCtx, voucher.ID); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete scan records")
		}
		if err := s.vouchers.DeleteByRegistration(txCtx, registrationID); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete voucher")
		}
		return nil
	})
}

// ForRegistration returns the registration's voucher with its scan history,
// or nil when no voucher was issued.
func (s *Service) ForRegistration(ctx context.Context, registrationID id.RegistrationID) (*models.Lookup, error) {
	voucher, err := s.vouchers.FindByRegistration(ctx, registrationID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, nil
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load voucher")
	}
	return s.withScans(ctx, voucher)
}

// Redeem verifies a scanned token. Expected rejections come back as an
// Outcome, not an error; errors mean bad input or a failing store.
func (s *Service) Redeem(ctx context.Context, req *models.RedeemRequest, staffID id.StaffID) (*models.Redemption, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if staffID.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "staff identity is required")
	}

	ctx, span := tracer.Start(ctx, "voucher.Redeem")
	defer span.End()

	if s.cache != nil {
		cached, ok, err := s.cache.Get(ctx, req.Token)
		if err != nil {
			s.logger.WarnContext(ctx, "redemption cache unavailable", "error", err)
		} else if ok {
			s.metrics.IncrementRedemption(string(cached.Outcome), "cache")
			span.SetAttributes(attribute.String("outcome", string(cached.Outcome)), attribute.Bool("cached", true))
			return cached, nil
		}
	}

	var (
		result *models.Redemption
		reg    *admissionmodels.Registration
	)
	now := requestcontext.Now(ctx)
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		voucher, err := s.vouchers.FindByToken(txCtx, req.Token)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				result = &models.Redemption{Outcome: models.OutcomeTokenNotFound}
				return nil
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up token")
		}

		switch voucher.Status {
		case models.StatusCancelled:
			result = &models.Redemption{Outcome: models.OutcomeVoucherCancelled, Voucher: voucher}
			return nil
		case models.StatusCompleted:
			result, err = s.alreadyRedeemed(txCtx, voucher)
			return err
		}

		completed, err := s.vouchers.Complete(txCtx, voucher.ID, staffID, now)
		if errors.Is(err, sentinel.ErrInvalidState) {
			// lost the race to another scan or to the sweeper
			current, findErr := s.vouchers.FindByID(txCtx, voucher.ID)
			if findErr != nil {
				return dErrors.Wrap(findErr, dErrors.CodeInternal, "failed to reload voucher")
			}
			if current.Status == models.StatusCancelled {
				result = &models.Redemption{Outcome: models.OutcomeVoucherCancelled, Voucher: current}
				return nil
			}
			result, err = s.alreadyRedeemed(txCtx, current)
			return err
		}
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to complete voucher")
		}

		record := &models.ScanRecord{
			ID:        id.NewScanID(),
			VoucherID: completed.ID,
			StaffID:   staffID,
			ScannedAt: now,
			Note:      req.Note,
			Device:    requestcontext.Device(ctx),
		}
		if err := s.scans.Create(txCtx, record); err != nil {
			if errors.Is(err, sentinel.ErrAlreadyUsed) {
				return dErrors.New(dErrors.CodeInvariantViolation, "scan record already exists for a pending voucher")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record scan")
		}

		reg, err = s.registrations.Transition(txCtx, completed.RegistrationID,
			[]admissionmodels.Status{admissionmodels.StatusApproved}, admissionmodels.StatusClaimed, now)
		if err != nil {
			if errors.Is(err, sentinel.ErrInvalidState) || errors.Is(err, sentinel.ErrNotFound) {
				s.logger.ErrorContext(ctx, "voucher redeemed for a registration that is not approved",
					"voucher_id", completed.ID,
					"registration_id", completed.RegistrationID,
				)
				return dErrors.New(dErrors.CodeInvariantViolation, "registration is not claimable")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to claim registration")
		}
		result = &models.Redemption{Outcome: models.OutcomeRedeemed, Voucher: completed, ScanRecord: record}
		return nil
	})
	if err != nil {
		span.SetStatus(codes.Error, string(dErrors.CodeOf(err)))
		return nil, err
	}

	span.SetAttributes(attribute.String("outcome", string(result.Outcome)))
	s.metrics.IncrementRedemption(string(result.Outcome), "store")
	s.logRedemption(ctx, result, staffID)

	switch result.Outcome {
	case models.OutcomeRedeemed:
		s.confirm(ctx, result.Voucher, reg)
		s.remember(ctx, req.Token, result)
	case models.OutcomeAlreadyRedeemed:
		s.remember(ctx, req.Token, result)
	}
	return result, nil
}

func (s *Service) alreadyRedeemed(ctx context.Context, voucher *models.Voucher) (*models.Redemption, error) {
	record, err := s.scans.FindByVoucher(ctx, voucher.ID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeInvariantViolation, "completed voucher has no scan record")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load scan record")
	}
	return &models.Redemption{Outcome: models.OutcomeAlreadyRedeemed, Voucher: voucher, ScanRecord: record}, nil
}

func (s *Service) logRedemption(ctx context.Context, r *models.Redemption, staffID id.StaffID) {
	attrs := []any{
		"outcome", r.Outcome,
		"staff_id", staffID,
		"client_ip", requestcontext.ClientIP(ctx),
		"request_id", requestcontext.RequestID(ctx),
	}
	if r.Voucher != nil {
		attrs = append(attrs, "voucher_id", r.Voucher.ID)
	}
	switch r.Outcome {
	case models.OutcomeTokenNotFound:
		s.logger.WarnContext(ctx, "redemption with unknown token", attrs...)
	case models.OutcomeRedeemed:
		s.logger.InfoContext(ctx, "voucher redeemed", attrs...)
	default:
		s.logger.InfoContext(ctx, "redemption rejected", attrs...)
	}
}

func (s *Service) remember(ctx context.Context, token string, r *models.Redemption) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Put(ctx, token, r); err != nil {
		s.logger.WarnContext(ctx, "failed to cache redemption", "error", err)
	}
}

// Lookup is the read-only staff view of a token. Unknown tokens fail closed.
func (s *Service) Lookup(ctx context.Context, token string) (*models.Lookup, error) {
	if token == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "token is required")
	}
	voucher, err := s.vouchers.FindByToken(ctx, token)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "voucher not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up token")
	}
	return s.withScans(ctx, voucher)
}

func (s *Service) withScans(ctx context.Context, voucher *models.Voucher) (*models.Lookup, error) {
	lookup := &models.Lookup{Voucher: voucher, Scans: []*models.ScanRecord{}}
	record, err := s.scans.FindByVoucher(ctx, voucher.ID)
	switch {
	case err == nil:
		lookup.Scans = append(lookup.Scans, record)
	case !errors.Is(err, sentinel.ErrNotFound):
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load scan records")
	}
	return lookup, nil
}

// Stats summarises a program's vouchers.
func (s *Service) Stats(ctx context.Context, programID id.ProgramID) (*models.Stats, error) {
	if _, err := s.programs.FindByID(ctx, programID); err != nil {
		return nil, programError(err)
	}
	stats, err := s.vouchers.Stats(ctx, programID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to compute voucher stats")
	}
	return stats, nil
}

// Sweep cancels every PENDING voucher whose redemption date is before now,
// one transaction per voucher. A voucher that left PENDING in the meantime
// is skipped; a failing voucher is logged and the sweep pages past it, so it
// is retried on the next sweep rather than this one.
func (s *Service) Sweep(ctx context.Context, now time.Time) (int, error) {
	ctx, span := tracer.Start(ctx, "voucher.Sweep")
	defer span.End()
	ctx = requestcontext.WithTime(ctx, now)
	started := time.Now()

	var (
		cancelled, failed int
		cursor            models.ExpiryCursor
	)
	for {
		if err := ctx.Err(); err != nil {
			return cancelled, dErrors.Wrap(err, dErrors.CodeTimeout, "sweep interrupted")
		}
		batch, err := s.vouchers.ListExpired(ctx, now, cursor, s.batchSize)
		if err != nil {
			span.SetStatus(codes.Error, "list expired")
			return cancelled, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list expired vouchers")
		}

		for _, voucher := range batch {
			cursor = models.CursorAt(voucher)
			err := s.expire(ctx, voucher, now)
			switch {
			case err == nil:
				cancelled++
			case errors.Is(err, errSkipped):
			default:
				failed++
				s.logger.ErrorContext(ctx, "failed to expire voucher",
					"voucher_id", voucher.ID,
					"registration_id", voucher.RegistrationID,
					"error", err,
				)
			}
		}
		if len(batch) < s.batchSize {
			break
		}
	}

	s.metrics.ObserveSweep(cancelled, failed, time.Since(started).Seconds())
	span.SetAttributes(attribute.Int("cancelled", cancelled), attribute.Int("failed", failed))
	s.logger.InfoContext(ctx, "sweep finished",
		"cancelled", cancelled,
		"failed", failed,
		"cutoff", now,
	)
	return cancelled, nil
}

var errSkipped = errors.New("voucher already left pending")

// expire checks the registration before it touches the voucher, so a
// voucher whose registration is no longer open is refused with nothing
// changed.
func (s *Service) expire(ctx context.Context, voucher *models.Voucher, now time.Time) error {
	return s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		reg, err := s.registrations.FindByID(txCtx, voucher.RegistrationID)
		if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
			return fmt.Errorf("load registration: %w", err)
		}
		if err != nil || (reg.Status != admissionmodels.StatusPending && reg.Status != admissionmodels.StatusApproved) {
			current, findErr := s.vouchers.FindByID(txCtx, voucher.ID)
			if errors.Is(findErr, sentinel.ErrNotFound) || (findErr == nil && current.Status != models.StatusPending) {
				return errSkipped
			}
			if findErr != nil {
				return fmt.Errorf("reload voucher: %w", findErr)
			}
			return dErrors.New(dErrors.CodeInvariantViolation, "pending voucher belongs to a registration that is not open")
		}

		if _, err := s.vouchers.Cancel(txCtx, voucher.ID, now); err != nil {
			if errors.Is(err, sentinel.ErrInvalidState) || errors.Is(err, sentinel.ErrNotFound) {
				return errSkipped
			}
			return fmt.Errorf("cancel voucher: %w", err)
		}
		reg, err = s.registrations.Transition(txCtx, voucher.RegistrationID,
			[]admissionmodels.Status{admissionmodels.StatusPending, admissionmodels.StatusApproved},
			admissionmodels.StatusCanceled, now)
		if err != nil {
			if errors.Is(err, sentinel.ErrInvalidState) || errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeInvariantViolation, "pending voucher belongs to a registration that is not open")
			}
			return fmt.Errorf("cancel registration: %w", err)
		}
		if err := s.slots.ReleaseSlot(txCtx, reg.ProgramID, reg.Kind, reg.Slot); err != nil {
			return fmt.Errorf("release slot: %w", err)
		}
		s.metrics.IncrementCancelled("expired")
		return nil
	})
}

func (s *Service) render(ctx context.Context, token string) string {
	if s.renderer == nil {
		return ""
	}
	png, err := s.renderer.Render(token)
	if err != nil {
		s.logger.WarnContext(ctx, "voucher image not rendered", "error", err)
		return ""
	}
	return notify.DataURL(png)
}

func (s *Service) dispatchVoucher(ctx context.Context, v *models.Voucher, reg *admissionmodels.Registration, program *programmodels.Program) error {
	if s.notifier == nil {
		return nil
	}
	return s.notifier.SendVoucher(ctx, notify.VoucherIssued{
		RegistrationID: reg.ID.String(),
		Contact:        reg.Contact,
		Token:          v.Token,
		Image:          v.ImageRef,
		ProgramTitle:   program.Title,
		Location:       program.Location,
		ScheduledDate:  v.ScheduledRedemptionDate,
	})
}

// confirm queues the redemption confirmation. Failures never affect the
// redemption.
func (s *Service) confirm(ctx context.Context, v *models.Voucher, reg *admissionmodels.Registration) {
	if s.notifier == nil || reg == nil {
		return
	}
	title := ""
	if program, err := s.programs.FindByID(ctx, v.ProgramID); err == nil {
		title = program.Title
	}
	var redeemedAt time.Time
	if v.RedeemedAt != nil {
		redeemedAt = *v.RedeemedAt
	}
	err := s.notifier.SendRedemptionConfirmation(ctx, notify.RedemptionConfirmed{
		RegistrationID: reg.ID.String(),
		Contact:        reg.Contact,
		ProgramTitle:   title,
		RedeemedAt:     redeemedAt,
	})
	if err != nil {
		s.logger.WarnContext(ctx, "redemption confirmation not queued",
			"voucher_id", v.ID,
			"error", err,
		)
	}
}

func newToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func registrationError(err error) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "registration not found")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load registration")
}

func programError(err error) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "program not found")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load program")
}
