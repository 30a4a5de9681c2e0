package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"reliefpass/internal/voucher/models"
	id "reliefpass/pkg/domain"
	dErrors "reliefpass/pkg/domain-errors"
	"reliefpass/pkg/platform/httputil"
	request "reliefpass/pkg/platform/middleware/request"
	"reliefpass/pkg/requestcontext"
)

// Service is the voucher issuer and redemption verifier as the HTTP layer
// uses it.
type Service interface {
	Issue(ctx context.Context, registrationID id.RegistrationID) (*models.Voucher, error)
	Resend(ctx context.Context, registrationID id.RegistrationID) (*models.Voucher, error)
	Redeem(ctx context.Context, req *models.RedeemRequest, staffID id.StaffID) (*models.Redemption, error)
	Lookup(ctx context.Context, token string) (*models.Lookup, error)
	Stats(ctx context.Context, programID id.ProgramID) (*models.Stats, error)
	Sweep(ctx context.Context, now time.Time) (int, error)
}

type Handler struct {
	vouchers Service
	logger   *slog.Logger
}

func New(vouchers Service, logger *slog.Logger) *Handler {
	return &Handler{vouchers: vouchers, logger: logger}
}

// RegisterStaff mounts the scanning routes. The caller wraps r with the
// staff bearer check.
func (h *Handler) RegisterStaff(r chi.Router) {
	r.Post("/redemptions", h.handleRedeem)
	r.Get("/vouchers/lookup", h.handleLookup)
}

// RegisterAdmin mounts issuance, reporting and the manual sweep trigger.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Post("/registrations/{registrationID}/voucher", h.handleIssue)
	r.Post("/registrations/{registrationID}/voucher/resend", h.handleResend)
	r.Get("/programs/{programID}/voucher-stats", h.handleStats)
	r.Post("/admin/sweeps", h.handleSweep)
}

// redemptionResponse tells staff why a scan was refused. A cancelled voucher
// carries when it was cancelled and the date it was due, so an expiry can be
// told apart from a withdrawal.
type redemptionResponse struct {
	Outcome       models.Outcome     `json:"outcome"`
	Reason        models.Outcome     `json:"reason,omitempty"`
	Voucher       *models.Voucher    `json:"voucher,omitempty"`
	ScanRecord    *models.ScanRecord `json:"scan_record,omitempty"`
	CancelledAt   *time.Time         `json:"cancelled_at,omitempty"`
	ScheduledDate *time.Time         `json:"scheduled_redemption_date,omitempty"`
	Expired       bool               `json:"expired,omitempty"`
}

type sweepResponse struct {
	Cancelled int `json:"cancelled"`
}

// redemptionStatus maps an outcome onto the scanner-facing status code.
func redemptionStatus(outcome models.Outcome) int {
	switch outcome {
	case models.OutcomeRedeemed:
		return http.StatusOK
	case models.OutcomeAlreadyRedeemed:
		return http.StatusConflict
	case models.OutcomeTokenNotFound:
		return http.StatusNotFound
	case models.OutcomeVoucherCancelled:
		return http.StatusGone
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) handleRedeem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)
	staffID := requestcontext.StaffID(ctx)
	if staffID.IsNil() {
		h.logger.ErrorContext(ctx, "staff ID missing from context despite auth middleware",
			"request_id", requestID,
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "staff identity is required"))
		return
	}

	req, ok := httputil.DecodeAndPrepare[models.RedeemRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	result, err := h.vouchers.Redeem(ctx, req, staffID)
	if err != nil {
		h.logger.ErrorContext(ctx, "redemption failed",
			"error", err,
			"request_id", requestID,
		)
		httputil.WriteError(w, err)
		return
	}

	resp := redemptionResponse{Outcome: result.Outcome, ScanRecord: result.ScanRecord}
	if result.Outcome == models.OutcomeRedeemed {
		resp.Voucher = result.Voucher
	} else {
		resp.Reason = result.Outcome
	}
	if result.Outcome == models.OutcomeVoucherCancelled && result.Voucher != nil {
		scheduled := result.Voucher.ScheduledRedemptionDate
		resp.ScheduledDate = &scheduled
		resp.CancelledAt = result.Voucher.CancelledAt
		resp.Expired = result.Voucher.CancelledAt != nil && !result.Voucher.CancelledAt.Before(scheduled)
	}
	httputil.WriteJSON(w, redemptionStatus(result.Outcome), resp)
}

func (h *Handler) handleLookup(w http.ResponseWriter, r *http.Request) {
	lookup, err := h.vouchers.Lookup(r.Context(), r.URL.Query().Get("token"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, lookup)
}

func (h *Handler) handleIssue(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	registrationID, err := httputil.PathID(r, "registrationID", id.ParseRegistrationID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	voucher, err := h.vouchers.Issue(ctx, registrationID)
	if err != nil {
		h.logger.InfoContext(ctx, "voucher not issued",
			"registration_id", registrationID,
			"error", err,
			"request_id", request.GetRequestID(ctx),
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, voucher)
}

func (h *Handler) handleResend(w http.ResponseWriter, r *http.Request) {
	registrationID, err := httputil.PathID(r, "registrationID", id.ParseRegistrationID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	voucher, err := h.vouchers.Resend(r.Context(), registrationID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusAccepted, voucher)
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	programID, err := httputil.PathID(r, "programID", id.ParseProgramID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	stats, err := h.vouchers.Stats(r.Context(), programID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, stats)
}

func (h *Handler) handleSweep(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	cancelled, err := h.vouchers.Sweep(ctx, requestcontext.Now(ctx))
	if err != nil {
		h.logger.ErrorContext(ctx, "manual sweep failed",
			"error", err,
			"request_id", request.GetRequestID(ctx),
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, sweepResponse{Cancelled: cancelled})
}
