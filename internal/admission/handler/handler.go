package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"reliefpass/internal/admission/models"
	id "reliefpass/pkg/domain"
	"reliefpass/pkg/platform/httputil"
	request "reliefpass/pkg/platform/middleware/request"
)

// Service is the admission controller as the HTTP layer uses it.
type Service interface {
	Enroll(ctx context.Context, req *models.EnrollRequest) (*models.Enrollment, error)
	Approve(ctx context.Context, registrationID id.RegistrationID) (*models.Enrollment, error)
	Reject(ctx context.Context, registrationID id.RegistrationID) (*models.Registration, error)
	Withdraw(ctx context.Context, registrationID id.RegistrationID) (*models.Registration, error)
	SetCeiling(ctx context.Context, programID id.ProgramID, kind id.Kind, newCeiling int) ([]models.Eviction, error)
	Get(ctx context.Context, registrationID id.RegistrationID) (*models.Registration, error)
	ListByProgram(ctx context.Context, programID id.ProgramID) ([]*models.Registration, error)
	ListByParticipant(ctx context.Context, participantID id.ParticipantID) ([]*models.History, error)
}

type Handler struct {
	admission Service
	logger    *slog.Logger
}

func New(admission Service, logger *slog.Logger) *Handler {
	return &Handler{admission: admission, logger: logger}
}

// Register mounts the participant-facing routes.
func (h *Handler) Register(r chi.Router) {
	r.Post("/programs/{programID}/registrations", h.handleEnroll)
	r.Get("/registrations/{registrationID}", h.handleGet)
	r.Post("/registrations/{registrationID}/withdraw", h.handleWithdraw)
}

// RegisterAdmin mounts review and capacity management.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Get("/programs/{programID}/registrations", h.handleList)
	r.Post("/registrations/{registrationID}/approve", h.handleApprove)
	r.Post("/registrations/{registrationID}/reject", h.handleReject)
	r.Put("/admin/programs/{programID}/ceilings/{kind}", h.handleSetCeiling)
}

// RegisterStaff mounts the gate staff's view of a participant.
func (h *Handler) RegisterStaff(r chi.Router) {
	r.Get("/participants/{participantID}/registrations", h.handleParticipantHistory)
}

type evictionsResponse struct {
	Evicted []models.Eviction `json:"evicted"`
}

type registrationsResponse struct {
	Registrations []*models.Registration `json:"registrations"`
}

func (h *Handler) handleEnroll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)
	programID, err := httputil.PathID(r, "programID", id.ParseProgramID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[models.EnrollRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	req.ProgramID = programID

	enrollment, err := h.admission.Enroll(ctx, req)
	if err != nil {
		h.logger.InfoContext(ctx, "enrollment refused",
			"program_id", programID,
			"error", err,
			"request_id", requestID,
		)
		httputil.WriteError(w, err)
		return
	}
	status := http.StatusOK
	if enrollment.Created {
		status = http.StatusCreated
	}
	httputil.WriteJSON(w, status, enrollment)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	registrationID, err := httputil.PathID(r, "registrationID", id.ParseRegistrationID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	reg, err := h.admission.Get(r.Context(), registrationID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, reg)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	programID, err := httputil.PathID(r, "programID", id.ParseProgramID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	regs, err := h.admission.ListByProgram(r.Context(), programID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, registrationsResponse{Registrations: regs})
}

type historyResponse struct {
	Registrations []*models.History `json:"registrations"`
}

func (h *Handler) handleParticipantHistory(w http.ResponseWriter, r *http.Request) {
	participantID, err := httputil.PathID(r, "participantID", id.ParseParticipantID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	history, err := h.admission.ListByParticipant(r.Context(), participantID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, historyResponse{Registrations: history})
}

func (h *Handler) handleApprove(w http.ResponseWriter, r *http.Request) {
	registrationID, err := httputil.PathID(r, "registrationID", id.ParseRegistrationID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	enrollment, err := h.admission.Approve(r.Context(), registrationID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, enrollment)
}

func (h *Handler) handleReject(w http.ResponseWriter, r *http.Request) {
	h.change(w, r, h.admission.Reject)
}

func (h *Handler) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	h.change(w, r, h.admission.Withdraw)
}

func (h *Handler) change(w http.ResponseWriter, r *http.Request, apply func(context.Context, id.RegistrationID) (*models.Registration, error)) {
	registrationID, err := httputil.PathID(r, "registrationID", id.ParseRegistrationID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	reg, err := apply(r.Context(), registrationID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, reg)
}

func (h *Handler) handleSetCeiling(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)
	programID, err := httputil.PathID(r, "programID", id.ParseProgramID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	kind, err := httputil.PathID(r, "kind", id.ParseKind)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[models.SetCeilingRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	evicted, err := h.admission.SetCeiling(ctx, programID, kind, *req.Ceiling)
	if err != nil {
		h.logger.WarnContext(ctx, "ceiling change refused",
			"program_id", programID,
			"kind", kind,
			"error", err,
			"request_id", requestID,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, evictionsResponse{Evicted: evicted})
}
