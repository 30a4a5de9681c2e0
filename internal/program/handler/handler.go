package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	capacitymodels "reliefpass/internal/capacity/models"
	"reliefpass/internal/program/models"
	id "reliefpass/pkg/domain"
	"reliefpass/pkg/platform/httputil"
	request "reliefpass/pkg/platform/middleware/request"
)

// Service is the program registry as the HTTP layer uses it.
type Service interface {
	Create(ctx context.Context, req *models.CreateProgramRequest) (*models.Program, error)
	Get(ctx context.Context, programID id.ProgramID) (*models.Program, error)
	Open(ctx context.Context, programID id.ProgramID) (*models.Program, error)
	Close(ctx context.Context, programID id.ProgramID) (*models.Program, error)
	Cancel(ctx context.Context, programID id.ProgramID) (*models.Program, error)
	Reschedule(ctx context.Context, programID id.ProgramID, req *models.RescheduleRequest) (*models.Program, error)
}

// Capacity reports a program's ledgers.
type Capacity interface {
	Snapshot(ctx context.Context, programID id.ProgramID) ([]capacitymodels.Ledger, error)
}

type Handler struct {
	programs Service
	capacity Capacity
	logger   *slog.Logger
}

func New(programs Service, capacity Capacity, logger *slog.Logger) *Handler {
	return &Handler{programs: programs, capacity: capacity, logger: logger}
}

// Register mounts the public read routes.
func (h *Handler) Register(r chi.Router) {
	r.Get("/programs/{programID}", h.handleGet)
	r.Get("/programs/{programID}/capacity", h.handleCapacity)
}

// RegisterAdmin mounts program management. The caller wraps r with the
// admin token check.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Post("/programs", h.handleCreate)
	r.Post("/programs/{programID}/open", h.lifecycle("open", h.programs.Open))
	r.Post("/programs/{programID}/close", h.lifecycle("close", h.programs.Close))
	r.Post("/programs/{programID}/cancel", h.lifecycle("cancel", h.programs.Cancel))
	r.Put("/programs/{programID}/schedule", h.handleReschedule)
}

// capacityResponse lists both pools with what is still free.
type capacityResponse struct {
	ProgramID id.ProgramID   `json:"program_id"`
	Pools     []poolResponse `json:"pools"`
}

type poolResponse struct {
	capacitymodels.Ledger
	Available int `json:"available"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[models.CreateProgramRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	p, err := h.programs.Create(ctx, req)
	if err != nil {
		h.logger.WarnContext(ctx, "failed to create program",
			"error", err,
			"request_id", requestID,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, p)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	programID, err := httputil.PathID(r, "programID", id.ParseProgramID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	p, err := h.programs.Get(r.Context(), programID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, p)
}

func (h *Handler) handleCapacity(w http.ResponseWriter, r *http.Request) {
	programID, err := httputil.PathID(r, "programID", id.ParseProgramID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	ledgers, err := h.capacity.Snapshot(r.Context(), programID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	resp := capacityResponse{ProgramID: programID, Pools: make([]poolResponse, 0, len(ledgers))}
	for _, l := range ledgers {
		resp.Pools = append(resp.Pools, poolResponse{Ledger: l, Available: l.Available()})
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) lifecycle(action string, apply func(context.Context, id.ProgramID) (*models.Program, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		programID, err := httputil.PathID(r, "programID", id.ParseProgramID)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		p, err := apply(ctx, programID)
		if err != nil {
			h.logger.InfoContext(ctx, "program "+action+" refused",
				"program_id", programID,
				"error", err,
				"request_id", request.GetRequestID(ctx),
			)
			httputil.WriteError(w, err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, p)
	}
}

func (h *Handler) handleReschedule(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)
	programID, err := httputil.PathID(r, "programID", id.ParseProgramID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[models.RescheduleRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	p, err := h.programs.Reschedule(ctx, programID, req)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, p)
}
