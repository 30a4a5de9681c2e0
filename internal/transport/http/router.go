package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"reliefpass/internal/platform/metrics"
	"reliefpass/pkg/platform/httputil"
	"reliefpass/pkg/platform/middleware/admin"
	authmw "reliefpass/pkg/platform/middleware/auth"
	"reliefpass/pkg/platform/middleware/device"
	"reliefpass/pkg/platform/middleware/metadata"
	request "reliefpass/pkg/platform/middleware/request"
	"reliefpass/pkg/platform/middleware/requesttime"
)

// RouteGroups is implemented by each domain handler for the audiences it
// serves. A handler mounts nothing for audiences it has no routes for.
type (
	PublicRoutes interface{ Register(r chi.Router) }
	AdminRoutes  interface{ RegisterAdmin(r chi.Router) }
	StaffRoutes  interface{ RegisterStaff(r chi.Router) }
)

// HealthCheck reports whether a backing dependency is reachable.
type HealthCheck func(ctx context.Context) error

// Config carries everything NewRouter mounts.
type Config struct {
	Logger       *slog.Logger
	Metrics      *metrics.Metrics
	AdminToken   string
	StaffTokens  authmw.JWTValidator
	Public       []PublicRoutes
	Admin        []AdminRoutes
	Staff        []StaffRoutes
	HealthChecks map[string]HealthCheck
}

// NewRouter builds the chi router: request plumbing first, then the public
// routes, the admin-token group and the staff-bearer group.
func NewRouter(cfg Config) http.Handler {
	var observer request.LatencyObserver
	if cfg.Metrics != nil {
		observer = cfg.Metrics
	}

	r := chi.NewRouter()
	r.Use(request.RequestID)
	r.Use(request.Recovery(cfg.Logger))
	r.Use(request.Logger(cfg.Logger, observer))
	r.Use(requesttime.Middleware)
	r.Use(metadata.ClientMetadata)
	r.Use(device.Middleware)

	r.Get("/healthz", healthHandler(cfg.HealthChecks))
	r.Handle("/metrics", promhttp.Handler())

	for _, h := range cfg.Public {
		h.Register(r)
	}
	r.Group(func(r chi.Router) {
		r.Use(admin.RequireAdminToken(cfg.AdminToken, cfg.Logger))
		for _, h := range cfg.Admin {
			h.RegisterAdmin(r)
		}
	})
	r.Group(func(r chi.Router) {
		r.Use(authmw.RequireStaff(cfg.StaffTokens, cfg.Logger))
		for _, h := range cfg.Staff {
			h.RegisterStaff(r)
		}
	})
	return r
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func healthHandler(checks map[string]HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		resp := healthResponse{Status: "ok"}
		status := http.StatusOK
		if len(checks) > 0 {
			resp.Checks = make(map[string]string, len(checks))
		}
		for name, check := range checks {
			if err := check(ctx); err != nil {
				resp.Checks[name] = err.Error()
				resp.Status = "degraded"
				status = http.StatusServiceUnavailable
				continue
			}
			resp.Checks[name] = "ok"
		}
		httputil.WriteJSON(w, status, resp)
	}
}
