package app

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sahel-erp/sahel-erp/internal/advances"
	"github.com/sahel-erp/sahel-erp/internal/attendance"
	"github.com/sahel-erp/sahel-erp/internal/audit"
	"github.com/sahel-erp/sahel-erp/internal/auth"
	"github.com/sahel-erp/sahel-erp/internal/observability"
	"github.com/sahel-erp/sahel-erp/internal/platform/httpx"
	"github.com/sahel-erp/sahel-erp/internal/rbac"
	"github.com/sahel-erp/sahel-erp/internal/roles"
	"github.com/sahel-erp/sahel-erp/internal/users"
	"github.com/sahel-erp/sahel-erp/jobs"
)

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

// Ping implements Pinger.
func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger             *slog.Logger
	Config             *Config
	AuthService        *auth.Service
	AuthHandler        *auth.Handler
	AttendanceHandler  *attendance.Handler
	ZoneHandler        *attendance.ZoneHandler
	UsersHandler       *users.Handler
	RolesHandler       *roles.Handler
	PermissionsHandler *rbac.PermissionsHandler
	AdvancesHandler    *advances.Handler
	AuditHandler       *audit.Handler
	JobHandler         *jobs.Handler
	Metrics            *observability.Metrics
	Health             map[string]Pinger
}

// NewRouter constructs the chi.Router with the API defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httpx.Problem(w, httpx.ProblemDetail{Title: "Not Found", Status: http.StatusNotFound, Msg: "Ressource introuvable"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		httpx.Problem(w, httpx.ProblemDetail{Title: "Method Not Allowed", Status: http.StatusMethodNotAllowed, Msg: "Méthode non autorisée"})
	})

	r.Get("/healthz", healthz(params.Health, params.Logger))
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}

	loginLimit := 10
	if params.Config != nil && params.Config.LoginRateLimitPerMinute > 0 {
		loginLimit = params.Config.LoginRateLimitPerMinute
	}
	r.Route("/auth", func(r chi.Router) {
		r.With(RateLimit(loginLimit)).Post("/login", params.AuthHandler.HandleLogin)
		params.AuthHandler.MountProtected(r)
	})

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireBearer(params.AuthService, params.Logger))
		r.Route("/attendance", params.AttendanceHandler.MountRoutes)
		r.Route("/work_locations", params.ZoneHandler.MountRoutes)
		r.Route("/users", params.UsersHandler.MountRoutes)
		r.Route("/roles", params.RolesHandler.MountRoutes)
		r.Route("/permissions", params.PermissionsHandler.MountRoutes)
		r.Route("/salary_advances", params.AdvancesHandler.MountRoutes)
		r.Route("/audit_logs", params.AuditHandler.MountRoutes)
	})

	return r
}

func healthz(deps map[string]Pinger, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		checks := make(map[string]string, len(deps))
		status := http.StatusOK
		for name, dep := range deps {
			if err := dep.Ping(ctx); err != nil {
				logger.Warn("health check failed", slog.String("dependency", name), slog.Any("error", err))
				checks[name] = "down"
				status = http.StatusServiceUnavailable
				continue
			}
			checks[name] = "ok"
		}
		state := "ok"
		if status != http.StatusOK {
			state = "degraded"
		}
		httpx.JSON(w, status, map[string]any{"status": state, "checks": checks})
	}
}
