package advances

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/sahel-erp/sahel-erp/internal/platform/httpx"
	"github.com/sahel-erp/sahel-erp/internal/rbac"
	"github.com/sahel-erp/sahel-erp/internal/shared"
)

// IdempotencyHeader carries the client's replay key on creation.
const IdempotencyHeader = "Idempotency-Key"

// Handler exposes /salary_advances. A bearer principal is expected.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	rbac      rbac.Middleware
	validator *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, rbac: rbac, validator: httpx.NewValidator()}
}

// MountRoutes registers salary advance routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{id}", h.detail)
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermSalaryAdvances))
		r.Post("/{id}/approve", h.approve)
		r.Post("/{id}/refuse", h.refuse)
	})
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var in CreateInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := httpx.ValidateStruct(h.validator, in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	principal, _ := shared.PrincipalFromContext(r.Context())
	advance, err := h.service.Create(r.Context(), principal.UserID, r.Header.Get(IdempotencyHeader), in)
	if err != nil {
		h.fail(w, "create salary advance", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"success": true, "msg": "Demande d'avance envoyée", "advance": advance})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	principal, _ := shared.PrincipalFromContext(r.Context())
	isAdmin, err := h.rbac.Service.IsAdmin(r.Context(), principal.UserID)
	if err != nil {
		h.fail(w, "resolve admin", err)
		return
	}
	advances, err := h.service.List(r.Context(), principal.UserID, isAdmin)
	if err != nil {
		h.fail(w, "list salary advances", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"success": true, "advances": advances})
}

func (h *Handler) detail(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	principal, _ := shared.PrincipalFromContext(r.Context())
	canSeeAll, err := h.rbac.Service.HasPermission(r.Context(), principal.UserID, shared.PermSalaryAdvances)
	if err != nil {
		h.fail(w, "resolve permission", err)
		return
	}
	detail, err := h.service.Detail(r.Context(), principal.UserID, canSeeAll, id)
	if err != nil {
		h.fail(w, "get salary advance", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"success": true, "advance": detail.Advance, "history": detail.History})
}

func (h *Handler) approve(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, Approve)
}

func (h *Handler) refuse(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, Refuse)
}

func (h *Handler) decide(w http.ResponseWriter, r *http.Request, d Decision) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var in DecisionInput
	if r.ContentLength != 0 {
		if err := httpx.DecodeJSON(r, &in); err != nil {
			httpx.RespondError(w, err)
			return
		}
		if err := httpx.ValidateStruct(h.validator, in); err != nil {
			httpx.RespondError(w, err)
			return
		}
	}
	principal, _ := shared.PrincipalFromContext(r.Context())
	var advance Advance
	if d == Approve {
		advance, err = h.service.Approve(r.Context(), principal.UserID, id, in)
	} else {
		advance, err = h.service.Refuse(r.Context(), principal.UserID, id, in)
	}
	if err != nil {
		h.fail(w, "decide salary advance", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"success": true, "msg": "Avance " + d.Label, "advance": advance})
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	if status, _ := httpx.StatusFor(err); status >= http.StatusInternalServerError {
		h.logger.Error(op, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}
