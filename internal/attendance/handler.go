package attendance

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/sahel-erp/sahel-erp/internal/platform/httpx"
	"github.com/sahel-erp/sahel-erp/internal/rbac"
	"github.com/sahel-erp/sahel-erp/internal/shared"
)

const (
	ownHistoryPerPage   = 10
	adminHistoryPerPage = 20
)

// Handler exposes attendance endpoints. A bearer principal is expected.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, rbac: rbac}
}

// MountRoutes registers attendance routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.ownHistory)
	r.Post("/check_in", h.checkIn)
	r.Post("/check_out", h.checkOut)
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAdmin())
		r.Get("/stats/today", h.todayStats)
		r.Get("/all", h.allHistory)
		r.Get("/{user_id}", h.userHistory)
	})
}

func (h *Handler) checkIn(w http.ResponseWriter, r *http.Request) {
	principal, _ := shared.PrincipalFromContext(r.Context())
	var in CheckInInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	result, err := h.service.CheckIn(r.Context(), principal.UserID, in)
	if err != nil {
		h.fail(w, "check in", principal.UserID, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"msg":     "Pointage enregistré à " + result.Zone.Name + ".",
		"data":    result,
	})
}

func (h *Handler) checkOut(w http.ResponseWriter, r *http.Request) {
	principal, _ := shared.PrincipalFromContext(r.Context())
	var in CheckOutInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	result, err := h.service.CheckOut(r.Context(), principal.UserID, in)
	if err != nil {
		h.fail(w, "check out", principal.UserID, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"success":     true,
		"msg":         "Pointage de sortie enregistré avec succès",
		"data":        result,
		"total_hours": result.TotalHours,
	})
}

func (h *Handler) ownHistory(w http.ResponseWriter, r *http.Request) {
	principal, _ := shared.PrincipalFromContext(r.Context())
	h.history(w, r, principal.UserID, ownHistoryPerPage, "data")
}

func (h *Handler) allHistory(w http.ResponseWriter, r *http.Request) {
	h.history(w, r, 0, adminHistoryPerPage, "attendances")
}

func (h *Handler) userHistory(w http.ResponseWriter, r *http.Request) {
	userID, err := httpx.PathID(r, "user_id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.history(w, r, userID, adminHistoryPerPage, "attendances")
}

func (h *Handler) history(w http.ResponseWriter, r *http.Request, userID int64, perPage int, key string) {
	day, err := ParseDay(r.URL.Query().Get("date"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	page := shared.PageFromRequest(r, perPage)
	entries, pagination, err := h.service.History(r.Context(), HistoryFilter{UserID: userID, Date: day, Page: page})
	if err != nil {
		h.fail(w, "attendance history", userID, err)
		return
	}
	body := map[string]any{
		"success":    true,
		key:          entries,
		"page":       pagination.Page,
		"per_page":   pagination.PerPage,
		"pages":      pagination.TotalPages,
		"total":      pagination.Total,
		"pagination": pagination,
	}
	if userID != 0 {
		body["user_id"] = userID
	}
	httpx.JSON(w, http.StatusOK, body)
}

func (h *Handler) todayStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.TodayStats(r.Context())
	if err != nil {
		h.fail(w, "attendance stats", 0, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"date":     stats.Date,
		"presents": stats.Presents,
		"absents":  stats.Absents,
		"retards":  stats.Retards,
		"count":    stats.Count,
	})
}

func (h *Handler) fail(w http.ResponseWriter, op string, userID int64, err error) {
	if status, _ := httpx.StatusFor(err); status >= http.StatusInternalServerError {
		h.logger.Error(op, slog.Int64("user_id", userID), slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}

// ZoneHandler exposes /work_locations.
type ZoneHandler struct {
	logger    *slog.Logger
	service   *Service
	rbac      rbac.Middleware
	validator *validator.Validate
}

// NewZoneHandler builds ZoneHandler instance.
func NewZoneHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *ZoneHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ZoneHandler{logger: logger, service: service, rbac: rbac, validator: httpx.NewValidator()}
}

// MountRoutes registers zone routes.
func (h *ZoneHandler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermWorkLocations))
		r.Post("/", h.create)
		r.Patch("/{id}", h.patch)
		r.Delete("/{id}", h.delete)
	})
}

func (h *ZoneHandler) list(w http.ResponseWriter, r *http.Request) {
	zones, err := h.service.ListZones(r.Context(), r.URL.Query().Get("all") == "1")
	if err != nil {
		h.logger.Error("list zones", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, zones)
}

func (h *ZoneHandler) create(w http.ResponseWriter, r *http.Request) {
	var in ZoneInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := httpx.ValidateStruct(h.validator, in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	actor, _ := shared.PrincipalFromContext(r.Context())
	zone, err := h.service.CreateZone(r.Context(), actor.UserID, in)
	if err != nil {
		if status, _ := httpx.StatusFor(err); status >= http.StatusInternalServerError {
			h.logger.Error("create zone", slog.Any("error", err))
		}
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"success": true, "msg": "Zone de travail ajoutée avec succès", "zone": zone})
}

func (h *ZoneHandler) patch(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var in ZonePatch
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := httpx.ValidateStruct(h.validator, in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	actor, _ := shared.PrincipalFromContext(r.Context())
	zone, err := h.service.SetZoneActive(r.Context(), actor.UserID, id, *in.IsActive)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"success": true, "zone": zone})
}

func (h *ZoneHandler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	actor, _ := shared.PrincipalFromContext(r.Context())
	if err := h.service.DeleteZone(r.Context(), actor.UserID, id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.Message(w, http.StatusOK, "Zone de travail supprimée avec succès")
}
