package users

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/sahel-erp/sahel-erp/internal/platform/httpx"
	"github.com/sahel-erp/sahel-erp/internal/rbac"
	"github.com/sahel-erp/sahel-erp/internal/shared"
)

// Handler manages user management endpoints.
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

// MountRoutes registers user routes. A bearer principal is expected.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/techniciens", h.listTechniciens)
	r.Patch("/{id}/password", h.changePassword)
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAdmin())
		r.Get("/", h.listUsers)
		r.Post("/", h.createUser)
		r.Put("/{id}", h.updateUser)
		r.Delete("/{id}", h.deleteUser)
	})
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.ListUsers(r.Context())
	if err != nil {
		h.logger.Error("list users failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if users == nil {
		users = []User{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"success": true, "count": len(users), "users": users})
}

func (h *Handler) createUser(w http.ResponseWriter, r *http.Request) {
	var in CreateInput
	if err := h.decode(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	actor, _ := shared.PrincipalFromContext(r.Context())
	id, err := h.service.CreateUser(r.Context(), actor.UserID, in)
	if err != nil {
		h.fail(w, "create user", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"success": true, "msg": "Utilisateur créé avec succès", "id": id})
}

func (h *Handler) updateUser(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var in UpdateInput
	if err := h.decode(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	actor, _ := shared.PrincipalFromContext(r.Context())
	user, err := h.service.UpdateUser(r.Context(), actor.UserID, id, in)
	if err != nil {
		h.fail(w, "update user", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"success": true, "msg": "Utilisateur mis à jour avec succès", "user": user})
}

func (h *Handler) deleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	actor, _ := shared.PrincipalFromContext(r.Context())
	if err := h.service.DeleteUser(r.Context(), actor.UserID, id); err != nil {
		h.fail(w, "delete user", err)
		return
	}
	httpx.Message(w, http.StatusOK, "Utilisateur supprimé avec succès")
}

func (h *Handler) changePassword(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var in PasswordChange
	if err := h.decode(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	actor, ok := shared.PrincipalFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.ErrUnauthenticated)
		return
	}
	isAdmin, err := h.rbac.Service.IsAdmin(r.Context(), actor.UserID)
	if err != nil {
		h.fail(w, "resolve admin", err)
		return
	}
	if err := h.service.ChangePassword(r.Context(), actor.UserID, isAdmin, id, in); err != nil {
		h.fail(w, "change password", err)
		return
	}
	httpx.Message(w, http.StatusOK, "Mot de passe mis à jour avec succès")
}

func (h *Handler) listTechniciens(w http.ResponseWriter, r *http.Request) {
	techs, err := h.service.ListTechniciens(r.Context())
	if err != nil {
		h.fail(w, "list techniciens", err)
		return
	}
	if techs == nil {
		techs = []Technicien{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"success": true, "data": techs})
}

func (h *Handler) decode(r *http.Request, dst any) error {
	if err := httpx.DecodeJSON(r, dst); err != nil {
		return err
	}
	return httpx.ValidateStruct(h.validator, dst)
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	status, _ := httpx.StatusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error(op, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}
