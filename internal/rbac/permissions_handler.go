package rbac

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sahel-erp/sahel-erp/internal/platform/httpx"
)

// PermissionsHandler exposes the capability catalog.
type PermissionsHandler struct{}

// NewPermissionsHandler builds PermissionsHandler instance.
func NewPermissionsHandler() *PermissionsHandler {
	return &PermissionsHandler{}
}

// MountRoutes registers permission routes. Callers mount it behind authentication.
func (h *PermissionsHandler) MountRoutes(r chi.Router) {
	r.Get("/", h.listPermissions)
}

func (h *PermissionsHandler) listPermissions(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, map[string]any{"success": true, "permissions": Catalog()})
}
