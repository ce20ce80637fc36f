package rbac

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/sahel-erp/sahel-erp/internal/platform/httpx"
	"github.com/sahel-erp/sahel-erp/internal/shared"
)

var (
	errAccessDenied  = shared.NewError(shared.ErrForbidden, "access_denied", "Accès refusé")
	errNotAuthorised = shared.NewError(shared.ErrUnauthenticated, "missing_token", "Authentification requise.")
)

// Middleware wires RBAC authorization helpers for HTTP handlers. It expects
// the bearer-token middleware to have stored a shared.Principal.
type Middleware struct {
	Service *Service
	Logger  *slog.Logger
}

// RequireAny ensures the current user has at least one of the required permissions.
func (m Middleware) RequireAny(perms ...string) func(http.Handler) http.Handler {
	return m.require(normalizePermissions(perms), false)
}

// RequireAll ensures the current user has all required permissions.
func (m Middleware) RequireAll(perms ...string) func(http.Handler) http.Handler {
	return m.require(normalizePermissions(perms), true)
}

// RequireAdmin ensures the current user holds the wildcard.
func (m Middleware) RequireAdmin() func(http.Handler) http.Handler {
	return m.require([]Capability{Wildcard}, true)
}

func (m Middleware) require(required []Capability, all bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := shared.PrincipalFromContext(r.Context())
			if !ok {
				httpx.RespondError(w, errNotAuthorised)
				return
			}
			if len(required) == 0 {
				next.ServeHTTP(w, r)
				return
			}
			subject, err := m.Service.Subject(r.Context(), principal.UserID)
			if err != nil {
				if m.Logger != nil {
					m.Logger.Error("rbac load subject", slog.Int64("user_id", principal.UserID), slog.Any("error", err))
				}
				httpx.RespondError(w, err)
				return
			}
			if subject == nil || !subject.Active {
				httpx.RespondError(w, errAccessDenied)
				return
			}
			granted := all
			for _, c := range required {
				has := HasPermission(subject, c)
				if all && !has {
					granted = false
					break
				}
				if !all && has {
					granted = true
					break
				}
			}
			if !granted {
				if m.Logger != nil {
					m.Logger.Warn("rbac denied", slog.Int64("user_id", principal.UserID), slog.String("path", r.URL.Path))
				}
				httpx.RespondError(w, errAccessDenied)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func normalizePermissions(perms []string) []Capability {
	unique := make(map[string]struct{}, len(perms))
	normalized := make([]Capability, 0, len(perms))
	for _, p := range perms {
		p = strings.TrimSpace(strings.ToLower(p))
		if p == "" {
			continue
		}
		if _, seen := unique[p]; seen {
			continue
		}
		unique[p] = struct{}{}
		normalized = append(normalized, Capability(p))
	}
	return normalized
}
