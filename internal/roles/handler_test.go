package roles

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sahel-erp/sahel-erp/internal/rbac"
	"github.com/sahel-erp/sahel-erp/internal/shared"
)

type subjects map[int64]*rbac.Subject

func (s subjects) LoadSubject(_ context.Context, userID int64) (*rbac.Subject, error) {
	if subject, ok := s[userID]; ok {
		return subject, nil
	}
	return nil, shared.ErrNotFound
}

func newTestRouter() (http.Handler, *memRepo) {
	svc, repo := newTestService()
	mw := rbac.Middleware{Service: rbac.NewService(subjects{
		1: {UserID: 1, Active: true, Permissions: rbac.ParseSet("all")},
		7: {UserID: 7, Active: true, Permissions: rbac.ParseSet("attendance")},
	})}
	r := chi.NewRouter()
	r.Route("/roles", NewHandler(nil, svc, mw).MountRoutes)
	return r, repo
}

func serve(h http.Handler, method, path string, userID int64, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req = req.WithContext(shared.ContextWithPrincipal(req.Context(), shared.Principal{UserID: userID}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestListRolesOpenToAuthenticatedUsers(t *testing.T) {
	router, _ := newTestRouter()
	rec := serve(router, http.MethodGet, "/roles/", 7, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var roles []Role
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &roles))
	require.Len(t, roles, 1)
	assert.Equal(t, AdminRoleName, roles[0].Name)
}

func TestCreateRoleHandler(t *testing.T) {
	router, repo := newTestRouter()

	rec := serve(router, http.MethodPost, "/roles/", 7, `{"name":"Chef","permissions":"attendance"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Len(t, repo.roles, 1)

	rec = serve(router, http.MethodPost, "/roles/", 1, `{"name":"Chef","permissions":"clients,attendance"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var body struct {
		Success bool `json:"success"`
		Role    Role `json:"role"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.Equal(t, "attendance,clients", body.Role.Permissions)

	rec = serve(router, http.MethodPost, "/roles/", 1, `{"permissions":"clients"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateAdminRoleHandler(t *testing.T) {
	router, repo := newTestRouter()
	rec := serve(router, http.MethodPut, "/roles/1", 1, `{"name":"Administrateur","permissions":"attendance"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "all", repo.roles[1].Permissions)

	rec = serve(router, http.MethodPut, "/roles/9", 1, `{"name":"Ghost"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
