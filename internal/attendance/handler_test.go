package attendance

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

func (s subjects) LoadSubject(ctx context.Context, userID int64) (*rbac.Subject, error) {
	if subject, ok := s[userID]; ok {
		return subject, nil
	}
	return nil, shared.ErrNotFound
}

func newTestRouter(t *testing.T, repo *memoryRepo) http.Handler {
	t.Helper()
	svc, _, _ := newEngine(t, repo)
	mw := rbac.Middleware{Service: rbac.NewService(subjects{
		1: {UserID: 1, Active: true, Permissions: rbac.ParseSet("all")},
		7: {UserID: 7, Active: true, Permissions: rbac.ParseSet("attendance")},
	})}
	r := chi.NewRouter()
	r.Route("/attendance", NewHandler(nil, svc, mw).MountRoutes)
	r.Route("/work_locations", NewZoneHandler(nil, svc, mw).MountRoutes)
	return r
}

func do(t *testing.T, h http.Handler, method, path string, userID int64, body string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req = req.WithContext(shared.ContextWithPrincipal(req.Context(), shared.Principal{UserID: userID}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return rec.Code, out
}

func TestCheckInHandlerAsksForZoneName(t *testing.T) {
	router := newTestRouter(t, newMemoryRepo(siege))

	status, body := do(t, router, http.MethodPost, "/attendance/check_in", 7, `{"latitude":14.76,"longitude":-17.4}`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, true, body["need_zone_name"])
	assert.Equal(t, CodeZoneNameRequired, body["code"])

	status, body = do(t, router, http.MethodPost, "/attendance/check_in", 7, `{"latitude":14.76,"longitude":-17.4,"location_name":"Chantier Ouakam"}`)
	assert.Equal(t, http.StatusCreated, status)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "Pointage enregistré à Chantier Ouakam.", body["msg"])
}

func TestCheckOutHandlerErrors(t *testing.T) {
	router := newTestRouter(t, newMemoryRepo(siege))

	status, body := do(t, router, http.MethodPost, "/attendance/check_out", 7, `{"location":"Siège"}`)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, CodeMustCheckIn, body["code"])
	assert.Equal(t, false, body["need_zone_name"])

	status, _ = do(t, router, http.MethodPost, "/attendance/check_in", 7, `{"latitude":14.7,"longitude":-17.4508}`)
	require.Equal(t, http.StatusCreated, status)

	status, _ = do(t, router, http.MethodPost, "/attendance/check_out", 7, `{"location":"Ailleurs"}`)
	assert.Equal(t, http.StatusForbidden, status)

	status, body = do(t, router, http.MethodPost, "/attendance/check_out", 7, `{"location":"Siège"}`)
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "total_hours")
}

func TestAdminRoutesRequireWildcard(t *testing.T) {
	router := newTestRouter(t, newMemoryRepo(siege))

	status, _ := do(t, router, http.MethodGet, "/attendance/stats/today", 7, "")
	assert.Equal(t, http.StatusForbidden, status)

	status, body := do(t, router, http.MethodGet, "/attendance/stats/today", 1, "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["success"])

	status, body = do(t, router, http.MethodGet, "/attendance/all?page=1", 1, "")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "attendances")
	assert.Contains(t, body, "pagination")
}

func TestZoneRoutes(t *testing.T) {
	router := newTestRouter(t, newMemoryRepo(siege))

	req := httptest.NewRequest(http.MethodGet, "/work_locations", nil)
	req = req.WithContext(shared.ContextWithPrincipal(req.Context(), shared.Principal{UserID: 7}))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	var zones []Zone
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &zones))
	require.Len(t, zones, 1)
	assert.Equal(t, "Siège", zones[0].Name)

	status, _ := do(t, router, http.MethodPost, "/work_locations", 7, `{"name":"Dépôt","latitude":14.71,"longitude":-17.46}`)
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = do(t, router, http.MethodPost, "/work_locations", 1, `{"name":"Dépôt","latitude":14.71,"longitude":-17.46}`)
	assert.Equal(t, http.StatusCreated, status)

	status, _ = do(t, router, http.MethodPost, "/work_locations", 1, `{"name":"Dépôt","latitude":14.72,"longitude":-17.46}`)
	assert.Equal(t, http.StatusConflict, status)
}
