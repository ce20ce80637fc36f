package audit

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

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

func newRouter(repo *stubRepo) http.Handler {
	mw := rbac.Middleware{Service: rbac.NewService(subjects{
		1: {UserID: 1, Active: true, Permissions: rbac.ParseSet("all")},
		7: {UserID: 7, Active: true, Permissions: rbac.ParseSet("attendance")},
	})}
	h := NewHandler(nil, NewService(repo), mw, time.UTC)
	h.now = func() time.Time { return time.Date(2026, 3, 15, 16, 0, 0, 0, time.UTC) }
	r := chi.NewRouter()
	r.Route("/audit_logs", h.MountRoutes)
	return r
}

func get(h http.Handler, path string, userID int64) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req = req.WithContext(shared.ContextWithPrincipal(req.Context(), shared.Principal{UserID: userID}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestTimelineRequiresAdmin(t *testing.T) {
	rec := get(newRouter(&stubRepo{}), "/audit_logs/", 7)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestTimelineDefaultsToLastWeek(t *testing.T) {
	repo := &stubRepo{rows: sampleRows(2)}
	rec := get(newRouter(repo), "/audit_logs/?entity=salary_advance", 1)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	assert.Equal(t, time.Date(2026, 3, 8, 0, 0, 0, 0, time.UTC), repo.last.FromAt)
	assert.Equal(t, time.Date(2026, 3, 16, 0, 0, 0, 0, time.UTC), repo.last.ToAt)
	require.NotNil(t, repo.last.Entity)
	assert.Equal(t, "salary_advance", *repo.last.Entity)

	var body struct {
		Success bool          `json:"success"`
		Rows    []TimelineRow `json:"rows"`
		Paging  PagingInfo    `json:"paging"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.Len(t, body.Rows, 2)
	assert.Equal(t, defaultPageSize, body.Paging.PageSize)
}

func TestTimelineRejectsBadFilters(t *testing.T) {
	router := newRouter(&stubRepo{})
	for _, path := range []string{
		"/audit_logs/?from=10-03-2026",
		"/audit_logs/?to=tomorrow",
		"/audit_logs/?from=2026-03-10&to=2026-03-01",
		"/audit_logs/?from=2025-01-01&to=2026-03-01",
		"/audit_logs/?page=0",
		"/audit_logs/?page_size=abc",
	} {
		rec := get(router, path, 1)
		assert.Equal(t, http.StatusBadRequest, rec.Code, path)
	}
}

func TestExportWritesCSV(t *testing.T) {
	rec := get(newRouter(&stubRepo{rows: sampleRows(3)}), "/audit_logs/export.csv?from=2026-03-01&to=2026-03-15", 1)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "audit-logs.csv")
	assert.Contains(t, rec.Body.String(), "at,actor_id,actor,action,entity,entity_id,meta\n")
}
