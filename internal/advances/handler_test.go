package advances

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

func newRouter(f *fixture) http.Handler {
	mw := rbac.Middleware{Service: rbac.NewService(subjects{
		1: {UserID: 1, Active: true, Role: &rbac.RoleGrant{ID: 1, Name: "Administrateur", Permissions: rbac.ParseSet("all")}},
		5: {UserID: 5, Active: true, Permissions: rbac.ParseSet("salary_advances")},
		7: {UserID: 7, Active: true, Role: &rbac.RoleGrant{ID: 3, Name: "Technicien", Permissions: rbac.ParseSet("attendance,interventions")}},
	})}
	r := chi.NewRouter()
	r.Route("/salary_advances", NewHandler(nil, f.svc, mw).MountRoutes)
	return r
}

func call(t *testing.T, h http.Handler, method, path string, userID int64, body string, header map[string]string) (int, map[string]any) {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	for k, v := range header {
		req.Header.Set(k, v)
	}
	req = req.WithContext(shared.ContextWithPrincipal(req.Context(), shared.Principal{UserID: userID}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return rec.Code, out
}

func TestAdvanceEndpoints(t *testing.T) {
	f := newFixture()
	router := newRouter(f)
	key := map[string]string{IdempotencyHeader: "req-1"}

	status, body := call(t, router, http.MethodPost, "/salary_advances", 7, `{"montant":30000,"motif":"Transport"}`, key)
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, "Demande d'avance envoyée", body["msg"])

	status, body = call(t, router, http.MethodPost, "/salary_advances", 7, `{"montant":30000,"motif":"Transport"}`, key)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "duplicate_request", body["code"])

	status, _ = call(t, router, http.MethodPost, "/salary_advances", 7, `{"montant":0,"motif":"Transport"}`, nil)
	assert.Equal(t, http.StatusBadRequest, status)

	_, err := f.svc.Create(context.Background(), 8, "", CreateInput{Montant: 10000, Motif: "Santé"})
	require.NoError(t, err)

	status, body = call(t, router, http.MethodGet, "/salary_advances", 7, "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["advances"], 1)

	status, body = call(t, router, http.MethodGet, "/salary_advances", 1, "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["advances"], 2)

	status, _ = call(t, router, http.MethodPost, "/salary_advances/1/approve", 7, "", nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, body = call(t, router, http.MethodPost, "/salary_advances/1/approve", 5, `{"notes_admin":"Validé"}`, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Avance approuvée", body["msg"])

	status, _ = call(t, router, http.MethodPost, "/salary_advances/1/refuse", 1, "", nil)
	assert.Equal(t, http.StatusConflict, status)

	status, body = call(t, router, http.MethodPost, "/salary_advances/2/refuse", 1, "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Avance refusée", body["msg"])

	status, _ = call(t, router, http.MethodPost, "/salary_advances/abc/refuse", 1, "", nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status, body = call(t, router, http.MethodGet, "/salary_advances/1", 7, "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["history"], 2)
	status, _ = call(t, router, http.MethodGet, "/salary_advances/2", 7, "", nil)
	assert.Equal(t, http.StatusNotFound, status)
	status, body = call(t, router, http.MethodGet, "/salary_advances/2", 5, "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["history"], 2)
}
