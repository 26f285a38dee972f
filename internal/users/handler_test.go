package users

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yyupcompany/kyyupgame-sub030/internal/gate"
	"github.com/yyupcompany/kyyupgame-sub030/internal/rbac"
)

type stubGuard struct {
	principal rbac.Principal
}

func (g stubGuard) Authenticated() func(http.Handler) http.Handler { return g.Require() }

func (g stubGuard) Require(perms ...rbac.Permission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, p := range perms {
				if !g.principal.Can(p) {
					w.WriteHeader(http.StatusForbidden)
					return
				}
			}
			next.ServeHTTP(w, r.WithContext(gate.WithPrincipal(r.Context(), g.principal)))
		})
	}
}

func (g stubGuard) RequireRole(codes ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !g.principal.HasAnyRole(codes...) {
				w.WriteHeader(http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r.WithContext(gate.WithPrincipal(r.Context(), g.principal)))
		})
	}
}

func newTestRouter(svc UserService, p rbac.Principal) http.Handler {
	r := chi.NewRouter()
	r.Route("/api/users", NewHandler(nil, svc, stubGuard{principal: p}).MountRoutes)
	return r
}

func serve(h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHandlerListUsers(t *testing.T) {
	repo := newFakeRepo()
	repo.users = []User{{ID: 2, Name: "Teacher Li", Status: rbac.StatusActive, Roles: []string{"TEACHER"}}}
	repo.total = 1
	router := newTestRouter(NewService(repo, nil), admin)

	rec := serve(router, http.MethodGet, "/api/users?q=li&status=active&page=1&per_page=10", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "li", repo.lastFilter.Query)
	assert.Equal(t, rbac.StatusActive, repo.lastFilter.Status)

	var env struct {
		Success bool `json:"success"`
		Data    Page `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.True(t, env.Success)
	require.Len(t, env.Data.Users, 1)
	assert.Equal(t, []string{"TEACHER"}, env.Data.Users[0].Roles)
}

func TestHandlerRequiresPermissions(t *testing.T) {
	teacher := rbac.Principal{ID: 5, Roles: []string{"TEACHER"}, Grant: rbac.NewGrant(rbac.UserView)}
	router := newTestRouter(NewService(newFakeRepo(), nil), teacher)

	assert.Equal(t, http.StatusOK, serve(router, http.MethodGet, "/api/users", "").Code)
	assert.Equal(t, http.StatusForbidden, serve(router, http.MethodPatch, "/api/users/2/status", `{"status":"locked"}`).Code)
	assert.Equal(t, http.StatusForbidden, serve(router, http.MethodPut, "/api/users/2/roles", `{"roles":["ADMIN"]}`).Code)
}

func TestHandlerSetStatus(t *testing.T) {
	repo := newFakeRepo()
	router := newTestRouter(NewService(repo, nil), admin)

	rec := serve(router, http.MethodPatch, "/api/users/2/status", `{"status":"locked"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, rbac.StatusLocked, repo.statuses[2])

	assert.Equal(t, http.StatusBadRequest, serve(router, http.MethodPatch, "/api/users/2/status", `{"status":"gone"}`).Code)
	assert.Equal(t, http.StatusBadRequest, serve(router, http.MethodPatch, "/api/users/abc/status", `{"status":"active"}`).Code)
	assert.Equal(t, http.StatusNotFound, serve(router, http.MethodPatch, "/api/users/99/status", `{"status":"active"}`).Code)
	assert.Equal(t, http.StatusConflict, serve(router, http.MethodPatch, "/api/users/1/status", `{"status":"locked"}`).Code)
}

func TestHandlerSetRoles(t *testing.T) {
	repo := newFakeRepo()
	router := newTestRouter(NewService(repo, nil), admin)

	rec := serve(router, http.MethodPut, "/api/users/2/roles", `{"roles":["teacher","parent"]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"PARENT", "TEACHER"}, repo.roles[2])

	rec = serve(router, http.MethodPut, "/api/users/2/roles", `{"roles":["janitor"]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "UNKNOWN_ROLE")

	assert.Equal(t, http.StatusBadRequest, serve(router, http.MethodPut, "/api/users/2/roles", `{}`).Code)
}

var _ UserService = (*Service)(nil)
