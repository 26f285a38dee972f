package authhttp_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/yyupcompany/kyyupgame-sub030/internal/auth"
	authhttp "github.com/yyupcompany/kyyupgame-sub030/internal/auth/http"
	"github.com/yyupcompany/kyyupgame-sub030/internal/gate"
	"github.com/yyupcompany/kyyupgame-sub030/internal/rbac"
	_ "github.com/yyupcompany/kyyupgame-sub030/testing"
)

type stubRepo struct {
	accounts []auth.Account
}

func (s *stubRepo) AccountByID(_ context.Context, id int64) (auth.Account, error) {
	for _, a := range s.accounts {
		if a.ID == id {
			return a, nil
		}
	}
	return auth.Account{}, auth.ErrAccountNotFound
}

func (s *stubRepo) AccountByLogin(_ context.Context, login string) (auth.Account, error) {
	for _, a := range s.accounts {
		if a.Email == login || a.Phone == login {
			return a, nil
		}
	}
	return auth.Account{}, auth.ErrAccountNotFound
}

type staticRoles map[string]rbac.Role

func (s staticRoles) RolesByCodes(_ context.Context, codes []string) ([]rbac.Role, error) {
	var out []rbac.Role
	for _, c := range codes {
		if r, ok := s[c]; ok {
			out = append(out, r)
		}
	}
	return out, nil
}

func newAuthRouter(t *testing.T, loginLimit func(http.Handler) http.Handler) http.Handler {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("secret-pass"), bcrypt.MinCost)
	require.NoError(t, err)
	repo := &stubRepo{accounts: []auth.Account{
		{ID: 11, Name: "Principal Sun", Email: "sun@kyyup.test", Phone: "13800000000", PasswordHash: string(hash), Status: rbac.StatusActive, Roles: []string{"principal"}},
	}}

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	revocations := auth.NewRedisRevocationList(client)

	codec := auth.NewTokenCodec("handler-secret-handler-secret-0000", "kyyup", time.Hour)
	service := auth.NewService(repo, nil, codec, revocations, nil)
	g := gate.New(gate.Config{
		Verifier:   auth.NewVerifier(codec, repo, revocations),
		Authorizer: rbac.NewResolver(staticRoles{"PRINCIPAL": {Code: "PRINCIPAL", Active: true, Permissions: []rbac.Permission{rbac.DashboardView}}}, nil),
	})

	r := chi.NewRouter()
	r.Route("/api/auth", authhttp.NewHandler(nil, service, g, loginLimit).MountRoutes)
	return r
}

func post(router http.Handler, path, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func get(router http.Handler, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func login(t *testing.T, router http.Handler) string {
	t.Helper()
	rr := post(router, "/api/auth/login", "", `{"login":"sun@kyyup.test","password":"secret-pass"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var body struct {
		Success bool `json:"success"`
		Data    struct {
			AccessToken string `json:"access_token"`
			TokenType   string `json:"token_type"`
			User        struct {
				ID    int64    `json:"id"`
				Roles []string `json:"roles"`
			} `json:"user"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.True(t, body.Success)
	assert.Equal(t, "Bearer", body.Data.TokenType)
	assert.Equal(t, int64(11), body.Data.User.ID)
	assert.Equal(t, []string{"PRINCIPAL"}, body.Data.User.Roles)
	return body.Data.AccessToken
}

func TestLoginMeLogout(t *testing.T) {
	router := newAuthRouter(t, nil)
	token := login(t, router)

	rr := get(router, "/api/auth/me", token)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"DASHBOARD_VIEW"`)
	assert.Contains(t, rr.Body.String(), `"status":"active"`)

	rr = post(router, "/api/auth/logout", token, "")
	require.Equal(t, http.StatusOK, rr.Code)

	rr = get(router, "/api/auth/me", token)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestLoginInvalidCredentials(t *testing.T) {
	router := newAuthRouter(t, nil)

	rr := post(router, "/api/auth/login", "", `{"login":"sun@kyyup.test","password":"wrong-pass"}`)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Contains(t, rr.Body.String(), `"success":false`)
	assert.Contains(t, rr.Body.String(), "INVALID_CREDENTIALS")
}

func TestLoginValidation(t *testing.T) {
	router := newAuthRouter(t, nil)

	for _, body := range []string{
		`{"login":"","password":"secret-pass"}`,
		`{"login":"sun@kyyup.test","password":"short"}`,
		`{"login":"sun@kyyup.test"`,
		`{"login":"sun@kyyup.test","password":"secret-pass","role":"ADMIN"}`,
	} {
		rr := post(router, "/api/auth/login", "", body)
		assert.Equal(t, http.StatusBadRequest, rr.Code, body)
	}
}

func TestMeRequiresToken(t *testing.T) {
	router := newAuthRouter(t, nil)

	rr := get(router, "/api/auth/me", "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestLoginIsRateLimited(t *testing.T) {
	router := newAuthRouter(t, httprate.LimitByIP(2, time.Minute))
	body := `{"login":"sun@kyyup.test","password":"wrong-pass"}`

	assert.Equal(t, http.StatusUnauthorized, post(router, "/api/auth/login", "", body).Code)
	assert.Equal(t, http.StatusUnauthorized, post(router, "/api/auth/login", "", body).Code)
	assert.Equal(t, http.StatusTooManyRequests, post(router, "/api/auth/login", "", body).Code)
}
