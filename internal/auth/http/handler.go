package authhttp

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/yyupcompany/kyyupgame-sub030/internal/auth"
	"github.com/yyupcompany/kyyupgame-sub030/internal/gate"
	"github.com/yyupcompany/kyyupgame-sub030/internal/platform/httpx"
	"github.com/yyupcompany/kyyupgame-sub030/internal/rbac"
)

// LoginService issues and revokes tokens.
type LoginService interface {
	Login(ctx context.Context, req auth.LoginRequest) (auth.Token, auth.Account, error)
	Logout(ctx context.Context, p rbac.Principal) error
}

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger     *slog.Logger
	service    LoginService
	guard      gate.Guard
	loginLimit func(http.Handler) http.Handler
	validator  *validator.Validate
}

// NewHandler constructs a Handler. loginLimit may be nil.
func NewHandler(logger *slog.Logger, service LoginService, guard gate.Guard, loginLimit func(http.Handler) http.Handler) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:     logger,
		service:    service,
		guard:      guard,
		loginLimit: loginLimit,
		validator:  validator.New(),
	}
}

// MountRoutes registers auth routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		if h.loginLimit != nil {
			r.Use(h.loginLimit)
		}
		r.Post("/login", h.handleLogin)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.Authenticated())
		r.Post("/logout", h.handleLogout)
		r.Get("/me", h.handleMe)
	})
}

type loginForm struct {
	Login    string `json:"login" validate:"required,max=254"`
	Password string `json:"password" validate:"required,min=8,max=128"`
}

type userPayload struct {
	ID    int64    `json:"id"`
	Name  string   `json:"name"`
	Email string   `json:"email,omitempty"`
	Roles []string `json:"roles"`
}

type loginPayload struct {
	auth.Token
	User userPayload `json:"user"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var form loginForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid login payload", httpx.CodeValidation)
		return
	}
	form.Login = strings.TrimSpace(form.Login)
	if err := h.validator.Struct(form); err != nil {
		var fieldErrs validator.ValidationErrors
		field := "payload"
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			field = strings.ToLower(fieldErrs[0].Field())
		}
		httpx.Fail(w, http.StatusBadRequest, "invalid "+field, httpx.CodeValidation)
		return
	}

	token, acct, err := h.service.Login(r.Context(), auth.LoginRequest{
		Login:     form.Login,
		Password:  form.Password,
		IP:        clientIP(r),
		UserAgent: r.UserAgent(),
	})
	switch {
	case errors.Is(err, auth.ErrInvalidLogin):
		httpx.Fail(w, http.StatusUnauthorized, "invalid login or password", "INVALID_CREDENTIALS")
		return
	case errors.Is(err, auth.ErrUpstream):
		h.logger.Error("login", slog.Any("error", err))
		httpx.Fail(w, http.StatusServiceUnavailable, "service temporarily unavailable", httpx.CodeUpstreamUnavailable)
		return
	case err != nil:
		h.logger.Error("login", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	h.logger.Info("login", slog.Int64("user_id", acct.ID))
	httpx.OK(w, "login successful", loginPayload{
		Token: token,
		User:  userPayload{ID: acct.ID, Name: acct.Name, Email: acct.Email, Roles: rbac.NormalizeRoleCodes(acct.Roles)},
	})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	p, ok := gate.PrincipalFrom(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	if err := h.service.Logout(r.Context(), p); err != nil {
		h.logger.Error("logout", slog.Int64("user_id", p.ID), slog.Any("error", err))
		httpx.Fail(w, http.StatusServiceUnavailable, "service temporarily unavailable", httpx.CodeUpstreamUnavailable)
		return
	}
	httpx.OK(w, "logged out", nil)
}

type mePayload struct {
	ID          int64             `json:"id"`
	Name        string            `json:"name"`
	Roles       []string          `json:"roles"`
	Status      string            `json:"status"`
	Wildcard    bool              `json:"wildcard"`
	Permissions []rbac.Permission `json:"permissions"`
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	p, ok := gate.PrincipalFrom(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	httpx.OK(w, "ok", mePayload{
		ID:          p.ID,
		Name:        p.Name,
		Roles:       p.Roles,
		Status:      string(p.Status),
		Wildcard:    p.Grant.Wildcard(),
		Permissions: p.Grant.Permissions(),
	})
}

func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
