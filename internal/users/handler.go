package users

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/yyupcompany/kyyupgame-sub030/internal/gate"
	"github.com/yyupcompany/kyyupgame-sub030/internal/platform/httpx"
	"github.com/yyupcompany/kyyupgame-sub030/internal/rbac"
)

// UserService is the management surface used by Handler.
type UserService interface {
	ListUsers(ctx context.Context, f ListFilter) (Page, error)
	SetStatus(ctx context.Context, actor rbac.Principal, id int64, status rbac.AccountStatus) error
	SetRoles(ctx context.Context, actor rbac.Principal, id int64, codes []string) ([]string, error)
}

// Handler exposes user management routes.
type Handler struct {
	logger   *slog.Logger
	service  UserService
	guard    gate.Guard
	validate *validator.Validate
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service UserService, guard gate.Guard) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, guard: guard, validate: validator.New()}
}

// MountRoutes registers /api/users routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(h.guard.Require(rbac.UserView)).Get("/", h.list)
	r.With(h.guard.Require(rbac.UserManage)).Patch("/{id}/status", h.setStatus)
	r.With(h.guard.Require(rbac.UserRoleManage)).Put("/{id}/roles", h.setRoles)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := ListFilter{
		Query:  q.Get("q"),
		Status: rbac.AccountStatus(q.Get("status")),
		Role:   q.Get("role"),
	}
	f.Page, _ = strconv.Atoi(q.Get("page"))
	f.PerPage, _ = strconv.Atoi(q.Get("per_page"))

	page, err := h.service.ListUsers(r.Context(), f)
	if err != nil {
		h.fail(w, "list users", err)
		return
	}
	httpx.OK(w, "ok", page)
}

type statusRequest struct {
	Status string `json:"status" validate:"required,oneof=active inactive locked"`
}

func (h *Handler) setStatus(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := h.target(w, r)
	if !ok {
		return
	}
	var req statusRequest
	if err := httpx.DecodeJSON(r, &req); err != nil || h.validate.Struct(req) != nil {
		httpx.Fail(w, http.StatusBadRequest, "status must be active, inactive or locked", httpx.CodeValidation)
		return
	}
	if err := h.service.SetStatus(r.Context(), actor, id, rbac.AccountStatus(req.Status)); err != nil {
		h.fail(w, "set user status", err)
		return
	}
	httpx.OK(w, "user status updated", map[string]any{"id": id, "status": req.Status})
}

type rolesRequest struct {
	Roles []string `json:"roles" validate:"required,max=16,dive,required,max=64"`
}

func (h *Handler) setRoles(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := h.target(w, r)
	if !ok {
		return
	}
	var req rolesRequest
	if err := httpx.DecodeJSON(r, &req); err != nil || h.validate.Struct(req) != nil {
		httpx.Fail(w, http.StatusBadRequest, "roles must be a list of role codes", httpx.CodeValidation)
		return
	}
	roles, err := h.service.SetRoles(r.Context(), actor, id, req.Roles)
	if err != nil {
		h.fail(w, "set user roles", err)
		return
	}
	httpx.OK(w, "user roles updated", map[string]any{"id": id, "roles": roles})
}

func (h *Handler) target(w http.ResponseWriter, r *http.Request) (rbac.Principal, int64, bool) {
	actor, ok := gate.PrincipalFrom(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return rbac.Principal{}, 0, false
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Fail(w, http.StatusBadRequest, "invalid user id", httpx.CodeValidation)
		return rbac.Principal{}, 0, false
	}
	return actor, id, true
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Fail(w, http.StatusNotFound, "user not found", httpx.CodeNotFound)
	case errors.Is(err, ErrUnknownRole):
		httpx.Fail(w, http.StatusBadRequest, "unknown role", "UNKNOWN_ROLE")
	case errors.Is(err, ErrInvalidStatus):
		httpx.Fail(w, http.StatusBadRequest, "invalid status", httpx.CodeValidation)
	case errors.Is(err, ErrSelfModification):
		httpx.Fail(w, http.StatusConflict, "cannot change own access", "SELF_MODIFICATION")
	default:
		h.logger.Error(op, slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}
