package rbachttp

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/yyupcompany/kyyupgame-sub030/internal/gate"
	"github.com/yyupcompany/kyyupgame-sub030/internal/platform/httpx"
	"github.com/yyupcompany/kyyupgame-sub030/internal/rbac"
)

// RoleService is the role administration surface.
type RoleService interface {
	ListRoles(ctx context.Context) ([]rbac.Role, error)
	GetRole(ctx context.Context, code string) (rbac.Role, error)
	SetRolePermissions(ctx context.Context, code string, perms []rbac.Permission) (rbac.Role, error)
	Catalog() []rbac.PermissionInfo
}

// Handler serves role and permission endpoints.
type Handler struct {
	logger  *slog.Logger
	service RoleService
	guard   gate.Guard
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service RoleService, guard gate.Guard) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, guard: guard}
}

// MountRoles registers /api/roles routes.
func (h *Handler) MountRoles(r chi.Router) {
	r.With(h.guard.Require(rbac.RoleView)).Get("/", h.listRoles)
	r.With(h.guard.Require(rbac.RoleView)).Get("/{code}", h.getRole)
	r.With(h.guard.Require(rbac.RoleManage)).Put("/{code}/permissions", h.setPermissions)
}

// MountPermissions registers /api/permissions routes.
func (h *Handler) MountPermissions(r chi.Router) {
	r.With(h.guard.Require(rbac.PermissionView)).Get("/", h.catalog)
	r.With(h.guard.Authenticated()).Get("/mine", h.mine)
	r.With(h.guard.Authenticated()).Post("/check", h.check)
}

func (h *Handler) listRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := h.service.ListRoles(r.Context())
	if err != nil {
		h.fail(w, "list roles", err)
		return
	}
	if roles == nil {
		roles = []rbac.Role{}
	}
	httpx.OK(w, "ok", roles)
}

func (h *Handler) getRole(w http.ResponseWriter, r *http.Request) {
	role, err := h.service.GetRole(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		h.fail(w, "get role", err)
		return
	}
	httpx.OK(w, "ok", role)
}

type setPermissionsRequest struct {
	Permissions []rbac.Permission `json:"permissions"`
}

func (h *Handler) setPermissions(w http.ResponseWriter, r *http.Request) {
	var req setPermissionsRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid permissions payload", httpx.CodeValidation)
		return
	}
	role, err := h.service.SetRolePermissions(r.Context(), chi.URLParam(r, "code"), req.Permissions)
	if err != nil {
		h.fail(w, "set role permissions", err)
		return
	}
	httpx.OK(w, "role permissions updated", role)
}

func (h *Handler) catalog(w http.ResponseWriter, r *http.Request) {
	httpx.OK(w, "ok", h.service.Catalog())
}

type minePayload struct {
	UserID      int64             `json:"user_id"`
	Roles       []string          `json:"roles"`
	Wildcard    bool              `json:"wildcard"`
	Permissions []rbac.Permission `json:"permissions"`
}

func (h *Handler) mine(w http.ResponseWriter, r *http.Request) {
	p, ok := gate.PrincipalFrom(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	httpx.OK(w, "ok", minePayload{
		UserID:      p.ID,
		Roles:       p.Roles,
		Wildcard:    p.Grant.Wildcard(),
		Permissions: p.Grant.Permissions(),
	})
}

type checkRequest struct {
	Permissions []string `json:"permissions"`
}

type checkResult struct {
	Permission string `json:"permission"`
	Known      bool   `json:"known"`
	Granted    bool   `json:"granted"`
}

// check reports, per code, whether the caller holds it. Unknown codes are
// reported as not granted.
func (h *Handler) check(w http.ResponseWriter, r *http.Request) {
	p, ok := gate.PrincipalFrom(r.Context())
	if !ok {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	var req checkRequest
	if err := httpx.DecodeJSON(r, &req); err != nil || len(req.Permissions) == 0 {
		httpx.Fail(w, http.StatusBadRequest, "permissions are required", httpx.CodeValidation)
		return
	}
	results := make([]checkResult, 0, len(req.Permissions))
	all := true
	for _, code := range req.Permissions {
		perm, known := rbac.ParsePermission(code)
		granted := known && p.Can(perm)
		all = all && granted
		results = append(results, checkResult{Permission: code, Known: known, Granted: granted})
	}
	httpx.OK(w, "ok", map[string]any{"all": all, "results": results})
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, rbac.ErrNotFound):
		httpx.Fail(w, http.StatusNotFound, "role not found", httpx.CodeNotFound)
	case errors.Is(err, rbac.ErrPermissionNotProvisioned):
		httpx.Fail(w, http.StatusConflict, "permission not provisioned", "PERMISSION_NOT_PROVISIONED")
	default:
		h.logger.Error(op, slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}
