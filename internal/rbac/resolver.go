package rbac

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

var (
	// ErrNotFound indicates a missing role.
	ErrNotFound = errors.New("rbac: not found")
	// ErrUpstream indicates the role store could not answer.
	ErrUpstream = errors.New("rbac: permission store unavailable")
)

// DeniedError reports the required permissions a principal lacks.
type DeniedError struct {
	Missing []Permission
}

func (e *DeniedError) Error() string {
	codes := make([]string, len(e.Missing))
	for i, p := range e.Missing {
		codes[i] = p.String()
	}
	return "rbac: missing permissions " + strings.Join(codes, ", ")
}

// RoleDeniedError reports that a principal carries none of the allowed roles.
type RoleDeniedError struct {
	Allowed []string
}

func (e *RoleDeniedError) Error() string {
	return "rbac: requires one of roles " + strings.Join(e.Allowed, ", ")
}

// Store loads roles by code. Unknown codes are omitted from the result.
type Store interface {
	RolesByCodes(ctx context.Context, codes []string) ([]Role, error)
}

// Resolver computes effective permissions from role assignments.
type Resolver struct {
	store  Store
	logger *slog.Logger
}

// NewResolver constructs a Resolver.
func NewResolver(store Store, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{store: store, logger: logger}
}

// Grants unions the permissions of the active roles among roleCodes.
func (r *Resolver) Grants(ctx context.Context, roleCodes []string) (Grant, error) {
	codes := NormalizeRoleCodes(roleCodes)
	if len(codes) == 0 {
		return NewGrant(), nil
	}
	roles, err := r.store.RolesByCodes(ctx, codes)
	if err != nil {
		return Grant{}, fmt.Errorf("%w: %w", ErrUpstream, err)
	}
	if len(roles) < len(codes) {
		r.logger.Warn("rbac unknown role codes", slog.Any("requested", codes), slog.Int("found", len(roles)))
	}
	return unionRoles(roles), nil
}

// Authorize attaches the effective grant to p and checks it against req.
// The returned principal carries the grant even when the check fails.
func (r *Resolver) Authorize(ctx context.Context, p Principal, req Requirement) (Principal, error) {
	if err := ctx.Err(); err != nil {
		return p, fmt.Errorf("%w: %w", ErrUpstream, err)
	}
	grant, err := r.Grants(ctx, p.Roles)
	if err != nil {
		return p, err
	}
	p.Grant = grant
	if missing := grant.Missing(req); len(missing) > 0 {
		return p, &DeniedError{Missing: missing}
	}
	return p, nil
}

func unionRoles(roles []Role) Grant {
	var perms []Permission
	for _, role := range roles {
		if !role.Active {
			continue
		}
		if role.Wildcard {
			return WildcardGrant()
		}
		perms = append(perms, role.Permissions...)
	}
	return NewGrant(perms...)
}
