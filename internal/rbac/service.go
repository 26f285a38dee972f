package rbac

import (
	"context"
	"log/slog"
)

// AdminStore is the persistence surface used by role administration.
type AdminStore interface {
	ListRoles(ctx context.Context) ([]Role, error)
	RoleByCode(ctx context.Context, code string) (Role, error)
	SetRolePermissions(ctx context.Context, code string, perms []Permission) error
}

// Invalidator evicts cached role grants.
type Invalidator interface {
	Invalidate(ctx context.Context, codes ...string) error
}

// Service exposes role administration.
type Service struct {
	store  AdminStore
	cache  Invalidator
	logger *slog.Logger
}

// NewService constructs a Service. cache may be nil.
func NewService(store AdminStore, cache Invalidator, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, cache: cache, logger: logger}
}

// ListRoles returns every role.
func (s *Service) ListRoles(ctx context.Context) ([]Role, error) {
	return s.store.ListRoles(ctx)
}

// GetRole returns one role by code.
func (s *Service) GetRole(ctx context.Context, code string) (Role, error) {
	code = NormalizeRoleCode(code)
	if code == "" {
		return Role{}, ErrNotFound
	}
	return s.store.RoleByCode(ctx, code)
}

// SetRolePermissions replaces the grants of a role and evicts its cache entry
// so the next request observes the change.
func (s *Service) SetRolePermissions(ctx context.Context, code string, perms []Permission) (Role, error) {
	code = NormalizeRoleCode(code)
	if code == "" {
		return Role{}, ErrNotFound
	}
	perms = Require(perms...).Permissions()
	if err := s.store.SetRolePermissions(ctx, code, perms); err != nil {
		return Role{}, err
	}
	if s.cache != nil {
		// The write is committed; a stale entry lives at most one cache TTL.
		if err := s.cache.Invalidate(ctx, code); err != nil {
			s.logger.Error("rbac cache invalidation failed", slog.String("role", code), slog.Any("error", err))
		}
	}
	s.logger.Info("rbac role permissions replaced", slog.String("role", code), slog.Int("permissions", len(perms)))
	return s.store.RoleByCode(ctx, code)
}

// Catalog lists every permission.
func (s *Service) Catalog() []PermissionInfo {
	return Catalog()
}
