package rbac

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"

	"github.com/yyupcompany/kyyupgame-sub030/internal/platform/db"
)

// ErrPermissionNotProvisioned indicates a catalog permission missing from the
// permissions table.
var ErrPermissionNotProvisioned = errors.New("rbac: permission not provisioned")

const roleColumns = `r.id, upper(r.code), r.name, r.is_wildcard, r.status = 1,
	COALESCE(array_agg(p.code ORDER BY p.code) FILTER (WHERE p.code IS NOT NULL AND p.status = 1), '{}')`

const roleJoins = `FROM roles r
LEFT JOIN role_permissions rp ON rp.role_id = r.id
LEFT JOIN permissions p ON p.id = rp.permission_id`

// PGStore persists roles and grants in PostgreSQL.
type PGStore struct {
	db     db.DBTX
	tx     db.Beginner
	logger *slog.Logger
}

// NewPGStore constructs a PGStore. tx may be nil when mutations are not needed.
func NewPGStore(conn db.DBTX, tx db.Beginner, logger *slog.Logger) *PGStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &PGStore{db: conn, tx: tx, logger: logger}
}

// RolesByCodes implements Store.
func (s *PGStore) RolesByCodes(ctx context.Context, codes []string) ([]Role, error) {
	codes = NormalizeRoleCodes(codes)
	if len(codes) == 0 {
		return nil, nil
	}
	rows, err := s.db.Query(ctx, `SELECT `+roleColumns+` `+roleJoins+`
WHERE upper(r.code) = ANY($1)
GROUP BY r.id
ORDER BY upper(r.code)`, codes)
	if err != nil {
		return nil, fmt.Errorf("rbac: roles by codes: %w", err)
	}
	return s.collectRoles(rows)
}

// ListRoles returns every role with its grants.
func (s *PGStore) ListRoles(ctx context.Context) ([]Role, error) {
	rows, err := s.db.Query(ctx, `SELECT `+roleColumns+` `+roleJoins+`
GROUP BY r.id
ORDER BY upper(r.code)`)
	if err != nil {
		return nil, fmt.Errorf("rbac: list roles: %w", err)
	}
	return s.collectRoles(rows)
}

// RoleByCode returns one role or ErrNotFound.
func (s *PGStore) RoleByCode(ctx context.Context, code string) (Role, error) {
	roles, err := s.RolesByCodes(ctx, []string{code})
	if err != nil {
		return Role{}, err
	}
	if len(roles) == 0 {
		return Role{}, ErrNotFound
	}
	return roles[0], nil
}

// SetRolePermissions replaces the grants of a role.
func (s *PGStore) SetRolePermissions(ctx context.Context, code string, perms []Permission) error {
	if s.tx == nil {
		return errors.New("rbac: store is read-only")
	}
	codes := make([]string, len(perms))
	for i, p := range perms {
		codes[i] = p.String()
	}
	return db.WithTx(ctx, s.tx, func(tx pgx.Tx) error {
		var roleID int64
		err := tx.QueryRow(ctx, `SELECT id FROM roles WHERE upper(code) = $1 FOR UPDATE`, NormalizeRoleCode(code)).Scan(&roleID)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("rbac: lock role: %w", err)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM role_permissions WHERE role_id = $1`, roleID); err != nil {
			return fmt.Errorf("rbac: clear grants: %w", err)
		}
		if len(codes) == 0 {
			return nil
		}
		tag, err := tx.Exec(ctx, `INSERT INTO role_permissions (role_id, permission_id)
SELECT $1, p.id FROM permissions p WHERE p.code = ANY($2)`, roleID, codes)
		if err != nil {
			return fmt.Errorf("rbac: insert grants: %w", err)
		}
		if tag.RowsAffected() != int64(len(codes)) {
			return ErrPermissionNotProvisioned
		}
		return nil
	})
}

// SyncCatalog upserts every catalog permission into the permissions table.
func (s *PGStore) SyncCatalog(ctx context.Context) error {
	for _, info := range Catalog() {
		if _, err := s.db.Exec(ctx, `INSERT INTO permissions (code, group_name, description, status)
VALUES ($1, $2, $3, 1)
ON CONFLICT (code) DO UPDATE SET group_name = EXCLUDED.group_name, description = EXCLUDED.description`,
			info.Code, info.Group, info.Description); err != nil {
			return fmt.Errorf("rbac: sync permission %s: %w", info.Code, err)
		}
	}
	return nil
}

func (s *PGStore) collectRoles(rows pgx.Rows) ([]Role, error) {
	defer rows.Close()
	var roles []Role
	for rows.Next() {
		var (
			role  Role
			codes []string
		)
		if err := rows.Scan(&role.ID, &role.Code, &role.Name, &role.Wildcard, &role.Active, &codes); err != nil {
			return nil, fmt.Errorf("rbac: scan role: %w", err)
		}
		role.Permissions = s.parseCodes(role.Code, codes)
		roles = append(roles, role)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rbac: iterate roles: %w", err)
	}
	return roles, nil
}

// parseCodes drops codes outside the catalog so stale rows never widen a grant.
func (s *PGStore) parseCodes(role string, codes []string) []Permission {
	perms := make([]Permission, 0, len(codes))
	for _, code := range codes {
		p, ok := ParsePermission(code)
		if !ok {
			s.logger.Warn("rbac unknown permission code", slog.String("role", role), slog.String("code", code))
			continue
		}
		perms = append(perms, p)
	}
	return perms
}
