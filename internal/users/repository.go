package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/yyupcompany/kyyupgame-sub030/internal/platform/db"
	"github.com/yyupcompany/kyyupgame-sub030/internal/rbac"
)

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	db db.DBTX
	tx db.Beginner
}

// NewRepository constructs a repository.
func NewRepository(conn db.DBTX, tx db.Beginner) *Repository {
	return &Repository{db: conn, tx: tx}
}

func listWhere(f ListFilter) (string, []any) {
	var (
		where []string
		args  []any
	)
	if q := strings.TrimSpace(f.Query); q != "" {
		args = append(args, "%"+q+"%")
		where = append(where, fmt.Sprintf("(u.name ILIKE $%[1]d OR u.email ILIKE $%[1]d OR u.phone ILIKE $%[1]d)", len(args)))
	}
	if f.Status != "" {
		args = append(args, string(f.Status))
		where = append(where, fmt.Sprintf("u.status = $%d", len(args)))
	}
	if f.Role != "" {
		args = append(args, rbac.NormalizeRoleCode(f.Role))
		where = append(where, fmt.Sprintf(`EXISTS (SELECT 1 FROM user_roles fr JOIN roles frr ON frr.id = fr.role_id
	WHERE fr.user_id = u.id AND upper(frr.code) = $%d)`, len(args)))
	}
	if len(where) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(where, " AND "), args
}

// ListUsers returns one page of users and the total match count.
func (r *Repository) ListUsers(ctx context.Context, f ListFilter, offset, limit int) ([]User, int, error) {
	where, args := listWhere(f)

	var total int
	if err := r.db.QueryRow(ctx, `SELECT count(*) FROM users u`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("users: count: %w", err)
	}

	args = append(args, offset, limit)
	rows, err := r.db.Query(ctx, `SELECT u.id, u.name, u.email, COALESCE(u.phone, ''), u.status, u.created_at, u.last_login_at,
	COALESCE(array_agg(upper(r.code) ORDER BY upper(r.code)) FILTER (WHERE r.code IS NOT NULL), '{}')
FROM users u
LEFT JOIN user_roles ur ON ur.user_id = u.id
LEFT JOIN roles r ON r.id = ur.role_id`+where+fmt.Sprintf(`
GROUP BY u.id
ORDER BY u.id
OFFSET $%d LIMIT $%d`, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("users: list: %w", err)
	}
	defer rows.Close()

	var out []User
	for rows.Next() {
		var (
			u         User
			status    string
			lastLogin pgtype.Timestamptz
		)
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.Phone, &status, &u.CreatedAt, &lastLogin, &u.Roles); err != nil {
			return nil, 0, fmt.Errorf("users: scan: %w", err)
		}
		u.Status = rbac.AccountStatus(status)
		if lastLogin.Valid {
			t := lastLogin.Time
			u.LastLoginAt = &t
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("users: iterate: %w", err)
	}
	return out, total, nil
}

// UpdateStatus changes the account status of a user.
func (r *Repository) UpdateStatus(ctx context.Context, id int64, status rbac.AccountStatus) error {
	tag, err := r.db.Exec(ctx, `UPDATE users SET status = $2, updated_at = $3 WHERE id = $1`, id, string(status), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("users: update status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ReplaceRoles sets the role assignments of a user.
func (r *Repository) ReplaceRoles(ctx context.Context, id int64, codes []string) error {
	return db.WithTx(ctx, r.tx, func(tx pgx.Tx) error {
		var exists int64
		err := tx.QueryRow(ctx, `SELECT id FROM users WHERE id = $1 FOR UPDATE`, id).Scan(&exists)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("users: lock user: %w", err)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM user_roles WHERE user_id = $1`, id); err != nil {
			return fmt.Errorf("users: clear roles: %w", err)
		}
		if len(codes) == 0 {
			return nil
		}
		tag, err := tx.Exec(ctx, `INSERT INTO user_roles (user_id, role_id)
SELECT $1, r.id FROM roles r WHERE upper(r.code) = ANY($2)`, id, codes)
		if err != nil {
			return fmt.Errorf("users: assign roles: %w", err)
		}
		if tag.RowsAffected() != int64(len(codes)) {
			return ErrUnknownRole
		}
		return nil
	})
}
