package auth

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

const accountSelect = `SELECT u.id, u.name, u.email, COALESCE(u.phone, ''), u.password_hash, u.status,
	COALESCE(array_agg(upper(r.code) ORDER BY upper(r.code)) FILTER (WHERE r.code IS NOT NULL), '{}')
FROM users u
LEFT JOIN user_roles ur ON ur.user_id = u.id
LEFT JOIN roles r ON r.id = ur.role_id
`

// PGRepository implements AccountStore and SessionStore using PostgreSQL.
type PGRepository struct {
	db db.DBTX
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(conn db.DBTX) *PGRepository {
	return &PGRepository{db: conn}
}

// AccountByID fetches an account with its role codes.
func (r *PGRepository) AccountByID(ctx context.Context, id int64) (Account, error) {
	return r.scanAccount(r.db.QueryRow(ctx, accountSelect+`WHERE u.id = $1 GROUP BY u.id`, id))
}

// AccountByLogin fetches an account by email or phone.
func (r *PGRepository) AccountByLogin(ctx context.Context, login string) (Account, error) {
	login = strings.TrimSpace(login)
	return r.scanAccount(r.db.QueryRow(ctx, accountSelect+`WHERE lower(u.email) = lower($1) OR u.phone = $1 GROUP BY u.id ORDER BY u.id LIMIT 1`, login))
}

func (r *PGRepository) scanAccount(row pgx.Row) (Account, error) {
	var (
		acct   Account
		status string
	)
	if err := row.Scan(&acct.ID, &acct.Name, &acct.Email, &acct.Phone, &acct.PasswordHash, &status, &acct.Roles); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, ErrAccountNotFound
		}
		return Account{}, fmt.Errorf("auth: scan account: %w", err)
	}
	acct.Status = rbac.AccountStatus(status)
	return acct, nil
}

// CreateSession records an issued token and stamps the last login time.
func (r *PGRepository) CreateSession(ctx context.Context, s Session) error {
	now := time.Now().UTC()
	_, err := r.db.Exec(ctx, `INSERT INTO auth_sessions (id, user_id, created_at, expires_at, ip, user_agent)
VALUES ($1, $2, $3, $4, $5, $6)`,
		s.ID, s.UserID, now, s.ExpiresAt.UTC(),
		pgtype.Text{String: s.IP, Valid: s.IP != ""},
		pgtype.Text{String: s.UserAgent, Valid: s.UserAgent != ""},
	)
	if err != nil {
		return fmt.Errorf("auth: create session: %w", err)
	}
	if _, err := r.db.Exec(ctx, `UPDATE users SET last_login_at = $2 WHERE id = $1`, s.UserID, now); err != nil {
		return fmt.Errorf("auth: stamp last login: %w", err)
	}
	return nil
}

// EndSession marks a session as logged out.
func (r *PGRepository) EndSession(ctx context.Context, id string) error {
	_, err := r.db.Exec(ctx, `UPDATE auth_sessions SET ended_at = now() WHERE id = $1 AND ended_at IS NULL`, id)
	if err != nil {
		return fmt.Errorf("auth: end session: %w", err)
	}
	return nil
}

var (
	_ AccountStore = (*PGRepository)(nil)
	_ SessionStore = (*PGRepository)(nil)
)
