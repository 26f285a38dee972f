package auth

import (
	"context"
	"time"

	"github.com/yyupcompany/kyyupgame-sub030/internal/rbac"
)

// Account is the stored identity behind a token subject.
type Account struct {
	ID           int64
	Name         string
	Email        string
	Phone        string
	PasswordHash string
	Status       rbac.AccountStatus
	Roles        []string
}

// Session records one issued access token.
type Session struct {
	ID        string
	UserID    int64
	ExpiresAt time.Time
	IP        string
	UserAgent string
}

// AccountStore loads accounts with their current role assignments.
// Lookups return ErrAccountNotFound for unknown accounts.
type AccountStore interface {
	AccountByID(ctx context.Context, id int64) (Account, error)
	AccountByLogin(ctx context.Context, login string) (Account, error)
}

// SessionStore persists issued tokens for the operation history.
type SessionStore interface {
	CreateSession(ctx context.Context, s Session) error
	EndSession(ctx context.Context, id string) error
}
