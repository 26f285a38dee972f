package users

import (
	"errors"
	"time"

	"github.com/yyupcompany/kyyupgame-sub030/internal/rbac"
)

var (
	// ErrNotFound indicates a missing user.
	ErrNotFound = errors.New("users: not found")
	// ErrUnknownRole indicates a role code with no matching role.
	ErrUnknownRole = errors.New("users: unknown role")
	// ErrSelfModification blocks administrators from changing their own access.
	ErrSelfModification = errors.New("users: cannot change own status or roles")
	// ErrInvalidStatus indicates an unsupported account status.
	ErrInvalidStatus = errors.New("users: invalid status")
)

// User represents a user account for management.
type User struct {
	ID          int64              `json:"id"`
	Name        string             `json:"name"`
	Email       string             `json:"email"`
	Phone       string             `json:"phone,omitempty"`
	Status      rbac.AccountStatus `json:"status"`
	Roles       []string           `json:"roles"`
	CreatedAt   time.Time          `json:"created_at"`
	LastLoginAt *time.Time         `json:"last_login_at,omitempty"`
}

// ListFilter narrows a user listing.
type ListFilter struct {
	Query   string
	Status  rbac.AccountStatus
	Role    string
	Page    int
	PerPage int
}
