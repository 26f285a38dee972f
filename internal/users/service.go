package users

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/yyupcompany/kyyupgame-sub030/internal/rbac"
	"github.com/yyupcompany/kyyupgame-sub030/internal/shared"
)

const maxPerPage = 100

// RepositoryPort defines data access methods for users.
type RepositoryPort interface {
	ListUsers(ctx context.Context, f ListFilter, offset, limit int) ([]User, int, error)
	UpdateStatus(ctx context.Context, id int64, status rbac.AccountStatus) error
	ReplaceRoles(ctx context.Context, id int64, codes []string) error
}

// Page is one page of a user listing.
type Page struct {
	Users  []User            `json:"users"`
	Paging shared.Pagination `json:"paging"`
}

// Service handles user business logic.
type Service struct {
	repo   RepositoryPort
	logger *slog.Logger
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, logger: logger}
}

// ListUsers returns a filtered page of users.
func (s *Service) ListUsers(ctx context.Context, f ListFilter) (Page, error) {
	if f.Status != "" && !f.Status.Valid() {
		return Page{}, ErrInvalidStatus
	}
	if f.PerPage > maxPerPage {
		f.PerPage = maxPerPage
	}
	paging := shared.NewPagination(f.Page, f.PerPage, 0)
	rows, total, err := s.repo.ListUsers(ctx, f, paging.Offset(), paging.PerPage)
	if err != nil {
		return Page{}, err
	}
	if rows == nil {
		rows = []User{}
	}
	return Page{Users: rows, Paging: shared.NewPagination(paging.Page, paging.PerPage, total)}, nil
}

// SetStatus changes a user's account status. Principals cannot change their
// own status.
func (s *Service) SetStatus(ctx context.Context, actor rbac.Principal, id int64, status rbac.AccountStatus) error {
	if !status.Valid() {
		return ErrInvalidStatus
	}
	if actor.ID == id {
		return ErrSelfModification
	}
	if err := s.repo.UpdateStatus(ctx, id, status); err != nil {
		return err
	}
	s.logger.Info("user status changed",
		slog.Int64("user_id", id),
		slog.String("status", string(status)),
		slog.Int64("actor_id", actor.ID),
	)
	return nil
}

// SetRoles replaces a user's role assignments. The new roles apply from the
// user's next request.
func (s *Service) SetRoles(ctx context.Context, actor rbac.Principal, id int64, codes []string) ([]string, error) {
	if actor.ID == id {
		return nil, ErrSelfModification
	}
	normalized := rbac.NormalizeRoleCodes(codes)
	if err := s.repo.ReplaceRoles(ctx, id, normalized); err != nil {
		return nil, fmt.Errorf("replace roles for user %d: %w", id, err)
	}
	s.logger.Info("user roles changed",
		slog.Int64("user_id", id),
		slog.Any("roles", normalized),
		slog.Int64("actor_id", actor.ID),
	)
	if normalized == nil {
		normalized = []string{}
	}
	return normalized, nil
}
