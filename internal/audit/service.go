package audit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/yyupcompany/kyyupgame-sub030/internal/shared"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Repository is the persistence surface of the operation log.
type Repository interface {
	Insert(ctx context.Context, e Entry) error
	Window(ctx context.Context, f Filters, offset, limit int) ([]Entry, error)
	Purge(ctx context.Context, cutoff time.Time) (int64, error)
}

// Result wraps a page of entries.
type Result struct {
	Entries []Entry           `json:"entries"`
	Paging  shared.Pagination `json:"paging"`
}

// Service coordinates operation log reads and the background jobs.
type Service struct {
	repo   Repository
	logger *slog.Logger
	now    func() time.Time
}

// NewService constructs a Service.
func NewService(repo Repository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, logger: logger, now: time.Now}
}

// List returns one page of entries, newest first.
func (s *Service) List(ctx context.Context, f Filters) (Result, error) {
	if s.repo == nil {
		return Result{}, fmt.Errorf("audit: repository not configured")
	}
	pageSize := f.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	page := f.Page
	if page <= 0 {
		page = 1
	}
	rows, err := s.repo.Window(ctx, f, (page-1)*pageSize, pageSize+1)
	if err != nil {
		return Result{}, err
	}
	hasNext := len(rows) > pageSize
	if hasNext {
		rows = rows[:pageSize]
	}
	if rows == nil {
		rows = []Entry{}
	}
	return Result{Entries: rows, Paging: shared.NewPaging(page, pageSize, hasNext)}, nil
}

// HandleRecord persists an entry enqueued by the Emitter.
func (s *Service) HandleRecord(ctx context.Context, t *asynq.Task) error {
	var e Entry
	if err := decodePayload(t, &e); err != nil {
		return err
	}
	return s.repo.Insert(ctx, e)
}

// HandlePurge removes entries outside the retention window.
func (s *Service) HandlePurge(ctx context.Context, t *asynq.Task) error {
	var payload PurgePayload
	if err := decodePayload(t, &payload); err != nil {
		return err
	}
	if payload.Retention <= 0 {
		return fmt.Errorf("audit: retention must be positive: %w", asynq.SkipRetry)
	}
	cutoff := s.now().Add(-payload.Retention)
	n, err := s.repo.Purge(ctx, cutoff)
	if err != nil {
		return err
	}
	s.logger.Info("audit purge", slog.Int64("deleted", n), slog.Time("cutoff", cutoff))
	return nil
}
