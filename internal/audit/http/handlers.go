package audithttp

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/yyupcompany/kyyupgame-sub030/internal/audit"
	"github.com/yyupcompany/kyyupgame-sub030/internal/gate"
	"github.com/yyupcompany/kyyupgame-sub030/internal/platform/httpx"
)

const (
	defaultPageSize   = 20
	maxPageSize       = 100
	defaultDateRange  = 7 * 24 * time.Hour
	maxDateRangeHours = 24 * 90
	dateLayout        = "2006-01-02"
)

// LogService lists operation log entries.
type LogService interface {
	List(ctx context.Context, filters audit.Filters) (audit.Result, error)
}

// Handler serves the operation log.
type Handler struct {
	logger  *slog.Logger
	service LogService
	guard   gate.Guard
	now     func() time.Time
}

// NewHandler constructs an operation log handler.
func NewHandler(logger *slog.Logger, service LogService, guard gate.Guard) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, guard: guard, now: time.Now}
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	filters, err := h.parseFilters(r)
	if err != nil {
		var v validationError
		if errors.As(err, &v) {
			httpx.Fail(w, http.StatusBadRequest, "invalid "+v.field, httpx.CodeValidation)
			return
		}
		httpx.RespondError(w, err)
		return
	}
	result, err := h.service.List(r.Context(), filters)
	if err != nil {
		h.logger.Error("list operation logs", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, "ok", result)
}

func (h *Handler) parseFilters(r *http.Request) (audit.Filters, error) {
	q := r.URL.Query()
	now := h.now().UTC()

	toStr := strings.TrimSpace(q.Get("to"))
	if toStr == "" {
		toStr = now.Format(dateLayout)
	}
	toDay, err := time.Parse(dateLayout, toStr)
	if err != nil {
		return audit.Filters{}, validationError{field: "to"}
	}
	fromStr := strings.TrimSpace(q.Get("from"))
	if fromStr == "" {
		fromStr = toDay.Add(-defaultDateRange).Format(dateLayout)
	}
	fromDay, err := time.Parse(dateLayout, fromStr)
	if err != nil {
		return audit.Filters{}, validationError{field: "from"}
	}
	if fromDay.After(toDay) || toDay.Sub(fromDay) > maxDateRangeHours*time.Hour {
		return audit.Filters{}, validationError{field: "range"}
	}

	page, err := positiveInt(q.Get("page"), 1)
	if err != nil {
		return audit.Filters{}, validationError{field: "page"}
	}
	pageSize, err := positiveInt(q.Get("page_size"), defaultPageSize)
	if err != nil {
		return audit.Filters{}, validationError{field: "page_size"}
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	var actorID int64
	if v := strings.TrimSpace(q.Get("actor_id")); v != "" {
		actorID, err = strconv.ParseInt(v, 10, 64)
		if err != nil || actorID <= 0 {
			return audit.Filters{}, validationError{field: "actor_id"}
		}
	}
	outcome := strings.TrimSpace(q.Get("outcome"))
	switch outcome {
	case "", "allowed", "unauthenticated", "forbidden", "unavailable":
	default:
		return audit.Filters{}, validationError{field: "outcome"}
	}

	return audit.Filters{
		From:     fromDay,
		To:       toDay.Add(24 * time.Hour),
		ActorID:  actorID,
		Outcome:  outcome,
		Action:   strings.TrimSpace(q.Get("action")),
		Page:     page,
		PageSize: pageSize,
	}, nil
}

func positiveInt(raw string, fallback int) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, validationError{}
	}
	return n, nil
}

type validationError struct {
	field string
}

func (validationError) Error() string {
	return "validation failed"
}
