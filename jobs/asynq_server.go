package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"slices"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"

	"github.com/yyupcompany/kyyupgame-sub030/internal/gate"
	jobmetrics "github.com/yyupcompany/kyyupgame-sub030/internal/jobs"
	"github.com/yyupcompany/kyyupgame-sub030/internal/platform/httpx"
)

// Worker wraps the Asynq server and optional scheduler.
type Worker struct {
	server    *asynq.Server
	mux       *asynq.ServeMux
	scheduler *asynq.Scheduler
	logger    *slog.Logger
}

// TaskHandler allows injecting custom Asynq handlers during worker setup.
type TaskHandler struct {
	Type    string
	Handler asynq.HandlerFunc
}

// CronRegistration wires a cron expression to a prepared task.
type CronRegistration struct {
	Spec    string
	Task    *asynq.Task
	Options []asynq.Option
}

// WorkerConfig collects dependencies required to bootstrap the worker.
type WorkerConfig struct {
	RedisOpts   asynq.RedisClientOpt
	Logger      *slog.Logger
	Metrics     *jobmetrics.Metrics
	Concurrency int
	Handlers    []TaskHandler
	Cron        []CronRegistration
}

// NewWorker constructs a Worker instance.
func NewWorker(cfg WorkerConfig) (*Worker, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 5
	}
	srv := asynq.NewServer(cfg.RedisOpts, asynq.Config{
		Concurrency: concurrency,
		Queues:      Queues(),
		Logger:      asynqLogger{logger: logger},
	})
	mux := asynq.NewServeMux()
	for _, h := range cfg.Handlers {
		if h.Type == "" || h.Handler == nil {
			continue
		}
		mux.HandleFunc(h.Type, Instrument(cfg.Metrics, logger, h.Handler))
	}

	var scheduler *asynq.Scheduler
	if len(cfg.Cron) > 0 {
		scheduler = asynq.NewScheduler(cfg.RedisOpts, &asynq.SchedulerOpts{Location: time.UTC})
		for _, entry := range cfg.Cron {
			if entry.Spec == "" || entry.Task == nil {
				continue
			}
			if _, err := scheduler.Register(entry.Spec, entry.Task, entry.Options...); err != nil {
				return nil, err
			}
		}
	}

	return &Worker{server: srv, mux: mux, scheduler: scheduler, logger: logger}, nil
}

// Instrument wraps a task handler with run metrics and failure logging.
func Instrument(metrics *jobmetrics.Metrics, logger *slog.Logger, next asynq.HandlerFunc) asynq.HandlerFunc {
	if logger == nil {
		logger = slog.Default()
	}
	return func(ctx context.Context, t *asynq.Task) error {
		tracker := metrics.Track(t.Type())
		err := next(ctx, t)
		if err != nil {
			level := slog.LevelWarn
			if errors.Is(err, asynq.SkipRetry) {
				level = slog.LevelError
			}
			logger.Log(ctx, level, "job failed", slog.String("task", t.Type()), slog.Any("error", err))
		}
		return tracker.End(err)
	}
}

// Run starts processing jobs until context cancellation.
func (w *Worker) Run(ctx context.Context) error {
	if w == nil {
		return errors.New("worker: not configured")
	}
	if w.scheduler != nil {
		if err := w.scheduler.Start(); err != nil {
			return err
		}
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- w.server.Run(w.mux)
	}()
	select {
	case <-ctx.Done():
		if w.scheduler != nil {
			w.scheduler.Shutdown()
		}
		w.server.Shutdown()
		return ctx.Err()
	case err := <-errCh:
		if w.scheduler != nil {
			w.scheduler.Shutdown()
		}
		return err
	}
}

// Client submits jobs to the queue.
type Client struct {
	client  *asynq.Client
	metrics *jobmetrics.Metrics
}

// NewClient constructs an Asynq client.
func NewClient(redisOpts asynq.RedisClientOpt, metrics *jobmetrics.Metrics) (*Client, error) {
	client := asynq.NewClient(redisOpts)
	return &Client{client: client, metrics: metrics}, nil
}

// EnqueueContext submits task, defaulting to QueueDefault when opts name no
// queue.
func (c *Client) EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	queue := queueOf(opts)
	if queue == "" {
		queue = QueueDefault
		opts = append(opts, asynq.Queue(QueueDefault))
	}
	info, err := c.client.EnqueueContext(ctx, task, opts...)
	c.metrics.Enqueued(queue, err)
	return info, err
}

// Close releases client resources.
func (c *Client) Close() error {
	return c.client.Close()
}

func queueOf(opts []asynq.Option) string {
	queue := ""
	for _, opt := range opts {
		if opt == nil || opt.Type() != asynq.QueueOpt {
			continue
		}
		if name, ok := opt.Value().(string); ok {
			queue = name
		}
	}
	return queue
}

// QueueInspector reads queue statistics. *asynq.Inspector satisfies it.
type QueueInspector interface {
	Queues() ([]string, error)
	GetQueueInfo(queue string) (*asynq.QueueInfo, error)
}

// Handler exposes HTTP endpoints for job observability.
type Handler struct {
	inspector QueueInspector
	logger    *slog.Logger
	guard     gate.Guard
}

// NewHandler constructs an HTTP handler for jobs endpoints.
func NewHandler(inspector QueueInspector, logger *slog.Logger, guard gate.Guard) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{inspector: inspector, logger: logger, guard: guard}
}

// MountRoutes attaches job routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(h.guard.RequireRole(OperatorRoles...)).Get("/health", h.health)
}

type queueHealth struct {
	Queue     string `json:"queue"`
	Pending   int    `json:"pending"`
	Active    int    `json:"active"`
	Retry     int    `json:"retry"`
	Archived  int    `json:"archived"`
	Paused    bool   `json:"paused"`
	Available bool   `json:"available"`
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	names := []string{QueueDefault, QueueAudit}
	out := make([]queueHealth, 0, len(names))
	if h.inspector == nil {
		for _, name := range names {
			out = append(out, queueHealth{Queue: name})
		}
		httpx.OK(w, "ok", out)
		return
	}
	known, err := h.inspector.Queues()
	if err != nil {
		h.unavailable(w, err)
		return
	}
	for _, name := range names {
		qh := queueHealth{Queue: name, Available: true}
		if slices.Contains(known, name) {
			info, err := h.inspector.GetQueueInfo(name)
			if err != nil {
				h.unavailable(w, err)
				return
			}
			qh.Pending = info.Pending
			qh.Active = info.Active
			qh.Retry = info.Retry
			qh.Archived = info.Archived
			qh.Paused = info.Paused
		}
		out = append(out, qh)
	}
	httpx.OK(w, "ok", out)
}

func (h *Handler) unavailable(w http.ResponseWriter, err error) {
	h.logger.Warn("jobs health", slog.Any("error", err))
	httpx.Fail(w, http.StatusServiceUnavailable, "queue backend unavailable", httpx.CodeUpstreamUnavailable)
}

type asynqLogger struct {
	logger *slog.Logger
}

func (l asynqLogger) Debug(args ...any) { l.logger.Debug(sprint(args), slog.String("component", "asynq")) }
func (l asynqLogger) Info(args ...any) { l.logger.Info(sprint(args), slog.String("component", "asynq")) }
func (l asynqLogger) Warn(args ...any) { l.logger.Warn(sprint(args), slog.String("component", "asynq")) }
func (l asynqLogger) Error(args ...any) { l.logger.Error(sprint(args), slog.String("component", "asynq")) }

func (l asynqLogger) Fatal(args ...any) {
	l.logger.Error(sprint(args), slog.String("component", "asynq"))
	os.Exit(1)
}

func sprint(args []any) string { return fmt.Sprint(args...) }
