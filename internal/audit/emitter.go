package audit

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/hibiken/asynq"

	"github.com/yyupcompany/kyyupgame-sub030/internal/gate"
)

// Enqueuer submits tasks to the background queue.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Emitter forwards gate decisions to the queue without blocking the request.
// Enqueue failures are logged and dropped.
type Emitter struct {
	queue   Enqueuer
	opts    []asynq.Option
	timeout time.Duration
	logger  *slog.Logger
	filter  func(gate.Decision) bool
	wg      sync.WaitGroup
}

// EmitterOption customises an Emitter.
type EmitterOption func(*Emitter)

// WithFilter records only decisions for which keep returns true.
func WithFilter(keep func(gate.Decision) bool) EmitterOption {
	return func(e *Emitter) { e.filter = keep }
}

// WithTaskOptions sets asynq options applied to every enqueue.
func WithTaskOptions(opts ...asynq.Option) EmitterOption {
	return func(e *Emitter) { e.opts = append(e.opts, opts...) }
}

// NewEmitter constructs an Emitter.
func NewEmitter(queue Enqueuer, logger *slog.Logger, opts ...EmitterOption) *Emitter {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Emitter{queue: queue, timeout: 2 * time.Second, logger: logger}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Record implements gate.Recorder.
func (e *Emitter) Record(ctx context.Context, d gate.Decision) {
	if e == nil || e.queue == nil {
		return
	}
	if e.filter != nil && !e.filter(d) {
		return
	}
	task, err := NewRecordTask(FromDecision(d))
	if err != nil {
		e.logger.Warn("audit encode", slog.Any("error", err))
		return
	}
	detached := context.WithoutCancel(ctx)
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		ctx, cancel := context.WithTimeout(detached, e.timeout)
		defer cancel()
		if _, err := e.queue.EnqueueContext(ctx, task, e.opts...); err != nil {
			e.logger.Warn("audit enqueue", slog.String("request_id", d.RequestID), slog.Any("error", err))
		}
	}()
}

// Wait blocks until in-flight enqueues finish.
func (e *Emitter) Wait() {
	if e == nil {
		return
	}
	e.wg.Wait()
}

// SkipAllowedReads drops allowed GET and HEAD requests and keeps the rest.
func SkipAllowedReads(d gate.Decision) bool {
	if d.Outcome != gate.OutcomeAllowed {
		return true
	}
	return d.Method != "GET" && d.Method != "HEAD"
}

var _ gate.Recorder = (*Emitter)(nil)
