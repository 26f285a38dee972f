// Package gate guards HTTP handlers. Each request passes a fixed sequence of
// stages (extract credential, verify, match role, authorize) and reaches the
// protected handler only when every stage succeeds.
package gate

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/yyupcompany/kyyupgame-sub030/internal/auth"
	"github.com/yyupcompany/kyyupgame-sub030/internal/platform/httpx"
	"github.com/yyupcompany/kyyupgame-sub030/internal/rbac"
)

// DefaultLookupTimeout bounds the verify and authorize stages together.
const DefaultLookupTimeout = 2 * time.Second

// Verifier establishes identity from a raw bearer token.
type Verifier interface {
	Verify(ctx context.Context, raw string) (rbac.Principal, error)
}

// Authorizer attaches the effective grant and checks it against req.
type Authorizer interface {
	Authorize(ctx context.Context, p rbac.Principal, req rbac.Requirement) (rbac.Principal, error)
}

// Recorder receives every decision. Implementations must return promptly
// and must not fail the request.
type Recorder interface {
	Record(ctx context.Context, d Decision)
}

// Observer counts decisions by outcome.
type Observer interface {
	ObserveGateDecision(outcome string)
}

// Config wires a Gate.
type Config struct {
	Verifier   Verifier
	Authorizer Authorizer
	Logger     *slog.Logger
	Recorder   Recorder
	Observer   Observer

	// LookupTimeout bounds all upstream lookups of one request.
	LookupTimeout time.Duration
	// UpstreamStatus is returned when a lookup fails. Only 401 and 503 are
	// accepted; anything else falls back to 503.
	UpstreamStatus int
	Now            func() time.Time
}

// Gate builds guard middleware.
type Gate struct {
	verifier       Verifier
	authorizer     Authorizer
	logger         *slog.Logger
	recorder       Recorder
	observer       Observer
	timeout        time.Duration
	upstreamStatus int
	now            func() time.Time
}

// New constructs a Gate. It panics without a Verifier or Authorizer.
func New(cfg Config) *Gate {
	if cfg.Verifier == nil || cfg.Authorizer == nil {
		panic("gate: verifier and authorizer are required")
	}
	g := &Gate{
		verifier:       cfg.Verifier,
		authorizer:     cfg.Authorizer,
		logger:         cfg.Logger,
		recorder:       cfg.Recorder,
		observer:       cfg.Observer,
		timeout:        cfg.LookupTimeout,
		upstreamStatus: cfg.UpstreamStatus,
		now:            cfg.Now,
	}
	if g.logger == nil {
		g.logger = slog.Default()
	}
	if g.timeout <= 0 {
		g.timeout = DefaultLookupTimeout
	}
	if g.upstreamStatus != http.StatusUnauthorized {
		g.upstreamStatus = http.StatusServiceUnavailable
	}
	if g.now == nil {
		g.now = time.Now
	}
	return g
}

// Authenticated admits any verified principal with an active account.
func (g *Gate) Authenticated() func(http.Handler) http.Handler {
	return g.guard(rbac.Requirement{})
}

// Require admits principals holding every listed permission. It panics when
// perms is empty or contains a zero Permission.
func (g *Gate) Require(perms ...rbac.Permission) func(http.Handler) http.Handler {
	req := rbac.Require(perms...)
	if req.Empty() {
		panic("gate: Require needs at least one permission")
	}
	return g.guard(req)
}

// RequireRole admits principals carrying at least one of the listed role
// codes. Codes are normalized; it panics when none are given.
func (g *Gate) RequireRole(codes ...string) func(http.Handler) http.Handler {
	roles := rbac.NormalizeRoleCodes(codes)
	if len(roles) == 0 {
		panic("gate: RequireRole needs at least one role")
	}
	return g.guard(rbac.Requirement{}, roles...)
}

func (g *Gate) guard(req rbac.Requirement, roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			d, err := g.evaluate(r, req, roles)
			g.report(r.Context(), d, err)
			if err != nil {
				g.reject(w, d)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), d.Principal)))
		})
	}
}

// pass carries state between stages.
type pass struct {
	req      *http.Request
	required rbac.Requirement
	roles    []string
	raw      string
	decision Decision
}

type stage func(ctx context.Context, p *pass) error

func (g *Gate) stages() []stage {
	return []stage{g.extract, g.verify, g.matchRole, g.authorize}
}

func (g *Gate) evaluate(r *http.Request, req rbac.Requirement, roles []string) (Decision, error) {
	p := &pass{req: r, required: req, roles: roles, decision: g.newDecision(r, req)}
	p.decision.Roles = roles

	ctx, cancel := context.WithTimeout(r.Context(), g.timeout)
	defer cancel()

	for _, run := range g.stages() {
		if err := run(ctx, p); err != nil {
			g.classify(&p.decision, err)
			return p.decision, err
		}
	}
	p.decision.Outcome = OutcomeAllowed
	return p.decision, nil
}

func (g *Gate) extract(_ context.Context, p *pass) error {
	raw, err := auth.ExtractBearer(p.req.Header.Get("Authorization"))
	if err != nil {
		return err
	}
	p.raw = raw
	return nil
}

func (g *Gate) verify(ctx context.Context, p *pass) error {
	principal, err := g.verifier.Verify(ctx, p.raw)
	if err != nil {
		return err
	}
	p.raw = ""
	p.decision.State = StateAuthenticated
	p.decision.Principal = principal
	return nil
}

func (g *Gate) matchRole(_ context.Context, p *pass) error {
	if len(p.roles) == 0 || p.decision.Principal.HasAnyRole(p.roles...) {
		return nil
	}
	return &rbac.RoleDeniedError{Allowed: p.roles}
}

func (g *Gate) authorize(ctx context.Context, p *pass) error {
	principal, err := g.authorizer.Authorize(ctx, p.decision.Principal, p.required)
	p.decision.Principal = principal
	if err != nil {
		return err
	}
	p.decision.State = StateAuthorized
	return nil
}

// classify maps a stage error onto an outcome. Errors that are neither a
// credential rejection nor a denial are treated as upstream failures.
func (g *Gate) classify(d *Decision, err error) {
	var (
		rejection *auth.Error
		denied    *rbac.DeniedError
		wrongRole *rbac.RoleDeniedError
	)
	switch {
	case errors.As(err, &rejection):
		d.Outcome = OutcomeUnauthenticated
		d.Reason = rejection.Kind.String()
	case errors.As(err, &denied):
		d.Outcome = OutcomeForbidden
		d.Reason = "missing_permissions"
		d.Missing = denied.Missing
	case errors.As(err, &wrongRole):
		d.Outcome = OutcomeForbidden
		d.Reason = "missing_role"
	default:
		d.Outcome = OutcomeUnavailable
		d.Reason = "upstream_unavailable"
		if errors.Is(err, context.DeadlineExceeded) {
			d.Reason = "upstream_timeout"
		}
	}
}

func (g *Gate) reject(w http.ResponseWriter, d Decision) {
	switch d.Outcome {
	case OutcomeForbidden:
		httpx.Fail(w, http.StatusForbidden, "forbidden", httpx.CodeForbidden)
	case OutcomeUnauthenticated:
		w.Header().Set("WWW-Authenticate", `Bearer realm="kyyup"`)
		httpx.Fail(w, http.StatusUnauthorized, "unauthorized", httpx.CodeUnauthorized)
	default:
		if g.upstreamStatus == http.StatusUnauthorized {
			w.Header().Set("WWW-Authenticate", `Bearer realm="kyyup"`)
			httpx.Fail(w, http.StatusUnauthorized, "unauthorized", httpx.CodeUnauthorized)
			return
		}
		w.Header().Set("Retry-After", "1")
		httpx.Fail(w, http.StatusServiceUnavailable, "service temporarily unavailable", httpx.CodeUpstreamUnavailable)
	}
}

func (g *Gate) report(ctx context.Context, d Decision, err error) {
	attrs := []any{
		slog.String("outcome", string(d.Outcome)),
		slog.String("method", d.Method),
		slog.String("path", d.Path),
		slog.String("request_id", d.RequestID),
	}
	if d.Authenticated() {
		attrs = append(attrs, slog.Int64("user_id", d.Principal.ID))
	}
	switch d.Outcome {
	case OutcomeAllowed:
		g.logger.Debug("gate allowed", attrs...)
	case OutcomeUnavailable:
		g.logger.Error("gate upstream failure", append(attrs, slog.Any("error", err))...)
	default:
		attrs = append(attrs, slog.String("reason", d.Reason))
		if len(d.Missing) > 0 {
			attrs = append(attrs, slog.String("missing", rbac.Require(d.Missing...).String()))
		}
		g.logger.Warn("gate denied", attrs...)
	}
	if g.observer != nil {
		g.observer.ObserveGateDecision(string(d.Outcome))
	}
	if g.recorder != nil {
		g.recorder.Record(ctx, d)
	}
}

func (g *Gate) newDecision(r *http.Request, req rbac.Requirement) Decision {
	d := Decision{
		State:     StateUnauthenticated,
		Required:  req.Permissions(),
		Method:    r.Method,
		Path:      r.URL.Path,
		RemoteIP:  remoteIP(r.RemoteAddr),
		UserAgent: r.UserAgent(),
		RequestID: middleware.GetReqID(r.Context()),
		At:        g.now(),
	}
	if rc := chi.RouteContext(r.Context()); rc != nil {
		d.Route = rc.RoutePattern()
	}
	return d
}

func remoteIP(addr string) string {
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}

// Guard is the middleware surface handlers mount routes with.
type Guard interface {
	Authenticated() func(http.Handler) http.Handler
	Require(perms ...rbac.Permission) func(http.Handler) http.Handler
	RequireRole(codes ...string) func(http.Handler) http.Handler
}

var _ Guard = (*Gate)(nil)
