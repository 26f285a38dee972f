package audithttp

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/yyupcompany/kyyupgame-sub030/internal/gate"
	"github.com/yyupcompany/kyyupgame-sub030/internal/platform/httpx"
	"github.com/yyupcompany/kyyupgame-sub030/internal/rbac"
)

const rateLimit = 30
const rateWindow = time.Minute

// MountRoutes registers the operation log endpoints.
func (h *Handler) MountRoutes(r chi.Router) {
	if h == nil {
		return
	}
	limiter := httprate.Limit(rateLimit, rateWindow,
		httprate.WithKeyFuncs(rateLimitKey),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			httpx.Fail(w, http.StatusTooManyRequests, "too many requests", httpx.CodeTooManyRequests)
		}),
	)
	r.Group(func(gr chi.Router) {
		gr.Use(h.guard.Require(rbac.OperationLogView))
		gr.Use(limiter)
		gr.Get("/", h.handleList)
	})
}

// rateLimitKey keys by principal when the gate has run and by IP otherwise.
func rateLimitKey(r *http.Request) (string, error) {
	if p, ok := gate.PrincipalFrom(r.Context()); ok && p.ID > 0 {
		return "user:" + strconv.FormatInt(p.ID, 10), nil
	}
	key, err := httprate.KeyByIP(r)
	if err != nil {
		return "", err
	}
	return "ip:" + key, nil
}
