package gate

import (
	"context"

	"github.com/yyupcompany/kyyupgame-sub030/internal/rbac"
)

type principalContextKey struct{}

// WithPrincipal stores the verified principal in ctx.
func WithPrincipal(ctx context.Context, p rbac.Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, p)
}

// PrincipalFrom returns the principal attached by the gate.
func PrincipalFrom(ctx context.Context) (rbac.Principal, bool) {
	p, ok := ctx.Value(principalContextKey{}).(rbac.Principal)
	return p, ok
}
