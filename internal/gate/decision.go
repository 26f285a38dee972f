package gate

import (
	"time"

	"github.com/yyupcompany/kyyupgame-sub030/internal/rbac"
)

// State is how far a request got through the gate.
type State int

const (
	StateUnauthenticated State = iota
	StateAuthenticated
	StateAuthorized
)

func (s State) String() string {
	switch s {
	case StateAuthenticated:
		return "authenticated"
	case StateAuthorized:
		return "authorized"
	}
	return "unauthenticated"
}

// Outcome is the verdict returned to the client.
type Outcome string

const (
	OutcomeAllowed         Outcome = "allowed"
	OutcomeUnauthenticated Outcome = "unauthenticated"
	OutcomeForbidden       Outcome = "forbidden"
	OutcomeUnavailable     Outcome = "unavailable"
)

// Decision describes one pass through the gate.
type Decision struct {
	State     State
	Outcome   Outcome
	Principal rbac.Principal
	Required  []rbac.Permission
	Missing   []rbac.Permission
	// Roles lists the role codes a role guard accepts, any one sufficing.
	Roles     []string
	Reason    string
	Method    string
	Path      string
	Route     string
	RemoteIP  string
	UserAgent string
	RequestID string
	At        time.Time
}

// Authenticated reports whether a principal was established.
func (d Decision) Authenticated() bool { return d.State >= StateAuthenticated }
