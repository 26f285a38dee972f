package audit

import (
	"time"

	"github.com/yyupcompany/kyyupgame-sub030/internal/gate"
	"github.com/yyupcompany/kyyupgame-sub030/internal/rbac"
)

// Entry is one row of the operation log.
type Entry struct {
	ID         int64          `json:"id,omitempty"`
	ActorID    *int64         `json:"actor_id,omitempty"`
	ActorName  string         `json:"actor_name,omitempty"`
	Action     string         `json:"action"`
	Resource   string         `json:"resource"`
	Outcome    string         `json:"outcome"`
	Reason     string         `json:"reason,omitempty"`
	Meta       map[string]any `json:"meta,omitempty"`
	IP         string         `json:"ip,omitempty"`
	UserAgent  string         `json:"user_agent,omitempty"`
	RequestID  string         `json:"request_id,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// FromDecision converts a gate decision into an operation log entry.
func FromDecision(d gate.Decision) Entry {
	e := Entry{
		Action:     d.Method + " " + routeOrPath(d),
		Resource:   d.Path,
		Outcome:    string(d.Outcome),
		Reason:     d.Reason,
		IP:         d.RemoteIP,
		UserAgent:  d.UserAgent,
		RequestID:  d.RequestID,
		OccurredAt: d.At.UTC(),
		Meta:       map[string]any{"state": d.State.String()},
	}
	if d.Authenticated() {
		id := d.Principal.ID
		e.ActorID = &id
		e.ActorName = d.Principal.Name
		e.Meta["roles"] = d.Principal.Roles
	}
	if len(d.Required) > 0 {
		e.Meta["required"] = codes(d.Required)
	}
	if len(d.Missing) > 0 {
		e.Meta["missing"] = codes(d.Missing)
	}
	if len(d.Roles) > 0 {
		e.Meta["allowed_roles"] = d.Roles
	}
	return e
}

func routeOrPath(d gate.Decision) string {
	if d.Route != "" {
		return d.Route
	}
	return d.Path
}

func codes(perms []rbac.Permission) []string {
	out := make([]string, len(perms))
	for i, p := range perms {
		out[i] = p.String()
	}
	return out
}
