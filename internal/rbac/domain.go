package rbac

import (
	"sort"
	"strings"
	"time"
)

// AccountStatus is the lifecycle state of a user account.
type AccountStatus string

const (
	StatusActive   AccountStatus = "active"
	StatusInactive AccountStatus = "inactive"
	StatusLocked   AccountStatus = "locked"
)

// Valid reports whether s is a known status.
func (s AccountStatus) Valid() bool {
	switch s {
	case StatusActive, StatusInactive, StatusLocked:
		return true
	}
	return false
}

// Role groups permissions. A wildcard role grants every permission.
type Role struct {
	ID          int64        `json:"id"`
	Code        string       `json:"code"`
	Name        string       `json:"name"`
	Wildcard    bool         `json:"wildcard"`
	Active      bool         `json:"active"`
	Permissions []Permission `json:"permissions"`
}

// Grant is the effective permission set of a principal.
type Grant struct {
	all   bool
	perms map[Permission]struct{}
}

// NewGrant builds a Grant holding perms.
func NewGrant(perms ...Permission) Grant {
	g := Grant{perms: make(map[Permission]struct{}, len(perms))}
	for _, p := range perms {
		if !p.IsZero() {
			g.perms[p] = struct{}{}
		}
	}
	return g
}

// WildcardGrant holds every permission.
func WildcardGrant() Grant { return Grant{all: true} }

// Wildcard reports whether the grant came from a wildcard role.
func (g Grant) Wildcard() bool { return g.all }

// Has reports whether p is granted.
func (g Grant) Has(p Permission) bool {
	if p.IsZero() {
		return false
	}
	if g.all {
		return true
	}
	_, ok := g.perms[p]
	return ok
}

// Missing returns the required permissions the grant lacks, in requirement
// order.
func (g Grant) Missing(req Requirement) []Permission {
	var missing []Permission
	for _, p := range req.perms {
		if !g.Has(p) {
			missing = append(missing, p)
		}
	}
	return missing
}

// Permissions lists the granted permissions sorted by code. A wildcard grant
// expands to the full catalog.
func (g Grant) Permissions() []Permission {
	if g.all {
		return AllPermissions()
	}
	out := make([]Permission, 0, len(g.perms))
	for p := range g.perms {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].code < out[j].code })
	return out
}

// Principal is the verified actor of a request.
type Principal struct {
	ID     int64
	Name   string
	Roles  []string
	Status AccountStatus
	Grant  Grant

	// CredentialID and CredentialExpiry identify the token the principal
	// was verified from.
	CredentialID     string
	CredentialExpiry time.Time
}

// Can reports whether the principal holds p.
func (p Principal) Can(perm Permission) bool { return p.Grant.Has(perm) }

// HasRole reports whether the principal carries the role code.
func (p Principal) HasRole(code string) bool {
	code = NormalizeRoleCode(code)
	for _, r := range p.Roles {
		if NormalizeRoleCode(r) == code {
			return true
		}
	}
	return false
}

// HasAnyRole reports whether the principal carries at least one of codes.
func (p Principal) HasAnyRole(codes ...string) bool {
	for _, c := range codes {
		if p.HasRole(c) {
			return true
		}
	}
	return false
}

// NormalizeRoleCode canonicalizes a role code.
func NormalizeRoleCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// NormalizeRoleCodes canonicalizes, de-duplicates and sorts role codes,
// dropping blanks.
func NormalizeRoleCodes(codes []string) []string {
	seen := make(map[string]struct{}, len(codes))
	out := make([]string, 0, len(codes))
	for _, c := range codes {
		c = NormalizeRoleCode(c)
		if c == "" {
			continue
		}
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}
