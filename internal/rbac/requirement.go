package rbac

import "strings"

// Requirement is the set of permissions a route demands. A principal
// satisfies it only when it holds every member. The zero Requirement is
// empty and demands authentication alone.
type Requirement struct {
	perms []Permission
}

// Require builds a Requirement from perms, dropping duplicates. It panics on
// a zero Permission so misconfigured routes fail at startup.
func Require(perms ...Permission) Requirement {
	if len(perms) == 0 {
		return Requirement{}
	}
	seen := make(map[Permission]struct{}, len(perms))
	out := make([]Permission, 0, len(perms))
	for _, p := range perms {
		if p.IsZero() {
			panic("rbac: zero permission in requirement")
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return Requirement{perms: out}
}

// Empty reports whether the requirement names no permission.
func (r Requirement) Empty() bool { return len(r.perms) == 0 }

// Permissions returns a copy of the required permissions.
func (r Requirement) Permissions() []Permission {
	if len(r.perms) == 0 {
		return nil
	}
	out := make([]Permission, len(r.perms))
	copy(out, r.perms)
	return out
}

func (r Requirement) String() string {
	codes := make([]string, len(r.perms))
	for i, p := range r.perms {
		codes[i] = p.code
	}
	return strings.Join(codes, "+")
}
