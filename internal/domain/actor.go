package domain

import "strings"

// Role is the caller's workflow role as supplied by the identity provider.
// Every component consumes this one enum; there are no per-endpoint role
// strings.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleManager   Role = "manager"
	RoleDeveloper Role = "developer"
	RoleTester    Role = "tester"
	RoleViewer    Role = "viewer"

	// RoleSystem is used for writes the service performs on its own behalf
	// (bug bridge, sprint lifecycle, reconciliation). It never arrives from
	// the identity provider.
	RoleSystem Role = "system"
)

// Roles lists the externally assignable roles.
var Roles = []Role{RoleAdmin, RoleManager, RoleDeveloper, RoleTester, RoleViewer}

// ParseRole converts a header or config value to a Role. Unknown values are
// returned as-is; IsValid reports false for them and every rule denies them.
func ParseRole(s string) Role {
	return Role(strings.ToLower(strings.TrimSpace(s)))
}

// IsValid returns true if the role is one of the externally assignable roles.
func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleDeveloper, RoleTester, RoleViewer:
		return true
	default:
		return false
	}
}

// IsPrivileged reports whether the role may create projects, work items,
// boards and sprints, and override workflow rules.
func (r Role) IsPrivileged() bool {
	return r == RoleAdmin || r == RoleManager
}

// CanContribute reports whether the role may perform ordinary mutations
// such as commenting, filing bugs and arranging board cards.
func (r Role) CanContribute() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleDeveloper, RoleTester:
		return true
	default:
		return false
	}
}

// String implements fmt.Stringer.
func (r Role) String() string {
	return string(r)
}

// Actor identifies who performs an operation. It is trusted as supplied.
type Actor struct {
	ID   string
	Role Role
}

// SystemActor performs side-effect writes on behalf of the service.
var SystemActor = Actor{ID: "system", Role: RoleSystem}

// IsSystem reports whether the actor is the service itself.
func (a Actor) IsSystem() bool {
	return a.Role == RoleSystem
}
