// Package rbac decides what a caller may do inside its organization.
//
// Every function here is pure: it inspects the caller's resolved identity and
// the target's scoping attributes and returns a decision. Nothing is loaded
// from storage and nothing is cached, so the package is safe for concurrent
// use without coordination.
package rbac

import "strings"

// Role is the closed set of organization roles shared with the persistence schema.
type Role string

const (
	RoleOwner     Role = "OWNER"
	RoleOrgAdmin  Role = "ORG_ADMIN"
	RoleDeptAdmin Role = "DEPT_ADMIN"
	RoleEditor    Role = "EDITOR"
	RoleViewer    Role = "VIEWER"
)

// Roles lists every known role from most to least privileged.
var Roles = []Role{RoleOwner, RoleOrgAdmin, RoleDeptAdmin, RoleEditor, RoleViewer}

// tier classifies a role. tierNone is what unknown values map to.
type tier int

const (
	tierNone tier = iota
	tierViewer
	tierContributor
	tierDeptAdmin
	tierOrgWide
)

func (r Role) tier() tier {
	switch r {
	case RoleOwner, RoleOrgAdmin:
		return tierOrgWide
	case RoleDeptAdmin:
		return tierDeptAdmin
	case RoleEditor:
		return tierContributor
	case RoleViewer:
		return tierViewer
	default:
		return tierNone
	}
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool { return r.tier() != tierNone }

func (r Role) String() string { return string(r) }

// ParseRole converts s into a Role. Matching ignores case and surrounding space.
func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", false
	}
	return r, true
}
