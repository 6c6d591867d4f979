package rbac

import "slices"

// Caller is the authenticated identity a decision is made for.
type Caller struct {
	UserID        string
	OrgID         string
	Role          Role
	DepartmentIDs []string
}

// InDepartment reports whether the caller is a member of departmentID.
func (c Caller) InDepartment(departmentID string) bool {
	if departmentID == "" {
		return false
	}
	return slices.Contains(c.DepartmentIDs, departmentID)
}

// Resource carries the scoping attributes of a persisted entity.
type Resource struct {
	OrgID        string
	DepartmentID string
}

// IsOrgWide reports whether role is scoped to every department of its organization.
func IsOrgWide(role Role) bool { return role.tier() == tierOrgWide }

// CanAccessResource reports whether c may see res.
// A tenant mismatch denies regardless of role or department overlap.
func CanAccessResource(c Caller, res Resource) bool {
	if c.OrgID == "" || c.OrgID != res.OrgID {
		return false
	}
	switch c.Role.tier() {
	case tierOrgWide:
		return true
	case tierDeptAdmin, tierContributor, tierViewer:
		return c.InDepartment(res.DepartmentID)
	default:
		return false
	}
}

// CanEditResource reports whether c may modify res.
func CanEditResource(c Caller, res Resource) bool {
	if !CanAccessResource(c, res) {
		return false
	}
	switch c.Role.tier() {
	case tierOrgWide, tierDeptAdmin, tierContributor:
		return true
	default:
		return false
	}
}

// CanCreateResource reports whether c may create a resource in departmentID.
// The department must already have been resolved inside c's organization.
func CanCreateResource(c Caller, departmentID string) bool {
	switch c.Role.tier() {
	case tierOrgWide:
		return true
	case tierDeptAdmin, tierContributor:
		return c.InDepartment(departmentID)
	default:
		return false
	}
}

// CanDeleteResource reports whether c may remove res. Editors may edit but not delete.
func CanDeleteResource(c Caller, res Resource) bool {
	if !CanAccessResource(c, res) {
		return false
	}
	switch c.Role.tier() {
	case tierOrgWide, tierDeptAdmin:
		return true
	default:
		return false
	}
}

// CanAccessAdminArea reports whether c may enter the content administration area.
func CanAccessAdminArea(c Caller) bool {
	switch c.Role.tier() {
	case tierOrgWide, tierDeptAdmin, tierContributor:
		return true
	default:
		return false
	}
}

// CanManageUsers reports whether c may invite, edit and remove users.
func CanManageUsers(c Caller) bool { return IsOrgWide(c.Role) }

// CanManageDepartments reports whether c may create, rename and delete departments.
func CanManageDepartments(c Caller) bool { return IsOrgWide(c.Role) }

// CanManageSettings reports whether c may change organization settings.
func CanManageSettings(c Caller) bool { return IsOrgWide(c.Role) }
