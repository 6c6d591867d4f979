package rbac

import "slices"

// Scope is the list-query form of CanAccessResource: the set of resources a
// caller may see, expressed as an organization plus a department filter.
type Scope struct {
	OrgID string
	// AllDepartments is set for org-wide callers; DepartmentIDs is then ignored.
	AllDepartments bool
	DepartmentIDs  []string
}

// ScopeFor builds the visibility scope of c. Unknown roles and callers
// without an organization get an empty scope.
func ScopeFor(c Caller) Scope {
	if c.OrgID == "" {
		return Scope{}
	}
	switch c.Role.tier() {
	case tierOrgWide:
		return Scope{OrgID: c.OrgID, AllDepartments: true}
	case tierDeptAdmin, tierContributor, tierViewer:
		ids := make([]string, 0, len(c.DepartmentIDs))
		for _, id := range c.DepartmentIDs {
			if id == "" || slices.Contains(ids, id) {
				continue
			}
			ids = append(ids, id)
		}
		slices.Sort(ids)
		return Scope{OrgID: c.OrgID, DepartmentIDs: ids}
	default:
		return Scope{}
	}
}

// Empty reports whether the scope matches nothing.
func (s Scope) Empty() bool {
	return s.OrgID == "" || (!s.AllDepartments && len(s.DepartmentIDs) == 0)
}

// Includes reports whether res falls inside the scope.
func (s Scope) Includes(res Resource) bool {
	if s.Empty() || res.OrgID != s.OrgID {
		return false
	}
	if s.AllDepartments {
		return true
	}
	return res.DepartmentID != "" && slices.Contains(s.DepartmentIDs, res.DepartmentID)
}

// Narrow restricts the scope to one department. The result is empty when the
// department is outside the scope.
func (s Scope) Narrow(departmentID string) Scope {
	if !s.Includes(Resource{OrgID: s.OrgID, DepartmentID: departmentID}) {
		return Scope{}
	}
	return Scope{OrgID: s.OrgID, DepartmentIDs: []string{departmentID}}
}

// Filter keeps the items whose resource is inside s.
func Filter[T any](s Scope, items []T, resource func(T) Resource) []T {
	out := make([]T, 0, len(items))
	for _, it := range items {
		if s.Includes(resource(it)) {
			out = append(out, it)
		}
	}
	return out
}
