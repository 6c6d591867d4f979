package rbac

import (
	"math/rand"
	"testing"
	"testing/quick"
)

func TestIsOrgWide(t *testing.T) {
	cases := map[Role]bool{
		RoleOwner:     true,
		RoleOrgAdmin:  true,
		RoleDeptAdmin: false,
		RoleEditor:    false,
		RoleViewer:    false,
		Role("ADMIN"): false,
		Role(""):      false,
	}
	for role, want := range cases {
		if got := IsOrgWide(role); got != want {
			t.Fatalf("IsOrgWide(%q)=%v, want %v", role, got, want)
		}
	}
}

func TestParseRole(t *testing.T) {
	if r, ok := ParseRole("  dept_admin "); !ok || r != RoleDeptAdmin {
		t.Fatalf("ParseRole lowercase: got %q ok=%v", r, ok)
	}
	for _, raw := range []string{"", "superuser", "OWNER2"} {
		if _, ok := ParseRole(raw); ok {
			t.Fatalf("ParseRole(%q) accepted unknown role", raw)
		}
	}
}

func TestScenarios(t *testing.T) {
	cases := []struct {
		name                 string
		caller               Caller
		res                  Resource
		access, edit, delete bool
	}{
		{
			name:   "editor in own department",
			caller: Caller{OrgID: "A", Role: RoleEditor, DepartmentIDs: []string{"d1"}},
			res:    Resource{OrgID: "A", DepartmentID: "d1"},
			access: true, edit: true, delete: false,
		},
		{
			name:   "department id collision across tenants",
			caller: Caller{OrgID: "A", Role: RoleDeptAdmin, DepartmentIDs: []string{"d1"}},
			res:    Resource{OrgID: "B", DepartmentID: "d1"},
		},
		{
			name:   "owner outside its departments",
			caller: Caller{OrgID: "A", Role: RoleOwner},
			res:    Resource{OrgID: "A", DepartmentID: "d9"},
			access: true, edit: true, delete: true,
		},
		{
			name:   "viewer reads only",
			caller: Caller{OrgID: "A", Role: RoleViewer, DepartmentIDs: []string{"d1"}},
			res:    Resource{OrgID: "A", DepartmentID: "d1"},
			access: true,
		},
		{
			name:   "dept admin deletes",
			caller: Caller{OrgID: "A", Role: RoleDeptAdmin, DepartmentIDs: []string{"d1", "d2"}},
			res:    Resource{OrgID: "A", DepartmentID: "d2"},
			access: true, edit: true, delete: true,
		},
		{
			name:   "editor outside department",
			caller: Caller{OrgID: "A", Role: RoleEditor, DepartmentIDs: []string{"d1"}},
			res:    Resource{OrgID: "A", DepartmentID: "d2"},
		},
		{
			name:   "unknown role fails closed",
			caller: Caller{OrgID: "A", Role: Role("SUPERUSER"), DepartmentIDs: []string{"d1"}},
			res:    Resource{OrgID: "A", DepartmentID: "d1"},
		},
		{
			name:   "owner in another tenant",
			caller: Caller{OrgID: "A", Role: RoleOwner},
			res:    Resource{OrgID: "B", DepartmentID: "d1"},
		},
		{
			name:   "empty org ids never match",
			caller: Caller{Role: RoleOwner},
			res:    Resource{DepartmentID: "d1"},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := CanAccessResource(tc.caller, tc.res); got != tc.access {
				t.Fatalf("access=%v, want %v", got, tc.access)
			}
			if got := CanEditResource(tc.caller, tc.res); got != tc.edit {
				t.Fatalf("edit=%v, want %v", got, tc.edit)
			}
			if got := CanDeleteResource(tc.caller, tc.res); got != tc.delete {
				t.Fatalf("delete=%v, want %v", got, tc.delete)
			}
		})
	}
}

func TestCanCreateResource(t *testing.T) {
	member := []string{"d1"}
	cases := []struct {
		role Role
		dept string
		want bool
	}{
		{RoleOwner, "d9", true},
		{RoleOrgAdmin, "d9", true},
		{RoleDeptAdmin, "d1", true},
		{RoleDeptAdmin, "d9", false},
		{RoleEditor, "d1", true},
		{RoleEditor, "d9", false},
		{RoleViewer, "d1", false},
		{Role("bogus"), "d1", false},
	}
	for _, tc := range cases {
		c := Caller{OrgID: "A", Role: tc.role, DepartmentIDs: member}
		if got := CanCreateResource(c, tc.dept); got != tc.want {
			t.Fatalf("CanCreateResource(%s, %s)=%v, want %v", tc.role, tc.dept, got, tc.want)
		}
	}
}

func TestAreaPredicates(t *testing.T) {
	for _, role := range append(Roles, Role("")) {
		c := Caller{OrgID: "A", Role: role}
		wantAdmin := role == RoleOwner || role == RoleOrgAdmin || role == RoleDeptAdmin || role == RoleEditor
		if got := CanAccessAdminArea(c); got != wantAdmin {
			t.Fatalf("CanAccessAdminArea(%q)=%v, want %v", role, got, wantAdmin)
		}
		wantManage := role == RoleOwner || role == RoleOrgAdmin
		if CanManageUsers(c) != wantManage || CanManageDepartments(c) != wantManage || CanManageSettings(c) != wantManage {
			t.Fatalf("manage predicates for %q disagree with org-wide tier", role)
		}
	}
}

func TestCrossTenantNeverAccessible(t *testing.T) {
	prop := func(seed int64) bool {
		rnd := rand.New(rand.NewSource(seed))
		c := randomCaller(rnd)
		res := randomResource(rnd)
		if c.OrgID == res.OrgID {
			res.OrgID = c.OrgID + "-other"
		}
		return !CanAccessResource(c, res) && !CanEditResource(c, res) && !CanDeleteResource(c, res)
	}
	if err := quick.Check(prop, &quick.Config{MaxCount: 500}); err != nil {
		t.Fatal(err)
	}
}

func TestPrivilegeOrdering(t *testing.T) {
	prop := func(seed int64) bool {
		rnd := rand.New(rand.NewSource(seed))
		c := randomCaller(rnd)
		res := randomResource(rnd)
		access := CanAccessResource(c, res)
		edit := CanEditResource(c, res)
		del := CanDeleteResource(c, res)
		// delete implies edit implies access
		if del && !edit || edit && !access {
			return false
		}
		if IsOrgWide(c.Role) && c.OrgID == res.OrgID && !(access && edit && del) {
			return false
		}
		return true
	}
	if err := quick.Check(prop, &quick.Config{MaxCount: 500}); err != nil {
		t.Fatal(err)
	}
}

func TestPredicatesAreDeterministic(t *testing.T) {
	prop := func(seed int64) bool {
		rnd := rand.New(rand.NewSource(seed))
		c := randomCaller(rnd)
		res := randomResource(rnd)
		dept := res.DepartmentID
		first := [...]bool{
			CanAccessResource(c, res), CanEditResource(c, res), CanDeleteResource(c, res),
			CanCreateResource(c, dept), CanAccessAdminArea(c), CanManageUsers(c),
		}
		second := [...]bool{
			CanAccessResource(c, res), CanEditResource(c, res), CanDeleteResource(c, res),
			CanCreateResource(c, dept), CanAccessAdminArea(c), CanManageUsers(c),
		}
		return first == second && Decide(c, ActionEdit, res) == Decide(c, ActionEdit, res)
	}
	if err := quick.Check(prop, &quick.Config{MaxCount: 500}); err != nil {
		t.Fatal(err)
	}
}

var (
	testOrgs  = []string{"A", "B", "C"}
	testDepts = []string{"d1", "d2", "d3", "d4"}
	testRoles = append(append([]Role{}, Roles...), Role("UNKNOWN"))
)

func randomCaller(rnd *rand.Rand) Caller {
	c := Caller{
		UserID: "u1",
		OrgID:  testOrgs[rnd.Intn(len(testOrgs))],
		Role:   testRoles[rnd.Intn(len(testRoles))],
	}
	for _, d := range testDepts {
		if rnd.Intn(2) == 0 {
			c.DepartmentIDs = append(c.DepartmentIDs, d)
		}
	}
	return c
}

func randomResource(rnd *rand.Rand) Resource {
	return Resource{
		OrgID:        testOrgs[rnd.Intn(len(testOrgs))],
		DepartmentID: testDepts[rnd.Intn(len(testDepts))],
	}
}
