package rbac

import (
	"errors"
	"testing"
)

func TestCheckRoleGrant(t *testing.T) {
	owner := Caller{UserID: "o", OrgID: "A", Role: RoleOwner}
	admin := Caller{UserID: "a", OrgID: "A", Role: RoleOrgAdmin}
	editor := Caller{UserID: "e", OrgID: "A", Role: RoleEditor}

	cases := []struct {
		name   string
		actor  Caller
		target Target
		next   Role
		want   error
	}{
		{"admin promotes to owner", admin, Target{OrgID: "A", Role: RoleEditor}, RoleOwner, ErrOwnerReserved},
		{"owner promotes to owner", owner, Target{OrgID: "A", Role: RoleEditor}, RoleOwner, ErrOwnerReserved},
		{"admin edits owner", admin, Target{OrgID: "A", Role: RoleOwner}, "", ErrOwnerProtected},
		{"owner edits owner fields", owner, Target{OrgID: "A", Role: RoleOwner}, "", nil},
		{"owner demotes owner", owner, Target{OrgID: "A", Role: RoleOwner}, RoleOrgAdmin, ErrOwnerProtected},
		{"admin sets viewer", admin, Target{OrgID: "A", Role: RoleEditor}, RoleViewer, nil},
		{"admin grants org admin", admin, Target{OrgID: "A", Role: RoleViewer}, RoleOrgAdmin, nil},
		{"editor cannot manage", editor, Target{OrgID: "A", Role: RoleViewer}, RoleEditor, ErrNotUserManager},
		{"other tenant", admin, Target{OrgID: "B", Role: RoleViewer}, RoleEditor, ErrOtherTenant},
		{"unknown next role", admin, Target{OrgID: "A", Role: RoleViewer}, Role("ROOT"), ErrUnknownRole},
		{"unknown target role", admin, Target{OrgID: "A", Role: Role("ROOT")}, RoleViewer, ErrUnknownRole},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := CheckRoleGrant(tc.actor, tc.target, tc.next)
			if !errors.Is(err, tc.want) {
				t.Fatalf("CheckRoleGrant()=%v, want %v", err, tc.want)
			}
		})
	}
}

func TestCheckUserRemoval(t *testing.T) {
	owner := Caller{OrgID: "A", Role: RoleOwner}
	admin := Caller{OrgID: "A", Role: RoleOrgAdmin}

	if err := CheckUserRemoval(owner, Target{OrgID: "A", Role: RoleOwner}); !errors.Is(err, ErrOwnerProtected) {
		t.Fatalf("owner removal must be refused, got %v", err)
	}
	if err := CheckUserRemoval(admin, Target{OrgID: "A", Role: RoleDeptAdmin}); err != nil {
		t.Fatalf("admin removes dept admin: %v", err)
	}
	if err := CheckUserRemoval(admin, Target{OrgID: "B", Role: RoleViewer}); !errors.Is(err, ErrOtherTenant) {
		t.Fatalf("cross tenant removal: %v", err)
	}
	if err := CheckUserRemoval(Caller{OrgID: "A", Role: RoleDeptAdmin}, Target{OrgID: "A", Role: RoleViewer}); !errors.Is(err, ErrNotUserManager) {
		t.Fatalf("dept admin removal: %v", err)
	}
}

func TestCheckInvite(t *testing.T) {
	admin := Caller{OrgID: "A", Role: RoleOrgAdmin}
	if err := CheckInvite(admin, RoleOwner); !errors.Is(err, ErrOwnerReserved) {
		t.Fatalf("inviting an owner: %v", err)
	}
	if err := CheckInvite(admin, RoleEditor); err != nil {
		t.Fatalf("inviting an editor: %v", err)
	}
	if err := CheckInvite(admin, Role("")); !errors.Is(err, ErrUnknownRole) {
		t.Fatalf("inviting without role: %v", err)
	}
	if err := CheckInvite(Caller{OrgID: "A", Role: RoleViewer}, RoleViewer); !errors.Is(err, ErrNotUserManager) {
		t.Fatalf("viewer inviting: %v", err)
	}
}
