package rbac

// GuardError explains why a user-management write was refused.
type GuardError string

func (e GuardError) Error() string { return string(e) }

const (
	ErrNotUserManager GuardError = "rbac: caller cannot manage users"
	ErrOtherTenant    GuardError = "rbac: target belongs to another organization"
	ErrUnknownRole    GuardError = "rbac: unknown role"
	ErrOwnerReserved  GuardError = "rbac: the owner role cannot be assigned"
	ErrOwnerProtected GuardError = "rbac: the owner can only be changed by an owner and never removed"
)

// Target is the current state of the user being managed.
type Target struct {
	OrgID string
	Role  Role
}

// CheckRoleGrant validates that actor may update target and, when next is
// not empty, set its role to next. It returns nil when the write may proceed.
func CheckRoleGrant(actor Caller, target Target, next Role) error {
	if err := checkManager(actor, target); err != nil {
		return err
	}
	if target.Role == RoleOwner && actor.Role != RoleOwner {
		return ErrOwnerProtected
	}
	if next == "" {
		return nil
	}
	if !next.Valid() {
		return ErrUnknownRole
	}
	if next == RoleOwner {
		return ErrOwnerReserved
	}
	if target.Role == RoleOwner {
		return ErrOwnerProtected
	}
	return nil
}

// CheckUserRemoval validates that actor may delete target. Owners are never removable.
func CheckUserRemoval(actor Caller, target Target) error {
	if err := checkManager(actor, target); err != nil {
		return err
	}
	if target.Role == RoleOwner {
		return ErrOwnerProtected
	}
	return nil
}

// CheckInvite validates that actor may create a new user with role.
func CheckInvite(actor Caller, role Role) error {
	if !CanManageUsers(actor) || actor.OrgID == "" {
		return ErrNotUserManager
	}
	if !role.Valid() {
		return ErrUnknownRole
	}
	if role == RoleOwner {
		return ErrOwnerReserved
	}
	return nil
}

func checkManager(actor Caller, target Target) error {
	if !CanManageUsers(actor) || actor.OrgID == "" {
		return ErrNotUserManager
	}
	if target.OrgID != actor.OrgID {
		return ErrOtherTenant
	}
	if !target.Role.Valid() {
		return ErrUnknownRole
	}
	return nil
}
