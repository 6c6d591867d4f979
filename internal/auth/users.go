package auth

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"sopline.io/internal/ids"
	"sopline.io/internal/rbac"
)

// guardError translates an engine refusal. protected is what ErrOwnerProtected becomes.
func guardError(err, protected error) error {
	var ge rbac.GuardError
	if !errors.As(err, &ge) {
		return err
	}
	switch ge {
	case rbac.ErrNotUserManager:
		return fmt.Errorf("%w: %s", ErrForbidden, ge)
	case rbac.ErrOtherTenant:
		return ErrNotFound
	case rbac.ErrUnknownRole, rbac.ErrOwnerReserved:
		return fmt.Errorf("%w: %s", ErrInvalidInput, ge)
	case rbac.ErrOwnerProtected:
		return fmt.Errorf("%w: %s", protected, ge)
	default:
		return fmt.Errorf("%w: %s", ErrForbidden, ge)
	}
}

func (s *Service) checkDepartments(ctx context.Context, orgID string, deptIDs []string) ([]string, error) {
	clean := make([]string, 0, len(deptIDs))
	for _, id := range deptIDs {
		id = strings.TrimSpace(id)
		if id == "" {
			return nil, fmt.Errorf("%w: department id is empty", ErrInvalidInput)
		}
		if !slices.Contains(clean, id) {
			clean = append(clean, id)
		}
	}
	if len(clean) == 0 {
		return clean, nil
	}
	n, err := s.store.CountDepartments(ctx, orgID, clean)
	if err != nil {
		return nil, err
	}
	if n != len(clean) {
		return nil, fmt.Errorf("%w: invalid department assignment", ErrInvalidInput)
	}
	return clean, nil
}

// ListUsers returns the members of the actor's organization.
func (s *Service) ListUsers(ctx context.Context, actor rbac.Caller) ([]User, error) {
	if !rbac.CanManageUsers(actor) {
		return nil, ErrForbidden
	}
	return s.store.ListUsers(ctx, actor.OrgID)
}

// InviteUser creates a user in the actor's organization.
func (s *Service) InviteUser(ctx context.Context, actor rbac.Caller, in InviteInput) (User, error) {
	if err := rbac.CheckInvite(actor, in.Role); err != nil {
		return User{}, guardError(err, ErrForbidden)
	}
	name, err := validateName("name", in.Name)
	if err != nil {
		return User{}, err
	}
	email, err := normalizeEmail(in.Email)
	if err != nil {
		return User{}, err
	}
	if err := validatePassword(in.Password); err != nil {
		return User{}, err
	}
	if _, err := s.store.GetUserByEmail(ctx, email); err == nil {
		return User{}, fmt.Errorf("%w: email already in use", ErrConflict)
	} else if !errors.Is(err, ErrNotFound) {
		return User{}, err
	}
	depts, err := s.checkDepartments(ctx, actor.OrgID, in.DepartmentIDs)
	if err != nil {
		return User{}, err
	}
	hash, err := HashPassword(in.Password)
	if err != nil {
		return User{}, err
	}
	now := s.now().UTC()
	return s.store.CreateUser(ctx, User{
		ID:             ids.New(),
		OrganizationID: actor.OrgID,
		Name:           name,
		Email:          email,
		Role:           in.Role,
		DepartmentIDs:  depts,
		PasswordHash:   hash,
		CreatedAt:      now,
		UpdatedAt:      now,
	})
}

// UpdateUser changes name, role or departments of a member. Owners can only
// be edited by an owner and keep the owner role.
func (s *Service) UpdateUser(ctx context.Context, actor rbac.Caller, id string, upd UserUpdate) (User, error) {
	if !rbac.CanManageUsers(actor) {
		return User{}, ErrForbidden
	}
	target, err := s.store.GetOrgUser(ctx, actor.OrgID, strings.TrimSpace(id))
	if err != nil {
		return User{}, err
	}
	var next rbac.Role
	if upd.Role != nil {
		next = *upd.Role
		if next == "" {
			return User{}, fmt.Errorf("%w: role is empty", ErrInvalidInput)
		}
	}
	if err := rbac.CheckRoleGrant(actor, rbac.Target{OrgID: target.OrganizationID, Role: target.Role}, next); err != nil {
		return User{}, guardError(err, ErrForbidden)
	}
	if upd.Name != nil {
		name, err := validateName("name", *upd.Name)
		if err != nil {
			return User{}, err
		}
		upd.Name = &name
	}
	if upd.DepartmentIDs != nil {
		depts, err := s.checkDepartments(ctx, actor.OrgID, *upd.DepartmentIDs)
		if err != nil {
			return User{}, err
		}
		upd.DepartmentIDs = &depts
	}
	upd.AvatarURL = nil
	return s.store.UpdateUser(ctx, actor.OrgID, target.ID, upd)
}

// DeleteUser removes a member. The owner can never be removed.
func (s *Service) DeleteUser(ctx context.Context, actor rbac.Caller, id string) error {
	if !rbac.CanManageUsers(actor) {
		return ErrForbidden
	}
	target, err := s.store.GetOrgUser(ctx, actor.OrgID, strings.TrimSpace(id))
	if err != nil {
		return err
	}
	if err := rbac.CheckUserRemoval(actor, rbac.Target{OrgID: target.OrganizationID, Role: target.Role}); err != nil {
		return guardError(err, ErrInvalidInput)
	}
	return s.store.DeleteUser(ctx, actor.OrgID, target.ID)
}

// Profile returns the actor's own user record.
func (s *Service) Profile(ctx context.Context, actor rbac.Caller) (User, error) {
	return s.store.GetOrgUser(ctx, actor.OrgID, actor.UserID)
}

// UpdateProfile changes the actor's name and avatar. A nil field is kept; an
// empty avatar clears it.
func (s *Service) UpdateProfile(ctx context.Context, actor rbac.Caller, name, avatarURL *string) (User, error) {
	upd := UserUpdate{}
	if name != nil {
		v, err := validateName("name", *name)
		if err != nil {
			return User{}, err
		}
		upd.Name = &v
	}
	if avatarURL != nil {
		v := strings.TrimSpace(*avatarURL)
		upd.AvatarURL = &v
	}
	return s.store.UpdateUser(ctx, actor.OrgID, actor.UserID, upd)
}

// Organization returns the actor's organization.
func (s *Service) Organization(ctx context.Context, actor rbac.Caller) (Organization, error) {
	if actor.OrgID == "" {
		return Organization{}, ErrUnauthorized
	}
	return s.store.GetOrganization(ctx, actor.OrgID)
}

// RenameOrganization requires settings rights.
func (s *Service) RenameOrganization(ctx context.Context, actor rbac.Caller, name string) (Organization, error) {
	if !rbac.CanManageSettings(actor) {
		return Organization{}, ErrForbidden
	}
	name, err := validateName("name", name)
	if err != nil {
		return Organization{}, err
	}
	return s.store.RenameOrganization(ctx, actor.OrgID, name)
}
