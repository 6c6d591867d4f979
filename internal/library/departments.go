package library

import (
	"context"
	"fmt"
	"strings"

	"sopline.io/internal/ids"
	"sopline.io/internal/rbac"
)

// ListDepartments returns every department of the caller's organization.
func (s *Service) ListDepartments(ctx context.Context, actor rbac.Caller) ([]Department, error) {
	if actor.OrgID == "" || !actor.Role.Valid() {
		return nil, ErrForbidden
	}
	return s.store.ListDepartments(ctx, actor.OrgID)
}

func (s *Service) CreateDepartment(ctx context.Context, actor rbac.Caller, name string) (Department, error) {
	if !rbac.CanManageDepartments(actor) {
		return Department{}, ErrForbidden
	}
	name, err := cleanTitle("name", name)
	if err != nil {
		return Department{}, err
	}
	return s.store.CreateDepartment(ctx, Department{
		ID:             ids.New(),
		OrganizationID: actor.OrgID,
		Name:           name,
		CreatedAt:      s.now().UTC(),
	})
}

func (s *Service) RenameDepartment(ctx context.Context, actor rbac.Caller, id, name string) (Department, error) {
	if !rbac.CanManageDepartments(actor) {
		return Department{}, ErrForbidden
	}
	name, err := cleanTitle("name", name)
	if err != nil {
		return Department{}, err
	}
	d, err := s.store.RenameDepartment(ctx, actor.OrgID, strings.TrimSpace(id), name)
	return d, hideMissing(err, "department")
}

// DeleteDepartment refuses while the department still holds SOPs.
func (s *Service) DeleteDepartment(ctx context.Context, actor rbac.Caller, id string) error {
	if !rbac.CanManageDepartments(actor) {
		return ErrForbidden
	}
	d, err := s.store.GetDepartment(ctx, actor.OrgID, strings.TrimSpace(id))
	if err != nil {
		return hideMissing(err, "department")
	}
	n, err := s.store.CountDepartmentSOPs(ctx, actor.OrgID, d.ID)
	if err != nil {
		return err
	}
	if n > 0 {
		return fmt.Errorf("%w: cannot delete department with SOPs", ErrConflict)
	}
	return hideMissing(s.store.DeleteDepartment(ctx, actor.OrgID, d.ID), "department")
}
