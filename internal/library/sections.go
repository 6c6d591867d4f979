package library

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"sopline.io/internal/ids"
	"sopline.io/internal/ordering"
	"sopline.io/internal/rbac"
)

// ListSections lists the sections visible to actor. A non-empty departmentID
// narrows the result and must itself be visible.
func (s *Service) ListSections(ctx context.Context, actor rbac.Caller, departmentID string) ([]Section, error) {
	scope := rbac.ScopeFor(actor)
	if departmentID = strings.TrimSpace(departmentID); departmentID != "" {
		scope = scope.Narrow(departmentID)
		if scope.Empty() {
			return nil, ErrForbidden
		}
	}
	if scope.Empty() {
		return []Section{}, nil
	}
	return s.store.ListSections(ctx, scope)
}

// departmentResource resolves departmentID inside the actor's organization.
func (s *Service) departmentResource(ctx context.Context, actor rbac.Caller, departmentID string) (rbac.Resource, error) {
	d, err := s.store.GetDepartment(ctx, actor.OrgID, strings.TrimSpace(departmentID))
	if err != nil {
		return rbac.Resource{}, hideMissing(err, "department")
	}
	return rbac.Resource{OrgID: d.OrganizationID, DepartmentID: d.ID}, nil
}

func (s *Service) CreateSection(ctx context.Context, actor rbac.Caller, departmentID, title string) (Section, error) {
	if !rbac.CanManageDepartments(actor) {
		return Section{}, ErrForbidden
	}
	title, err := cleanTitle("title", title)
	if err != nil {
		return Section{}, err
	}
	res, err := s.departmentResource(ctx, actor, departmentID)
	if err != nil {
		return Section{}, err
	}
	return s.store.CreateSection(ctx, Section{
		ID:             ids.New(),
		OrganizationID: res.OrgID,
		DepartmentID:   res.DepartmentID,
		Title:          title,
		CreatedAt:      s.now().UTC(),
	})
}

func (s *Service) RenameSection(ctx context.Context, actor rbac.Caller, id, title string) (Section, error) {
	sec, err := s.store.GetSection(ctx, actor.OrgID, strings.TrimSpace(id))
	if err != nil {
		return Section{}, hideMissing(err, "section")
	}
	if err := authorize(actor, rbac.ActionEdit, sec.Resource()); err != nil {
		return Section{}, err
	}
	title, err = cleanTitle("title", title)
	if err != nil {
		return Section{}, err
	}
	return s.store.RenameSection(ctx, actor.OrgID, sec.ID, title)
}

// DeleteSection refuses while SOPs are filed under the section.
func (s *Service) DeleteSection(ctx context.Context, actor rbac.Caller, id string) error {
	sec, err := s.store.GetSection(ctx, actor.OrgID, strings.TrimSpace(id))
	if err != nil {
		return hideMissing(err, "section")
	}
	if err := authorize(actor, rbac.ActionDelete, sec.Resource()); err != nil {
		return err
	}
	n, err := s.store.CountSectionSOPs(ctx, actor.OrgID, sec.ID)
	if err != nil {
		return err
	}
	if n > 0 {
		return fmt.Errorf("%w: cannot delete section with SOPs", ErrConflict)
	}
	return s.store.DeleteSection(ctx, actor.OrgID, sec.ID)
}

func (s *Service) departmentSectionIDs(ctx context.Context, res rbac.Resource) ([]string, error) {
	secs, err := s.store.ListSections(ctx, rbac.Scope{OrgID: res.OrgID, DepartmentIDs: []string{res.DepartmentID}})
	if err != nil {
		return nil, err
	}
	known := make([]string, len(secs))
	for i, sec := range secs {
		known[i] = sec.ID
	}
	return known, nil
}

// ReorderSections sets explicit positions for sections of one department.
func (s *Service) ReorderSections(ctx context.Context, actor rbac.Caller, departmentID string, items []ordering.Item) error {
	res, err := s.departmentResource(ctx, actor, departmentID)
	if err != nil {
		return err
	}
	if err := authorize(actor, rbac.ActionEdit, res); err != nil {
		return err
	}
	known, err := s.departmentSectionIDs(ctx, res)
	if err != nil {
		return err
	}
	if err := ordering.Validate(items, known); err != nil {
		return orderingError(err, "section")
	}
	return s.store.SetSectionOrder(ctx, res.OrgID, res.DepartmentID, items)
}

// MoveSection swaps a section with its neighbour.
func (s *Service) MoveSection(ctx context.Context, actor rbac.Caller, id string, dir ordering.Direction) ([]ordering.Item, error) {
	sec, err := s.store.GetSection(ctx, actor.OrgID, strings.TrimSpace(id))
	if err != nil {
		return nil, hideMissing(err, "section")
	}
	if err := authorize(actor, rbac.ActionEdit, sec.Resource()); err != nil {
		return nil, err
	}
	known, err := s.departmentSectionIDs(ctx, sec.Resource())
	if err != nil {
		return nil, err
	}
	items, err := ordering.Move(known, sec.ID, dir, ordering.ListBase)
	if err != nil {
		return nil, orderingError(err, "section")
	}
	if err := s.store.SetSectionOrder(ctx, sec.OrganizationID, sec.DepartmentID, items); err != nil {
		return nil, err
	}
	return items, nil
}

// orderingError maps ordering failures: unknown ids are missing records of
// kind, everything else is bad input.
func orderingError(err error, kind string) error {
	switch {
	case errors.Is(err, ordering.ErrUnknownItem):
		return fmt.Errorf("%w: %s: %v", ErrNotFound, kind, err)
	case errors.Is(err, ordering.ErrAtEdge):
		return fmt.Errorf("%w: %v", ErrConflict, err)
	default:
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
}
