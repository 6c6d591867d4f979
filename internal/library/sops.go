package library

import (
	"context"
	"fmt"
	"strings"

	"sopline.io/internal/ids"
	"sopline.io/internal/obs"
	"sopline.io/internal/ordering"
	"sopline.io/internal/rbac"
)

// SOPFilter narrows ListSOPs. A section filter implies its department.
type SOPFilter struct {
	DepartmentID string
	SectionID    string
}

// ListSOPs returns the SOPs visible to actor. Drafts are only listed for
// callers of the admin area.
func (s *Service) ListSOPs(ctx context.Context, actor rbac.Caller, f SOPFilter) ([]SOP, error) {
	scope := rbac.ScopeFor(actor)
	q := SOPQuery{PublishedOnly: !rbac.CanAccessAdminArea(actor)}
	departmentID := strings.TrimSpace(f.DepartmentID)
	if sectionID := strings.TrimSpace(f.SectionID); sectionID != "" {
		sec, err := s.store.GetSection(ctx, actor.OrgID, sectionID)
		if err != nil {
			return nil, hideMissing(err, "section")
		}
		if departmentID != "" && departmentID != sec.DepartmentID {
			return nil, fmt.Errorf("%w: section is not in department", ErrNotFound)
		}
		departmentID = sec.DepartmentID
		q.Bucket = &Bucket{DepartmentID: sec.DepartmentID, SectionID: sec.ID}
	}
	if departmentID != "" {
		scope = scope.Narrow(departmentID)
		if scope.Empty() {
			return nil, ErrForbidden
		}
	}
	if scope.Empty() {
		return []SOP{}, nil
	}
	q.Scope = scope
	return s.store.ListSOPs(ctx, q)
}

// Search matches text against title and summary of published SOPs in scope.
func (s *Service) Search(ctx context.Context, actor rbac.Caller, text string) ([]SOP, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return []SOP{}, nil
	}
	scope := rbac.ScopeFor(actor)
	if scope.Empty() {
		return []SOP{}, nil
	}
	return s.store.ListSOPs(ctx, SOPQuery{Scope: scope, PublishedOnly: true, Text: text})
}

// loadSOP fetches id inside the actor's org and applies action.
func (s *Service) loadSOP(ctx context.Context, actor rbac.Caller, id string, action rbac.Action) (SOP, error) {
	sop, err := s.store.GetSOP(ctx, actor.OrgID, strings.TrimSpace(id))
	if err != nil {
		return SOP{}, hideMissing(err, "sop")
	}
	if err := authorize(actor, action, sop.Resource()); err != nil {
		return SOP{}, err
	}
	return sop, nil
}

// GetSOP returns the SOP with its ordered steps. Drafts are hidden from
// callers outside the admin area.
func (s *Service) GetSOP(ctx context.Context, actor rbac.Caller, id string) (SOPDetail, error) {
	sop, err := s.loadSOP(ctx, actor, id, rbac.ActionView)
	if err != nil {
		return SOPDetail{}, err
	}
	if !sop.Published && !rbac.CanAccessAdminArea(actor) {
		return SOPDetail{}, fmt.Errorf("%w: sop", ErrNotFound)
	}
	steps, err := s.store.ListSteps(ctx, sop.ID)
	if err != nil {
		return SOPDetail{}, err
	}
	return SOPDetail{SOP: sop, Steps: steps}, nil
}

// checkSection verifies that sectionID belongs to departmentID.
func (s *Service) checkSection(ctx context.Context, orgID, departmentID, sectionID string) error {
	if sectionID == "" {
		return nil
	}
	sec, err := s.store.GetSection(ctx, orgID, sectionID)
	if err != nil {
		return hideMissing(err, "section")
	}
	if sec.DepartmentID != departmentID {
		return fmt.Errorf("%w: section is not in department", ErrNotFound)
	}
	return nil
}

func (s *Service) CreateSOP(ctx context.Context, actor rbac.Caller, in SOPInput) (SOP, error) {
	title, err := cleanTitle("title", in.Title)
	if err != nil {
		return SOP{}, err
	}
	vt, videoURL, videoID, err := validateVideo(in.VideoType, in.VideoURL)
	if err != nil {
		return SOP{}, err
	}
	res, err := s.departmentResource(ctx, actor, in.DepartmentID)
	if err != nil {
		return SOP{}, err
	}
	if !rbac.CanCreateResource(actor, res.DepartmentID) {
		obs.RecordDecision("create", rbac.Forbidden.String())
		return SOP{}, ErrForbidden
	}
	obs.RecordDecision("create", rbac.Allowed.String())
	sectionID := strings.TrimSpace(in.SectionID)
	if err := s.checkSection(ctx, res.OrgID, res.DepartmentID, sectionID); err != nil {
		return SOP{}, err
	}
	published := true
	if in.Published != nil {
		published = *in.Published
	}
	now := s.now().UTC()
	return s.store.CreateSOP(ctx, SOP{
		ID:             ids.New(),
		OrganizationID: res.OrgID,
		DepartmentID:   res.DepartmentID,
		SectionID:      sectionID,
		Title:          title,
		Summary:        strings.TrimSpace(in.Summary),
		VideoType:      vt,
		VideoURL:       videoURL,
		VideoID:        videoID,
		Published:      published,
		CreatedAt:      now,
		UpdatedAt:      now,
	})
}

func (s *Service) UpdateSOP(ctx context.Context, actor rbac.Caller, id string, upd SOPUpdate) (SOP, error) {
	sop, err := s.loadSOP(ctx, actor, id, rbac.ActionEdit)
	if err != nil {
		return SOP{}, err
	}
	if upd.Title != nil {
		title, err := cleanTitle("title", *upd.Title)
		if err != nil {
			return SOP{}, err
		}
		upd.Title = &title
	}
	if upd.Summary != nil {
		summary := strings.TrimSpace(*upd.Summary)
		upd.Summary = &summary
	}
	if upd.VideoType != nil || upd.VideoURL != nil {
		vt, rawURL := sop.VideoType, sop.VideoURL
		if upd.VideoType != nil {
			vt = *upd.VideoType
		}
		if upd.VideoURL != nil {
			rawURL = *upd.VideoURL
		}
		vt, videoURL, videoID, err := validateVideo(vt, rawURL)
		if err != nil {
			return SOP{}, err
		}
		upd.VideoType, upd.VideoURL, upd.VideoID = &vt, &videoURL, &videoID
	}

	departmentID := sop.DepartmentID
	if upd.DepartmentID != nil && strings.TrimSpace(*upd.DepartmentID) != sop.DepartmentID {
		res, err := s.departmentResource(ctx, actor, *upd.DepartmentID)
		if err != nil {
			return SOP{}, err
		}
		if !rbac.CanCreateResource(actor, res.DepartmentID) {
			obs.RecordDecision(string(rbac.ActionEdit), rbac.Forbidden.String())
			return SOP{}, fmt.Errorf("%w: destination department", ErrForbidden)
		}
		departmentID = res.DepartmentID
		upd.DepartmentID = &departmentID
		if upd.SectionID == nil {
			// The old section belongs to the old department.
			empty := ""
			upd.SectionID = &empty
		}
	} else {
		upd.DepartmentID = nil
	}
	if upd.SectionID != nil {
		sectionID := strings.TrimSpace(*upd.SectionID)
		if err := s.checkSection(ctx, sop.OrganizationID, departmentID, sectionID); err != nil {
			return SOP{}, err
		}
		upd.SectionID = &sectionID
	}
	return s.store.UpdateSOP(ctx, sop.OrganizationID, sop.ID, upd)
}

func (s *Service) DeleteSOP(ctx context.Context, actor rbac.Caller, id string) error {
	sop, err := s.loadSOP(ctx, actor, id, rbac.ActionDelete)
	if err != nil {
		return err
	}
	return s.store.DeleteSOP(ctx, sop.OrganizationID, sop.ID)
}

func (s *Service) bucketSOPIDs(ctx context.Context, orgID string, b Bucket) ([]string, error) {
	sops, err := s.store.ListSOPs(ctx, SOPQuery{
		Scope:  rbac.Scope{OrgID: orgID, DepartmentIDs: []string{b.DepartmentID}},
		Bucket: &b,
	})
	if err != nil {
		return nil, err
	}
	known := make([]string, len(sops))
	for i, sop := range sops {
		known[i] = sop.ID
	}
	return known, nil
}

// ReorderSOPs sets explicit positions inside one bucket.
func (s *Service) ReorderSOPs(ctx context.Context, actor rbac.Caller, b Bucket, items []ordering.Item) error {
	res, err := s.departmentResource(ctx, actor, b.DepartmentID)
	if err != nil {
		return err
	}
	if err := authorize(actor, rbac.ActionEdit, res); err != nil {
		return err
	}
	b.DepartmentID = res.DepartmentID
	b.SectionID = strings.TrimSpace(b.SectionID)
	if err := s.checkSection(ctx, res.OrgID, res.DepartmentID, b.SectionID); err != nil {
		return err
	}
	known, err := s.bucketSOPIDs(ctx, res.OrgID, b)
	if err != nil {
		return err
	}
	if err := ordering.Validate(items, known); err != nil {
		return orderingError(err, "sop")
	}
	return s.store.SetSOPOrder(ctx, res.OrgID, b, items)
}

// MoveSOP swaps an SOP with its neighbour inside its bucket.
func (s *Service) MoveSOP(ctx context.Context, actor rbac.Caller, id string, dir ordering.Direction) ([]ordering.Item, error) {
	sop, err := s.loadSOP(ctx, actor, id, rbac.ActionEdit)
	if err != nil {
		return nil, err
	}
	b := Bucket{DepartmentID: sop.DepartmentID, SectionID: sop.SectionID}
	known, err := s.bucketSOPIDs(ctx, sop.OrganizationID, b)
	if err != nil {
		return nil, err
	}
	items, err := ordering.Move(known, sop.ID, dir, ordering.ListBase)
	if err != nil {
		return nil, orderingError(err, "sop")
	}
	if err := s.store.SetSOPOrder(ctx, sop.OrganizationID, b, items); err != nil {
		return nil, err
	}
	return items, nil
}
