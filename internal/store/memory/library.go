package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"sopline.io/internal/library"
	"sopline.io/internal/ordering"
	"sopline.io/internal/rbac"
	"sopline.io/internal/share"
)

func (s *Store) ListDepartments(ctx context.Context, orgID string) ([]library.Department, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []library.Department{}
	for _, d := range s.depts {
		if d.OrganizationID == orgID {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) GetDepartment(ctx context.Context, orgID, id string) (library.Department, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.depts[id]
	if !ok || d.OrganizationID != orgID {
		return library.Department{}, library.ErrNotFound
	}
	return d, nil
}

func (s *Store) CreateDepartment(ctx context.Context, d library.Department) (library.Department, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.orgs[d.OrganizationID]; !ok {
		return library.Department{}, library.ErrNotFound
	}
	for _, other := range s.depts {
		if other.OrganizationID == d.OrganizationID && strings.EqualFold(other.Name, d.Name) {
			return library.Department{}, library.ErrConflict
		}
	}
	s.depts[d.ID] = d
	return d, nil
}

func (s *Store) RenameDepartment(ctx context.Context, orgID, id, name string) (library.Department, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.depts[id]
	if !ok || d.OrganizationID != orgID {
		return library.Department{}, library.ErrNotFound
	}
	for _, other := range s.depts {
		if other.ID != id && other.OrganizationID == orgID && strings.EqualFold(other.Name, name) {
			return library.Department{}, library.ErrConflict
		}
	}
	d.Name = name
	s.depts[id] = d
	return d, nil
}

// DeleteDepartment removes the department, its sections and every membership.
func (s *Store) DeleteDepartment(ctx context.Context, orgID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.depts[id]
	if !ok || d.OrganizationID != orgID {
		return library.ErrNotFound
	}
	for _, sop := range s.sops {
		if sop.DepartmentID == id {
			return library.ErrConflict
		}
	}
	for sid, sec := range s.sections {
		if sec.DepartmentID == id {
			s.deleteLink(share.KindSection, sid)
			delete(s.sections, sid)
		}
	}
	for uid, u := range s.users {
		if u.OrganizationID != orgID {
			continue
		}
		kept := u.DepartmentIDs[:0:0]
		for _, did := range u.DepartmentIDs {
			if did != id {
				kept = append(kept, did)
			}
		}
		u.DepartmentIDs = kept
		s.users[uid] = u
	}
	delete(s.depts, id)
	return nil
}

func (s *Store) CountDepartmentSOPs(ctx context.Context, orgID, departmentID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, sop := range s.sops {
		if sop.OrganizationID == orgID && sop.DepartmentID == departmentID {
			n++
		}
	}
	return n, nil
}

func (s *Store) ListSections(ctx context.Context, scope rbac.Scope) ([]library.Section, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []library.Section{}
	for _, sec := range s.sections {
		if scope.Includes(sec.Resource()) {
			out = append(out, sec)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.DepartmentID != b.DepartmentID {
			return a.DepartmentID < b.DepartmentID
		}
		if a.Order != b.Order {
			return a.Order < b.Order
		}
		return a.CreatedAt.Before(b.CreatedAt)
	})
	return out, nil
}

func (s *Store) GetSection(ctx context.Context, orgID, id string) (library.Section, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sec, ok := s.sections[id]
	if !ok || sec.OrganizationID != orgID {
		return library.Section{}, library.ErrNotFound
	}
	return sec, nil
}

func (s *Store) CreateSection(ctx context.Context, sec library.Section) (library.Section, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.depts[sec.DepartmentID]
	if !ok || d.OrganizationID != sec.OrganizationID {
		return library.Section{}, library.ErrNotFound
	}
	orders := []int{}
	for _, other := range s.sections {
		if other.DepartmentID == sec.DepartmentID {
			orders = append(orders, other.Order)
		}
	}
	sec.Order = ordering.Next(orders)
	s.sections[sec.ID] = sec
	return sec, nil
}

func (s *Store) RenameSection(ctx context.Context, orgID, id, title string) (library.Section, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sec, ok := s.sections[id]
	if !ok || sec.OrganizationID != orgID {
		return library.Section{}, library.ErrNotFound
	}
	sec.Title = title
	s.sections[id] = sec
	return sec, nil
}

func (s *Store) DeleteSection(ctx context.Context, orgID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sec, ok := s.sections[id]
	if !ok || sec.OrganizationID != orgID {
		return library.ErrNotFound
	}
	for _, sop := range s.sops {
		if sop.SectionID == id {
			return library.ErrConflict
		}
	}
	s.deleteLink(share.KindSection, id)
	delete(s.sections, id)
	return nil
}

func (s *Store) CountSectionSOPs(ctx context.Context, orgID, sectionID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, sop := range s.sops {
		if sop.OrganizationID == orgID && sop.SectionID == sectionID {
			n++
		}
	}
	return n, nil
}

func (s *Store) SetSectionOrder(ctx context.Context, orgID, departmentID string, items []ordering.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, it := range items {
		sec, ok := s.sections[it.ID]
		if !ok || sec.OrganizationID != orgID || sec.DepartmentID != departmentID {
			return fmt.Errorf("%w: section %s", library.ErrNotFound, it.ID)
		}
	}
	for _, it := range items {
		sec := s.sections[it.ID]
		sec.Order = it.Order
		s.sections[it.ID] = sec
	}
	return nil
}

func matchesQuery(sop library.SOP, q library.SOPQuery) bool {
	if !q.Scope.Includes(sop.Resource()) {
		return false
	}
	if q.Bucket != nil && (sop.DepartmentID != q.Bucket.DepartmentID || sop.SectionID != q.Bucket.SectionID) {
		return false
	}
	if q.PublishedOnly && !sop.Published {
		return false
	}
	if q.Text != "" {
		needle := strings.ToLower(q.Text)
		if !strings.Contains(strings.ToLower(sop.Title), needle) && !strings.Contains(strings.ToLower(sop.Summary), needle) {
			return false
		}
	}
	return true
}

func (s *Store) ListSOPs(ctx context.Context, q library.SOPQuery) ([]library.SOP, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []library.SOP{}
	for _, sop := range s.sops {
		if matchesQuery(sop, q) {
			out = append(out, sop)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Order != b.Order {
			return a.Order < b.Order
		}
		if !a.UpdatedAt.Equal(b.UpdatedAt) {
			return a.UpdatedAt.After(b.UpdatedAt)
		}
		return a.ID < b.ID
	})
	return out, nil
}

func (s *Store) GetSOP(ctx context.Context, orgID, id string) (library.SOP, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sop, ok := s.sops[id]
	if !ok || sop.OrganizationID != orgID {
		return library.SOP{}, library.ErrNotFound
	}
	return sop, nil
}

func (s *Store) nextSOPOrder(b library.Bucket, skip string) int {
	orders := []int{}
	for _, other := range s.sops {
		if other.ID != skip && other.DepartmentID == b.DepartmentID && other.SectionID == b.SectionID {
			orders = append(orders, other.Order)
		}
	}
	return ordering.Next(orders)
}

func (s *Store) CreateSOP(ctx context.Context, sop library.SOP) (library.SOP, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.depts[sop.DepartmentID]
	if !ok || d.OrganizationID != sop.OrganizationID {
		return library.SOP{}, library.ErrNotFound
	}
	if sop.SectionID != "" {
		if sec, ok := s.sections[sop.SectionID]; !ok || sec.DepartmentID != sop.DepartmentID {
			return library.SOP{}, library.ErrNotFound
		}
	}
	sop.Order = s.nextSOPOrder(library.Bucket{DepartmentID: sop.DepartmentID, SectionID: sop.SectionID}, "")
	s.sops[sop.ID] = sop
	return sop, nil
}

// UpdateSOP applies upd. An SOP that changes bucket is appended to the new one.
func (s *Store) UpdateSOP(ctx context.Context, orgID, id string, upd library.SOPUpdate) (library.SOP, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sop, ok := s.sops[id]
	if !ok || sop.OrganizationID != orgID {
		return library.SOP{}, library.ErrNotFound
	}
	prev := library.Bucket{DepartmentID: sop.DepartmentID, SectionID: sop.SectionID}
	if upd.Title != nil {
		sop.Title = *upd.Title
	}
	if upd.Summary != nil {
		sop.Summary = *upd.Summary
	}
	if upd.DepartmentID != nil {
		d, ok := s.depts[*upd.DepartmentID]
		if !ok || d.OrganizationID != orgID {
			return library.SOP{}, library.ErrNotFound
		}
		sop.DepartmentID = d.ID
	}
	if upd.SectionID != nil {
		sop.SectionID = *upd.SectionID
	}
	if sop.SectionID != "" {
		if sec, ok := s.sections[sop.SectionID]; !ok || sec.DepartmentID != sop.DepartmentID {
			return library.SOP{}, library.ErrNotFound
		}
	}
	if upd.VideoType != nil {
		sop.VideoType = *upd.VideoType
	}
	if upd.VideoURL != nil {
		sop.VideoURL = *upd.VideoURL
	}
	if upd.VideoID != nil {
		sop.VideoID = *upd.VideoID
	}
	if upd.Published != nil {
		sop.Published = *upd.Published
	}
	next := library.Bucket{DepartmentID: sop.DepartmentID, SectionID: sop.SectionID}
	if next != prev {
		sop.Order = s.nextSOPOrder(next, sop.ID)
	}
	sop.UpdatedAt = s.stamp()
	s.sops[id] = sop
	return sop, nil
}

func (s *Store) DeleteSOP(ctx context.Context, orgID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sop, ok := s.sops[id]
	if !ok || sop.OrganizationID != orgID {
		return library.ErrNotFound
	}
	for sid, st := range s.steps {
		if st.SOPID == id {
			delete(s.steps, sid)
		}
	}
	for cid, c := range s.comments {
		if c.SOPID == id {
			delete(s.comments, cid)
		}
	}
	s.deleteLink(share.KindSOP, id)
	delete(s.sops, id)
	return nil
}

func (s *Store) SetSOPOrder(ctx context.Context, orgID string, bucket library.Bucket, items []ordering.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, it := range items {
		sop, ok := s.sops[it.ID]
		if !ok || sop.OrganizationID != orgID || sop.DepartmentID != bucket.DepartmentID || sop.SectionID != bucket.SectionID {
			return fmt.Errorf("%w: sop %s", library.ErrNotFound, it.ID)
		}
	}
	for _, it := range items {
		sop := s.sops[it.ID]
		sop.Order = it.Order
		s.sops[it.ID] = sop
	}
	return nil
}

func (s *Store) sortedSteps(sopID string) []library.Step {
	out := []library.Step{}
	for _, st := range s.steps {
		if st.SOPID == sopID {
			out = append(out, st)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Order != out[j].Order {
			return out[i].Order < out[j].Order
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (s *Store) ListSteps(ctx context.Context, sopID string) ([]library.Step, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sortedSteps(sopID), nil
}

func (s *Store) GetStep(ctx context.Context, orgID, id string) (library.Step, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.steps[id]
	if !ok {
		return library.Step{}, library.ErrNotFound
	}
	if sop, ok := s.sops[st.SOPID]; !ok || sop.OrganizationID != orgID {
		return library.Step{}, library.ErrNotFound
	}
	return st, nil
}

// AppendStep holds the write lock across read and insert, so it never
// returns library.ErrRetryable.
func (s *Store) AppendStep(ctx context.Context, st library.Step) (library.Step, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sops[st.SOPID]; !ok {
		return library.Step{}, library.ErrNotFound
	}
	orders := []int{}
	for _, other := range s.steps {
		if other.SOPID == st.SOPID {
			orders = append(orders, other.Order)
		}
	}
	st.Order = ordering.NextFrom(orders, ordering.StepBase)
	s.steps[st.ID] = st
	return st, nil
}

func (s *Store) UpdateStep(ctx context.Context, id string, upd library.StepUpdate) (library.Step, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.steps[id]
	if !ok {
		return library.Step{}, library.ErrNotFound
	}
	if upd.Heading != nil {
		st.Heading = *upd.Heading
	}
	if upd.Body != nil {
		st.Body = *upd.Body
	}
	if upd.Timestamp != nil {
		st.Timestamp = *upd.Timestamp
	}
	s.steps[id] = st
	return st, nil
}

func (s *Store) DeleteStep(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.steps[id]; !ok {
		return library.ErrNotFound
	}
	delete(s.steps, id)
	return nil
}

func (s *Store) SetStepOrder(ctx context.Context, sopID string, items []ordering.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, it := range items {
		if st, ok := s.steps[it.ID]; !ok || st.SOPID != sopID {
			return fmt.Errorf("%w: step %s", library.ErrNotFound, it.ID)
		}
	}
	for _, it := range items {
		st := s.steps[it.ID]
		st.Order = it.Order
		s.steps[it.ID] = st
	}
	return nil
}

// withAuthor fills the public author fields from the user record.
func (s *Store) withAuthor(c library.Comment) library.Comment {
	if u, ok := s.users[c.Author.ID]; ok {
		c.Author = library.Author{ID: u.ID, Name: u.Name, Email: u.Email, AvatarURL: u.AvatarURL}
	}
	return c
}

func (s *Store) ListComments(ctx context.Context, sopID string) ([]library.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []library.Comment{}
	for _, c := range s.comments {
		if c.SOPID == sopID {
			out = append(out, s.withAuthor(c))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) GetComment(ctx context.Context, sopID, id string) (library.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.comments[id]
	if !ok || c.SOPID != sopID {
		return library.Comment{}, library.ErrNotFound
	}
	return s.withAuthor(c), nil
}

func (s *Store) CreateComment(ctx context.Context, c library.Comment) (library.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sops[c.SOPID]; !ok {
		return library.Comment{}, library.ErrNotFound
	}
	if _, ok := s.users[c.Author.ID]; !ok {
		return library.Comment{}, library.ErrNotFound
	}
	if c.ParentID != "" {
		if p, ok := s.comments[c.ParentID]; !ok || p.SOPID != c.SOPID {
			return library.Comment{}, library.ErrNotFound
		}
	}
	s.comments[c.ID] = c
	return s.withAuthor(c), nil
}

func (s *Store) UpdateComment(ctx context.Context, sopID, id, body string, editedAt time.Time) (library.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.comments[id]
	if !ok || c.SOPID != sopID {
		return library.Comment{}, library.ErrNotFound
	}
	c.Body = body
	c.EditedAt = &editedAt
	s.comments[id] = c
	return s.withAuthor(c), nil
}

func (s *Store) DeleteComment(ctx context.Context, sopID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.comments[id]
	if !ok || c.SOPID != sopID {
		return library.ErrNotFound
	}
	s.deleteCommentTree(id)
	return nil
}

// deleteCommentTree removes id and its replies. Callers hold the write lock.
func (s *Store) deleteCommentTree(id string) {
	delete(s.comments, id)
	for cid, c := range s.comments {
		if c.ParentID == id {
			s.deleteCommentTree(cid)
		}
	}
}
