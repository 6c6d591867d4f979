package memory

import (
	"context"
	"slices"
	"sort"
	"strings"
	"time"

	"sopline.io/internal/auth"
	"sopline.io/internal/library"
)

func cloneUser(u auth.User) auth.User {
	u.DepartmentIDs = slices.Clone(u.DepartmentIDs)
	if u.DepartmentIDs == nil {
		u.DepartmentIDs = []string{}
	}
	return u
}

func (s *Store) emailTaken(email string) bool {
	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			return true
		}
	}
	return false
}

func (s *Store) Register(ctx context.Context, reg auth.Registration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.orgExists(reg.Organization.Name, reg.Organization.Slug) || s.emailTaken(reg.Owner.Email) {
		return auth.ErrConflict
	}
	if _, ok := s.orgs[reg.Organization.ID]; ok {
		return auth.ErrConflict
	}
	s.orgs[reg.Organization.ID] = reg.Organization
	for _, d := range reg.Departments {
		s.depts[d.ID] = library.Department{
			ID:             d.ID,
			OrganizationID: reg.Organization.ID,
			Name:           d.Name,
			CreatedAt:      reg.Organization.CreatedAt,
		}
	}
	s.users[reg.Owner.ID] = cloneUser(reg.Owner)
	return nil
}

func (s *Store) orgExists(name, slug string) bool {
	for _, o := range s.orgs {
		if strings.EqualFold(o.Name, name) || o.Slug == slug {
			return true
		}
	}
	return false
}

func (s *Store) OrganizationExists(ctx context.Context, name, slug string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.orgExists(name, slug), nil
}

func (s *Store) GetOrganization(ctx context.Context, id string) (auth.Organization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.orgs[id]
	if !ok {
		return auth.Organization{}, auth.ErrNotFound
	}
	return o, nil
}

func (s *Store) RenameOrganization(ctx context.Context, id, name string) (auth.Organization, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orgs[id]
	if !ok {
		return auth.Organization{}, auth.ErrNotFound
	}
	for _, other := range s.orgs {
		if other.ID != id && strings.EqualFold(other.Name, name) {
			return auth.Organization{}, auth.ErrConflict
		}
	}
	o.Name = name
	o.UpdatedAt = s.stamp()
	s.orgs[id] = o
	return o, nil
}

func (s *Store) GetUser(ctx context.Context, id string) (auth.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return auth.User{}, auth.ErrNotFound
	}
	return cloneUser(u), nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (auth.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			return cloneUser(u), nil
		}
	}
	return auth.User{}, auth.ErrNotFound
}

func (s *Store) GetOrgUser(ctx context.Context, orgID, id string) (auth.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok || u.OrganizationID != orgID {
		return auth.User{}, auth.ErrNotFound
	}
	return cloneUser(u), nil
}

func (s *Store) ListUsers(ctx context.Context, orgID string) ([]auth.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []auth.User{}
	for _, u := range s.users {
		if u.OrganizationID == orgID {
			out = append(out, cloneUser(u))
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

func (s *Store) CreateUser(ctx context.Context, u auth.User) (auth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.orgs[u.OrganizationID]; !ok {
		return auth.User{}, auth.ErrNotFound
	}
	if _, ok := s.users[u.ID]; ok || s.emailTaken(u.Email) {
		return auth.User{}, auth.ErrConflict
	}
	s.users[u.ID] = cloneUser(u)
	return cloneUser(u), nil
}

func (s *Store) UpdateUser(ctx context.Context, orgID, id string, upd auth.UserUpdate) (auth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok || u.OrganizationID != orgID {
		return auth.User{}, auth.ErrNotFound
	}
	if upd.Name != nil {
		u.Name = *upd.Name
	}
	if upd.AvatarURL != nil {
		u.AvatarURL = *upd.AvatarURL
	}
	if upd.Role != nil {
		u.Role = *upd.Role
	}
	if upd.DepartmentIDs != nil {
		u.DepartmentIDs = slices.Clone(*upd.DepartmentIDs)
	}
	u.UpdatedAt = s.stamp()
	s.users[id] = cloneUser(u)
	return cloneUser(u), nil
}

// DeleteUser removes the user with their comments, boards and reset tokens.
func (s *Store) DeleteUser(ctx context.Context, orgID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok || u.OrganizationID != orgID {
		return auth.ErrNotFound
	}
	delete(s.users, id)
	for cid, c := range s.comments {
		if c.Author.ID == id {
			s.deleteCommentTree(cid)
		}
	}
	for bid, b := range s.boards {
		if b.OwnerID == id {
			delete(s.boards, bid)
		}
	}
	for rid, r := range s.resets {
		if r.UserID == id {
			delete(s.resets, rid)
		}
	}
	return nil
}

func (s *Store) CountDepartments(ctx context.Context, orgID string, ids []string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, id := range ids {
		if d, ok := s.depts[id]; ok && d.OrganizationID == orgID {
			n++
		}
	}
	return n, nil
}

func (s *Store) ReplacePasswordReset(ctx context.Context, r auth.PasswordReset) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[r.UserID]; !ok {
		return auth.ErrNotFound
	}
	for id, prev := range s.resets {
		if prev.UserID == r.UserID {
			delete(s.resets, id)
		}
	}
	s.resets[r.ID] = r
	return nil
}

func (s *Store) ConsumePasswordReset(ctx context.Context, tokenHash string, now time.Time, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, r := range s.resets {
		if r.TokenHash != tokenHash || r.UsedAt != nil || !now.Before(r.ExpiresAt) {
			continue
		}
		u, ok := s.users[r.UserID]
		if !ok {
			return auth.ErrNotFound
		}
		used := now
		r.UsedAt = &used
		s.resets[id] = r
		u.PasswordHash = passwordHash
		u.UpdatedAt = now
		s.users[u.ID] = u
		return nil
	}
	return auth.ErrNotFound
}
