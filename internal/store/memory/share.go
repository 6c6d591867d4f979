package memory

import (
	"context"

	"sopline.io/internal/share"
)

func (s *Store) GetLink(ctx context.Context, kind share.Kind, targetID string) (share.Link, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, l := range s.links {
		if l.Kind == kind && l.TargetID == targetID {
			return l, nil
		}
	}
	return share.Link{}, share.ErrNotFound
}

func (s *Store) GetLinkByToken(ctx context.Context, kind share.Kind, token string) (share.Link, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, l := range s.links {
		if l.Kind == kind && l.Token == token {
			return l, nil
		}
	}
	return share.Link{}, share.ErrNotFound
}

func (s *Store) CreateLink(ctx context.Context, l share.Link) (share.Link, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, other := range s.links {
		if (other.Kind == l.Kind && other.TargetID == l.TargetID) || other.Token == l.Token {
			return share.Link{}, share.ErrConflict
		}
	}
	s.links[l.ID] = l
	return l, nil
}

func (s *Store) UpdateLink(ctx context.Context, id string, enabled bool, passwordHash string) (share.Link, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.links[id]
	if !ok {
		return share.Link{}, share.ErrNotFound
	}
	l.Enabled = enabled
	l.PasswordHash = passwordHash
	l.UpdatedAt = s.stamp()
	s.links[id] = l
	return l, nil
}

func (s *Store) SetLinkToken(ctx context.Context, id, token string) (share.Link, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.links[id]
	if !ok {
		return share.Link{}, share.ErrNotFound
	}
	for _, other := range s.links {
		if other.ID != id && other.Token == token {
			return share.Link{}, share.ErrConflict
		}
	}
	l.Token = token
	l.UpdatedAt = s.stamp()
	s.links[id] = l
	return l, nil
}

// deleteLink drops the link of a removed target. Callers hold the write lock.
func (s *Store) deleteLink(kind share.Kind, targetID string) {
	for id, l := range s.links {
		if l.Kind == kind && l.TargetID == targetID {
			delete(s.links, id)
		}
	}
}
