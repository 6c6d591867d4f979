package memory

import (
	"context"
	"encoding/json"
	"slices"
	"sort"
	"time"

	"sopline.io/internal/flow"
)

func (s *Store) ownBoard(orgID, ownerID, id string) (flow.Board, bool) {
	b, ok := s.boards[id]
	if !ok || b.OrganizationID != orgID || b.OwnerID != ownerID {
		return flow.Board{}, false
	}
	return b, true
}

func (s *Store) ListBoards(ctx context.Context, orgID, ownerID string) ([]flow.Board, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []flow.Board{}
	for _, b := range s.boards {
		if b.OrganizationID == orgID && b.OwnerID == ownerID {
			b.Elements, b.AppState, b.Files = nil, nil, nil
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (s *Store) CreateBoard(ctx context.Context, b flow.Board) (flow.Board, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[b.OwnerID]; !ok {
		return flow.Board{}, flow.ErrNotFound
	}
	s.boards[b.ID] = b
	return b, nil
}

func (s *Store) GetBoard(ctx context.Context, orgID, ownerID, id string) (flow.Board, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.ownBoard(orgID, ownerID, id)
	if !ok {
		return flow.Board{}, flow.ErrNotFound
	}
	b.Elements = slices.Clone(b.Elements)
	b.AppState = slices.Clone(b.AppState)
	b.Files = slices.Clone(b.Files)
	return b, nil
}

// applyField implements the keep/clear/replace rule of flow.Scene.
func applyField(cur, next json.RawMessage) json.RawMessage {
	switch {
	case next == nil:
		return cur
	case flow.IsNull(next):
		return nil
	default:
		return slices.Clone(next)
	}
}

func (s *Store) SaveScene(ctx context.Context, orgID, ownerID, id string, scene flow.Scene, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.ownBoard(orgID, ownerID, id)
	if !ok {
		return flow.ErrNotFound
	}
	b.Elements = applyField(b.Elements, scene.Elements)
	b.AppState = applyField(b.AppState, scene.AppState)
	b.Files = applyField(b.Files, scene.Files)
	b.UpdatedAt = at
	s.boards[id] = b
	return nil
}

func (s *Store) RenameBoard(ctx context.Context, orgID, ownerID, id, name string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.ownBoard(orgID, ownerID, id)
	if !ok {
		return flow.ErrNotFound
	}
	b.Name = name
	b.UpdatedAt = at
	s.boards[id] = b
	return nil
}

func (s *Store) DeleteBoard(ctx context.Context, orgID, ownerID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.ownBoard(orgID, ownerID, id); !ok {
		return flow.ErrNotFound
	}
	delete(s.boards, id)
	return nil
}
