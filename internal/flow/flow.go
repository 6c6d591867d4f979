// Package flow stores the whiteboard scenes ("flow boards") users draw their
// process diagrams on. Boards are private to their owner.
package flow

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"sopline.io/internal/ids"
	"sopline.io/internal/rbac"
)

var (
	ErrNotFound     = errors.New("flow: board not found")
	ErrUnauthorized = errors.New("flow: unauthorized")
	ErrInvalidInput = errors.New("flow: invalid input")
)

const maxNameLength = 120

// Board is one scene. Elements is a JSON array, AppState and Files are JSON
// objects; each may be absent.
type Board struct {
	ID             string          `json:"id"`
	OrganizationID string          `json:"-"`
	OwnerID        string          `json:"-"`
	Name           string          `json:"name"`
	Elements       json.RawMessage `json:"elements,omitempty"`
	AppState       json.RawMessage `json:"appState,omitempty"`
	Files          json.RawMessage `json:"files,omitempty"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

// Scene is a partial scene update. A nil field is kept, a JSON null clears it.
type Scene struct {
	Elements json.RawMessage `json:"elements"`
	AppState json.RawMessage `json:"appState"`
	Files    json.RawMessage `json:"files"`
}

// IsNull reports whether raw is the JSON literal null.
func IsNull(raw json.RawMessage) bool {
	return raw != nil && bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// Store persists boards. Every call is keyed by organization and owner; a
// board of someone else is ErrNotFound.
type Store interface {
	// ListBoards returns boards without their scene, most recently updated first.
	ListBoards(ctx context.Context, orgID, ownerID string) ([]Board, error)
	CreateBoard(ctx context.Context, b Board) (Board, error)
	GetBoard(ctx context.Context, orgID, ownerID, id string) (Board, error)
	SaveScene(ctx context.Context, orgID, ownerID, id string, scene Scene, at time.Time) error
	RenameBoard(ctx context.Context, orgID, ownerID, id, name string, at time.Time) error
	DeleteBoard(ctx context.Context, orgID, ownerID, id string) error
}

type Service struct {
	store Store
	now   func() time.Time
}

func NewService(store Store, now func() time.Time) (*Service, error) {
	if store == nil {
		return nil, errors.New("flow store is required")
	}
	if now == nil {
		now = time.Now
	}
	return &Service{store: store, now: now}, nil
}

func allowed(actor rbac.Caller) error {
	if actor.UserID == "" || actor.OrgID == "" || !rbac.CanAccessAdminArea(actor) {
		return ErrUnauthorized
	}
	return nil
}

func cleanName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if len([]rune(name)) > maxNameLength {
		return "", fmt.Errorf("%w: name exceeds %d characters", ErrInvalidInput, maxNameLength)
	}
	return name, nil
}

func (s *Service) List(ctx context.Context, actor rbac.Caller) ([]Board, error) {
	if err := allowed(actor); err != nil {
		return nil, err
	}
	return s.store.ListBoards(ctx, actor.OrgID, actor.UserID)
}

func (s *Service) Create(ctx context.Context, actor rbac.Caller, name string) (Board, error) {
	if err := allowed(actor); err != nil {
		return Board{}, err
	}
	name, err := cleanName(name)
	if err != nil {
		return Board{}, err
	}
	now := s.now().UTC()
	return s.store.CreateBoard(ctx, Board{
		ID:             ids.New(),
		OrganizationID: actor.OrgID,
		OwnerID:        actor.UserID,
		Name:           name,
		CreatedAt:      now,
		UpdatedAt:      now,
	})
}

func (s *Service) Get(ctx context.Context, actor rbac.Caller, id string) (Board, error) {
	if err := allowed(actor); err != nil {
		return Board{}, err
	}
	return s.store.GetBoard(ctx, actor.OrgID, actor.UserID, strings.TrimSpace(id))
}

// checkShape verifies that raw, when present and not null, is a JSON value
// whose first token is open.
func checkShape(field string, raw json.RawMessage, open byte) error {
	if raw == nil || IsNull(raw) {
		return nil
	}
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != open || !json.Valid(trimmed) {
		kind := "an object"
		if open == '[' {
			kind = "an array"
		}
		return fmt.Errorf("%w: %s must be %s", ErrInvalidInput, field, kind)
	}
	return nil
}

// SaveScene stores the fields present in scene.
func (s *Service) SaveScene(ctx context.Context, actor rbac.Caller, id string, scene Scene) error {
	if err := allowed(actor); err != nil {
		return err
	}
	if err := checkShape("elements", scene.Elements, '['); err != nil {
		return err
	}
	if err := checkShape("appState", scene.AppState, '{'); err != nil {
		return err
	}
	if err := checkShape("files", scene.Files, '{'); err != nil {
		return err
	}
	return s.store.SaveScene(ctx, actor.OrgID, actor.UserID, strings.TrimSpace(id), scene, s.now().UTC())
}

func (s *Service) Rename(ctx context.Context, actor rbac.Caller, id, name string) error {
	if err := allowed(actor); err != nil {
		return err
	}
	name, err := cleanName(name)
	if err != nil {
		return err
	}
	return s.store.RenameBoard(ctx, actor.OrgID, actor.UserID, strings.TrimSpace(id), name, s.now().UTC())
}

func (s *Service) Delete(ctx context.Context, actor rbac.Caller, id string) error {
	if err := allowed(actor); err != nil {
		return err
	}
	return s.store.DeleteBoard(ctx, actor.OrgID, actor.UserID, strings.TrimSpace(id))
}
