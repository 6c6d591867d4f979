// Package share publishes SOPs and sections through unguessable public links,
// optionally protected by a password.
package share

import (
	"context"
	"errors"
	"time"

	"sopline.io/internal/library"
)

var (
	ErrNotFound     = errors.New("share: not found")
	ErrForbidden    = errors.New("share: forbidden")
	ErrInvalidInput = errors.New("share: invalid input")
	ErrConflict     = errors.New("share: link already exists")
	// ErrInvalidPassword is returned by Unlock for a wrong password.
	ErrInvalidPassword = errors.New("share: invalid password")
	// ErrLocked means the link is protected and no valid grant was presented.
	ErrLocked = errors.New("share: password required")
)

// Kind is the type of a link target.
type Kind string

const (
	KindSOP     Kind = "sop"
	KindSection Kind = "section"
)

func (k Kind) Valid() bool { return k == KindSOP || k == KindSection }

// CookieName is the grant cookie for a link of kind k.
func (k Kind) CookieName(token string) string {
	if k == KindSection {
		return "section_share_access_" + token
	}
	return "share_access_" + token
}

// Link is the share configuration of one target.
type Link struct {
	ID             string    `json:"id"`
	OrganizationID string    `json:"organization_id"`
	Kind           Kind      `json:"kind"`
	TargetID       string    `json:"target_id"`
	Token          string    `json:"token"`
	Enabled        bool      `json:"enabled"`
	PasswordHash   string    `json:"-"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (l Link) HasPassword() bool { return l.PasswordHash != "" }

// Update changes a link. A nil Password keeps the current one, an empty one
// removes it.
type Update struct {
	Enabled  *bool   `json:"enabled"`
	Password *string `json:"password"`
}

// Grant is the result of a successful unlock. Token is empty when the link has
// no password.
type Grant struct {
	Cookie    string    `json:"-"`
	Token     string    `json:"-"`
	ExpiresAt time.Time `json:"-"`
}

// SOPView is the public rendering of a shared SOP.
type SOPView struct {
	SOP   library.SOP    `json:"sop"`
	Steps []library.Step `json:"steps"`
}

// SharedSOP is an SOP listed by a shared section. ShareToken is set when the
// SOP has its own enabled link.
type SharedSOP struct {
	library.SOP
	ShareToken string `json:"share_token,omitempty"`
}

// SectionView is the public rendering of a shared section.
type SectionView struct {
	Section        library.Section `json:"section"`
	DepartmentName string          `json:"department_name"`
	SOPs           []SharedSOP     `json:"sops"`
}

// Store persists links. At most one link exists per (kind, target).
type Store interface {
	GetLink(ctx context.Context, kind Kind, targetID string) (Link, error)
	GetLinkByToken(ctx context.Context, kind Kind, token string) (Link, error)
	// CreateLink returns ErrConflict when the target already has a link.
	CreateLink(ctx context.Context, l Link) (Link, error)
	UpdateLink(ctx context.Context, id string, enabled bool, passwordHash string) (Link, error)
	SetLinkToken(ctx context.Context, id, token string) (Link, error)
}

// Library is the part of the library store read by share links.
type Library interface {
	GetDepartment(ctx context.Context, orgID, id string) (library.Department, error)
	GetSection(ctx context.Context, orgID, id string) (library.Section, error)
	GetSOP(ctx context.Context, orgID, id string) (library.SOP, error)
	ListSOPs(ctx context.Context, q library.SOPQuery) ([]library.SOP, error)
	ListSteps(ctx context.Context, sopID string) ([]library.Step, error)
}
