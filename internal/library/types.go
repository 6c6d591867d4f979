// Package library manages the SOP library of an organization: departments,
// sections, SOPs with their steps, comments and search. Every operation is
// checked against the rbac engine.
package library

import (
	"errors"
	"time"

	"sopline.io/internal/rbac"
)

var (
	ErrNotFound     = errors.New("library: not found")
	ErrForbidden    = errors.New("library: forbidden")
	ErrInvalidInput = errors.New("library: invalid input")
	ErrConflict     = errors.New("library: conflict")
	// ErrRetryable is returned by stores when a serializable transaction lost a race.
	ErrRetryable = errors.New("library: transaction conflict, retry")
)

type Department struct {
	ID             string    `json:"id"`
	OrganizationID string    `json:"organization_id"`
	Name           string    `json:"name"`
	CreatedAt      time.Time `json:"created_at"`
}

type Section struct {
	ID             string    `json:"id"`
	OrganizationID string    `json:"organization_id"`
	DepartmentID   string    `json:"department_id"`
	Title          string    `json:"title"`
	Order          int       `json:"order"`
	CreatedAt      time.Time `json:"created_at"`
}

func (s Section) Resource() rbac.Resource {
	return rbac.Resource{OrgID: s.OrganizationID, DepartmentID: s.DepartmentID}
}

// VideoType is the closed set of supported video hosts.
type VideoType string

const VideoYouTube VideoType = "YOUTUBE"

type SOP struct {
	ID             string    `json:"id"`
	OrganizationID string    `json:"organization_id"`
	DepartmentID   string    `json:"department_id"`
	SectionID      string    `json:"section_id,omitempty"`
	Title          string    `json:"title"`
	Summary        string    `json:"summary,omitempty"`
	VideoType      VideoType `json:"video_type"`
	VideoURL       string    `json:"video_url"`
	VideoID        string    `json:"video_id"`
	Published      bool      `json:"published"`
	Order          int       `json:"order"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (s SOP) Resource() rbac.Resource {
	return rbac.Resource{OrgID: s.OrganizationID, DepartmentID: s.DepartmentID}
}

// SOPDetail is an SOP with its ordered steps.
type SOPDetail struct {
	SOP
	Steps []Step `json:"steps"`
}

type Step struct {
	ID        string    `json:"id"`
	SOPID     string    `json:"sop_id"`
	Heading   string    `json:"heading"`
	Body      string    `json:"body,omitempty"`
	Timestamp int       `json:"timestamp"`
	Order     int       `json:"order"`
	CreatedAt time.Time `json:"created_at"`
}

// Author is the public part of a comment's user.
type Author struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

type Comment struct {
	ID        string     `json:"id"`
	SOPID     string     `json:"sop_id"`
	ParentID  string     `json:"parent_id,omitempty"`
	Author    Author     `json:"author"`
	Body      string     `json:"body"`
	Timestamp *int       `json:"timestamp,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	EditedAt  *time.Time `json:"edited_at,omitempty"`
}

// Bucket identifies one ordered SOP list: a department and optionally a section.
type Bucket struct {
	DepartmentID string
	SectionID    string
}

// SOPQuery filters SOP listings. Scope is always applied. Bucket matches
// exactly: an empty SectionID selects the SOPs filed under no section.
type SOPQuery struct {
	Scope         rbac.Scope
	Bucket        *Bucket
	PublishedOnly bool
	// Text matches title or summary, case-insensitively.
	Text string
}

type SOPInput struct {
	Title        string    `json:"title"`
	Summary      string    `json:"summary"`
	DepartmentID string    `json:"department_id"`
	SectionID    string    `json:"section_id"`
	VideoType    VideoType `json:"video_type"`
	VideoURL     string    `json:"video_url"`
	Published    *bool     `json:"published"`
}

// SOPUpdate carries optional changes. An empty SectionID pointer value moves
// the SOP out of its section.
type SOPUpdate struct {
	Title        *string    `json:"title"`
	Summary      *string    `json:"summary"`
	DepartmentID *string    `json:"department_id"`
	SectionID    *string    `json:"section_id"`
	VideoType    *VideoType `json:"video_type"`
	VideoURL     *string    `json:"video_url"`
	Published    *bool      `json:"published"`

	// VideoID is derived from VideoURL by the service.
	VideoID *string `json:"-"`
}

type StepInput struct {
	Heading   string `json:"heading"`
	Body      string `json:"body"`
	Timestamp int    `json:"timestamp"`
}

type StepUpdate struct {
	Heading   *string `json:"heading"`
	Body      *string `json:"body"`
	Timestamp *int    `json:"timestamp"`
}

type CommentInput struct {
	Body      string `json:"body"`
	ParentID  string `json:"parent_id"`
	Timestamp *int   `json:"timestamp"`
}
