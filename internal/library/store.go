package library

import (
	"context"
	"time"

	"sopline.io/internal/ordering"
	"sopline.io/internal/rbac"
)

// Store persists the library. Every lookup is keyed by organization id so a
// record of another tenant is indistinguishable from a missing one
// (ErrNotFound).
type Store interface {
	ListDepartments(ctx context.Context, orgID string) ([]Department, error)
	GetDepartment(ctx context.Context, orgID, id string) (Department, error)
	CreateDepartment(ctx context.Context, d Department) (Department, error)
	RenameDepartment(ctx context.Context, orgID, id, name string) (Department, error)
	DeleteDepartment(ctx context.Context, orgID, id string) error
	CountDepartmentSOPs(ctx context.Context, orgID, departmentID string) (int, error)

	ListSections(ctx context.Context, scope rbac.Scope) ([]Section, error)
	GetSection(ctx context.Context, orgID, id string) (Section, error)
	// CreateSection appends the section to its department and sets Order.
	CreateSection(ctx context.Context, s Section) (Section, error)
	RenameSection(ctx context.Context, orgID, id, title string) (Section, error)
	DeleteSection(ctx context.Context, orgID, id string) error
	CountSectionSOPs(ctx context.Context, orgID, sectionID string) (int, error)
	SetSectionOrder(ctx context.Context, orgID, departmentID string, items []ordering.Item) error

	ListSOPs(ctx context.Context, q SOPQuery) ([]SOP, error)
	GetSOP(ctx context.Context, orgID, id string) (SOP, error)
	// CreateSOP appends the SOP to its bucket and sets Order.
	CreateSOP(ctx context.Context, s SOP) (SOP, error)
	UpdateSOP(ctx context.Context, orgID, id string, upd SOPUpdate) (SOP, error)
	DeleteSOP(ctx context.Context, orgID, id string) error
	SetSOPOrder(ctx context.Context, orgID string, bucket Bucket, items []ordering.Item) error

	ListSteps(ctx context.Context, sopID string) ([]Step, error)
	// GetStep finds a step whose SOP belongs to orgID.
	GetStep(ctx context.Context, orgID, id string) (Step, error)
	// AppendStep stores the step after the last one of its SOP and sets Order.
	// It may return ErrRetryable.
	AppendStep(ctx context.Context, st Step) (Step, error)
	UpdateStep(ctx context.Context, id string, upd StepUpdate) (Step, error)
	DeleteStep(ctx context.Context, id string) error
	SetStepOrder(ctx context.Context, sopID string, items []ordering.Item) error

	ListComments(ctx context.Context, sopID string) ([]Comment, error)
	GetComment(ctx context.Context, sopID, id string) (Comment, error)
	CreateComment(ctx context.Context, c Comment) (Comment, error)
	UpdateComment(ctx context.Context, sopID, id, body string, editedAt time.Time) (Comment, error)
	// DeleteComment removes the comment and its replies.
	DeleteComment(ctx context.Context, sopID, id string) error
}
