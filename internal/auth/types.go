package auth

import (
	"time"

	"sopline.io/internal/rbac"
)

// Organization is a tenant. Every other record belongs to exactly one.
type Organization struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// User is a member of one organization with one role.
type User struct {
	ID             string    `json:"id"`
	OrganizationID string    `json:"organization_id"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	AvatarURL      string    `json:"avatar_url,omitempty"`
	Role           rbac.Role `json:"role"`
	DepartmentIDs  []string  `json:"department_ids"`
	PasswordHash   string    `json:"-"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Caller returns the identity the authorization engine decides for.
func (u User) Caller() rbac.Caller {
	return rbac.Caller{
		UserID:        u.ID,
		OrgID:         u.OrganizationID,
		Role:          u.Role,
		DepartmentIDs: append([]string(nil), u.DepartmentIDs...),
	}
}

// DepartmentSeed is a department created together with a new organization.
type DepartmentSeed struct {
	ID   string
	Name string
}

// Registration is everything persisted atomically by a signup.
type Registration struct {
	Organization Organization
	Departments  []DepartmentSeed
	Owner        User
}

// PasswordReset is a single-use reset token. Only its SHA-256 is stored.
type PasswordReset struct {
	ID        string
	UserID    string
	TokenHash string
	ExpiresAt time.Time
	UsedAt    *time.Time
	CreatedAt time.Time
}

// UserUpdate carries optional changes. Nil fields are left untouched; an
// empty AvatarURL clears it and a non-nil empty DepartmentIDs removes every
// membership.
type UserUpdate struct {
	Name          *string
	AvatarURL     *string
	Role          *rbac.Role
	DepartmentIDs *[]string
}

// SignupInput is the public registration payload.
type SignupInput struct {
	OrganizationName string `json:"org_name"`
	Name             string `json:"name"`
	Email            string `json:"email"`
	Password         string `json:"password"`
}

// InviteInput creates a user inside the actor's organization.
type InviteInput struct {
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	Password      string    `json:"password"`
	Role          rbac.Role `json:"role"`
	DepartmentIDs []string  `json:"department_ids"`
}

// Session is the result of a successful login.
type Session struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      User      `json:"user"`
}
