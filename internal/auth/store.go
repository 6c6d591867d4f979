package auth

import (
	"context"
	"time"
)

// Store describes persistence operations required by the auth subsystem.
// Lookups return ErrNotFound, uniqueness violations ErrConflict.
type Store interface {
	// Register creates the organization, its departments and the owner in one transaction.
	Register(ctx context.Context, reg Registration) error
	OrganizationExists(ctx context.Context, name, slug string) (bool, error)
	GetOrganization(ctx context.Context, id string) (Organization, error)
	RenameOrganization(ctx context.Context, id, name string) (Organization, error)

	GetUser(ctx context.Context, id string) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
	// GetOrgUser only finds users of orgID.
	GetOrgUser(ctx context.Context, orgID, id string) (User, error)
	ListUsers(ctx context.Context, orgID string) ([]User, error)
	CreateUser(ctx context.Context, u User) (User, error)
	UpdateUser(ctx context.Context, orgID, id string, upd UserUpdate) (User, error)
	DeleteUser(ctx context.Context, orgID, id string) error
	// CountDepartments counts how many of ids are departments of orgID.
	CountDepartments(ctx context.Context, orgID string, ids []string) (int, error)

	// ReplacePasswordReset deletes earlier tokens of the user and stores r.
	ReplacePasswordReset(ctx context.Context, r PasswordReset) error
	// ConsumePasswordReset marks the unused token with tokenHash, valid at now,
	// as used and sets the user's password hash. ErrNotFound when no token matches.
	ConsumePasswordReset(ctx context.Context, tokenHash string, now time.Time, passwordHash string) error
}
