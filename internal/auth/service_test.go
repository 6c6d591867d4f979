package auth_test

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"sopline.io/internal/auth"
	"sopline.io/internal/rbac"
	"sopline.io/internal/store/memory"
)

const testSecret = "test-secret"

type captureNotifier struct {
	mu    sync.Mutex
	links map[string]string
}

func (n *captureNotifier) SendPasswordReset(_ context.Context, email, resetURL string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.links == nil {
		n.links = map[string]string{}
	}
	n.links[email] = resetURL
	return nil
}

func (n *captureNotifier) token(t *testing.T, email string) string {
	t.Helper()
	n.mu.Lock()
	defer n.mu.Unlock()
	link, ok := n.links[email]
	if !ok {
		t.Fatalf("no reset link sent to %s", email)
	}
	u, err := url.Parse(link)
	if err != nil {
		t.Fatalf("parse reset link: %v", err)
	}
	return u.Query().Get("token")
}

type fixture struct {
	svc      *auth.Service
	store    *memory.Store
	notifier *captureNotifier
	clock    *time.Time
	org      auth.Organization
	owner    auth.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	f := &fixture{notifier: &captureNotifier{}, clock: &now}
	clock := func() time.Time { return *f.clock }
	f.store = memory.New(clock)
	svc, err := auth.NewService(f.store, testSecret,
		auth.WithClock(clock),
		auth.WithNotifier(f.notifier),
		auth.WithAppURL("https://app.example.com/"),
	)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	f.svc = svc
	f.org, f.owner, err = svc.Signup(context.Background(), auth.SignupInput{
		OrganizationName: "Acme Logistics",
		Name:             "Olivia Owner",
		Email:            "Owner@Acme.test",
		Password:         "correct-horse",
	})
	if err != nil {
		t.Fatalf("signup: %v", err)
	}
	return f
}

func (f *fixture) invite(t *testing.T, role rbac.Role, email string, depts ...string) auth.User {
	t.Helper()
	u, err := f.svc.InviteUser(context.Background(), f.owner.Caller(), auth.InviteInput{
		Name:          "Member " + string(role),
		Email:         email,
		Password:      "password-123",
		Role:          role,
		DepartmentIDs: depts,
	})
	if err != nil {
		t.Fatalf("invite %s: %v", role, err)
	}
	return u
}

func TestSignupCreatesOrganizationWithDefaultDepartments(t *testing.T) {
	f := newFixture(t)
	if f.org.Slug != "acme-logistics" {
		t.Fatalf("unexpected slug %q", f.org.Slug)
	}
	if f.owner.Role != rbac.RoleOwner {
		t.Fatalf("expected owner role, got %s", f.owner.Role)
	}
	if f.owner.Email != "owner@acme.test" {
		t.Fatalf("expected normalised email, got %q", f.owner.Email)
	}
	depts, err := f.store.ListDepartments(context.Background(), f.org.ID)
	if err != nil {
		t.Fatalf("list departments: %v", err)
	}
	if len(depts) != len(auth.DefaultDepartments) {
		t.Fatalf("expected %d departments, got %d", len(auth.DefaultDepartments), len(depts))
	}
	if len(f.owner.DepartmentIDs) != len(depts) {
		t.Fatalf("owner should belong to every department: %v", f.owner.DepartmentIDs)
	}
}

func TestSignupRejectsDuplicates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, _, err := f.svc.Signup(ctx, auth.SignupInput{OrganizationName: "Other Co", Name: "Someone", Email: "owner@acme.test", Password: "password-123"})
	if !errors.Is(err, auth.ErrConflict) {
		t.Fatalf("expected conflict for reused email, got %v", err)
	}
	_, _, err = f.svc.Signup(ctx, auth.SignupInput{OrganizationName: "acme logistics", Name: "Someone", Email: "new@acme.test", Password: "password-123"})
	if !errors.Is(err, auth.ErrConflict) {
		t.Fatalf("expected conflict for reused organization, got %v", err)
	}
}

func TestSignupValidation(t *testing.T) {
	f := newFixture(t)
	cases := []auth.SignupInput{
		{OrganizationName: "A", Name: "Valid Name", Email: "a@b.test", Password: "password-123"},
		{OrganizationName: "Valid Org", Name: "V", Email: "a@b.test", Password: "password-123"},
		{OrganizationName: "Valid Org", Name: "Valid Name", Email: "not-an-email", Password: "password-123"},
		{OrganizationName: "Valid Org", Name: "Valid Name", Email: "a@b.test", Password: "short"},
		{OrganizationName: "!!", Name: "Valid Name", Email: "a@b.test", Password: "password-123"},
	}
	for i, in := range cases {
		if _, _, err := f.svc.Signup(context.Background(), in); !errors.Is(err, auth.ErrInvalidInput) {
			t.Fatalf("case %d: expected invalid input, got %v", i, err)
		}
	}
}

func TestLoginAndAuthenticate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sess, err := f.svc.Login(ctx, " OWNER@acme.test ", "correct-horse")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if !sess.ExpiresAt.Equal(f.clock.Add(12 * time.Hour)) {
		t.Fatalf("unexpected expiry %s", sess.ExpiresAt)
	}
	caller, err := f.svc.Authenticate(ctx, sess.Token)
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if caller.UserID != f.owner.ID || caller.OrgID != f.org.ID || caller.Role != rbac.RoleOwner {
		t.Fatalf("unexpected caller %+v", caller)
	}

	if _, err := f.svc.Login(ctx, "owner@acme.test", "wrong-password"); !errors.Is(err, auth.ErrUnauthorized) {
		t.Fatalf("expected unauthorized for wrong password, got %v", err)
	}
	if _, err := f.svc.Login(ctx, "nobody@acme.test", "correct-horse"); !errors.Is(err, auth.ErrUnauthorized) {
		t.Fatalf("expected unauthorized for unknown user, got %v", err)
	}
	if _, err := f.svc.Authenticate(ctx, sess.Token+"x"); !errors.Is(err, auth.ErrInvalidToken) {
		t.Fatalf("expected invalid token, got %v", err)
	}

	*f.clock = f.clock.Add(13 * time.Hour)
	if _, err := f.svc.Authenticate(ctx, sess.Token); !errors.Is(err, auth.ErrInvalidToken) {
		t.Fatalf("expected expired token to fail, got %v", err)
	}
}

func TestAuthenticateReloadsMembership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	dept := f.owner.DepartmentIDs[0]
	editor := f.invite(t, rbac.RoleEditor, "editor@acme.test", dept)
	sess, err := f.svc.Login(ctx, "editor@acme.test", "password-123")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	viewer := rbac.RoleViewer
	if _, err := f.svc.UpdateUser(ctx, f.owner.Caller(), editor.ID, auth.UserUpdate{Role: &viewer}); err != nil {
		t.Fatalf("update: %v", err)
	}
	caller, err := f.svc.Authenticate(ctx, sess.Token)
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if caller.Role != rbac.RoleViewer {
		t.Fatalf("role change should apply to existing sessions, got %s", caller.Role)
	}

	if err := f.svc.DeleteUser(ctx, f.owner.Caller(), editor.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := f.svc.Authenticate(ctx, sess.Token); !errors.Is(err, auth.ErrInvalidToken) {
		t.Fatalf("deleted user token should be rejected, got %v", err)
	}
}

func TestInviteRules(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	dept := f.owner.DepartmentIDs[0]
	admin := f.invite(t, rbac.RoleOrgAdmin, "admin@acme.test")
	editor := f.invite(t, rbac.RoleEditor, "editor@acme.test", dept)

	_, err := f.svc.InviteUser(ctx, editor.Caller(), auth.InviteInput{Name: "New User", Email: "n@acme.test", Password: "password-123", Role: rbac.RoleViewer})
	if !errors.Is(err, auth.ErrForbidden) {
		t.Fatalf("editor invite should be forbidden, got %v", err)
	}
	_, err = f.svc.InviteUser(ctx, admin.Caller(), auth.InviteInput{Name: "New User", Email: "n@acme.test", Password: "password-123", Role: rbac.RoleOwner})
	if !errors.Is(err, auth.ErrInvalidInput) {
		t.Fatalf("owner role should be reserved, got %v", err)
	}
	_, err = f.svc.InviteUser(ctx, admin.Caller(), auth.InviteInput{Name: "New User", Email: "editor@acme.test", Password: "password-123", Role: rbac.RoleViewer})
	if !errors.Is(err, auth.ErrConflict) {
		t.Fatalf("duplicate email should conflict, got %v", err)
	}
	_, err = f.svc.InviteUser(ctx, admin.Caller(), auth.InviteInput{Name: "New User", Email: "n@acme.test", Password: "password-123", Role: rbac.RoleViewer, DepartmentIDs: []string{"missing"}})
	if !errors.Is(err, auth.ErrInvalidInput) {
		t.Fatalf("unknown department should be rejected, got %v", err)
	}
}

func TestInviteRejectsDepartmentOfOtherOrganization(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, other, err := f.svc.Signup(ctx, auth.SignupInput{OrganizationName: "Globex", Name: "Gina Owner", Email: "gina@globex.test", Password: "password-123"})
	if err != nil {
		t.Fatalf("signup: %v", err)
	}
	_, err = f.svc.InviteUser(ctx, f.owner.Caller(), auth.InviteInput{
		Name: "Leaky", Email: "leaky@acme.test", Password: "password-123",
		Role: rbac.RoleEditor, DepartmentIDs: []string{other.DepartmentIDs[0]},
	})
	if !errors.Is(err, auth.ErrInvalidInput) {
		t.Fatalf("foreign department should be rejected, got %v", err)
	}
}

func TestOwnerIsProtected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := f.invite(t, rbac.RoleOrgAdmin, "admin@acme.test")

	viewer := rbac.RoleViewer
	if _, err := f.svc.UpdateUser(ctx, admin.Caller(), f.owner.ID, auth.UserUpdate{Role: &viewer}); !errors.Is(err, auth.ErrForbidden) {
		t.Fatalf("admin must not demote the owner, got %v", err)
	}
	if _, err := f.svc.UpdateUser(ctx, f.owner.Caller(), f.owner.ID, auth.UserUpdate{Role: &viewer}); !errors.Is(err, auth.ErrForbidden) {
		t.Fatalf("the owner keeps the owner role, got %v", err)
	}
	if err := f.svc.DeleteUser(ctx, f.owner.Caller(), f.owner.ID); !errors.Is(err, auth.ErrInvalidInput) {
		t.Fatalf("owner removal should be rejected, got %v", err)
	}
	name := "Olivia Renamed"
	u, err := f.svc.UpdateUser(ctx, f.owner.Caller(), f.owner.ID, auth.UserUpdate{Name: &name})
	if err != nil {
		t.Fatalf("owner renaming themselves: %v", err)
	}
	if u.Name != name || u.Role != rbac.RoleOwner {
		t.Fatalf("unexpected user %+v", u)
	}
}

func TestUserManagementIsTenantScoped(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, other, err := f.svc.Signup(ctx, auth.SignupInput{OrganizationName: "Globex", Name: "Gina Owner", Email: "gina@globex.test", Password: "password-123"})
	if err != nil {
		t.Fatalf("signup: %v", err)
	}
	name := "Hijacked"
	if _, err := f.svc.UpdateUser(ctx, f.owner.Caller(), other.ID, auth.UserUpdate{Name: &name}); !errors.Is(err, auth.ErrNotFound) {
		t.Fatalf("cross-tenant update should look missing, got %v", err)
	}
	if err := f.svc.DeleteUser(ctx, f.owner.Caller(), other.ID); !errors.Is(err, auth.ErrNotFound) {
		t.Fatalf("cross-tenant delete should look missing, got %v", err)
	}
	users, err := f.svc.ListUsers(ctx, f.owner.Caller())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	for _, u := range users {
		if u.OrganizationID != f.org.ID {
			t.Fatalf("listed user of another organization: %+v", u)
		}
	}
}

func TestProfileAndOrganization(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	editor := f.invite(t, rbac.RoleEditor, "editor@acme.test")

	avatar := " https://cdn.example.com/a.png "
	u, err := f.svc.UpdateProfile(ctx, editor.Caller(), nil, &avatar)
	if err != nil {
		t.Fatalf("update profile: %v", err)
	}
	if u.AvatarURL != strings.TrimSpace(avatar) || u.Name != editor.Name {
		t.Fatalf("unexpected profile %+v", u)
	}

	if _, err := f.svc.RenameOrganization(ctx, editor.Caller(), "Acme Renamed"); !errors.Is(err, auth.ErrForbidden) {
		t.Fatalf("editor rename should be forbidden, got %v", err)
	}
	org, err := f.svc.RenameOrganization(ctx, f.owner.Caller(), "Acme Renamed")
	if err != nil {
		t.Fatalf("rename: %v", err)
	}
	if org.Name != "Acme Renamed" {
		t.Fatalf("unexpected organization %+v", org)
	}
}

func TestPasswordResetFlow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if err := f.svc.RequestPasswordReset(ctx, "nobody@acme.test"); err != nil {
		t.Fatalf("unknown email should succeed silently, got %v", err)
	}
	if err := f.svc.RequestPasswordReset(ctx, "owner@acme.test"); err != nil {
		t.Fatalf("request reset: %v", err)
	}
	first := f.notifier.token(t, "owner@acme.test")
	if len(first) != 64 {
		t.Fatalf("expected 64 hex chars, got %d", len(first))
	}
	if err := f.svc.RequestPasswordReset(ctx, "owner@acme.test"); err != nil {
		t.Fatalf("second request: %v", err)
	}
	second := f.notifier.token(t, "owner@acme.test")

	if err := f.svc.ResetPassword(ctx, first, "brand-new-pass"); !errors.Is(err, auth.ErrInvalidInput) {
		t.Fatalf("replaced token should be invalid, got %v", err)
	}
	if err := f.svc.ResetPassword(ctx, second, "brand-new-pass"); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if err := f.svc.ResetPassword(ctx, second, "another-pass-1"); !errors.Is(err, auth.ErrInvalidInput) {
		t.Fatalf("token must be single use, got %v", err)
	}
	if _, err := f.svc.Login(ctx, "owner@acme.test", "brand-new-pass"); err != nil {
		t.Fatalf("login with new password: %v", err)
	}
}

func TestPasswordResetExpires(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if err := f.svc.RequestPasswordReset(ctx, "owner@acme.test"); err != nil {
		t.Fatalf("request reset: %v", err)
	}
	token := f.notifier.token(t, "owner@acme.test")
	*f.clock = f.clock.Add(61 * time.Minute)
	if err := f.svc.ResetPassword(ctx, token, "brand-new-pass"); !errors.Is(err, auth.ErrInvalidInput) {
		t.Fatalf("expired token should be invalid, got %v", err)
	}
	if err := f.svc.ResetPassword(ctx, "short", "brand-new-pass"); !errors.Is(err, auth.ErrInvalidInput) {
		t.Fatalf("short token should be invalid, got %v", err)
	}
}
