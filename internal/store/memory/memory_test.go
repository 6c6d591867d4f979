package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"sopline.io/internal/auth"
	"sopline.io/internal/library"
	"sopline.io/internal/rbac"
)

func seedOrg(t *testing.T, s *Store, org, dept, owner string) {
	t.Helper()
	err := s.Register(context.Background(), auth.Registration{
		Organization: auth.Organization{ID: org, Name: "Org " + org, Slug: "org-" + org},
		Departments:  []auth.DepartmentSeed{{ID: dept, Name: "Operations"}},
		Owner: auth.User{
			ID:             owner,
			OrganizationID: org,
			Name:           "Owner",
			Email:          owner + "@example.com",
			Role:           rbac.RoleOwner,
			DepartmentIDs:  []string{dept},
		},
	})
	if err != nil {
		t.Fatalf("register %s: %v", org, err)
	}
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	s := New(nil)
	seedOrg(t, s, "o1", "d1", "u1")
	err := s.Register(context.Background(), auth.Registration{
		Organization: auth.Organization{ID: "o2", Name: "ORG O1", Slug: "other"},
		Owner:        auth.User{ID: "u2", OrganizationID: "o2", Email: "x@example.com", Role: rbac.RoleOwner},
	})
	if !errors.Is(err, auth.ErrConflict) {
		t.Fatalf("expected conflict on org name, got %v", err)
	}
	err = s.Register(context.Background(), auth.Registration{
		Organization: auth.Organization{ID: "o3", Name: "Fresh", Slug: "fresh"},
		Owner:        auth.User{ID: "u3", OrganizationID: "o3", Email: "U1@example.com", Role: rbac.RoleOwner},
	})
	if !errors.Is(err, auth.ErrConflict) {
		t.Fatalf("expected conflict on email, got %v", err)
	}
}

func TestLookupsAreTenantScoped(t *testing.T) {
	ctx := context.Background()
	s := New(nil)
	seedOrg(t, s, "o1", "d1", "u1")
	seedOrg(t, s, "o2", "d2", "u2")

	if _, err := s.GetDepartment(ctx, "o2", "d1"); !errors.Is(err, library.ErrNotFound) {
		t.Fatalf("cross-tenant department lookup: %v", err)
	}
	if _, err := s.GetOrgUser(ctx, "o1", "u2"); !errors.Is(err, auth.ErrNotFound) {
		t.Fatalf("cross-tenant user lookup: %v", err)
	}
	if _, err := s.CreateSOP(ctx, library.SOP{ID: "s1", OrganizationID: "o2", DepartmentID: "d1"}); !errors.Is(err, library.ErrNotFound) {
		t.Fatalf("sop in foreign department: %v", err)
	}
	n, err := s.CountDepartments(ctx, "o1", []string{"d1", "d2"})
	if err != nil || n != 1 {
		t.Fatalf("CountDepartments = %d, %v", n, err)
	}
}

func TestAppendStepStartsAtStepBase(t *testing.T) {
	ctx := context.Background()
	s := New(nil)
	seedOrg(t, s, "o1", "d1", "u1")
	if _, err := s.CreateSOP(ctx, library.SOP{ID: "s1", OrganizationID: "o1", DepartmentID: "d1"}); err != nil {
		t.Fatalf("create sop: %v", err)
	}
	for i, id := range []string{"a", "b", "c"} {
		st, err := s.AppendStep(ctx, library.Step{ID: id, SOPID: "s1"})
		if err != nil {
			t.Fatalf("append %s: %v", id, err)
		}
		if st.Order != i+1 {
			t.Fatalf("step %s order = %d, want %d", id, st.Order, i+1)
		}
	}
	steps, _ := s.ListSteps(ctx, "s1")
	if len(steps) != 3 || steps[0].ID != "a" || steps[2].ID != "c" {
		t.Fatalf("unexpected steps %+v", steps)
	}
	if _, err := s.GetStep(ctx, "o2", "a"); !errors.Is(err, library.ErrNotFound) {
		t.Fatalf("step visible to another org: %v", err)
	}
}

func TestDeleteCommentRemovesReplies(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s := New(func() time.Time { return now })
	seedOrg(t, s, "o1", "d1", "u1")
	if _, err := s.CreateSOP(ctx, library.SOP{ID: "s1", OrganizationID: "o1", DepartmentID: "d1"}); err != nil {
		t.Fatalf("create sop: %v", err)
	}
	for _, c := range []library.Comment{
		{ID: "c1", SOPID: "s1", Author: library.Author{ID: "u1"}, Body: "root", CreatedAt: now},
		{ID: "c2", SOPID: "s1", ParentID: "c1", Author: library.Author{ID: "u1"}, Body: "reply", CreatedAt: now.Add(time.Second)},
		{ID: "c3", SOPID: "s1", ParentID: "c2", Author: library.Author{ID: "u1"}, Body: "nested", CreatedAt: now.Add(2 * time.Second)},
		{ID: "c4", SOPID: "s1", Author: library.Author{ID: "u1"}, Body: "other", CreatedAt: now.Add(3 * time.Second)},
	} {
		if _, err := s.CreateComment(ctx, c); err != nil {
			t.Fatalf("create %s: %v", c.ID, err)
		}
	}
	got, _ := s.GetComment(ctx, "s1", "c1")
	if got.Author.Email != "u1@example.com" {
		t.Fatalf("author not resolved: %+v", got.Author)
	}

	if err := s.DeleteComment(ctx, "s1", "c1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	left, _ := s.ListComments(ctx, "s1")
	if len(left) != 1 || left[0].ID != "c4" {
		t.Fatalf("expected only c4 to remain, got %+v", left)
	}
}

func TestDeleteDepartmentGuardsSOPs(t *testing.T) {
	ctx := context.Background()
	s := New(nil)
	seedOrg(t, s, "o1", "d1", "u1")
	if _, err := s.CreateSOP(ctx, library.SOP{ID: "s1", OrganizationID: "o1", DepartmentID: "d1"}); err != nil {
		t.Fatalf("create sop: %v", err)
	}
	if err := s.DeleteDepartment(ctx, "o1", "d1"); !errors.Is(err, library.ErrConflict) {
		t.Fatalf("expected conflict while sops remain, got %v", err)
	}
	if err := s.DeleteSOP(ctx, "o1", "s1"); err != nil {
		t.Fatalf("delete sop: %v", err)
	}
	if err := s.DeleteDepartment(ctx, "o1", "d1"); err != nil {
		t.Fatalf("delete department: %v", err)
	}
	u, _ := s.GetUser(ctx, "u1")
	if len(u.DepartmentIDs) != 0 {
		t.Fatalf("membership not removed: %v", u.DepartmentIDs)
	}
}
