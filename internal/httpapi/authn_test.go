package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"sopline.io/internal/auth"
	"sopline.io/internal/library"
	"sopline.io/internal/rbac"
)

func TestExtractBearerToken(t *testing.T) {
	cases := []struct {
		header string
		want   string
		ok     bool
	}{
		{"Bearer abc.def", "abc.def", true},
		{"bearer  abc ", "abc", true},
		{"", "", false},
		{"Basic dXNlcg==", "", false},
		{"Bearer ", "", false},
	}
	for _, tc := range cases {
		got, err := extractBearerToken(tc.header)
		if tc.ok != (err == nil) || got != tc.want {
			t.Fatalf("extractBearerToken(%q) = %q, %v", tc.header, got, err)
		}
	}
}

func TestPublicPaths(t *testing.T) {
	for path, want := range map[string]bool{
		"/healthz":                     true,
		"/v1/auth/login":               true,
		"/v1/share/sop/abc":            true,
		"/v1/share/section/abc/unlock": true,
		"/v1/sops":                     false,
		"/v1/sops/abc/share":           false,
		"/v1/auth/login/extra":         false,
	} {
		if got := isPublicPath(path); got != want {
			t.Fatalf("isPublicPath(%q) = %v, want %v", path, got, want)
		}
	}
}

func TestCallerOrRejectRequiresCaller(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/v1/profile", nil)
	rr := httptest.NewRecorder()
	if _, ok := callerOrReject(rr, req); ok {
		t.Fatal("expected rejection without caller")
	}
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}

	want := rbac.Caller{UserID: "u1", OrgID: "o1", Role: rbac.RoleEditor}
	req = req.WithContext(auth.ContextWithCaller(req.Context(), want))
	rr = httptest.NewRecorder()
	got, ok := callerOrReject(rr, req)
	if !ok || got.UserID != want.UserID || got.Role != want.Role {
		t.Fatalf("unexpected caller %+v ok=%v", got, ok)
	}
}

func TestStatusForMapsSentinels(t *testing.T) {
	cases := map[error]int{
		auth.ErrInvalidInput:   http.StatusBadRequest,
		auth.ErrInvalidToken:   http.StatusUnauthorized,
		auth.ErrForbidden:      http.StatusForbidden,
		auth.ErrNotFound:       http.StatusNotFound,
		auth.ErrConflict:       http.StatusConflict,
		library.ErrConflict:    http.StatusConflict,
		library.ErrRetryable:   http.StatusServiceUnavailable,
		http.ErrBodyNotAllowed: http.StatusInternalServerError,
	}
	for err, want := range cases {
		if got := statusFor(err); got != want {
			t.Fatalf("statusFor(%v) = %d, want %d", err, got, want)
		}
	}
}

func TestRetryableErrorsAskClientsToRetry(t *testing.T) {
	req := httptest.NewRequest(http.MethodPut, "/v1/sops/reorder", nil)
	rr := httptest.NewRecorder()
	handleServiceError(rr, req, library.ErrRetryable)
	if rr.Code != http.StatusServiceUnavailable || rr.Header().Get("Retry-After") != "1" {
		t.Fatalf("expected 503 with Retry-After, got %d %q", rr.Code, rr.Header().Get("Retry-After"))
	}
}
