package obs

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"runtime"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCanonicalPath(t *testing.T) {
	cases := map[string]string{
		"":                                "/",
		"/metrics":                        "/metrics",
		"/v1/sops":                        "/v1/sops",
		"/v1/sops/01HZX":                  "/v1/sops/:id",
		"/v1/sops/01HZX/steps":            "/v1/sops/:id/steps",
		"/v1/sops/01HZX/steps/reorder":    "/v1/sops/:id/steps/reorder",
		"/v1/sections/reorder":            "/v1/sections/reorder",
		"/v1/share/sop/abc123":            "/v1/share/sop/:id",
		"/v1/share/section/abc123/unlock": "/v1/share/section/:id/unlock",
		"/v1/sops/01HZX/share/rotate":     "/v1/sops/:id/share/rotate",
		"/v1/users/invite":                "/v1/users/invite",
		"/v1/flow-boards/b1?x=1":          "/v1/flow-boards/:id",
		"/v1/departments/d1":              "/v1/departments/:id",
		"/v1/users/u1":                    "/v1/users/:id",
	}
	for input, expected := range cases {
		if got := CanonicalPath(input); got != expected {
			t.Fatalf("CanonicalPath(%q)=%q, want %q", input, got, expected)
		}
	}
}

func TestInstrumentCountsCanonicalPath(t *testing.T) {
	Init()
	h := Instrument(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodDelete, "/v1/steps/:id", "204"))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodDelete, "/v1/steps/s-1", nil))
	after := testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodDelete, "/v1/steps/:id", "204"))
	if after != before+1 {
		t.Fatalf("expected counter to grow by one, got %v -> %v", before, after)
	}
}

func TestRecordDecision(t *testing.T) {
	before := testutil.ToFloat64(authzDecisions.WithLabelValues("edit", "forbidden"))
	RecordDecision("edit", "forbidden")
	if got := testutil.ToFloat64(authzDecisions.WithLabelValues("edit", "forbidden")); got != before+1 {
		t.Fatalf("decision counter=%v, want %v", got, before+1)
	}
}

func TestSetOutput(t *testing.T) {
	var buf bytes.Buffer
	restore := SetOutput(&buf)
	defer restore()

	Logger().Info().Str("component", "test").Msg("hello")

	var entry map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(buf.String())), &entry); err != nil {
		t.Fatalf("log is not JSON: %v", err)
	}
	for _, key := range []string{"ts", "level", "msg", "component"} {
		if _, ok := entry[key]; !ok {
			t.Fatalf("expected key %q in %v", key, entry)
		}
	}
}

func TestInitBuildInfoLabelsStore(t *testing.T) {
	InitBuildInfo(BuildInfo{Version: "1.2.3", Commit: "abc", Store: "memory"})
	InitBuildInfo(BuildInfo{Version: "1.2.3", Commit: "abc", Store: "postgres"})

	if got := testutil.CollectAndCount(buildInfo); got != 1 {
		t.Fatalf("expected a single build_info series, got %d", got)
	}
	if got := testutil.ToFloat64(buildInfo.WithLabelValues("1.2.3", "abc", "postgres", runtime.Version())); got != 1 {
		t.Fatalf("build_info{store=postgres}=%v, want 1", got)
	}
}
