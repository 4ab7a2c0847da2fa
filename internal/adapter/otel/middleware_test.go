package otel

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestTraceableExcludesFeedAndHealth(t *testing.T) {
	cases := []struct {
		path string
		want bool
	}{
		{"/api/v1/tasks", true},
		{"/api/v1/agents/alice/stats", true},
		{"/health", false},
		{"/ws", false},
	}
	for _, tc := range cases {
		r := httptest.NewRequest(http.MethodGet, tc.path, nil)
		if got := traceable(r); got != tc.want {
			t.Errorf("traceable(%s) = %v, want %v", tc.path, got, tc.want)
		}
	}
}

func TestSpanNameUsesMethodAndPath(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/api/v1/schedules", nil)
	if got := spanName("", r); got != "POST /api/v1/schedules" {
		t.Fatalf("spanName = %q", got)
	}
}

func TestMiddlewareForwardsRequests(t *testing.T) {
	var hits int
	h := HTTPMiddleware("agentforge-test")(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits++
		w.WriteHeader(http.StatusNoContent)
	}))

	for _, path := range []string{"/api/v1/tasks", "/health"} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusNoContent {
			t.Fatalf("%s: status = %d", path, rec.Code)
		}
	}
	if hits != 2 {
		t.Fatalf("inner handler hits = %d, want 2", hits)
	}
}
