// internal/middleware/https_test.go
//
// Unit-tests for the ForceHTTPS wrapper.
//
// Run: go test ./internal/middleware -v

package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/yanizio/quill/internal/tenant"
)

// fakeResolver satisfies Resolver with a fixed set of known hosts.
type fakeResolver struct {
	known map[string]*tenant.Connection
}

func (f *fakeResolver) Resolve(_ context.Context, host string) *tenant.Connection {
	return f.known[host]
}

func TestForceHTTPS_RedirectsKnownTenant(t *testing.T) {
	p := &fakeResolver{known: map[string]*tenant.Connection{
		"acme.com": {ID: 1, DBConn: "db-acme"},
	}}

	req := httptest.NewRequest(http.MethodGet, "http://acme.com/articles?page=2", nil)
	rr := httptest.NewRecorder()

	ForceHTTPS(p, http.NotFoundHandler()).ServeHTTP(rr, req)

	if rr.Code != http.StatusPermanentRedirect {
		t.Fatalf("status = %d, want 308", rr.Code)
	}
	if loc := rr.Header().Get("Location"); loc != "https://acme.com/articles?page=2" {
		t.Fatalf("Location = %q", loc)
	}
}

func TestForceHTTPS_UnknownHostFallsThrough(t *testing.T) {
	p := &fakeResolver{known: map[string]*tenant.Connection{}}

	req := httptest.NewRequest(http.MethodGet, "http://unknown.io/", nil)
	rr := httptest.NewRecorder()

	ForceHTTPS(p, http.NotFoundHandler()).ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want pass-through to next handler", rr.Code)
	}
}

func TestForceHTTPS_LocalhostSkipped(t *testing.T) {
	p := &fakeResolver{known: map[string]*tenant.Connection{}}

	called := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true })

	req := httptest.NewRequest(http.MethodGet, "http://localhost:8080/", nil)
	rr := httptest.NewRecorder()

	ForceHTTPS(p, next).ServeHTTP(rr, req)

	if !called {
		t.Fatal("localhost request did not reach the next handler")
	}
}
