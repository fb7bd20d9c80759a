// internal/middleware/domaingate_test.go
//
// Unit-tests for the edge validation stage.
//
// Context
// -------
// fakeValidator stands in for the tenant provider so each behaviour can
// be driven directly:
//
//   • bound hostname                     → pass-through, domain in context
//   • unbound hostname                   → 404, pipeline stops
//   • control plane down                 → fail open, pipeline continues
//   • origin override from trusted peer  → override honoured
//   • origin override from stranger      → Host header wins
//
// Run: go test ./internal/middleware -v

package middleware

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/yanizio/quill/internal/tenant"
)

// fakeValidator satisfies DomainValidator with injectable state.
type fakeValidator struct {
	bound map[string]bool
	err   error
	calls int
}

func (f *fakeValidator) ValidateDomain(_ context.Context, host string) (bool, error) {
	f.calls++
	if f.err != nil {
		return false, f.err
	}
	return f.bound[host], nil
}

func mustCIDRs(t *testing.T, blocks ...string) []*net.IPNet {
	t.Helper()
	nets, err := ParseCIDRs(blocks)
	if err != nil {
		t.Fatalf("ParseCIDRs: %v", err)
	}
	return nets
}

func TestDomainGate_BoundHostPassesThrough(t *testing.T) {
	v := &fakeValidator{bound: map[string]bool{"acme.com": true}}

	var gotDomain string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotDomain, _ = tenant.Domain(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "http://ACME.COM:8443/articles", nil)
	req.Host = "ACME.COM:8443"
	rr := httptest.NewRecorder()

	DomainGate(v, nil, "")(next).ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	if gotDomain != "acme.com" {
		t.Fatalf("context domain = %q, want acme.com (normalised, port stripped)", gotDomain)
	}
}

func TestDomainGate_UnboundHostRejected(t *testing.T) {
	v := &fakeValidator{bound: map[string]bool{}}

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("pipeline continued past the gate for an unbound host")
	})

	req := httptest.NewRequest(http.MethodGet, "http://unknown.io/", nil)
	rr := httptest.NewRecorder()

	DomainGate(v, nil, "")(next).ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rr.Code)
	}
}

func TestDomainGate_StoreFailureFailsOpen(t *testing.T) {
	v := &fakeValidator{err: errors.New("control plane unreachable")}

	called := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "http://acme.com/", nil)
	rr := httptest.NewRecorder()

	DomainGate(v, nil, "")(next).ServeHTTP(rr, req)

	if !called {
		t.Fatal("fail-open path did not continue the pipeline")
	}
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
}

func TestDomainGate_OriginOverrideFromTrustedProxy(t *testing.T) {
	v := &fakeValidator{bound: map[string]bool{"tenant.example.com": true}}
	trusted := mustCIDRs(t, "10.0.0.0/8")

	var gotDomain string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotDomain, _ = tenant.Domain(r.Context())
	})

	req := httptest.NewRequest(http.MethodGet, "http://edge-cache.cdn.net/", nil)
	req.RemoteAddr = "10.1.2.3:39224"
	req.Header.Set("X-Origin-Host", "Tenant.Example.Com")
	rr := httptest.NewRecorder()

	DomainGate(v, trusted, "X-Origin-Host")(next).ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	if gotDomain != "tenant.example.com" {
		t.Fatalf("context domain = %q, want the override host", gotDomain)
	}
}

func TestDomainGate_OriginOverrideIgnoredFromStranger(t *testing.T) {
	// A direct client claiming to be the CDN must not be believed; the
	// gate validates the real Host header instead.
	v := &fakeValidator{bound: map[string]bool{"tenant.example.com": true}}
	trusted := mustCIDRs(t, "10.0.0.0/8")

	req := httptest.NewRequest(http.MethodGet, "http://unknown.io/", nil)
	req.RemoteAddr = "203.0.113.7:55001"
	req.Header.Set("X-Origin-Host", "tenant.example.com")
	rr := httptest.NewRecorder()

	DomainGate(v, trusted, "X-Origin-Host")(http.NotFoundHandler()).ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404 (override must be ignored)", rr.Code)
	}
}

func TestParseCIDRs_RejectsInvalidBlock(t *testing.T) {
	if _, err := ParseCIDRs([]string{"10.0.0.0/8", "not-a-cidr"}); err == nil {
		t.Fatal("expected error for invalid CIDR block")
	}
}
