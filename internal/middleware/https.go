// Package middleware holds small, composable HTTP wrappers.
package middleware

import (
	"context"
	"net/http"

	"github.com/yanizio/quill/internal/domain"
	"github.com/yanizio/quill/internal/tenant"
)

// Resolver is the cached-lookup slice of the tenant provider.  ForceHTTPS
// uses it rather than the direct validation path: a redirect decision can
// tolerate staleness, so it should not cost a control-plane round trip.
type Resolver interface {
	Resolve(ctx context.Context, host string) *tenant.Connection
}

// ForceHTTPS wraps h.  If the request is plain HTTP, the host is not
// "localhost", and the cached resolver confirms the tenant exists, the
// wrapper issues a 308 Permanent Redirect to the HTTPS version of the same
// URL.  Otherwise it calls the next handler unchanged.
func ForceHTTPS(p Resolver, h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		host := domain.StripPort(r.Host)

		// Already HTTPS or dev host → continue.
		if r.TLS != nil || host == "localhost" {
			h.ServeHTTP(w, r)
			return
		}

		// Only redirect hostnames that belong to a tenant.
		if p.Resolve(r.Context(), host) != nil {
			target := "https://" + r.Host + r.URL.RequestURI()
			http.Redirect(w, r, target, http.StatusPermanentRedirect)
			return
		}

		// Unknown host → keep normal flow (the gate will reject it).
		h.ServeHTTP(w, r)
	})
}
