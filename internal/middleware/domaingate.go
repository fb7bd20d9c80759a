// internal/middleware/domaingate.go
//
// Edge validation stage: reject requests for hostnames no tenant owns.
//
/*
Context
--------
Every request entering the platform carries a Host header that may or may
not belong to a tenant.  The gate asks the provider's non-cached
validation path and either:

  • rejects with 404 and a minimal body (unbound hostname), logging the
    attempt at WARN for anomaly detection, or
  • stashes the normalised domain in the request context and continues.

A transient control-plane failure fails OPEN: an availability incident in
the tenant directory must not take down every tenant's traffic, so the
request proceeds and downstream resolution gets its own chance.

The Host header can be overridden through a configured header (default
X-Origin-Host), but only when the peer address falls inside the
trusted-proxy CIDR list: the header is meaningful only when our CDN set
it, and trusting it from a direct client would let anyone impersonate any
tenant's hostname.

Notes
-----
  • Order: requestinfo.Enrich must run first so rejection logs carry UA
    and geo attribution.
  • Oxford commas, two spaces after periods.
*/
package middleware

import (
	"context"
	"net"
	"net/http"

	"go.uber.org/zap"

	"github.com/yanizio/quill/internal/domain"
	"github.com/yanizio/quill/internal/metrics"
	"github.com/yanizio/quill/internal/requestinfo"
	"github.com/yanizio/quill/internal/tenant"
)

// DomainValidator is the slice of the tenant provider the gate needs.
type DomainValidator interface {
	ValidateDomain(ctx context.Context, host string) (bool, error)
}

/*──────────────────────────── gate ─────────────────────────────────────────*/

// DomainGate returns the validation middleware.  trustedProxies may be
// nil, in which case originHeader is never consulted.
func DomainGate(p DomainValidator, trustedProxies []*net.IPNet, originHeader string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			host := requestHost(r, trustedProxies, originHeader)

			ok, err := p.ValidateDomain(r.Context(), host)
			switch {
			case err != nil:
				metrics.GateFailOpenTotal.Inc()
				zap.S().Errorw("domain validation unavailable, failing open",
					"domain", host, "err", err)
			case !ok:
				metrics.GateRejectTotal.Inc()
				fields := []any{
					"domain", host,
					"path", r.URL.Path,
					"remote", r.RemoteAddr,
				}
				if ref := domain.Clean(r.Referer()); ref != "" {
					fields = append(fields, "referer_host", ref)
				}
				if info := requestinfo.FromContext(r.Context()); info != nil {
					fields = append(fields,
						"device", info.UA.Device,
						"bot", info.UA.IsBot,
						"country", info.Geo.CountryISO,
					)
				}
				zap.S().Warnw("request for unknown hostname rejected", fields...)
				http.Error(w, "unknown host", http.StatusNotFound)
				return
			}

			// Bound, or fail-open: downstream reads the domain from the
			// request context, never from the Host header again.
			ctx := tenant.WithDomain(r.Context(), host)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

/*──────────────────────────── helpers ──────────────────────────────────────*/

// requestHost extracts the normalised hostname, honouring the origin
// override header only for connections from a trusted proxy.
func requestHost(r *http.Request, trustedProxies []*net.IPNet, originHeader string) string {
	host := r.Host
	if originHeader != "" && fromTrustedProxy(r, trustedProxies) {
		if o := r.Header.Get(originHeader); o != "" {
			host = o
		}
	}
	return domain.Normalize(domain.StripPort(host))
}

// fromTrustedProxy reports whether the TCP peer is inside one of the
// configured CIDR blocks.  The X-Forwarded-For chain is irrelevant here;
// only the directly connected peer proves anything.
func fromTrustedProxy(r *http.Request, trustedProxies []*net.IPNet) bool {
	if len(trustedProxies) == 0 {
		return false
	}
	peer, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		peer = r.RemoteAddr
	}
	ip := net.ParseIP(peer)
	if ip == nil {
		return false
	}
	for _, n := range trustedProxies {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

// ParseCIDRs converts config strings into *net.IPNet values, skipping
// blanks.  Invalid blocks are an error; a typo here must not silently
// widen trust.
func ParseCIDRs(blocks []string) ([]*net.IPNet, error) {
	var out []*net.IPNet
	for _, b := range blocks {
		if b == "" {
			continue
		}
		_, n, err := net.ParseCIDR(b)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}
