// internal/middleware/security.go
//
// Security-header middleware, tunable per deployment.
//
// Context
// -------
// One process fronts every tenant's hostname, so the response-header set
// is deployment policy rather than per-handler code.  Operators override
// individual values under `http.security` in conf/global.yaml; empty
// fields take the defaults below.
//
// Notes
// -----
// • Headers are added *after* next.ServeHTTP so handlers may set a value
//   themselves; the middleware never overwrites an existing one.
// • HSTS is emitted only when force_https is on.  Advertising HSTS off a
//   plain-HTTP listener would strand local and staging setups.
// • Oxford commas, two spaces after periods.

package middleware

import "net/http"

// Header policy defaults.
const (
	defaultHSTS = "max-age=63072000; includeSubDomains; preload"
	defaultCSP  = "default-src 'self'; img-src 'self' data:; object-src 'none'; " +
		"base-uri 'self'; frame-ancestors 'none'"
	defaultPermissions = "geolocation=(), microphone=(), camera=()"
)

// HeaderPolicy selects the headers Security emits.  Empty string fields
// take the defaults; HSTS is governed by EmitHSTS.
type HeaderPolicy struct {
	EmitHSTS          bool
	HSTS              string
	CSP               string
	PermissionsPolicy string
}

// Security returns a middleware applying the header policy to every
// response.
func Security(pol HeaderPolicy) func(http.Handler) http.Handler {
	if pol.HSTS == "" {
		pol.HSTS = defaultHSTS
	}
	if pol.CSP == "" {
		pol.CSP = defaultCSP
	}
	if pol.PermissionsPolicy == "" {
		pol.PermissionsPolicy = defaultPermissions
	}

	headers := [][2]string{
		{"Content-Security-Policy", pol.CSP},
		{"X-Frame-Options", "DENY"},
		{"X-Content-Type-Options", "nosniff"},
		{"Referrer-Policy", "strict-origin-when-cross-origin"},
		{"Permissions-Policy", pol.PermissionsPolicy},
	}
	if pol.EmitHSTS {
		headers = append(headers, [2]string{"Strict-Transport-Security", pol.HSTS})
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r)
			for _, h := range headers {
				if w.Header().Get(h[0]) == "" {
					w.Header().Set(h[0], h[1])
				}
			}
		})
	}
}
