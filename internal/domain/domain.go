// internal/domain/domain.go
//
// Hostname normalisation helpers.
//
// Context
// -------
// Every caller-supplied hostname (Host headers, job parameters, referer
// URLs) passes through this package before it touches the tenant cache or
// the control-plane store.  Normalisation is the reason "ACME.COM",
// " acme.com ", and "acme.com" all land on the same cache key and the same
// SQL parameter.
//
// Notes
// -----
// • Pure functions, no state, no logging, never an error.
// • Empty or whitespace-only input maps to the empty string; callers decide
//   what emptiness means.
// • Oxford commas, two spaces after periods.
package domain

import (
	"net/url"
	"strings"
)

// Normalize trims surrounding whitespace and lowercases s.  It performs no
// syntactic validation; an unresolvable hostname simply never matches a
// tenant row.
func Normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Clean accepts a value that may be a bare hostname or a full URL (a
// referer header, a website_url column) and reduces it to a normalised
// hostname.  Anything that does not parse as an absolute http(s)-style URL
// falls back to Normalize.
func Clean(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if u, err := url.Parse(s); err == nil && u.IsAbs() && u.Host != "" {
		return strings.ToLower(u.Hostname())
	}
	return Normalize(s)
}

// StripPort removes a ":port" suffix from a Host header value when present.
func StripPort(h string) string {
	if i := strings.IndexByte(h, ':'); i != -1 {
		return h[:i]
	}
	return h
}
