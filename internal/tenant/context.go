// internal/tenant/context.go
//
// Ambient tenant scope.
//
// Context
// -------
// Code that runs outside an HTTP request (a publish job, a preload
// trigger, a queue consumer) still has to answer "whose data am I
// touching" before it may ask the provider for connection strings.  The
// scope is an explicit context.Context value, which is the only mechanism
// Go guarantees to follow a logical call chain.
//
// Nesting and restoration come for free: contexts are immutable, so a
// nested Run derives a child context and the caller's value is untouched
// when it returns, on every path including panics.
//
// Notes
// -----
// • Nothing propagates across a `go` statement by itself.  A detached
//   goroutine sees the tenant scope only if the call site hands it the
//   context (or re-enters Run) deliberately; leaking the parent's tenant
//   into an unrelated worker is an isolation bug, not a convenience.
// • Oxford commas, two spaces after periods.
package tenant

import (
	"context"
	"errors"

	"github.com/yanizio/quill/internal/domain"
)

// ErrNoDomain is returned when a connection-string lookup is made with no
// explicit domain and no ambient scope.  This is a programmer error (a
// job body forgot to establish its tenant) and it must fail loudly
// rather than guess.
var ErrNoDomain = errors.New("tenant: no domain supplied and none bound to the context")

type domainKey struct{} // unexported, collision-proof

// WithDomain returns a child context scoped to host.  The value is
// normalised before storage.
func WithDomain(ctx context.Context, host string) context.Context {
	return context.WithValue(ctx, domainKey{}, domain.Normalize(host))
}

// ClearDomain returns a child context with no tenant scope, shadowing any
// value set by an enclosing scope.
func ClearDomain(ctx context.Context) context.Context {
	return context.WithValue(ctx, domainKey{}, "")
}

// Domain returns the ambient tenant domain, if one is in scope.
func Domain(ctx context.Context) (string, bool) {
	d, _ := ctx.Value(domainKey{}).(string)
	return d, d != ""
}

// Run executes fn inside a tenant scope for host.  This is the sanctioned
// wrapper for background-job bodies: the scheduler calls
// Run(ctx, "acme.com", job) and the job resolves connection strings
// without ever seeing an HTTP request.
func Run(ctx context.Context, host string, fn func(context.Context) error) error {
	return fn(WithDomain(ctx, host))
}
