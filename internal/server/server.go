// internal/server/server.go
//
// HTTP server construction with deployment-tunable timeouts.
//
// Context
// -------
// Every listener the platform opens goes through New so the slow-loris
// and keep-alive protections cannot be forgotten.  Timeouts come from
// the `http` section of conf/global.yaml; zero values take the defaults
// below.
//
// Notes
// -----
// • TLSConfig may be injected by callers (e.g., autocert).
// • Oxford commas, two spaces after periods.

package server

import (
	"net/http"
	"time"
)

// Fallbacks when conf/global.yaml leaves a timeout unset.
const (
	DefaultReadTimeout  = 10 * time.Second // abort slow-loris headers
	DefaultWriteTimeout = 15 * time.Second // cap total response time
	DefaultIdleTimeout  = 60 * time.Second // close idle keep-alives
)

// Timeouts carries the per-listener protection knobs.
type Timeouts struct {
	Read  time.Duration
	Write time.Duration
	Idle  time.Duration
}

func (t *Timeouts) fill() {
	if t.Read <= 0 {
		t.Read = DefaultReadTimeout
	}
	if t.Write <= 0 {
		t.Write = DefaultWriteTimeout
	}
	if t.Idle <= 0 {
		t.Idle = DefaultIdleTimeout
	}
}

// New constructs an *http.Server for addr with the given timeouts.
func New(addr string, handler http.Handler, t Timeouts) *http.Server {
	t.fill()
	return &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  t.Read,
		WriteTimeout: t.Write,
		IdleTimeout:  t.Idle,
	}
}
