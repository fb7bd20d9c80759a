// internal/tenant/provider.go
//
// Resolution and cache engine.
//
// Context
// -------
// Provider answers "which tenant owns this hostname, and what are its
// connection strings" for every inbound unit of work.  The cache sits in
// front of the control-plane store; singleflight collapses concurrent
// misses for one hostname into one query.  Three deliberate asymmetries:
//
//   - Resolution fails SOFT: a control-plane error is logged and surfaces
//     as nil, so one bad lookup cannot crash a caller's unit of work.
//   - Validation never trusts the cache: the edge gate must not vouch for
//     a hostname based on stale data, so ValidateDomain always queries.
//   - Stale hits are re-validated: a cached record whose DomainNames no
//     longer contain the looked-up hostname is evicted in place and the
//     lookup falls through, defending against administrative re-binding
//     while an entry is still live.
//
// Negative results are never cached; a freshly provisioned tenant becomes
// visible on its first request instead of waiting out a TTL.
//
// Notes
// -----
// • Safe under unbounded concurrent use.  Entries are immutable snapshots.
// • A cancelled resolution leaves no cache entry behind.
// • Oxford commas, two spaces after periods.
package tenant

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/yanizio/quill/internal/domain"
	"github.com/yanizio/quill/internal/metrics"
)

// Static defaults.  Override via Settings (wired from conf/global.yaml).
const (
	DefaultResolveTTL         = 5 * time.Minute
	DefaultPreloadTTL         = time.Hour
	DefaultPreloadMinInterval = 30 * time.Minute
	DefaultEvictInterval      = time.Minute
)

// Settings tunes the provider.  Zero values take the defaults above.
type Settings struct {
	ResolveTTL         time.Duration // on-demand entry lifetime
	PreloadTTL         time.Duration // preload entry lifetime
	PreloadMinInterval time.Duration // sweep cool-down
	EvictInterval      time.Duration // expiry scan cadence
}

func (s *Settings) fill() {
	if s.ResolveTTL <= 0 {
		s.ResolveTTL = DefaultResolveTTL
	}
	if s.PreloadTTL <= 0 {
		s.PreloadTTL = DefaultPreloadTTL
	}
	if s.PreloadMinInterval <= 0 {
		s.PreloadMinInterval = DefaultPreloadMinInterval
	}
	if s.EvictInterval <= 0 {
		s.EvictInterval = DefaultEvictInterval
	}
}

// Provider resolves hostnames to tenant records through a TTL cache.
type Provider struct {
	db  *sqlx.DB
	sfg singleflight.Group

	cache       sync.Map // cacheKey(host) → *entry
	settings    Settings
	evictTicker *time.Ticker
	done        chan struct{}
	closeOnce   sync.Once

	preloadMu   sync.Mutex
	lastPreload atomic.Int64 // UnixNano of the last completed sweep
}

// NewProvider constructs a Provider over the control-plane pool and starts
// the background evictor.
func NewProvider(db *sqlx.DB, s Settings) *Provider {
	s.fill()
	p := &Provider{
		db:          db,
		settings:    s,
		evictTicker: time.NewTicker(s.EvictInterval),
		done:        make(chan struct{}),
	}
	go p.evictLoop()
	return p
}

// Close stops the evictor.  The control-plane pool belongs to the caller.
func (p *Provider) Close() {
	p.closeOnce.Do(func() {
		p.evictTicker.Stop()
		close(p.done)
	})
}

//
// Resolution
//

// Resolve returns the tenant record bound to host, or nil when host is
// empty, unbound, or the control plane is unreachable (fail soft, logged).
func (p *Provider) Resolve(ctx context.Context, host string) *Connection {
	host = domain.Normalize(host)
	if host == "" {
		return nil
	}
	key := cacheKey(host)

	if v, ok := p.cache.Load(key); ok {
		ent := v.(*entry)
		now := time.Now().UnixNano()
		switch {
		case ent.expired(now):
			p.evict(key)
			metrics.ExpiredEvictTotal.Inc()
		case !ent.conn.HasDomain(host):
			// The tenant's hostname set changed since caching.
			p.evict(key)
			metrics.StaleEvictTotal.Inc()
			zap.S().Infow("stale tenant cache entry evicted", "domain", host)
		default:
			atomic.StoreInt64(&ent.lastSeen, now)
			metrics.ResolveHitTotal.Inc()
			return ent.conn
		}
	}

	metrics.ResolveMissTotal.Inc()
	v, err, _ := p.sfg.Do(key, func() (interface{}, error) {
		// Double-check after the singleflight barrier.
		if v, ok := p.cache.Load(key); ok {
			ent := v.(*entry)
			if !ent.expired(time.Now().UnixNano()) && ent.conn.HasDomain(host) {
				return ent.conn, nil
			}
		}
		conn, err := ByDomain(ctx, p.db, host)
		if err != nil {
			return nil, err
		}
		if ctx.Err() != nil {
			// Cancelled work must not poison the cache.
			return nil, ctx.Err()
		}
		p.store(key, conn, p.settings.ResolveTTL)
		return conn, nil
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil // unbound hostname; deliberately not cached
		}
		metrics.ResolveErrorTotal.Inc()
		zap.S().Errorw("tenant resolution failed", "domain", host, "err", err)
		return nil
	}
	return v.(*Connection)
}

// effectiveHost picks the explicit host when given, falling back to the
// ambient tenant scope.  Neither present is a loud programmer error.
func effectiveHost(ctx context.Context, host string) (string, error) {
	host = domain.Normalize(host)
	if host != "" {
		return host, nil
	}
	if ambient, ok := Domain(ctx); ok {
		return ambient, nil
	}
	return "", ErrNoDomain
}

// DatabaseConnString resolves the operational-database connection string
// for host (or the ambient scope when host is "").  An unbound hostname
// yields "" with a nil error.
func (p *Provider) DatabaseConnString(ctx context.Context, host string) (string, error) {
	h, err := effectiveHost(ctx, host)
	if err != nil {
		return "", err
	}
	conn := p.Resolve(ctx, h)
	if conn == nil {
		return "", nil
	}
	return conn.DBConn, nil
}

// StorageConnString resolves the object-storage connection string for
// host (or the ambient scope when host is "").
func (p *Provider) StorageConnString(ctx context.Context, host string) (string, error) {
	h, err := effectiveHost(ctx, host)
	if err != nil {
		return "", err
	}
	conn := p.Resolve(ctx, h)
	if conn == nil {
		return "", nil
	}
	return conn.StorageConn, nil
}

//
// Validation
//

// ValidateDomain reports whether host is bound to an active tenant.  It
// bypasses the cache and queries the control plane every time: the edge
// gate must never say "valid" off stale data.  The error return lets the
// gate distinguish "unbound" from "control plane down" and fail open on
// the latter.
func (p *Provider) ValidateDomain(ctx context.Context, host string) (bool, error) {
	host = domain.Normalize(host)
	if host == "" {
		return false, nil
	}
	if _, err := ByDomain(ctx, p.db, host); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

//
// Preload
//

// PreloadAll sweeps every active tenant into the cache, one entry per
// bound hostname, with the long preload TTL.  At most one sweep runs at a
// time, and a completed sweep starts a cool-down window; triggers arriving
// during either are no-ops returning (0, nil).  Returns the number of
// entries written.
func (p *Provider) PreloadAll(ctx context.Context) (int, error) {
	if !p.preloadMu.TryLock() {
		metrics.PreloadSkipTotal.Inc()
		return 0, nil
	}
	defer p.preloadMu.Unlock()

	if last := p.lastPreload.Load(); last != 0 &&
		time.Since(time.Unix(0, last)) < p.settings.PreloadMinInterval {
		metrics.PreloadSkipTotal.Inc()
		return 0, nil
	}

	recs, err := AllActive(ctx, p.db)
	if err != nil {
		return 0, err
	}

	// Entries are independent and idempotently recomputable, so a sweep
	// that fails partway leaves earlier entries valid; no rollback.
	n := 0
	for _, rec := range recs {
		for _, d := range rec.DomainNames {
			if err := ctx.Err(); err != nil {
				return n, err
			}
			p.store(cacheKey(domain.Normalize(d)), rec, p.settings.PreloadTTL)
			n++
		}
	}

	p.lastPreload.Store(time.Now().UnixNano())
	metrics.PreloadRunTotal.Inc()
	zap.S().Infow("tenant preload sweep complete", "tenants", len(recs), "entries", n)
	return n, nil
}

// LastPreload returns the completion time of the most recent sweep, zero
// if none has completed.
func (p *Provider) LastPreload() time.Time {
	last := p.lastPreload.Load()
	if last == 0 {
		return time.Time{}
	}
	return time.Unix(0, last)
}

//
// Enumeration
//

// ListTenantDomains returns one primary hostname per active tenant.
// Tooling path; hits the store directly with no caching.
func (p *Provider) ListTenantDomains(ctx context.Context) ([]string, error) {
	return PrimaryDomains(ctx, p.db)
}
