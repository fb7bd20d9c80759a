// internal/tenant/cache.go
//
// Cache entry type, keying, and the expiry evictor.
//
// Context
// -------
// The provider stores immutable *Connection snapshots in a sync.Map keyed
// by `tenant.conn:<normalised-host>`.  The namespace prefix exists so an
// unrelated key accidentally sharing the map (or a future second entry
// class) can never be mistaken for a tenant record.  Entries carry an
// absolute expiry: on-demand lookups get a short TTL, preload sweeps a
// long one.  A background loop purges expired entries so the map does not
// grow monotonically on hostnames that stop receiving traffic.
//
// Notes
// -----
// • Snapshots are plain data; eviction is a Delete, nothing to close.
// • Readers also treat an expired entry as a miss, so the loop cadence
//   affects memory only, never correctness.
// • Oxford commas, two spaces after periods.
package tenant

import (
	"sync/atomic"
	"time"

	"github.com/yanizio/quill/internal/metrics"
)

const cacheKeyPrefix = "tenant.conn:"

func cacheKey(host string) string { return cacheKeyPrefix + host }

type entry struct {
	conn     *Connection
	expires  int64 // UnixNano absolute expiry
	lastSeen int64 // UnixNano, updated on hit
}

func (e *entry) expired(now int64) bool { return now >= atomic.LoadInt64(&e.expires) }

// store inserts or replaces the snapshot for key.  Concurrent writers to
// the same key are last-write-wins; entries are never mutated in place.
func (p *Provider) store(key string, conn *Connection, ttl time.Duration) {
	now := time.Now()
	ent := &entry{
		conn:     conn,
		expires:  now.Add(ttl).UnixNano(),
		lastSeen: now.UnixNano(),
	}
	if _, loaded := p.cache.Swap(key, ent); !loaded {
		metrics.CachedEntries.Inc()
	}
}

// evict removes key if present.
func (p *Provider) evict(key string) {
	if _, loaded := p.cache.LoadAndDelete(key); loaded {
		metrics.CachedEntries.Dec()
	}
}

// evictLoop scans for expired entries every EvictInterval until Close.
func (p *Provider) evictLoop() {
	for {
		select {
		case <-p.done:
			return
		case <-p.evictTicker.C:
		}

		now := time.Now().UnixNano()
		p.cache.Range(func(key, value any) bool {
			if value.(*entry).expired(now) {
				p.evict(key.(string))
				metrics.ExpiredEvictTotal.Inc()
			}
			return true
		})
	}
}
