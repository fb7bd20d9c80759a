// Package metrics holds the Prometheus instruments used across the tenant
// resolution path.  All collectors register with the global registry, so
// importing this package in main.go is enough to expose them on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	CachedEntries = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "tenant_cache_entries",
			Help: "Number of tenant records currently cached in memory.",
		})

	ResolveHitTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tenant_resolve_hit_total",
			Help: "Cumulative number of resolutions served from the cache.",
		})

	ResolveMissTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tenant_resolve_miss_total",
			Help: "Cumulative number of resolutions that fell through to the control plane.",
		})

	ResolveErrorTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tenant_resolve_error_total",
			Help: "Cumulative number of control-plane failures during resolution.",
		})

	StaleEvictTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tenant_stale_evict_total",
			Help: "Cumulative number of cache entries evicted because their domain binding changed.",
		})

	ExpiredEvictTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tenant_expired_evict_total",
			Help: "Cumulative number of cache entries evicted on TTL expiry.",
		})

	PreloadRunTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tenant_preload_run_total",
			Help: "Cumulative number of completed preload sweeps.",
		})

	PreloadSkipTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tenant_preload_skip_total",
			Help: "Cumulative number of preload triggers skipped by the lock or the cool-down window.",
		})

	GateRejectTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tenant_gate_reject_total",
			Help: "Cumulative number of requests rejected for an unbound hostname.",
		})

	GateFailOpenTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tenant_gate_fail_open_total",
			Help: "Cumulative number of requests passed through because edge validation could not reach the control plane.",
		})
)

func init() {
	prometheus.MustRegister(
		CachedEntries,
		ResolveHitTotal,
		ResolveMissTotal,
		ResolveErrorTotal,
		StaleEvictTotal,
		ExpiredEvictTotal,
		PreloadRunTotal,
		PreloadSkipTotal,
		GateRejectTotal,
		GateFailOpenTotal,
	)
}
