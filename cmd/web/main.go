// cmd/web/main.go
//
// Quill – multi-tenant HTTP entry point.
//
// Request life-cycle
// ------------------
//
//  1. Load env vars (jail-wide file → .env fallback).
//
//  2. Start daily rotating logger (tees to console when running in a TTY).
//
//  3. Load and validate config; a missing control-plane DSN aborts here.
//
//  4. Open the control-plane DB and log the active-tenant count.
//
//  5. Build the tenant provider (cache + resolution engine).
//
//  6. Schedule the recurring preload sweep.
//
//  7. Assemble the chi pipeline:
//
//     • Security headers
//     • /metrics and /healthz (ungated)
//     • requestinfo.Enrich → DomainGate → tenant hand-off
//
//  8. Serve with hardened timeouts; drain gracefully on SIGINT/SIGTERM.
//
// Large comment blocks are framed by blank “//” lines; inline comments use
// a single “//”.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"

	"github.com/yanizio/quill/internal/config"
	"github.com/yanizio/quill/internal/database"
	"github.com/yanizio/quill/internal/logger"
	"github.com/yanizio/quill/internal/middleware"
	"github.com/yanizio/quill/internal/requestinfo"
	"github.com/yanizio/quill/internal/server"
	"github.com/yanizio/quill/internal/tenant"
)

const serverEnvPath = "/usr/local/etc/quill/global.env"

// loadEnv prefers the jail-wide env file; on dev it falls back to .env.
func loadEnv() {
	if _, err := os.Stat(serverEnvPath); err == nil {
		_ = godotenv.Load(serverEnvPath)
		return
	}
	_ = godotenv.Load()
}

// runningInTTY returns true when stdout is a character device.
func runningInTTY() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

func init() { loadEnv() }

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rootDir, _ := os.Getwd()
	logOut, err := logger.New(rootDir, runningInTTY())
	if err != nil {
		log.Fatalf("start logger: %v", err)
	}

	//
	// ── 1.  Config (fatal on missing control-plane DSN) ─────────────────
	//
	cfg, err := config.Load(ctx)
	if err != nil {
		logOut.Fatalf("load config: %v", err)
	}

	//
	// ── 2.  Control-plane DB connect ────────────────────────────────────
	//
	logOut.Infow("connecting to control plane")
	db, err := database.Open(ctx, cfg.ControlPlane.DSN)
	if err != nil {
		logOut.Fatalf("connect control plane: %v", err)
	}
	defer db.Close()

	// Log active-tenant count as an early sanity check.
	var active int
	_ = db.GetContext(ctx, &active, `
	    SELECT COUNT(*) FROM tenant
	    WHERE suspended_at IS NULL AND deleted_at IS NULL`)
	logOut.Infow("control plane online", "active_tenants", active)

	//
	// ── 3.  Optional geolocation for edge logs ──────────────────────────
	//
	if err := requestinfo.InitGeo(cfg.Geo.DBPath); err != nil {
		logOut.Warnw("geolocation disabled", "db_path", cfg.Geo.DBPath, "err", err)
	}

	//
	// ── 4.  Tenant provider (cache + resolution engine) ─────────────────
	//
	provider := tenant.NewProvider(db, tenant.Settings{
		ResolveTTL:         cfg.Cache.ResolveTTL,
		PreloadTTL:         cfg.Cache.PreloadTTL,
		PreloadMinInterval: cfg.Cache.PreloadMinInterval,
		EvictInterval:      cfg.Cache.EvictInterval,
	})
	defer provider.Close()

	//
	// ── 5.  Recurring preload sweeps ────────────────────────────────────
	//
	// The provider de-duplicates overlapping or too-frequent triggers on
	// its own, so the schedule only needs to be "often enough".
	sched := cron.New()
	sched.Schedule(cron.Every(cfg.Cache.PreloadMinInterval), cron.FuncJob(func() {
		if n, err := provider.PreloadAll(ctx); err != nil {
			logOut.Errorw("tenant preload failed", "err", err)
		} else if n > 0 {
			logOut.Infow("tenant preload complete", "entries", n)
		}
	}))
	sched.Start()
	defer sched.Stop()

	// Warm the cache once at boot without delaying first listen.
	go func() {
		if _, err := provider.PreloadAll(ctx); err != nil {
			logOut.Warnw("initial tenant preload failed", "err", err)
		}
	}()

	//
	// ── 6.  HTTP pipeline ───────────────────────────────────────────────
	//
	trusted, err := middleware.ParseCIDRs(cfg.HTTP.TrustedProxies)
	if err != nil {
		logOut.Fatalf("bad trusted_proxies config: %v", err)
	}

	r := chi.NewRouter()
	r.Use(middleware.Security(middleware.HeaderPolicy{
		EmitHSTS:          cfg.HTTP.ForceHTTPS,
		HSTS:              cfg.HTTP.Security.HSTS,
		CSP:               cfg.HTTP.Security.CSP,
		PermissionsPolicy: cfg.HTTP.Security.PermissionsPolicy,
	}))

	// Operational endpoints stay outside the domain gate.
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", healthHandler(db.PingContext, provider))

	r.Group(func(gr chi.Router) {
		gr.Use(requestinfo.Enrich)
		gr.Use(middleware.DomainGate(provider, trusted, cfg.HTTP.OriginHostHeader))
		gr.Get("/*", tenantHandler(provider))
	})

	var handler http.Handler = r
	if cfg.HTTP.ForceHTTPS {
		handler = middleware.ForceHTTPS(provider, handler)
	}

	//
	// ── 7.  Serve and drain ─────────────────────────────────────────────
	//
	srv := server.New(cfg.HTTP.ListenAddr, handler, server.Timeouts{
		Read:  cfg.HTTP.ReadTimeout,
		Write: cfg.HTTP.WriteTimeout,
		Idle:  cfg.HTTP.IdleTimeout,
	})
	go func() {
		logOut.Infow("listening", "addr", cfg.HTTP.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logOut.Fatalf("http server: %v", err)
		}
	}()

	<-ctx.Done()
	logOut.Infow("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logOut.Errorw("shutdown", "err", err)
	}
}

// tenantHandler is the hand-off point to the content pipeline.  Everything
// past this line receives its connection strings from the provider; the
// placeholder response reports only benign record fields.
func tenantHandler(p *tenant.Provider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		host, _ := tenant.Domain(r.Context())
		conn := p.Resolve(r.Context(), host)
		if conn == nil {
			// Reachable on the gate's fail-open path only.
			http.NotFound(w, r)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"domain":         host,
			"primary_domain": conn.PrimaryDomain(),
			"resource_group": conn.ResourceGroup,
			"publisher_mode": conn.PublisherMode,
		})
	}
}

// healthHandler reports control-plane reachability and preload freshness.
func healthHandler(ping func(context.Context) error, p *tenant.Provider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := http.StatusOK
		body := map[string]any{"status": "ok"}

		if err := ping(r.Context()); err != nil {
			status = http.StatusServiceUnavailable
			body["status"] = "degraded"
			body["control_plane"] = err.Error()
		}
		if last := p.LastPreload(); !last.IsZero() {
			body["last_preload"] = last.UTC().Format(time.RFC3339)
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}
}
