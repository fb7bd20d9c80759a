// internal/config/loader.go
//
// Configuration loader.
//
/*
Context
--------
`Load()` builds one immutable `Config` struct from three layers (highest
precedence last):

  1. Optional `.env` file at `<root>/conf/.env`.
  2. `conf/global.yaml`.
  3. Environment variables prefixed `QUILL_`, where `__` maps to “.”
     (e.g., `QUILL_HTTP__LISTEN_ADDR → http.listen_addr`).

After merging, the tree is unmarshalled into strongly-typed structs,
`vault:` references are resolved, defaults are filled, the result is
validated, enriched with the runtime root path, and cached in an
`atomic.Pointer` for lock-free reads.  `Reload()` simply calls `Load()`
again and swaps the pointer.

Notes
-----
  • `rootDir()` climbs the cwd tree until it finds `conf/global.yaml`;
    this lets `go run ./cmd/web` work from any sub-directory.
  • Validation failure is fatal to the caller; there is no partial config.
  • Oxford commas, two spaces after periods.
*/
package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	koanf "github.com/knadh/koanf/v2"
	"go.uber.org/zap"

	"github.com/yanizio/quill/internal/vault"
)

var current atomic.Pointer[Config]

// Cache defaults; override per-entry in conf/global.yaml.
const (
	DefaultResolveTTL         = 5 * time.Minute
	DefaultPreloadTTL         = time.Hour
	DefaultPreloadMinInterval = 30 * time.Minute
	DefaultEvictInterval      = time.Minute
	DefaultOriginHostHeader   = "X-Origin-Host"
)

/*──────────────────────────── root discovery ───────────────────────────────*/

// rootDir resolves QUILL_ROOT or climbs directories until conf/global.yaml
// is found.  Falls back to executable heuristic for production layout.
func rootDir() string {
	if r := os.Getenv("QUILL_ROOT"); r != "" {
		return r
	}

	wd, _ := os.Getwd()
	dir := wd
	for {
		if _, err := os.Stat(filepath.Join(dir, "conf", "global.yaml")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir { // reached filesystem root
			break
		}
		dir = parent
	}

	exe, _ := os.Executable()
	if filepath.Base(filepath.Dir(exe)) == "bin" {
		return filepath.Dir(filepath.Dir(exe))
	}
	return wd
}

/*─────────────────────────────── loader ───────────────────────────────────*/

// Load reads .env, YAML, env overrides, resolves secrets, validates, and
// caches Config.
func Load(ctx context.Context) (*Config, error) {
	root := rootDir()
	zap.S().Debugw("config root resolved", "root", root)

	// .env (optional, no error if missing)
	_ = godotenv.Load(filepath.Join(root, "conf", ".env"))

	k := koanf.New(".")

	yamlPath := filepath.Join(root, "conf", "global.yaml")
	if err := k.Load(file.Provider(yamlPath), yaml.Parser()); err != nil {
		zap.S().Errorw("config yaml load failed", "file", yamlPath, "err", err)
		return nil, err
	}

	// Env overrides: QUILL_HTTP__LISTEN_ADDR → http.listen_addr
	if err := k.Load(env.Provider("QUILL_", ".", func(s string) string {
		s = strings.TrimPrefix(s, "QUILL_")
		return strings.ToLower(strings.ReplaceAll(s, "__", "."))
	}), nil); err != nil {
		zap.S().Errorw("config env overlay failed", "err", err)
		return nil, err
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		zap.S().Errorw("config unmarshal failed", "err", err)
		return nil, err
	}

	if err := resolveSecrets(ctx, &cfg); err != nil {
		zap.S().Errorw("config secret resolution failed", "err", err)
		return nil, err
	}

	fillDefaults(&cfg)
	cfg.Paths.Root = root
	if err := validateStruct(&cfg); err != nil {
		zap.S().Errorw("config validation failed", "err", err)
		return nil, err
	}

	current.Store(&cfg)
	zap.S().Infow("config loaded",
		"listen_addr", cfg.HTTP.ListenAddr,
		"force_https", cfg.HTTP.ForceHTTPS,
		"resolve_ttl", cfg.Cache.ResolveTTL,
		"root", cfg.Paths.Root,
	)
	return &cfg, nil
}

/*──────────────────────────── secrets ─────────────────────────────────────*/

// resolveSecrets replaces `vault:<path>#<key>` values with the secret they
// point at.  Only the control-plane DSN participates today.
func resolveSecrets(ctx context.Context, cfg *Config) error {
	ref, ok := strings.CutPrefix(cfg.ControlPlane.DSN, "vault:")
	if !ok {
		return nil
	}
	if !vault.Enabled() {
		return fmt.Errorf("control_plane.dsn references Vault but VAULT_ADDR is not set")
	}

	path, key, ok := strings.Cut(ref, "#")
	if !ok {
		return fmt.Errorf("malformed vault reference %q (want vault:<path>#<key>)", cfg.ControlPlane.DSN)
	}

	cli, err := vault.New(ctx)
	if err != nil {
		return err
	}
	val, err := cli.GetKV(ctx, path, key, 10*time.Minute)
	if err != nil {
		return err
	}
	cfg.ControlPlane.DSN = val
	return nil
}

/*──────────────────────────── defaults ────────────────────────────────────*/

func fillDefaults(cfg *Config) {
	if cfg.Cache.ResolveTTL <= 0 {
		cfg.Cache.ResolveTTL = DefaultResolveTTL
	}
	if cfg.Cache.PreloadTTL <= 0 {
		cfg.Cache.PreloadTTL = DefaultPreloadTTL
	}
	if cfg.Cache.PreloadMinInterval <= 0 {
		cfg.Cache.PreloadMinInterval = DefaultPreloadMinInterval
	}
	if cfg.Cache.EvictInterval <= 0 {
		cfg.Cache.EvictInterval = DefaultEvictInterval
	}
	if cfg.HTTP.OriginHostHeader == "" {
		cfg.HTTP.OriginHostHeader = DefaultOriginHostHeader
	}
}

/*──────────────────────────── helpers ─────────────────────────────────────*/

func Get() *Config { return current.Load() }

func Reload(ctx context.Context) error { _, err := Load(ctx); return err }
