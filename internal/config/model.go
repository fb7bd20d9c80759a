// internal/config/model.go
//
// Typed configuration model for Quill.
//
// Context
// -------
// These structs define the shape of the configuration tree that
// `internal/config/loader.go` builds from three overlay layers:
//
//   • optional `.env`                         – dotenv values,
//   • `conf/global.yaml`                      – primary static file,
//   • `QUILL_`-prefixed environment overrides – highest precedence.
//
// Any value whose string begins with the prefix `vault:` is resolved
// through the Vault client after unmarshalling, so the rest of the app
// never stores Vault URIs, only plain strings.
//
// Validation happens immediately after unmarshal; the app fails fast if
// required fields are missing.  In particular a missing control-plane DSN
// aborts startup: a process with no way to resolve tenants must not serve.
//
// Notes
// -----
//   • Struct tags use `koanf:"…"`, not `yaml:"…"`; Koanf ignores `yaml` tags
//     unless configured otherwise.
//   • The `Paths` block is filled at runtime; YAML must not try to set it.
//   • Oxford commas, two spaces after periods.
package config

import "time"

//
// HTTP section
//

// HTTP holds web-server tunables.  TrustedProxies lists CIDR blocks whose
// connections are allowed to override the Host header via
// OriginHostHeader; requests from anywhere else always use Host.
// Zero-valued timeouts take the defaults in internal/server.
type HTTP struct {
	ListenAddr       string        `koanf:"listen_addr"        validate:"required,hostname_port"`
	ForceHTTPS       bool          `koanf:"force_https"`
	TrustedProxies   []string      `koanf:"trusted_proxies"    validate:"dive,cidr"`
	OriginHostHeader string        `koanf:"origin_host_header"`
	ReadTimeout      time.Duration `koanf:"read_timeout"`
	WriteTimeout     time.Duration `koanf:"write_timeout"`
	IdleTimeout      time.Duration `koanf:"idle_timeout"`
	Security         Security      `koanf:"security"`
}

// Security overrides individual response-header values emitted by the
// security middleware.  Empty fields use the middleware defaults.
type Security struct {
	HSTS              string `koanf:"hsts"`
	CSP               string `koanf:"csp"`
	PermissionsPolicy string `koanf:"permissions_policy"`
}

//
// Control-plane section
//

// ControlPlane holds the single DSN for the tenant directory database.
// The value may be a literal DSN or a `vault:<path>#<key>` reference.
type ControlPlane struct {
	DSN string `koanf:"dsn" validate:"required"`
}

//
// Cache section
//

// Cache tunes the tenant resolution cache.  Zero values are replaced with
// defaults by the loader.
type Cache struct {
	ResolveTTL         time.Duration `koanf:"resolve_ttl"`          // on-demand entries
	PreloadTTL         time.Duration `koanf:"preload_ttl"`          // bulk-preload entries
	PreloadMinInterval time.Duration `koanf:"preload_min_interval"` // sweep cool-down
	EvictInterval      time.Duration `koanf:"evict_interval"`       // expiry scan cadence
}

//
// Geo section
//

// Geo points at an optional GeoLite2-City database used to enrich edge
// logs.  Empty path disables geolocation.
type Geo struct {
	DBPath string `koanf:"db_path"`
}

//
// Paths section (runtime only)
//

// Paths is resolved at runtime, never set in YAML or env.  The loader
// discovers `Root` (repo root or QUILL_ROOT override) so later code can
// build absolute file paths.
type Paths struct {
	Root string
}

//
// Root aggregate
//

// Config is the immutable aggregate returned by Load() and cached in an
// atomic.Pointer for lock-free reads throughout the app lifetime.
type Config struct {
	HTTP         HTTP         `koanf:"http"`
	ControlPlane ControlPlane `koanf:"control_plane"`
	Cache        Cache        `koanf:"cache"`
	Geo          Geo          `koanf:"geo"`
	Paths        Paths        `koanf:"-"`
}
