// internal/config/loader_test.go
//
// Loader overlay tests: YAML base plus QUILL_ environment overrides.
package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

// writeGlobalYAML creates a minimal valid conf/global.yaml under a temp
// root and points QUILL_ROOT at it.
func writeGlobalYAML(t *testing.T, body string) string {
	t.Helper()

	root := t.TempDir()
	confDir := filepath.Join(root, "conf")
	if err := os.MkdirAll(confDir, 0o755); err != nil {
		t.Fatalf("mkdir conf: %v", err)
	}
	if err := os.WriteFile(filepath.Join(confDir, "global.yaml"), []byte(body), 0o644); err != nil {
		t.Fatalf("write global.yaml: %v", err)
	}
	t.Setenv("QUILL_ROOT", root)
	return root
}

const baseYAML = `
http:
  listen_addr: ":8080"
control_plane:
  dsn: "quill:secret@tcp(127.0.0.1:3306)/quill_control"
`

func TestLoadYAMLOnly(t *testing.T) {
	writeGlobalYAML(t, baseYAML)

	cfg, err := Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTP.ListenAddr != ":8080" {
		t.Fatalf("listen_addr = %q, want %q", cfg.HTTP.ListenAddr, ":8080")
	}
	if cfg.Cache.ResolveTTL != DefaultResolveTTL {
		t.Fatalf("resolve_ttl default = %v, want %v", cfg.Cache.ResolveTTL, DefaultResolveTTL)
	}
	if got := Get(); got != cfg {
		t.Fatalf("Get() = %p, want the freshly loaded %p", got, cfg)
	}
}

// An environment variable must beat the YAML value for the same key.  The
// mapping strips the QUILL_ prefix and turns "__" into ".", so
// QUILL_HTTP__LISTEN_ADDR lands on http.listen_addr.
func TestLoadEnvOverridesYAML(t *testing.T) {
	writeGlobalYAML(t, baseYAML)
	t.Setenv("QUILL_HTTP__LISTEN_ADDR", "127.0.0.1:9999")

	cfg, err := Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTP.ListenAddr != "127.0.0.1:9999" {
		t.Fatalf("listen_addr = %q, want env override %q", cfg.HTTP.ListenAddr, "127.0.0.1:9999")
	}
	// The untouched sibling key keeps its YAML value.
	if cfg.ControlPlane.DSN != "quill:secret@tcp(127.0.0.1:3306)/quill_control" {
		t.Fatalf("dsn = %q, YAML value should survive", cfg.ControlPlane.DSN)
	}
}

// The DSN is the usual secret-injection path in deployment, so the nested
// override has its own check.
func TestLoadEnvOverridesDSN(t *testing.T) {
	writeGlobalYAML(t, baseYAML)
	t.Setenv("QUILL_CONTROL_PLANE__DSN", "quill:rotated@tcp(10.0.0.5:3306)/quill_control")

	cfg, err := Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ControlPlane.DSN != "quill:rotated@tcp(10.0.0.5:3306)/quill_control" {
		t.Fatalf("dsn = %q, want env override", cfg.ControlPlane.DSN)
	}
}

func TestLoadMissingDSNFails(t *testing.T) {
	writeGlobalYAML(t, "http:\n  listen_addr: \":8080\"\n")

	if _, err := Load(context.Background()); err == nil {
		t.Fatal("Load succeeded without a control-plane DSN")
	}
}
