// internal/vault/vault.go
//
// Slim Vault client for config-time secret resolution.
//
// Context
// -------
// The only secrets Quill needs at runtime are the control-plane DSN
// credentials, so this wrapper does one thing: resolve `path#key` KV-v2
// references on behalf of internal/config, with a small per-key cache so
// repeated Reload() calls do not hammer Vault.  A background loop keeps the
// token renewed for long-lived processes.
//
// Public workflow
// ---------------
//  1. cli, err := vault.New(ctx)                  // during boot, optional.
//  2. val, err := cli.GetKV(ctx, path, key, ttl)  // from the config loader.
//
// Notes
// -----
// • Environment: VAULT_ADDR and VAULT_TOKEN, per the standard SDK.
// • Oxford commas, two spaces after periods.
package vault

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	vault "github.com/hashicorp/vault/api"
	"go.uber.org/zap"
)

// Client is safe for concurrent use.  Create once at startup.  Zero value
// is invalid.
type Client struct {
	api *vault.Client

	cacheMu sync.RWMutex
	cache   map[string]cached // "path#key" → value + expiry
}

type cached struct {
	val string
	exp time.Time
}

// Enabled reports whether the process is configured to talk to Vault at
// all.  When false, config values with the vault: prefix are a startup
// error rather than a lookup.
func Enabled() bool { return os.Getenv("VAULT_ADDR") != "" }

// New constructs a client from the standard VAULT_* environment and starts
// a background token-renewal loop bound to ctx.
func New(ctx context.Context) (*Client, error) {
	cfg := vault.DefaultConfig()
	if err := cfg.ReadEnvironment(); err != nil {
		return nil, fmt.Errorf("vault env cfg: %w", err)
	}

	apiCli, err := vault.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("vault api: %w", err)
	}
	if tok := os.Getenv("VAULT_TOKEN"); tok != "" {
		apiCli.SetToken(tok)
	}

	c := &Client{
		api:   apiCli,
		cache: make(map[string]cached, 4),
	}
	go c.renewLoop(ctx)
	return c, nil
}

// GetKV fetches data[key] from the KV-v2 secret at secretPath
// ("mount/rest/of/path").  Results are cached for ttl when ttl > 0.
func (c *Client) GetKV(ctx context.Context, secretPath, key string, ttl time.Duration) (string, error) {
	canonical := secretPath + "#" + key

	c.cacheMu.RLock()
	if cv, ok := c.cache[canonical]; ok && time.Now().Before(cv.exp) {
		c.cacheMu.RUnlock()
		return cv.val, nil
	}
	c.cacheMu.RUnlock()

	mount, rel := splitMount(secretPath)
	sec, err := c.api.KVv2(mount).Get(ctx, rel)
	if err != nil {
		return "", fmt.Errorf("vault get %s: %w", secretPath, err)
	}

	raw, ok := sec.Data[key]
	if !ok {
		return "", fmt.Errorf("key %q not found in secret %q", key, secretPath)
	}
	sval, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("value at %s is not a string", canonical)
	}

	if ttl > 0 {
		c.cacheMu.Lock()
		c.cache[canonical] = cached{val: sval, exp: time.Now().Add(ttl)}
		c.cacheMu.Unlock()
	}
	return sval, nil
}

// renewLoop keeps the token alive.  Non-renewable tokens are re-probed
// hourly; failures back off and retry rather than killing the process.
func (c *Client) renewLoop(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		sec, err := c.api.Auth().Token().RenewSelf(0)
		if err != nil {
			zap.S().Warnw("vault token renew failed", "err", err)
			sleep(ctx, 30*time.Second)
			continue
		}
		if sec == nil || sec.Auth == nil || !sec.Auth.Renewable {
			sleep(ctx, time.Hour)
			continue
		}

		watcher, err := c.api.NewLifetimeWatcher(&vault.LifetimeWatcherInput{Secret: sec})
		if err != nil {
			zap.S().Warnw("vault lifetime watcher init failed", "err", err)
			sleep(ctx, 30*time.Second)
			continue
		}

		go watcher.Start()
		func() {
			defer watcher.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case err := <-watcher.DoneCh():
					if err != nil {
						zap.S().Warnw("vault token renewal stopped", "err", err)
					}
					return
				case <-watcher.RenewCh():
				}
			}
		}()
		sleep(ctx, 15*time.Second)
	}
}

func splitMount(p string) (mount, rel string) {
	parts := strings.SplitN(p, "/", 2)
	mount = parts[0]
	if len(parts) == 2 {
		rel = parts[1]
	}
	return
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
