// internal/vault/vault.go
//
// Vault secret references for configuration values.
//
// Context
// -------
// Any config string of the form `vault:<mount>/<path>#<key>` is a reference
// to one key of a KV-v2 secret.  The config layer parses the reference with
// ParseRef and asks a Client to Resolve it before the value is used, so DB
// passwords and the JWT signing secret never have to live in YAML.
//
// Workflow
// --------
//  1. cli, err := vault.New(ctx, zap.S())        // during boot, vault.enabled
//  2. val, err := cli.Resolve(ctx, "vault:kv/storefront#db_password")
//
// The client renews its own token in the background until ctx is cancelled.
//
// Notes
// -----
//   - VAULT_ADDR and VAULT_TOKEN are read from the environment.
//   - Resolved values are cached for CacheTTL.
//   - Oxford commas, two spaces after periods.
package vault

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	vault "github.com/hashicorp/vault/api"
	"go.uber.org/zap"
)

// Prefix marks a config value as a secret reference.
const Prefix = "vault:"

// CacheTTL bounds how long a resolved secret is reused.
const CacheTTL = 5 * time.Minute

// ErrBadRef is returned for malformed references.
var ErrBadRef = errors.New("vault: reference must look like vault:<mount>/<path>#<key>")

// IsRef reports whether s is a secret reference.
func IsRef(s string) bool { return strings.HasPrefix(s, Prefix) }

// ParseRef splits "vault:kv/app#key" into ("kv/app", "key").
func ParseRef(s string) (path, key string, err error) {
	if !IsRef(s) {
		return "", "", ErrBadRef
	}
	body := strings.TrimPrefix(s, Prefix)
	path, key, ok := strings.Cut(body, "#")
	if !ok || path == "" || key == "" || !strings.Contains(path, "/") {
		return "", "", fmt.Errorf("%w: %q", ErrBadRef, s)
	}
	return path, key, nil
}

/*────────────────────────────── client ───────────────────────────────────*/

// Client is safe for concurrent use.  The zero value is invalid.
type Client struct {
	api *vault.Client
	log *zap.SugaredLogger

	mu    sync.RWMutex
	cache map[string]entry // path#key → value + expiry
	now   func() time.Time
}

type entry struct {
	val string
	exp time.Time
}

// New builds a client from the environment and starts token renewal.
func New(ctx context.Context, log *zap.SugaredLogger) (*Client, error) {
	if log == nil {
		log = zap.S()
	}
	cfg := vault.DefaultConfig()
	if err := cfg.ReadEnvironment(); err != nil {
		return nil, fmt.Errorf("vault env: %w", err)
	}
	api, err := vault.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("vault client: %w", err)
	}
	if tok := os.Getenv("VAULT_TOKEN"); tok != "" {
		api.SetToken(tok)
	}

	c := &Client{api: api, log: log, cache: make(map[string]entry), now: time.Now}
	go c.renew(ctx)
	return c, nil
}

// Resolve returns the value a reference points at.
func (c *Client) Resolve(ctx context.Context, ref string) (string, error) {
	path, key, err := ParseRef(ref)
	if err != nil {
		return "", err
	}
	return c.GetKV(ctx, path, key)
}

// GetKV reads one key of a KV-v2 secret, using the cache when fresh.
func (c *Client) GetKV(ctx context.Context, path, key string) (string, error) {
	id := path + "#" + key

	c.mu.RLock()
	e, ok := c.cache[id]
	c.mu.RUnlock()
	if ok && c.now().Before(e.exp) {
		return e.val, nil
	}

	mount, rel, _ := strings.Cut(path, "/")
	sec, err := c.api.KVv2(mount).Get(ctx, rel)
	if err != nil {
		return "", fmt.Errorf("vault get %s: %w", path, err)
	}
	raw, ok := sec.Data[key]
	if !ok {
		return "", fmt.Errorf("vault: key %q not in %s", key, path)
	}
	val, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("vault: %s is not a string", id)
	}

	c.mu.Lock()
	c.cache[id] = entry{val: val, exp: c.now().Add(CacheTTL)}
	c.mu.Unlock()
	return val, nil
}

/*──────────────────────────── token renewal ──────────────────────────────*/

func (c *Client) renew(ctx context.Context) {
	for ctx.Err() == nil {
		sec, err := c.api.Auth().Token().RenewSelfWithContext(ctx, 0)
		if err != nil {
			c.log.Warnw("vault token renew failed", "err", err)
			sleep(ctx, 30*time.Second)
			continue
		}
		if sec == nil || sec.Auth == nil || !sec.Auth.Renewable {
			c.log.Infow("vault token not renewable")
			sleep(ctx, time.Hour)
			continue
		}

		w, err := c.api.NewLifetimeWatcher(&vault.LifetimeWatcherInput{Secret: sec})
		if err != nil {
			c.log.Warnw("vault watcher init failed", "err", err)
			sleep(ctx, 30*time.Second)
			continue
		}
		c.watch(ctx, w)
	}
}

// watch blocks until the watcher stops or ctx ends.
func (c *Client) watch(ctx context.Context, w *vault.LifetimeWatcher) {
	go w.Start()
	defer w.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case err := <-w.DoneCh():
			if err != nil {
				c.log.Warnw("vault token renewal stopped", "err", err)
			}
			sleep(ctx, 15*time.Second)
			return
		case ev := <-w.RenewCh():
			if ev != nil && ev.Secret != nil && ev.Secret.Auth != nil {
				c.log.Debugw("vault token renewed", "ttl", ev.Secret.Auth.LeaseDuration)
			}
		}
	}
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
