// internal/config/loader.go
//
// Configuration loader.
//
/*
Context
--------
`Load()` builds one immutable `Config` from three layers (highest
precedence last):

  1. Optional `<root>/conf/.env`.
  2. `<root>/conf/global.yaml`.
  3. Environment variables prefixed `STOREFRONT_`, where `__` maps to "."
     (e.g., `STOREFRONT_DATABASE__DRIVER → database.driver`).

The merged tree is unmarshalled into typed structs, defaulted, validated,
and cached in an `atomic.Pointer` for lock-free reads.  `Reload()` calls
`Load()` again and swaps the pointer.

Secret references (`vault:`) survive Load untouched; the caller decides
whether Vault is reachable and then calls ResolveSecrets.

Instrumentation
---------------
  - DEBUG: root discovery, YAML read.
  - ERROR: YAML parse, env overlay, unmarshal, and validation failures.
  - INFO:  final "config loaded" with key highlights (never secrets).

Notes
-----
  - `rootDir()` climbs from the cwd until it finds `conf/global.yaml`, so
    `go run ./cmd/web` works from any sub-directory.
  - Oxford commas, two spaces after periods.
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

	"github.com/yanizio/storefront/internal/vault"
)

// EnvPrefix marks environment overrides.
const EnvPrefix = "STOREFRONT_"

var current atomic.Pointer[Config]

/*──────────────────────────── root discovery ───────────────────────────────*/

func rootDir() string {
	if r := os.Getenv(EnvPrefix + "ROOT"); r != "" {
		return r
	}

	wd, _ := os.Getwd()
	for dir := wd; ; {
		if _, err := os.Stat(filepath.Join(dir, "conf", "global.yaml")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
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

// Load discovers the root and loads from it.
func Load() (*Config, error) { return LoadFrom(rootDir()) }

// LoadFrom reads .env, YAML, and env overrides below root, then validates
// and caches the result.
func LoadFrom(root string) (*Config, error) {
	zap.S().Debugw("config root resolved", "root", root)

	_ = godotenv.Load(filepath.Join(root, "conf", ".env"))

	k := koanf.New(".")

	yamlPath := filepath.Join(root, "conf", "global.yaml")
	if err := k.Load(file.Provider(yamlPath), yaml.Parser()); err != nil {
		zap.S().Errorw("config yaml load failed", "file", yamlPath, "err", err)
		return nil, err
	}
	zap.S().Debugw("config yaml loaded", "file", yamlPath)

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		zap.S().Errorw("config env overlay failed", "err", err)
		return nil, err
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		zap.S().Errorw("config unmarshal failed", "err", err)
		return nil, err
	}
	cfg.Paths.Root = root
	applyDefaults(&cfg)

	if err := validateStruct(&cfg); err != nil {
		zap.S().Errorw("config validation failed", "err", err)
		return nil, err
	}

	current.Store(&cfg)
	zap.S().Infow("config loaded",
		"listen_addr", cfg.HTTP.ListenAddr,
		"driver", cfg.Database.Driver,
		"reorder", cfg.Reorder.Strategy,
		"vault", cfg.Vault.Enabled,
		"root", cfg.Paths.Root,
	)
	return &cfg, nil
}

// envKey maps STOREFRONT_HTTP__LISTEN_ADDR to http.listen_addr.
func envKey(s string) string {
	s = strings.TrimPrefix(s, EnvPrefix)
	return strings.ToLower(strings.ReplaceAll(s, "__", "."))
}

func applyDefaults(c *Config) {
	if c.Auth.SessionTTL == 0 {
		c.Auth.SessionTTL = 12 * time.Hour
	}
	if c.Reorder.Strategy == "" {
		c.Reorder.Strategy = "batch"
	}
	if c.Log.Dir == "" {
		c.Log.Dir = filepath.Join(c.Paths.Root, "logs")
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

/*──────────────────────────── secrets ─────────────────────────────────────*/

// SecretResolver turns a `vault:` reference into its value.
type SecretResolver interface {
	Resolve(ctx context.Context, ref string) (string, error)
}

// ResolveSecrets replaces every secret reference in c using r, then
// re-validates.  A reference with no resolver is an error.
func ResolveSecrets(ctx context.Context, c *Config, r SecretResolver) error {
	for _, p := range []*string{&c.Database.DSN, &c.Database.Password, &c.Auth.JWTSecret} {
		if !vault.IsRef(*p) {
			continue
		}
		if r == nil {
			return fmt.Errorf("config: %s needs vault.enabled", *p)
		}
		val, err := r.Resolve(ctx, *p)
		if err != nil {
			return err
		}
		*p = val
	}
	return validateStruct(c)
}

/*──────────────────────────── helpers ─────────────────────────────────────*/

// Get returns the last loaded config, or nil before the first Load.
func Get() *Config { return current.Load() }

// Reload re-runs Load and swaps the cached pointer.
func Reload() error { _, err := Load(); return err }
