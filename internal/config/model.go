// internal/config/model.go
//
// Typed configuration model for the storefront admin.
//
// Context
// -------
// These structs define the configuration tree that loader.go builds from
// three overlay layers:
//
//   - optional `conf/.env`                          dotenv values,
//   - `conf/global.yaml`                            primary static file,
//   - `STOREFRONT_`-prefixed environment overrides  highest precedence.
//
// Strings beginning with `vault:` (database.dsn, database.password, and
// auth.jwt_secret) are secret references.  ResolveSecrets swaps them for
// plain values before anything opens a connection or signs a token.
//
// Notes
// -----
//   - Struct tags use `koanf:"…"`; Koanf ignores `yaml` tags.
//   - Durations accept Go syntax ("3s", "12h").
//   - The `Paths` block is filled at runtime; YAML must not set it.
//   - Oxford commas, two spaces after periods.
package config

import (
	"fmt"
	"strings"
	"time"
)

// HTTP holds web-server tunables.
type HTTP struct {
	ListenAddr string `koanf:"listen_addr" validate:"required,hostname_port"`
	ForceHTTPS bool   `koanf:"force_https"`
}

// Database selects the SQL backend.
//
// DSN may carry one `%s` verb; Password is substituted into it so the DSN
// template can live in YAML while the password comes from Vault.
type Database struct {
	Driver   string `koanf:"driver"   validate:"required,oneof=mysql postgres sqlite3"`
	DSN      string `koanf:"dsn"      validate:"required"`
	Password string `koanf:"password"`
	MaxOpen  int    `koanf:"max_open" validate:"gte=0"`
	MaxIdle  int    `koanf:"max_idle" validate:"gte=0"`
}

// ConnString returns the DSN with the password substituted.
func (d Database) ConnString() string {
	if strings.Contains(d.DSN, "%s") {
		return fmt.Sprintf(d.DSN, d.Password)
	}
	return d.DSN
}

// Auth configures admin sign-in.
type Auth struct {
	JWTSecret  string        `koanf:"jwt_secret"  validate:"required,min=16"`
	SessionTTL time.Duration `koanf:"session_ttl" validate:"gte=0"`
	BcryptCost int           `koanf:"bcrypt_cost" validate:"omitempty,min=4,max=31"`
}

// Notify sets banner lifetimes; zero keeps the built-in defaults.
type Notify struct {
	SuccessTimeout time.Duration `koanf:"success_timeout" validate:"gte=0"`
	ErrorTimeout   time.Duration `koanf:"error_timeout"   validate:"gte=0"`
}

// Reorder picks the display-order write strategy.
type Reorder struct {
	Strategy string `koanf:"strategy" validate:"omitempty,oneof=batch sequential"`
}

// Log configures the file logger.
type Log struct {
	Dir   string `koanf:"dir"`
	Level string `koanf:"level" validate:"omitempty,oneof=debug info warn error"`
	Tee   bool   `koanf:"tee"`
}

// Vault toggles secret resolution.
type Vault struct {
	Enabled bool `koanf:"enabled"`
}

// Paths is resolved at runtime.
type Paths struct {
	Root string // STOREFRONT_ROOT or discovered parent
}

// Config is the immutable aggregate returned by Load.
type Config struct {
	HTTP     HTTP     `koanf:"http"`
	Database Database `koanf:"database"`
	Auth     Auth     `koanf:"auth"`
	Notify   Notify   `koanf:"notify"`
	Reorder  Reorder  `koanf:"reorder"`
	Log      Log      `koanf:"log"`
	Vault    Vault    `koanf:"vault"`
	Paths    Paths    `koanf:"-"`
}
