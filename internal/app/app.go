// internal/app/app.go
//
// Process bootstrap shared by cmd/web and cmd/adminctl.
//
// Boot order
// ----------
//  1. Load configuration (conf/.env, conf/global.yaml, STOREFRONT_ env).
//  2. Start the file logger and install it globally.
//  3. Resolve `vault:` references when vault.enabled is set.
//  4. Open the database and ensure every table exists.
//  5. Build the resource catalog, notifier, SQL store, and auth service.
//
// Close releases the database pool.  Token renewal for Vault stops when the
// context passed to Bootstrap is cancelled.
package app

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/yanizio/storefront/internal/auth"
	"github.com/yanizio/storefront/internal/config"
	"github.com/yanizio/storefront/internal/database"
	"github.com/yanizio/storefront/internal/logger"
	"github.com/yanizio/storefront/internal/notify"
	"github.com/yanizio/storefront/internal/resource"
	"github.com/yanizio/storefront/internal/store"
	"github.com/yanizio/storefront/internal/vault"
)

// App holds the long-lived dependencies.
type App struct {
	Config   *config.Config
	Log      *zap.SugaredLogger
	DB       *sqlx.DB
	Store    *store.SQLStore
	Catalog  *resource.Catalog
	Notifier *notify.Notifier
	Auth     *auth.Service
}

// Bootstrap runs the boot order above.
func Bootstrap(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	log, err := logger.New(logger.Options{Dir: cfg.Log.Dir, Level: cfg.Log.Level, Tee: cfg.Log.Tee})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}

	var secrets config.SecretResolver
	if cfg.Vault.Enabled {
		cli, err := vault.New(ctx, log)
		if err != nil {
			return nil, err
		}
		secrets = cli
	}
	if err := config.ResolveSecrets(ctx, cfg, secrets); err != nil {
		return nil, err
	}

	db, err := database.OpenWithOptions(cfg.Database.Driver, cfg.Database.ConnString(),
		cfg.Database.MaxOpen, cfg.Database.MaxIdle)
	if err != nil {
		return nil, err
	}
	log.Infow("database online", "driver", cfg.Database.Driver)

	cat, err := resource.Load()
	if err != nil {
		db.Close()
		return nil, err
	}
	if err := database.EnsureTables(ctx, db, cat.All()); err != nil {
		db.Close()
		return nil, err
	}

	n := notify.New(log)
	n.Configure(cfg.Notify.SuccessTimeout, cfg.Notify.ErrorTimeout)

	svc, err := auth.NewService(auth.NewSQLRepo(db), auth.Options{
		Secret:     []byte(cfg.Auth.JWTSecret),
		TTL:        cfg.Auth.SessionTTL,
		BcryptCost: cfg.Auth.BcryptCost,
		Logger:     log,
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &App{
		Config:   cfg,
		Log:      log,
		DB:       db,
		Store:    store.NewSQLStore(db),
		Catalog:  cat,
		Notifier: n,
		Auth:     svc,
	}, nil
}

// Close releases the database pool and flushes the logger.
func (a *App) Close() {
	if err := a.DB.Close(); err != nil {
		a.Log.Warnw("database close", "err", err)
	}
	_ = a.Log.Sync()
}
