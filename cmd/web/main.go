// cmd/web/main.go
//
// Storefront admin HTTP entry point.
//
// Request life-cycle
// ------------------
//
//  1. Bootstrap config, logger, secrets, database, and auth (internal/app).
//
//  2. Build the admin router: /healthz, /metrics, and everything under
//     /admin (guard, CSRF, controllers).
//
//  3. Wrap it with request logging, security headers, and, when
//     http.force_https is set, the HTTPS redirect.
//
//  4. Serve until SIGINT or SIGTERM, then drain for up to five seconds.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/yanizio/storefront/internal/admin"
	"github.com/yanizio/storefront/internal/app"
	"github.com/yanizio/storefront/internal/middleware"
	"github.com/yanizio/storefront/internal/server"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.Bootstrap(ctx)
	if err != nil {
		log.Fatalf("bootstrap: %v", err)
	}
	defer a.Close()

	h, err := admin.New(admin.Deps{
		Catalog:  a.Catalog,
		Store:    a.Store,
		Auth:     a.Auth,
		Notifier: a.Notifier,
		CSRF:     middleware.NewCSRF(a.Config.Auth.JWTSecret),
		Reorder:  a.Config.Reorder.Strategy,
		Logger:   a.Log,
	})
	if err != nil {
		a.Log.Fatalw("admin routes", "err", err)
	}

	root := h.Routes()
	handler := middleware.Logging(a.Log)(
		middleware.Security(
			middleware.ForceHTTPS(a.Config.HTTP.ForceHTTPS)(root)))

	if err := server.Run(ctx, server.New(a.Config.HTTP.ListenAddr, handler), a.Log); err != nil {
		a.Log.Errorw("http server", "err", err)
	}
	a.Log.Info("goodbye")
}
