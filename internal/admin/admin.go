// internal/admin/admin.go
//
// JSON HTTP surface of the storefront admin.
//
// Context
// -------
// The controllers (internal/collection, internal/settings) hold all admin
// behavior; this package only maps HTTP onto them and back.  Every response
// is JSON and carries the notification banner currently on screen under
// `notice`, so a client can render the same feedback the controllers raise.
//
// Route map
// ---------
//
//	GET    /healthz
//	GET    /metrics
//	GET    /admin/login                     csrf token for the login form
//	POST   /admin/login                     sign in, sets the session cookie
//	POST   /admin/logout
//	GET    /admin/dashboard                 counts, groupings, recent activity
//	GET    /admin/api/{resource}            View (items, form, pending)
//	POST   /admin/api/{resource}            create
//	PUT    /admin/api/{resource}/{id}       update
//	DELETE /admin/api/{resource}/{id}       delete (confirmation)
//	PATCH  /admin/api/{resource}/{id}/active  toggle visibility (confirmation)
//	POST   /admin/api/{resource}/reorder    persist a new order
//	POST   /admin/api/{resource}/form       open the create or edit form
//	DELETE /admin/api/{resource}/form       cancel the form
//	POST   /admin/api/{resource}/dismiss    drop a staged confirmation
//	GET    /admin/api/settings/{resource}
//	PUT    /admin/api/settings/{resource}
//	POST   /admin/api/reset                 typed-confirmation wipe
//	GET    /admin/api/export                JSON snapshot download
//	GET    /admin/api/orders                read-only order list
//
// Destructive requests without `X-Confirm: yes` stage the action and answer
// 428 with the prompt; repeating them with the header runs it.
//
// Notes
// -----
//   - Every /admin route sits behind guard.Middleware and CSRF protection.
//   - Oxford commas, two spaces after periods.
package admin

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/yanizio/storefront/internal/auth"
	"github.com/yanizio/storefront/internal/collection"
	"github.com/yanizio/storefront/internal/dashboard"
	"github.com/yanizio/storefront/internal/guard"
	"github.com/yanizio/storefront/internal/middleware"
	"github.com/yanizio/storefront/internal/notify"
	"github.com/yanizio/storefront/internal/record"
	"github.com/yanizio/storefront/internal/reorder"
	"github.com/yanizio/storefront/internal/requestinfo"
	"github.com/yanizio/storefront/internal/resource"
	"github.com/yanizio/storefront/internal/settings"
	"github.com/yanizio/storefront/internal/store"
)

// MaintenanceResource is the singleton whose controller runs reset and
// export.
const MaintenanceResource = "settings"

// Deps wires the admin surface.  Catalog, Store, Auth, Notifier, and CSRF
// are required.
type Deps struct {
	Catalog  *resource.Catalog
	Store    store.Store
	Auth     auth.Collaborator
	Notifier *notify.Notifier
	CSRF     *middleware.CSRF
	Reorder  string // reorder strategy name, "" means batch
	Logger   *zap.SugaredLogger
}

// Handler owns one controller per resource.
type Handler struct {
	store    store.Store
	notifier *notify.Notifier
	csrf     *middleware.CSRF
	guard    *guard.Guard
	stats    *dashboard.Service
	log      *zap.SugaredLogger

	collections map[string]*collection.Controller
	singletons  map[string]*settings.Controller
	readonly    map[string]*record.Schema
	order       []string // resource names in catalog order
}

// New builds controllers for every resource in the catalog.
func New(d Deps) (*Handler, error) {
	if d.Catalog == nil || d.Store == nil || d.Auth == nil || d.Notifier == nil || d.CSRF == nil {
		return nil, errors.New("admin: catalog, store, auth, notifier, and csrf are required")
	}
	if d.Logger == nil {
		d.Logger = zap.S()
	}
	strategy, err := reorder.New(d.Reorder, d.Store)
	if err != nil {
		return nil, err
	}

	h := &Handler{
		store:       d.Store,
		notifier:    d.Notifier,
		csrf:        d.CSRF,
		guard:       guard.New(d.Auth, d.Notifier, d.Logger),
		log:         d.Logger,
		collections: make(map[string]*collection.Controller),
		singletons:  make(map[string]*settings.Controller),
		readonly:    make(map[string]*record.Schema),
	}

	all := d.Catalog.All()
	h.stats = dashboard.New(d.Store, all, d.Logger)
	for _, s := range all {
		h.order = append(h.order, s.Resource)
		switch s.Kind {
		case record.KindOrdered:
			c, err := collection.New(collection.Options{
				Schema: s, Store: d.Store, Notifier: d.Notifier, Reorderer: strategy, Logger: d.Logger,
			})
			if err != nil {
				return nil, err
			}
			h.collections[s.Resource] = c
		case record.KindSingleton:
			c, err := settings.New(settings.Options{
				Schema: s, Store: d.Store, Tables: all, Notifier: d.Notifier, Logger: d.Logger,
			})
			if err != nil {
				return nil, err
			}
			h.singletons[s.Resource] = c
		case record.KindReadOnly:
			h.readonly[s.Resource] = s
		}
	}
	if _, ok := h.singletons[MaintenanceResource]; !ok {
		return nil, fmt.Errorf("admin: catalog has no %q singleton", MaintenanceResource)
	}
	return h, nil
}

// Collection returns the controller for an ordered resource.
func (h *Handler) Collection(name string) (*collection.Controller, bool) {
	c, ok := h.collections[name]
	return c, ok
}

// Routes builds the full router.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/healthz", h.healthz)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/admin", func(a chi.Router) {
		a.Use(requestinfo.Enrich)
		a.Use(h.guard.Middleware)
		a.Use(h.csrf.Protect)

		a.Get("/login", h.loginPage)
		a.Post("/login", h.login)
		a.Post("/logout", h.logout)
		a.Get("/dashboard", h.dashboard)

		a.Route("/api", func(api chi.Router) {
			api.Get("/orders", h.listOrders)
			api.Post("/reset", h.reset)
			api.Get("/export", h.export)

			api.Get("/settings/{resource}", h.getSettings)
			api.Put("/settings/{resource}", h.saveSettings)

			api.Route("/{resource}", func(c chi.Router) {
				c.Get("/", h.list)
				c.Post("/", h.create)
				c.Post("/reorder", h.reorder)
				c.Post("/form", h.openForm)
				c.Delete("/form", h.cancelForm)
				c.Post("/dismiss", h.dismiss)
				c.Put("/{id}", h.update)
				c.Delete("/{id}", h.remove)
				c.Patch("/{id}/active", h.toggleActive)
			})
		})
	})
	return r
}

func (h *Handler) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
