// internal/guard/guard.go
//
// Session guard for admin pages.
//
// Context
// -------
// Every admin page load asks the guard what to do:
//
//   - login page with a live session   → redirect to the dashboard
//   - other admin page with no session → redirect to the login page
//   - anything else                    → no action
//
// Check never fails.  An auth error is logged, shown through the notifier,
// and treated as "no session", so callers always get a settled Decision.
// Login and Logout wrap the auth collaborator with the notifications and
// redirects the admin UI expects.
//
// Notes
// -----
//   - A successful login redirects after RedirectAfter (1 s) so the success
//     banner is readable first.
//   - Oxford commas, two spaces after periods.
package guard

import (
	"context"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/yanizio/storefront/internal/auth"
	"github.com/yanizio/storefront/internal/notify"
	"github.com/yanizio/storefront/internal/session"
)

// Default page paths.
const (
	LoginPath     = "/admin/login"
	DashboardPath = "/admin/dashboard"
)

// RedirectAfter is the delay between a successful login and the redirect.
const RedirectAfter = time.Second

// Decision is the settled result of a guard call.
type Decision struct {
	Session  *auth.Session
	Redirect string // "" means stay
}

// LoginResult reports a login attempt.
type LoginResult struct {
	Session       *auth.Session
	Redirect      string
	RedirectAfter time.Duration
	Err           error
}

// Guard decides page access.
type Guard struct {
	auth   auth.Collaborator
	notify notify.Sink
	log    *zap.SugaredLogger
}

// New returns a Guard.  A nil sink selects notify.Default(); a nil logger
// selects zap.S().
func New(a auth.Collaborator, sink notify.Sink, log *zap.SugaredLogger) *Guard {
	if sink == nil {
		sink = notify.Default()
	}
	if log == nil {
		log = zap.S()
	}
	return &Guard{auth: a, notify: sink, log: log}
}

// Check applies the redirect rules to page.
func (g *Guard) Check(ctx context.Context, page, token string) Decision {
	sess, err := g.auth.GetSession(ctx, token)
	if err != nil {
		g.log.Errorw("session check failed", "page", page, "err", err)
		g.notify.Show(notify.KindError, "Could not verify your session: "+err.Error(), 0)
		sess = nil
	}

	onLogin := page == LoginPath
	switch {
	case onLogin && sess != nil:
		return Decision{Session: sess, Redirect: DashboardPath}
	case !onLogin && sess == nil:
		return Decision{Redirect: LoginPath}
	}
	return Decision{Session: sess}
}

// Login signs in and reports where to go next.
func (g *Guard) Login(ctx context.Context, email, password string, meta auth.Meta) LoginResult {
	sess, err := g.auth.SignIn(ctx, email, password, meta)
	if err != nil {
		g.log.Infow("login failed", "email", email, "reason", err)
		g.notify.Show(notify.KindError, err.Error(), 0)
		return LoginResult{Err: err}
	}
	g.notify.Show(notify.KindSuccess, "Signed in.  Redirecting…", 0)
	return LoginResult{Session: sess, Redirect: DashboardPath, RedirectAfter: RedirectAfter}
}

// Logout signs out and always redirects to the login page.
func (g *Guard) Logout(ctx context.Context, token string) Decision {
	if err := g.auth.SignOut(ctx, token); err != nil {
		g.log.Errorw("logout failed", "err", err)
		g.notify.Show(notify.KindError, "Sign-out did not complete: "+err.Error(), 0)
	}
	return Decision{Redirect: LoginPath}
}

// Middleware runs Check on every request below /admin.  Pages are
// redirected; API calls (/admin/api/...) get 401 instead.  The session,
// when present, is attached to the request context.
func (g *Guard) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		d := g.Check(r.Context(), r.URL.Path, session.Token(r))
		if d.Redirect != "" {
			if strings.HasPrefix(r.URL.Path, "/admin/api/") {
				http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
				return
			}
			http.Redirect(w, r, d.Redirect, http.StatusSeeOther)
			return
		}
		if d.Session != nil {
			r = r.WithContext(auth.WithSession(r.Context(), *d.Session))
		}
		next.ServeHTTP(w, r)
	})
}
