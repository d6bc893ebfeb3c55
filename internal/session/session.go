// internal/session/session.go
//
// Admin session cookie.
//
// Context
// -------
// The cookie carries the signed session token issued by internal/auth.  The
// token is an HS256 JWT, so the cookie needs no encryption of its own; the
// server still checks the session row on every request, which is what makes
// sign-out effective before the token expires.
//
// Style
// -----
// Two-space sentence spacing, Oxford comma, terse inline notes.
package session

import (
	"net/http"
	"time"
)

// CookieName is the admin session cookie.
const CookieName = "storefront_admin"

// Set writes the session cookie.  expires is the session's ExpiresAt.
func Set(w http.ResponseWriter, r *http.Request, token string, expires time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/admin",
		HttpOnly: true,
		Secure:   r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https",
		SameSite: http.SameSiteLaxMode,
		Expires:  expires,
	})
}

// Clear removes the session cookie.
func Clear(w http.ResponseWriter, _ *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/admin",
		MaxAge:   -1,
		HttpOnly: true,
	})
}

// Token returns the session token, or "" when the cookie is missing.
func Token(r *http.Request) string {
	c, err := r.Cookie(CookieName)
	if err != nil {
		return ""
	}
	return c.Value
}
