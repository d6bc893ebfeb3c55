// internal/auth/auth.go
//
// Admin authentication: users, sessions, and signed session tokens.
//
// Context
// -------
// The session guard only needs four calls, captured by Collaborator.
// Service is the production implementation:
//
//   - Passwords are bcrypt hashes in admin_users.
//   - SignIn creates an admin_sessions row (KSUID id) and returns an HS256
//     JWT carrying the user id (sub) and session id (jti).
//   - GetSession verifies the JWT and then the session row, so SignOut can
//     revoke a token before it expires.  Verified sessions sit in a small
//     LRU to keep the session table off the hot path.
//
// Workflow
// --------
//
//	sess, err := svc.SignIn(ctx, email, password, auth.MetaFromRequest(r))
//	// set sess.Token as the session cookie (internal/session)
//	sess, err = svc.GetSession(ctx, token) // nil, nil when signed out
//	err = svc.SignOut(ctx, token)
//
// Notes
// -----
// • GetSession returns (nil, nil) for missing, malformed, expired, or
//   revoked tokens.  Errors are reserved for infrastructure failures.
// • Oxford commas, two spaces after periods.
package auth

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/yanizio/storefront/internal/requestinfo"
	"github.com/yanizio/storefront/internal/ua"
)

var (
	// ErrBadCredentials is shown to the operator verbatim.
	ErrBadCredentials = errors.New("invalid email or password")
	ErrNotFound       = errors.New("auth: not found")
	ErrWeakPassword   = errors.New("auth: password must be at least 8 characters")
)

// User is one admin account.
type User struct {
	ID           string    `db:"id" json:"id"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// Session is one signed-in browser.
type Session struct {
	ID        string    `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"user_id"`
	Email     string    `db:"email" json:"email"`
	Browser   string    `db:"browser" json:"browser"`
	OS        string    `db:"os" json:"os"`
	Device    string    `db:"device" json:"device"`
	IP        string    `db:"ip" json:"ip"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	ExpiresAt time.Time `db:"expires_at" json:"expires_at"`
	Revoked   bool      `db:"revoked" json:"-"`

	Token string `db:"-" json:"-"`
}

// Meta describes the client signing in.
type Meta struct {
	UserAgent ua.Info
	IP        string
}

// MetaFromRequest reuses the request info attached by requestinfo.Enrich,
// parsing the request directly when it is absent.
func MetaFromRequest(r *http.Request) Meta {
	if info := requestinfo.FromContext(r.Context()); info != nil {
		return Meta{UserAgent: info.UA, IP: info.IP}
	}
	return Meta{UserAgent: ua.Parse(r.UserAgent()), IP: requestinfo.ClientIP(r)}
}

// Collaborator is what the session guard depends on.
type Collaborator interface {
	GetSession(ctx context.Context, token string) (*Session, error)
	GetUser(ctx context.Context, token string) (*User, error)
	SignIn(ctx context.Context, email, password string, meta Meta) (*Session, error)
	SignOut(ctx context.Context, token string) error
}

// Repo persists users and sessions.
type Repo interface {
	UserByEmail(ctx context.Context, email string) (User, error)
	UserByID(ctx context.Context, id string) (User, error)
	CreateUser(ctx context.Context, u User) error
	CreateSession(ctx context.Context, s Session) error
	SessionByID(ctx context.Context, id string) (Session, error)
	RevokeSession(ctx context.Context, id string) error
}
