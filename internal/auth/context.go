// internal/auth/context.go
//
// Request-context helpers for the signed-in admin.
//
// Usage
// -----
//
//	// guard.Middleware, after a session checks out.
//	ctx = auth.WithSession(ctx, sess)
//
//	// Handlers further down.
//	sess, ok := auth.FromContext(ctx)
//
// Notes
// -----
// • The context carries a copy of the Session, never a pointer into the
//   cache.
// • Oxford commas, two spaces after periods.
package auth

import "context"

// sessionKey is unexported to avoid context-key collisions.
type sessionKey struct{}

// WithSession returns a new context carrying s.
func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

// FromContext extracts the session stored by WithSession.
func FromContext(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(sessionKey{}).(Session)
	return s, ok
}

// UserID returns the signed-in user's id, or "" and false.
func UserID(ctx context.Context) (string, bool) {
	s, ok := FromContext(ctx)
	if !ok {
		return "", false
	}
	return s.UserID, true
}
