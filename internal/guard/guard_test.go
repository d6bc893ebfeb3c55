package guard

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/yanizio/storefront/internal/auth"
	"github.com/yanizio/storefront/internal/notify"
	"github.com/yanizio/storefront/internal/session"
)

type fakeAuth struct {
	sess       *auth.Session
	getErr     error
	signInErr  error
	signOutErr error
	signedOut  bool
}

func (f *fakeAuth) GetSession(context.Context, string) (*auth.Session, error) {
	return f.sess, f.getErr
}

func (f *fakeAuth) GetUser(context.Context, string) (*auth.User, error) { return nil, nil }

func (f *fakeAuth) SignIn(_ context.Context, email, _ string, _ auth.Meta) (*auth.Session, error) {
	if f.signInErr != nil {
		return nil, f.signInErr
	}
	return &auth.Session{ID: "s1", Email: email}, nil
}

func (f *fakeAuth) SignOut(context.Context, string) error {
	f.signedOut = true
	return f.signOutErr
}

func newGuard(a *fakeAuth) (*Guard, *notify.Recorder) {
	rec := &notify.Recorder{}
	return New(a, rec, zap.NewNop().Sugar()), rec
}

func TestCheck_Rules(t *testing.T) {
	live := &auth.Session{ID: "s1"}
	cases := []struct {
		name     string
		sess     *auth.Session
		page     string
		redirect string
	}{
		{"login with session", live, LoginPath, DashboardPath},
		{"login without session", nil, LoginPath, ""},
		{"admin page without session", nil, "/admin/faqs", LoginPath},
		{"admin page with session", live, "/admin/faqs", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			g, _ := newGuard(&fakeAuth{sess: tc.sess})
			d := g.Check(context.Background(), tc.page, "tok")
			assert.Equal(t, tc.redirect, d.Redirect)
		})
	}
}

func TestCheck_AuthErrorIsSettled(t *testing.T) {
	g, rec := newGuard(&fakeAuth{getErr: errors.New("auth service timeout")})

	d := g.Check(context.Background(), "/admin/dashboard", "tok")
	assert.Nil(t, d.Session)
	assert.Equal(t, LoginPath, d.Redirect)

	b, ok := rec.Last()
	require.True(t, ok)
	assert.Equal(t, notify.KindError, b.Kind)
	assert.Contains(t, b.Text, "auth service timeout")
}

func TestLogin(t *testing.T) {
	g, rec := newGuard(&fakeAuth{})
	res := g.Login(context.Background(), "a@b.c", "pw", auth.Meta{})
	require.NoError(t, res.Err)
	assert.Equal(t, DashboardPath, res.Redirect)
	assert.Equal(t, RedirectAfter, res.RedirectAfter)
	b, _ := rec.Last()
	assert.Equal(t, notify.KindSuccess, b.Kind)

	g, rec = newGuard(&fakeAuth{signInErr: auth.ErrBadCredentials})
	res = g.Login(context.Background(), "a@b.c", "bad", auth.Meta{})
	assert.ErrorIs(t, res.Err, auth.ErrBadCredentials)
	assert.Empty(t, res.Redirect)
	b, _ = rec.Last()
	assert.Equal(t, auth.ErrBadCredentials.Error(), b.Text, "reason shown verbatim")
}

func TestLogout_RedirectsEvenOnFailure(t *testing.T) {
	a := &fakeAuth{signOutErr: errors.New("network")}
	g, rec := newGuard(a)
	d := g.Logout(context.Background(), "tok")
	assert.True(t, a.signedOut)
	assert.Equal(t, LoginPath, d.Redirect)
	b, _ := rec.Last()
	assert.Equal(t, notify.KindError, b.Kind)
}

func TestMiddleware(t *testing.T) {
	var seen auth.Session
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = auth.FromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})

	g, _ := newGuard(&fakeAuth{})
	h := g.Middleware(next)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin/dashboard", nil))
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, LoginPath, w.Header().Get("Location"))

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin/api/faqs", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	g, _ = newGuard(&fakeAuth{sess: &auth.Session{ID: "s9", UserID: "u1"}})
	h = g.Middleware(next)
	req := httptest.NewRequest(http.MethodGet, "/admin/api/faqs", nil)
	req.AddCookie(&http.Cookie{Name: session.CookieName, Value: "tok"})
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "s9", seen.ID)
}
