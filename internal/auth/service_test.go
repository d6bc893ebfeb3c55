package auth

import (
	"context"
	"errors"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type memRepo struct {
	mu       sync.Mutex
	users    map[string]User
	sessions map[string]Session
	failGet  error
}

func newMemRepo() *memRepo {
	return &memRepo{users: map[string]User{}, sessions: map[string]Session{}}
}

func (m *memRepo) UserByEmail(_ context.Context, email string) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return User{}, ErrNotFound
}

func (m *memRepo) UserByID(_ context.Context, id string) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return User{}, ErrNotFound
	}
	return u, nil
}

func (m *memRepo) CreateUser(_ context.Context, u User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = u
	return nil
}

func (m *memRepo) CreateSession(_ context.Context, s Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = s
	return nil
}

func (m *memRepo) SessionByID(_ context.Context, id string) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failGet != nil {
		return Session{}, m.failGet
	}
	s, ok := m.sessions[id]
	if !ok {
		return Session{}, ErrNotFound
	}
	return s, nil
}

func (m *memRepo) RevokeSession(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return ErrNotFound
	}
	s.Revoked = true
	m.sessions[id] = s
	return nil
}

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newService(t *testing.T) (*Service, *memRepo, *clock) {
	t.Helper()
	repo := newMemRepo()
	clk := &clock{t: time.Date(2025, 2, 1, 8, 0, 0, 0, time.UTC)}
	svc, err := NewService(repo, Options{
		Secret:     []byte("0123456789abcdef0123456789abcdef"),
		TTL:        time.Hour,
		BcryptCost: bcrypt.MinCost,
		CacheSize:  8,
		Logger:     zap.NewNop().Sugar(),
		Clock:      clk.Now,
	})
	require.NoError(t, err)
	_, err = svc.CreateUser(context.Background(), " Admin@Example.com ", "correct horse")
	require.NoError(t, err)
	return svc, repo, clk
}

func TestSignInAndGetSession(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	req := httptest.NewRequest("POST", "/admin/login", nil)
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/125.0.0.0 Safari/537.36")
	sess, err := svc.SignIn(ctx, "admin@example.com", "correct horse", MetaFromRequest(req))
	require.NoError(t, err)
	require.NotEmpty(t, sess.Token)
	assert.Equal(t, "192.0.2.1", sess.IP)
	assert.Len(t, sess.ID, 27)

	got, err := svc.GetSession(ctx, sess.Token)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, sess.ID, got.ID)

	u, err := svc.GetUser(ctx, sess.Token)
	require.NoError(t, err)
	assert.Equal(t, "admin@example.com", u.Email)
}

func TestSignIn_BadCredentials(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	_, err := svc.SignIn(ctx, "admin@example.com", "wrong password", Meta{})
	assert.ErrorIs(t, err, ErrBadCredentials)
	_, err = svc.SignIn(ctx, "nobody@example.com", "correct horse", Meta{})
	assert.ErrorIs(t, err, ErrBadCredentials)
}

func TestGetSession_InvalidTokens(t *testing.T) {
	svc, _, _ := newService(t)
	for _, tok := range []string{"", "garbage", "a.b.c"} {
		s, err := svc.GetSession(context.Background(), tok)
		assert.NoError(t, err)
		assert.Nil(t, s)
	}
}

func TestSignOutRevokes(t *testing.T) {
	svc, repo, _ := newService(t)
	ctx := context.Background()
	sess, err := svc.SignIn(ctx, "admin@example.com", "correct horse", Meta{})
	require.NoError(t, err)

	require.NoError(t, svc.SignOut(ctx, sess.Token))
	got, err := svc.GetSession(ctx, sess.Token)
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.True(t, repo.sessions[sess.ID].Revoked)

	assert.NoError(t, svc.SignOut(ctx, "not-a-token"))
}

func TestGetSession_Expired(t *testing.T) {
	svc, _, clk := newService(t)
	ctx := context.Background()
	sess, err := svc.SignIn(ctx, "admin@example.com", "correct horse", Meta{})
	require.NoError(t, err)

	clk.Advance(2 * time.Hour)
	got, err := svc.GetSession(ctx, sess.Token)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestGetSession_RepoFailureIsAnError(t *testing.T) {
	svc, repo, _ := newService(t)
	ctx := context.Background()
	sess, err := svc.SignIn(ctx, "admin@example.com", "correct horse", Meta{})
	require.NoError(t, err)

	svc.forget(sess.ID)
	repo.failGet = errors.New("db down")
	_, err = svc.GetSession(ctx, sess.Token)
	assert.EqualError(t, err, "db down")
}

func TestHashPassword_Weak(t *testing.T) {
	_, err := HashPassword("short", bcrypt.MinCost)
	assert.ErrorIs(t, err, ErrWeakPassword)
}

func TestContextHelpers(t *testing.T) {
	ctx := WithSession(context.Background(), Session{ID: "s1", UserID: "u1"})
	id, ok := UserID(ctx)
	assert.True(t, ok)
	assert.Equal(t, "u1", id)
	_, ok = FromContext(context.Background())
	assert.False(t, ok)
}
