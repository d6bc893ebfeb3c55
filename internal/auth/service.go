package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/yanizio/storefront/internal/cache"
	"github.com/yanizio/storefront/internal/ident"
	"github.com/yanizio/storefront/internal/metrics"
)

// Options configures a Service.
type Options struct {
	Secret     []byte        // HS256 key; required
	TTL        time.Duration // session lifetime; 12h when zero
	BcryptCost int           // bcrypt.DefaultCost when zero
	CacheSize  int           // 256 when zero
	Logger     *zap.SugaredLogger
	Clock      func() time.Time
}

// Service implements Collaborator on a Repo.
type Service struct {
	repo   Repo
	secret []byte
	ttl    time.Duration
	cost   int
	cache  *cache.LRU
	log    *zap.SugaredLogger
	now    func() time.Time

	// dummyHash keeps unknown-email sign-ins as slow as wrong-password ones.
	dummyHash []byte
}

var _ Collaborator = (*Service)(nil)

// NewService validates opts and returns a Service.
func NewService(repo Repo, opts Options) (*Service, error) {
	if len(opts.Secret) < 16 {
		return nil, errors.New("auth: secret must be at least 16 bytes")
	}
	s := &Service{
		repo:   repo,
		secret: opts.Secret,
		ttl:    opts.TTL,
		cost:   opts.BcryptCost,
		log:    opts.Logger,
		now:    opts.Clock,
	}
	if s.ttl <= 0 {
		s.ttl = 12 * time.Hour
	}
	if s.cost == 0 {
		s.cost = bcrypt.DefaultCost
	}
	size := opts.CacheSize
	if size <= 0 {
		size = 256
	}
	s.cache = cache.New(size)
	if s.log == nil {
		s.log = zap.S()
	}
	if s.now == nil {
		s.now = time.Now
	}
	h, err := bcrypt.GenerateFromPassword([]byte("not-a-real-password"), s.cost)
	if err != nil {
		return nil, fmt.Errorf("auth: %w", err)
	}
	s.dummyHash = h
	return s, nil
}

// HashPassword returns the bcrypt hash of pw at cost.
func HashPassword(pw string, cost int) (string, error) {
	if len(pw) < 8 {
		return "", ErrWeakPassword
	}
	h, err := bcrypt.GenerateFromPassword([]byte(pw), cost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

// CreateUser adds an admin account.  Used by `adminctl user add`.
func (s *Service) CreateUser(ctx context.Context, email, password string) (User, error) {
	email = normalizeEmail(email)
	if email == "" || !strings.Contains(email, "@") {
		return User{}, fmt.Errorf("auth: invalid email %q", email)
	}
	hash, err := HashPassword(password, s.cost)
	if err != nil {
		return User{}, err
	}
	u := User{ID: ident.NewRecordID(), Email: email, PasswordHash: hash, CreatedAt: s.now().UTC()}
	if err := s.repo.CreateUser(ctx, u); err != nil {
		return User{}, err
	}
	s.log.Infow("admin user created", "user_id", u.ID, "email", email)
	return u, nil
}

// SignIn checks the password and opens a session.
func (s *Service) SignIn(ctx context.Context, email, password string, meta Meta) (*Session, error) {
	email = normalizeEmail(email)
	u, err := s.repo.UserByEmail(ctx, email)
	switch {
	case errors.Is(err, ErrNotFound):
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
		metrics.LoginAttemptsTotal.WithLabelValues("bad_credentials").Inc()
		return nil, ErrBadCredentials
	case err != nil:
		metrics.LoginAttemptsTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		metrics.LoginAttemptsTotal.WithLabelValues("bad_credentials").Inc()
		return nil, ErrBadCredentials
	}

	now := s.now().UTC()
	sess := Session{
		ID:        ident.NewKSUID(),
		UserID:    u.ID,
		Email:     u.Email,
		Browser:   meta.UserAgent.Browser,
		OS:        meta.UserAgent.OS,
		Device:    meta.UserAgent.Device,
		IP:        meta.IP,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	if err := s.repo.CreateSession(ctx, sess); err != nil {
		metrics.LoginAttemptsTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	tok, err := s.sign(sess)
	if err != nil {
		return nil, err
	}
	sess.Token = tok
	s.remember(sess)

	metrics.LoginAttemptsTotal.WithLabelValues("ok").Inc()
	s.log.Infow("admin signed in", "user_id", u.ID, "session", sess.ID,
		"browser", sess.Browser, "os", sess.OS, "device", sess.Device, "ip", sess.IP)
	return &sess, nil
}

// GetSession returns the live session behind token, or nil.
func (s *Service) GetSession(ctx context.Context, token string) (*Session, error) {
	if token == "" {
		return nil, nil
	}
	claims, err := s.parse(token)
	if err != nil {
		return nil, nil
	}
	if v, ok := s.cache.Get(claims.ID); ok {
		sess := v.(Session)
		if s.now().Before(sess.ExpiresAt) {
			sess.Token = token
			return &sess, nil
		}
		s.forget(claims.ID)
		return nil, nil
	}

	sess, err := s.repo.SessionByID(ctx, claims.ID)
	switch {
	case errors.Is(err, ErrNotFound):
		return nil, nil
	case err != nil:
		return nil, err
	}
	if sess.Revoked || !s.now().Before(sess.ExpiresAt) || sess.UserID != claims.Subject {
		return nil, nil
	}
	s.remember(sess)
	sess.Token = token
	return &sess, nil
}

// GetUser returns the account behind token, or nil.
func (s *Service) GetUser(ctx context.Context, token string) (*User, error) {
	sess, err := s.GetSession(ctx, token)
	if err != nil || sess == nil {
		return nil, err
	}
	u, err := s.repo.UserByID(ctx, sess.UserID)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// SignOut revokes the session behind token.  Unknown tokens are a no-op.
func (s *Service) SignOut(ctx context.Context, token string) error {
	claims, err := s.parse(token)
	if err != nil {
		return nil
	}
	s.forget(claims.ID)
	if err := s.repo.RevokeSession(ctx, claims.ID); err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	s.log.Infow("admin signed out", "user_id", claims.Subject, "session", claims.ID)
	return nil
}

func (s *Service) sign(sess Session) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:   sess.UserID,
		ID:        sess.ID,
		IssuedAt:  jwt.NewNumericDate(sess.CreatedAt),
		ExpiresAt: jwt.NewNumericDate(sess.ExpiresAt),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

func (s *Service) parse(token string) (*jwt.RegisteredClaims, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, err
	}
	if claims.ID == "" {
		return nil, errors.New("auth: token has no session id")
	}
	return claims, nil
}

func (s *Service) remember(sess Session) {
	sess.Token = ""
	s.cache.Add(sess.ID, sess)
	metrics.SessionCacheEntries.Set(float64(s.cache.Len()))
}

func (s *Service) forget(id string) {
	s.cache.Remove(id)
	metrics.SessionCacheEntries.Set(float64(s.cache.Len()))
}

func normalizeEmail(e string) string { return strings.ToLower(strings.TrimSpace(e)) }
