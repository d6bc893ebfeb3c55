// internal/middleware/csrf.go
//
// Stateless CSRF tokens for admin mutations.
//
// Context
// -------
// The admin client fetches a token from GET /admin/login (or any admin page
// response) and echoes it in the X-CSRF-Token header on every unsafe
// request.  A token is
//
//	base64url( nonce | unixMicro | HMAC_SHA256(secret, nonce+unixMicro) )
//
// where nonce is 16 random bytes and unixMicro is 8 bytes big-endian.
// Verification checks the signature in constant time and that the token is
// younger than CSRFMaxAge.  No server-side state is kept.
//
// Notes
// -----
//   - The secret is derived from the JWT signing secret so one config value
//     covers both.
//   - Oxford commas, two spaces after periods.
package middleware

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"net/http"
	"time"
)

const (
	// CSRFHeader carries the token on unsafe requests.
	CSRFHeader = "X-CSRF-Token"
	// CSRFMaxAge bounds token validity.
	CSRFMaxAge = 2 * time.Hour

	tokenLen = 16 + 8 + sha256.Size
)

// CSRF issues and checks tokens.
type CSRF struct {
	key []byte
	now func() time.Time
}

// NewCSRF derives the HMAC key from secret.
func NewCSRF(secret string) *CSRF {
	sum := sha256.Sum256([]byte("csrf:" + secret))
	return &CSRF{key: sum[:], now: time.Now}
}

// Issue returns a fresh token.
func (c *CSRF) Issue() (string, error) {
	buf := make([]byte, 24, tokenLen)
	if _, err := rand.Read(buf[:16]); err != nil {
		return "", err
	}
	binary.BigEndian.PutUint64(buf[16:24], uint64(c.now().UnixMicro()))
	buf = append(buf, c.sign(buf[:24])...)
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// Verify reports whether tok is authentic and fresh.
func (c *CSRF) Verify(tok string) bool {
	raw, err := base64.RawURLEncoding.DecodeString(tok)
	if err != nil || len(raw) != tokenLen {
		return false
	}
	issued := time.UnixMicro(int64(binary.BigEndian.Uint64(raw[16:24])))
	now := c.now()
	if now.Sub(issued) > CSRFMaxAge || issued.Sub(now) > time.Minute {
		return false
	}
	return hmac.Equal(raw[24:], c.sign(raw[:24]))
}

func (c *CSRF) sign(b []byte) []byte {
	mac := hmac.New(sha256.New, c.key)
	mac.Write(b)
	return mac.Sum(nil)
}

// Protect rejects unsafe requests without a valid token with 403.
func (c *CSRF) Protect(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
		default:
			if !c.Verify(r.Header.Get(CSRFHeader)) {
				http.Error(w, "invalid or missing CSRF token", http.StatusForbidden)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}
