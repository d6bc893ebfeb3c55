package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"
)

var teapot = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusTeapot)
	_, _ = w.Write([]byte("body"))
})

func TestSecurity_HeadersSurviveWrite(t *testing.T) {
	w := httptest.NewRecorder()
	Security(teapot).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	for _, kv := range securityHeaders {
		if w.Header().Get(kv[0]) == "" {
			t.Errorf("missing %s", kv[0])
		}
	}
}

func TestForceHTTPS(t *testing.T) {
	h := ForceHTTPS(true)(teapot)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "http://shop.example/admin?x=1", nil))
	if w.Code != http.StatusPermanentRedirect || w.Header().Get("Location") != "https://shop.example/admin?x=1" {
		t.Fatalf("got %d %q", w.Code, w.Header().Get("Location"))
	}

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "http://localhost:8080/", nil))
	if w.Code != http.StatusTeapot {
		t.Fatalf("localhost redirected: %d", w.Code)
	}

	w = httptest.NewRecorder()
	ForceHTTPS(false)(teapot).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "http://shop.example/", nil))
	if w.Code != http.StatusTeapot {
		t.Fatalf("disabled middleware redirected: %d", w.Code)
	}
}

func TestLogging_PassesThrough(t *testing.T) {
	w := httptest.NewRecorder()
	Logging(zap.NewNop().Sugar())(teapot).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Code != http.StatusTeapot || w.Body.String() != "body" {
		t.Fatalf("got %d %q", w.Code, w.Body.String())
	}
}

func TestCSRF(t *testing.T) {
	c := NewCSRF("0123456789abcdef")
	tok, err := c.Issue()
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if !c.Verify(tok) {
		t.Fatal("fresh token rejected")
	}
	if NewCSRF("another-secret-value").Verify(tok) {
		t.Fatal("token verified under a different secret")
	}

	base := time.Now()
	c.now = func() time.Time { return base.Add(CSRFMaxAge + time.Minute) }
	if c.Verify(tok) {
		t.Fatal("expired token accepted")
	}
}

func TestCSRF_Protect(t *testing.T) {
	c := NewCSRF("0123456789abcdef")
	h := c.Protect(teapot)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/admin/api/faqs", nil))
	if w.Code != http.StatusForbidden {
		t.Fatalf("missing token: %d", w.Code)
	}

	tok, _ := c.Issue()
	r := httptest.NewRequest(http.MethodPost, "/admin/api/faqs", nil)
	r.Header.Set(CSRFHeader, tok)
	w = httptest.NewRecorder()
	h.ServeHTTP(w, r)
	if w.Code != http.StatusTeapot {
		t.Fatalf("valid token: %d", w.Code)
	}

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin/api/faqs", nil))
	if w.Code != http.StatusTeapot {
		t.Fatalf("GET blocked: %d", w.Code)
	}
}
