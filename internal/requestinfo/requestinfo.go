// internal/requestinfo/requestinfo.go
//
// Per-request metadata: client IP, parsed user agent, path, and arrival
// time.
//
/*
Context
--------
Enrich runs right after request logging.  It resolves the client address
once, parses the User-Agent once, and stores the result in the request
context together with a request-scoped logger carrying `ip` and `path`.
Handlers read it back with FromContext; the login handler turns it into
the session metadata stored with each admin sign-in.

Notes
-----
  - X-Forwarded-For is trusted; deploy behind a proxy that overwrites it.
  - Oxford commas, two spaces after periods.
*/
package requestinfo

import (
	"context"
	"net"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/yanizio/storefront/internal/logger"
	"github.com/yanizio/storefront/internal/ua"
)

// Info is inert and safe to log.
type Info struct {
	IP        string
	UA        ua.Info
	Path      string
	Timestamp time.Time
}

type ctxKey struct{}

// Enrich attaches Info and a request-scoped logger, then forwards.
func Enrich(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		info := &Info{
			IP:        ClientIP(r),
			UA:        ua.Parse(r.UserAgent()),
			Path:      r.URL.Path,
			Timestamp: time.Now().UTC(),
		}

		log := zap.S().With("ip", info.IP, "path", info.Path)
		log.Debugw("request info", "browser", info.UA.Browser, "device", info.UA.Device, "bot", info.UA.IsBot)

		ctx := context.WithValue(r.Context(), ctxKey{}, info)
		ctx = logger.WithContext(ctx, log)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// FromContext returns the Info attached by Enrich, or nil.
func FromContext(ctx context.Context) *Info {
	info, _ := ctx.Value(ctxKey{}).(*Info)
	return info
}

// ClientIP returns the left-most valid address from X-Forwarded-For or
// X-Real-IP, falling back to r.RemoteAddr.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		for _, part := range strings.Split(xff, ",") {
			if ip := net.ParseIP(strings.TrimSpace(part)); ip != nil {
				return ip.String()
			}
		}
	}
	if xr := net.ParseIP(strings.TrimSpace(r.Header.Get("X-Real-Ip"))); xr != nil {
		return xr.String()
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
