// internal/server/server.go
//
// HTTP server helper with hardened timeouts and graceful shutdown.
//
// Defaults:
//
//   - ReadHeaderTimeout  5 s, slow-loris headers
//   - ReadTimeout       10 s
//   - WriteTimeout      15 s, exports included
//   - IdleTimeout       60 s, keep-alives
//
// Run serves until ctx is cancelled, then gives in-flight requests
// ShutdownGrace to finish.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// ShutdownGrace bounds graceful shutdown.
const ShutdownGrace = 5 * time.Second

// New constructs an *http.Server with the defaults above.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

// Run listens on srv.Addr and blocks until ctx ends or the listener fails.
func Run(ctx context.Context, srv *http.Server, log *zap.SugaredLogger) error {
	ln, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		return err
	}
	return Serve(ctx, srv, ln, log)
}

// Serve is Run on an existing listener.
func Serve(ctx context.Context, srv *http.Server, ln net.Listener, log *zap.SugaredLogger) error {
	if log == nil {
		log = zap.S()
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infow("http listening", "addr", ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Infow("http shutting down", "grace", ShutdownGrace)
	sctx, cancel := context.WithTimeout(context.Background(), ShutdownGrace)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		log.Warnw("http shutdown incomplete", "err", err)
		return err
	}
	return nil
}
