// Package server wraps an http.Handler with graceful shutdown on
// SIGINT/SIGTERM, mirroring the original's db-server/src/app_server.rs
// shutdown_signal handling.
package server

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// Server owns the listener and drains in-flight requests before the
// caller closes the underlying Database.
type Server struct {
	httpSrv *http.Server
	log     *zap.SugaredLogger
}

// New builds a Server listening on addr, serving h.
func New(addr string, h http.Handler, log *zap.SugaredLogger) *Server {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Server{
		httpSrv: &http.Server{Addr: addr, Handler: h},
		log:     log,
	}
}

// Run serves until ctx is canceled (by the caller) or the process
// receives SIGINT/SIGTERM, then drains in-flight requests with
// shutdownTimeout before returning. It returns a non-nil error if
// ListenAndServe failed for a reason other than a clean shutdown, or if
// Shutdown failed (for example, draining did not finish within
// shutdownTimeout).
func (s *Server) Run(ctx context.Context, shutdownTimeout time.Duration) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		s.log.Infow("http server listening", "addr", s.httpSrv.Addr)
		errCh <- s.httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	s.log.Infow("shutting down http server", "timeout", shutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return s.httpSrv.Shutdown(shutdownCtx)
}
