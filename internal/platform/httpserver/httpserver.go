// Package httpserver owns the API listener's timeouts and its graceful stop.
package httpserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// DefaultGrace is how long in-flight scans get to finish on shutdown.
const DefaultGrace = 10 * time.Second

// New builds the API server. Requests are small JSON bodies; the write
// timeout leaves room for QR rendering on voucher issue.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      20 * time.Second,
		IdleTimeout:       90 * time.Second,
	}
}

// Serve listens until ctx is cancelled and then drains in-flight requests
// for at most grace. A clean stop returns nil.
func Serve(ctx context.Context, srv *http.Server, grace time.Duration) error {
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen on %s: %w", srv.Addr, err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), grace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	return nil
}
