// Package httpserver runs an http.Handler until its context is cancelled.
package httpserver

import (
	"context"
	"errors"
	"net/http"
	"time"

	"newsletter-backend/internal/observability"
)

const shutdownTimeout = 30 * time.Second

// Serve blocks until ctx is done or the listener fails. A cancelled ctx
// triggers a graceful shutdown and a nil return.
func Serve(ctx context.Context, logger *observability.Logger, bind string, handler http.Handler) error {
	server := &http.Server{
		Handler:           handler,
		Addr:              bind,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      time.Minute,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
	err := make(chan error, 1)
	done := make(chan struct{})
	go serveInBackground(ctx, logger, server, err, done)
	<-done
	return <-err
}

func serveInBackground(ctx context.Context, logger *observability.Logger, server *http.Server, firstErr chan<- error, done chan<- struct{}) {
	fields := map[string]any{"addr": server.Addr}
	defer close(done)
	serverCtx, cancel := context.WithCancel(ctx)
	go func() {
		defer cancel()
		defer close(firstErr)
		logger.Info("server_start", fields)
		err := server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			logger.Info("server_closed", fields)
			return
		} else if err != nil {
			select {
			case firstErr <- err:
			default:
			}
			return
		}
	}()
	select {
	case <-serverCtx.Done():
	case <-ctx.Done():
		logger.Info("server_shutdown_started", fields)
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancelShutdown()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("server_shutdown_failed", map[string]any{"addr": server.Addr, "error": err.Error()})
		}
		logger.Info("server_shutdown_completed", fields)
	}
}
