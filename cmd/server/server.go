package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"
)

// shutdownTimeout bounds how long in-flight requests get after a signal
const shutdownTimeout = 10 * time.Second

// serve starts the job queue, the status broadcaster and the HTTP server
// and blocks until ctx is cancelled or one of them fails. The queue is
// stopped after the server has shut down.
func (app *application) serve(ctx context.Context) error {
	// The runner lives until Stop, not until the signal.
	if err := app.queue.Start(context.WithoutCancel(ctx)); err != nil {
		return fmt.Errorf("failed to start job queue: %w", err)
	}
	defer app.queue.Stop()

	g, gctx := errgroup.WithContext(ctx)

	// Request contexts derive from gctx so open event streams end when
	// shutdown begins
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", app.config.Server.Port),
		Handler:           app.setupRouter(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return gctx },
	}

	g.Go(func() error {
		app.status.Run(gctx)
		return nil
	})

	g.Go(func() error {
		app.logger.Info("starting server", "port", app.config.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		app.logger.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), shutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		return nil
	})

	err := g.Wait()
	app.logger.Info("server shutdown completed")
	return err
}
