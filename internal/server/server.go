// Package server runs an HTTP handler until the process is asked to stop.
package server

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"time"
)

const (
	ShutdownTimeout   = 10 * time.Second
	readHeaderTimeout = 5 * time.Second
)

// Run listens on addr and serves handler until ctx is done.
func Run(ctx context.Context, addr string, handler http.Handler, logger *log.Logger) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return Serve(ctx, ln, handler, logger)
}

// Serve serves handler on ln. When ctx is done the server stops accepting
// connections and waits up to ShutdownTimeout for in-flight requests.
func Serve(ctx context.Context, ln net.Listener, handler http.Handler, logger *log.Logger) error {
	if logger == nil {
		logger = log.Default()
	}
	server := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
		ErrorLog:          logger,
	}

	logger.Printf("listening on %s", ln.Addr())

	srvErr := make(chan error, 1)
	go func() {
		srvErr <- server.Serve(ln)
	}()

	select {
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
		logger.Printf("shutdown signal received, stopping server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	logger.Printf("server stopped")
	return nil
}
