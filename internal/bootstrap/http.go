package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"golang.org/x/net/netutil"

	"github.com/nemde-api/jobs-api/config"
)

const shutdownTimeout = 10 * time.Second

// RunHTTPServer serves the handler until the context is cancelled, then
// shuts down gracefully. When MaxConns is set the listener caps concurrent
// connections.
func RunHTTPServer(ctx context.Context, cfg config.HTTPConfig, handler http.Handler, logger *slog.Logger) error {
	addr := cfg.Addr
	if addr == "" {
		addr = ":8080"
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	if cfg.MaxConns > 0 {
		listener = netutil.LimitListener(listener, cfg.MaxConns)
	}

	server := &http.Server{
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting HTTP server", "addr", addr, "max_conns", cfg.MaxConns)
		if serveErr := server.Serve(listener); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			errCh <- serveErr
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if shutdownErr := server.Shutdown(shutdownCtx); shutdownErr != nil {
			return fmt.Errorf("shutdown http server: %w", shutdownErr)
		}
		return <-errCh
	case serveErr := <-errCh:
		return serveErr
	}
}
