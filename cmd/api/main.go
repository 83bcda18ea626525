package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jfi/employee-api/app"
	"github.com/jfi/employee-api/config"
	"github.com/jfi/employee-api/internal/observability"
	"github.com/jfi/employee-api/routes"
	"go.uber.org/zap"
)

func main() {
	logger, err := initLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger); err != nil {
		logger.Error("server exited with error", zap.Error(err))
		os.Exit(1)
	}
	logger.Info("server stopped")
}

// initLogger builds the process logger from LOG_LEVEL and LOG_FORMAT.
// It runs before the configuration is loaded so that configuration errors
// are logged too.
func initLogger() (*zap.Logger, error) {
	return observability.NewZapLogger(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"))
}

func run(ctx context.Context, logger *zap.Logger) error {
	cfg, err := config.New(ctx)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger.Info("starting employee api",
		zap.String("environment", cfg.Environment),
		zap.String("address", cfg.Server.Address()),
		zap.String("storage", cfg.Storage.Driver),
	)
	if cfg.Storage.Driver == config.DriverPostgres {
		logger.Info("database configured", zap.String("database", cfg.Database.LogString()))
	}

	deps, err := app.NewDependencies(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize dependencies: %w", err)
	}
	defer func() {
		if err := deps.Close(context.Background()); err != nil {
			logger.Error("failed to close dependencies", zap.Error(err))
		}
	}()

	ln, err := net.Listen("tcp", cfg.Server.Address())
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", cfg.Server.Address(), err)
	}

	return serve(ctx, newServer(cfg, routes.SetupRoutes(deps), logger), ln, cfg.Server, logger)
}

func newServer(cfg *config.Config, handler http.Handler, logger *zap.Logger) *http.Server {
	return &http.Server{
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		ErrorLog:     zap.NewStdLog(logger.Named("http")),
	}
}

// serve runs srv on ln until ctx is cancelled, then drains in-flight
// requests for at most the configured shutdown timeout.
func serve(ctx context.Context, srv *http.Server, ln net.Listener, cfg config.ServerConfig, logger *zap.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening",
			zap.String("address", ln.Addr().String()),
			zap.Bool("tls", cfg.TLS.Enabled))
		if cfg.TLS.Enabled {
			errCh <- srv.ServeTLS(ln, cfg.TLS.CertFile, cfg.TLS.KeyFile)
			return
		}
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down server", zap.Duration("timeout", cfg.ShutdownTimeout))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		_ = srv.Close()
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}
