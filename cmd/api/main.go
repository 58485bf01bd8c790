package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"gridguardian-backend/internal/config"
	"gridguardian-backend/internal/di"
	"gridguardian-backend/internal/infrastructure/observability"
	"gridguardian-backend/internal/logging"

	"go.uber.org/zap"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	loader := config.NewLoader(os.Getenv("CONFIG_FILE"))
	cfg, err := loader.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, level, err := logging.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	watcher, err := config.NewConfigWatcher(loader, cfg, logger)
	if err != nil {
		logger.Warn("Configuration hot reloading unavailable", zap.Error(err))
	} else {
		defer watcher.Stop()
		watcher.OnChange(func(next *config.Config) {
			level.SetLevel(logging.ParseLevel(next.LogLevel))
			logger.Info("Log level updated", zap.String("level", next.LogLevel))
		})
	}

	tracing, err := observability.InitTracing(ctx, observability.TracingConfig{
		Enabled:     cfg.Tracing.Enabled,
		ServiceName: cfg.Tracing.ServiceName,
		Environment: string(cfg.Environment),
		Endpoint:    cfg.Tracing.Endpoint,
		SampleRate:  cfg.Tracing.SampleRate,
		Insecure:    cfg.Tracing.Insecure,
	}, logger)
	if err != nil {
		// Don't fail startup, just log the error
		logger.Error("Failed to initialize tracing", zap.Error(err))
	}

	server, cleanup, err := di.InitializeServer(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize server", zap.Error(err))
	}
	defer cleanup()

	if err := server.Sync.Start(ctx); err != nil {
		logger.Fatal("Failed to start graph sync", zap.Error(err))
	}

	srv := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      server.Handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("Starting server",
			zap.String("address", cfg.Server.Address),
			zap.Strings("config_sources", cfg.LoadedFrom),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-serverErr:
		logger.Error("Server failed", zap.Error(err))
	}

	logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.Server.ShutdownTimeout)
	defer cancel()

	// stop pushing before the listener goes away
	server.Sync.Stop()
	server.Hub.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", zap.Error(err))
	}
	if tracing != nil {
		if err := tracing.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Tracer shutdown error", zap.Error(err))
		}
	}

	logger.Info("Server stopped")
}
