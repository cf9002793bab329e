package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"hanabi-server/internal/config"
	"hanabi-server/internal/server"
	"hanabi-server/internal/storage"

	"github.com/sirupsen/logrus"
)

func gracefulShutdown(cfg config.Config, log *logrus.Logger, customServer *server.Server, httpServer *http.Server, done chan error) {
	// Create context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	log.Info("Shutdown signal received, press Ctrl+C again to force")
	stop() // Allow Ctrl+C to force shutdown

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	// Save games before the listener goes away
	err := customServer.Shutdown(ctx)
	if err != nil {
		log.WithError(err).Error("Failed to save tables during shutdown")
	}

	if err := httpServer.Shutdown(ctx); err != nil {
		log.WithError(err).Warn("HTTP server forced to shutdown")
	}

	done <- err
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Invalid configuration")
	}
	log, err := cfg.NewLogger()
	if err != nil {
		logrus.WithError(err).Fatal("Invalid logging configuration")
	}

	ctx := context.Background()
	store, err := storage.Open(ctx, storage.Options{
		Backend:     cfg.StorageBackend,
		Dir:         cfg.TablesPath,
		DatabaseURL: cfg.DatabaseURL,
		RedisAddr:   cfg.RedisAddr,
	})
	if err != nil {
		log.WithError(err).Fatal("Failed to open table storage")
	}
	defer store.Close()

	customServer, err := server.NewServer(ctx, cfg, store, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to start server")
	}
	httpServer := customServer.HTTPServer()

	done := make(chan error, 1)
	go gracefulShutdown(cfg, log, customServer, httpServer, done)

	log.WithFields(logrus.Fields{
		"port":    cfg.Port,
		"storage": cfg.StorageBackend,
	}).Info("Listening")
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.WithError(err).Fatal("HTTP server error")
	}

	if err := <-done; err != nil {
		store.Close()
		os.Exit(1)
	}
	log.Info("Graceful shutdown complete.")
}
