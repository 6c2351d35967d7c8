package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/RAVINDRA-NEGI/Service-Marketplace-Platform-sub000/internal/app"
	"github.com/RAVINDRA-NEGI/Service-Marketplace-Platform-sub000/internal/config"
	"github.com/RAVINDRA-NEGI/Service-Marketplace-Platform-sub000/internal/logger"
)

func main() {
	// For receiving Ctrl+C / SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load config
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logg := logger.New(cfg.LogLevel, cfg.IsProduction)
	if cfg.IsProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	// Wire stores, services and the router
	container, err := app.NewContainer(ctx, cfg, logg)
	if err != nil {
		_ = container.Close()
		logg.WithError(err).Fatal("failed to initialize application")
	}
	defer func() {
		if err := container.Close(); err != nil {
			logg.WithError(err).Warn("failed to close resources")
		}
	}()

	if err := container.Scheduler.Start(); err != nil {
		logg.WithError(err).Fatal("failed to start reconciliation")
	}

	// Use http.Server for graceful shutdown
	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           container.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Run server in separate goroutine
	go func() {
		logg.WithField("addr", cfg.HTTPAddr).WithField("store", cfg.Store).Info("server running")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logg.WithError(err).Fatal("server error")
		}
	}()

	// Wait for Ctrl+C
	<-ctx.Done()
	logg.Info("shutdown signal received")

	// Create a shutdown context with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Shutdown HTTP server
	if err := server.Shutdown(shutdownCtx); err != nil {
		logg.WithError(err).Warn("server forced to shutdown")
	}
	container.Scheduler.Stop()

	logg.Info("server exited gracefully")
}
