// Package main serves the built web client with SPA fallback and an optional
// API proxy.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/guipratiko/front-conexprob/internal/config"
	"github.com/guipratiko/front-conexprob/internal/obs"
	"github.com/guipratiko/front-conexprob/internal/webserver"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger := obs.NewLogger(cfg.Env, os.Stdout)

	logger.Info("starting frontend server", "port", cfg.Port, "dist", cfg.DistDir, "api_origin", cfg.APIOrigin)

	server, err := webserver.NewServer(webserver.Config{
		DistDir:   cfg.DistDir,
		APIOrigin: cfg.APIOrigin,
		Logger:    logger,
	})
	if err != nil {
		logger.Error("failed to create server", "error", err)
		os.Exit(1)
	}

	go func() {
		addr := fmt.Sprintf(":%d", cfg.Port)
		if err := server.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to start server", "error", err)
			os.Exit(1)
		}
	}()

	logger.Info("frontend server started", "port", cfg.Port)

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down frontend server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown server gracefully", "error", err)
	}

	logger.Info("frontend server stopped")
}
