// Package main implements the entry point for the Scry Vault server, which
// serves the encrypted flashcard container and runs password-protected study
// sessions over it.
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"

	"github.com/phrazzld/scry-vault/internal/config"
	"github.com/phrazzld/scry-vault/internal/platform/logger"
)

// main is the entry point for the scry-vault server.
// It loads configuration, sets up logging, wires the application and runs the
// HTTP server until it receives a shutdown signal.
func main() {
	app, err := initializeApp()
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}

	if err := app.Run(context.Background()); err != nil {
		app.logger.Error("Application stopped with error", "error", err)
		log.Fatalf("Server error: %v", err)
	}
}

// initializeApp loads configuration and sets up application components.
func initializeApp() (*application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	l, err := logger.Setup(cfg.Server)
	if err != nil {
		return nil, fmt.Errorf("failed to set up logger: %w", err)
	}

	l.Info("Server configuration loaded",
		slog.Int("port", cfg.Server.Port),
		slog.String("log_level", cfg.Server.LogLevel),
		slog.Int("unlock_workers", cfg.Unlock.WorkerCount))
	if cfg.Session.Seed != 0 {
		l.Debug("Session shuffle seed fixed", slog.Int64("seed", cfg.Session.Seed))
	}

	return newApplication(cfg, l)
}
