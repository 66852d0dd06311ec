package main

import (
	"context"
	"log/slog"
	"os"

	_ "github.com/kirinyoku/museum-tix/docs"
	"github.com/kirinyoku/museum-tix/internal/app"
	"github.com/kirinyoku/museum-tix/internal/config"
)

// @title Museum Tickets API
// @version 1.0
// @description Ticket booking, cancellation with refunds and administration for a museum.
// @host localhost:5000
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, err := config.New()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))

	ctx := context.Background()

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to create application", "error", err)
		os.Exit(1)
	}

	if err := application.Run(ctx); err != nil {
		logger.Error("application finished with error", "error", err)
		os.Exit(1)
	}
}
