package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"

	"github.com/kashw/keepsake/internal/app"
	"github.com/kashw/keepsake/internal/config"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg, err := config.New()
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	application, err := app.New(context.Background(), cfg, logger)
	if err != nil {
		logger.Error("startup failed", "error", err)
		os.Exit(1)
	}

	logger.Info("keepsake server listening",
		"port", cfg.Port,
		"repo", cfg.GitHubRepo,
		"branch", cfg.GitHubBranch,
	)
	if err := http.ListenAndServe(":"+cfg.Port, application.Handler()); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
