// Package main is the entry point of the fitlog server.
//
// main stays small: load the configuration, build the logger, hand both
// to the server and block until it stops. Everything else lives under
// internal/.
package main

import (
	"log/slog"
	"os"

	"github.com/sakif/fitlog/internal/config"
	"github.com/sakif/fitlog/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger := newLogger(cfg)
	slog.SetDefault(logger)

	if cfg.PhotoBucket == "" {
		logger.Info("storing photos on disk", slog.String("dir", cfg.PhotoDir))
	}
	if !cfg.GitHubEnabled() {
		logger.Info("GITHUB_CLIENT_ID not set; GitHub sign-in is disabled")
	}

	srv, err := server.New(cfg, logger)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Start blocks until SIGINT or SIGTERM.
	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

// newLogger builds a text handler, or a JSON handler when LOG_FORMAT=json,
// at the configured level.
func newLogger(cfg config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel}
	if cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
