// Package main is the entry point for the Externship auth API.
//
// It only reads configuration, builds the logger and hands both to
// internal/server, which owns the rest of the dependency graph.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/Shweta-Tech-creator/Externship-Webapp/internal/config"
	"github.com/Shweta-Tech-creator/Externship-Webapp/internal/logger"
	"github.com/Shweta-Tech-creator/Externship-Webapp/internal/server"
)

func main() {
	// === 1. CONFIGURATION ===
	// Missing or malformed settings stop the process before anything opens.
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	// === 2. LOGGING ===
	log := logger.New(os.Stdout, cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(log)

	// === 3. SERVER ===
	srv, err := server.New(cfg, log)
	if err != nil {
		log.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := srv.Start(); err != nil {
		log.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
