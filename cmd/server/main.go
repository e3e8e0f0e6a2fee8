// Package main is the entry point for the Cultural Expo API server.
//
// main stays minimal: read configuration, build the logger and storage
// backend, hand them to internal/server, and block until shutdown. All logic
// lives in the internal packages.
package main

import (
	"context"
	"os"
	"time"

	"github.com/sakif/cultural-expo/internal/config"
	"github.com/sakif/cultural-expo/internal/logger"
	"github.com/sakif/cultural-expo/internal/server"
	"github.com/sakif/cultural-expo/internal/storage"
)

func main() {
	// Configuration comes first; without it there is no log level yet, so
	// failures go to a default logger.
	cfg, err := config.New()
	if err != nil {
		log := logger.New("cultural-expo", "info")
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	log := logger.New("cultural-expo", cfg.LogLevel)

	openCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	kv, err := storage.Open(openCtx, cfg)
	cancel()
	if err != nil {
		log.Fatal().Stack().Err(err).Str("backend", cfg.StorageBackend).Msg("failed to open storage")
	}

	srv, err := server.New(*cfg, kv, log)
	if err != nil {
		_ = kv.Close()
		log.Fatal().Err(err).Msg("failed to create server")
	}

	// Start blocks until SIGINT / SIGTERM and closes the backend on return.
	if err := srv.Start(); err != nil {
		log.Error().Err(err).Msg("server error")
		os.Exit(1)
	}
}
