// Package server sets up the HTTP server, router, and all route definitions.
//
// This is the composition root of the API: main.go opens the storage
// backend and hands it here, and New builds the chain
//
//	KeyValueStore → journal.Store → service.ExperienceService → handlers
//
// so every dependency is wired in one place.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/sakif/cultural-expo/internal/auth"
	"github.com/sakif/cultural-expo/internal/config"
	"github.com/sakif/cultural-expo/internal/handler"
	"github.com/sakif/cultural-expo/internal/journal"
	"github.com/sakif/cultural-expo/internal/middleware"
	"github.com/sakif/cultural-expo/internal/repository"
	"github.com/sakif/cultural-expo/internal/service"
)

// shutdownTimeout is how long in-flight requests get to finish.
const shutdownTimeout = 30 * time.Second

// Server represents the HTTP server and all its dependencies.
//
// The Server owns the storage backend: it is closed when Start returns, so
// pending SQLite writes are flushed and Redis connections released.
type Server struct {
	router *chi.Mux
	config config.Config
	logger zerolog.Logger
	kv     repository.KeyValueStore
}

// New wires the API over kv.
//
// Authentication is enabled when cfg.JWTSecret is set; /healthz always stays
// public.
func New(cfg config.Config, kv repository.KeyValueStore, logger zerolog.Logger) (*Server, error) {
	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		kv:     kv,
	}

	if err := s.setupRoutes(); err != nil {
		return nil, fmt.Errorf("setting up routes: %w", err)
	}
	return s, nil
}

// Handler exposes the router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRoutes configures middleware and routes.
//
//	GET    /healthz                                       → liveness
//	GET    /api/experiences                               → list (date, year+month, country filters)
//	POST   /api/experiences                               → create
//	GET    /api/experiences/{id}                          → get
//	PUT    /api/experiences/{id}                          → replace
//	DELETE /api/experiences/{id}                          → delete
//	GET    /api/countries/{countryID}/experiences/{date}  → lookup
//	GET    /api/statistics                                → statistics snapshot
//	GET    /api/preferences, PUT /api/preferences         → preferences
//	GET    /api/export, POST /api/import                  → backup and restore
//	DELETE /api/data                                      → clear everything
//
// Middleware order: RequestID first so the logger can tag lines with it,
// Recoverer last so a panic is still logged as a 500.
func (s *Server) setupRoutes() error {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)

	s.router.Get("/healthz", handler.HandleHealth)

	store := journal.New(s.kv, s.logger)
	svc := service.NewExperienceService(store, s.logger)
	experiences := handler.NewExperienceHandler(svc, s.logger)
	journalHandler := handler.NewJournalHandler(svc, s.logger)

	var requireAuth func(http.Handler) http.Handler
	if s.config.JWTSecret != "" {
		tokens, err := auth.NewTokenService(s.config.JWTSecret)
		if err != nil {
			return fmt.Errorf("creating token service: %w", err)
		}
		requireAuth = auth.RequireAuth(tokens)
	} else {
		s.logger.Warn().Msg("EXPO_JWT_SECRET not set, API is unauthenticated")
	}

	s.router.Route("/api", func(r chi.Router) {
		if requireAuth != nil {
			r.Use(requireAuth)
		}

		r.Get("/experiences", experiences.HandleList)
		r.Post("/experiences", experiences.HandleCreate)
		r.Get("/experiences/{id}", experiences.HandleGet)
		r.Put("/experiences/{id}", experiences.HandleUpdate)
		r.Delete("/experiences/{id}", experiences.HandleDelete)
		r.Get("/countries/{countryID}/experiences/{date}", experiences.HandleFindForCountryOnDate)

		r.Get("/statistics", journalHandler.HandleStatistics)
		r.Get("/preferences", journalHandler.HandleGetPreferences)
		r.Put("/preferences", journalHandler.HandlePutPreferences)
		r.Get("/export", journalHandler.HandleExport)
		r.Post("/import", journalHandler.HandleImport)
		r.Delete("/data", journalHandler.HandleClear)
	})

	return nil
}

// Start serves until SIGINT / SIGTERM, then shuts down gracefully:
//  1. stop accepting connections
//  2. wait up to shutdownTimeout for in-flight requests
//  3. close the storage backend
func (s *Server) Start() error {
	defer func() {
		if err := s.kv.Close(); err != nil {
			s.logger.Error().Err(err).Msg("closing storage backend")
		}
	}()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.HTTPPort),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info().
			Int("port", s.config.HTTPPort).
			Str("url", fmt.Sprintf("http://localhost:%d", s.config.HTTPPort)).
			Str("backend", s.config.StorageBackend).
			Bool("auth", s.config.JWTSecret != "").
			Msg("server starting")
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info().Str("signal", sig.String()).Msg("shutdown signal received")

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info().Msg("server stopped gracefully")
	}

	return nil
}
