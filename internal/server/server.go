// Package server wires the application together: it owns the router, the
// database connection, and the dependency graph from repositories up to
// handlers, and it runs the HTTP server with graceful shutdown.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/codecraft/internal/auth"
	"github.com/sakif/codecraft/internal/billing"
	"github.com/sakif/codecraft/internal/config"
	"github.com/sakif/codecraft/internal/executor/piston"
	"github.com/sakif/codecraft/internal/handler"
	"github.com/sakif/codecraft/internal/identity"
	"github.com/sakif/codecraft/internal/middleware"
	sqliteRepo "github.com/sakif/codecraft/internal/repository/sqlite"
	"github.com/sakif/codecraft/internal/service"
)

// Server holds everything main needs to run the application. It owns the
// database connection and closes it on shutdown.
type Server struct {
	router *chi.Mux
	cfg    *config.Config
	logger *slog.Logger
	db     *sqliteRepo.DB
}

// New assembles the full dependency chain: database → services →
// handlers → routes. Construction fails fast on anything that would make
// the server unable to do its job, a malformed webhook secret included.
func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		cfg:    cfg,
		logger: logger,
		db:     db,
	}

	if err := s.setupRoutes(); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

func (s *Server) setupRoutes() error {
	billingVerifier, err := billing.NewVerifier(s.cfg.BillingWebhookSecret)
	if err != nil {
		return fmt.Errorf("creating billing verifier: %w", err)
	}
	identityVerifier, err := identity.NewVerifier(s.cfg.IdentityWebhookSecret)
	if err != nil {
		return fmt.Errorf("creating identity verifier: %w", err)
	}
	tokens, err := auth.NewTokenService(s.cfg.AuthSecret)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}

	exec := piston.New(s.cfg.PistonURL, s.cfg.PistonTimeout, s.logger)

	userService := service.NewUserService(s.db, s.logger)
	executionService := service.NewExecutionService(s.db, s.db, s.db, exec, s.logger)
	snippetService := service.NewSnippetService(s.db, s.db, s.db, s.db, s.logger)

	webhookHandler := handler.NewWebhookHandler(userService, billingVerifier, identityVerifier, s.logger)
	executeHandler := handler.NewExecuteHandler(executionService, s.logger)
	snippetHandler := handler.NewSnippetHandler(snippetService, s.logger)
	userHandler := handler.NewUserHandler(userService, executionService, snippetService, s.logger)

	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))

	s.router.Get("/healthz", s.handleHealth)

	// Webhooks authenticate by signature, not by session token, so they
	// live outside /api and never pass through the auth middleware.
	s.router.Route("/webhooks", func(r chi.Router) {
		r.Post("/billing", webhookHandler.HandleBilling)
		r.Post("/identity", webhookHandler.HandleIdentity)
	})

	s.router.Route("/api", func(r chi.Router) {
		// Public reads. OptionalAuth lets signed-in callers see their own
		// star state on otherwise anonymous endpoints.
		r.Group(func(r chi.Router) {
			r.Use(auth.OptionalAuth(tokens))
			r.Get("/languages", executeHandler.HandleLanguages)
			r.Get("/snippets", snippetHandler.HandleList)
			r.Get("/snippets/{id}", snippetHandler.HandleGet)
			r.Get("/snippets/{id}/stars", snippetHandler.HandleStars)
			r.Get("/snippets/{id}/comments", snippetHandler.HandleListComments)
		})

		// Everything that writes, or reads private data, needs identity.
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth(tokens))
			r.Post("/executions/run", executeHandler.HandleRun)
			r.Post("/executions", executeHandler.HandleSave)
			r.Get("/executions", executeHandler.HandleList)

			r.Get("/users/me", userHandler.HandleMe)
			r.Get("/users/me/stats", userHandler.HandleStats)
			r.Get("/users/me/starred", userHandler.HandleStarred)

			r.Post("/snippets", snippetHandler.HandleCreate)
			r.Delete("/snippets/{id}", snippetHandler.HandleDelete)
			r.Post("/snippets/{id}/star", snippetHandler.HandleToggleStar)
			r.Post("/snippets/{id}/comments", snippetHandler.HandleAddComment)
			r.Delete("/comments/{id}", snippetHandler.HandleDeleteComment)
		})
	})

	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.db.Ping(r.Context()); err != nil {
		s.logger.Error("health check failed", slog.String("error", err.Error()))
		http.Error(w, "unhealthy", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

// Start runs the server until SIGINT/SIGTERM, then drains in-flight
// requests and closes the database. Closing the DB last matters: it
// flushes the WAL and releases the file lock.
func (s *Server) Start() error {
	defer s.db.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.cfg.Port),
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.cfg.Port),
			slog.String("database", s.cfg.DBPath),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
