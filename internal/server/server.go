// Package server wires the HTTP surface: the chi router, middleware stack,
// and graceful shutdown.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/askdb/askdb/internal/chat"
	"github.com/askdb/askdb/internal/connector"
	"github.com/askdb/askdb/internal/handler"
	"github.com/askdb/askdb/internal/server/middleware"
	"github.com/askdb/askdb/internal/service"
)

// Config holds the HTTP server configuration.
type Config struct {
	Host              string
	Port              int
	ShutdownTimeout   time.Duration
	CORSOrigins       []string
	RequestsPerMinute int
}

// DefaultConfig returns a Config with sensible production defaults.
func DefaultConfig() Config {
	return Config{
		Host:              "0.0.0.0",
		Port:              8080,
		ShutdownTimeout:   30 * time.Second,
		CORSOrigins:       []string{"*"},
		RequestsPerMinute: 120,
	}
}

// Server is the top-level HTTP server. It owns the chi router, the
// orchestrator, and the auth service.
type Server struct {
	cfg        Config
	router     chi.Router
	orch       *chat.Orchestrator
	registry   *connector.Registry
	authSvc    *service.AuthService
	httpServer *http.Server
	logger     *slog.Logger
}

// New creates a Server with all routes and middleware wired. Call
// ListenAndServe to start accepting connections.
func New(cfg Config, orch *chat.Orchestrator, registry *connector.Registry, authSvc *service.AuthService, logger *slog.Logger) *Server {
	s := &Server{
		cfg:      cfg,
		orch:     orch,
		registry: registry,
		authSvc:  authSvc,
		logger:   logger,
	}
	s.setupRouter()
	return s
}

func (s *Server) setupRouter() {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(s.logger))
	r.Use(middleware.Metrics)
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(chimw.Compress(5))

	r.Get("/healthz", s.handleHealthz)
	r.Get("/readyz", s.handleReadyz)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	chatHandler := handler.NewChatHandler(s.orch, s.logger)
	sqlHandler := handler.NewSQLHandler(s.orch, s.logger)
	schemaHandler := handler.NewSchemaHandler(s.orch, s.logger)
	sessionHandler := handler.NewSessionHandler(s.orch.Sessions(), s.authSvc, s.logger)
	wsHandler := handler.NewWSHandler(s.orch, s.logger)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/admin/session", sessionHandler.HandleLogin)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RateLimit(s.cfg.RequestsPerMinute))

			r.Post("/chat", chatHandler.HandleChat)
			r.Get("/ws/chat", wsHandler.HandleChat)
			r.Post("/query", chatHandler.HandleQuery)
			r.Post("/sql", sqlHandler.HandleExecute)
			r.Post("/sql/simulate", sqlHandler.HandleSimulate)
			r.Post("/schema", schemaHandler.HandleFetch)
		})

		// Admin surface
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAdmin(s.authSvc))

			r.Delete("/schema/cache", schemaHandler.HandleClearCache)
			r.Get("/sessions", sessionHandler.HandleList)
			r.Get("/sessions/{id}", sessionHandler.HandleGet)
			r.Delete("/sessions/{id}", sessionHandler.HandleDelete)
			r.Post("/sessions/cleanup", sessionHandler.HandleCleanup)
		})
	})

	s.router = r
}

// handleHealthz is a liveness probe. Returns 200 if the process is running.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

// handleReadyz is a readiness probe. The server is ready as soon as it can
// route; database handles are opened lazily per request, so only the
// handle count is reported.
func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"status":"ok","active_connections":%d}`, s.registry.ActiveCount())
}

// ListenAndServe starts the HTTP server and blocks until SIGINT or SIGTERM.
// It then drains in-flight requests and closes all database handles.
func (s *Server) ListenAndServe() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", "addr", addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server listen: %w", err)
	case <-ctx.Done():
		s.logger.Info("shutdown signal received, draining connections")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	s.registry.ReleaseAll()
	s.logger.Info("server stopped")
	return nil
}

// Router returns the underlying chi router, useful for testing.
func (s *Server) Router() chi.Router {
	return s.router
}

// ServeHTTP implements http.Handler, delegating to the router.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
