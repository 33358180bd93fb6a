// Package api exposes the ShieldAML HTTP surface: transaction analysis,
// KYC checks, alert and STR case management, custom rule administration
// and the compliance dashboard.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/opensource-finance/shieldaml/internal/domain"
	"github.com/opensource-finance/shieldaml/internal/engine"
	"github.com/opensource-finance/shieldaml/internal/rules"
)

// Server represents the HTTP API server.
type Server struct {
	router  *chi.Mux
	handler *Handler
	server  *http.Server
	config  domain.ServerConfig
}

// NewServer creates a new API server.
func NewServer(cfg domain.ServerConfig, repo domain.Repository, cache domain.Cache, bus domain.EventBus, eng *engine.Engine, ruleEngine *rules.Engine, version string) *Server {
	handler := NewHandler(repo, cache, bus, eng, ruleEngine, version)
	router := chi.NewRouter()

	// Global middleware stack
	router.Use(CORSMiddleware)         // CORS for browser clients
	router.Use(RecoverMiddleware)      // Recover from panics
	router.Use(TracingMiddleware)      // OpenTelemetry tracing
	router.Use(LoggingMiddleware)      // Request logging
	router.Use(middleware.RealIP)      // Extract real IP
	router.Use(middleware.Compress(5)) // Gzip compression

	router.Route("/api", func(r chi.Router) {
		// Transaction analysis
		r.Post("/transactions/analyze", handler.AnalyzeTransaction)
		r.Get("/transactions", handler.ListTransactions)
		r.Get("/transactions/{id}", handler.GetTransaction)

		// KYC assessment
		r.Post("/kyc/check", handler.CheckKYC)
		r.Get("/kyc", handler.ListKYCResults)

		// Alert management
		r.Get("/alerts", handler.ListAlerts)
		r.Patch("/alerts/{id}/resolve", handler.ResolveAlert)

		// STR reports
		r.Get("/str", handler.ListSTRReports)
		r.Post("/str/generate", handler.GenerateSTR)
		r.Patch("/str/{id}/submit", handler.SubmitSTR)

		// Custom screening rules
		r.Get("/rules", handler.ListRules)
		r.Post("/rules", handler.CreateRule)
		r.Post("/rules/reload", handler.ReloadRules)

		// Dashboard
		r.Get("/dashboard", handler.Dashboard)

		// Health
		r.Get("/health", handler.Health)
		r.Get("/ready", handler.Ready)
	})

	// Health endpoints also at the root for probes
	router.Get("/health", handler.Health)
	router.Get("/ready", handler.Ready)

	return &Server{
		router:  router,
		handler: handler,
		config:  cfg,
	}
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  time.Duration(s.config.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(s.config.WriteTimeout) * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the Chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Handler returns the handler for testing.
func (s *Server) Handler() *Handler {
	return s.handler
}
