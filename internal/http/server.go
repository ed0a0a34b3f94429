package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/davidbz/switchboard/internal/config"
	"github.com/davidbz/switchboard/internal/http/middleware"
	"github.com/davidbz/switchboard/internal/observability"
)

// Server represents the HTTP server.
type Server struct {
	config      *config.ServerConfig
	handler     *Handler
	middlewares middleware.Middleware
	metrics     *observability.Metrics
	srv         *http.Server
}

// NewServer creates a new HTTP server.
func NewServer(
	cfg *config.ServerConfig,
	handler *Handler,
	middlewares middleware.Middleware,
	metrics *observability.Metrics,
) *Server {
	return &Server{
		config:      cfg,
		handler:     handler,
		middlewares: middlewares,
		metrics:     metrics,
		srv:         nil,
	}
}

// Routes returns the mux with every route registered and the middleware chain applied.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	// Routing.
	mux.HandleFunc("POST /v1/execute", s.handler.HandleExecute)
	mux.HandleFunc("POST /v1/select", s.handler.HandleSelect)

	// Live metrics.
	mux.HandleFunc("GET /v1/metrics/live", s.handler.HandleLiveMetrics)
	mux.HandleFunc("GET /v1/metrics/live/{id}", s.handler.HandleProviderLiveMetrics)

	// History analytics.
	mux.HandleFunc("GET /v1/analytics/providers", s.handler.HandleAllProviderMetrics)
	mux.HandleFunc("GET /v1/analytics/providers/{id}", s.handler.HandleProviderMetrics)
	mux.HandleFunc("GET /v1/analytics/capabilities/{capability}", s.handler.HandleCapabilityMetrics)
	mux.HandleFunc("GET /v1/analytics/best", s.handler.HandleBestProvider)
	mux.HandleFunc("GET /v1/analytics/costs", s.handler.HandleCostAnalysis)
	mux.HandleFunc("GET /v1/analytics/trends/{id}", s.handler.HandleTrends)
	mux.HandleFunc("POST /v1/analytics/compare", s.handler.HandleCompare)
	mux.HandleFunc("GET /v1/analytics/ratings/{id}", s.handler.HandleAverageRating)

	// Executions.
	mux.HandleFunc("GET /v1/executions", s.handler.HandleExecutions)
	mux.HandleFunc("POST /v1/executions/{id}/feedback", s.handler.HandleFeedback)

	mux.HandleFunc("GET /health", s.handler.HandleHealth)
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics.Handler())
	}

	if s.middlewares == nil {
		return mux
	}

	return s.middlewares(mux)
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.srv = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.Routes(),
		ReadTimeout:  time.Duration(s.config.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(s.config.WriteTimeout) * time.Second,
	}

	ctx := context.Background()
	observability.FromContext(ctx).Info("starting HTTP server", observability.Int("port", s.config.Port))

	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	observability.FromContext(ctx).Info("shutting down HTTP server")

	if s.srv == nil {
		return nil
	}

	if err := s.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}

	return nil
}
