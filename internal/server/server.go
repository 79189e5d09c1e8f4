// Package server provides the HTTP API for policyqa.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"policyqa/internal/config"
	"policyqa/internal/domain"
)

// Server is the HTTP boundary over the question-answering pipeline.
type Server struct {
	service   domain.QAService
	config    *config.ServerConfig
	authToken string
	logger    *zap.Logger
	server    *http.Server
}

// NewServer creates a server with the given dependencies. An empty authToken
// disables bearer authentication.
func NewServer(service domain.QAService, cfg *config.ServerConfig, authToken string, logger *zap.Logger) *Server {
	return &Server{
		service:   service,
		config:    cfg,
		authToken: authToken,
		logger:    logger,
	}
}

// Handler builds the router. Exposed separately so tests can drive it with
// httptest.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(5 * time.Minute))

	r.Get("/health", s.handleHealth)
	r.Group(func(r chi.Router) {
		r.Use(s.requireBearer)
		r.Post("/api/v1/run", s.handleRun)
	})
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.Handler(),
	}
	s.logger.Info("starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
