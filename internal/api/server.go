package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ignite/adaptive-core/internal/config"
)

// Server represents the API server
type Server struct {
	config config.ServerConfig
	router *chi.Mux
	server *http.Server
}

// NewServer creates a new API server
func NewServer(cfg config.ServerConfig, router *chi.Mux) *Server {
	return &Server{config: cfg, router: router}
}

// ListenAndServe starts the HTTP server
func (s *Server) ListenAndServe(addr string) error {
	read := time.Duration(s.config.ReadTimeoutSeconds) * time.Second
	write := time.Duration(s.config.WriteTimeoutSeconds) * time.Second
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadTimeout:       read,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      write,
		IdleTimeout:       120 * time.Second,
	}

	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Handler returns the HTTP handler for testing
func (s *Server) Handler() http.Handler {
	return s.router
}
