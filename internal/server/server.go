// Package server assembles the HTTP surface and owns the listener lifecycle.
package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/coastwatch-systems/coastwatch/internal/config"
	"github.com/coastwatch-systems/coastwatch/internal/logging"
)

// Server wraps http.Server with the configured timeouts.
type Server struct {
	httpServer *http.Server
	log        *logging.Logger
}

func New(cfg config.ServerConfig, handler http.Handler, log *logging.Logger) *Server {
	if log == nil {
		log = logging.Default()
	}
	return &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Port),
			Handler:      handler,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			IdleTimeout:  cfg.IdleTimeout,
		},
		log: log,
	}
}

// Start blocks serving requests until Shutdown is called or the listener
// fails.
func (s *Server) Start() error {
	s.log.Info("http server listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server failed: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("http server shutting down")
	return s.httpServer.Shutdown(ctx)
}
