// Package api serves captures and instrument control over HTTP and MCP.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/ul-gh/hdscope/infrastructure/api/middleware"
)

// Server is an HTTP listener around a chi router carrying the common
// middleware: request IDs, access logging, panic recovery and CORS.
// Request timeouts are left to route groups, since acquisitions of deep
// records and MCP streams outlast any global limit.
type Server struct {
	router chi.Router
	http   *http.Server
	logger *slog.Logger
}

// NewServer returns a server for addr. Nothing listens until Serve.
func NewServer(addr string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	router := chi.NewRouter()
	router.Use(
		chimiddleware.RequestID,
		chimiddleware.RealIP,
		middleware.Logging(logger),
		chimiddleware.Recoverer,
		cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Content-Type", middleware.APIKeyHeader, "Mcp-Session-Id"},
			ExposedHeaders: []string{"Location", "Mcp-Session-Id"},
			MaxAge:         300,
		}),
	)
	return &Server{
		router: router,
		logger: logger,
		http: &http.Server{
			Addr:              addr,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
			IdleTimeout:       2 * time.Minute,
		},
	}
}

// Router returns the router to mount routes on.
func (s *Server) Router() chi.Router { return s.router }

// Addr returns the configured listen address.
func (s *Server) Addr() string { return s.http.Addr }

// Serve listens on the configured address and blocks until Shutdown.
func (s *Server) Serve() error {
	ln, err := net.Listen("tcp", s.http.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.http.Addr, err)
	}
	s.logger.Info("http server listening", slog.String("addr", ln.Addr().String()))
	if err := s.http.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve http: %w", err)
	}
	return nil
}

// Shutdown stops accepting connections and waits for open requests until
// ctx ends. It is safe to call before Serve.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("http server shutting down")
	return s.http.Shutdown(ctx)
}
