package api

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/mark3labs/mcp-go/server"

	"github.com/ul-gh/hdscope"
	apimiddleware "github.com/ul-gh/hdscope/infrastructure/api/middleware"
	v1 "github.com/ul-gh/hdscope/infrastructure/api/v1"
	mcpinternal "github.com/ul-gh/hdscope/internal/mcp"
	"github.com/ul-gh/hdscope/internal/metrics"
)

// Timeouts of the route groups.
const (
	readTimeout    = 30 * time.Second
	acquireTimeout = 10 * time.Minute
)

// APIServer provides an HTTP API backed by an hdscope Client.
type APIServer struct {
	client  *hdscope.Client
	apiKeys []string
	version string
	logger  *slog.Logger

	mu     sync.Mutex
	server *Server
	router chi.Router
	closed bool
}

// NewAPIServer creates a new APIServer wired to the given Client.
// apiKeys configures write-protection: mutating endpoints (POST, PUT,
// DELETE) under /api/v1 require a valid key, and so does every MCP call
// since MCP tools can acquire. Health, metrics and REST reads stay open.
func NewAPIServer(client *hdscope.Client, apiKeys []string, version string) *APIServer {
	return &APIServer{
		client:  client,
		apiKeys: apiKeys,
		version: version,
		logger:  client.Logger(),
	}
}

// MountRoutes wires health, metrics, v1 and MCP routes onto router.
func (a *APIServer) MountRoutes(router chi.Router) {
	c := a.client

	router.Get("/health", a.health)
	router.Handle("/metrics", metrics.Handler(c.Gatherer()))

	captures := v1.NewCapturesRouter(c)
	instrument := v1.NewInstrumentRouter(c)

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(apimiddleware.WriteProtectAuth(a.apiKeys))

		r.Group(func(r chi.Router) {
			r.Use(chimiddleware.Timeout(readTimeout))
			r.Mount("/instrument", instrument.Routes())
		})
		r.Group(func(r chi.Router) {
			// POST acquires a full record and may take minutes.
			r.Use(chimiddleware.Timeout(acquireTimeout))
			r.Mount("/captures", captures.Routes())
		})
	})

	// MCP uses streaming responses, so it gets no Timeout middleware.
	var (
		acquirer mcpinternal.Acquirer
		status   mcpinternal.StatusReader
	)
	if c.Connected() {
		acquirer, status = c.Acquisition, c.Instrument
	}
	mcpSrv := mcpinternal.NewServer(c.Captures, acquirer, status, a.version, a.logger)
	router.Group(func(r chi.Router) {
		r.Use(apimiddleware.WriteProtectAuth(a.apiKeys))
		r.Mount("/mcp", server.NewStreamableHTTPServer(mcpSrv.MCPServer()))
	})
}

// Handler returns a router with every route mounted, for custom servers
// and tests.
func (a *APIServer) Handler() http.Handler {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.router == nil {
		a.router = NewServer("", a.logger).Router()
		a.MountRoutes(a.router)
	}
	return a.router
}

// ListenAndServe serves every route on addr until Shutdown.
func (a *APIServer) ListenAndServe(addr string) error {
	srv := NewServer(addr, a.logger)
	a.MountRoutes(srv.Router())
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.server = srv
	a.mu.Unlock()
	return srv.Serve()
}

// Shutdown stops a running ListenAndServe, waiting for open requests
// until ctx ends.
func (a *APIServer) Shutdown(ctx context.Context) error {
	a.mu.Lock()
	srv := a.server
	a.closed = true
	a.mu.Unlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

func (a *APIServer) health(w http.ResponseWriter, _ *http.Request) {
	apimiddleware.WriteJSON(w, http.StatusOK, map[string]any{
		"status":     "healthy",
		"version":    a.version,
		"instrument": a.client.Connected(),
	})
}
