package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"

	"scriptdex/internal/application/common/slogger"
	"scriptdex/internal/config"
	"scriptdex/internal/port/inbound"
)

// Server represents the HTTP API server
type Server struct {
	config        config.APIConfig
	httpServer    *http.Server
	routeRegistry *RouteRegistry
	cache         *ResponseCache
	listener      net.Listener
	isRunning     bool
	mu            sync.RWMutex
}

// ServerBuilder provides a fluent interface for building Server instances
type ServerBuilder struct {
	config       config.APIConfig
	services     inbound.Services
	errorHandler ErrorHandler
	middleware   []Middleware
}

// NewServerBuilder creates a new ServerBuilder
func NewServerBuilder(cfg config.APIConfig) *ServerBuilder {
	return &ServerBuilder{config: cfg}
}

// WithServices sets the query and planner services
func (b *ServerBuilder) WithServices(services inbound.Services) *ServerBuilder {
	b.services = services
	return b
}

// WithErrorHandler sets the error handler
func (b *ServerBuilder) WithErrorHandler(handler ErrorHandler) *ServerBuilder {
	b.errorHandler = handler
	return b
}

// WithMiddleware adds middleware to the chain
func (b *ServerBuilder) WithMiddleware(middleware Middleware) *ServerBuilder {
	b.middleware = append(b.middleware, middleware)
	return b
}

// WithDefaultMiddleware adds the standard middleware chain
func (b *ServerBuilder) WithDefaultMiddleware() *ServerBuilder {
	return b.
		WithMiddleware(NewLoggingMiddleware()).
		WithMiddleware(NewRecoveryMiddleware()).
		WithMiddleware(NewCORSMiddleware())
}

// Build creates the Server instance
func (b *ServerBuilder) Build() (*Server, error) {
	if b.services == nil {
		return nil, errors.New("server builder validation failed: services are required")
	}
	if b.errorHandler == nil {
		b.errorHandler = NewDefaultErrorHandler()
	}
	if err := validateServerConfig(b.config); err != nil {
		return nil, err
	}

	cache, err := NewResponseCache(b.config)
	if err != nil {
		return nil, fmt.Errorf("failed to create response cache: %w", err)
	}

	registry := NewRouteRegistry()
	registry.RegisterAPIRoutes(Handlers{
		Health:  NewHealthHandler(b.services, b.errorHandler),
		Catalog: NewCatalogHandler(b.services, b.errorHandler, cache),
		Planner: NewPlannerHandler(b.services, b.services, b.errorHandler),
		Admin:   NewAdminHandler(b.services, b.errorHandler),
	})

	handler := NewMiddlewareChain(b.middleware...)(registry.BuildServeMux())

	return &Server{
		config: b.config,
		httpServer: &http.Server{
			Addr:         b.config.Address(),
			Handler:      handler,
			ReadTimeout:  b.config.ReadTimeout,
			WriteTimeout: b.config.WriteTimeout,
		},
		routeRegistry: registry,
		cache:         cache,
	}, nil
}

// NewServer creates a new API server with the default middleware chain
func NewServer(cfg config.APIConfig, services inbound.Services) (*Server, error) {
	return NewServerBuilder(cfg).
		WithServices(services).
		WithErrorHandler(NewDefaultErrorHandler()).
		WithDefaultMiddleware().
		Build()
}

// Start listens and serves in the background.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return errors.New("server is already running")
	}

	listener, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	s.listener = listener
	s.httpServer.Addr = listener.Addr().String()
	s.isRunning = true

	go func() {
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slogger.Error(ctx, "HTTP server stopped", slogger.Field("error", err.Error()))
			s.mu.Lock()
			s.isRunning = false
			s.mu.Unlock()
		}
	}()

	slogger.Info(ctx, "HTTP server listening", slogger.Fields{
		"address":    s.httpServer.Addr,
		"hot_reload": s.config.HotReload,
	})
	return nil
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return nil
	}
	s.isRunning = false
	defer s.cache.Close()
	return s.httpServer.Shutdown(ctx)
}

// InvalidateCache drops every cached response body.
func (s *Server) InvalidateCache() {
	s.cache.Clear()
}

// Handler returns the routed handler with its middleware.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Address returns the server's listening address
func (s *Server) Address() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.httpServer.Addr
}

// IsRunning returns whether the server is currently running
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// HasRoute checks if a specific route is registered
func (s *Server) HasRoute(pattern string) bool {
	return s.routeRegistry.HasRoute(pattern)
}

// RouteCount returns the number of registered routes
func (s *Server) RouteCount() int {
	return s.routeRegistry.RouteCount()
}

func validateServerConfig(cfg config.APIConfig) error {
	if cfg.Port != "" && cfg.Port != "0" {
		if port, err := strconv.Atoi(cfg.Port); err != nil || port < 0 || port > 65535 {
			return fmt.Errorf("invalid port %q", cfg.Port)
		}
	}
	if cfg.ReadTimeout < 0 || cfg.WriteTimeout < 0 {
		return errors.New("invalid timeout")
	}
	if cfg.CacheMaxAge < 0 {
		return errors.New("invalid cache max age")
	}
	return nil
}
