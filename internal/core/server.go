// Package core provides the API chassis for the climate risk service. It
// creates the chi router and enforces cross-cutting concerns -- security,
// logging, observability, and error handling -- before requests reach the
// domain handlers.
package core

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"climarisk/internal/config"
	"climarisk/internal/observability"
)

// Server encapsulates the HTTP-layer dependencies, allowing for easy
// injection during testing and distinct configuration per environment.
type Server struct {
	Config    *config.Config
	Logger    *slog.Logger
	Validator *Validator
	Metrics   *observability.Metrics

	// V1RouteRegistrars holds the handler registrations mounted under /v1.
	// Populated by the application entry point; this indirection avoids
	// import cycles between core and handler packages.
	V1RouteRegistrars []RouteRegistrar

	// Internal router
	router *chi.Mux

	health healthState
}

// RouteRegistrar mounts a handler group onto the v1 router.
type RouteRegistrar func(chi.Router)

// NewServer initializes dependencies, sets up the router, and prepares the
// server for route mounting. The caller mounts routes (via MountRoutes) after
// construction; the separation lets tests customize route registration.
func NewServer(
	cfg *config.Config,
	logger *slog.Logger,
	metrics *observability.Metrics,
) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger must not be nil")
	}

	s := &Server{
		Config:    cfg,
		Logger:    logger,
		Validator: NewValidator(logger),
		Metrics:   metrics,
		router:    chi.NewRouter(),
	}

	return s, nil
}

// Handler returns the http.Handler interface for the router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Router returns the underlying chi.Mux for route registration. This is used
// internally by route-mounting methods and tests.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Shutdown performs a graceful termination of server resources. The service
// holds no connection pools; this hook exists so the entry point's shutdown
// sequence stays uniform if stateful resources are added later.
func (s *Server) Shutdown(ctx context.Context) error {
	s.Logger.Info("server shutdown initiated")
	s.Logger.Info("server shutdown complete")
	return nil
}
