// Package core is the HTTP chassis shared by every handler: the chi router,
// the middleware chain, JSON/error helpers, request validation and the
// health endpoint.
package core

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"labmaint/internal/config"
)

// RouteRegistrar mounts a handler's routes. Handlers live in their own
// packages and register through this hook to keep core free of domain
// imports.
type RouteRegistrar func(r chi.Router)

// Server holds the router and the cross-cutting dependencies.
type Server struct {
	Config    config.ServerConfig
	Logger    *slog.Logger
	Validator *Validator

	// Optional. A nil Metrics disables request metrics; a nil
	// MetricsHandler leaves /metrics unmounted.
	Metrics        MetricsCollector
	MetricsHandler http.Handler

	HealthProbes    []HealthProbe
	RouteRegistrars []RouteRegistrar

	router *chi.Mux
}

// NewServer creates a Server. Populate the optional fields, then call
// MountRoutes before serving.
func NewServer(cfg config.ServerConfig, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		return nil, errors.New("logger must not be nil")
	}
	return &Server{
		Config:    cfg,
		Logger:    logger,
		Validator: NewValidator(logger),
		router:    chi.NewRouter(),
	}, nil
}

// Handler returns the root http.Handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Router exposes the chi mux to tests.
func (s *Server) Router() *chi.Mux {
	return s.router
}
