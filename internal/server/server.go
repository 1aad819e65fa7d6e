// Package server hosts the ReadyRun HTTP API: core operational endpoints,
// module route mounting, and the middleware chain.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/readyrun/readyrun/internal/version"
	"github.com/readyrun/readyrun/pkg/plugin"
)

// ModuleSource provides the server with module metadata and routes.
// Defined here (consumer-side) rather than importing the concrete registry.
type ModuleSource interface {
	AllRoutes() map[string][]plugin.Route
	All() []plugin.Plugin
}

// ReadinessChecker verifies that the server is ready to serve traffic.
// Returns nil if ready, an error describing why not otherwise.
type ReadinessChecker func(ctx context.Context) error

// RouteRegistrar allows external packages to register routes and middleware
// on the server without creating import cycles (consumer-side interface).
type RouteRegistrar interface {
	RegisterRoutes(mux *http.ServeMux)
	Middleware() func(http.Handler) http.Handler
}

// SimpleRouteRegistrar can register routes without middleware.
type SimpleRouteRegistrar interface {
	RegisterRoutes(mux *http.ServeMux)
}

// Server hosts the API.
type Server struct {
	httpServer *http.Server
	modules    ModuleSource
	logger     *zap.Logger
	mux        *http.ServeMux
	ready      ReadinessChecker
}

// New builds the server: core endpoints, auth routes (nil disables
// authentication entirely), any extra registrars (the WebSocket handler),
// module routes, and the middleware chain around the lot.
func New(addr string, modules ModuleSource, logger *zap.Logger, ready ReadinessChecker, auth RouteRegistrar, extraRoutes ...SimpleRouteRegistrar) *Server {
	s := &Server{
		modules: modules,
		logger:  logger,
		mux:     http.NewServeMux(),
		ready:   ready,
	}

	s.coreRoutes()
	if auth != nil {
		auth.RegisterRoutes(s.mux)
	}
	for _, r := range extraRoutes {
		r.RegisterRoutes(s.mux)
	}
	s.mountModules()

	// Outermost first. Probes and scrapes stay out of logs and rate limits.
	quiet := []string{"/healthz", "/readyz", "/metrics"}
	chain := []Middleware{
		RecoveryMiddleware(logger),
		RequestIDMiddleware,
		LoggingMiddleware(logger, quiet),
		SecurityHeadersMiddleware,
		VersionHeaderMiddleware,
		RateLimitMiddleware(100, 200, quiet),
	}
	if auth != nil {
		chain = append(chain, auth.Middleware())
	}

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      Chain(s.mux, chain...),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

func (s *Server) coreRoutes() {
	// Operational endpoints stay unversioned.
	s.mux.HandleFunc("GET /healthz", s.handleHealthz)
	s.mux.HandleFunc("GET /readyz", s.handleReadyz)
	s.mux.Handle("GET /metrics", promhttp.Handler())

	s.mux.HandleFunc("GET /api/v1/health", s.handleHealth)
	s.mux.HandleFunc("GET /api/v1/modules", s.handleModules)
}

// mountModules places each module route at /api/v1/{module}{path}.
func (s *Server) mountModules() {
	for name, routes := range s.modules.AllRoutes() {
		for _, rt := range routes {
			pattern := fmt.Sprintf("%s /api/v1/%s%s", rt.Method, name, rt.Path)
			s.mux.HandleFunc(pattern, rt.Handler)
			s.logger.Debug("mounted route",
				zap.String("module", name),
				zap.String("pattern", pattern))
		}
	}
}

// Start serves until Shutdown or a listener error.
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", zap.String("addr", s.httpServer.Addr))
	err := s.httpServer.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("HTTP server: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests within ctx's deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Liveness: the process is up.
func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

// Readiness: the server can actually do work (database reachable).
func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		if err := s.ready(r.Context()); err != nil {
			respondJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"error":  err.Error(),
			})
			return
		}
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// HealthResponse is the body of GET /api/v1/health.
type HealthResponse struct {
	Status  string            `json:"status"`
	Service string            `json:"service"`
	Version map[string]string `json:"version"`
}

// ModuleResponse describes one registered module.
type ModuleResponse struct {
	Name        string `json:"name"`
	Version     string `json:"version"`
	Description string `json:"description"`
	Health      any    `json:"health,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, HealthResponse{
		Status:  "ok",
		Service: "readyrun",
		Version: version.Map(),
	})
}

// handleModules lists registered modules, with health reports from those
// implementing plugin.HealthChecker.
func (s *Server) handleModules(w http.ResponseWriter, r *http.Request) {
	all := s.modules.All()
	out := make([]ModuleResponse, 0, len(all))
	for _, p := range all {
		info := p.Info()
		m := ModuleResponse{
			Name:        info.Name,
			Version:     info.Version,
			Description: info.Description,
		}
		if hc, ok := p.(plugin.HealthChecker); ok {
			m.Health = hc.Health(r.Context())
		}
		out = append(out, m)
	}
	respondJSON(w, http.StatusOK, out)
}
