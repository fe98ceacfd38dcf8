// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-passkey.
//
// go-passkey is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

package rest

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jeremyhahn/go-passkey/pkg/health"
	"github.com/jeremyhahn/go-passkey/pkg/metrics"
	"github.com/jeremyhahn/go-passkey/pkg/ratelimit"
	"github.com/jeremyhahn/go-passkey/pkg/registration"
)

// Server represents the registration REST API server.
type Server struct {
	server   *http.Server
	handlers *HandlerContext
	router   *chi.Mux
	addr     string
	useTLS   bool
	logger   *slog.Logger
}

// Config holds the REST server configuration.
type Config struct {
	// Host is the interface to bind (default: all interfaces)
	Host string

	// Port is the HTTP port to listen on (default: 8080)
	Port int

	// Orchestrator drives the registration ceremony
	Orchestrator *registration.Orchestrator

	// Logger is the structured logger (defaults to slog.Default)
	Logger *slog.Logger

	// Version is the API version string
	Version string

	// TLSConfig is the TLS configuration for HTTPS (optional)
	TLSConfig *tls.Config

	// TokenTTL is the user_uid cookie lifetime (default: 30 days)
	TokenTTL time.Duration

	// ChallengeBackend and StorageBackend are reported by /healthz
	ChallengeBackend string
	StorageBackend   string

	// HealthChecker runs backend readiness checks for /healthz (optional)
	HealthChecker *health.Checker

	// RateLimit throttles ceremony endpoints per client IP (optional)
	RateLimit *ratelimit.Limiter

	// MetricsEnabled exposes Prometheus metrics at MetricsPath
	MetricsEnabled bool
	MetricsPath    string

	// ReadTimeout is the maximum duration for reading the entire request
	ReadTimeout time.Duration

	// WriteTimeout is the maximum duration before timing out writes
	WriteTimeout time.Duration

	// IdleTimeout is the maximum amount of time to wait for the next request
	IdleTimeout time.Duration
}

// NewServer creates a new REST API server.
func NewServer(cfg *Config) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if cfg.Orchestrator == nil {
		return nil, fmt.Errorf("orchestrator is required")
	}

	if cfg.Port == 0 {
		cfg.Port = 8080
	}
	if cfg.Version == "" {
		cfg.Version = "1.0.0"
	}
	if cfg.TokenTTL == 0 {
		cfg.TokenTTL = 30 * 24 * time.Hour
	}
	if cfg.MetricsPath == "" {
		cfg.MetricsPath = "/metrics"
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 10 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
	if cfg.IdleTimeout == 0 {
		cfg.IdleTimeout = 60 * time.Second
	}

	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	handlers := NewHandlerContext(cfg.Orchestrator, log, cfg.TokenTTL, cfg.Version)
	handlers.SetBackends(cfg.ChallengeBackend, cfg.StorageBackend)
	handlers.SetHealthChecker(cfg.HealthChecker)

	server := &Server{
		handlers: handlers,
		addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		useTLS:   cfg.TLSConfig != nil,
		logger:   log,
	}

	server.router = server.setupRouter(cfg)

	server.server = &http.Server{
		Addr:         server.addr,
		Handler:      server.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
		TLSConfig:    cfg.TLSConfig,
	}

	return server, nil
}

// setupRouter configures the chi router with all routes and middleware.
func (s *Server) setupRouter(cfg *Config) *chi.Mux {
	r := chi.NewRouter()

	r.Use(s.RecoveryMiddleware())
	r.Use(CorrelationMiddleware)
	r.Use(s.LoggingMiddleware())
	r.Use(metrics.HTTPMiddleware)

	ceremony := func(handler http.HandlerFunc) http.HandlerFunc {
		if cfg.RateLimit == nil {
			return handler
		}
		limited := ratelimit.Middleware(cfg.RateLimit)(handler)
		return limited.ServeHTTP
	}

	r.Post("/create-user", ceremony(s.handlers.CreateUserHandler))
	r.Post("/add-credential", ceremony(s.handlers.AddCredentialHandler))
	r.Post("/cleanup-failed-registration", ceremony(s.handlers.CleanupHandler))
	r.Get("/login", s.handlers.LoginHandler)
	r.Get("/healthz", s.handlers.HealthzHandler)

	if cfg.MetricsEnabled {
		r.Handle(cfg.MetricsPath, promhttp.Handler())
	}

	return r
}

// Handler returns the HTTP handler, exposed for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Addr returns the address the server listens on.
func (s *Server) Addr() string {
	return s.addr
}

// Start starts the REST API server.
func (s *Server) Start() error {
	if s.useTLS {
		s.logger.Info("Starting HTTPS server", "addr", s.addr)

		if err := s.server.ListenAndServeTLS("", ""); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("failed to start HTTPS server: %w", err)
		}
	} else {
		s.logger.Info("Starting HTTP server", "addr", s.addr)

		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("failed to start HTTP server: %w", err)
		}
	}

	return nil
}

// Stop gracefully stops the REST API server.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Shutting down server")

	if err := s.server.Shutdown(ctx); err != nil {
		s.logger.Error("Failed to shutdown server", "error", err)
		return fmt.Errorf("failed to shutdown server: %w", err)
	}

	s.logger.Info("Server stopped")
	return nil
}
