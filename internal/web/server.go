// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

// Package web exposes the anonymization manager as an asynchronous REST API.
package web

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"prikit/internal/anonymizer"
	"prikit/internal/observability"
	"prikit/internal/paths"
	"prikit/internal/tasks"
)

const (
	// DefaultMaxUploadBytes caps a multipart request body
	DefaultMaxUploadBytes = 16 << 20

	// DefaultPort is the port the API listens on when none is configured
	DefaultPort = 5000

	shutdownTimeout = 10 * time.Second
)

// Config holds the settings of the HTTP surface
type Config struct {
	Host      string
	Port      int
	UploadDir string

	// MaxUploadBytes limits multipart bodies; larger requests get 413
	MaxUploadBytes int64

	// RateLimit is the sustained number of submissions per second; 0 disables limiting
	RateLimit float64
	RateBurst int

	// Workers > 1 runs batch tasks on the parallel worker pool
	Workers     int
	FileTimeout time.Duration

	// Retention and ReapSchedule drive removal of finished tasks
	Retention    time.Duration
	ReapSchedule string
}

// DefaultConfig returns the settings used when nothing is configured
func DefaultConfig() Config {
	return Config{
		Host:           "0.0.0.0",
		Port:           DefaultPort,
		UploadDir:      paths.DefaultUploadDir,
		MaxUploadBytes: DefaultMaxUploadBytes,
		RateLimit:      10,
		RateBurst:      20,
		Workers:        1,
		Retention:      tasks.DefaultRetention,
		ReapSchedule:   tasks.DefaultReapSchedule,
	}
}

// Server represents the API server instance
type Server struct {
	cfg      Config
	manager  *anonymizer.Manager
	registry *tasks.Registry
	limiter  *rate.Limiter
	mux      *http.ServeMux
	server   *http.Server

	// observer handles observability and metrics
	observer *observability.StandardObserver
}

// NewServer creates the upload directory and wires the routes
func NewServer(cfg Config, manager *anonymizer.Manager, registry *tasks.Registry, observer *observability.StandardObserver) (*Server, error) {
	if manager == nil || registry == nil {
		return nil, fmt.Errorf("manager and task registry are required")
	}
	if cfg.UploadDir == "" {
		cfg.UploadDir = paths.DefaultUploadDir
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if err := os.MkdirAll(filepath.Clean(cfg.UploadDir), 0700); err != nil {
		return nil, fmt.Errorf("failed to create upload directory %s: %w", cfg.UploadDir, err)
	}

	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}
	burst := cfg.RateBurst
	if burst <= 0 {
		burst = 1
	}

	s := &Server{
		cfg:      cfg,
		manager:  manager,
		registry: registry,
		limiter:  rate.NewLimiter(limit, burst),
		mux:      http.NewServeMux(),
		observer: observer,
	}
	s.setupRoutes()
	return s, nil
}

// GetComponentName returns the component name for observability
func (s *Server) GetComponentName() string {
	return "api_server"
}

// Handler returns the routed handler, for embedding and tests
func (s *Server) Handler() http.Handler {
	return s.mux
}

// setupRoutes configures all HTTP route handlers
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("GET /api/health", s.handleHealth)
	s.mux.HandleFunc("GET /api/supported_types", s.handleSupportedTypes)

	s.mux.HandleFunc("POST /api/anonymize/single", s.limited(s.handleAnonymizeSingle))
	s.mux.HandleFunc("POST /api/anonymize/batch", s.limited(s.handleAnonymizeBatch))
	s.mux.HandleFunc("POST /api/upload/single", s.limited(s.handleUploadSingle))
	s.mux.HandleFunc("POST /api/upload/batch", s.limited(s.handleUploadBatch))

	s.mux.HandleFunc("GET /api/task/{id}", s.handleTaskStatus)
	s.mux.HandleFunc("GET /api/download/{id}/{index}", s.handleDownload)
}

// limited rejects requests once the submission rate is exhausted
func (s *Server) limited(next http.HandlerFunc) http.HandlerFunc {
	return func(responseWriter http.ResponseWriter, request *http.Request) {
		if !s.limiter.Allow() {
			s.logEvent("rate_limited", false, map[string]interface{}{"path": request.URL.Path})
			s.sendErrorWithStatus(responseWriter, "too many requests, retry later", http.StatusTooManyRequests)
			return
		}
		next(responseWriter, request)
	}
}

// createSecureServer creates an HTTP server with security timeouts
func (s *Server) createSecureServer(addr string) *http.Server {
	return &http.Server{
		Addr:    addr,
		Handler: s.mux,
		// Timeout for reading request headers (prevents slow header attacks)
		ReadHeaderTimeout: 15 * time.Second,
		// Timeout for reading entire request
		ReadTimeout: 30 * time.Second,
		// Timeout for writing response
		WriteTimeout: 30 * time.Second,
		// Timeout for idle connections
		IdleTimeout: 60 * time.Second,
	}
}

// Addr returns the configured listen address
func (s *Server) Addr() string {
	port := s.cfg.Port
	if port == 0 {
		port = DefaultPort
	}
	return net.JoinHostPort(s.cfg.Host, strconv.Itoa(port))
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
// The task reaper runs for the lifetime of the server.
func (s *Server) ListenAndServe(ctx context.Context) error {
	stopReaper, err := s.registry.StartReaper(s.cfg.ReapSchedule, s.cfg.Retention)
	if err != nil {
		return err
	}
	defer stopReaper()

	s.server = s.createSecureServer(s.Addr())

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.server.ListenAndServe()
	}()

	s.logEvent("server_started", true, map[string]interface{}{
		"addr":       s.Addr(),
		"upload_dir": s.cfg.UploadDir,
		"workers":    s.cfg.Workers,
	})

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server on %s failed: %w\n"+
			"Troubleshooting: Ensure the port is free and you have permission to bind to it", s.Addr(), err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	s.logEvent("server_stopped", true, nil)
	return nil
}

// logEvent logs an event with the observer
func (s *Server) logEvent(operation string, success bool, metadata map[string]interface{}) {
	if success {
		s.observer.Info(s.GetComponentName(), operation, metadata)
		return
	}
	s.observer.Warn(s.GetComponentName(), operation, metadata)
}
