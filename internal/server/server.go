// Package server implements the HTTP server that exposes the tenant
// document QA service: per-tenant chat and upload endpoints, the admin
// review surface, health/readiness probes, Prometheus metrics, and the
// embedded web UI. The server is started by the `tenantrag serve` command.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// New constructs a Server from the service dependencies and config.
func New(chatSvc asker, ingest ingester, reg registry, cfg *Config) (*Server, error) {
	if chatSvc == nil {
		return nil, fmt.Errorf("server: chat service must not be nil")
	}
	if ingest == nil {
		return nil, fmt.Errorf("server: ingester must not be nil")
	}
	if reg == nil {
		return nil, fmt.Errorf("server: registry must not be nil")
	}
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}
	if cfg.Port == 0 {
		cfg.Port = 8080
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 30 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		// WriteTimeout must cover a full retrieval + generation round trip.
		cfg.WriteTimeout = 5 * time.Minute
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	if cfg.ChatTimeout == 0 {
		cfg.ChatTimeout = 2 * time.Minute
	}
	if cfg.UploadDir == "" {
		cfg.UploadDir = "uploads"
	}
	if cfg.StaticDir == "" {
		cfg.StaticDir = "ui/static"
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.RateLimit == 0 {
		cfg.RateLimit = defaultRateLimit
	}
	if cfg.RateBurst == 0 {
		cfg.RateBurst = defaultRateBurst
	}
	if cfg.MetricsRegistry == nil {
		cfg.MetricsRegistry = prometheus.NewRegistry()
	}
	if cfg.APIKey == "" {
		cfg.Logger.Warn("server: API key not set — authentication is disabled")
	}

	s := &Server{
		chat:     chatSvc,
		ingest:   ingest,
		registry: reg,
		cfg:      cfg,
		log:      cfg.Logger,
		pingers:  cfg.Pingers,
		metrics:  newServerMetrics(cfg.MetricsRegistry),
	}

	rl, stopRL := newRateLimiter(cfg.RateLimit, cfg.RateBurst, cfg.Logger)
	s.stopRL = stopRL

	// protected routes require the Bearer token and count against the
	// per-IP rate limit; probes, metrics and the UI stay open.
	protected := func(name string, h http.HandlerFunc) http.Handler {
		return rl.middleware(authMiddleware(cfg.APIKey, s.instrument(name, h)))
	}

	mux := http.NewServeMux()
	mux.Handle("POST /api/tenants/{tenant}/chat", protected("chat", s.handleChat))
	mux.Handle("POST /api/tenants/{tenant}/documents", protected("upload", s.handleUpload))
	mux.Handle("GET /api/tenants/{tenant}/documents", protected("documents", s.handleListDocuments))
	mux.Handle("GET /api/tenants", protected("tenants", s.handleTenants))
	mux.Handle("GET /api/admin/logs", protected("admin_logs", s.handleLogs))
	mux.Handle("POST /api/admin/logs/{id}/validate", protected("admin_validate", s.handleValidate))
	mux.Handle("GET /api/health", s.instrument("health", s.handleHealth))
	mux.Handle("GET /api/ready", s.instrument("ready", s.handleReady))
	mux.Handle("GET /metrics", promhttp.HandlerFor(cfg.MetricsRegistry, promhttp.HandlerOpts{}))
	mux.Handle("/", http.FileServer(http.Dir(cfg.StaticDir)))

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      requestLogger(cfg.Logger, mux),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return s, nil
}

// Handler returns the server's root handler. Used by tests with httptest.
func (s *Server) Handler() http.Handler { return s.httpServer.Handler }

// Start begins listening and serving HTTP requests. It blocks until the
// context is cancelled, then performs a graceful shutdown.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		s.log.Info("server: listening", slog.String("addr", "http://"+s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		s.stopRL()
		return fmt.Errorf("server: listen error: %w", err)
	case <-ctx.Done():
		s.stopRL()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server: graceful shutdown failed: %w", err)
		}
		return nil
	}
}
