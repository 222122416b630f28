package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/justinas/alice"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"resttimer/internal/handler"
	"resttimer/internal/metrics"
	"resttimer/internal/middleware"
)

// Config holds server configuration.
type Config struct {
	Port            int
	ShutdownTimeout time.Duration
}

// Server represents the HTTP server.
type Server struct {
	cfg        Config
	httpServer *http.Server
	mux        *http.ServeMux
	timers     *handler.Handler
	logger     *slog.Logger
	metrics    *metrics.Metrics
	gatherer   prometheus.Gatherer
}

// Option configures a Server.
type Option func(*Server)

// WithTimers enables the timer endpoints.
func WithTimers(h *handler.Handler) Option {
	return func(s *Server) { s.timers = h }
}

// WithLogger sets the logger used for access logs and panics.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// WithMetrics instruments requests with m and serves g on /metrics.
func WithMetrics(m *metrics.Metrics, g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.metrics = m
		s.gatherer = g
	}
}

// New creates a new Server with the given configuration.
func New(cfg Config, opts ...Option) *Server {
	s := &Server{
		cfg: cfg,
		mux: http.NewServeMux(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.chain().Then(s.mux),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
		ErrorLog:     slog.NewLogLogger(s.logger.Handler(), slog.LevelWarn),
	}

	s.registerRoutes()
	return s
}

func (s *Server) chain() alice.Chain {
	standard := alice.New(middleware.Recover(s.logger))
	if s.metrics != nil {
		standard = standard.Append(middleware.Instrument(s.metrics))
	}
	return standard.Append(middleware.Logging(s.logger), middleware.Timing)
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)

	if s.gatherer != nil {
		s.mux.Handle("GET /metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	// Register timer routes if handler is available
	if s.timers != nil {
		s.mux.HandleFunc("GET /presets", s.timers.Presets)
		s.mux.HandleFunc("GET /sounds/{cue}", s.timers.Sound)
		s.mux.HandleFunc("POST /timers", s.timers.Create)
		s.mux.HandleFunc("GET /timers/{id}", s.timers.Get)
		s.mux.HandleFunc("DELETE /timers/{id}", s.timers.Delete)
		s.mux.HandleFunc("POST /timers/{id}/toggle", s.timers.Toggle)
		s.mux.HandleFunc("POST /timers/{id}/reset", s.timers.Reset)
		s.mux.HandleFunc("POST /timers/{id}/adjust", s.timers.Adjust)
		s.mux.HandleFunc("POST /timers/{id}/preset", s.timers.Preset)
		s.mux.HandleFunc("POST /timers/{id}/mute", s.timers.Mute)
		s.mux.HandleFunc("GET /timers/{id}/stream", s.timers.Stream)
	}
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// Start starts the HTTP server. This method blocks until the server is stopped.
func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server. Hijacked websocket connections
// are not tracked by the HTTP server; they end when their sessions close.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Handler returns the routed handler wrapped in the middleware chain.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// HandleFunc registers a handler function for the given pattern.
// This is useful for testing to add custom endpoints.
func (s *Server) HandleFunc(pattern string, handler http.HandlerFunc) {
	s.mux.HandleFunc(pattern, handler)
}

// Run starts the server and blocks until a shutdown signal is received.
// It handles SIGINT and SIGTERM for graceful shutdown.
// The provided context can also be used to trigger shutdown.
func (s *Server) Run(ctx context.Context) error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	errChan := make(chan error, 1)

	go func() {
		s.logger.Info("server listening", "addr", s.httpServer.Addr)
		if err := s.Start(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case sig := <-sigChan:
		s.logger.Info("shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	return s.Shutdown(shutdownCtx)
}
