package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"beacon-hq/beacon/pkg/config"
	"beacon-hq/beacon/pkg/telemetry/metrics"
	"beacon-hq/beacon/pkg/visit"
	"beacon-hq/beacon/pkg/visit/export"
	"beacon-hq/beacon/pkg/visit/recorder"
	"beacon-hq/beacon/pkg/visit/stats"
)

// Server is the HTTP surface over the visit collector.
type Server struct {
	config     *config.Config
	recorder   *recorder.Recorder
	storage    visit.Storage
	aggregator *stats.Aggregator
	collector  *metrics.Collector
	logger     *slog.Logger

	jsonExporter *export.JSONExporter
	csvExporter  *export.CSVExporter

	httpServer   *http.Server
	shutdownOnce sync.Once
	mu           sync.RWMutex
	isRunning    bool
}

// NewServer creates a server over the given collaborators. collector may
// be nil when metrics are disabled.
func NewServer(cfg *config.Config, rec *recorder.Recorder, storage visit.Storage, collector *metrics.Collector, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	return &Server{
		config:       cfg,
		recorder:     rec,
		storage:      storage,
		aggregator:   stats.New(storage),
		collector:    collector,
		logger:       logger.With("component", "server"),
		jsonExporter: export.NewJSONExporter(cfg.Export.JSONPretty),
		csvExporter:  export.NewCSVExporter(cfg.Export.CSVHeader),
	}
}

// Start starts the HTTP server and blocks until the context is cancelled
// or the listener fails.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return fmt.Errorf("server is already running")
	}
	s.isRunning = true
	s.mu.Unlock()

	s.httpServer = &http.Server{
		Addr:         s.config.Server.ListenAddress,
		Handler:      s.Handler(),
		ReadTimeout:  s.config.Server.ReadTimeout,
		WriteTimeout: s.config.Server.WriteTimeout,
		IdleTimeout:  s.config.Server.IdleTimeout,
	}

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info("starting server", "address", s.config.Server.ListenAddress)

		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("context cancelled, initiating shutdown")
		return s.Shutdown(context.Background())
	case err := <-errChan:
		return err
	}
}

// Shutdown gracefully shuts down the server, waiting up to the configured
// shutdown timeout for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.mu.Lock()
		if !s.isRunning {
			s.mu.Unlock()
			return
		}
		s.mu.Unlock()

		s.logger.Info("initiating graceful shutdown", "timeout", s.config.Server.ShutdownTimeout.String())

		shutdownCtx, cancel := context.WithTimeout(ctx, s.config.Server.ShutdownTimeout)
		defer cancel()

		if s.httpServer != nil {
			if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
				s.logger.Error("error during server shutdown", "error", err)
				shutdownErr = fmt.Errorf("server shutdown error: %w", err)
			}
		}

		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()

		s.logger.Info("server stopped")
	})

	return shutdownErr
}

// IsRunning reports whether the server is running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Handler returns the configured HTTP handler with the full middleware
// chain applied. Exposed separately so tests can drive the routes without
// a listener.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/visits", s.handleCreateVisit)
	mux.HandleFunc("GET /api/visits", s.handleListVisits)
	mux.HandleFunc("DELETE /api/visits", s.handleClearVisits)
	mux.HandleFunc("GET /api/visits/{id}", s.handleGetVisit)
	mux.HandleFunc("DELETE /api/visits/{id}", s.handleDeleteVisit)
	mux.HandleFunc("GET /api/stats", s.handleStats)
	mux.HandleFunc("GET /api/export.json", s.handleExportJSON)
	mux.HandleFunc("GET /api/export.csv", s.handleExportCSV)
	mux.HandleFunc("GET /healthz", s.handleHealth)

	if s.collector != nil && s.config.Telemetry.Metrics.Enabled {
		mux.Handle("GET "+s.config.Telemetry.Metrics.Path, s.collector.Handler())
	}

	var handler http.Handler = mux
	handler = LoggingMiddleware(s.logger)(handler)
	handler = RequestIDMiddleware(handler)
	handler = RecoveryMiddleware(s.logger)(handler)

	return handler
}
