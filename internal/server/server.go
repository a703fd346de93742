// Package server assembles the analysis pipeline behind an HTTP server:
// it builds the extractor and detector registries, wires the
// orchestrator to the live configuration, and owns the server
// lifecycle.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/2005lakshya/prodoc/internal/api"
	"github.com/2005lakshya/prodoc/internal/config"
	"github.com/2005lakshya/prodoc/internal/detect"
	"github.com/2005lakshya/prodoc/internal/extract"
	"github.com/2005lakshya/prodoc/internal/normalize"
	"github.com/2005lakshya/prodoc/internal/orchestrator"
	"github.com/2005lakshya/prodoc/internal/report"
	"github.com/2005lakshya/prodoc/internal/score"
	"github.com/2005lakshya/prodoc/internal/server/endpoints"
	"github.com/2005lakshya/prodoc/internal/svcctx"
)

// Server is the prodoc HTTP server.
type Server struct {
	httpServer   *http.Server
	orchestrator *orchestrator.Orchestrator
	extractors   *extract.Registry
	detectors    *detect.Registry
	configMgr    *config.Manager
	logger       *slog.Logger

	// services holds the core services for request context enrichment
	services *svcctx.Services

	// endpoints registry for HTTP routes
	endpointRegistry *api.Registry

	mu      sync.RWMutex
	running bool
}

// Config holds server configuration.
type Config struct {
	// Host is the address to bind to (default: 127.0.0.1)
	Host string
	// Port is the port to listen on (default: 8080)
	Port string
	// ConfigManager provides configuration with hot-reload support
	ConfigManager *config.Manager
	// Logger is the structured logger to use
	Logger *slog.Logger
}

// New creates a new Server with the given configuration.
func New(cfg Config) (*Server, error) {
	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}
	if cfg.Port == "" {
		cfg.Port = "8080"
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.ConfigManager == nil {
		return nil, errors.New("config manager is required")
	}

	active := cfg.ConfigManager.Get()

	extractors, err := buildExtractors(active, cfg.Logger)
	if err != nil {
		return nil, err
	}
	detectors, err := buildDetectors()
	if err != nil {
		return nil, err
	}

	normalizer := normalize.New(normalize.Config{
		MaxBytes:  active.Limits.MaxUploadBytes,
		Pdftoppm:  active.PDF.Pdftoppm,
		Pdftotext: active.PDF.Pdftotext,
		DPI:       active.PDF.DPI,
		MaxPages:  active.PDF.MaxPages,
	}, cfg.Logger)

	orch := orchestrator.New(orchestrator.Config{
		Normalizer:    normalizer,
		Extractors:    extractors,
		Detectors:     detectors,
		Settings:      settingsFunc(cfg.ConfigManager),
		MaxConcurrent: active.Limits.MaxConcurrent,
		Logger:        cfg.Logger,
	})

	s := &Server{
		orchestrator: orch,
		extractors:   extractors,
		detectors:    detectors,
		configMgr:    cfg.ConfigManager,
		logger:       cfg.Logger,
	}

	s.services = &svcctx.Services{
		Analyzer:   orch,
		Extractors: extractors,
		Detectors:  detectors,
		Config:     cfg.ConfigManager,
		Logger:     cfg.Logger,
	}

	// Create endpoint registry and register all endpoints
	s.endpointRegistry = api.NewRegistry()
	for _, ep := range endpoints.All() {
		s.endpointRegistry.Register(ep)
	}

	mux := http.NewServeMux()
	s.endpointRegistry.RegisterRoutes(mux, s.requireInit)

	s.httpServer = &http.Server{
		Addr:         net.JoinHostPort(cfg.Host, cfg.Port),
		Handler:      s.withServices(mux),
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return s, nil
}

// buildExtractors registers the heuristic extractor and, when an API
// key resolves, the LLM extractor.
func buildExtractors(cfg *config.Config, logger *slog.Logger) (*extract.Registry, error) {
	registry := extract.NewRegistry()

	if err := registry.Register(extract.NewHeuristic()); err != nil {
		return nil, err
	}

	if key := cfg.ResolveAPIKey(); key != "" {
		llm := extract.NewLLMExtractor(extract.LLMConfig{
			APIKey:     key,
			Model:      cfg.LLM.Model,
			BaseURL:    cfg.LLM.BaseURL,
			RateLimit:  cfg.LLM.RateLimit,
			MaxRetries: cfg.LLM.MaxRetries,
			Timeout:    cfg.LLM.Timeout,
		}, logger)
		if err := registry.Register(llm); err != nil {
			return nil, err
		}
		logger.Info("llm extractor registered", "model", cfg.LLM.Model)
	} else {
		logger.Info("llm extractor disabled: no API key configured")
	}

	return registry, nil
}

// buildDetectors registers the full detector set. Which of them run per
// request is decided by configuration at request time.
func buildDetectors() (*detect.Registry, error) {
	registry := detect.NewRegistry()
	for _, d := range []detect.Detector{
		detect.NewContrast(),
		detect.NewBlur(),
		detect.NewFontConsistency(),
		detect.NewTemplateMatch(),
	} {
		if err := registry.Register(d); err != nil {
			return nil, err
		}
	}
	return registry, nil
}

// settingsFunc snapshots the live configuration into per-request
// pipeline settings. Hot reloads are picked up by the next request.
func settingsFunc(mgr *config.Manager) func() orchestrator.Settings {
	return func() orchestrator.Settings {
		cfg := mgr.Get()

		fields := make([]extract.Spec, 0, len(cfg.Fields))
		for _, f := range cfg.Fields {
			fields = append(fields, extract.Spec{
				Name:     f.Name,
				Keywords: f.Keywords,
				Pattern:  f.Pattern,
			})
		}

		return orchestrator.Settings{
			Fields:             fields,
			Detectors:          cfg.Detectors,
			Capability:         cfg.Extractor.Capability,
			Deadline:           cfg.Limits.RequestDeadline,
			HighlightThreshold: cfg.Thresholds.Highlight,
			Scoring: score.Config{
				ApproveBelow:  cfg.Thresholds.Approve,
				RejectAt:      cfg.Thresholds.Reject,
				PenaltyWeight: cfg.Scoring.PenaltyWeight,
			},
			Report: report.Config{
				TopFindings:   cfg.Report.TopFindings,
				LowConfidence: cfg.Thresholds.LowConfidence,
			},
		}
	}
}

// Start starts the HTTP server. It blocks until the context is
// cancelled or the server fails.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.New("server already running")
	}
	s.running = true
	s.mu.Unlock()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			s.setNotRunning()
			return err
		}
	}

	return s.shutdown()
}

// shutdown drains in-flight requests and stops the HTTP server.
func (s *Server) shutdown() error {
	s.logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("HTTP server shutdown error", "error", err)
	}

	s.setNotRunning()
	s.logger.Info("server stopped")
	return nil
}

func (s *Server) setNotRunning() {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
}

// IsRunning returns whether the server is currently running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// Addr returns the server's listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Handler returns the fully wired HTTP handler, for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Orchestrator returns the analysis orchestrator.
func (s *Server) Orchestrator() *orchestrator.Orchestrator {
	return s.orchestrator
}

// withServices wraps a handler to enrich the request context with services.
func (s *Server) withServices(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := svcctx.WithServices(r.Context(), s.services)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireInit is middleware that ensures the analyzer is ready.
func (s *Server) requireInit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.services == nil || s.services.Analyzer == nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"error":"server not fully initialized"}`))
			return
		}
		next(w, r)
	}
}
