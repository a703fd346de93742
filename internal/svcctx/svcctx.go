// Package svcctx provides service context for dependency injection via
// context. Separate from server to avoid import cycles with endpoints.
package svcctx

import (
	"context"
	"log/slog"

	"github.com/2005lakshya/prodoc/internal/analysis"
	"github.com/2005lakshya/prodoc/internal/config"
	"github.com/2005lakshya/prodoc/internal/detect"
	"github.com/2005lakshya/prodoc/internal/extract"
)

// Analyzer runs one analysis request end to end. Implemented by the
// orchestrator; endpoints depend on this interface so tests can stub
// the pipeline.
type Analyzer interface {
	Analyze(ctx context.Context, data []byte, contentType string) (*analysis.Result, error)
	InFlight() int64
}

// Services holds the core services that flow through request context.
type Services struct {
	Analyzer   Analyzer
	Extractors *extract.Registry
	Detectors  *detect.Registry
	Config     *config.Manager
	Logger     *slog.Logger
}

type servicesKey struct{}

// WithServices returns a new context with services attached.
func WithServices(ctx context.Context, s *Services) context.Context {
	return context.WithValue(ctx, servicesKey{}, s)
}

// ServicesFrom extracts the full Services struct from context.
// Returns nil if not present.
func ServicesFrom(ctx context.Context) *Services {
	s, _ := ctx.Value(servicesKey{}).(*Services)
	return s
}

// AnalyzerFrom extracts the analyzer from context.
func AnalyzerFrom(ctx context.Context) Analyzer {
	if s := ServicesFrom(ctx); s != nil {
		return s.Analyzer
	}
	return nil
}

// ExtractorsFrom extracts the field extractor registry from context.
func ExtractorsFrom(ctx context.Context) *extract.Registry {
	if s := ServicesFrom(ctx); s != nil {
		return s.Extractors
	}
	return nil
}

// DetectorsFrom extracts the detector registry from context.
func DetectorsFrom(ctx context.Context) *detect.Registry {
	if s := ServicesFrom(ctx); s != nil {
		return s.Detectors
	}
	return nil
}

// ConfigFrom extracts the config manager from context.
func ConfigFrom(ctx context.Context) *config.Manager {
	if s := ServicesFrom(ctx); s != nil {
		return s.Config
	}
	return nil
}

// LoggerFrom extracts the logger from context.
func LoggerFrom(ctx context.Context) *slog.Logger {
	if s := ServicesFrom(ctx); s != nil {
		return s.Logger
	}
	return nil
}
