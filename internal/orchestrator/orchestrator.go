// Package orchestrator owns the per-request analysis pipeline: it
// normalizes the upload, fans out field extraction and defect detection
// concurrently, fans the results back in, scores risk and renders the
// justification report.
package orchestrator

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/2005lakshya/prodoc/internal/analysis"
	"github.com/2005lakshya/prodoc/internal/detect"
	"github.com/2005lakshya/prodoc/internal/extract"
	"github.com/2005lakshya/prodoc/internal/normalize"
	"github.com/2005lakshya/prodoc/internal/report"
	"github.com/2005lakshya/prodoc/internal/score"
)

// stage names the per-request state machine states, used for logging.
type stage string

const (
	stageReceived    stage = "received"
	stageNormalizing stage = "normalizing"
	stageAnalyzing   stage = "extracting+detecting"
	stageScoring     stage = "scoring"
	stageReporting   stage = "reporting"
	stageComplete    stage = "complete"
	stageFailed      stage = "failed"
)

// unavailableValue marks fields whose extraction failed or was cut off
// by the deadline, as opposed to fields that were simply not found.
const unavailableValue = "unavailable"

// Settings is the per-request pipeline configuration, snapshotted at
// request start so a config reload never affects an in-flight request.
type Settings struct {
	Fields             []extract.Spec
	Detectors          []string
	Capability         string
	Deadline           time.Duration
	HighlightThreshold int
	Scoring            score.Config
	Report             report.Config
}

// Config wires an Orchestrator.
type Config struct {
	Normalizer *normalize.Normalizer
	Extractors *extract.Registry
	Detectors  *detect.Registry

	// Settings returns the current pipeline settings. Called once per
	// request.
	Settings func() Settings

	// MaxConcurrent bounds in-flight requests; further requests are
	// rejected immediately. Default 4.
	MaxConcurrent int64

	Logger *slog.Logger
}

// Orchestrator runs analysis requests. Safe for concurrent use; all
// per-request state is local to Analyze.
type Orchestrator struct {
	normalizer *normalize.Normalizer
	extractors *extract.Registry
	detectors  *detect.Registry
	settings   func() Settings
	sem        *semaphore.Weighted
	logger     *slog.Logger
	inFlight   atomic.Int64
}

// New creates an Orchestrator.
func New(cfg Config) *Orchestrator {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 4
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Orchestrator{
		normalizer: cfg.Normalizer,
		extractors: cfg.Extractors,
		detectors:  cfg.Detectors,
		settings:   cfg.Settings,
		sem:        semaphore.NewWeighted(cfg.MaxConcurrent),
		logger:     cfg.Logger,
	}
}

// InFlight reports how many requests are currently being processed.
func (o *Orchestrator) InFlight() int64 { return o.inFlight.Load() }

// Analyze runs the full pipeline for one upload. Fatal errors
// (validation, decode, timeout before normalization, capacity) return
// an error and no result; per-field and per-detector faults degrade the
// result instead of failing the request.
func (o *Orchestrator) Analyze(ctx context.Context, data []byte, contentType string) (*analysis.Result, error) {
	if !o.sem.TryAcquire(1) {
		return nil, analysis.NewError(analysis.KindBusy, "too many concurrent analyses")
	}
	defer o.sem.Release(1)
	o.inFlight.Add(1)
	defer o.inFlight.Add(-1)

	st := o.settings()
	requestID := uuid.New().String()
	log := o.logger.With("analysis_id", requestID)
	log.Info("analysis started", "stage", stageReceived, "bytes", len(data), "content_type", contentType)

	deadline := st.Deadline
	if deadline <= 0 {
		deadline = 30 * time.Second
	}
	tctx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	log.Debug("stage transition", "stage", stageNormalizing)
	doc, err := o.normalizer.Normalize(tctx, data, contentType)
	if err != nil {
		if tctx.Err() != nil {
			err = analysis.WrapError(analysis.KindTimeout, "deadline expired during normalization", err)
		}
		log.Warn("analysis failed", "stage", stageFailed, "error", err)
		return nil, err
	}

	extractor, err := o.extractors.Get(st.Capability)
	if err != nil {
		log.Error("analysis failed", "stage", stageFailed, "error", err)
		return nil, analysis.WrapError(analysis.KindInternal, "extraction capability unavailable", err)
	}

	log.Debug("stage transition", "stage", stageAnalyzing,
		"fields", len(st.Fields), "detectors", len(st.Detectors), "pages", doc.PageCount())

	fields := make([]analysis.FieldResult, len(st.Fields))
	perDetector := make([][]analysis.Finding, len(st.Detectors))

	var failedMu sync.Mutex
	var failedDetectors []string

	// One task per field and per detector, each writing its own
	// pre-allocated slot exactly once. Tasks absorb their own failures,
	// so the group never cancels siblings.
	var g errgroup.Group
	for i, spec := range st.Fields {
		g.Go(func() error {
			fields[i] = o.extractField(tctx, extractor, doc, spec, log)
			return nil
		})
	}
	for j, name := range st.Detectors {
		detector, ok := o.detectors.Get(name)
		if !ok {
			log.Warn("detector not registered", "detector", name)
			failedMu.Lock()
			failedDetectors = append(failedDetectors, name)
			failedMu.Unlock()
			continue
		}
		g.Go(func() error {
			findings, derr := o.runDetector(tctx, detector, doc)
			if derr != nil {
				log.Warn("detector failed", "detector", name, "error", derr)
				failedMu.Lock()
				failedDetectors = append(failedDetectors, name)
				failedMu.Unlock()
				return nil
			}
			perDetector[j] = findings
			return nil
		})
	}
	_ = g.Wait()

	partial := tctx.Err() != nil
	if partial {
		log.Info("deadline expired during analysis; returning partial result")
	}

	log.Debug("stage transition", "stage", stageScoring)
	merged := detect.Merge(perDetector)
	riskScore, decision := score.Score(fields, merged, st.Scoring)
	accuracy := score.OverallAccuracy(fields)

	log.Debug("stage transition", "stage", stageReporting)
	justification := report.Generate(report.Input{
		Decision:        decision,
		RiskScore:       riskScore,
		OverallAccuracy: accuracy,
		Fields:          fields,
		Findings:        merged,
		Partial:         partial,
	}, st.Report)

	result := &analysis.Result{
		ID:              requestID,
		OverallAccuracy: accuracy,
		Fields:          fields,
		Issues:          detect.Issues(merged),
		Highlights:      detect.Highlights(merged, st.HighlightThreshold),
		RiskScore:       riskScore,
		Decision:        decision,
		Justification:   justification,
		Partial:         partial,
		FailedDetectors: failedDetectors,
	}

	log.Info("analysis complete", "stage", stageComplete,
		"risk_score", riskScore, "decision", decision, "partial", partial,
		"findings", len(merged), "failed_detectors", len(failedDetectors))
	return result, nil
}

// extractField runs one field extraction, absorbing failures: an error,
// panic or cancellation yields a zero-confidence "unavailable" result.
func (o *Orchestrator) extractField(ctx context.Context, extractor extract.FieldExtractor, doc *analysis.Document, spec extract.Spec, log *slog.Logger) (res analysis.FieldResult) {
	defer func() {
		if r := recover(); r != nil {
			log.Warn("field extraction panicked", "field", spec.Name, "panic", r)
			res = analysis.FieldResult{Name: spec.Name, Value: unavailableValue}
		}
	}()

	got, err := extractor.Extract(ctx, doc, spec)
	if err != nil {
		log.Warn("field extraction failed", "field", spec.Name, "error", err)
		return analysis.FieldResult{Name: spec.Name, Value: unavailableValue}
	}
	got.Name = spec.Name
	got.Confidence = analysis.Clamp(got.Confidence)
	return got
}

// runDetector runs one detector, converting panics into errors so a
// faulty detector never takes down the request.
func (o *Orchestrator) runDetector(ctx context.Context, detector detect.Detector, doc *analysis.Document) (findings []analysis.Finding, err error) {
	defer func() {
		if r := recover(); r != nil {
			findings = nil
			err = analysis.NewError(analysis.KindInternal, "detector panicked")
		}
	}()
	return detector.Detect(ctx, doc)
}
