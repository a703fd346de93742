// Package detect evaluates normalized documents for quality and
// authenticity defects. Detectors are pure functions of the immutable
// document: they share no state and may fail independently without
// affecting each other.
package detect

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/2005lakshya/prodoc/internal/analysis"
)

// ErrDetectorRegistered is returned when registering a duplicate detector.
var ErrDetectorRegistered = errors.New("detector already registered")

// Detector examines document pages and reports zero or more findings.
// Implementations must honor ctx cancellation and be safe for
// concurrent use.
type Detector interface {
	Name() string
	Detect(ctx context.Context, doc *analysis.Document) ([]analysis.Finding, error)
}

// Registry holds detectors in registration order. Populated at startup;
// read-only afterwards. Registration order breaks severity ties when
// findings are merged.
type Registry struct {
	mu        sync.RWMutex
	detectors map[string]Detector
	order     []string
}

// NewRegistry creates an empty detector registry.
func NewRegistry() *Registry {
	return &Registry{detectors: make(map[string]Detector)}
}

// Register adds a detector.
func (r *Registry) Register(d Detector) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := d.Name()
	if _, exists := r.detectors[name]; exists {
		return fmt.Errorf("%w: %s", ErrDetectorRegistered, name)
	}
	r.detectors[name] = d
	r.order = append(r.order, name)
	return nil
}

// Get returns a detector by name.
func (r *Registry) Get(name string) (Detector, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.detectors[name]
	return d, ok
}

// Names returns detector names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// Merge flattens per-detector finding slices (given in registration
// order) into one sequence ordered by descending severity. Ties keep
// registration order, which a stable sort over the pre-ordered input
// preserves.
func Merge(perDetector [][]analysis.Finding) []analysis.Finding {
	var merged []analysis.Finding
	for _, fs := range perDetector {
		merged = append(merged, fs...)
	}
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Severity > merged[j].Severity
	})
	return merged
}

// Highlights filters merged findings to those at or above the severity
// threshold, preserving order.
func Highlights(findings []analysis.Finding, threshold int) []analysis.Highlight {
	highlights := make([]analysis.Highlight, 0, len(findings))
	for _, f := range findings {
		if f.Severity >= threshold {
			highlights = append(highlights, analysis.Highlight{Label: f.Label, Text: f.Text})
		}
	}
	return highlights
}

// Issues renders findings as reviewer-facing issue strings, in merged
// order.
func Issues(findings []analysis.Finding) []string {
	issues := make([]string, 0, len(findings))
	for _, f := range findings {
		issues = append(issues, f.Text)
	}
	return issues
}
