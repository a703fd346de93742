// Package extract locates configured target fields in a normalized
// document and scores extraction confidence. Any recognition algorithm
// can back a field: extractors are registered by capability name and
// resolved at request time.
package extract

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/2005lakshya/prodoc/internal/analysis"
)

// Sentinel errors for the extract package.
var (
	// ErrCapabilityRegistered is returned when registering a duplicate capability.
	ErrCapabilityRegistered = errors.New("capability already registered")

	// ErrCapabilityNotFound is returned when resolving an unknown capability.
	ErrCapabilityNotFound = errors.New("capability not found")
)

// Spec describes one target field to extract.
type Spec struct {
	// Name identifies the field (e.g. "Invoice ID"). Result identity is
	// by name; the orchestrator never requests duplicate names.
	Name string

	// Keywords are label words that anchor the field in document text.
	// Optional; the heuristic extractor falls back to built-in specs and
	// then to the field name itself.
	Keywords []string

	// Pattern is an optional regular expression for the field value.
	Pattern string
}

// FieldExtractor is the pluggable extraction capability. Extract reads
// the immutable document and returns the field value with a 0-100
// confidence. A zero confidence means the field was not found.
// Implementations must honor ctx cancellation and be safe for
// concurrent use across fields.
type FieldExtractor interface {
	Name() string
	Extract(ctx context.Context, doc *analysis.Document, spec Spec) (analysis.FieldResult, error)
}

// Registry maps capability names to extractor instances. Populated at
// startup; read-only afterwards.
type Registry struct {
	mu         sync.RWMutex
	extractors map[string]FieldExtractor
	order      []string
}

// NewRegistry creates an empty extractor registry.
func NewRegistry() *Registry {
	return &Registry{extractors: make(map[string]FieldExtractor)}
}

// Register adds an extractor under its capability name.
func (r *Registry) Register(e FieldExtractor) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := e.Name()
	if _, exists := r.extractors[name]; exists {
		return fmt.Errorf("%w: %s", ErrCapabilityRegistered, name)
	}
	r.extractors[name] = e
	r.order = append(r.order, name)
	return nil
}

// Get returns the extractor registered under name.
func (r *Registry) Get(name string) (FieldExtractor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.extractors[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrCapabilityNotFound, name)
	}
	return e, nil
}

// Names returns registered capability names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}
