// Package analysis defines the data model shared by the document
// analysis pipeline: the normalized document, per-field extraction
// results, detector findings, and the terminal analysis result.
package analysis

import (
	"image"
	"strings"
)

// Decision is the categorical outcome of an analysis.
type Decision string

const (
	DecisionApprove Decision = "Approve"
	DecisionReview  Decision = "Review"
	DecisionReject  Decision = "Reject"
)

// Page is a single normalized document page: a raster surface plus an
// optional machine-readable text layer. Pages are read-only after
// normalization.
type Page struct {
	Number int // 1-based
	Image  image.Image
	Width  int
	Height int

	// Text is the page's text layer, when the source format carries one
	// (PDF text content). Empty for plain image uploads.
	Text string
}

// Document is the normalized representation of one upload: an ordered
// sequence of pages. It is immutable once produced and owned by a
// single request.
type Document struct {
	ID          string
	ContentType string
	Pages       []Page
}

// PageCount returns the number of pages.
func (d *Document) PageCount() int { return len(d.Pages) }

// Text returns the concatenated text layers of all pages, separated by
// form feeds. Empty if no page carries a text layer.
func (d *Document) Text() string {
	parts := make([]string, 0, len(d.Pages))
	for _, p := range d.Pages {
		parts = append(parts, p.Text)
	}
	return strings.TrimRight(strings.Join(parts, "\f"), "\f")
}

// FieldResult is the outcome of extracting one configured target field.
// Confidence is 0-100; 0 means not found or extraction failed.
type FieldResult struct {
	Name       string `json:"name"`
	Value      string `json:"value"`
	Confidence int    `json:"confidence"`
}

// Region is an optional bounding box for a finding, in page pixel
// coordinates.
type Region struct {
	Page   int `json:"page"`
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Finding is one quality or authenticity defect reported by a detector.
// Severity is 0-100.
type Finding struct {
	Detector string  `json:"detector"`
	Label    string  `json:"label"`
	Text     string  `json:"text"`
	Severity int     `json:"severity"`
	Region   *Region `json:"region,omitempty"`
}

// Highlight is a finding surfaced to the reviewer because its severity
// crossed the configured threshold.
type Highlight struct {
	Label string `json:"label"`
	Text  string `json:"text"`
}

// Result is the terminal artifact of one analysis request. Produced
// exactly once per request and never mutated after return.
type Result struct {
	ID              string        `json:"analysis_id"`
	OverallAccuracy int           `json:"overallAccuracy"`
	Fields          []FieldResult `json:"fields"`
	Issues          []string      `json:"issues"`
	Highlights      []Highlight   `json:"highlights"`
	RiskScore       int           `json:"risk_score"`
	Decision        Decision      `json:"decision"`
	Justification   string        `json:"justification_report"`

	// Partial marks a degraded result: the per-request deadline expired
	// with some field or detector tasks still outstanding.
	Partial bool `json:"partial"`

	// FailedDetectors lists detectors that errored and contributed no
	// findings. Recorded for observability; does not fail the request.
	FailedDetectors []string `json:"-"`
}

// Clamp bounds v to the 0-100 range used by confidences, severities and
// risk scores.
func Clamp(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
