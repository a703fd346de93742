// Package report renders the justification narrative for an analysis.
// Generation is deterministic: identical inputs produce identical text,
// and it never fails — degenerate inputs yield a minimal valid report.
package report

import (
	"fmt"
	"strings"

	"github.com/2005lakshya/prodoc/internal/analysis"
)

// Config holds report rendering settings.
type Config struct {
	// TopFindings is how many findings (by severity) the narrative
	// references. Default 3.
	TopFindings int

	// LowConfidence is the threshold below which extracted fields are
	// called out. Default 60.
	LowConfidence int
}

// DefaultConfig returns the standard report settings.
func DefaultConfig() Config {
	return Config{TopFindings: 3, LowConfidence: 60}
}

// Input carries everything the narrative references.
type Input struct {
	Decision        analysis.Decision
	RiskScore       int
	OverallAccuracy int
	Fields          []analysis.FieldResult
	Findings        []analysis.Finding // merged, severity-descending
	Partial         bool
}

// Generate renders the justification report.
func Generate(in Input, cfg Config) string {
	if cfg.TopFindings <= 0 {
		cfg.TopFindings = 3
	}
	if cfg.LowConfidence <= 0 {
		cfg.LowConfidence = 60
	}

	if len(in.Fields) == 0 && len(in.Findings) == 0 && in.Decision == analysis.DecisionApprove {
		return "No issues detected; approved on default confidence."
	}

	var b strings.Builder

	b.WriteString("DECISION JUSTIFICATION REPORT\n")
	b.WriteString(strings.Repeat("=", 29) + "\n")
	fmt.Fprintf(&b, "Final Decision: %s\n", in.Decision)
	fmt.Fprintf(&b, "Risk Score: %d/100\n", in.RiskScore)
	fmt.Fprintf(&b, "Overall Extraction Accuracy: %d/100\n", in.OverallAccuracy)
	if in.Partial {
		b.WriteString("Note: the analysis deadline expired before all checks completed; results may be partial.\n")
	}
	b.WriteString("\n")

	b.WriteString("1. Key Findings\n")
	b.WriteString(strings.Repeat("-", 25) + "\n")
	if len(in.Findings) == 0 {
		b.WriteString("No significant quality or authenticity findings were identified.\n")
	} else {
		top := in.Findings
		if len(top) > cfg.TopFindings {
			top = top[:cfg.TopFindings]
		}
		for _, f := range top {
			fmt.Fprintf(&b, "- [severity %d] %s: %s\n", f.Severity, f.Label, f.Text)
		}
		if extra := len(in.Findings) - len(top); extra > 0 {
			fmt.Fprintf(&b, "(%d further findings of lower severity omitted)\n", extra)
		}
	}
	b.WriteString("\n")

	b.WriteString("2. Field Confidence\n")
	b.WriteString(strings.Repeat("-", 25) + "\n")
	low := lowConfidenceFields(in.Fields, cfg.LowConfidence)
	switch {
	case len(in.Fields) == 0:
		b.WriteString("No target fields were configured for extraction.\n")
	case len(low) == 0:
		b.WriteString("All extracted fields met the confidence threshold.\n")
	default:
		for _, f := range low {
			value := f.Value
			if value == "" {
				value = "(not found)"
			}
			fmt.Fprintf(&b, "- %s: %q (confidence %d)\n", f.Name, value, f.Confidence)
		}
	}
	b.WriteString("\n")

	b.WriteString("3. Recommended Action\n")
	b.WriteString(strings.Repeat("-", 25) + "\n")
	b.WriteString(recommendation(in.Decision) + "\n\n")

	b.WriteString("Note: This report is automated and intended to support, not replace, human review.\n")
	return b.String()
}

func lowConfidenceFields(fields []analysis.FieldResult, threshold int) []analysis.FieldResult {
	var low []analysis.FieldResult
	for _, f := range fields {
		if f.Confidence < threshold {
			low = append(low, f)
		}
	}
	return low
}

func recommendation(d analysis.Decision) string {
	switch d {
	case analysis.DecisionApprove:
		return "No immediate action is required. The document appears suitable for approval based on automated analysis."
	case analysis.DecisionReview:
		return "The document should be examined by a reviewer to address the identified concerns before approval."
	default:
		return "The document presents high risk. Approval is not recommended without manual verification of the flagged areas."
	}
}
