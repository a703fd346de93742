// Package score turns field confidences and finding severities into a
// single risk score and a categorical decision. Scoring is a pure,
// total function: any input, including empty field and finding sets,
// produces an in-range score.
package score

import (
	"github.com/2005lakshya/prodoc/internal/analysis"
)

// Config holds scoring thresholds and weights.
type Config struct {
	// ApproveBelow (T1) and RejectAt (T2) bound the decision bands:
	// risk < T1 approves, T1 <= risk < T2 reviews, risk >= T2 rejects.
	ApproveBelow int
	RejectAt     int

	// PenaltyWeight scales the capped sum of finding severities before
	// it is added to the base risk.
	PenaltyWeight float64
}

// DefaultConfig returns the standard thresholds.
func DefaultConfig() Config {
	return Config{ApproveBelow: 30, RejectAt: 70, PenaltyWeight: 0.5}
}

// OverallAccuracy is the arithmetic mean of field confidences, 0 when
// no fields were configured.
func OverallAccuracy(fields []analysis.FieldResult) int {
	if len(fields) == 0 {
		return 0
	}
	sum := 0
	for _, f := range fields {
		sum += analysis.Clamp(f.Confidence)
	}
	return sum / len(fields)
}

// Score computes the risk score and decision:
//
//	base    = 100 - overallAccuracy
//	penalty = min(sum(severities), 100) * PenaltyWeight
//	risk    = clamp(base + penalty, 0, 100)
func Score(fields []analysis.FieldResult, findings []analysis.Finding, cfg Config) (int, analysis.Decision) {
	base := 100 - OverallAccuracy(fields)

	severitySum := 0
	for _, f := range findings {
		severitySum += analysis.Clamp(f.Severity)
	}
	if severitySum > 100 {
		severitySum = 100
	}
	penalty := int(float64(severitySum) * cfg.PenaltyWeight)

	risk := analysis.Clamp(base + penalty)
	return risk, Decide(risk, cfg)
}

// Decide maps a risk score to a decision. Pure and total: increasing
// risk never decreases decision severity.
func Decide(risk int, cfg Config) analysis.Decision {
	switch {
	case risk < cfg.ApproveBelow:
		return analysis.DecisionApprove
	case risk < cfg.RejectAt:
		return analysis.DecisionReview
	default:
		return analysis.DecisionReject
	}
}
