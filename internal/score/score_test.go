package score

import (
	"testing"

	"github.com/2005lakshya/prodoc/internal/analysis"
)

func fieldsWithConfidence(confs ...int) []analysis.FieldResult {
	fields := make([]analysis.FieldResult, len(confs))
	for i, c := range confs {
		fields[i] = analysis.FieldResult{Name: "f", Value: "v", Confidence: c}
	}
	return fields
}

func findingsWithSeverity(sevs ...int) []analysis.Finding {
	findings := make([]analysis.Finding, len(sevs))
	for i, s := range sevs {
		findings[i] = analysis.Finding{Detector: "d", Label: "l", Text: "t", Severity: s}
	}
	return findings
}

func TestOverallAccuracy(t *testing.T) {
	tests := []struct {
		name  string
		confs []int
		want  int
	}{
		{"no fields", nil, 0},
		{"single field", []int{80}, 80},
		{"integer mean", []int{98, 95, 100, 82, 91}, 93},
		{"truncating division", []int{50, 51}, 50},
		{"out of range clamped", []int{150, -50}, 50},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := OverallAccuracy(fieldsWithConfidence(tt.confs...))
			if got != tt.want {
				t.Errorf("OverallAccuracy() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestScore(t *testing.T) {
	cfg := DefaultConfig()

	t.Run("clean document approves", func(t *testing.T) {
		risk, decision := Score(fieldsWithConfidence(98, 95, 100, 82, 91), nil, cfg)
		// base = 100 - 93 = 7, no penalty
		if risk != 7 {
			t.Errorf("risk = %d, want 7", risk)
		}
		if decision != analysis.DecisionApprove {
			t.Errorf("decision = %s, want %s", decision, analysis.DecisionApprove)
		}
	})

	t.Run("findings push into review", func(t *testing.T) {
		risk, decision := Score(fieldsWithConfidence(98, 95, 100, 82, 91), findingsWithSeverity(30, 16), cfg)
		// base 7 + min(46,100)*0.5 = 30
		if risk != 30 {
			t.Errorf("risk = %d, want 30", risk)
		}
		if decision != analysis.DecisionReview {
			t.Errorf("decision = %s, want %s", decision, analysis.DecisionReview)
		}
	})

	t.Run("severity sum is capped", func(t *testing.T) {
		risk, _ := Score(fieldsWithConfidence(100), findingsWithSeverity(90, 90, 90, 90), cfg)
		// base 0 + min(360,100)*0.5 = 50
		if risk != 50 {
			t.Errorf("risk = %d, want 50", risk)
		}
	})

	t.Run("empty inputs stay in range", func(t *testing.T) {
		risk, decision := Score(nil, nil, cfg)
		// no fields means zero accuracy, so maximal base risk
		if risk != 100 {
			t.Errorf("risk = %d, want 100", risk)
		}
		if decision != analysis.DecisionReject {
			t.Errorf("decision = %s, want %s", decision, analysis.DecisionReject)
		}
	})

	t.Run("risk never leaves 0-100", func(t *testing.T) {
		for _, confs := range [][]int{nil, {0}, {100}, {-10, 200}} {
			for _, sevs := range [][]int{nil, {0}, {100, 100, 100}, {-5}} {
				risk, _ := Score(fieldsWithConfidence(confs...), findingsWithSeverity(sevs...), cfg)
				if risk < 0 || risk > 100 {
					t.Errorf("Score(%v, %v) risk = %d out of range", confs, sevs, risk)
				}
			}
		}
	})

	t.Run("more severity never lowers risk", func(t *testing.T) {
		fields := fieldsWithConfidence(90, 85)
		prev := -1
		for sev := 0; sev <= 100; sev += 10 {
			risk, _ := Score(fields, findingsWithSeverity(sev), cfg)
			if risk < prev {
				t.Fatalf("risk decreased from %d to %d at severity %d", prev, risk, sev)
			}
			prev = risk
		}
	})
}

func TestDecide(t *testing.T) {
	cfg := DefaultConfig()
	tests := []struct {
		risk int
		want analysis.Decision
	}{
		{0, analysis.DecisionApprove},
		{29, analysis.DecisionApprove},
		{30, analysis.DecisionReview},
		{69, analysis.DecisionReview},
		{70, analysis.DecisionReject},
		{100, analysis.DecisionReject},
	}
	for _, tt := range tests {
		if got := Decide(tt.risk, cfg); got != tt.want {
			t.Errorf("Decide(%d) = %s, want %s", tt.risk, got, tt.want)
		}
	}
}
