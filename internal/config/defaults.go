package config

import (
	"time"

	"github.com/spf13/viper"
)

// DefaultConfig returns the standard configuration: invoice-style
// target fields, all four detectors, and the stock thresholds.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "127.0.0.1",
			Port: "8080",
		},
		Limits: LimitsConfig{
			MaxUploadBytes:  20 << 20,
			MaxConcurrent:   4,
			RequestDeadline: 30 * time.Second,
		},
		Fields: []FieldConfig{
			{Name: "Document Type"},
			{Name: "Issuer Name"},
			{Name: "Date"},
			{Name: "Invoice ID"},
			{Name: "Total Amount"},
			{Name: "Tax ID"},
		},
		Detectors: []string{
			"contrast-check",
			"blur-check",
			"font-consistency-check",
			"template-match-check",
		},
		Thresholds: ThresholdsConfig{
			Approve:       30,
			Reject:        70,
			Highlight:     50,
			LowConfidence: 60,
		},
		Scoring: ScoringConfig{PenaltyWeight: 0.5},
		Report:  ReportConfig{TopFindings: 3},
		Extractor: ExtractorConfig{
			Capability: "heuristic",
		},
		LLM: LLMConfig{
			Model:      "gpt-4o-mini",
			APIKey:     "${OPENAI_API_KEY}",
			RateLimit:  2.0,
			MaxRetries: 3,
			Timeout:    30 * time.Second,
		},
		PDF: PDFConfig{
			Pdftoppm:  "pdftoppm",
			Pdftotext: "pdftotext",
			DPI:       150,
			MaxPages:  20,
		},
	}
}

// setDefaults seeds viper with DefaultConfig values so a missing config
// file still yields a working service.
func setDefaults(v *viper.Viper) {
	d := DefaultConfig()

	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.port", d.Server.Port)

	v.SetDefault("limits.max_upload_bytes", d.Limits.MaxUploadBytes)
	v.SetDefault("limits.max_concurrent", d.Limits.MaxConcurrent)
	v.SetDefault("limits.request_deadline", d.Limits.RequestDeadline)

	fields := make([]map[string]any, 0, len(d.Fields))
	for _, f := range d.Fields {
		fields = append(fields, map[string]any{"name": f.Name})
	}
	v.SetDefault("fields", fields)
	v.SetDefault("detectors", d.Detectors)

	v.SetDefault("thresholds.approve", d.Thresholds.Approve)
	v.SetDefault("thresholds.reject", d.Thresholds.Reject)
	v.SetDefault("thresholds.highlight", d.Thresholds.Highlight)
	v.SetDefault("thresholds.low_confidence", d.Thresholds.LowConfidence)

	v.SetDefault("scoring.penalty_weight", d.Scoring.PenaltyWeight)
	v.SetDefault("report.top_findings", d.Report.TopFindings)

	v.SetDefault("extractor.capability", d.Extractor.Capability)

	v.SetDefault("llm.model", d.LLM.Model)
	v.SetDefault("llm.api_key", d.LLM.APIKey)
	v.SetDefault("llm.rate_limit", d.LLM.RateLimit)
	v.SetDefault("llm.max_retries", d.LLM.MaxRetries)
	v.SetDefault("llm.timeout", d.LLM.Timeout)

	v.SetDefault("pdf.pdftoppm", d.PDF.Pdftoppm)
	v.SetDefault("pdf.pdftotext", d.PDF.Pdftotext)
	v.SetDefault("pdf.dpi", d.PDF.DPI)
	v.SetDefault("pdf.max_pages", d.PDF.MaxPages)
}
