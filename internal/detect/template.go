package detect

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/2005lakshya/prodoc/internal/analysis"
)

// TemplateMatchName identifies the layout/template detector.
const TemplateMatchName = "template-match-check"

// anchor is a structural element expected on invoice-like documents.
type anchor struct {
	name    string
	pattern *regexp.Regexp
}

var templateAnchors = []anchor{
	{"document header", regexp.MustCompile(`(?i)\b(invoice|receipt|statement|credit note|purchase order)\b`)},
	{"date", regexp.MustCompile(`(?i)\bdate\b|\d{1,2}[/.\-]\d{1,2}[/.\-]\d{2,4}`)},
	{"total", regexp.MustCompile(`(?i)\btotal\b`)},
	{"reference number", regexp.MustCompile(`(?i)\b(?:no\.?|number|#|id)\b`)},
}

// TemplateMatch checks the text layer of page 1 for the structural
// anchors an invoice-like document carries. A raster without any text
// layer cannot be assessed and yields no findings.
type TemplateMatch struct{}

// NewTemplateMatch creates the template detector.
func NewTemplateMatch() *TemplateMatch { return &TemplateMatch{} }

func (d *TemplateMatch) Name() string { return TemplateMatchName }

func (d *TemplateMatch) Detect(ctx context.Context, doc *analysis.Document) ([]analysis.Finding, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(doc.Pages) == 0 {
		return nil, nil
	}
	text := doc.Pages[0].Text
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	var missing []string
	for _, a := range templateAnchors {
		if !a.pattern.MatchString(text) {
			missing = append(missing, a.name)
		}
	}
	if len(missing) == 0 {
		return nil, nil
	}

	severity := analysis.Clamp(10 + 20*len(missing))
	return []analysis.Finding{{
		Detector: TemplateMatchName,
		Label:    "Template mismatch",
		Text:     fmt.Sprintf("Layout deviates from expected template: missing %s", strings.Join(missing, ", ")),
		Severity: severity,
		Region:   &analysis.Region{Page: 1, Width: doc.Pages[0].Width, Height: doc.Pages[0].Height},
	}}, nil
}
