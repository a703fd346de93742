package detect

import (
	"context"
	"fmt"

	"github.com/2005lakshya/prodoc/internal/analysis"
)

// ContrastName identifies the contrast detector.
const ContrastName = "contrast-check"

// contrastMinStddev is the luma standard deviation below which a page
// counts as low-contrast. Clean scans of printed documents sit well
// above this.
const contrastMinStddev = 40.0

// Contrast flags pages whose luma spread is too narrow to read reliably.
type Contrast struct{}

// NewContrast creates the contrast detector.
func NewContrast() *Contrast { return &Contrast{} }

func (d *Contrast) Name() string { return ContrastName }

func (d *Contrast) Detect(ctx context.Context, doc *analysis.Document) ([]analysis.Finding, error) {
	var findings []analysis.Finding
	for _, page := range doc.Pages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if page.Image == nil {
			continue
		}
		_, stddev := newLumaGrid(page.Image).meanStddev()
		if stddev >= contrastMinStddev {
			continue
		}
		severity := analysis.Clamp(int((1 - stddev/contrastMinStddev) * 90))
		findings = append(findings, analysis.Finding{
			Detector: ContrastName,
			Label:    "Low contrast",
			Text:     fmt.Sprintf("Low contrast on page %d (luma spread %.1f)", page.Number, stddev),
			Severity: severity,
			Region:   &analysis.Region{Page: page.Number, Width: page.Width, Height: page.Height},
		})
	}
	return findings, nil
}
