package detect

import (
	"context"
	"fmt"

	"github.com/2005lakshya/prodoc/internal/analysis"
)

// BlurName identifies the blur detector.
const BlurName = "blur-check"

// blurMinVariance is the Laplacian variance below which a page counts
// as blurred. Sharp text pushes edge energy far above this.
const blurMinVariance = 120.0

// Blur flags pages with too little edge energy, a sign of defocus or
// motion blur in the source scan.
type Blur struct{}

// NewBlur creates the blur detector.
func NewBlur() *Blur { return &Blur{} }

func (d *Blur) Name() string { return BlurName }

func (d *Blur) Detect(ctx context.Context, doc *analysis.Document) ([]analysis.Finding, error) {
	var findings []analysis.Finding
	for _, page := range doc.Pages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if page.Image == nil {
			continue
		}
		variance := newLumaGrid(page.Image).laplacianVariance()
		if variance >= blurMinVariance {
			continue
		}
		severity := analysis.Clamp(int((1 - variance/blurMinVariance) * 85))
		findings = append(findings, analysis.Finding{
			Detector: BlurName,
			Label:    "Blur detected",
			Text:     fmt.Sprintf("Blurriness on page %d (edge energy %.1f)", page.Number, variance),
			Severity: severity,
			Region:   &analysis.Region{Page: page.Number, Width: page.Width, Height: page.Height},
		})
	}
	return findings, nil
}
