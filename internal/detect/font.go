package detect

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/2005lakshya/prodoc/internal/analysis"
)

// FontConsistencyName identifies the font/glyph consistency detector.
const FontConsistencyName = "font-consistency-check"

// FontConsistency scans the text layer for glyph-level tampering
// signals: tokens mixing Latin with Cyrillic or Greek lookalikes, and
// invisible characters spliced into the text. Both are common in
// altered invoices that render fine but fool keyword matching.
type FontConsistency struct{}

// NewFontConsistency creates the font consistency detector.
func NewFontConsistency() *FontConsistency { return &FontConsistency{} }

func (d *FontConsistency) Name() string { return FontConsistencyName }

func (d *FontConsistency) Detect(ctx context.Context, doc *analysis.Document) ([]analysis.Finding, error) {
	var findings []analysis.Finding
	for _, page := range doc.Pages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if page.Text == "" {
			continue
		}

		mixed := mixedScriptTokens(page.Text)
		invisible := countInvisible(page.Text)
		if len(mixed) == 0 && invisible == 0 {
			continue
		}

		severity := analysis.Clamp(40 + 15*len(mixed) + 10*invisible)
		text := fmt.Sprintf("Font inconsistency on page %d", page.Number)
		if len(mixed) > 0 {
			shown := mixed
			if len(shown) > 3 {
				shown = shown[:3]
			}
			text += fmt.Sprintf(": mixed-script tokens %s", strings.Join(shown, ", "))
		}
		if invisible > 0 {
			text += fmt.Sprintf(" (%d invisible characters)", invisible)
		}

		findings = append(findings, analysis.Finding{
			Detector: FontConsistencyName,
			Label:    "Font inconsistency",
			Text:     text,
			Severity: severity,
			Region:   &analysis.Region{Page: page.Number, Width: page.Width, Height: page.Height},
		})
	}
	return findings, nil
}

// mixedScriptTokens returns tokens containing both Latin and
// Cyrillic/Greek letters, in document order.
func mixedScriptTokens(text string) []string {
	var tokens []string
	for _, tok := range strings.Fields(text) {
		var latin, lookalike bool
		for _, r := range tok {
			switch {
			case unicode.Is(unicode.Latin, r):
				latin = true
			case unicode.Is(unicode.Cyrillic, r), unicode.Is(unicode.Greek, r):
				lookalike = true
			}
		}
		if latin && lookalike {
			tokens = append(tokens, tok)
		}
	}
	return tokens
}

func countInvisible(text string) int {
	n := 0
	for _, r := range text {
		switch r {
		case '\u200b', '\u200c', '\u200d', '\ufeff', '\u00ad':
			n++
		}
	}
	return n
}
