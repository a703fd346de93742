package extract

import (
	"context"
	"regexp"
	"strings"

	"github.com/2005lakshya/prodoc/internal/analysis"
)

// HeuristicName is the capability name of the built-in rule-based extractor.
const HeuristicName = "heuristic"

// rule pairs a labeled pattern (field label followed by a value) with a
// bare value pattern. A labeled hit is worth more than a bare one.
type rule struct {
	labeled     *regexp.Regexp
	bare        *regexp.Regexp
	labeledConf int
	bareConf    int
}

var builtinRules = map[string]rule{
	"document type": {
		labeled:     regexp.MustCompile(`(?i)\b(tax invoice|credit note|purchase order|pro forma invoice|delivery note|invoice|receipt|statement)\b`),
		labeledConf: 90,
	},
	"date": {
		labeled:     regexp.MustCompile(`(?i)(?:date|dated|issued(?:\s+on)?)\s*[:\-]?\s*(\d{1,2}[/.\-]\d{1,2}[/.\-]\d{2,4}|\d{4}-\d{2}-\d{2})`),
		bare:        regexp.MustCompile(`\b(\d{1,2}[/.\-]\d{1,2}[/.\-]\d{4}|\d{4}-\d{2}-\d{2})\b`),
		labeledConf: 95,
		bareConf:    75,
	},
	"invoice id": {
		labeled:     regexp.MustCompile(`(?i)\binvoice\s*(?:id|no\.?|number|#)?\s*[:#\-]?\s*([A-Z]{2,5}-?[0-9]{2,}[A-Z0-9\-]*)`),
		bare:        regexp.MustCompile(`\b(INV-[A-Z0-9\-]{4,})\b`),
		labeledConf: 90,
		bareConf:    80,
	},
	"total amount": {
		labeled:     regexp.MustCompile(`(?i)(?:grand\s+)?total(?:\s+amount)?(?:\s+due)?\s*[:\-]?\s*([$£€]\s?\d[\d,]*(?:\.\d{2})?)`),
		bare:        regexp.MustCompile(`([$£€]\s?\d[\d,]*\.\d{2})`),
		labeledConf: 90,
		bareConf:    65,
	},
	"tax id": {
		labeled:     regexp.MustCompile(`(?i)\b(?:tax\s*id|tin|vat(?:\s*(?:no\.?|number|reg))?|abn|gstin|ein)\s*[.:#\-]?\s*([A-Z0-9][A-Z0-9\-]{4,19}[A-Z0-9])`),
		labeledConf: 90,
	},
}

// corporate suffixes treated as strong issuer-name evidence.
var issuerSuffix = regexp.MustCompile(`(?i)\b(inc|ltd|llc|gmbh|corp|co|plc|pty|sa|ag|bv)\.?$`)

// Heuristic extracts fields from the document text layer with labeled
// regular expressions. It carries no state and is safe for concurrent
// use.
type Heuristic struct{}

// NewHeuristic creates the rule-based extractor.
func NewHeuristic() *Heuristic { return &Heuristic{} }

func (h *Heuristic) Name() string { return HeuristicName }

// Extract searches the text layer for the field. Confidence tiers:
// labeled match > bare pattern match > generic "label: value" line.
// A document without a text layer yields confidence 0 for every field.
func (h *Heuristic) Extract(ctx context.Context, doc *analysis.Document, spec Spec) (analysis.FieldResult, error) {
	if err := ctx.Err(); err != nil {
		return analysis.FieldResult{}, err
	}

	res := analysis.FieldResult{Name: spec.Name}
	text := doc.Text()
	if strings.TrimSpace(text) == "" {
		return res, nil
	}

	key := strings.ToLower(strings.TrimSpace(spec.Name))
	if key == "issuer name" {
		value, conf := extractIssuer(doc)
		res.Value, res.Confidence = value, conf
		return res, nil
	}

	if r, ok := builtinRules[key]; ok {
		if value, conf := r.apply(text); conf > 0 {
			res.Value, res.Confidence = value, conf
			return res, nil
		}
	}

	// Custom pattern from configuration wins over the generic fallback.
	if spec.Pattern != "" {
		if re, err := regexp.Compile(spec.Pattern); err == nil {
			if m := re.FindStringSubmatch(text); m != nil {
				res.Value = strings.TrimSpace(m[len(m)-1])
				res.Confidence = 85
				return res, nil
			}
		}
	}

	if value := genericLabelValue(text, labelsFor(spec)); value != "" {
		res.Value = value
		res.Confidence = 60
	}
	return res, nil
}

func (r rule) apply(text string) (string, int) {
	if r.labeled != nil {
		if matches := r.labeled.FindAllStringSubmatch(text, -1); len(matches) > 0 {
			value := strings.TrimSpace(matches[0][len(matches[0])-1])
			conf := r.labeledConf
			// Conflicting values for the same label lower certainty.
			for _, m := range matches[1:] {
				if !strings.EqualFold(strings.TrimSpace(m[len(m)-1]), value) {
					conf -= 15
					break
				}
			}
			return titleIfPhrase(value), conf
		}
	}
	if r.bare != nil {
		if m := r.bare.FindStringSubmatch(text); m != nil {
			return strings.TrimSpace(m[len(m)-1]), r.bareConf
		}
	}
	return "", 0
}

// extractIssuer takes the first plausible line of page 1 as the issuer
// block. A corporate suffix is strong evidence.
func extractIssuer(doc *analysis.Document) (string, int) {
	if len(doc.Pages) == 0 {
		return "", 0
	}
	for _, line := range strings.Split(doc.Pages[0].Text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || len(line) < 3 {
			continue
		}
		lower := strings.ToLower(line)
		if builtinRules["document type"].labeled.MatchString(lower) {
			continue
		}
		if !strings.ContainsFunc(line, func(r rune) bool { return r >= 'A' && r <= 'Z' || r >= 'a' && r <= 'z' }) {
			continue
		}
		if issuerSuffix.MatchString(line) {
			return line, 95
		}
		return line, 70
	}
	return "", 0
}

// genericLabelValue finds "<label>: value" lines for unknown fields.
func genericLabelValue(text string, labels []string) string {
	for _, label := range labels {
		re, err := regexp.Compile(`(?im)^\s*` + regexp.QuoteMeta(label) + `\s*[:\-]\s*(.+)$`)
		if err != nil {
			continue
		}
		if m := re.FindStringSubmatch(text); m != nil {
			return strings.TrimSpace(m[1])
		}
	}
	return ""
}

func labelsFor(spec Spec) []string {
	if len(spec.Keywords) > 0 {
		return spec.Keywords
	}
	return []string{spec.Name}
}

// titleIfPhrase title-cases bare lowercase phrases like "tax invoice"
// so extracted values read the way they appear on real documents.
func titleIfPhrase(v string) string {
	if v != strings.ToLower(v) {
		return v
	}
	words := strings.Fields(v)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
