package detect

import (
	"context"
	"errors"
	"image"
	"image/color"
	"strings"
	"testing"

	"github.com/2005lakshya/prodoc/internal/analysis"
)

// uniformImage is a flat gray surface: zero contrast, zero edge energy.
func uniformImage(w, h int) image.Image {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetGray(x, y, color.Gray{Y: 128})
		}
	}
	return img
}

// checkerboardImage alternates black and white per pixel: maximal
// contrast and edge energy.
func checkerboardImage(w, h int) image.Image {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := uint8(0)
			if (x+y)%2 == 0 {
				v = 255
			}
			img.SetGray(x, y, color.Gray{Y: v})
		}
	}
	return img
}

func pageDoc(pages ...analysis.Page) *analysis.Document {
	return &analysis.Document{ID: "test", ContentType: "image/png", Pages: pages}
}

func imagePage(num int, img image.Image) analysis.Page {
	b := img.Bounds()
	return analysis.Page{Number: num, Image: img, Width: b.Dx(), Height: b.Dy()}
}

func textPage(num int, text string) analysis.Page {
	return analysis.Page{Number: num, Text: text}
}

func TestContrast(t *testing.T) {
	d := NewContrast()
	ctx := context.Background()

	t.Run("flat page is flagged", func(t *testing.T) {
		findings, err := d.Detect(ctx, pageDoc(imagePage(1, uniformImage(64, 64))))
		if err != nil {
			t.Fatalf("Detect() error: %v", err)
		}
		if len(findings) != 1 {
			t.Fatalf("got %d findings, want 1", len(findings))
		}
		// zero spread maps to the full 90 severity
		if findings[0].Severity != 90 {
			t.Errorf("severity = %d, want 90", findings[0].Severity)
		}
		if findings[0].Detector != ContrastName {
			t.Errorf("detector = %q, want %q", findings[0].Detector, ContrastName)
		}
	})

	t.Run("high contrast page passes", func(t *testing.T) {
		findings, err := d.Detect(ctx, pageDoc(imagePage(1, checkerboardImage(64, 64))))
		if err != nil {
			t.Fatalf("Detect() error: %v", err)
		}
		if len(findings) != 0 {
			t.Errorf("got %d findings, want 0", len(findings))
		}
	})

	t.Run("text-only page is skipped", func(t *testing.T) {
		findings, err := d.Detect(ctx, pageDoc(textPage(1, "hello")))
		if err != nil {
			t.Fatalf("Detect() error: %v", err)
		}
		if len(findings) != 0 {
			t.Errorf("got %d findings, want 0", len(findings))
		}
	})

	t.Run("cancelled context aborts", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		if _, err := d.Detect(cctx, pageDoc(imagePage(1, uniformImage(8, 8)))); err == nil {
			t.Error("Detect() with cancelled context returned nil error")
		}
	})
}

func TestBlur(t *testing.T) {
	d := NewBlur()
	ctx := context.Background()

	t.Run("flat page is flagged", func(t *testing.T) {
		findings, err := d.Detect(ctx, pageDoc(imagePage(1, uniformImage(64, 64))))
		if err != nil {
			t.Fatalf("Detect() error: %v", err)
		}
		if len(findings) != 1 {
			t.Fatalf("got %d findings, want 1", len(findings))
		}
		if findings[0].Severity != 85 {
			t.Errorf("severity = %d, want 85", findings[0].Severity)
		}
	})

	t.Run("sharp page passes", func(t *testing.T) {
		findings, err := d.Detect(ctx, pageDoc(imagePage(1, checkerboardImage(64, 64))))
		if err != nil {
			t.Fatalf("Detect() error: %v", err)
		}
		if len(findings) != 0 {
			t.Errorf("got %d findings, want 0", len(findings))
		}
	})
}

func TestFontConsistency(t *testing.T) {
	d := NewFontConsistency()
	ctx := context.Background()

	t.Run("clean text passes", func(t *testing.T) {
		findings, err := d.Detect(ctx, pageDoc(textPage(1, "Invoice No: INV-001\nTotal: $10.00")))
		if err != nil {
			t.Fatalf("Detect() error: %v", err)
		}
		if len(findings) != 0 {
			t.Errorf("got %d findings, want 0", len(findings))
		}
	})

	t.Run("mixed-script token is flagged", func(t *testing.T) {
		// е is the Cyrillic lookalike of "e"
		findings, err := d.Detect(ctx, pageDoc(textPage(1, "Invoicе No: INV-001")))
		if err != nil {
			t.Fatalf("Detect() error: %v", err)
		}
		if len(findings) != 1 {
			t.Fatalf("got %d findings, want 1", len(findings))
		}
		if findings[0].Severity != 55 {
			t.Errorf("severity = %d, want 55", findings[0].Severity)
		}
		if !strings.Contains(findings[0].Text, "mixed-script") {
			t.Errorf("finding text missing token detail: %q", findings[0].Text)
		}
	})

	t.Run("invisible characters are flagged", func(t *testing.T) {
		findings, err := d.Detect(ctx, pageDoc(textPage(1, "Total: $1\u200b0.00")))
		if err != nil {
			t.Fatalf("Detect() error: %v", err)
		}
		if len(findings) != 1 {
			t.Fatalf("got %d findings, want 1", len(findings))
		}
		if findings[0].Severity != 50 {
			t.Errorf("severity = %d, want 50", findings[0].Severity)
		}
	})

	t.Run("image-only page is skipped", func(t *testing.T) {
		findings, err := d.Detect(ctx, pageDoc(imagePage(1, uniformImage(8, 8))))
		if err != nil {
			t.Fatalf("Detect() error: %v", err)
		}
		if len(findings) != 0 {
			t.Errorf("got %d findings, want 0", len(findings))
		}
	})
}

func TestTemplateMatch(t *testing.T) {
	d := NewTemplateMatch()
	ctx := context.Background()

	t.Run("complete template passes", func(t *testing.T) {
		text := "INVOICE\nInvoice No: INV-001\nDate: 2024-03-15\nTotal: $10.00"
		findings, err := d.Detect(ctx, pageDoc(textPage(1, text)))
		if err != nil {
			t.Fatalf("Detect() error: %v", err)
		}
		if len(findings) != 0 {
			t.Errorf("got %d findings, want 0: %+v", len(findings), findings)
		}
	})

	t.Run("missing anchors are reported", func(t *testing.T) {
		findings, err := d.Detect(ctx, pageDoc(textPage(1, "some unrelated letter text")))
		if err != nil {
			t.Fatalf("Detect() error: %v", err)
		}
		if len(findings) != 1 {
			t.Fatalf("got %d findings, want 1", len(findings))
		}
		// all four anchors missing
		if findings[0].Severity != 90 {
			t.Errorf("severity = %d, want 90", findings[0].Severity)
		}
		if !strings.Contains(findings[0].Text, "document header") {
			t.Errorf("finding text missing anchor names: %q", findings[0].Text)
		}
	})

	t.Run("no text layer yields no findings", func(t *testing.T) {
		findings, err := d.Detect(ctx, pageDoc(imagePage(1, uniformImage(8, 8))))
		if err != nil {
			t.Fatalf("Detect() error: %v", err)
		}
		if len(findings) != 0 {
			t.Errorf("got %d findings, want 0", len(findings))
		}
	})
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(NewContrast()); err != nil {
		t.Fatalf("Register() error: %v", err)
	}
	if err := r.Register(NewBlur()); err != nil {
		t.Fatalf("Register() error: %v", err)
	}

	if err := r.Register(NewContrast()); !errors.Is(err, ErrDetectorRegistered) {
		t.Errorf("duplicate Register() error = %v, want ErrDetectorRegistered", err)
	}

	if _, ok := r.Get(BlurName); !ok {
		t.Error("Get(blur) not found")
	}
	if _, ok := r.Get("nope"); ok {
		t.Error("Get(nope) unexpectedly found")
	}

	names := r.Names()
	if len(names) != 2 || names[0] != ContrastName || names[1] != BlurName {
		t.Errorf("Names() = %v, want registration order", names)
	}
}

func TestMergeHighlightsIssues(t *testing.T) {
	perDetector := [][]analysis.Finding{
		{
			{Detector: "a", Label: "A1", Text: "a-one", Severity: 40},
			{Detector: "a", Label: "A2", Text: "a-two", Severity: 70},
		},
		{
			{Detector: "b", Label: "B1", Text: "b-one", Severity: 70},
			{Detector: "b", Label: "B2", Text: "b-two", Severity: 10},
		},
	}

	merged := Merge(perDetector)
	gotTexts := make([]string, len(merged))
	for i, f := range merged {
		gotTexts[i] = f.Text
	}
	// descending severity, ties keep registration order
	want := []string{"a-two", "b-one", "a-one", "b-two"}
	for i := range want {
		if gotTexts[i] != want[i] {
			t.Fatalf("Merge() order = %v, want %v", gotTexts, want)
		}
	}

	highlights := Highlights(merged, 50)
	if len(highlights) != 2 {
		t.Fatalf("Highlights() = %d entries, want 2", len(highlights))
	}
	if highlights[0].Label != "A2" || highlights[1].Label != "B1" {
		t.Errorf("Highlights() = %+v", highlights)
	}

	issues := Issues(merged)
	if len(issues) != 4 || issues[0] != "a-two" {
		t.Errorf("Issues() = %v", issues)
	}

	if got := Merge(nil); len(got) != 0 {
		t.Errorf("Merge(nil) = %v, want empty", got)
	}
}
