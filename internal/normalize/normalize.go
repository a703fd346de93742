// Package normalize converts raw uploaded bytes into an immutable
// in-memory Document: an ordered sequence of rasterized pages with an
// optional text layer.
package normalize

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	// Raster formats accepted for image/* uploads.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/google/uuid"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"golang.org/x/sync/errgroup"

	"github.com/2005lakshya/prodoc/internal/analysis"
)

// Config holds normalizer settings.
type Config struct {
	// MaxBytes is the maximum accepted upload size. Zero means the
	// default of 20MB.
	MaxBytes int64

	// Pdftoppm and Pdftotext are binary names or absolute paths for the
	// poppler tools used to rasterize PDF pages and pull the text layer.
	Pdftoppm  string
	Pdftotext string

	// DPI is the rasterization resolution for PDF pages, default 150.
	DPI int

	// MaxPages caps how many PDF pages are normalized. 0 = no limit.
	MaxPages int
}

// Normalizer validates uploads and produces Documents.
type Normalizer struct {
	cfg    Config
	runner Runner
	logger *slog.Logger
}

// New creates a Normalizer, filling config defaults.
func New(cfg Config, logger *slog.Logger) *Normalizer {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = 20 << 20
	}
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = "pdftoppm"
	}
	if cfg.Pdftotext == "" {
		cfg.Pdftotext = "pdftotext"
	}
	if cfg.DPI <= 0 {
		cfg.DPI = 150
	}
	return &Normalizer{cfg: cfg, runner: execRunner{}, logger: logger}
}

// SetRunner replaces the external command runner. Used by tests.
func (n *Normalizer) SetRunner(r Runner) { n.runner = r }

// Normalize validates the upload and produces a Document. It fails with
// KindInvalidInput for empty or oversized buffers, KindUnsupportedFormat
// for content types outside image/* and application/pdf, and
// KindDecodeFailure when the bytes cannot be rasterized.
func (n *Normalizer) Normalize(ctx context.Context, data []byte, contentType string) (*analysis.Document, error) {
	if len(data) == 0 {
		return nil, analysis.NewError(analysis.KindInvalidInput, "empty upload")
	}
	if int64(len(data)) > n.cfg.MaxBytes {
		return nil, analysis.NewError(analysis.KindInvalidInput,
			fmt.Sprintf("upload of %d bytes exceeds limit of %d", len(data), n.cfg.MaxBytes))
	}

	mediaType := contentType
	if mt, _, err := mime.ParseMediaType(contentType); err == nil {
		mediaType = mt
	}
	mediaType = strings.ToLower(strings.TrimSpace(mediaType))

	doc := &analysis.Document{
		ID:          uuid.New().String(),
		ContentType: mediaType,
	}

	switch {
	case mediaType == "application/pdf":
		pages, err := n.normalizePDF(ctx, data)
		if err != nil {
			return nil, err
		}
		doc.Pages = pages
	case strings.HasPrefix(mediaType, "image/"):
		page, err := n.normalizeImage(data)
		if err != nil {
			return nil, err
		}
		doc.Pages = []analysis.Page{page}
	default:
		return nil, analysis.NewError(analysis.KindUnsupportedFormat,
			fmt.Sprintf("unsupported content type %q", contentType))
	}

	n.logger.Debug("normalized upload",
		"doc_id", doc.ID, "content_type", mediaType, "pages", len(doc.Pages))
	return doc, nil
}

func (n *Normalizer) normalizeImage(data []byte) (analysis.Page, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return analysis.Page{}, analysis.WrapError(analysis.KindDecodeFailure, "failed to decode image", err)
	}
	b := img.Bounds()
	return analysis.Page{
		Number: 1,
		Image:  img,
		Width:  b.Dx(),
		Height: b.Dy(),
	}, nil
}

func (n *Normalizer) normalizePDF(ctx context.Context, data []byte) ([]analysis.Page, error) {
	pageCount, err := api.PageCount(bytes.NewReader(data), nil)
	if err != nil {
		return nil, analysis.WrapError(analysis.KindDecodeFailure, "failed to read PDF", err)
	}
	if pageCount == 0 {
		return nil, analysis.NewError(analysis.KindDecodeFailure, "PDF has no pages")
	}
	if n.cfg.MaxPages > 0 && pageCount > n.cfg.MaxPages {
		n.logger.Debug("capping PDF page count", "pages", pageCount, "max", n.cfg.MaxPages)
		pageCount = n.cfg.MaxPages
	}

	// The poppler tools want a file on disk. The temp file lives only
	// for the duration of normalization.
	tmpDir, err := os.MkdirTemp("", "prodoc-norm-*")
	if err != nil {
		return nil, analysis.WrapError(analysis.KindInternal, "failed to create temp dir", err)
	}
	defer os.RemoveAll(tmpDir)

	pdfPath := filepath.Join(tmpDir, "upload.pdf")
	if err := os.WriteFile(pdfPath, data, 0o600); err != nil {
		return nil, analysis.WrapError(analysis.KindInternal, "failed to stage PDF", err)
	}

	pages := make([]analysis.Page, pageCount)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())

	for i := 1; i <= pageCount; i++ {
		pageNum := i
		g.Go(func() error {
			page, err := n.renderPage(gctx, pdfPath, tmpDir, pageNum)
			if err != nil {
				return err
			}
			pages[pageNum-1] = page
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if ctx.Err() != nil {
			return nil, analysis.WrapError(analysis.KindTimeout, "normalization cancelled", ctx.Err())
		}
		return nil, analysis.WrapError(analysis.KindDecodeFailure, "failed to rasterize PDF", err)
	}
	return pages, nil
}

// renderPage rasterizes one PDF page with pdftoppm and extracts its
// text layer with pdftotext. A missing text layer is not an error.
func (n *Normalizer) renderPage(ctx context.Context, pdfPath, tmpDir string, pageNum int) (analysis.Page, error) {
	prefix := filepath.Join(tmpDir, "page-"+strconv.Itoa(pageNum))
	pageStr := strconv.Itoa(pageNum)

	// pdftoppm -png -r <dpi> -f N -l N -singlefile <pdf> <prefix>
	_, stderr, err := n.runner.Run(ctx, n.cfg.Pdftoppm,
		"-png",
		"-r", strconv.Itoa(n.cfg.DPI),
		"-f", pageStr,
		"-l", pageStr,
		"-singlefile",
		pdfPath,
		prefix,
	)
	if err != nil {
		return analysis.Page{}, fmt.Errorf("pdftoppm failed for page %d: %w (stderr: %s)", pageNum, err, stderr)
	}

	raw, err := os.ReadFile(prefix + ".png")
	if err != nil {
		return analysis.Page{}, fmt.Errorf("pdftoppm produced no output for page %d: %w", pageNum, err)
	}
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return analysis.Page{}, fmt.Errorf("failed to decode rendered page %d: %w", pageNum, err)
	}

	// pdftotext -layout -enc UTF-8 -eol unix -f N -l N <pdf> -
	text, _, terr := n.runner.Run(ctx, n.cfg.Pdftotext,
		"-layout", "-enc", "UTF-8", "-eol", "unix",
		"-f", pageStr,
		"-l", pageStr,
		pdfPath,
		"-",
	)
	if terr != nil {
		n.logger.Debug("no text layer for page", "page", pageNum, "error", terr)
		text = nil
	}

	b := img.Bounds()
	return analysis.Page{
		Number: pageNum,
		Image:  img,
		Width:  b.Dx(),
		Height: b.Dy(),
		Text:   strings.TrimRight(string(text), "\f\n "),
	}, nil
}
