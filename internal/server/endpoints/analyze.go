package endpoints

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/2005lakshya/prodoc/internal/analysis"
	"github.com/2005lakshya/prodoc/internal/api"
	"github.com/2005lakshya/prodoc/internal/svcctx"
)

// ExtractedField is the wire form of one extracted field.
type ExtractedField struct {
	Field    string `json:"field"`
	Value    string `json:"value"`
	Accuracy int    `json:"accuracy"`
}

// AnalyzeResponse is the wire form of an analysis result.
type AnalyzeResponse struct {
	AnalysisID      string               `json:"analysis_id"`
	OverallAccuracy int                  `json:"overallAccuracy"`
	Issues          []string             `json:"issues"`
	ExtractedInfo   []ExtractedField     `json:"extractedInfo"`
	Highlights      []analysis.Highlight `json:"highlights"`
	RiskScore       int                  `json:"risk_score"`
	Decision        string               `json:"decision"`
	Justification   string               `json:"justification_report"`
	Partial         bool                 `json:"partial"`
}

// toAnalyzeResponse converts an analysis result to the wire shape.
// Slices are never nil so the JSON always carries arrays.
func toAnalyzeResponse(res *analysis.Result) AnalyzeResponse {
	fields := make([]ExtractedField, 0, len(res.Fields))
	for _, f := range res.Fields {
		fields = append(fields, ExtractedField{Field: f.Name, Value: f.Value, Accuracy: f.Confidence})
	}
	issues := res.Issues
	if issues == nil {
		issues = []string{}
	}
	highlights := res.Highlights
	if highlights == nil {
		highlights = []analysis.Highlight{}
	}
	return AnalyzeResponse{
		AnalysisID:      res.ID,
		OverallAccuracy: res.OverallAccuracy,
		Issues:          issues,
		ExtractedInfo:   fields,
		Highlights:      highlights,
		RiskScore:       res.RiskScore,
		Decision:        string(res.Decision),
		Justification:   res.Justification,
		Partial:         res.Partial,
	}
}

// AnalyzeEndpoint handles POST /api/analyze. It accepts either a
// multipart form with a "file" field or a raw body with a Content-Type
// header.
type AnalyzeEndpoint struct{}

var _ api.Endpoint = (*AnalyzeEndpoint)(nil)

func (e *AnalyzeEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/analyze", e.handler
}

func (e *AnalyzeEndpoint) RequiresInit() bool { return true }

func (e *AnalyzeEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	analyzer := svcctx.AnalyzerFrom(r.Context())
	if analyzer == nil {
		writeError(w, http.StatusServiceUnavailable, "analyzer not initialized")
		return
	}

	maxBytes := int64(20 << 20)
	if mgr := svcctx.ConfigFrom(r.Context()); mgr != nil {
		if v := mgr.Get().Limits.MaxUploadBytes; v > 0 {
			maxBytes = v
		}
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)

	data, contentType, err := readUpload(r)
	if err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("upload exceeds %d bytes", maxBytes))
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := analyzer.Analyze(r.Context(), data, contentType)
	if err != nil {
		writeError(w, statusForKind(analysis.KindOf(err)), err.Error())
		return
	}

	writeJSON(w, http.StatusOK, toAnalyzeResponse(result))
}

// readUpload extracts the document bytes and content type from either a
// multipart form or a raw request body.
func readUpload(r *http.Request) ([]byte, string, error) {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return nil, "", fmt.Errorf("invalid Content-Type header: %w", err)
	}

	if mediaType != "multipart/form-data" {
		data, err := io.ReadAll(r.Body)
		if err != nil {
			return nil, "", err
		}
		return data, mediaType, nil
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, "", fmt.Errorf("missing form field %q: %w", "file", err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, "", err
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = mime.TypeByExtension(filepath.Ext(header.Filename))
	}
	return data, contentType, nil
}

// statusForKind maps pipeline error kinds to HTTP status codes.
func statusForKind(kind analysis.Kind) int {
	switch kind {
	case analysis.KindInvalidInput, analysis.KindUnsupportedFormat:
		return http.StatusBadRequest
	case analysis.KindBusy:
		return http.StatusTooManyRequests
	case analysis.KindTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func (e *AnalyzeEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "analyze <file>",
		Short: "Upload a document for analysis",
		Long: `Upload an image or PDF to the running server for analysis.

The server extracts the configured target fields, runs the defect
detectors, and returns a risk score, decision and justification report.

Examples:
  prodoc api analyze invoice.pdf
  prodoc api analyze scan.png -o json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}

			contentType := mime.TypeByExtension(filepath.Ext(args[0]))
			if contentType == "" {
				contentType = http.DetectContentType(data)
			}

			client := api.NewClient(getServerURL())
			var resp AnalyzeResponse
			if err := client.PostFile(cmd.Context(), "/api/analyze", filepath.Base(args[0]), contentType, data, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}
