package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"golang.org/x/time/rate"

	"github.com/2005lakshya/prodoc/internal/analysis"
)

// LLMName is the capability name of the model-backed extractor.
const LLMName = "llm"

const llmDefaultModel = "gpt-4o-mini"

// Model responses must match this shape before they are trusted.
const llmResultSchema = `{
	"type": "object",
	"required": ["value", "confidence"],
	"properties": {
		"value": {"type": "string"},
		"confidence": {"type": "integer", "minimum": 0, "maximum": 100}
	},
	"additionalProperties": false
}`

var llmSchema = jsonschema.MustCompileString("llm_field.json", llmResultSchema)

const llmSystemPrompt = `You extract a single named field from document text.
Respond with JSON only: {"value": "<extracted value>", "confidence": <0-100>}.
Use confidence 0 and an empty value when the field is absent.`

// maxPromptChars caps how much document text is sent per field.
const maxPromptChars = 6000

// LLMConfig holds settings for the model-backed extractor.
type LLMConfig struct {
	APIKey     string
	Model      string
	BaseURL    string        // Optional (tests)
	RateLimit  float64       // Requests per second, default 2
	MaxRetries int           // Default 3
	Timeout    time.Duration // Per-call HTTP timeout, default 30s
	HTTPClient *http.Client  // Optional (tests)
}

// LLMExtractor extracts fields by asking a chat model for a structured
// answer. Responses are schema-validated; anything malformed counts as
// an extraction failure for that field only.
type LLMExtractor struct {
	client     openai.Client
	model      string
	limiter    *rate.Limiter
	maxRetries int
	logger     *slog.Logger
}

// NewLLMExtractor creates the model-backed extractor.
func NewLLMExtractor(cfg LLMConfig, logger *slog.Logger) *LLMExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Model == "" {
		cfg.Model = llmDefaultModel
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = 2.0
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithHTTPClient(httpClient),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &LLMExtractor{
		client:     openai.NewClient(opts...),
		model:      cfg.Model,
		limiter:    rate.NewLimiter(rate.Limit(cfg.RateLimit), 1),
		maxRetries: cfg.MaxRetries,
		logger:     logger,
	}
}

func (e *LLMExtractor) Name() string { return LLMName }

// Extract asks the model for the field value. Documents without a text
// layer short-circuit to a not-found result rather than burning a call.
func (e *LLMExtractor) Extract(ctx context.Context, doc *analysis.Document, spec Spec) (analysis.FieldResult, error) {
	res := analysis.FieldResult{Name: spec.Name}

	text := strings.TrimSpace(doc.Text())
	if text == "" {
		return res, nil
	}
	if len(text) > maxPromptChars {
		text = text[:maxPromptChars]
	}

	if err := e.limiter.Wait(ctx); err != nil {
		return res, err
	}

	prompt := fmt.Sprintf("Field: %s\n\nDocument text:\n%s", spec.Name, text)

	var content string
	err := retry.Do(
		func() error {
			completion, err := e.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
				Model: openai.ChatModel(e.model),
				Messages: []openai.ChatCompletionMessageParamUnion{
					openai.SystemMessage(llmSystemPrompt),
					openai.UserMessage(prompt),
				},
				Temperature: openai.Float(0),
			})
			if err != nil {
				return err
			}
			if len(completion.Choices) == 0 {
				return fmt.Errorf("model returned no choices")
			}
			content = completion.Choices[0].Message.Content
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(uint(e.maxRetries)),
		retry.Delay(500*time.Millisecond),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return res, fmt.Errorf("llm call failed for field %q: %w", spec.Name, err)
	}

	value, confidence, err := parseLLMResult(content)
	if err != nil {
		e.logger.Debug("rejected malformed llm output", "field", spec.Name, "error", err)
		return res, fmt.Errorf("invalid llm output for field %q: %w", spec.Name, err)
	}

	res.Value = value
	res.Confidence = analysis.Clamp(confidence)
	return res, nil
}

// parseLLMResult decodes and schema-validates a model response,
// tolerating markdown code fences around the JSON.
func parseLLMResult(content string) (string, int, error) {
	raw := stripCodeFences(content)
	if raw == "" {
		return "", 0, fmt.Errorf("empty model output")
	}

	var generic any
	if err := json.Unmarshal([]byte(raw), &generic); err != nil {
		return "", 0, fmt.Errorf("not valid JSON: %w", err)
	}
	if err := llmSchema.Validate(generic); err != nil {
		return "", 0, fmt.Errorf("schema validation failed: %w", err)
	}

	var parsed struct {
		Value      string `json:"value"`
		Confidence int    `json:"confidence"`
	}
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return "", 0, err
	}
	return parsed.Value, parsed.Confidence, nil
}

func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx >= 0 {
			s = s[idx+1:]
		}
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	return strings.TrimSpace(s)
}
