package extract

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/2005lakshya/prodoc/internal/analysis"
)

func TestParseLLMResult(t *testing.T) {
	tests := []struct {
		name    string
		content string
		value   string
		conf    int
		wantErr bool
	}{
		{
			name:    "plain json",
			content: `{"value": "INV-001", "confidence": 88}`,
			value:   "INV-001",
			conf:    88,
		},
		{
			name:    "code fenced",
			content: "```json\n{\"value\": \"ACME Ltd\", \"confidence\": 95}\n```",
			value:   "ACME Ltd",
			conf:    95,
		},
		{
			name:    "not found",
			content: `{"value": "", "confidence": 0}`,
			value:   "",
			conf:    0,
		},
		{
			name:    "empty output",
			content: "",
			wantErr: true,
		},
		{
			name:    "not json",
			content: "the invoice id is INV-001",
			wantErr: true,
		},
		{
			name:    "confidence out of range",
			content: `{"value": "x", "confidence": 150}`,
			wantErr: true,
		},
		{
			name:    "missing confidence",
			content: `{"value": "x"}`,
			wantErr: true,
		},
		{
			name:    "extra properties",
			content: `{"value": "x", "confidence": 10, "reason": "because"}`,
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			value, conf, err := parseLLMResult(tt.content)
			if tt.wantErr {
				if err == nil {
					t.Fatal("parseLLMResult() returned nil error")
				}
				return
			}
			if err != nil {
				t.Fatalf("parseLLMResult() error: %v", err)
			}
			if value != tt.value || conf != tt.conf {
				t.Errorf("parseLLMResult() = %q/%d, want %q/%d", value, conf, tt.value, tt.conf)
			}
		})
	}
}

// fakeCompletion mimics the chat completions response shape.
func fakeCompletion(content string) map[string]any {
	return map[string]any{
		"id":      "chatcmpl-test",
		"object":  "chat.completion",
		"created": 0,
		"model":   "gpt-4o-mini",
		"choices": []map[string]any{
			{
				"index":         0,
				"finish_reason": "stop",
				"message": map[string]any{
					"role":    "assistant",
					"content": content,
				},
			},
		},
	}
}

func TestLLMExtractor(t *testing.T) {
	t.Run("extracts from model response", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(fakeCompletion(`{"value": "INV-2024-0042", "confidence": 91}`))
		}))
		defer srv.Close()

		e := NewLLMExtractor(LLMConfig{
			APIKey:    "test-key",
			BaseURL:   srv.URL,
			RateLimit: 1000,
		}, nil)

		got, err := e.Extract(context.Background(), textDoc(sampleInvoiceText), Spec{Name: "Invoice ID"})
		if err != nil {
			t.Fatalf("Extract() error: %v", err)
		}
		if got.Value != "INV-2024-0042" || got.Confidence != 91 {
			t.Errorf("got %q/%d, want INV-2024-0042/91", got.Value, got.Confidence)
		}
	})

	t.Run("malformed model output fails the field", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(fakeCompletion("not json at all"))
		}))
		defer srv.Close()

		e := NewLLMExtractor(LLMConfig{
			APIKey:    "test-key",
			BaseURL:   srv.URL,
			RateLimit: 1000,
		}, nil)

		if _, err := e.Extract(context.Background(), textDoc("some text"), Spec{Name: "Date"}); err == nil {
			t.Error("Extract() with malformed output returned nil error")
		}
	})

	t.Run("empty text layer short-circuits", func(t *testing.T) {
		// No server: a request would fail, so reaching the API is a bug.
		e := NewLLMExtractor(LLMConfig{APIKey: "test-key", BaseURL: "http://127.0.0.1:1"}, nil)

		doc := &analysis.Document{ID: "img", Pages: []analysis.Page{{Number: 1}}}
		got, err := e.Extract(context.Background(), doc, Spec{Name: "Invoice ID"})
		if err != nil {
			t.Fatalf("Extract() error: %v", err)
		}
		if got.Confidence != 0 || got.Value != "" {
			t.Errorf("got %q/%d, want empty/0", got.Value, got.Confidence)
		}
	})
}
