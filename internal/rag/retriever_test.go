package rag

import (
	"testing"

	"github.com/firebase/genkit/go/ai"

	"github.com/chatdocs/chatdocs/internal/knowledge"
)

func TestExtractQueryText(t *testing.T) {
	req := &ai.RetrieverRequest{Query: ai.DocumentFromText("how does caching work", nil)}
	if got := extractQueryText(req); got != "how does caching work" {
		t.Errorf("extractQueryText() = %q", got)
	}

	if got := extractQueryText(&ai.RetrieverRequest{}); got != "" {
		t.Errorf("extractQueryText(empty) = %q, want empty", got)
	}
}

func TestExtractTopK(t *testing.T) {
	tests := []struct {
		name    string
		options any
		want    int
	}{
		{"nil options", nil, 4},
		{"int", map[string]any{"k": 7}, 7},
		{"int64", map[string]any{"k": int64(3)}, 3},
		{"float64 from JSON", map[string]any{"k": float64(5)}, 5},
		{"string", map[string]any{"k": "6"}, 6},
		{"zero rejected", map[string]any{"k": 0}, 4},
		{"over cap rejected", map[string]any{"k": 100}, 4},
		{"negative rejected", map[string]any{"k": -2}, 4},
		{"garbage string rejected", map[string]any{"k": "lots"}, 4},
		{"wrong type rejected", map[string]any{"k": true}, 4},
		{"missing key", map[string]any{}, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := &ai.RetrieverRequest{Options: tt.options}
			if got := extractTopK(req, 4); got != tt.want {
				t.Errorf("extractTopK() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestConvertToGenkitDocuments(t *testing.T) {
	results := []knowledge.Result{
		{
			Document: knowledge.Document{
				ID:       "nextjs/docs/routing.md#0",
				Content:  "The app router maps folders to URL segments.",
				Metadata: map[string]string{"path": "docs/routing.md", "title": "Routing"},
			},
			Similarity: 0.91,
		},
	}

	docs := convertToGenkitDocuments(results)
	if len(docs) != 1 {
		t.Fatalf("got %d documents, want 1", len(docs))
	}
	if got := docs[0].Content[0].Text; got != results[0].Document.Content {
		t.Errorf("content = %q", got)
	}
	if got := docs[0].Metadata["path"]; got != "docs/routing.md" {
		t.Errorf("path metadata = %v", got)
	}
	if got := docs[0].Metadata["similarity"]; got != float32(0.91) {
		t.Errorf("similarity metadata = %v", got)
	}
}
