// Package rag wires the knowledge store into Genkit retrieval: a
// retriever bridge for generation-time lookups and an indexer that
// turns a documentation tree into embedded chunks.
package rag

import (
	"context"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"

	"github.com/chatdocs/chatdocs/internal/knowledge"
)

// Searcher is the part of knowledge.Store the retriever needs.
type Searcher interface {
	Search(ctx context.Context, query string, opts ...knowledge.SearchOption) ([]knowledge.Result, error)
}

// Retriever bridges the knowledge store to the Genkit ai.Retriever
// interface.
type Retriever struct {
	store Searcher
}

// New creates a Retriever over the given store.
func New(store Searcher) *Retriever {
	return &Retriever{store: store}
}

// DefineCorpus registers a Genkit retriever scoped to one corpus.
// Callers can override the result count per request via the "k" option.
func (r *Retriever) DefineCorpus(g *genkit.Genkit, name, corpus string) ai.Retriever {
	return genkit.DefineRetriever(
		g, name, nil,
		func(ctx context.Context, req *ai.RetrieverRequest) (*ai.RetrieverResponse, error) {
			queryText := extractQueryText(req)
			topK := extractTopK(req, knowledge.DefaultTopK)

			results, err := r.store.Search(ctx, queryText,
				knowledge.WithTopK(topK),
				knowledge.WithCorpus(corpus),
			)
			if err != nil {
				return nil, err
			}

			return &ai.RetrieverResponse{
				Documents: convertToGenkitDocuments(results),
			}, nil
		},
	)
}

// extractQueryText extracts text from RetrieverRequest.Query.
func extractQueryText(req *ai.RetrieverRequest) string {
	if req.Query != nil && len(req.Query.Content) > 0 {
		return req.Query.Content[0].Text
	}
	return ""
}

// maxTopK caps the per-request result count.
const maxTopK = 10

// extractTopK reads the "k" option from the request, falling back to
// defaultK when absent, unparseable, or out of the [1, maxTopK] range.
func extractTopK(req *ai.RetrieverRequest, defaultK int) int {
	opts, ok := req.Options.(map[string]any)
	if !ok {
		return defaultK
	}
	k, exists := opts["k"]
	if !exists {
		return defaultK
	}

	var kInt int
	switch v := k.(type) {
	case int:
		kInt = v
	case int32:
		kInt = int(v)
	case int64:
		kInt = int(v)
	case float64:
		kInt = int(v)
	case float32:
		kInt = int(v)
	case string:
		kInt = parseIntSafe(v)
	default:
		return defaultK
	}

	if kInt >= 1 && kInt <= maxTopK {
		return kInt
	}
	return defaultK
}

// parseIntSafe parses a small positive decimal, returning 0 on any
// non-digit or on values past maxTopK.
func parseIntSafe(s string) int {
	result := 0
	for _, ch := range s {
		if ch < '0' || ch > '9' {
			return 0
		}
		result = result*10 + int(ch-'0')
		if result > maxTopK {
			return 0
		}
	}
	return result
}

// convertToGenkitDocuments converts search results to Genkit documents,
// carrying the similarity score in metadata.
func convertToGenkitDocuments(results []knowledge.Result) []*ai.Document {
	docs := make([]*ai.Document, len(results))
	for i, result := range results {
		metadata := make(map[string]any, len(result.Document.Metadata)+1)
		for k, v := range result.Document.Metadata {
			metadata[k] = v
		}
		metadata["similarity"] = result.Similarity

		docs[i] = ai.DocumentFromText(result.Document.Content, metadata)
	}
	return docs
}
