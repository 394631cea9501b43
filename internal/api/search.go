package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/chatdocs/chatdocs/internal/knowledge"
)

const msgMissingQuery = "Please provide the search query"

type searchResultJSON struct {
	Content    string  `json:"content"`
	Path       string  `json:"path,omitempty"`
	Title      string  `json:"title,omitempty"`
	Similarity float32 `json:"similarity"`
}

type searchHandler struct {
	logger      *slog.Logger
	searcher    DocumentSearcher
	corpusLabel string
}

// search runs a direct similarity query against the documentation
// corpus. q is required; k optionally overrides the result count.
func (h *searchHandler) search(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		writeError(w, http.StatusBadRequest, msgMissingQuery, h.logger)
		return
	}

	opts := []knowledge.SearchOption{knowledge.WithCorpus(h.corpusLabel)}
	if kStr := r.URL.Query().Get("k"); kStr != "" {
		if k, err := strconv.Atoi(kStr); err == nil {
			opts = append(opts, knowledge.WithTopK(k))
		}
	}

	results, err := h.searcher.Search(r.Context(), query, opts...)
	if err != nil {
		h.logger.Error("searching documents", "error", err)
		writeError(w, http.StatusInternalServerError, msgStreamFailed, h.logger)
		return
	}

	out := make([]searchResultJSON, 0, len(results))
	for _, res := range results {
		out = append(out, searchResultJSON{
			Content:    res.Document.Content,
			Path:       res.Document.Metadata["path"],
			Title:      res.Document.Metadata["title"],
			Similarity: res.Similarity,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": out}, h.logger)
}
