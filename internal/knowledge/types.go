package knowledge

import "time"

// VectorDimension is the embedding width stored in the documents table.
// Must match the vector(N) column in the schema.
const VectorDimension int32 = 768

// Timeouts for embedding and vector search calls.
const (
	EmbedTimeout  = 30 * time.Second
	SearchTimeout = 10 * time.Second
)

// DefaultTopK is the number of results returned when WithTopK is not given.
const DefaultTopK = 4

// Document is one indexed chunk of source material.
type Document struct {
	ID        string
	Corpus    string
	Content   string
	Metadata  map[string]string
	CreatedAt time.Time
}

// Result is a single search hit with its cosine similarity score.
type Result struct {
	Document   Document
	Similarity float32
}

// SearchOption configures Search via the functional options pattern.
type SearchOption func(*searchConfig)

type searchConfig struct {
	topK    int
	corpus  string
	timeout time.Duration
}

// WithTopK sets the maximum number of results to return.
func WithTopK(k int) SearchOption {
	return func(c *searchConfig) {
		if k > 0 {
			c.topK = k
		}
	}
}

// WithCorpus restricts search to documents from one corpus.
func WithCorpus(label string) SearchOption {
	return func(c *searchConfig) {
		c.corpus = label
	}
}

// WithTimeout overrides the default search timeout.
func WithTimeout(d time.Duration) SearchOption {
	return func(c *searchConfig) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func buildSearchConfig(opts []SearchOption) *searchConfig {
	cfg := &searchConfig{
		topK:    DefaultTopK,
		timeout: SearchTimeout,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}
