// Package knowledge stores embedded documentation chunks in PostgreSQL
// with pgvector and serves cosine-similarity search over them.
package knowledge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pgvector/pgvector-go"
	"google.golang.org/genai"
)

// querier is the common interface satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store manages embedded documents backed by PostgreSQL + pgvector.
//
// Store is safe for concurrent use by multiple goroutines.
type Store struct {
	db       querier
	embedder ai.Embedder
	logger   *slog.Logger
}

// NewStore creates a knowledge Store. db is typically a *pgxpool.Pool.
func NewStore(db querier, embedder ai.Embedder, logger *slog.Logger) (*Store, error) {
	if db == nil {
		return nil, fmt.Errorf("db is required")
	}
	if embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{db: db, embedder: embedder, logger: logger}, nil
}

// embed generates a vector embedding for the given text.
func (s *Store) embed(ctx context.Context, text string) (pgvector.Vector, error) {
	dim := VectorDimension
	resp, err := s.embedder.Embed(ctx, &ai.EmbedRequest{
		Input:   []*ai.Document{ai.DocumentFromText(text, nil)},
		Options: &genai.EmbedContentConfig{OutputDimensionality: &dim},
	})
	if err != nil {
		return pgvector.Vector{}, fmt.Errorf("embedding text: %w", err)
	}
	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Embedding) == 0 {
		return pgvector.Vector{}, fmt.Errorf("empty embedding response")
	}
	return pgvector.NewVector(resp.Embeddings[0].Embedding), nil
}

// Add embeds and upserts one document. Re-indexing the same chunk ID
// replaces its content and embedding in place.
func (s *Store) Add(ctx context.Context, doc Document) error {
	if doc.ID == "" {
		return fmt.Errorf("document ID is required")
	}
	if doc.Content == "" {
		return fmt.Errorf("document %q has no content", doc.ID)
	}

	embedCtx, cancel := context.WithTimeout(ctx, EmbedTimeout)
	defer cancel()

	vec, err := s.embed(embedCtx, doc.Content)
	if err != nil {
		return fmt.Errorf("embedding document %q: %w", doc.ID, err)
	}

	metadataJSON, err := json.Marshal(doc.Metadata)
	if err != nil {
		return fmt.Errorf("marshaling metadata for %q: %w", doc.ID, err)
	}

	_, err = s.db.Exec(ctx,
		`INSERT INTO documents (id, corpus, content, embedding, metadata)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (id) DO UPDATE SET
		   corpus = EXCLUDED.corpus,
		   content = EXCLUDED.content,
		   embedding = EXCLUDED.embedding,
		   metadata = EXCLUDED.metadata`,
		doc.ID, doc.Corpus, doc.Content, vec, metadataJSON,
	)
	if err != nil {
		return fmt.Errorf("upserting document %q: %w", doc.ID, err)
	}

	s.logger.Debug("added document", "id", doc.ID, "corpus", doc.Corpus, "content_length", len(doc.Content))
	return nil
}

// Search embeds the query and returns the nearest documents by cosine
// distance, best match first.
func (s *Store) Search(ctx context.Context, query string, opts ...SearchOption) ([]Result, error) {
	cfg := buildSearchConfig(opts)

	queryCtx, cancel := context.WithTimeout(ctx, cfg.timeout)
	defer cancel()

	vec, err := s.embed(queryCtx, query)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("query embedding timeout: %w", err)
		}
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	sql := `SELECT id, corpus, content, metadata, created_at,
	        1 - (embedding <=> $1) AS similarity
	 FROM documents`
	args := []any{vec}
	if cfg.corpus != "" {
		sql += ` WHERE corpus = $2`
		args = append(args, cfg.corpus)
	}
	sql += fmt.Sprintf(` ORDER BY embedding <=> $1 LIMIT $%d`, len(args)+1)
	args = append(args, cfg.topK)

	rows, err := s.db.Query(queryCtx, sql, args...)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("vector search timeout: %w", err)
		}
		return nil, fmt.Errorf("searching documents: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var (
			doc          Document
			metadataJSON []byte
			similarity   float32
			createdAt    time.Time
		)
		if err := rows.Scan(&doc.ID, &doc.Corpus, &doc.Content, &metadataJSON, &createdAt, &similarity); err != nil {
			return nil, fmt.Errorf("scanning search result: %w", err)
		}
		doc.CreatedAt = createdAt
		if len(metadataJSON) > 0 {
			if err := json.Unmarshal(metadataJSON, &doc.Metadata); err != nil {
				s.logger.Warn("unparseable document metadata", "id", doc.ID, "error", err)
			}
		}
		results = append(results, Result{Document: doc, Similarity: similarity})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating search results: %w", err)
	}
	return results, nil
}

// Count returns the number of documents in a corpus, or in total when
// corpus is empty.
func (s *Store) Count(ctx context.Context, corpus string) (int, error) {
	var count int
	var err error
	if corpus != "" {
		err = s.db.QueryRow(ctx,
			`SELECT COUNT(*) FROM documents WHERE corpus = $1`, corpus).Scan(&count)
	} else {
		err = s.db.QueryRow(ctx, `SELECT COUNT(*) FROM documents`).Scan(&count)
	}
	if err != nil {
		return 0, fmt.Errorf("counting documents: %w", err)
	}
	return count, nil
}

// DeleteCorpus removes every document belonging to a corpus. Used by
// the indexer before a full re-index.
func (s *Store) DeleteCorpus(ctx context.Context, corpus string) (int64, error) {
	if corpus == "" {
		return 0, fmt.Errorf("corpus is required")
	}
	tag, err := s.db.Exec(ctx, `DELETE FROM documents WHERE corpus = $1`, corpus)
	if err != nil {
		return 0, fmt.Errorf("deleting corpus %q: %w", corpus, err)
	}

	s.logger.Debug("deleted corpus documents", "corpus", corpus, "count", tag.RowsAffected())
	return tag.RowsAffected(), nil
}

// RecordCorpus upserts the bookkeeping row written after an index run.
func (s *Store) RecordCorpus(ctx context.Context, label, source string, chunkCount int) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO corpora (label, source, chunk_count, indexed_at)
		 VALUES ($1, $2, $3, now())
		 ON CONFLICT (label) DO UPDATE SET
		   source = EXCLUDED.source,
		   chunk_count = EXCLUDED.chunk_count,
		   indexed_at = EXCLUDED.indexed_at`,
		label, source, chunkCount,
	)
	if err != nil {
		return fmt.Errorf("recording corpus %q: %w", label, err)
	}
	return nil
}
