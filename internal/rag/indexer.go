package rag

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"github.com/chatdocs/chatdocs/internal/knowledge"
)

// ErrIndexInProgress indicates another index run holds the corpus lock.
var ErrIndexInProgress = errors.New("index already in progress for this corpus")

// markdownExtensions are the documentation page types the indexer reads.
var markdownExtensions = map[string]bool{
	".md":  true,
	".mdx": true,
}

// IndexerStore is the part of knowledge.Store the indexer needs.
type IndexerStore interface {
	Add(ctx context.Context, doc knowledge.Document) error
	DeleteCorpus(ctx context.Context, corpus string) (int64, error)
	RecordCorpus(ctx context.Context, label, source string, chunkCount int) error
}

// IndexResult summarizes one index run.
type IndexResult struct {
	FilesIndexed int
	FilesSkipped int
	ChunksAdded  int
	ChunksFailed int
	Duration     time.Duration
}

// Indexer walks a documentation tree and replaces a corpus with its
// embedded chunks.
type Indexer struct {
	store  IndexerStore
	logger *slog.Logger
}

// NewIndexer creates an Indexer over the given store.
func NewIndexer(store IndexerStore, logger *slog.Logger) *Indexer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Indexer{store: store, logger: logger}
}

// Index re-indexes a corpus from the markdown tree rooted at dirPath.
// The previous contents of the corpus are removed first, so an index
// run is a full replacement. A per-corpus file lock rejects concurrent
// runs with ErrIndexInProgress.
func (idx *Indexer) Index(ctx context.Context, dirPath, corpus string) (*IndexResult, error) {
	if strings.TrimSpace(corpus) == "" {
		return nil, fmt.Errorf("corpus label is required")
	}

	absDir, err := filepath.Abs(dirPath)
	if err != nil {
		return nil, fmt.Errorf("resolving directory path: %w", err)
	}

	lock := flock.New(filepath.Join(os.TempDir(), "chatdocs-index-"+corpus+".lock"))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquiring index lock: %w", err)
	}
	if !locked {
		return nil, ErrIndexInProgress
	}
	defer func() {
		_ = lock.Unlock()
	}()

	// os.Root confines reads to the documentation tree even when the
	// tree contains symlinks pointing outside it.
	root, err := os.OpenRoot(absDir)
	if err != nil {
		return nil, fmt.Errorf("opening documentation root: %w", err)
	}
	defer func() {
		_ = root.Close()
	}()

	deleted, err := idx.store.DeleteCorpus(ctx, corpus)
	if err != nil {
		return nil, fmt.Errorf("clearing corpus %q: %w", corpus, err)
	}
	if deleted > 0 {
		idx.logger.Info("cleared previous corpus contents", "corpus", corpus, "documents", deleted)
	}

	start := time.Now()
	result := &IndexResult{}

	err = filepath.WalkDir(absDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		name := d.Name()
		if d.IsDir() {
			if path != absDir && (strings.HasPrefix(name, ".") || name == "node_modules") {
				return filepath.SkipDir
			}
			return nil
		}

		if !markdownExtensions[strings.ToLower(filepath.Ext(name))] {
			result.FilesSkipped++
			return nil
		}

		relPath, err := filepath.Rel(absDir, path)
		if err != nil {
			result.FilesSkipped++
			return nil
		}

		content, err := root.ReadFile(relPath)
		if err != nil {
			idx.logger.Warn("unreadable documentation page", "path", relPath, "error", err)
			result.FilesSkipped++
			return nil
		}

		added, failed := idx.indexPage(ctx, corpus, relPath, string(content))
		result.ChunksAdded += added
		result.ChunksFailed += failed
		if added > 0 {
			result.FilesIndexed++
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking documentation tree: %w", err)
	}

	if err := idx.store.RecordCorpus(ctx, corpus, absDir, result.ChunksAdded); err != nil {
		return nil, err
	}

	result.Duration = time.Since(start)
	idx.logger.Info("index run finished",
		"corpus", corpus,
		"files", result.FilesIndexed,
		"chunks", result.ChunksAdded,
		"failed", result.ChunksFailed,
		"duration", result.Duration,
	)
	return result, nil
}

// indexPage splits one page and adds its chunks to the store. Returns
// the number of chunks added and failed.
func (idx *Indexer) indexPage(ctx context.Context, corpus, relPath, content string) (added, failed int) {
	title := pageTitle(content)
	chunks := SplitText(content, ChunkSize, ChunkOverlap)

	for i, chunk := range chunks {
		doc := knowledge.Document{
			ID:      corpus + "/" + filepath.ToSlash(relPath) + "#" + strconv.Itoa(i),
			Corpus:  corpus,
			Content: chunk,
			Metadata: map[string]string{
				"path":  filepath.ToSlash(relPath),
				"title": title,
				"chunk": strconv.Itoa(i),
			},
		}
		if err := idx.store.Add(ctx, doc); err != nil {
			idx.logger.Warn("adding chunk failed", "id", doc.ID, "error", err)
			failed++
			continue
		}
		added++
	}
	return added, failed
}
