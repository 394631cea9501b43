package rag

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/chatdocs/chatdocs/internal/knowledge"
)

// fakeStore records indexer calls in memory.
type fakeStore struct {
	docs     map[string]knowledge.Document
	corpora  map[string]int
	addErr   error
	deleted  []string
	recorded []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		docs:    make(map[string]knowledge.Document),
		corpora: make(map[string]int),
	}
}

func (f *fakeStore) Add(_ context.Context, doc knowledge.Document) error {
	if f.addErr != nil {
		return f.addErr
	}
	f.docs[doc.ID] = doc
	return nil
}

func (f *fakeStore) DeleteCorpus(_ context.Context, corpus string) (int64, error) {
	f.deleted = append(f.deleted, corpus)
	var n int64
	for id, doc := range f.docs {
		if doc.Corpus == corpus {
			delete(f.docs, id)
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) RecordCorpus(_ context.Context, label, source string, chunkCount int) error {
	f.recorded = append(f.recorded, label)
	f.corpora[label] = chunkCount
	return nil
}

func writeDocsTree(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	files := map[string]string{
		"routing.md":         "# Routing\n\nThe app router maps folders to URL segments.\n",
		"guides/caching.mdx": "# Caching\n\nFetch results are cached per request.\n",
		"notes.txt":          "not documentation",
		".hidden/secret.md":  "# Hidden\n\nshould be skipped\n",
	}
	for name, content := range files {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	return dir
}

func TestIndexWalksMarkdownOnly(t *testing.T) {
	store := newFakeStore()
	idx := NewIndexer(store, nil)

	dir := writeDocsTree(t)
	result, err := idx.Index(context.Background(), dir, "nextjs")
	if err != nil {
		t.Fatalf("Index: %v", err)
	}

	if result.FilesIndexed != 2 {
		t.Errorf("FilesIndexed = %d, want 2", result.FilesIndexed)
	}
	if result.ChunksAdded != 2 {
		t.Errorf("ChunksAdded = %d, want 2", result.ChunksAdded)
	}
	if result.FilesSkipped == 0 {
		t.Error("expected the .txt file to be skipped")
	}

	for id, doc := range store.docs {
		if strings.Contains(id, "secret") {
			t.Errorf("hidden directory was indexed: %s", id)
		}
		if doc.Corpus != "nextjs" {
			t.Errorf("document %s has corpus %q", id, doc.Corpus)
		}
		if doc.Metadata["path"] == "" || doc.Metadata["chunk"] == "" {
			t.Errorf("document %s missing metadata: %v", id, doc.Metadata)
		}
	}

	if got := store.corpora["nextjs"]; got != result.ChunksAdded {
		t.Errorf("recorded chunk count = %d, want %d", got, result.ChunksAdded)
	}
}

func TestIndexReplacesCorpus(t *testing.T) {
	store := newFakeStore()
	store.docs["nextjs/stale.md#0"] = knowledge.Document{ID: "nextjs/stale.md#0", Corpus: "nextjs"}
	idx := NewIndexer(store, nil)

	dir := writeDocsTree(t)
	if _, err := idx.Index(context.Background(), dir, "nextjs"); err != nil {
		t.Fatalf("Index: %v", err)
	}

	if _, stale := store.docs["nextjs/stale.md#0"]; stale {
		t.Error("stale document survived re-index")
	}
	if len(store.deleted) != 1 || store.deleted[0] != "nextjs" {
		t.Errorf("deleted corpora = %v", store.deleted)
	}
}

func TestIndexChunkMetadataAndIDs(t *testing.T) {
	store := newFakeStore()
	idx := NewIndexer(store, nil)

	dir := t.TempDir()
	long := "# Big Page\n\n" + strings.Repeat("Each segment of the route tree maps to a folder. ", 60)
	if err := os.WriteFile(filepath.Join(dir, "big.md"), []byte(long), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	result, err := idx.Index(context.Background(), dir, "nextjs")
	if err != nil {
		t.Fatalf("Index: %v", err)
	}
	if result.ChunksAdded < 2 {
		t.Fatalf("expected multiple chunks, got %d", result.ChunksAdded)
	}

	if _, ok := store.docs["nextjs/big.md#0"]; !ok {
		t.Errorf("missing first chunk ID, have %v", keys(store.docs))
	}
	for _, doc := range store.docs {
		if doc.Metadata["title"] != "Big Page" {
			t.Errorf("chunk %s title = %q, want Big Page", doc.ID, doc.Metadata["title"])
		}
	}
}

func TestIndexRequiresCorpus(t *testing.T) {
	idx := NewIndexer(newFakeStore(), nil)
	if _, err := idx.Index(context.Background(), t.TempDir(), "  "); err == nil {
		t.Fatal("expected error for blank corpus")
	}
}

func TestIndexAddFailuresCounted(t *testing.T) {
	store := newFakeStore()
	store.addErr = errors.New("embedder down")
	idx := NewIndexer(store, nil)

	dir := writeDocsTree(t)
	result, err := idx.Index(context.Background(), dir, "nextjs")
	if err != nil {
		t.Fatalf("Index: %v", err)
	}
	if result.ChunksAdded != 0 {
		t.Errorf("ChunksAdded = %d, want 0", result.ChunksAdded)
	}
	if result.ChunksFailed == 0 {
		t.Error("expected failed chunks to be counted")
	}
}

func keys(m map[string]knowledge.Document) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
