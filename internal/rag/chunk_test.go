package rag

import (
	"strings"
	"testing"
)

func TestSplitTextShortInput(t *testing.T) {
	chunks := SplitText("a short page", ChunkSize, ChunkOverlap)
	if len(chunks) != 1 || chunks[0] != "a short page" {
		t.Errorf("chunks = %v, want single chunk", chunks)
	}
}

func TestSplitTextEmpty(t *testing.T) {
	if chunks := SplitText("", ChunkSize, ChunkOverlap); chunks != nil {
		t.Errorf("chunks = %v, want nil", chunks)
	}
	if chunks := SplitText("   \n  ", ChunkSize, ChunkOverlap); chunks != nil {
		t.Errorf("whitespace-only chunks = %v, want nil", chunks)
	}
}

func TestSplitTextRespectsSize(t *testing.T) {
	text := strings.Repeat("lorem ipsum dolor sit amet ", 200)
	chunks := SplitText(text, ChunkSize, ChunkOverlap)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for i, chunk := range chunks {
		if n := len([]rune(chunk)); n > ChunkSize {
			t.Errorf("chunk %d is %d runes, max %d", i, n, ChunkSize)
		}
	}
}

func TestSplitTextPrefersParagraphBreaks(t *testing.T) {
	para := strings.Repeat("x", 400)
	text := para + "\n\n" + para + "\n\n" + para
	chunks := SplitText(text, 1000, 50)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	// The first split lands on the paragraph boundary after the second
	// paragraph, not mid-paragraph.
	if want := para + "\n\n" + para; chunks[0] != want {
		t.Errorf("first chunk is %d runes, want the first two paragraphs (%d runes)",
			len([]rune(chunks[0])), len([]rune(want)))
	}
}

func TestSplitTextOverlap(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 400; i++ {
		b.WriteString("word ")
	}
	chunks := SplitText(b.String(), 500, 50)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	// Consecutive chunks share text: the head of each later chunk
	// appears near the tail of its predecessor.
	for i := 1; i < len(chunks); i++ {
		head := chunks[i]
		if len(head) > 20 {
			head = head[:20]
		}
		if !strings.Contains(chunks[i-1], strings.TrimSpace(head)) {
			t.Errorf("chunk %d head %q not found in previous chunk", i, head)
		}
	}
}

func TestSplitTextNoOverlapWhenInvalid(t *testing.T) {
	text := strings.Repeat("a", 30)
	chunks := SplitText(text, 10, 15)
	var total int
	for _, c := range chunks {
		total += len(c)
	}
	if total != 30 {
		t.Errorf("invalid overlap should be ignored, total runes = %d, want 30", total)
	}
}

func TestPageTitle(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"plain heading", "# Routing\n\nbody", "Routing"},
		{"heading after frontmatter", "---\nnav: 1\n---\n\n# Caching\n", "Caching"},
		{"no heading", "just text\n", ""},
		{"subheading ignored", "## Not a title\n# Real Title\n", "Real Title"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := pageTitle(tt.content); got != tt.want {
				t.Errorf("pageTitle() = %q, want %q", got, tt.want)
			}
		})
	}
}
