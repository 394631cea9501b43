package rag

import "strings"

// Chunking parameters for documentation pages. Sized so each chunk
// stays well inside the embedder's token limit while overlap preserves
// context across chunk boundaries.
const (
	ChunkSize    = 1000
	ChunkOverlap = 50
)

// SplitText splits text into chunks of at most size runes with overlap
// runes carried between consecutive chunks. Breaks prefer paragraph,
// then line, then word boundaries near the chunk end.
func SplitText(text string, size, overlap int) []string {
	if size <= 0 {
		return nil
	}
	if overlap < 0 || overlap >= size {
		overlap = 0
	}

	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}
	if len(runes) <= size {
		if chunk := strings.TrimSpace(text); chunk != "" {
			return []string{chunk}
		}
		return nil
	}

	var chunks []string
	start := 0
	for start < len(runes) {
		end := start + size
		if end >= len(runes) {
			end = len(runes)
		} else {
			end = breakPoint(runes, start, end)
		}

		chunk := strings.TrimSpace(string(runes[start:end]))
		if chunk != "" {
			chunks = append(chunks, chunk)
		}

		if end == len(runes) {
			break
		}
		next := end - overlap
		if next <= start {
			next = end
		}
		start = next
	}
	return chunks
}

// breakPoint picks the best split position at or before end. Searches
// backward through the last quarter of the window for a paragraph
// break, then a newline, then a space, falling back to a hard cut.
func breakPoint(runes []rune, start, end int) int {
	floor := end - (end-start)/4
	if floor < start+1 {
		floor = start + 1
	}

	for i := end; i > floor; i-- {
		if i >= 2 && runes[i-1] == '\n' && runes[i-2] == '\n' {
			return i
		}
	}
	for i := end; i > floor; i-- {
		if runes[i-1] == '\n' {
			return i
		}
	}
	for i := end; i > floor; i-- {
		if runes[i-1] == ' ' {
			return i
		}
	}
	return end
}

// pageTitle returns the first level-one heading of a markdown page, or
// empty when none exists.
func pageTitle(content string) string {
	for line := range strings.Lines(content) {
		trimmed := strings.TrimSpace(line)
		if after, ok := strings.CutPrefix(trimmed, "# "); ok {
			return strings.TrimSpace(after)
		}
	}
	return ""
}
