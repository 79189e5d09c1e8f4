// Package chunker splits extracted text into overlapping passages sized for
// embedding and context-window limits.
package chunker

import (
	"strings"

	"policyqa/internal/domain"
)

// separators are tried in order, from coarse to fine. Pieces that still
// exceed the chunk size after the last separator are hard-cut by rune count.
var separators = []string{"\n\n", "\n", ". ", " "}

// RecursiveChunker splits text at natural breaks when available, falling
// back to hard character cuts. Consecutive chunks share a configurable
// overlap; the union of chunks (overlaps excluded) covers the input exactly.
type RecursiveChunker struct {
	chunkSize int
	overlap   int
}

// NewRecursiveChunker creates a chunker with the given size and overlap,
// both measured in runes.
func NewRecursiveChunker(chunkSize, overlap int) *RecursiveChunker {
	if chunkSize <= 0 {
		chunkSize = 1000
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= chunkSize {
		overlap = chunkSize / 4
	}
	return &RecursiveChunker{chunkSize: chunkSize, overlap: overlap}
}

// Chunk splits text into chunks with contiguous ordinals starting at 0.
// Text shorter than the chunk size yields exactly one chunk; empty text
// fails with EmptyDocumentError.
func (c *RecursiveChunker) Chunk(fingerprint, text string) ([]domain.Chunk, error) {
	if strings.TrimSpace(text) == "" {
		return nil, &domain.EmptyDocumentError{Fingerprint: fingerprint}
	}
	pieces := splitRecursive(text, separators, c.chunkSize)
	merged := mergePieces(pieces, c.chunkSize)

	chunks := make([]domain.Chunk, 0, len(merged))
	for i, body := range merged {
		if i > 0 && c.overlap > 0 {
			body = tailRunes(merged[i-1], c.overlap) + body
		}
		chunks = append(chunks, domain.Chunk{
			Fingerprint: fingerprint,
			Ordinal:     i,
			Text:        body,
		})
	}
	return chunks, nil
}

// splitRecursive breaks text into pieces no longer than size runes,
// preferring the coarsest separator that applies. Separators stay attached
// to the preceding piece so no characters are lost.
func splitRecursive(text string, seps []string, size int) []string {
	if runeLen(text) <= size {
		return []string{text}
	}
	if len(seps) == 0 {
		return hardCut(text, size)
	}
	parts := strings.SplitAfter(text, seps[0])
	if len(parts) == 1 {
		return splitRecursive(text, seps[1:], size)
	}
	var out []string
	for _, p := range parts {
		if p == "" {
			continue
		}
		if runeLen(p) > size {
			out = append(out, splitRecursive(p, seps[1:], size)...)
		} else {
			out = append(out, p)
		}
	}
	return out
}

// mergePieces greedily joins adjacent pieces while the result stays within
// the chunk size.
func mergePieces(pieces []string, size int) []string {
	var out []string
	var current strings.Builder
	currentLen := 0
	for _, p := range pieces {
		pl := runeLen(p)
		if currentLen > 0 && currentLen+pl > size {
			out = append(out, current.String())
			current.Reset()
			currentLen = 0
		}
		current.WriteString(p)
		currentLen += pl
	}
	if currentLen > 0 {
		out = append(out, current.String())
	}
	return out
}

func hardCut(text string, size int) []string {
	runes := []rune(text)
	var out []string
	for start := 0; start < len(runes); start += size {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		out = append(out, string(runes[start:end]))
	}
	return out
}

func tailRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[len(runes)-n:])
}

func runeLen(s string) int { return len([]rune(s)) }
