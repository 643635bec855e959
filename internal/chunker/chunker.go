// Package chunker splits normalized text into overlapping bounded segments.
package chunker

import (
	"strings"
	"unicode/utf8"

	"github.com/kitsunelab/atsume/internal/models"
)

// separators in break-preference order: paragraph, sentence, word.
var separators = []string{"\n\n", ". ", " "}

// Chunker splits text into chunks of at most maxSize characters with a fixed
// overlap between consecutive chunks. Boundaries are deterministic for a
// given text and configuration.
type Chunker struct {
	maxSize int
	overlap int
}

// New creates a chunker with the given size and overlap (in characters).
func New(maxSize, overlap int) *Chunker {
	if maxSize <= 0 {
		maxSize = 1500
	}
	if overlap < 0 || overlap >= maxSize {
		overlap = maxSize / 10
	}
	return &Chunker{maxSize: maxSize, overlap: overlap}
}

// Split chunks the concatenated text of pages, preserving document order.
func (c *Chunker) Split(pages []models.DocumentPage) []string {
	parts := make([]string, 0, len(pages))
	for _, p := range pages {
		if t := strings.TrimSpace(p.Text); t != "" {
			parts = append(parts, t)
		}
	}
	return c.SplitText(strings.Join(parts, "\n\n"))
}

// SplitText chunks a single text. Empty or whitespace-only input yields nil.
func (c *Chunker) SplitText(text string) []string {
	runes := []rune(strings.TrimSpace(text))
	if len(runes) == 0 {
		return nil
	}
	var chunks []string
	start := 0
	for start < len(runes) {
		if len(runes)-start <= c.maxSize {
			if t := strings.TrimSpace(string(runes[start:])); t != "" {
				chunks = append(chunks, t)
			}
			break
		}
		window := string(runes[start : start+c.maxSize])
		cut := breakPoint(window)
		if cut <= 0 {
			cut = c.maxSize
		}
		if t := strings.TrimSpace(string(runes[start : start+cut])); t != "" {
			chunks = append(chunks, t)
		}
		next := start + cut - c.overlap
		if next <= start {
			next = start + cut
		}
		start = next
	}
	return chunks
}

// breakPoint returns the rune offset just after the last occurrence of the
// highest-priority separator present in window, or -1 when none occurs.
func breakPoint(window string) int {
	for _, sep := range separators {
		if b := strings.LastIndex(window, sep); b > 0 {
			return utf8.RuneCountInString(window[:b]) + utf8.RuneCountInString(sep)
		}
	}
	return -1
}
