// Package extract pulls ordered page text out of source document files.
package extract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kitsunelab/atsume/internal/models"
)

// Extractor extracts page text from document files. Page boundaries are only
// meaningful for paged formats (PDF); other formats yield a single page.
type Extractor struct{}

// New returns a new Extractor.
func New() *Extractor {
	return &Extractor{}
}

// Extract reads the file at path and returns its pages in document order.
// Returns an error if the file cannot be read or the bytes cannot be parsed.
func (e *Extractor) Extract(path string) ([]models.DocumentPage, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return e.ExtractBytes(content, filepath.Ext(path))
}

// ExtractBytes extracts pages from content based on the given extension
// (leading dot, any case). Unknown extensions are treated as plain text.
func (e *Extractor) ExtractBytes(content []byte, ext string) ([]models.DocumentPage, error) {
	switch strings.ToLower(ext) {
	case ".pdf":
		return extractPDF(content)
	case ".docx":
		return extractDOCX(content)
	case ".xlsx":
		return extractExcel(content)
	default:
		return extractPlain(content)
	}
}
