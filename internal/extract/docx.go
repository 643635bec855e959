package extract

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/kitsunelab/atsume/internal/models"
)

// textNode matches <w:t>...</w:t> runs, with or without attributes
// (e.g. <w:t xml:space="preserve">). Collecting every text node keeps
// content regardless of paragraph or run formatting.
var textNode = regexp.MustCompile(`<w:t[^>]*>([^<]*)</w:t>`)

// extractDOCX reads the OOXML main document part out of the .docx zip and
// joins its text nodes. DOCX has no page concept at this level, so the whole
// body becomes one page.
func extractDOCX(content []byte) ([]models.DocumentPage, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("open DOCX: not a zip: %w", err)
	}
	var docXML []byte
	for _, f := range zr.File {
		if f.Name != "word/document.xml" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open DOCX part %s: %w", f.Name, err)
		}
		docXML, err = io.ReadAll(rc)
		_ = rc.Close()
		if err != nil {
			return nil, fmt.Errorf("read DOCX part %s: %w", f.Name, err)
		}
		break
	}
	if docXML == nil {
		return nil, fmt.Errorf("open DOCX: word/document.xml not found")
	}
	matches := textNode.FindAllStringSubmatch(string(docXML), -1)
	var b strings.Builder
	for _, m := range matches {
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(strings.TrimSpace(m[1]))
	}
	return []models.DocumentPage{{Text: strings.TrimSpace(b.String()), PageNumber: 1}}, nil
}
