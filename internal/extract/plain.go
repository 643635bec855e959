package extract

import (
	"strings"
	"unicode/utf8"

	"github.com/kitsunelab/atsume/internal/models"
)

// extractPlain returns the content as a single page, replacing invalid UTF-8
// sequences with the replacement character.
func extractPlain(content []byte) ([]models.DocumentPage, error) {
	text := string(content)
	if !utf8.ValidString(text) {
		text = strings.ToValidUTF8(text, "�")
	}
	return []models.DocumentPage{{Text: text, PageNumber: 1}}, nil
}
