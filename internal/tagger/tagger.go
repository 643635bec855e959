// Package tagger attaches identity and provenance metadata to chunks.
package tagger

import (
	"fmt"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/kitsunelab/atsume/internal/models"
)

// Tag wraps each chunk text in an IndexEntry carrying the source filename,
// its content fingerprint, a stable ordinal chunk id, and a fresh unique id.
// Ordinals are dense and zero-based in document order; the zero-padded chunk
// id sorts lexicographically for up to 1000 chunks. Unique ids are run-scoped
// and regenerated on every call.
func Tag(chunks []string, source, fp string) []models.IndexEntry {
	if len(chunks) == 0 {
		return nil
	}
	base := filepath.Base(source)
	entries := make([]models.IndexEntry, len(chunks))
	for idx, text := range chunks {
		entries[idx] = models.IndexEntry{
			Meta: models.ChunkMetadata{
				Source:      source,
				Fingerprint: fp,
				Ordinal:     idx,
				ChunkID:     fmt.Sprintf("%s_%03d", base, idx),
				UniqueID:    uuid.NewString(),
			},
			Text: text,
		}
	}
	return entries
}
