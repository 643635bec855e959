package tagger

import (
	"fmt"
	"sort"
	"testing"
)

func TestTag(t *testing.T) {
	chunks := []string{"first", "second", "third"}
	entries := Tag(chunks, "paper1.pdf", "abc123")
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	for i, e := range entries {
		if e.Text != chunks[i] {
			t.Errorf("entry %d text = %q", i, e.Text)
		}
		if e.Meta.Source != "paper1.pdf" || e.Meta.Fingerprint != "abc123" {
			t.Errorf("entry %d provenance = %+v", i, e.Meta)
		}
		if e.Meta.Ordinal != i {
			t.Errorf("entry %d ordinal = %d", i, e.Meta.Ordinal)
		}
		want := fmt.Sprintf("paper1.pdf_%03d", i)
		if e.Meta.ChunkID != want {
			t.Errorf("entry %d chunk id = %q, want %q", i, e.Meta.ChunkID, want)
		}
		if e.Meta.UniqueID == "" {
			t.Errorf("entry %d unique id empty", i)
		}
		if e.Embedding != nil {
			t.Errorf("entry %d should have no embedding yet", i)
		}
	}
}

func TestTag_chunkIDsSortInDocumentOrder(t *testing.T) {
	chunks := make([]string, 12)
	for i := range chunks {
		chunks[i] = fmt.Sprintf("chunk %d", i)
	}
	entries := Tag(chunks, "doc.pdf", "fp")
	ids := make([]string, len(entries))
	for i, e := range entries {
		ids[i] = e.Meta.ChunkID
	}
	if !sort.StringsAreSorted(ids) {
		t.Errorf("chunk ids should sort lexicographically in document order: %v", ids)
	}
}

func TestTag_uniqueIDsFreshPerCall(t *testing.T) {
	a := Tag([]string{"same"}, "doc.pdf", "fp")
	b := Tag([]string{"same"}, "doc.pdf", "fp")
	if a[0].Meta.UniqueID == b[0].Meta.UniqueID {
		t.Error("unique ids must differ across calls")
	}
	if a[0].Meta.ChunkID != b[0].Meta.ChunkID {
		t.Error("chunk ids must be stable across calls")
	}
}

func TestTag_empty(t *testing.T) {
	if entries := Tag(nil, "doc.pdf", "fp"); entries != nil {
		t.Errorf("no chunks should yield nil, got %v", entries)
	}
}

func TestTag_sourceWithPathUsesBasename(t *testing.T) {
	entries := Tag([]string{"text"}, "papers/deep/paper.pdf", "fp")
	if entries[0].Meta.ChunkID != "paper.pdf_000" {
		t.Errorf("chunk id = %q", entries[0].Meta.ChunkID)
	}
}
