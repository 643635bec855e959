package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/kitsunelab/atsume/internal/models"
)

func testEntries(source, fp string, n int) []models.IndexEntry {
	entries := make([]models.IndexEntry, n)
	for i := range entries {
		entries[i] = models.IndexEntry{
			Meta: models.ChunkMetadata{
				Source:      source,
				Fingerprint: fp,
				Ordinal:     i,
				ChunkID:     source + "_00" + string(rune('0'+i)),
				UniqueID:    source + "-" + fp + "-" + string(rune('0'+i)),
			},
			Text:      "chunk text",
			Embedding: []float32{0.1, 0.2, float32(i)},
		}
	}
	return entries
}

func newTestSQLite(t *testing.T, onChange string) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "index.db"), onChange)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSQLiteStore_existsAfterReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "index.db")
	s, err := NewSQLiteStore(path, OnChangeReplace)
	if err != nil {
		t.Fatal(err)
	}
	if s.Exists() {
		t.Error("fresh database should not pre-exist")
	}
	_ = s.Close()

	s2, err := NewSQLiteStore(path, OnChangeReplace)
	if err != nil {
		t.Fatal(err)
	}
	defer s2.Close()
	if !s2.Exists() {
		t.Error("reopened database should report existing")
	}
}

func TestSQLiteStore_mergeAndLoadFingerprints(t *testing.T) {
	s := newTestSQLite(t, OnChangeReplace)
	ctx := context.Background()

	entries := testEntries("paper1.pdf", "fp1", 2)
	fps := map[string]string{"paper1.pdf": "fp1"}
	if err := s.MergeBatch(ctx, entries, fps); err != nil {
		t.Fatal(err)
	}
	known, err := s.LoadFingerprints(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if known["paper1.pdf"] != "fp1" {
		t.Errorf("fingerprints = %v", known)
	}
	stats, err := s.Stats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Files != 1 || stats.Entries != 2 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestSQLiteStore_replaceSupersedesOldChunks(t *testing.T) {
	s := newTestSQLite(t, OnChangeReplace)
	ctx := context.Background()

	if err := s.MergeBatch(ctx, testEntries("doc.pdf", "v1", 3), map[string]string{"doc.pdf": "v1"}); err != nil {
		t.Fatal(err)
	}
	if err := s.MergeBatch(ctx, testEntries("doc.pdf", "v2", 2), map[string]string{"doc.pdf": "v2"}); err != nil {
		t.Fatal(err)
	}
	stats, _ := s.Stats(ctx)
	if stats.Entries != 2 {
		t.Errorf("replace policy should leave only the new chunk set: %+v", stats)
	}
	known, _ := s.LoadFingerprints(ctx)
	if known["doc.pdf"] != "v2" {
		t.Errorf("fingerprint not advanced: %v", known)
	}
}

func TestSQLiteStore_accumulateKeepsOldChunks(t *testing.T) {
	s := newTestSQLite(t, OnChangeAccumulate)
	ctx := context.Background()

	if err := s.MergeBatch(ctx, testEntries("doc.pdf", "v1", 3), map[string]string{"doc.pdf": "v1"}); err != nil {
		t.Fatal(err)
	}
	if err := s.MergeBatch(ctx, testEntries("doc.pdf", "v2", 2), map[string]string{"doc.pdf": "v2"}); err != nil {
		t.Fatal(err)
	}
	stats, _ := s.Stats(ctx)
	if stats.Entries != 5 {
		t.Errorf("accumulate policy should keep both chunk sets: %+v", stats)
	}
}

func TestSQLiteStore_pruneMissing(t *testing.T) {
	s := newTestSQLite(t, OnChangeReplace)
	ctx := context.Background()

	_ = s.MergeBatch(ctx, testEntries("keep.pdf", "k1", 2), map[string]string{"keep.pdf": "k1"})
	_ = s.MergeBatch(ctx, testEntries("gone.pdf", "g1", 3), map[string]string{"gone.pdf": "g1"})

	pruned, err := s.PruneMissing(ctx, map[string]bool{"keep.pdf": true})
	if err != nil {
		t.Fatal(err)
	}
	if pruned != 3 {
		t.Errorf("pruned = %d, want 3", pruned)
	}
	known, _ := s.LoadFingerprints(ctx)
	if _, ok := known["gone.pdf"]; ok {
		t.Error("pruned file should lose its fingerprint record")
	}
	if known["keep.pdf"] != "k1" {
		t.Error("present file should keep its fingerprint record")
	}
	stats, _ := s.Stats(ctx)
	if stats.Entries != 2 {
		t.Errorf("stats after prune = %+v", stats)
	}
}

func TestSQLiteStore_emptyBatchStillAdvancesFingerprints(t *testing.T) {
	s := newTestSQLite(t, OnChangeReplace)
	ctx := context.Background()
	if err := s.MergeBatch(ctx, nil, map[string]string{"empty.pdf": "e1"}); err != nil {
		t.Fatal(err)
	}
	known, _ := s.LoadFingerprints(ctx)
	if known["empty.pdf"] != "e1" {
		t.Errorf("fingerprints = %v", known)
	}
}

func TestVectorRoundTrip(t *testing.T) {
	vec := []float32{0.5, -1.25, 3.0, 0}
	got := decodeVector(encodeVector(vec))
	if len(got) != len(vec) {
		t.Fatalf("length %d, want %d", len(got), len(vec))
	}
	for i := range vec {
		if got[i] != vec[i] {
			t.Errorf("component %d = %f, want %f", i, got[i], vec[i])
		}
	}
	if encodeVector(nil) != nil {
		t.Error("nil vector should encode to nil")
	}
	if decodeVector(nil) != nil {
		t.Error("nil blob should decode to nil")
	}
}

func TestNew_factory(t *testing.T) {
	dir := t.TempDir()
	s, err := New("sqlite", Options{DatabasePath: filepath.Join(dir, "db.sqlite")})
	if err != nil {
		t.Fatal(err)
	}
	_ = s.Close()

	if _, err := New("etcd", Options{}); err == nil {
		t.Error("expected error for unknown backend")
	}
}
