package store

import (
	"context"
	"testing"
)

func newTestChromem(t *testing.T, onChange string) *ChromemStore {
	t.Helper()
	s, err := NewChromemStore(t.TempDir(), "test-chunks", onChange)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestChromemStore_freshHasNoFingerprints(t *testing.T) {
	s := newTestChromem(t, OnChangeReplace)
	if s.Exists() {
		t.Error("fresh store should not pre-exist")
	}
	known, err := s.LoadFingerprints(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(known) != 0 {
		t.Errorf("fresh store should have no fingerprints: %v", known)
	}
}

func TestChromemStore_mergeAndStats(t *testing.T) {
	s := newTestChromem(t, OnChangeReplace)
	ctx := context.Background()

	entries := testEntries("paper1.pdf", "fp1", 2)
	if err := s.MergeBatch(ctx, entries, map[string]string{"paper1.pdf": "fp1"}); err != nil {
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

func TestChromemStore_replaceSupersedesOldChunks(t *testing.T) {
	s := newTestChromem(t, OnChangeReplace)
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
}

func TestChromemStore_pruneMissing(t *testing.T) {
	s := newTestChromem(t, OnChangeReplace)
	ctx := context.Background()

	_ = s.MergeBatch(ctx, testEntries("keep.pdf", "k1", 1), map[string]string{"keep.pdf": "k1"})
	_ = s.MergeBatch(ctx, testEntries("gone.pdf", "g1", 2), map[string]string{"gone.pdf": "g1"})

	pruned, err := s.PruneMissing(ctx, map[string]bool{"keep.pdf": true})
	if err != nil {
		t.Fatal(err)
	}
	if pruned != 2 {
		t.Errorf("pruned = %d, want 2", pruned)
	}
	known, _ := s.LoadFingerprints(ctx)
	if _, ok := known["gone.pdf"]; ok {
		t.Error("pruned file should lose its fingerprint record")
	}
}

func TestChromemStore_fingerprintsSurviveReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s, err := NewChromemStore(dir, "test-chunks", OnChangeReplace)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.MergeBatch(ctx, testEntries("doc.pdf", "v1", 1), map[string]string{"doc.pdf": "v1"}); err != nil {
		t.Fatal(err)
	}
	_ = s.Close()

	s2, err := NewChromemStore(dir, "test-chunks", OnChangeReplace)
	if err != nil {
		t.Fatal(err)
	}
	defer s2.Close()
	if !s2.Exists() {
		t.Error("reopened store should report existing")
	}
	known, err := s2.LoadFingerprints(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if known["doc.pdf"] != "v1" {
		t.Errorf("fingerprints after reopen = %v", known)
	}
}
