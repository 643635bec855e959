package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"

	"github.com/philippgille/chromem-go"
	"gopkg.in/yaml.v3"

	"github.com/kitsunelab/atsume/internal/models"
)

// fingerprintSidecar is the fingerprint table file kept next to the chromem
// collection. Chromem has no list-all API, so the table lives alongside the
// index instead of being rebuilt from document metadata.
const fingerprintSidecar = "fingerprints.yaml"

// ChromemStore implements Store on a persistent chromem-go collection.
type ChromemStore struct {
	db         *chromem.DB
	collection *chromem.Collection
	dir        string
	onChange   string
	existed    bool
}

// NewChromemStore opens or creates a persistent chromem database under dir
// with the given collection name.
func NewChromemStore(dir, collection, onChange string) (*ChromemStore, error) {
	if collection == "" {
		collection = "chunks"
	}
	_, statErr := os.Stat(filepath.Join(dir, fingerprintSidecar))
	existed := statErr == nil

	db, err := chromem.NewPersistentDB(dir, false)
	if err != nil {
		return nil, fmt.Errorf("failed to open chromem database: %w", err)
	}
	// Embeddings are always supplied by the caller, so no embedding func.
	col, err := db.GetOrCreateCollection(collection, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open collection %q: %w", collection, err)
	}
	return &ChromemStore{
		db:         db,
		collection: col,
		dir:        dir,
		onChange:   onChange,
		existed:    existed,
	}, nil
}

// Exists reports whether a fingerprint table was present before this open.
func (s *ChromemStore) Exists() bool {
	return s.existed
}

// LoadFingerprints reads the sidecar fingerprint table.
func (s *ChromemStore) LoadFingerprints(ctx context.Context) (map[string]string, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, fingerprintSidecar))
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("load fingerprints: %w", err)
	}
	known := make(map[string]string)
	if err := yaml.Unmarshal(data, &known); err != nil {
		return nil, fmt.Errorf("parse fingerprints: %w", err)
	}
	return known, nil
}

// MergeBatch adds all entries to the collection, then persists the merged
// fingerprint table. The sidecar is only written after the documents land,
// so a failed add leaves the prior table untouched and the next run retries.
func (s *ChromemStore) MergeBatch(ctx context.Context, entries []models.IndexEntry, fingerprints map[string]string) error {
	if s.onChange == OnChangeReplace {
		seen := make(map[string]bool)
		for _, e := range entries {
			if seen[e.Meta.Source] {
				continue
			}
			seen[e.Meta.Source] = true
			if err := s.collection.Delete(ctx, map[string]string{"source": e.Meta.Source}, nil); err != nil {
				return fmt.Errorf("replace previous chunks for %s: %w", e.Meta.Source, err)
			}
		}
	}

	if len(entries) > 0 {
		docs := make([]chromem.Document, len(entries))
		for i, e := range entries {
			docs[i] = chromem.Document{
				ID:        e.Meta.UniqueID,
				Content:   e.Text,
				Embedding: e.Embedding,
				Metadata: map[string]string{
					"source":      e.Meta.Source,
					"fingerprint": e.Meta.Fingerprint,
					"chunk_id":    e.Meta.ChunkID,
					"ordinal":     strconv.Itoa(e.Meta.Ordinal),
				},
			}
		}
		if err := s.collection.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
			return fmt.Errorf("add documents: %w", err)
		}
	}

	known, err := s.LoadFingerprints(ctx)
	if err != nil {
		return err
	}
	for name, fp := range fingerprints {
		known[name] = fp
	}
	return s.writeFingerprints(known)
}

// PruneMissing removes entries and fingerprint records for files absent from
// present, returning the number of entries removed.
func (s *ChromemStore) PruneMissing(ctx context.Context, present map[string]bool) (int, error) {
	known, err := s.LoadFingerprints(ctx)
	if err != nil {
		return 0, err
	}
	pruned := 0
	for name := range known {
		if present[name] {
			continue
		}
		before := s.collection.Count()
		if err := s.collection.Delete(ctx, map[string]string{"source": name}, nil); err != nil {
			return 0, fmt.Errorf("prune entries for %s: %w", name, err)
		}
		pruned += before - s.collection.Count()
		delete(known, name)
	}
	if err := s.writeFingerprints(known); err != nil {
		return 0, err
	}
	return pruned, nil
}

// Stats returns the number of tracked files and stored chunks.
func (s *ChromemStore) Stats(ctx context.Context) (models.StoreStats, error) {
	known, err := s.LoadFingerprints(ctx)
	if err != nil {
		return models.StoreStats{}, err
	}
	return models.StoreStats{Files: len(known), Entries: s.collection.Count()}, nil
}

// Close is a no-op; chromem persists on write.
func (s *ChromemStore) Close() error {
	return nil
}

func (s *ChromemStore) writeFingerprints(known map[string]string) error {
	data, err := yaml.Marshal(known)
	if err != nil {
		return fmt.Errorf("marshal fingerprints: %w", err)
	}
	if err := os.WriteFile(filepath.Join(s.dir, fingerprintSidecar), data, 0600); err != nil {
		return fmt.Errorf("write fingerprints: %w", err)
	}
	return nil
}
