// Package store defines the durable index capability and its backends.
package store

import (
	"context"
	"fmt"

	"github.com/kitsunelab/atsume/internal/models"
)

// Supersede policies for a file whose content changed.
const (
	// OnChangeReplace removes the file's previous chunk set in the same
	// merge batch that writes the new one.
	OnChangeReplace = "replace"
	// OnChangeAccumulate keeps superseded chunks (append-only).
	OnChangeAccumulate = "accumulate"
)

// Store persists index entries and the filename -> fingerprint table.
// A Store is not safe for concurrent runs; callers hold the run lock.
type Store interface {
	// Exists reports whether a prior index was present when the store was
	// opened, distinguishing a fresh bootstrap run from an incremental one.
	Exists() bool
	// LoadFingerprints returns the persisted filename -> fingerprint table.
	LoadFingerprints(ctx context.Context) (map[string]string, error)
	// MergeBatch persists all entries and the run's fingerprint delta as one
	// logical batch: either everything lands or nothing does.
	MergeBatch(ctx context.Context, entries []models.IndexEntry, fingerprints map[string]string) error
	// PruneMissing removes entries and fingerprint records for filenames not
	// in present, returning the number of entries removed. Explicit
	// reconciliation; never invoked implicitly by a merge.
	PruneMissing(ctx context.Context, present map[string]bool) (int, error)
	// Stats returns aggregate counts.
	Stats(ctx context.Context) (models.StoreStats, error)
	Close() error
}

// Options configures a backend.
type Options struct {
	DatabasePath string // sqlite
	PersistDir   string // chromem
	Collection   string // chromem
	OnChange     string // OnChangeReplace (default) or OnChangeAccumulate
}

// New creates a store of the given backend ("sqlite" or "chromem").
// An empty backend defaults to sqlite.
func New(backend string, opts Options) (Store, error) {
	if opts.OnChange == "" {
		opts.OnChange = OnChangeReplace
	}
	switch backend {
	case "sqlite", "":
		return NewSQLiteStore(opts.DatabasePath, opts.OnChange)
	case "chromem":
		return NewChromemStore(opts.PersistDir, opts.Collection, opts.OnChange)
	default:
		return nil, fmt.Errorf("unknown store backend %q", backend)
	}
}
