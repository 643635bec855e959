// Package models defines core data structures for pages, chunks, and run reports.
package models

import "time"

// DocumentPage is one extracted page (or unit) of a source file. Pages only
// live for the duration of a run; they are never persisted.
type DocumentPage struct {
	Text       string `json:"text"`
	PageNumber int    `json:"page_number"`
}

// ChunkMetadata identifies a chunk and records its provenance.
type ChunkMetadata struct {
	Source      string `json:"source"`      // folder-relative filename
	Fingerprint string `json:"fingerprint"` // content digest of the source file
	Ordinal     int    `json:"ordinal"`     // zero-based position within the file
	ChunkID     string `json:"chunk_id"`    // "<basename>_NNN", stable per (source, fingerprint)
	UniqueID    string `json:"unique_id"`   // run-scoped uuid, fresh on every tagging pass
}

// IndexEntry is a tagged chunk plus its embedding vector. The tagger produces
// entries with a nil Embedding; the merger fills it in before persistence.
type IndexEntry struct {
	Meta      ChunkMetadata `json:"meta"`
	Text      string        `json:"text"`
	Embedding []float32     `json:"-"`
}

// SkippedFile records a file that was detected but could not be processed.
type SkippedFile struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

// StoreStats are aggregate counts from the durable store.
type StoreStats struct {
	Files   int `json:"files"`
	Entries int `json:"entries"`
}

// RunReport is the outcome of one pipeline run.
type RunReport struct {
	State         string        `json:"state"`
	FilesScanned  int           `json:"files_scanned"`
	FilesChanged  int           `json:"files_changed"`
	FilesMerged   int           `json:"files_merged"`
	Skipped       []SkippedFile `json:"skipped,omitempty"`
	ChunksMerged  int           `json:"chunks_merged"`
	EntriesPruned int           `json:"entries_pruned,omitempty"`
	StartedAt     time.Time     `json:"started_at"`
	Duration      time.Duration `json:"duration"`
}
