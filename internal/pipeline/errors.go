package pipeline

import "errors"

// Error categories for a run. File-scoped errors (access, extraction) skip the
// offending file and let the run continue; batch-scoped errors (embedding,
// store) abort the run with nothing persisted. Match with errors.Is.
var (
	// ErrFileAccess marks a file that exists in the listing but could not be
	// opened or read.
	ErrFileAccess = errors.New("file access failed")
	// ErrExtraction marks a file whose content could not be parsed.
	ErrExtraction = errors.New("content extraction failed")
	// ErrEmbedding marks a failed batch embedding call. Run-fatal.
	ErrEmbedding = errors.New("embedding failed")
	// ErrStore marks a failed read or merge against the durable store. Run-fatal.
	ErrStore = errors.New("store operation failed")
	// ErrBusy is returned by Run when another run is already in progress.
	ErrBusy = errors.New("run already in progress")
)
