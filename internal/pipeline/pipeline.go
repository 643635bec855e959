// Package pipeline orchestrates one incremental index run: scan, detect,
// process, merge.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kitsunelab/atsume/internal/chunker"
	"github.com/kitsunelab/atsume/internal/detect"
	"github.com/kitsunelab/atsume/internal/embedding"
	"github.com/kitsunelab/atsume/internal/extract"
	"github.com/kitsunelab/atsume/internal/models"
	"github.com/kitsunelab/atsume/internal/store"
	"github.com/kitsunelab/atsume/internal/tagger"
	"github.com/kitsunelab/atsume/internal/textnorm"
	"github.com/kitsunelab/atsume/pkg/utils"
)

// State is the lifecycle phase of a run.
type State string

const (
	StateIdle       State = "idle"
	StateScanning   State = "scanning"
	StateDetecting  State = "detecting"
	StateProcessing State = "processing"
	StateMerging    State = "merging"
	StateDone       State = "done"
	StateFailed     State = "failed"
)

const defaultWorkers = 4

// Pipeline runs the scan -> detect -> process -> merge sequence over a source
// folder. One run at a time; Run returns ErrBusy while another is in flight.
type Pipeline struct {
	folder       string
	exts         []string
	chunker      *chunker.Chunker
	extractor    *extract.Extractor
	embedder     embedding.Embedder
	store        store.Store
	workers      int
	truncateRefs bool
	pruneDeleted bool
	logger       *zap.Logger // optional; when set, logs run progress

	mu      sync.Mutex
	running bool
	state   State
	last    *models.RunReport
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets a logger for run progress and per-file debug output.
func WithLogger(l *zap.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// WithWorkers bounds per-file processing concurrency.
func WithWorkers(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.workers = n
		}
	}
}

// WithTruncateReferences drops everything from a trailing References or
// Bibliography section onward before chunking.
func WithTruncateReferences(enabled bool) Option {
	return func(p *Pipeline) { p.truncateRefs = enabled }
}

// WithPruneDeleted removes stored entries for files no longer present in the
// source folder at the end of a successful run.
func WithPruneDeleted(enabled bool) Option {
	return func(p *Pipeline) { p.pruneDeleted = enabled }
}

// New creates a pipeline over folder with the given dependencies.
// extractor may be nil; when nil, a default extractor is used.
func New(
	folder string,
	exts []string,
	ck *chunker.Chunker,
	extractor *extract.Extractor,
	embedder embedding.Embedder,
	st store.Store,
	opts ...Option,
) *Pipeline {
	p := &Pipeline{
		folder:    folder,
		exts:      exts,
		chunker:   ck,
		extractor: extractor,
		embedder:  embedder,
		store:     st,
		workers:   defaultWorkers,
		state:     StateIdle,
	}
	if p.extractor == nil {
		p.extractor = extract.New()
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// State returns the current lifecycle phase.
func (p *Pipeline) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// LastReport returns the report of the most recent completed or failed run,
// or nil if no run has finished yet.
func (p *Pipeline) LastReport() *models.RunReport {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.last == nil {
		return nil
	}
	cp := *p.last
	return &cp
}

func (p *Pipeline) setState(s State) {
	p.mu.Lock()
	p.state = s
	p.mu.Unlock()
	if p.logger != nil {
		p.logger.Debug("pipeline state", zap.String("state", string(s)))
	}
}

// Run executes one full pass and returns its report. A batch-scoped failure
// (embedding, store) aborts the run with nothing persisted; file-scoped
// failures only skip the file. Concurrent calls return ErrBusy.
func (p *Pipeline) Run(ctx context.Context) (*models.RunReport, error) {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return nil, ErrBusy
	}
	p.running = true
	p.mu.Unlock()
	defer func() {
		p.mu.Lock()
		p.running = false
		p.mu.Unlock()
	}()

	report := &models.RunReport{StartedAt: time.Now()}
	bootstrap := !p.store.Exists()

	p.setState(StateScanning)
	known, err := p.store.LoadFingerprints(ctx)
	if err != nil {
		return p.fail(report, fmt.Errorf("%w: load fingerprints: %v", ErrStore, err))
	}

	p.setState(StateDetecting)
	res, err := detect.Detect(p.folder, p.exts, known)
	if err != nil {
		return p.fail(report, fmt.Errorf("%w: %v", ErrFileAccess, err))
	}
	report.FilesScanned = len(res.Fingerprints) + len(res.Skipped)
	report.FilesChanged = len(res.Changed)
	report.Skipped = append(report.Skipped, res.Skipped...)
	if p.logger != nil {
		p.logger.Info("detection complete",
			zap.Int("scanned", report.FilesScanned),
			zap.Int("changed", report.FilesChanged),
			zap.Bool("bootstrap", bootstrap))
	}

	// An empty work list goes straight to Done (modulo pruning).
	if len(res.Changed) > 0 {
		p.setState(StateProcessing)
		entries, delta, skipped := p.processFiles(ctx, res)
		report.Skipped = append(report.Skipped, skipped...)
		if err := ctx.Err(); err != nil {
			return p.fail(report, err)
		}

		p.setState(StateMerging)
		if err := p.merge(ctx, entries, delta); err != nil {
			return p.fail(report, err)
		}
		report.FilesMerged = len(delta)
		report.ChunksMerged = len(entries)
	}

	if p.pruneDeleted {
		present := make(map[string]bool, len(res.Fingerprints))
		for name := range res.Fingerprints {
			present[name] = true
		}
		pruned, err := p.store.PruneMissing(ctx, present)
		if err != nil {
			return p.fail(report, fmt.Errorf("%w: prune: %v", ErrStore, err))
		}
		report.EntriesPruned = pruned
	}

	p.setState(StateDone)
	report.State = string(StateDone)
	report.Duration = time.Since(report.StartedAt)
	p.mu.Lock()
	p.last = report
	p.mu.Unlock()
	if p.logger != nil {
		p.logger.Info("run complete",
			zap.Int("files_merged", report.FilesMerged),
			zap.Int("chunks_merged", report.ChunksMerged),
			zap.Int("skipped", len(report.Skipped)),
			zap.Duration("duration", report.Duration))
	}
	return report, nil
}

func (p *Pipeline) fail(report *models.RunReport, err error) (*models.RunReport, error) {
	p.setState(StateFailed)
	report.State = string(StateFailed)
	report.Duration = time.Since(report.StartedAt)
	p.mu.Lock()
	p.last = report
	p.mu.Unlock()
	if p.logger != nil {
		p.logger.Error("run failed", zap.Error(err))
	}
	return report, err
}

// processFiles extracts, normalizes, chunks, and tags every changed file.
// Files are processed concurrently but entries come back in sorted filename
// order with in-document ordinal order preserved. File-scoped errors are
// reported as skips; the fingerprint of a skipped file is not advanced, so the
// next run retries it.
func (p *Pipeline) processFiles(ctx context.Context, res *detect.Result) ([]models.IndexEntry, map[string]string, []models.SkippedFile) {
	perFile := make([][]models.IndexEntry, len(res.Changed))
	skips := make([]models.SkippedFile, len(res.Changed))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	for i, name := range res.Changed {
		i, name := i, name
		g.Go(func() error {
			chunks, err := p.processFile(gctx, name)
			if err != nil {
				reason := "unparseable"
				if errors.Is(err, ErrFileAccess) {
					reason = "unreadable"
				}
				skips[i] = models.SkippedFile{Name: name, Reason: reason}
				if p.logger != nil {
					p.logger.Warn("skipping file", zap.String("file", name), zap.Error(err))
				}
				return nil
			}
			perFile[i] = tagger.Tag(chunks, name, res.Fingerprints[name])
			return nil
		})
	}
	_ = g.Wait()

	var entries []models.IndexEntry
	delta := make(map[string]string)
	var skipped []models.SkippedFile
	for i, name := range res.Changed {
		if skips[i].Name != "" {
			skipped = append(skipped, skips[i])
			continue
		}
		entries = append(entries, perFile[i]...)
		delta[name] = res.Fingerprints[name]
	}
	return entries, delta, skipped
}

func (p *Pipeline) processFile(ctx context.Context, name string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFileAccess, err)
	}
	path := filepath.Join(p.folder, name)
	pages, err := p.extractor.Extract(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission) {
			return nil, fmt.Errorf("%w: %v", ErrFileAccess, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrExtraction, err)
	}
	cleaned := p.cleanPages(pages)
	chunks := p.chunker.Split(cleaned)
	if p.logger != nil {
		preview := ""
		if len(chunks) > 0 {
			preview = utils.Truncate(chunks[0], 80)
		}
		p.logger.Debug("processed file",
			zap.String("file", name),
			zap.Int("pages", len(pages)),
			zap.Int("chunks", len(chunks)),
			zap.String("preview", preview))
	}
	return chunks, nil
}

// cleanPages normalizes and cleans each page. With reference truncation on,
// the first page containing a References or Bibliography heading is cut there
// and all later pages are dropped.
func (p *Pipeline) cleanPages(pages []models.DocumentPage) []models.DocumentPage {
	cleaned := make([]models.DocumentPage, 0, len(pages))
	for _, pg := range pages {
		text := textnorm.Normalize(pg.Text)
		truncated := false
		if p.truncateRefs {
			if cut := textnorm.TruncateAtReferences(text); cut != text {
				text = cut
				truncated = true
			}
		}
		cleaned = append(cleaned, models.DocumentPage{Text: textnorm.Clean(text), PageNumber: pg.PageNumber})
		if truncated {
			break
		}
	}
	return cleaned
}

// merge embeds the run's chunks as one batch and persists them together with
// the fingerprint delta. Nothing is written if embedding fails.
func (p *Pipeline) merge(ctx context.Context, entries []models.IndexEntry, delta map[string]string) error {
	if len(entries) == 0 && len(delta) == 0 {
		return nil
	}
	if len(entries) > 0 {
		texts := make([]string, len(entries))
		for i, e := range entries {
			texts[i] = e.Text
		}
		vecs, err := p.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrEmbedding, err)
		}
		if len(vecs) != len(entries) {
			return fmt.Errorf("%w: got %d vectors for %d chunks", ErrEmbedding, len(vecs), len(entries))
		}
		for i := range entries {
			entries[i].Embedding = vecs[i]
		}
	}
	if err := p.store.MergeBatch(ctx, entries, delta); err != nil {
		return fmt.Errorf("%w: %v", ErrStore, err)
	}
	return nil
}
