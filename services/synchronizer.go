package services

import (
	"context"
	"io/fs"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"vibeify/types"
)

// SynchronizerConfig holds the collaborators of a Synchronizer
type SynchronizerConfig struct {
	MediaDir   string
	Identifier Identifier
	Extractor  Extractor
	Catalog    Catalog // nil runs every scan in index-only mode
	Index      *MediaIndex
	Reporter   ProgressReporter
	Metrics    *Metrics
	Logger     *zap.SugaredLogger
}

// Synchronizer reconciles the media directory with the catalog and index
type Synchronizer struct {
	mediaDir   string
	identifier Identifier
	extractor  Extractor
	catalog    Catalog
	index      *MediaIndex
	reporter   ProgressReporter
	metrics    *Metrics
	log        *zap.SugaredLogger
}

// NewSynchronizer creates a synchronizer from cfg
func NewSynchronizer(cfg SynchronizerConfig) *Synchronizer {
	reporter := cfg.Reporter
	if reporter == nil {
		reporter = Reporters{}
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Synchronizer{
		mediaDir:   cfg.MediaDir,
		identifier: cfg.Identifier,
		extractor:  cfg.Extractor,
		catalog:    cfg.Catalog,
		index:      cfg.Index,
		reporter:   reporter,
		metrics:    cfg.Metrics,
		log:        log,
	}
}

// Scan runs one reconciliation pass. With force set every file is
// re-extracted and written; otherwise files already in the catalog are
// only indexed. Per-file failures are recorded in the summary and never
// abort the pass. ctx bounds catalog I/O only.
func (s *Synchronizer) Scan(ctx context.Context, force bool) *types.ScanSummary {
	return s.scan(ctx, uuid.New().String(), force)
}

func (s *Synchronizer) scan(ctx context.Context, scanID string, force bool) *types.ScanSummary {
	summary := types.NewScanSummary(scanID, force)
	log := s.log.With("scan", summary.ID, "force", force)

	paths := s.collect(log)
	summary.FilesSeen = len(paths)
	s.reporter.ScanStarted(summary.ID, len(paths))
	log.Infow("scan started", "dir", s.mediaDir, "files", len(paths))

	known, err := s.snapshot(ctx)
	if err != nil {
		summary.Degraded = true
		log.Errorw("catalog unavailable, indexing without metadata sync", "error", err)
	}

	for i, path := range paths {
		outcome, indexed, err := s.process(ctx, path, force, summary.Degraded, known)
		if indexed {
			summary.Indexed++
		}
		if outcome != "" {
			summary.Record(path, outcome, err)
		}
		if err != nil {
			log.Warnw("file failed", "path", path, "error", err)
		} else {
			log.Debugw("file processed", "path", path, "outcome", outcome)
		}
		s.reporter.FileProcessed(summary.ID, path, outcome, i+1, len(paths))
	}

	summary.FinishedAt = time.Now()
	s.reporter.ScanFinished(summary)
	s.metrics.observeScan(summary, s.index.Len())
	log.Infow("scan finished",
		"files", summary.FilesSeen,
		"indexed", summary.Indexed,
		"uploaded_new", summary.Outcomes[types.OutcomeUploadedNew],
		"skipped_existing", summary.Outcomes[types.OutcomeSkippedExisting],
		"force_updated", summary.Outcomes[types.OutcomeForceUpdated],
		"errors", summary.Outcomes[types.OutcomeError],
		"degraded", summary.Degraded,
		"took", summary.FinishedAt.Sub(summary.StartedAt),
	)
	return summary
}

// process handles one file. It returns the outcome ("" when the catalog
// is unavailable and the file was only indexed), whether the file made it
// into the index, and the error behind an error outcome.
func (s *Synchronizer) process(ctx context.Context, path string, force, degraded bool, known map[string]struct{}) (types.ScanOutcome, bool, error) {
	identity, err := s.identify(path, force)
	if err != nil {
		return types.OutcomeError, false, err
	}

	// Indexed regardless of outcome so previously cataloged files stream
	s.index.Put(identity, path)

	if degraded {
		return "", true, nil
	}

	_, exists := known[identity]
	if exists && !force {
		return types.OutcomeSkippedExisting, true, nil
	}

	record, err := s.extractor.Extract(path, identity)
	if err != nil {
		return types.OutcomeError, true, err
	}
	if err := s.catalog.Set(ctx, identity, record); err != nil {
		return types.OutcomeError, true, err
	}

	if exists {
		return types.OutcomeForceUpdated, true, nil
	}
	// Same bytes seen again later in this pass are existing entries now
	known[identity] = struct{}{}
	return types.OutcomeUploadedNew, true, nil
}

func (s *Synchronizer) identify(path string, force bool) (string, error) {
	if force {
		return s.identifier.Revalidate(path)
	}
	return s.identifier.Identify(path)
}

// snapshot loads every identity known to the catalog in one pass
func (s *Synchronizer) snapshot(ctx context.Context) (map[string]struct{}, error) {
	known := make(map[string]struct{})
	if s.catalog == nil {
		return known, errNoCatalog
	}
	err := s.catalog.StreamIdentities(ctx, func(identity string) error {
		known[identity] = struct{}{}
		return nil
	})
	if err != nil {
		return known, err
	}
	return known, nil
}

// collect walks the media directory for supported audio files. Unreadable
// sub-paths are logged and skipped.
func (s *Synchronizer) collect(log *zap.SugaredLogger) []string {
	var paths []string
	err := filepath.WalkDir(s.mediaDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			log.Warnw("error accessing path", "path", path, "error", err)
			return nil
		}
		if !d.IsDir() && SupportedExtension(path) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		log.Errorw("media directory walk failed", "dir", s.mediaDir, "error", err)
	}
	sort.Strings(paths)
	return paths
}
