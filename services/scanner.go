package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"vibeify/types"
)

// ScanRunner serializes synchronizer passes triggered at startup, on a
// schedule, or on demand, and keeps the last summary for diagnostics
type ScanRunner struct {
	syncer  *Synchronizer
	index   *MediaIndex
	log     *zap.SugaredLogger
	running sync.Mutex

	mu   sync.RWMutex
	last *types.ScanSummary

	cron *cron.Cron
}

// NewScanRunner creates a runner around s; index is marked ready after the
// first completed pass
func NewScanRunner(s *Synchronizer, index *MediaIndex, log *zap.SugaredLogger) *ScanRunner {
	return &ScanRunner{syncer: s, index: index, log: log}
}

// Run executes a pass in the calling goroutine
func (r *ScanRunner) Run(ctx context.Context, force bool) (*types.ScanSummary, error) {
	if !r.running.TryLock() {
		return nil, types.ErrScanInProgress
	}
	summary := r.syncer.scan(ctx, uuid.New().String(), force)
	r.finish(summary)
	return summary, nil
}

// Start executes a pass in the background and returns its scan ID once the
// scan lock is held. done, if non-nil, receives the summary.
func (r *ScanRunner) Start(force bool, done func(*types.ScanSummary)) (string, error) {
	if !r.running.TryLock() {
		return "", types.ErrScanInProgress
	}
	scanID := uuid.New().String()
	go func() {
		summary := r.syncer.scan(context.Background(), scanID, force)
		r.finish(summary)
		if done != nil {
			done(summary)
		}
	}()
	return scanID, nil
}

// finish releases the scan lock before publishing the summary, so a caller
// that observes it through Last can start the next pass right away
func (r *ScanRunner) finish(summary *types.ScanSummary) {
	r.index.MarkReady()
	r.running.Unlock()

	r.mu.Lock()
	r.last = summary
	r.mu.Unlock()
}

// Last returns the most recent completed summary
func (r *ScanRunner) Last() (*types.ScanSummary, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.last == nil {
		return nil, fmt.Errorf("%w: no scan has completed", types.ErrNotFound)
	}
	return r.last, nil
}

// Schedule runs non-force passes on a cron spec. An empty spec disables
// scheduling.
func (r *ScanRunner) Schedule(spec string) error {
	if spec == "" {
		return nil
	}
	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		if _, err := r.Run(context.Background(), false); err != nil {
			r.log.Infow("scheduled scan skipped", "reason", err)
		}
	})
	if err != nil {
		return fmt.Errorf("%w: scan schedule %q: %v", types.ErrValidation, spec, err)
	}
	c.Start()
	r.cron = c
	r.log.Infow("scheduled rescans enabled", "schedule", spec)
	return nil
}

// Stop halts the scheduler and waits for a running scheduled pass
func (r *ScanRunner) Stop() {
	if r.cron != nil {
		<-r.cron.Stop().Done()
	}
}
