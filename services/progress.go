package services

import (
	"fmt"
	"io"
	"time"

	"github.com/schollz/progressbar/v3"

	"vibeify/types"
	"vibeify/websocket"
)

// ProgressReporter receives scan lifecycle events
type ProgressReporter interface {
	ScanStarted(scanID string, total int)
	FileProcessed(scanID, path string, outcome types.ScanOutcome, processed, total int)
	ScanFinished(summary *types.ScanSummary)
}

// Reporters fans events out to several reporters
type Reporters []ProgressReporter

// ScanStarted forwards to every reporter
func (rs Reporters) ScanStarted(scanID string, total int) {
	for _, r := range rs {
		r.ScanStarted(scanID, total)
	}
}

// FileProcessed forwards to every reporter
func (rs Reporters) FileProcessed(scanID, path string, outcome types.ScanOutcome, processed, total int) {
	for _, r := range rs {
		r.FileProcessed(scanID, path, outcome, processed, total)
	}
}

// ScanFinished forwards to every reporter
func (rs Reporters) ScanFinished(summary *types.ScanSummary) {
	for _, r := range rs {
		r.ScanFinished(summary)
	}
}

// hubReporter publishes progress to WebSocket subscribers
type hubReporter struct {
	hub websocket.Hub
}

// NewHubReporter creates a reporter broadcasting through hub
func NewHubReporter(hub websocket.Hub) ProgressReporter {
	return &hubReporter{hub: hub}
}

func (r *hubReporter) ScanStarted(scanID string, total int) {
	r.hub.Broadcast(types.ProgressMessage{
		ScanID:    scanID,
		Type:      "start",
		Total:     total,
		Message:   fmt.Sprintf("Scanning %d files", total),
		Timestamp: time.Now(),
	})
}

func (r *hubReporter) FileProcessed(scanID, path string, outcome types.ScanOutcome, processed, total int) {
	r.hub.Broadcast(types.ProgressMessage{
		ScanID:      scanID,
		Type:        "progress",
		Progress:    percent(processed, total),
		Processed:   processed,
		Total:       total,
		CurrentFile: path,
		Outcome:     string(outcome),
		Timestamp:   time.Now(),
	})
}

func (r *hubReporter) ScanFinished(summary *types.ScanSummary) {
	r.hub.Broadcast(types.ProgressMessage{
		ScanID:    summary.ID,
		Type:      "complete",
		Progress:  100,
		Processed: summary.FilesSeen,
		Total:     summary.FilesSeen,
		Message:   summaryLine(summary),
		Timestamp: time.Now(),
	})
}

// barReporter draws a terminal progress bar
type barReporter struct {
	out io.Writer
	bar *progressbar.ProgressBar
}

// NewBarReporter creates a reporter that renders to out
func NewBarReporter(out io.Writer) ProgressReporter {
	return &barReporter{out: out}
}

func (r *barReporter) ScanStarted(scanID string, total int) {
	r.bar = progressbar.NewOptions(total,
		progressbar.OptionSetWriter(r.out),
		progressbar.OptionSetDescription("scanning library"),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
}

func (r *barReporter) FileProcessed(scanID, path string, outcome types.ScanOutcome, processed, total int) {
	if r.bar != nil {
		_ = r.bar.Add(1)
	}
}

func (r *barReporter) ScanFinished(summary *types.ScanSummary) {
	if r.bar != nil {
		_ = r.bar.Finish()
		r.bar = nil
	}
}

func percent(done, total int) float64 {
	if total == 0 {
		return 100
	}
	return float64(done) / float64(total) * 100
}

// summaryLine renders the outcome counts of a scan
func summaryLine(s *types.ScanSummary) string {
	return fmt.Sprintf("%d files: %d new, %d existing, %d updated, %d errors",
		s.FilesSeen,
		s.Outcomes[types.OutcomeUploadedNew],
		s.Outcomes[types.OutcomeSkippedExisting],
		s.Outcomes[types.OutcomeForceUpdated],
		s.Outcomes[types.OutcomeError],
	)
}
