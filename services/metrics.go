package services

import (
	"github.com/prometheus/client_golang/prometheus"

	"vibeify/types"
)

// Metrics holds the scan and gateway collectors
type Metrics struct {
	ScanFiles    *prometheus.CounterVec
	ScanDuration prometheus.Histogram
	ScansTotal   *prometheus.CounterVec
	IndexEntries prometheus.Gauge
	Fallbacks    *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ScanFiles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vibeify",
			Name:      "scan_files_total",
			Help:      "Files processed by the synchronizer, by outcome.",
		}, []string{"outcome"}),
		ScanDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "vibeify",
			Name:      "scan_duration_seconds",
			Help:      "Wall time of synchronizer passes.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
		}),
		ScansTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vibeify",
			Name:      "scans_total",
			Help:      "Synchronizer passes, by mode.",
		}, []string{"mode"}),
		IndexEntries: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "vibeify",
			Name:      "index_entries",
			Help:      "Identities currently held in the media index.",
		}),
		Fallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vibeify",
			Name:      "fallback_images_served_total",
			Help:      "Placeholder images served, by kind.",
		}, []string{"kind"}),
	}
	if reg != nil {
		reg.MustRegister(m.ScanFiles, m.ScanDuration, m.ScansTotal, m.IndexEntries, m.Fallbacks)
	}
	return m
}

// observeScan records a finished summary
func (m *Metrics) observeScan(summary *types.ScanSummary, indexSize int) {
	if m == nil {
		return
	}
	mode := "normal"
	switch {
	case summary.Degraded:
		mode = "degraded"
	case summary.Force:
		mode = "force"
	}
	m.ScansTotal.WithLabelValues(mode).Inc()
	for outcome, n := range summary.Outcomes {
		m.ScanFiles.WithLabelValues(string(outcome)).Add(float64(n))
	}
	m.ScanDuration.Observe(summary.FinishedAt.Sub(summary.StartedAt).Seconds())
	m.IndexEntries.Set(float64(indexSize))
}

// FallbackServed counts a placeholder response
func (m *Metrics) FallbackServed(kind string) {
	if m == nil {
		return
	}
	m.Fallbacks.WithLabelValues(kind).Inc()
}
