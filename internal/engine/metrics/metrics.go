package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the matching engine.
type Metrics struct {
	// Pairwise comparisons actually performed (after blocking).
	Comparisons prometheus.Counter

	// Candidates written, by confidence level.
	Candidates *prometheus.CounterVec

	// Records flagged for manual review instead of being compared.
	Flagged prometheus.Counter

	// Run outcomes by status ("completed", "failed", "cancelled").
	Runs *prometheus.CounterVec

	// Full run latency.
	RunDuration prometheus.Histogram

	// Blocking bucket sizes, to watch for keys that cluster too much.
	BucketSize prometheus.Histogram
}

// New creates a Metrics instance with all engine metrics registered.
func New() *Metrics {
	return &Metrics{
		Comparisons: promauto.NewCounter(prometheus.CounterOpts{
			Name: "kindred_match_comparisons_total",
			Help: "Total pairwise comparisons performed across all runs",
		}),
		Candidates: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "kindred_match_candidates_total",
			Help: "Total match candidates written, by confidence level",
		}, []string{"confidence"}),
		Flagged: promauto.NewCounter(prometheus.CounterOpts{
			Name: "kindred_match_flagged_records_total",
			Help: "Total records flagged for manual review instead of compared",
		}),
		Runs: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "kindred_match_runs_total",
			Help: "Total matching runs by outcome",
		}, []string{"status"}),
		RunDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "kindred_match_run_duration_seconds",
			Help:    "Duration of full matching runs",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 60, 300, 1200},
		}),
		BucketSize: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "kindred_match_bucket_size",
			Help:    "Blocking bucket sizes observed per run",
			Buckets: []float64{2, 4, 8, 16, 32, 64, 128, 256, 1024},
		}),
	}
}

// AddComparisons records n pairwise comparisons.
func (m *Metrics) AddComparisons(n int) {
	if m != nil {
		m.Comparisons.Add(float64(n))
	}
}

// IncCandidate records one written candidate at the given confidence.
func (m *Metrics) IncCandidate(confidence string) {
	if m != nil {
		m.Candidates.WithLabelValues(confidence).Inc()
	}
}

// AddFlagged records n records diverted to manual review.
func (m *Metrics) AddFlagged(n int) {
	if m != nil {
		m.Flagged.Add(float64(n))
	}
}

// ObserveRun records a run outcome and its duration.
func (m *Metrics) ObserveRun(status string, d time.Duration) {
	if m != nil {
		m.Runs.WithLabelValues(status).Inc()
		m.RunDuration.Observe(d.Seconds())
	}
}

// ObserveBucket records one bucket's size.
func (m *Metrics) ObserveBucket(size int) {
	if m != nil {
		m.BucketSize.Observe(float64(size))
	}
}
