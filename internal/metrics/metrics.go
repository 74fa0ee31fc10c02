package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Pipeline stages observed by StageDuration.
const (
	StageLoad     = "load"
	StageProcess  = "process"
	StageTrain    = "train"
	StageApply    = "apply"
	StageEvaluate = "evaluate"
)

// Metrics holds the indexing pipeline's Prometheus collectors. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	documents     *prometheus.CounterVec
	candidates    prometheus.Counter
	topics        prometheus.Counter
	writeFailures prometheus.Counter
	stageDuration *prometheus.HistogramVec
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		documents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "topix",
			Name:      "documents_processed_total",
			Help:      "Total documents processed",
		}, []string{"mode"}),

		candidates: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "topix",
			Name:      "candidates_generated_total",
			Help:      "Total candidate topics generated",
		}),

		topics: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "topix",
			Name:      "topics_emitted_total",
			Help:      "Total topics selected for output",
		}),

		writeFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "topix",
			Name:      "output_write_failures_total",
			Help:      "Total topic files that could not be written",
		}),

		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "topix",
			Name:      "stage_duration_seconds",
			Help:      "Pipeline stage duration",
			Buckets:   []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
		}, []string{"stage"}),
	}

	reg.MustRegister(m.documents, m.candidates, m.topics, m.writeFailures, m.stageDuration)
	return m
}

// DocumentProcessed counts one document; mode is "train" or "apply".
func (m *Metrics) DocumentProcessed(mode string) {
	if m == nil {
		return
	}
	m.documents.WithLabelValues(mode).Inc()
}

// CandidatesGenerated adds n generated candidates.
func (m *Metrics) CandidatesGenerated(n int) {
	if m == nil {
		return
	}
	m.candidates.Add(float64(n))
}

// TopicsEmitted adds n selected topics.
func (m *Metrics) TopicsEmitted(n int) {
	if m == nil {
		return
	}
	m.topics.Add(float64(n))
}

// WriteFailed counts one failed output write.
func (m *Metrics) WriteFailed() {
	if m == nil {
		return
	}
	m.writeFailures.Inc()
}

// ObserveStage records the time since start for stage.
func (m *Metrics) ObserveStage(stage string, start time.Time) {
	if m == nil {
		return
	}
	m.stageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}
