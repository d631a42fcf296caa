package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	confidence  *prometheus.GaugeVec
	quality     *prometheus.GaugeVec
	patternHits *prometheus.CounterVec
	errorsTotal *prometheus.CounterVec
	latency     *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		confidence: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "tapevision_final_confidence",
				Help: "Last final confidence emitted for a symbol",
			},
			[]string{"symbol"},
		),
		quality: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "tapevision_signal_quality",
				Help: "Last weighted quality score for a symbol",
			},
			[]string{"symbol"},
		),
		patternHits: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tapevision_pattern_matches_total",
				Help: "Total pattern matches emitted, by pattern name",
			},
			[]string{"symbol", "pattern"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tapevision_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tapevision_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: []float64{.001, .002, .004, .008, .016, .032, .064, .128, .256, .512, 1},
			},
			[]string{"operation"},
		),
	}
}

// RecordConfidence records the final confidence of a scored signal.
func (r *Recorder) RecordConfidence(symbol string, value float64) {
	r.confidence.WithLabelValues(symbol).Set(value)
}

// RecordQuality records the weighted quality score of a scored signal.
func (r *Recorder) RecordQuality(symbol string, score float64) {
	r.quality.WithLabelValues(symbol).Set(score)
}

// RecordPatternMatch counts an emitted pattern match.
func (r *Recorder) RecordPatternMatch(symbol, pattern string) {
	r.patternHits.WithLabelValues(symbol, pattern).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
