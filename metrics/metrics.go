// Package metrics records completion outcomes as Prometheus metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Paranoid-AF/codelet/stream"
)

// Completion outcomes.
const (
	OutcomeOK          = "ok"
	OutcomeEmpty       = "empty"
	OutcomeError       = "error"
	OutcomeUnsupported = "unsupported"
)

// LatencyBuckets covers local inference, from 100ms to two minutes.
var LatencyBuckets = []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60, 120}

// Recorder holds the completion metrics. A nil *Recorder records nothing.
type Recorder struct {
	completions *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	lines       prometheus.Counter
	skipped     prometheus.Counter
}

// New creates a Recorder and registers its collectors with reg.
func New(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		completions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "codelet_completions_total",
				Help: "Completion requests by outcome",
			},
			[]string{"outcome"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "codelet_completion_duration_seconds",
				Help:    "Time from dispatch to the end of the stream",
				Buckets: LatencyBuckets,
			},
			[]string{"outcome"},
		),
		lines: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "codelet_stream_lines_total",
			Help: "Non-blank stream lines processed",
		}),
		skipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "codelet_stream_lines_skipped_total",
			Help: "Stream lines dropped because they were not valid JSON",
		}),
	}
	reg.MustRegister(r.completions, r.duration, r.lines, r.skipped)
	return r
}

// Completion records one completion request. Pass d = 0 for requests that
// never reached the server.
func (r *Recorder) Completion(outcome string, d time.Duration) {
	if r == nil {
		return
	}
	r.completions.WithLabelValues(outcome).Inc()
	if d > 0 {
		r.duration.WithLabelValues(outcome).Observe(d.Seconds())
	}
}

// Stream records the line counters of one consumed stream.
func (r *Recorder) Stream(s stream.Stats) {
	if r == nil {
		return
	}
	r.lines.Add(float64(s.Lines))
	r.skipped.Add(float64(s.SkippedLines))
}

// Handler serves the metrics gathered by g in the Prometheus text format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
