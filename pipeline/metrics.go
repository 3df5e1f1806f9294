package pipeline

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics collects Prometheus metrics for pipeline execution.
//
// Metrics exposed (all namespaced with "deskagent_"):
//
//   - runs_total (counter, labels: status): completed runs by outcome.
//   - stage_latency_ms (histogram, labels: node_id, status): stage execution
//     duration. Buckets span 1ms to 10s, matching typical provider call
//     latencies.
//   - inflight_runs (gauge): runs currently executing.
//
// Expose via HTTP for scraping:
//
//	registry := prometheus.NewRegistry()
//	metrics := NewMetrics(registry)
//	http.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
//
// All methods are safe for concurrent use.
type Metrics struct {
	runs         *prometheus.CounterVec
	stageLatency *prometheus.HistogramVec
	inflightRuns prometheus.Gauge
}

// NewMetrics creates and registers the pipeline metrics with the given
// registry. A nil registry falls back to prometheus.DefaultRegisterer.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}

	factory := promauto.With(registry)

	return &Metrics{
		runs: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "deskagent",
			Name:      "runs_total",
			Help:      "Completed pipeline runs by outcome status",
		}, []string{"status"}),

		stageLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "deskagent",
			Name:      "stage_latency_ms",
			Help:      "Stage execution duration in milliseconds",
			Buckets:   []float64{1, 5, 10, 50, 100, 500, 1000, 5000, 10000}, // 1ms to 10s
		}, []string{"node_id", "status"}),

		inflightRuns: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "deskagent",
			Name:      "inflight_runs",
			Help:      "Pipeline runs currently executing",
		}),
	}
}

func (m *Metrics) runStarted() {
	m.inflightRuns.Inc()
}

func (m *Metrics) runFinished() {
	m.inflightRuns.Dec()
}

func (m *Metrics) observeStage(nodeID string, d time.Duration, status string) {
	m.stageLatency.WithLabelValues(nodeID, status).Observe(float64(d.Milliseconds()))
}

func (m *Metrics) countRun(status string) {
	m.runs.WithLabelValues(status).Inc()
}
