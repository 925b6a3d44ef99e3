// Package metrics implements a Prometheus-backed pipeline.MetricsSink,
// grounded on the teacher pack's livepeer-catalyst-api/metrics package
// (promauto-registered GaugeVec/CounterVec/HistogramVec), generalized from
// transcoding/playback metrics to per-stage pipeline observations.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusSink records every stage observation as Prometheus series.
type PrometheusSink struct {
	stageDuration *prometheus.HistogramVec
	stageCount    *prometheus.CounterVec
	stageItems    *prometheus.CounterVec
	jobsInFlight  prometheus.Gauge
}

// NewPrometheusSink registers the metric families against the default
// registry and returns a sink ready to observe stage completions.
func NewPrometheusSink() *PrometheusSink {
	return &PrometheusSink{
		stageDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "videoassembly_stage_duration_seconds",
			Help:    "Time taken by each pipeline stage",
			Buckets: []float64{.1, .5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}, []string{"stage", "success"}),
		stageCount: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "videoassembly_stage_total",
			Help: "Number of pipeline stage completions",
		}, []string{"stage", "success"}),
		stageItems: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "videoassembly_stage_items_processed_total",
			Help: "Number of items processed by a pipeline stage (e.g. segments rendered)",
		}, []string{"stage"}),
		jobsInFlight: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "videoassembly_jobs_in_flight",
			Help: "Number of video-assembly jobs currently running",
		}),
	}
}

// Observe satisfies pipeline.MetricsSink.
func (s *PrometheusSink) Observe(stage string, success bool, dur time.Duration, itemsProcessed int, err error) {
	label := "true"
	if !success {
		label = "false"
	}
	s.stageDuration.WithLabelValues(stage, label).Observe(dur.Seconds())
	s.stageCount.WithLabelValues(stage, label).Inc()
	if itemsProcessed > 0 {
		s.stageItems.WithLabelValues(stage).Add(float64(itemsProcessed))
	}
}

// JobStarted increments the in-flight gauge; pair with JobFinished.
func (s *PrometheusSink) JobStarted() {
	s.jobsInFlight.Inc()
}

// JobFinished decrements the in-flight gauge.
func (s *PrometheusSink) JobFinished() {
	s.jobsInFlight.Dec()
}
