package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"mercator-hq/viewexport/pkg/config"
)

// RunMetrics tracks whole export runs.
//
// Metrics:
//   - viewexport_runs_total: Finished runs by entity and status
//   - viewexport_run_duration_seconds: Run duration histogram
//   - viewexport_last_success_timestamp_seconds: Unix time of the last successful run
type RunMetrics struct {
	runsTotal   *prometheus.CounterVec
	runDuration *prometheus.HistogramVec
	lastSuccess *prometheus.GaugeVec
}

// NewRunMetrics creates and registers run metrics with the provided registry.
func NewRunMetrics(cfg config.MetricsConfig, registry *prometheus.Registry) *RunMetrics {
	rm := &RunMetrics{
		runsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "runs_total",
				Help:      "Total number of export runs by status",
			},
			[]string{"entity", "status"},
		),

		runDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Name:      "run_duration_seconds",
				Help:      "Duration of export runs in seconds",
				Buckets:   prometheus.ExponentialBuckets(1, 2, 13), // 1s to ~68m
			},
			[]string{"entity"},
		),

		lastSuccess: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Name:      "last_success_timestamp_seconds",
				Help:      "Unix timestamp of the last successful export run",
			},
			[]string{"entity"},
		),
	}

	registry.MustRegister(
		rm.runsTotal,
		rm.runDuration,
		rm.lastSuccess,
	)

	return rm
}

// RecordRun records a finished run that ended at finished.
func (rm *RunMetrics) RecordRun(entity, status string, duration time.Duration, finished time.Time) {
	rm.runsTotal.WithLabelValues(entity, status).Inc()
	rm.runDuration.WithLabelValues(entity).Observe(duration.Seconds())
	if status == "success" {
		rm.lastSuccess.WithLabelValues(entity).Set(float64(finished.Unix()))
	}
}
