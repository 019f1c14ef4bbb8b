package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"mercator-hq/viewexport/pkg/config"
)

// PageMetrics tracks record retrieval.
//
// Metrics:
//   - viewexport_pages_total: Pages retrieved by entity
//   - viewexport_records_total: Records retrieved by entity
//   - viewexport_page_duration_seconds: Page request duration histogram
//   - viewexport_label_fallbacks_total: Option values exported as numeric codes
type PageMetrics struct {
	pagesTotal     *prometheus.CounterVec
	recordsTotal   *prometheus.CounterVec
	pageDuration   *prometheus.HistogramVec
	labelFallbacks *prometheus.CounterVec
}

// NewPageMetrics creates and registers page metrics with the provided registry.
func NewPageMetrics(cfg config.MetricsConfig, registry *prometheus.Registry) *PageMetrics {
	pm := &PageMetrics{
		pagesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "pages_total",
				Help:      "Total number of record pages retrieved",
			},
			[]string{"entity"},
		),

		recordsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "records_total",
				Help:      "Total number of records retrieved",
			},
			[]string{"entity"},
		),

		pageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Name:      "page_duration_seconds",
				Help:      "Duration of page requests in seconds",
				Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"entity"},
		),

		labelFallbacks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "label_fallbacks_total",
				Help:      "Option set values exported as numeric codes because no label was found",
			},
			[]string{"entity"},
		),
	}

	registry.MustRegister(
		pm.pagesTotal,
		pm.recordsTotal,
		pm.pageDuration,
		pm.labelFallbacks,
	)

	return pm
}

// RecordPage records one page of records.
func (pm *PageMetrics) RecordPage(entity string, records int, duration time.Duration) {
	pm.pagesTotal.WithLabelValues(entity).Inc()
	pm.recordsTotal.WithLabelValues(entity).Add(float64(records))
	pm.pageDuration.WithLabelValues(entity).Observe(duration.Seconds())
}

// RecordLabelFallback records one missing option label.
func (pm *PageMetrics) RecordLabelFallback(entity string) {
	pm.labelFallbacks.WithLabelValues(entity).Inc()
}
