package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"mercator-hq/viewexport/pkg/config"
)

// Collector owns the Prometheus registry of an export process and records
// page and run metrics. It implements export.Metrics.
//
// A disabled collector still satisfies the interface but records nothing.
type Collector struct {
	config   config.MetricsConfig
	registry *prometheus.Registry

	// Page metrics
	pageMetrics *PageMetrics

	// Run metrics
	runMetrics *RunMetrics
}

// NewCollector creates a new metrics collector with the specified
// configuration. If registry is nil, a fresh registry is created; the
// default global registry is never used.
//
// Example:
//
//	collector := metrics.NewCollector(config.MetricsConfig{
//		Enabled:   true,
//		Namespace: "viewexport",
//	}, nil)
func NewCollector(cfg config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	if cfg.Namespace == "" {
		cfg.Namespace = config.DefaultMetricsNamespace
	}

	return &Collector{
		config:      cfg,
		registry:    registry,
		pageMetrics: NewPageMetrics(cfg, registry),
		runMetrics:  NewRunMetrics(cfg, registry),
	}
}

// Registry returns the registry the collector writes to.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// RegisterRuntime adds the Go runtime and process collectors, for the
// long-running schedule mode.
func (c *Collector) RegisterRuntime() {
	c.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{Namespace: c.config.Namespace}),
	)
}

// ObservePage records one retrieved page.
func (c *Collector) ObservePage(entity string, records int, duration time.Duration) {
	if !c.config.Enabled {
		return
	}
	c.pageMetrics.RecordPage(entity, records, duration)
}

// ObserveRun records a finished export run. status is "success" or
// "failure".
func (c *Collector) ObserveRun(entity, status string, records int, duration time.Duration) {
	if !c.config.Enabled {
		return
	}
	c.runMetrics.RecordRun(entity, status, duration, time.Now())
}

// LabelFallback records an option value rendered as its numeric code.
func (c *Collector) LabelFallback(entity string) {
	if !c.config.Enabled {
		return
	}
	c.pageMetrics.RecordLabelFallback(entity)
}
