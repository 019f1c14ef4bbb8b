// Package metrics provides Prometheus metrics for export runs.
//
// # Metrics
//
//   - viewexport_pages_total{entity}
//   - viewexport_records_total{entity}
//   - viewexport_page_duration_seconds{entity}
//   - viewexport_label_fallbacks_total{entity}
//   - viewexport_runs_total{entity,status}
//   - viewexport_run_duration_seconds{entity}
//   - viewexport_last_success_timestamp_seconds{entity}
//
// The prefix follows telemetry.metrics.namespace.
//
// # Usage
//
//	collector := metrics.NewCollector(cfg.Telemetry.Metrics, nil)
//	exporter, err := export.NewExporter(client, export.Options{Metrics: collector})
//
//	// schedule mode
//	router.Handle("/metrics", collector.Handler())
//
//	// one-shot mode with the node exporter
//	err = collector.WriteTextfile("/var/lib/node_exporter/viewexport.prom")
package metrics
