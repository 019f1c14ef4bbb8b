// Package telemetry groups the observability packages of viewexport.
//
//   - logging: slog-backed structured logging with secret redaction
//   - metrics: Prometheus collector for pages, records and runs
//   - tracing: OpenTelemetry tracer provider with an OTLP gRPC exporter
//
// Each package is configured from its section of telemetry in the
// configuration file.
package telemetry
