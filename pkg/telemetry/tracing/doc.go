// Package tracing sets up OpenTelemetry tracing for export runs.
//
// When telemetry.tracing.enabled is set, New installs a global tracer
// provider that exports spans over OTLP gRPC. The pipeline emits
// export.run, export.resolve_view and export.page spans, and the Dataverse
// client one dataverse.request span per HTTP attempt. Disabled tracing
// costs a noop tracer.
//
//	tracer, err := tracing.New(cfg.Telemetry.Tracing, tracing.WithVersion(version))
//	if err != nil {
//	    return err
//	}
//	defer tracer.Shutdown(context.Background())
package tracing
