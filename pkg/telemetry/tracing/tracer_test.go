package tracing

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"

	"mercator-hq/viewexport/pkg/config"
)

func TestNew_Disabled(t *testing.T) {
	tracer, err := New(config.TracingConfig{Enabled: false, ServiceName: "viewexport"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if tracer.Enabled() {
		t.Error("expected disabled tracer")
	}

	_, span := tracer.Start(context.Background(), "export.run")
	if span.SpanContext().IsValid() {
		t.Error("noop tracer produced a valid span")
	}
	span.End()

	if err := tracer.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
}

func TestNew_InvalidRatio(t *testing.T) {
	_, err := New(config.TracingConfig{Enabled: true, SampleRatio: 2}, WithExporter(tracetest.NewInMemoryExporter()))
	if err == nil {
		t.Fatal("expected error for sample ratio 2")
	}
}

func TestNew_ExportsSpans(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tracer, err := New(config.TracingConfig{
		Enabled:     true,
		SampleRatio: 1,
		ServiceName: "viewexport-test",
	}, WithExporter(exporter), WithVersion("1.2.3"))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx, parent := tracer.Start(context.Background(), "export.run")
	_, child := tracer.Start(ctx, "export.page")
	SetError(child, errors.New("page failed"))
	child.End()
	parent.End()

	if TraceID(ctx) == "" {
		t.Error("TraceID() returned empty string for an active span")
	}

	if err := tracer.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}

	spans := exporter.GetSpans()
	if len(spans) != 2 {
		t.Fatalf("expected 2 spans, got %d", len(spans))
	}
	page := spans[0]
	if page.Name != "export.page" {
		t.Errorf("first ended span = %q", page.Name)
	}
	if page.Status.Code != codes.Error {
		t.Errorf("status = %v, want Error", page.Status.Code)
	}
	if page.Parent.SpanID() != spans[1].SpanContext.SpanID() {
		t.Error("page span is not a child of the run span")
	}
}

func TestCreateSampler(t *testing.T) {
	tests := []struct {
		ratio   float64
		wantErr bool
	}{
		{0, false},
		{0.5, false},
		{1, false},
		{-0.1, true},
		{1.1, true},
	}
	for _, tt := range tests {
		_, err := createSampler(tt.ratio)
		if (err != nil) != tt.wantErr {
			t.Errorf("createSampler(%v) error = %v, wantErr %v", tt.ratio, err, tt.wantErr)
		}
	}
}

func TestSetError_Nil(t *testing.T) {
	// must not panic on a noop span
	SetError(trace.SpanFromContext(context.Background()), nil)
}

func TestHTTPMiddleware_EchoesTraceID(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tracer, err := New(config.TracingConfig{Enabled: true, SampleRatio: 1, ServiceName: "t"}, WithExporter(exporter))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { _ = tracer.Shutdown(context.Background()) })

	const traceparent = "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01"
	var seen string
	handler := HTTPMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = TraceID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("traceparent", traceparent)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if seen != "4bf92f3577b34da6a3ce929d0e0e4736" {
		t.Errorf("handler saw trace id %q", seen)
	}
	if rec.Header().Get("X-Trace-ID") != seen {
		t.Errorf("X-Trace-ID = %q", rec.Header().Get("X-Trace-ID"))
	}
}
