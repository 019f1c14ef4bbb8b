package logging

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/trace"
)

// Context keys for common log fields.
type contextKey string

const (
	// RunIDKey is the context key for export run IDs.
	RunIDKey contextKey = "run_id"

	// EntityKey is the context key for the exported entity.
	EntityKey contextKey = "entity"

	// ViewKey is the context key for the exported view.
	ViewKey contextKey = "view"
)

// WithRunID adds a run ID to the context.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, RunIDKey, runID)
}

// GetRunID retrieves the run ID from the context.
func GetRunID(ctx context.Context) string {
	if runID, ok := ctx.Value(RunIDKey).(string); ok {
		return runID
	}
	return ""
}

// WithJob adds the entity and view of an export to the context.
func WithJob(ctx context.Context, entity, view string) context.Context {
	ctx = context.WithValue(ctx, EntityKey, entity)
	return context.WithValue(ctx, ViewKey, view)
}

// GetJob retrieves the entity and view from the context.
func GetJob(ctx context.Context) (entity, view string) {
	entity, _ = ctx.Value(EntityKey).(string)
	view, _ = ctx.Value(ViewKey).(string)
	return entity, view
}

// extractContextFields returns the run fields of ctx and, when a span is
// active, its trace and span IDs, as key-value pairs.
func extractContextFields(ctx context.Context) []any {
	var fields []any

	if runID := GetRunID(ctx); runID != "" {
		fields = append(fields, "run_id", runID)
	}

	entity, view := GetJob(ctx)
	if entity != "" {
		fields = append(fields, "entity", entity)
	}
	if view != "" {
		fields = append(fields, "view", view)
	}

	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		fields = append(fields, "trace_id", sc.TraceID().String(), "span_id", sc.SpanID().String())
	}

	return fields
}

// contextHandler adds the run and trace fields of the record's context, so
// packages holding a plain *slog.Logger get them through the *Context
// methods.
type contextHandler struct {
	slog.Handler
}

func (h contextHandler) Handle(ctx context.Context, r slog.Record) error {
	if fields := extractContextFields(ctx); len(fields) > 0 {
		r.Add(fields...)
	}
	return h.Handler.Handle(ctx, r)
}

func (h contextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return contextHandler{h.Handler.WithAttrs(attrs)}
}

func (h contextHandler) WithGroup(name string) slog.Handler {
	return contextHandler{h.Handler.WithGroup(name)}
}
