package export

import (
	"context"
	"log/slog"
)

// Logger is the logging sink consumed by the export pipeline. *slog.Logger
// and the telemetry logger both satisfy it.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type loggerKey struct{}

// ContextWithLogger returns a context whose pipeline log entries go to l
// instead of the logger the components were built with. Entries of a run
// do not repeat its run ID, entity and view, so l is expected to carry
// them. Exporter.Run scopes its own logger when ctx has none.
func ContextWithLogger(ctx context.Context, l Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, l)
}

// loggerFrom returns the run logger of ctx, or fallback.
func loggerFrom(ctx context.Context, fallback Logger) Logger {
	if l, ok := ctx.Value(loggerKey{}).(Logger); ok && l != nil {
		return l
	}
	return fallback
}

// fieldLogger prepends fixed fields to every entry.
type fieldLogger struct {
	l      Logger
	fields []any
}

func withFields(l Logger, fields ...any) Logger {
	return fieldLogger{l: l, fields: fields}
}

func (f fieldLogger) with(args []any) []any {
	return append(f.fields[:len(f.fields):len(f.fields)], args...)
}

func (f fieldLogger) Debug(msg string, args ...any) { f.l.Debug(msg, f.with(args)...) }
func (f fieldLogger) Info(msg string, args ...any)  { f.l.Info(msg, f.with(args)...) }
func (f fieldLogger) Warn(msg string, args ...any)  { f.l.Warn(msg, f.with(args)...) }
func (f fieldLogger) Error(msg string, args ...any) { f.l.Error(msg, f.with(args)...) }

func loggerOrDiscard(l Logger) Logger {
	if l == nil {
		return slog.New(slog.DiscardHandler)
	}
	return l
}
