package observability

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/trace"
)

// Log attribute keys added by TracingHandler.
const (
	LogKeyTraceID  = "trace_id"
	LogKeySpanID   = "span_id"
	LogKeyLanguage = "language"

	logKeyService = "service"
	logKeyEnv     = "env"
	logKeyMode    = "mode"
)

type languageKey struct{}

// ContextWithLanguage tags ctx with the grammar a translation resolved to.
// Records logged through a TracingHandler with that context carry it as
// "language".
func ContextWithLanguage(ctx context.Context, lang string) context.Context {
	if lang == "" {
		return ctx
	}

	return context.WithValue(ctx, languageKey{}, lang)
}

// LanguageFromContext returns the language set by ContextWithLanguage.
func LanguageFromContext(ctx context.Context) string {
	lang, _ := ctx.Value(languageKey{}).(string)

	return lang
}

// TracingHandler is a [slog.Handler] that adds the active span ids and the
// translation language found in the record's context. Process attributes
// (service, mode, env) are bound once at construction, outside any group.
type TracingHandler struct {
	inner slog.Handler
}

// NewTracingHandler wraps inner. An empty env is omitted.
func NewTracingHandler(inner slog.Handler, service, env string, mode AppMode) *TracingHandler {
	attrs := make([]slog.Attr, 0, 3)
	attrs = append(attrs, slog.String(logKeyService, service), slog.String(logKeyMode, string(mode)))

	if env != "" {
		attrs = append(attrs, slog.String(logKeyEnv, env))
	}

	return &TracingHandler{inner: inner.WithAttrs(attrs)}
}

func (th *TracingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return th.inner.Enabled(ctx, level)
}

func (th *TracingHandler) Handle(ctx context.Context, record slog.Record) error {
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		record.AddAttrs(
			slog.String(LogKeyTraceID, sc.TraceID().String()),
			slog.String(LogKeySpanID, sc.SpanID().String()),
		)
	}

	if lang := LanguageFromContext(ctx); lang != "" {
		record.AddAttrs(slog.String(LogKeyLanguage, lang))
	}

	if err := th.inner.Handle(ctx, record); err != nil {
		return fmt.Errorf("tracing handler: %w", err)
	}

	return nil
}

func (th *TracingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &TracingHandler{inner: th.inner.WithAttrs(attrs)}
}

func (th *TracingHandler) WithGroup(name string) slog.Handler {
	return &TracingHandler{inner: th.inner.WithGroup(name)}
}
