package observability

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// exportedPrefixes are the attribute namespaces gumsitter sets on spans.
var exportedPrefixes = []string{
	"gumsitter.",
	"translate.",
	"normalize.",
	"rules.",
	"mcp.",
	"http.",
	"error.",
}

// sourceKeys may carry user source code or whole payloads. They are dropped
// even inside an exported namespace.
var sourceKeys = map[attribute.Key]bool{
	"translate.source":   true,
	"translate.code":     true,
	"mcp.code":           true,
	"http.request.body":  true,
	"http.response.body": true,
	"request.body":       true,
	"response.body":      true,
}

// attributeFilter drops span attributes outside exportedPrefixes before
// the spans reach the exporter.
type attributeFilter struct {
	delegate sdktrace.SpanProcessor
	logger   *slog.Logger
	warned   sync.Map
}

// NewAttributeFilter wraps delegate. When logger is set, the first drop of
// each key is reported at warn level.
func NewAttributeFilter(delegate sdktrace.SpanProcessor, logger *slog.Logger) sdktrace.SpanProcessor {
	return &attributeFilter{delegate: delegate, logger: logger}
}

func (f *attributeFilter) OnStart(parent context.Context, s sdktrace.ReadWriteSpan) {
	f.delegate.OnStart(parent, s)
}

func (f *attributeFilter) OnEnd(s sdktrace.ReadOnlySpan) {
	f.delegate.OnEnd(&filteredSpan{ReadOnlySpan: s, keep: f.keep})
}

func (f *attributeFilter) Shutdown(ctx context.Context) error {
	if err := f.delegate.Shutdown(ctx); err != nil {
		return fmt.Errorf("attribute filter shutdown: %w", err)
	}

	return nil
}

func (f *attributeFilter) ForceFlush(ctx context.Context) error {
	if err := f.delegate.ForceFlush(ctx); err != nil {
		return fmt.Errorf("attribute filter flush: %w", err)
	}

	return nil
}

func (f *attributeFilter) keep(key attribute.Key) bool {
	if exportable(key) {
		return true
	}

	if f.logger != nil {
		if _, seen := f.warned.LoadOrStore(key, struct{}{}); !seen {
			f.logger.Warn("span attribute dropped", "key", string(key))
		}
	}

	return false
}

func exportable(key attribute.Key) bool {
	if sourceKeys[key] {
		return false
	}

	if key == "error" {
		return true
	}

	for _, prefix := range exportedPrefixes {
		if strings.HasPrefix(string(key), prefix) {
			return true
		}
	}

	return false
}

// filteredSpan is a read-only span view without the dropped attributes.
type filteredSpan struct {
	sdktrace.ReadOnlySpan

	keep func(attribute.Key) bool
}

func (s *filteredSpan) Attributes() []attribute.KeyValue {
	all := s.ReadOnlySpan.Attributes()
	kept := make([]attribute.KeyValue, 0, len(all))

	for _, kv := range all {
		if s.keep(kv.Key) {
			kept = append(kept, kv)
		}
	}

	return kept
}
