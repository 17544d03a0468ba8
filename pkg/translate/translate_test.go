package translate_test

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/Sumatoshi-tech/gumsitter/pkg/cache"
	"github.com/Sumatoshi-tech/gumsitter/pkg/observability"
	"github.com/Sumatoshi-tech/gumsitter/pkg/rewrite"
	"github.com/Sumatoshi-tech/gumsitter/pkg/sitter"
	"github.com/Sumatoshi-tech/gumsitter/pkg/textutil"
	"github.com/Sumatoshi-tech/gumsitter/pkg/translate"
	"github.com/Sumatoshi-tech/gumsitter/pkg/tree"
)

const goSource = "package main\n\nfunc greet(name string) string {\n\treturn \"héllo \" + name\n}\n"

func types(root *tree.Node) []string {
	var out []string

	root.Walk(func(n *tree.Node, _ int) bool {
		out = append(out, n.Type)

		return true
	})

	return out
}

func find(root *tree.Node, typ string) *tree.Node {
	var found *tree.Node

	root.Walk(func(n *tree.Node, _ int) bool {
		if found == nil && n.Type == typ {
			found = n
		}

		return found == nil
	})

	return found
}

func assertSpansNested(t *testing.T, n *tree.Node) {
	t.Helper()

	prevEnd := n.Pos

	for _, child := range n.Children {
		assert.GreaterOrEqual(t, child.Pos, n.Pos, child.Type)
		assert.LessOrEqual(t, child.End(), n.End(), child.Type)
		assert.GreaterOrEqual(t, child.Pos, prevEnd, child.Type)

		prevEnd = child.End()

		assertSpansNested(t, child)
	}
}

func TestTranslate_AppliesLanguageRules(t *testing.T) {
	t.Parallel()

	tr := translate.New()

	result, err := tr.Translate(context.Background(), translate.Request{Language: "go", Source: []byte(goSource)})
	require.NoError(t, err)

	root := result.Tree
	assert.Equal(t, "go", result.Language)
	assert.Equal(t, 6, result.Lines)
	assert.Equal(t, "source_file", root.Type)
	assert.Equal(t, 0, root.Pos)
	assert.LessOrEqual(t, root.End(), textutil.CountChars([]byte(goSource)))

	all := types(root)
	assert.NotContains(t, all, "(")
	assert.NotContains(t, all, "{")
	assert.Contains(t, all, "arithmetic_operator")

	literal := find(root, "interpreted_string_literal")
	require.NotNil(t, literal)
	assert.Empty(t, literal.Children)
	assert.True(t, literal.HasLabel)
	assert.Equal(t, `"héllo "`, literal.Label)
	// Everything before the literal is ASCII, so its byte index is its
	// character offset.
	assert.Equal(t, strings.Index(goSource, `"h`), literal.Pos)
	assert.Equal(t, 8, literal.Length)

	assertSpansNested(t, root)
	assert.Equal(t, root.Size(), result.Stats.Emitted)
	assert.Positive(t, result.Stats.Ignored)
	assert.Positive(t, result.Stats.Flattened)
}

func TestTranslate_RawKeepsEveryNode(t *testing.T) {
	t.Parallel()

	tr := translate.New()

	result, err := tr.Translate(context.Background(), translate.Request{Language: "go", Source: []byte(goSource), Raw: true})
	require.NoError(t, err)

	all := types(result.Tree)
	assert.Contains(t, all, "(")
	assert.Contains(t, all, "+")
	assert.NotContains(t, all, "arithmetic_operator")
	assert.Zero(t, result.Stats.Ignored)
	assert.Zero(t, result.Stats.Flattened)

	assertSpansNested(t, result.Tree)
}

func TestTranslate_Deterministic(t *testing.T) {
	t.Parallel()

	tr := translate.New()
	req := translate.Request{Language: "go", Source: []byte(goSource)}

	first, err := tr.Translate(context.Background(), req)
	require.NoError(t, err)

	second, err := tr.Translate(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, first.Tree, second.Tree)
}

func TestTranslate_DetectsLanguage(t *testing.T) {
	t.Parallel()

	result, err := translate.New().Translate(context.Background(), translate.Request{
		Filename: "script.py",
		Source:   []byte("def f(x):\n    return 'a'\n"),
	})
	require.NoError(t, err)
	assert.Equal(t, "python", result.Language)
	assert.Equal(t, "module", result.Tree.Type)
}

func TestTranslate_Errors(t *testing.T) {
	t.Parallel()

	tr := translate.New()

	_, err := tr.Translate(context.Background(), translate.Request{Language: "go", Source: []byte("a\x00b")})
	require.ErrorIs(t, err, translate.ErrBinaryInput)

	_, err = tr.Translate(context.Background(), translate.Request{Language: "cobol", Source: []byte("x")})
	require.ErrorIs(t, err, sitter.ErrUnknownLanguage)

	_, err = tr.Translate(context.Background(), translate.Request{Filename: "README", Source: []byte("hello")})
	require.ErrorIs(t, err, translate.ErrUndetectedLanguage)
}

func TestTranslate_CustomRuleset(t *testing.T) {
	t.Parallel()

	ruleset, err := rewrite.ParseRuleset([]byte(`
go:
  aliased:
    "function_declaration identifier": function_name
  ignored:
    - package_clause
`))
	require.NoError(t, err)

	tr := translate.New(translate.WithRuleset(ruleset))
	assert.Same(t, ruleset["go"], tr.Rules("go"))
	assert.True(t, tr.Rules("java").IsEmpty())

	result, err := tr.Translate(context.Background(), translate.Request{Language: "go", Source: []byte(goSource)})
	require.NoError(t, err)

	all := types(result.Tree)
	assert.NotContains(t, all, "package_clause")
	assert.Contains(t, all, "(")

	name := find(result.Tree, "function_name")
	require.NotNil(t, name)
	assert.Equal(t, "greet", name.Label)
}

func TestTranslate_RecordsTelemetry(t *testing.T) {
	t.Parallel()

	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	metrics, err := observability.NewTranslationMetrics(mp.Meter("test"))
	require.NoError(t, err)

	var logs bytes.Buffer

	tr := translate.New(
		translate.WithTracer(tp.Tracer("test")),
		translate.WithMetrics(metrics),
		translate.WithLogger(slog.New(observability.NewTracingHandler(
			slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}),
			"gumsitter", "", observability.ModeCLI,
		))),
	)

	_, err = tr.Translate(context.Background(), translate.Request{Language: "go", Filename: "main.go", Source: []byte(goSource)})
	require.NoError(t, err)

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "gumsitter.translate", spans[0].Name)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	require.NotEmpty(t, rm.ScopeMetrics)

	assert.Contains(t, logs.String(), "translated")
	assert.Contains(t, logs.String(), "file=main.go")
	assert.Contains(t, logs.String(), "language=go")
	assert.Contains(t, logs.String(), "lines=6")
	assert.Contains(t, logs.String(), "trace_id="+spans[0].SpanContext.TraceID().String())
}

func TestTranslate_Cache(t *testing.T) {
	t.Parallel()

	lru := cache.NewLRU[*translate.Result](0)
	translator := translate.New(translate.WithCache(lru))
	ctx := context.Background()
	req := translate.Request{Language: "go", Source: []byte(goSource)}

	first, err := translator.Translate(ctx, req)
	require.NoError(t, err)
	assert.False(t, first.Cached)

	second, err := translator.Translate(ctx, req)
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Same(t, first.Tree, second.Tree)
	assert.Equal(t, first.Stats, second.Stats)

	req.Raw = true

	raw, err := translator.Translate(ctx, req)
	require.NoError(t, err)
	assert.False(t, raw.Cached)
	assert.Greater(t, raw.Tree.Size(), first.Tree.Size())

	stats := lru.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(2), stats.Misses)
	assert.Equal(t, 2, stats.Entries)
}
