// Package translate runs the whole pipeline for one source buffer: parse
// with a bundled grammar, look up the rewrite rules of its language and
// normalize the syntax tree.
package translate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/dustin/go-humanize"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"

	"github.com/Sumatoshi-tech/gumsitter/pkg/cache"
	"github.com/Sumatoshi-tech/gumsitter/pkg/normalize"
	"github.com/Sumatoshi-tech/gumsitter/pkg/observability"
	"github.com/Sumatoshi-tech/gumsitter/pkg/position"
	"github.com/Sumatoshi-tech/gumsitter/pkg/rewrite"
	"github.com/Sumatoshi-tech/gumsitter/pkg/sitter"
	"github.com/Sumatoshi-tech/gumsitter/pkg/textutil"
	"github.com/Sumatoshi-tech/gumsitter/pkg/tree"
)

// Sentinel errors for translation requests.
var (
	ErrBinaryInput        = errors.New("input looks binary")
	ErrUndetectedLanguage = errors.New("cannot detect language")
)

const spanTranslate = "gumsitter.translate"

// nodeSizeEstimate is the accounted size of one cached tree node.
const nodeSizeEstimate = 96

// Request describes one buffer to translate.
type Request struct {
	// Language is a grammar identifier. When empty it is detected from
	// Filename and Source.
	Language string
	// Filename is only used for language detection and logs.
	Filename string
	Source   []byte
	// Raw skips the rewrite rules.
	Raw bool
}

// Result is a translated tree and what it took to build it.
type Result struct {
	Tree     *tree.Node
	Language string
	Stats    normalize.Stats
	Duration time.Duration
	// Lines is the number of lines in the source; a trailing newline opens
	// an empty last line.
	Lines int
	// Cached reports that the tree came from the translator cache.
	Cached bool
}

// Translator is safe for concurrent use; its ruleset is never modified.
type Translator struct {
	parser  *sitter.Parser
	rules   rewrite.Ruleset
	logger  *slog.Logger
	tracer  trace.Tracer
	metrics *observability.TranslationMetrics
	cache   *cache.LRU[*Result]
}

// Option configures a Translator.
type Option func(*Translator)

// WithRuleset replaces the embedded rules.
func WithRuleset(rules rewrite.Ruleset) Option {
	return func(t *Translator) { t.rules = rules }
}

// WithLogger sets the logger; translations log at debug level only.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Translator) { t.logger = logger }
}

// WithTracer sets the tracer used for one span per translation.
func WithTracer(tracer trace.Tracer) Option {
	return func(t *Translator) { t.tracer = tracer }
}

// WithMetrics sets the instruments translations are recorded on.
func WithMetrics(metrics *observability.TranslationMetrics) Option {
	return func(t *Translator) { t.metrics = metrics }
}

// WithCache reuses trees of identical requests. Cached trees are shared
// between callers and must not be modified.
func WithCache(c *cache.LRU[*Result]) Option {
	return func(t *Translator) { t.cache = c }
}

// New returns a Translator using the embedded rules unless overridden.
func New(opts ...Option) *Translator {
	t := &Translator{
		parser: sitter.NewParser(),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		tracer: nooptrace.NewTracerProvider().Tracer(""),
	}

	for _, opt := range opts {
		opt(t)
	}

	if t.rules == nil {
		t.rules = rewrite.DefaultRuleset()
	}

	return t
}

// Rules returns the rules applied to lang; a language without rules gets
// the empty configuration.
func (t *Translator) Rules(lang string) *rewrite.Rules {
	return t.rules.Lookup(lang)
}

// Ruleset returns the active ruleset.
func (t *Translator) Ruleset() rewrite.Ruleset {
	return t.rules
}

// Translate parses req.Source and returns its normalized tree.
func (t *Translator) Translate(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()

	ctx, span := t.tracer.Start(ctx, spanTranslate,
		trace.WithAttributes(
			attribute.Int("translate.bytes", len(req.Source)),
			attribute.Bool("translate.raw", req.Raw),
		),
	)
	defer span.End()

	result, err := t.translate(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		return nil, err
	}

	result.Duration = time.Since(start)
	ctx = observability.ContextWithLanguage(ctx, result.Language)

	span.SetAttributes(
		attribute.String("translate.language", result.Language),
		attribute.Int("normalize.visited", result.Stats.Visited),
		attribute.Int("normalize.emitted", result.Stats.Emitted),
		attribute.Bool("translate.cached", result.Cached),
	)

	t.metrics.RecordTranslation(ctx, result.Language, req.Raw, observability.TranslationCounts{
		Visited:   result.Stats.Visited,
		Emitted:   result.Stats.Emitted,
		Ignored:   result.Stats.Ignored,
		Flattened: result.Stats.Flattened,
		Bytes:     len(req.Source),
	}, result.Duration)

	if t.logger.Enabled(ctx, slog.LevelDebug) {
		t.logger.DebugContext(ctx, "translated",
			"file", req.Filename,
			"size", humanize.Bytes(uint64(len(req.Source))),
			"lines", result.Lines,
			"chars", textutil.CountChars(req.Source),
			"nodes", result.Stats.Emitted,
			"ignored", result.Stats.Ignored,
			"duration", result.Duration,
			"cached", result.Cached,
		)
	}

	return result, nil
}

func (t *Translator) translate(ctx context.Context, req Request) (*Result, error) {
	if textutil.IsBinary(req.Source) {
		return nil, fmt.Errorf("%w: %s", ErrBinaryInput, req.Filename)
	}

	lang, err := t.language(req)
	if err != nil {
		return nil, err
	}

	var key cache.Key

	if t.cache != nil {
		key = cacheKey(lang, req)

		if cached, ok := t.cache.Get(key); ok {
			hit := *cached
			hit.Cached = true

			return &hit, nil
		}
	}

	offsets := position.NewLineOffsets(req.Source)

	parsed, err := t.parser.Parse(ctx, lang, req.Source)
	if err != nil {
		return nil, err
	}

	rules := rewrite.Empty()
	if !req.Raw {
		rules = t.rules.Lookup(lang)
	}

	out, stats, err := normalize.NormalizeWithStats(parsed.Root(), rules, offsets)
	if err != nil {
		return nil, fmt.Errorf("normalize %s: %w", lang, err)
	}

	result := &Result{Tree: out, Language: lang, Stats: stats, Lines: offsets.Lines()}

	if t.cache != nil {
		stored := *result
		t.cache.Put(key, &stored, int64(len(req.Source))+int64(stats.Emitted)*nodeSizeEstimate)
	}

	return result, nil
}

func cacheKey(lang string, req Request) cache.Key {
	mode := []byte{0}
	if req.Raw {
		mode[0] = 1
	}

	return cache.NewKey([]byte(lang), mode, req.Source)
}

func (t *Translator) language(req Request) (string, error) {
	if req.Language != "" {
		if !sitter.IsSupported(req.Language) {
			return "", fmt.Errorf("%w: %q", sitter.ErrUnknownLanguage, req.Language)
		}

		return req.Language, nil
	}

	lang, ok := sitter.DetectLanguage(req.Filename, req.Source)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUndetectedLanguage, req.Filename)
	}

	return lang, nil
}
