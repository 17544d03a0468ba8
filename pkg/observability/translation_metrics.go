package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	metricTranslations        = "gumsitter.translations.total"
	metricTranslationDuration = "gumsitter.translation.duration.seconds"
	metricNodesVisited        = "gumsitter.nodes.visited.total"
	metricNodesEmitted        = "gumsitter.nodes.emitted.total"
	metricNodesIgnored        = "gumsitter.nodes.ignored.total"
	metricNodesFlattened      = "gumsitter.nodes.flattened.total"
	metricSourceBytes         = "gumsitter.source.bytes"

	attrLanguage = "language"
	attrRaw      = "raw"
)

// TranslationCounts are the per-call numbers recorded by TranslationMetrics.
type TranslationCounts struct {
	Visited   int
	Emitted   int
	Ignored   int
	Flattened int
	Bytes     int
}

// TranslationMetrics holds the instruments describing tree translations.
type TranslationMetrics struct {
	translations metric.Int64Counter
	duration     metric.Float64Histogram
	visited      metric.Int64Counter
	emitted      metric.Int64Counter
	ignored      metric.Int64Counter
	flattened    metric.Int64Counter
	sourceBytes  metric.Int64Histogram
}

// NewTranslationMetrics creates the translation instruments from mt.
func NewTranslationMetrics(mt metric.Meter) (*TranslationMetrics, error) {
	tm := &TranslationMetrics{}

	var err error

	tm.translations, err = mt.Int64Counter(metricTranslations,
		metric.WithDescription("Number of translated syntax trees"),
		metric.WithUnit("{tree}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricTranslations, err)
	}

	tm.duration, err = mt.Float64Histogram(metricTranslationDuration,
		metric.WithDescription("Parse and normalize duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBucketBoundaries...),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricTranslationDuration, err)
	}

	counters := []struct {
		target *metric.Int64Counter
		name   string
		desc   string
	}{
		{&tm.visited, metricNodesVisited, "Input nodes looked at by the normalizer"},
		{&tm.emitted, metricNodesEmitted, "Output nodes produced"},
		{&tm.ignored, metricNodesIgnored, "Subtrees dropped by ignored rules"},
		{&tm.flattened, metricNodesFlattened, "Subtrees collapsed by flattened rules"},
	}

	for _, c := range counters {
		*c.target, err = mt.Int64Counter(c.name, metric.WithDescription(c.desc), metric.WithUnit("{node}"))
		if err != nil {
			return nil, fmt.Errorf("create %s: %w", c.name, err)
		}
	}

	tm.sourceBytes, err = mt.Int64Histogram(metricSourceBytes,
		metric.WithDescription("Size of translated source buffers"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricSourceBytes, err)
	}

	return tm, nil
}

// RecordTranslation records one successful translation.
func (tm *TranslationMetrics) RecordTranslation(
	ctx context.Context, lang string, raw bool, counts TranslationCounts, duration time.Duration,
) {
	if tm == nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String(attrLanguage, lang),
		attribute.Bool(attrRaw, raw),
	)

	tm.translations.Add(ctx, 1, attrs)
	tm.duration.Record(ctx, duration.Seconds(), attrs)
	tm.visited.Add(ctx, int64(counts.Visited), attrs)
	tm.emitted.Add(ctx, int64(counts.Emitted), attrs)
	tm.ignored.Add(ctx, int64(counts.Ignored), attrs)
	tm.flattened.Add(ctx, int64(counts.Flattened), attrs)
	tm.sourceBytes.Record(ctx, int64(counts.Bytes), attrs)
}
