package observability_test

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/Sumatoshi-tech/gumsitter/pkg/observability"
)

func TestTranslationMetrics_Record(t *testing.T) {
	t.Parallel()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	tm, err := observability.NewTranslationMetrics(mp.Meter("test"))
	require.NoError(t, err)

	tm.RecordTranslation(context.Background(), "go", false, observability.TranslationCounts{
		Visited: 12, Emitted: 9, Ignored: 3, Flattened: 1, Bytes: 240,
	}, 5*time.Millisecond)

	rm := collectMetrics(t, reader)

	for _, name := range []string{
		"gumsitter.translations.total",
		"gumsitter.translation.duration.seconds",
		"gumsitter.nodes.visited.total",
		"gumsitter.nodes.emitted.total",
		"gumsitter.nodes.ignored.total",
		"gumsitter.nodes.flattened.total",
		"gumsitter.source.bytes",
	} {
		require.NotNil(t, findMetric(rm, name), name)
	}

	visited := findMetric(rm, "gumsitter.nodes.visited.total")
	sum, ok := visited.Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, sum.DataPoints, 1)
	assert.Equal(t, int64(12), sum.DataPoints[0].Value)
}

func TestTranslationMetrics_NilIsNoop(t *testing.T) {
	t.Parallel()

	var tm *observability.TranslationMetrics

	assert.NotPanics(t, func() {
		tm.RecordTranslation(context.Background(), "go", true, observability.TranslationCounts{}, time.Millisecond)
	})
}

func TestPrometheusHandler_ServesTranslationMetrics(t *testing.T) {
	t.Parallel()

	handler, mp, err := observability.PrometheusHandler()
	require.NoError(t, err)

	tm, err := observability.NewTranslationMetrics(mp.Meter("test"))
	require.NoError(t, err)

	tm.RecordTranslation(context.Background(), "java", false, observability.TranslationCounts{Visited: 1, Emitted: 1}, time.Millisecond)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody))

	assert.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "gumsitter_translations")
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	level, err := observability.ParseLevel("debug")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)

	level, err = observability.ParseLevel(" WARN ")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelWarn, level)

	_, err = observability.ParseLevel("loud")
	require.Error(t, err)
}

func TestInitWithWriter_LogsToWriter(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	cfg := observability.DefaultConfig()
	cfg.LogLevel = slog.LevelDebug

	providers, err := observability.InitWithWriter(cfg, &buf)
	require.NoError(t, err)

	t.Cleanup(func() { require.NoError(t, providers.Shutdown(context.Background())) })

	providers.Logger.Debug("hello", "lang", "go")

	assert.Contains(t, buf.String(), "hello")
	assert.Contains(t, buf.String(), "service=gumsitter")
}
