package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/Sumatoshi-tech/gumsitter/pkg/config"
	"github.com/Sumatoshi-tech/gumsitter/pkg/mcp"
	"github.com/Sumatoshi-tech/gumsitter/pkg/observability"
)

const testMaxBody = 4096

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	return newTracedTestServer(t, noop.NewTracerProvider().Tracer("test"))
}

func newTracedTestServer(t *testing.T, tracer trace.Tracer) *httptest.Server {
	t.Helper()

	state := &appState{
		mode: observability.ModeServe,
		cfg: &config.Config{
			Output: config.OutputConfig{JSONIndent: "  "},
			Server: config.ServerConfig{MaxBodyBytes: testMaxBody},
			Cache:  config.CacheConfig{MaxBytes: 1 << 20},
		},
		providers: observability.Providers{
			Tracer: tracer,
			Logger: slog.New(slog.DiscardHandler),
		},
	}

	api, metricsHandler, err := newAPIServer(state, "")
	require.NoError(t, err)

	srv := httptest.NewServer(newServerMux(api, state.providers.Tracer, metricsHandler))
	t.Cleanup(srv.Close)

	return srv
}

func postTranslate(t *testing.T, srv *httptest.Server, body any) (*http.Response, string) {
	t.Helper()

	payload, err := json.Marshal(body)
	require.NoError(t, err)

	resp, err := http.Post(srv.URL+"/api/translate", "application/json", bytes.NewReader(payload))
	require.NoError(t, err)

	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp, string(data)
}

func TestServe_Translate(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)

	tests := []struct {
		name        string
		body        TranslateRequest
		contentType string
		contains    string
	}{
		{
			name:        "xml",
			body:        TranslateRequest{Code: goSource, Language: "go"},
			contentType: "application/xml",
			contains:    `<tree type="source_file"`,
		},
		{
			name:        "json detected",
			body:        TranslateRequest{Code: goSource, Filename: "main.go", Format: "json"},
			contentType: "application/json",
			contains:    `"type": "source_file"`,
		},
		{
			name:        "pretty raw",
			body:        TranslateRequest{Code: goSource, Language: "go", Format: "pretty", Raw: true},
			contentType: "text/plain; charset=utf-8",
			contains:    "\n      ( (",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			resp, body := postTranslate(t, srv, tt.body)
			require.Equal(t, http.StatusOK, resp.StatusCode, body)
			assert.Equal(t, tt.contentType, resp.Header.Get("Content-Type"))
			assert.Equal(t, "go", resp.Header.Get("X-Gumsitter-Language"))
			assert.Contains(t, body, tt.contains)
		})
	}
}

func TestServe_TranslateCache(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	body := TranslateRequest{Code: "package cached\n", Language: "go"}

	resp, first := postTranslate(t, srv, body)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "miss", resp.Header.Get("X-Gumsitter-Cache"))

	resp, second := postTranslate(t, srv, body)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "hit", resp.Header.Get("X-Gumsitter-Cache"))
	assert.Equal(t, first, second)
}

func TestServe_TranslateErrors(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)

	tests := []struct {
		name   string
		body   any
		status int
	}{
		{name: "unknown language", body: TranslateRequest{Code: "x", Language: "cobol"}, status: http.StatusUnprocessableEntity},
		{name: "undetected", body: TranslateRequest{Code: "x", Filename: "notes.txt"}, status: http.StatusUnprocessableEntity},
		{name: "bad format", body: TranslateRequest{Code: "x", Language: "go", Format: "yaml"}, status: http.StatusBadRequest},
		{name: "not json", body: "code", status: http.StatusBadRequest},
		{
			name:   "too large",
			body:   TranslateRequest{Code: strings.Repeat("x", testMaxBody), Language: "go"},
			status: http.StatusRequestEntityTooLarge,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			resp, body := postTranslate(t, srv, tt.body)
			assert.Equal(t, tt.status, resp.StatusCode)
			assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

			var errResp ErrorResponse
			require.NoError(t, json.Unmarshal([]byte(body), &errResp))
			assert.NotEmpty(t, errResp.Error)
		})
	}
}

func TestServe_LanguagesAndRules(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/languages")
	require.NoError(t, err)

	var langs []string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&langs))
	resp.Body.Close()
	assert.Contains(t, langs, "go")

	resp, err = http.Get(srv.URL + "/api/rules/go")
	require.NoError(t, err)

	var view mcp.RulesView
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&view))
	resp.Body.Close()
	assert.Equal(t, "go", view.Language)
	assert.Contains(t, view.Flattened, "interpreted_string_literal")
	assert.Contains(t, view.Ignored, "(")
}

func TestServe_MetricsAndHealth(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)

	resp, _ := postTranslate(t, srv, TranslateRequest{Code: goSource, Language: "go"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)

	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	metrics := string(data)
	assert.Contains(t, metrics, "gumsitter_translations_total")
	assert.Contains(t, metrics, "gumsitter_requests_total")
}

func TestServe_RouteSpans(t *testing.T) {
	t.Parallel()

	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))

	t.Cleanup(func() { require.NoError(t, tp.Shutdown(context.Background())) })

	srv := newTracedTestServer(t, tp.Tracer("test"))

	resp, _ := postTranslate(t, srv, TranslateRequest{Code: "package main\n", Language: "go"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	rulesResp, err := http.Get(srv.URL + "/api/rules/python")
	require.NoError(t, err)
	require.NoError(t, rulesResp.Body.Close())

	byName := make(map[string]tracetest.SpanStub)
	for _, span := range exporter.GetSpans() {
		byName[span.Name] = span
	}

	require.Contains(t, byName, "POST /api/translate")
	require.Contains(t, byName, "GET /api/rules/{language}")
	require.Contains(t, byName, "gumsitter.translate")

	server := byName["POST /api/translate"]
	assert.Equal(t, trace.SpanKindServer, server.SpanKind)
	assert.Equal(t, server.SpanContext.SpanID(), byName["gumsitter.translate"].Parent.SpanID())

	attrs := make(map[string]any)
	for _, kv := range byName["GET /api/rules/{language}"].Attributes {
		attrs[string(kv.Key)] = kv.Value.AsInterface()
	}

	assert.Equal(t, "/api/rules/{language}", attrs["http.route"])
	assert.Equal(t, int64(http.StatusOK), attrs["http.response.status_code"])
}

func TestTranslateStatus(t *testing.T) {
	t.Parallel()

	assert.Equal(t, http.StatusInternalServerError, translateStatus(io.ErrUnexpectedEOF))
}
