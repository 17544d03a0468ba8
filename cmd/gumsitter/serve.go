package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sumatoshi-tech/gumsitter/pkg/mcp"
	"github.com/Sumatoshi-tech/gumsitter/pkg/observability"
	"github.com/Sumatoshi-tech/gumsitter/pkg/sitter"
	"github.com/Sumatoshi-tech/gumsitter/pkg/translate"
	"github.com/Sumatoshi-tech/gumsitter/pkg/tree"
)

const (
	serverIdleTimeout     = 120 * time.Second
	serverShutdownTimeout = 10 * time.Second
	meterName             = "gumsitter"
)

// TranslateRequest is the body of POST /api/translate.
type TranslateRequest struct {
	Code     string `json:"code"`
	Language string `json:"language,omitempty"`
	Filename string `json:"filename,omitempty"`
	Format   string `json:"format,omitempty"`
	Raw      bool   `json:"raw,omitempty"`
}

// ErrorResponse is the body of every failed API call.
type ErrorResponse struct {
	Error string `json:"error"`
}

var contentTypes = map[tree.Format]string{
	tree.FormatXML:        "application/xml",
	tree.FormatPretty:     "text/plain; charset=utf-8",
	tree.FormatJSON:       "application/json",
	tree.FormatMsgpack:    "application/msgpack",
	tree.FormatMsgpackLZ4: "application/octet-stream",
}

func serveCmd(state *appState) *cobra.Command {
	var addr, rulesPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve translations over HTTP",
		Long: `Start an HTTP server exposing:
  POST /api/translate          translate {"code", "language", "filename", "format", "raw"}
  GET  /api/languages          bundled grammars
  GET  /api/rules/{language}   rules of a language
  GET  /metrics                Prometheus metrics
  GET  /healthz                liveness`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if addr == "" {
				addr = state.cfg.Server.Addr
			}

			return runServe(cmd.Context(), state, addr, rulesPath)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from server.addr)")
	cmd.Flags().StringVar(&rulesPath, "rules", "", "rules document replacing the embedded rules")

	return cmd
}

func runServe(ctx context.Context, state *appState, addr, rulesPath string) error {
	api, metricsHandler, err := newAPIServer(state, rulesPath)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}

	server := &http.Server{
		Handler:      newServerMux(api, state.providers.Tracer, metricsHandler),
		ReadTimeout:  state.cfg.Server.ReadTimeout,
		WriteTimeout: state.cfg.Server.WriteTimeout,
		IdleTimeout:  serverIdleTimeout,
		BaseContext:  func(net.Listener) context.Context { return ctx },
	}

	serveErr := make(chan error, 1)

	go func() {
		serveErr <- server.Serve(listener)
	}()

	api.logger.Info("gumsitter server listening", "addr", listener.Addr().String())

	select {
	case err = <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}

		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), serverShutdownTimeout)
	defer cancel()

	err = server.Shutdown(shutdownCtx)
	if err != nil {
		return fmt.Errorf("shutdown server: %w", err)
	}

	api.logger.Info("gumsitter server stopped")

	return nil
}

// apiServer handles the HTTP API.
type apiServer struct {
	translator *translate.Translator
	red        *observability.REDMetrics
	logger     *slog.Logger
	maxBody    int64
	indent     string
}

// newAPIServer wires the translator and RED metrics to a Prometheus meter
// provider and returns the matching scrape handler.
func newAPIServer(state *appState, rulesPath string) (*apiServer, http.Handler, error) {
	rules, err := state.ruleset(rulesPath)
	if err != nil {
		return nil, nil, err
	}

	metricsHandler, meterProvider, err := observability.PrometheusHandler()
	if err != nil {
		return nil, nil, err
	}

	meter := meterProvider.Meter(meterName)

	red, err := observability.NewREDMetrics(meter)
	if err != nil {
		return nil, nil, fmt.Errorf("create RED metrics: %w", err)
	}

	translationMetrics, err := observability.NewTranslationMetrics(meter)
	if err != nil {
		return nil, nil, fmt.Errorf("create translation metrics: %w", err)
	}

	return &apiServer{
		translator: state.translator(rules, translationMetrics),
		red:        red,
		logger:     state.logger(),
		maxBody:    state.cfg.Server.MaxBodyBytes,
		indent:     state.cfg.Output.JSONIndent,
	}, metricsHandler, nil
}

// newServerMux traces every API route under its pattern. The scrape and
// health endpoints are not traced.
func newServerMux(api *apiServer, tracer trace.Tracer, metricsHandler http.Handler) http.Handler {
	mux := http.NewServeMux()

	traced := func(pattern, op string, handler statusHandler) {
		mux.Handle(pattern, observability.HTTPMiddleware(tracer, api.instrument(op, handler)))
	}

	traced("POST /api/translate", "translate", api.handleTranslate)
	traced("GET /api/languages", "languages", api.handleLanguages)
	traced("GET /api/rules/{language}", "rules", api.handleRules)

	mux.Handle("GET /metrics", metricsHandler)
	mux.HandleFunc("GET /healthz", func(rw http.ResponseWriter, _ *http.Request) {
		rw.WriteHeader(http.StatusOK)
	})

	return mux
}

// statusHandler is an API handler returning the status it wrote.
type statusHandler func(rw http.ResponseWriter, req *http.Request) int

func (a *apiServer) instrument(op string, handler statusHandler) http.HandlerFunc {
	op = "http." + op

	return func(rw http.ResponseWriter, req *http.Request) {
		start := time.Now()

		done := a.red.TrackInflight(req.Context(), op)
		defer done()

		status := "ok"
		if code := handler(rw, req); code >= http.StatusBadRequest {
			status = "error"
		}

		a.red.RecordRequest(req.Context(), op, status, time.Since(start))
	}
}

func (a *apiServer) handleTranslate(rw http.ResponseWriter, req *http.Request) int {
	var body TranslateRequest

	decodeErr := json.NewDecoder(http.MaxBytesReader(rw, req.Body, a.maxBody)).Decode(&body)
	if decodeErr != nil {
		var maxErr *http.MaxBytesError
		if errors.As(decodeErr, &maxErr) {
			return a.writeError(rw, req, http.StatusRequestEntityTooLarge, decodeErr)
		}

		return a.writeError(rw, req, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", decodeErr))
	}

	format, err := tree.ParseFormat(body.Format)
	if err != nil {
		return a.writeError(rw, req, http.StatusBadRequest, err)
	}

	result, err := a.translator.Translate(req.Context(), translate.Request{
		Language: body.Language,
		Filename: body.Filename,
		Source:   []byte(body.Code),
		Raw:      body.Raw,
	})
	if err != nil {
		return a.writeError(rw, req, translateStatus(err), err)
	}

	var buf bytes.Buffer

	err = tree.Write(&buf, result.Tree, format, tree.RenderOptions{Indent: a.indent})
	if err != nil {
		return a.writeError(rw, req, http.StatusInternalServerError, err)
	}

	rw.Header().Set("Content-Type", contentTypes[format])
	rw.Header().Set("X-Gumsitter-Language", result.Language)
	rw.Header().Set("X-Gumsitter-Cache", cacheStatus(result.Cached))
	rw.WriteHeader(http.StatusOK)

	_, err = rw.Write(buf.Bytes())
	if err != nil {
		a.logger.WarnContext(req.Context(), "write response failed", "error", err)
	}

	return http.StatusOK
}

func (a *apiServer) handleLanguages(rw http.ResponseWriter, req *http.Request) int {
	return a.writeJSON(rw, req, http.StatusOK, sitter.Languages())
}

func (a *apiServer) handleRules(rw http.ResponseWriter, req *http.Request) int {
	lang := req.PathValue("language")

	return a.writeJSON(rw, req, http.StatusOK, mcp.NewRulesView(lang, a.translator.Rules(lang)))
}

func cacheStatus(cached bool) string {
	if cached {
		return "hit"
	}

	return "miss"
}

func translateStatus(err error) int {
	switch {
	case errors.Is(err, sitter.ErrUnknownLanguage),
		errors.Is(err, translate.ErrUndetectedLanguage),
		errors.Is(err, translate.ErrBinaryInput):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (a *apiServer) writeError(rw http.ResponseWriter, req *http.Request, code int, err error) int {
	a.logger.DebugContext(req.Context(), "api request failed", "path", req.URL.Path, "status", code, "error", err)

	return a.writeJSON(rw, req, code, ErrorResponse{Error: err.Error()})
}

func (a *apiServer) writeJSON(rw http.ResponseWriter, req *http.Request, code int, value any) int {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(code)

	encodeErr := json.NewEncoder(rw).Encode(value)
	if encodeErr != nil {
		a.logger.ErrorContext(req.Context(), "failed to encode JSON response", "error", encodeErr)
	}

	return code
}
