// Package mcp exposes the gumsitter translator as Model Context Protocol
// tools over stdio.
package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sumatoshi-tech/gumsitter/pkg/observability"
	"github.com/Sumatoshi-tech/gumsitter/pkg/translate"
	"github.com/Sumatoshi-tech/gumsitter/pkg/version"
)

const (
	serverName = "gumsitter"
	toolCount  = 3
)

// ServerDeps holds injectable dependencies. Zero-value fields use defaults.
type ServerDeps struct {
	// Translator runs translations; nil uses the embedded rules.
	Translator *translate.Translator

	// Logger is passed to the SDK server.
	Logger *slog.Logger

	// Metrics records per-tool RED metrics when set.
	Metrics *observability.REDMetrics

	// Tracer creates one span per tool call when set.
	Tracer trace.Tracer
}

// Server wraps the MCP SDK server with the gumsitter tools.
type Server struct {
	inner      *mcpsdk.Server
	translator *translate.Translator
	mu         sync.RWMutex
	tools      []string
	metrics    *observability.REDMetrics
	tracer     trace.Tracer
}

// NewServer creates a server with every tool registered.
func NewServer(deps ServerDeps) *Server {
	opts := &mcpsdk.ServerOptions{}
	if deps.Logger != nil {
		opts.Logger = deps.Logger
	}

	inner := mcpsdk.NewServer(
		&mcpsdk.Implementation{
			Name:    serverName,
			Version: version.Version,
		},
		opts,
	)

	translator := deps.Translator
	if translator == nil {
		translator = translate.New()
	}

	srv := &Server{
		inner:      inner,
		translator: translator,
		tools:      make([]string, 0, toolCount),
		metrics:    deps.Metrics,
		tracer:     deps.Tracer,
	}

	srv.registerTools()

	return srv
}

// ListToolNames returns the sorted names of the registered tools.
func (s *Server) ListToolNames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, len(s.tools))
	copy(names, s.tools)
	sort.Strings(names)

	return names
}

// Run serves on stdio until ctx is canceled or the client disconnects.
func (s *Server) Run(ctx context.Context) error {
	return s.RunWithTransport(ctx, &mcpsdk.StdioTransport{})
}

// RunWithTransport serves on transport until ctx is canceled or the
// connection closes.
func (s *Server) RunWithTransport(ctx context.Context, transport mcpsdk.Transport) error {
	err := s.inner.Run(ctx, transport)
	if err != nil {
		return fmt.Errorf("mcp server: %w", err)
	}

	return nil
}

func (s *Server) registerTools() {
	addTool(s, ToolNameNormalize, normalizeToolDescription, s.handleNormalize)
	addTool(s, ToolNameRules, rulesToolDescription, s.handleRules)
	addTool(s, ToolNameLanguages, languagesToolDescription, s.handleLanguages)
}

func addTool[Input any](s *Server, name, description string, handler toolHandler[Input]) {
	mcpsdk.AddTool(s.inner, &mcpsdk.Tool{
		Name:        name,
		Description: description,
	}, withMetrics(s.metrics, name, withTracing(s.tracer, name, handler)))

	s.mu.Lock()
	defer s.mu.Unlock()

	s.tools = append(s.tools, name)
}

type toolHandler[Input any] = func(context.Context, *mcpsdk.CallToolRequest, Input) (*mcpsdk.CallToolResult, ToolOutput, error)

const (
	mcpSpanPrefix  = "mcp."
	traceIDMetaKey = "trace_id"
)

// withTracing wraps a handler in a span and appends the trace id to the
// result when the span is sampled.
func withTracing[Input any](tracer trace.Tracer, toolName string, handler toolHandler[Input]) toolHandler[Input] {
	if tracer == nil {
		return handler
	}

	return func(ctx context.Context, req *mcpsdk.CallToolRequest, input Input) (*mcpsdk.CallToolResult, ToolOutput, error) {
		ctx, span := tracer.Start(ctx, mcpSpanPrefix+toolName,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(attribute.String("mcp.tool", toolName)),
		)
		defer span.End()

		result, output, err := handler(ctx, req, input)

		sc := span.SpanContext()
		if sc.IsSampled() && result != nil {
			result.Content = append(result.Content, &mcpsdk.TextContent{
				Text: fmt.Sprintf("%s=%s", traceIDMetaKey, sc.TraceID().String()),
			})
		}

		return result, output, err
	}
}

// withMetrics wraps a handler to record RED metrics per call.
func withMetrics[Input any](metrics *observability.REDMetrics, toolName string, handler toolHandler[Input]) toolHandler[Input] {
	if metrics == nil {
		return handler
	}

	return func(ctx context.Context, req *mcpsdk.CallToolRequest, input Input) (*mcpsdk.CallToolResult, ToolOutput, error) {
		start := time.Now()
		op := mcpSpanPrefix + toolName

		decInflight := metrics.TrackInflight(ctx, op)
		defer decInflight()

		result, output, err := handler(ctx, req, input)

		status := "ok"
		if err != nil || (result != nil && result.IsError) {
			status = "error"
		}

		metrics.RecordRequest(ctx, op, status, time.Since(start))

		return result, output, err
	}
}
