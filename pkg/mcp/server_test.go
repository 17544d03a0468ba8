package mcp_test

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/gumsitter/pkg/mcp"
)

const goSource = "package main\nfunc main() {}\n"

func connect(t *testing.T) *mcpsdk.ClientSession {
	t.Helper()

	srv := mcp.NewServer(mcp.ServerDeps{})

	clientTransport, serverTransport := mcpsdk.NewInMemoryTransports()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)

	serverDone := make(chan error, 1)

	go func() {
		serverDone <- srv.RunWithTransport(ctx, serverTransport)
	}()

	client := mcpsdk.NewClient(&mcpsdk.Implementation{
		Name:    "test-client",
		Version: "1.0.0",
	}, nil)

	session, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = session.Close()

		cancel()
		<-serverDone
	})

	return session
}

func callTool(t *testing.T, session *mcpsdk.ClientSession, name string, args map[string]any) *mcpsdk.CallToolResult {
	t.Helper()

	result, err := session.CallTool(context.Background(), &mcpsdk.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	require.NoError(t, err)
	require.NotNil(t, result)

	return result
}

func firstText(t *testing.T, result *mcpsdk.CallToolResult) string {
	t.Helper()

	require.NotEmpty(t, result.Content)

	text, ok := result.Content[0].(*mcpsdk.TextContent)
	require.True(t, ok)

	return text.Text
}

func TestNewServer_ListToolNames(t *testing.T) {
	t.Parallel()

	srv := mcp.NewServer(mcp.ServerDeps{})

	assert.Equal(t, []string{
		mcp.ToolNameLanguages,
		mcp.ToolNameNormalize,
		mcp.ToolNameRules,
	}, srv.ListToolNames())
}

func TestServer_ToolsList(t *testing.T) {
	t.Parallel()

	session := connect(t)

	toolsResult, err := session.ListTools(context.Background(), nil)
	require.NoError(t, err)

	names := make([]string, 0, len(toolsResult.Tools))
	for _, tool := range toolsResult.Tools {
		names = append(names, tool.Name)
		assert.NotNil(t, tool.InputSchema, "tool %s missing input schema", tool.Name)
	}

	assert.ElementsMatch(t, []string{"gumtree_normalize", "gumtree_rules", "gumtree_languages"}, names)
}

func TestServer_Normalize(t *testing.T) {
	t.Parallel()

	session := connect(t)

	tests := []struct {
		name     string
		args     map[string]any
		contains string
	}{
		{
			name:     "xml by default",
			args:     map[string]any{"code": goSource, "language": "go"},
			contains: `<tree type="source_file"`,
		},
		{
			name:     "pretty",
			args:     map[string]any{"code": goSource, "language": "go", "format": "pretty"},
			contains: "source_file [0,",
		},
		{
			name:     "json with detection",
			args:     map[string]any{"code": goSource, "filename": "main.go", "format": "json"},
			contains: `"type": "source_file"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			result := callTool(t, session, mcp.ToolNameNormalize, tt.args)
			assert.False(t, result.IsError, firstText(t, result))
			assert.Contains(t, firstText(t, result), tt.contains)
		})
	}
}

func TestServer_Normalize_Summary(t *testing.T) {
	t.Parallel()

	session := connect(t)

	result := callTool(t, session, mcp.ToolNameNormalize, map[string]any{"code": goSource, "language": "go"})
	require.False(t, result.IsError, firstText(t, result))

	raw, err := json.Marshal(result.StructuredContent)
	require.NoError(t, err)

	var out struct {
		Data mcp.NormalizeSummary `json:"data"`
	}
	require.NoError(t, json.Unmarshal(raw, &out))

	assert.Equal(t, "go", out.Data.Language)
	assert.Equal(t, 3, out.Data.Lines)
	assert.Positive(t, out.Data.Nodes)
}

func TestServer_Normalize_Errors(t *testing.T) {
	t.Parallel()

	session := connect(t)

	tests := []struct {
		name    string
		args    map[string]any
		message string
	}{
		{
			name:    "empty code",
			args:    map[string]any{"code": "", "language": "go"},
			message: mcp.ErrEmptyCode.Error(),
		},
		{
			name:    "no language",
			args:    map[string]any{"code": goSource},
			message: mcp.ErrEmptyLanguage.Error(),
		},
		{
			name:    "binary format",
			args:    map[string]any{"code": goSource, "language": "go", "format": "msgpack"},
			message: "binary formats",
		},
		{
			name:    "unknown language",
			args:    map[string]any{"code": goSource, "language": "cobol"},
			message: "cobol",
		},
		{
			name:    "too large",
			args:    map[string]any{"code": strings.Repeat("x", mcp.MaxCodeInputBytes+1), "language": "go"},
			message: mcp.ErrCodeTooLarge.Error(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			result := callTool(t, session, mcp.ToolNameNormalize, tt.args)
			assert.True(t, result.IsError)
			assert.Contains(t, firstText(t, result), tt.message)
		})
	}
}

func TestServer_Rules(t *testing.T) {
	t.Parallel()

	session := connect(t)

	result := callTool(t, session, mcp.ToolNameRules, map[string]any{"language": "java"})
	require.False(t, result.IsError)

	text := firstText(t, result)
	assert.Contains(t, text, `"language": "java"`)
	assert.Contains(t, text, `"flattened"`)
	assert.Contains(t, text, `"label_ignored"`)

	result = callTool(t, session, mcp.ToolNameRules, map[string]any{"language": ""})
	assert.True(t, result.IsError)
}

func TestServer_Languages(t *testing.T) {
	t.Parallel()

	session := connect(t)

	result := callTool(t, session, mcp.ToolNameLanguages, map[string]any{})
	require.False(t, result.IsError)

	text := firstText(t, result)
	for _, lang := range []string{`"go"`, `"java"`, `"python"`} {
		assert.Contains(t, text, lang)
	}
}
