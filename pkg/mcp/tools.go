package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Sumatoshi-tech/gumsitter/pkg/rewrite"
	"github.com/Sumatoshi-tech/gumsitter/pkg/sitter"
	"github.com/Sumatoshi-tech/gumsitter/pkg/translate"
	"github.com/Sumatoshi-tech/gumsitter/pkg/tree"
)

// Tool names.
const (
	ToolNameNormalize = "gumtree_normalize"
	ToolNameRules     = "gumtree_rules"
	ToolNameLanguages = "gumtree_languages"
)

// MaxCodeInputBytes bounds inline code input (1 MB).
const MaxCodeInputBytes = 1 << 20

// Sentinel errors for tool input validation.
var (
	ErrEmptyCode      = errors.New("code parameter is required and must not be empty")
	ErrEmptyLanguage  = errors.New("language or filename is required")
	ErrCodeTooLarge   = errors.New("code input exceeds maximum size")
	ErrTextOnlyFormat = errors.New("binary formats cannot be returned as text")
)

const (
	normalizeToolDescription = "Parse source code with a tree-sitter grammar and return the normalized " +
		"GumTree tree (xml, pretty or json). Rewrite rules of the language are applied unless raw is set."
	rulesToolDescription = "Show the rewrite rules (flattened, aliased, ignored, label_ignored) " +
		"applied to a language."
	languagesToolDescription = "List the bundled tree-sitter grammars."
)

// NormalizeInput is the input schema of gumtree_normalize.
type NormalizeInput struct {
	Code     string `json:"code"               jsonschema:"source code to normalize"`
	Language string `json:"language,omitempty" jsonschema:"grammar identifier (e.g. go java python)"`
	Filename string `json:"filename,omitempty" jsonschema:"file name used to detect the language when none is given"`
	Format   string `json:"format,omitempty"   jsonschema:"xml (default), pretty or json"`
	Raw      bool   `json:"raw,omitempty"      jsonschema:"disable the rewrite rules"`
}

// RulesInput is the input schema of gumtree_rules.
type RulesInput struct {
	Language string `json:"language" jsonschema:"grammar identifier"`
}

// LanguagesInput is the empty input schema of gumtree_languages.
type LanguagesInput struct{}

// ToolOutput is the structured output of every tool.
type ToolOutput struct {
	Data any `json:"data"`
}

// RulesView is the JSON shape of one language's rules.
type RulesView struct {
	Language     string      `json:"language"`
	Flattened    []string    `json:"flattened"`
	Aliased      []AliasView `json:"aliased"`
	Ignored      []string    `json:"ignored"`
	LabelIgnored []string    `json:"label_ignored"`
}

// NormalizeSummary is the structured output of gumtree_normalize; the
// rendered tree travels in the text content.
type NormalizeSummary struct {
	Language  string `json:"language"`
	Lines     int    `json:"lines"`
	Nodes     int    `json:"nodes"`
	Ignored   int    `json:"ignored"`
	Flattened int    `json:"flattened"`
	Aliased   int    `json:"aliased"`
}

// AliasView is one aliased selector in rule order.
type AliasView struct {
	Selector string `json:"selector"`
	Type     string `json:"type"`
}

func (s *Server) handleNormalize(
	ctx context.Context,
	_ *mcpsdk.CallToolRequest,
	input NormalizeInput,
) (*mcpsdk.CallToolResult, ToolOutput, error) {
	err := validateNormalizeInput(input)
	if err != nil {
		return errorResult(err)
	}

	format, err := tree.ParseFormat(input.Format)
	if err != nil {
		return errorResult(err)
	}

	if format == tree.FormatMsgpack || format == tree.FormatMsgpackLZ4 {
		return errorResult(fmt.Errorf("%w: %s", ErrTextOnlyFormat, format))
	}

	result, err := s.translator.Translate(ctx, translate.Request{
		Language: input.Language,
		Filename: input.Filename,
		Source:   []byte(input.Code),
		Raw:      input.Raw,
	})
	if err != nil {
		return errorResult(err)
	}

	var buf bytes.Buffer

	err = tree.Write(&buf, result.Tree, format, tree.RenderOptions{Indent: "  "})
	if err != nil {
		return errorResult(fmt.Errorf("render tree: %w", err))
	}

	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{
			&mcpsdk.TextContent{Text: buf.String()},
		},
	}, ToolOutput{Data: NormalizeSummary{
		Language:  result.Language,
		Lines:     result.Lines,
		Nodes:     result.Tree.Size(),
		Ignored:   result.Stats.Ignored,
		Flattened: result.Stats.Flattened,
		Aliased:   result.Stats.Aliased,
	}}, nil
}

func (s *Server) handleRules(
	_ context.Context,
	_ *mcpsdk.CallToolRequest,
	input RulesInput,
) (*mcpsdk.CallToolResult, ToolOutput, error) {
	if input.Language == "" {
		return errorResult(ErrEmptyLanguage)
	}

	return jsonResult(NewRulesView(input.Language, s.translator.Rules(input.Language)))
}

func (s *Server) handleLanguages(
	_ context.Context,
	_ *mcpsdk.CallToolRequest,
	_ LanguagesInput,
) (*mcpsdk.CallToolResult, ToolOutput, error) {
	return jsonResult(sitter.Languages())
}

// NewRulesView converts rules into their JSON view, keeping rule order.
func NewRulesView(lang string, rules *rewrite.Rules) RulesView {
	view := RulesView{
		Language:     lang,
		Flattened:    selectorStrings(rules.Flattened),
		Aliased:      make([]AliasView, 0, len(rules.Aliased)),
		Ignored:      selectorStrings(rules.Ignored),
		LabelIgnored: selectorStrings(rules.LabelIgnored),
	}

	for _, alias := range rules.Aliased {
		view.Aliased = append(view.Aliased, AliasView{Selector: alias.Selector.String(), Type: alias.Type})
	}

	return view
}

func selectorStrings(selectors []rewrite.Selector) []string {
	out := make([]string, len(selectors))
	for i, sel := range selectors {
		out[i] = sel.String()
	}

	return out
}

func validateNormalizeInput(input NormalizeInput) error {
	if input.Code == "" {
		return ErrEmptyCode
	}

	if input.Language == "" && input.Filename == "" {
		return ErrEmptyLanguage
	}

	if len(input.Code) > MaxCodeInputBytes {
		return fmt.Errorf("%w: %d bytes (max %d)", ErrCodeTooLarge, len(input.Code), MaxCodeInputBytes)
	}

	return nil
}

func errorResult(err error) (*mcpsdk.CallToolResult, ToolOutput, error) {
	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{
			&mcpsdk.TextContent{Text: err.Error()},
		},
		IsError: true,
	}, ToolOutput{}, nil
}

func jsonResult(value any) (*mcpsdk.CallToolResult, ToolOutput, error) {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return errorResult(fmt.Errorf("encode result: %w", err))
	}

	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{
			&mcpsdk.TextContent{Text: string(data)},
		},
	}, ToolOutput{Data: value}, nil
}
