package rewrite

import (
	_ "embed"
	"errors"
	"fmt"
	"io"
	"sync"

	"gopkg.in/yaml.v3"
)

// Sentinel errors for rules loading.
var (
	ErrInvalidDocument = errors.New("invalid rules document")
	ErrInvalidRule     = errors.New("invalid rule")
)

//go:embed rules.yml
var defaultRules []byte

var (
	defaultOnce    sync.Once
	defaultRuleset Ruleset
	errDefault     error
)

// DefaultRuleset returns the rules bundled with the binary. The embedded
// document is parsed once; a broken document is a build defect and panics.
func DefaultRuleset() Ruleset {
	defaultOnce.Do(func() {
		defaultRuleset, errDefault = ParseRuleset(defaultRules)
	})

	if errDefault != nil {
		panic(fmt.Sprintf("rewrite: embedded rules: %v", errDefault))
	}

	return defaultRuleset
}

// DefaultDocument returns the raw embedded rules document.
func DefaultDocument() []byte {
	return append([]byte(nil), defaultRules...)
}

// LoadRuleset reads and validates a rules document.
func LoadRuleset(reader io.Reader) (Ruleset, error) {
	content, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read rules: %w", err)
	}

	return ParseRuleset(content)
}

// ParseRuleset validates content against the rules schema and converts it
// into typed rules. The key order of every aliased mapping is kept, since
// it decides which alias wins when selectors overlap.
func ParseRuleset(content []byte) (Ruleset, error) {
	var generic any

	err := yaml.Unmarshal(content, &generic)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}

	if generic == nil {
		return Ruleset{}, nil
	}

	err = validateDocument(generic)
	if err != nil {
		return nil, err
	}

	var doc yaml.Node

	err = yaml.Unmarshal(content, &doc)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}

	root := &doc
	if root.Kind == yaml.DocumentNode && len(root.Content) > 0 {
		root = root.Content[0]
	}

	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: top level must map languages to rules", ErrInvalidDocument)
	}

	ruleset := make(Ruleset, len(root.Content)/2)

	for i := 0; i+1 < len(root.Content); i += 2 {
		lang := root.Content[i].Value

		rules, buildErr := buildRules(root.Content[i+1])
		if buildErr != nil {
			return nil, fmt.Errorf("language %s: %w", lang, buildErr)
		}

		ruleset[lang] = rules
	}

	return ruleset, nil
}

func buildRules(body *yaml.Node) (*Rules, error) {
	rules := Empty()

	if body.Kind != yaml.MappingNode {
		return rules, nil
	}

	for i := 0; i+1 < len(body.Content); i += 2 {
		category := Category(body.Content[i].Value)
		value := body.Content[i+1]

		var err error

		switch category {
		case CategoryFlattened:
			rules.Flattened, err = buildSelectors(value)
		case CategoryIgnored:
			rules.Ignored, err = buildSelectors(value)
		case CategoryLabelIgnored:
			rules.LabelIgnored, err = buildSelectors(value)
		case CategoryAliased:
			rules.Aliased, err = buildAliases(value)
		default:
			err = fmt.Errorf("%w: unknown category %q", ErrInvalidRule, category)
		}

		if err != nil {
			return nil, fmt.Errorf("%s: %w", category, err)
		}
	}

	return rules, nil
}

func buildSelectors(list *yaml.Node) ([]Selector, error) {
	if list.Kind != yaml.SequenceNode {
		return nil, nil
	}

	selectors := make([]Selector, 0, len(list.Content))

	for _, item := range list.Content {
		sel, err := ParseSelector(item.Value)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %w", ErrInvalidRule, item.Line, err)
		}

		selectors = append(selectors, sel)
	}

	return selectors, nil
}

func buildAliases(mapping *yaml.Node) ([]Alias, error) {
	if mapping.Kind != yaml.MappingNode {
		return nil, nil
	}

	aliases := make([]Alias, 0, len(mapping.Content)/2)

	for i := 0; i+1 < len(mapping.Content); i += 2 {
		key, value := mapping.Content[i], mapping.Content[i+1]

		sel, err := ParseSelector(key.Value)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %w", ErrInvalidRule, key.Line, err)
		}

		aliases = append(aliases, Alias{Selector: sel, Type: value.Value})
	}

	return aliases, nil
}
