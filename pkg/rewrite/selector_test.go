package rewrite_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/gumsitter/pkg/rewrite"
)

type chainNode struct {
	tag    string
	parent *chainNode
}

func (n *chainNode) Type() string { return n.tag }

func (n *chainNode) Parent() (rewrite.Ancestry, bool) {
	if n.parent == nil {
		return nil, false
	}

	return n.parent, true
}

// chain builds root->...->leaf from outermost to innermost and returns the leaf.
func chain(tags ...string) *chainNode {
	var current *chainNode

	for _, tag := range tags {
		current = &chainNode{tag: tag, parent: current}
	}

	return current
}

func TestParseSelector(t *testing.T) {
	t.Parallel()

	sel, err := rewrite.ParseSelector("  class_declaration   class_body ")
	require.NoError(t, err)
	assert.Equal(t, "class_declaration class_body", sel.String())
	assert.True(t, sel.Match(chain("class_declaration", "class_body")))

	_, err = rewrite.ParseSelector("   ")
	require.ErrorIs(t, err, rewrite.ErrEmptySelector)
}

func TestMustParseSelector_PanicsOnEmpty(t *testing.T) {
	t.Parallel()

	assert.Panics(t, func() { rewrite.MustParseSelector("") })
}

func TestSelectorMatch(t *testing.T) {
	t.Parallel()

	leaf := chain("program", "class_declaration", "class_body")

	tests := []struct {
		name     string
		selector string
		want     bool
	}{
		{name: "own tag", selector: "class_body", want: true},
		{name: "own tag mismatch", selector: "class_declaration", want: false},
		{name: "parent and self", selector: "class_declaration class_body", want: true},
		{name: "full chain", selector: "program class_declaration class_body", want: true},
		{name: "wrong parent", selector: "interface_declaration class_body", want: false},
		{name: "not a subsequence match", selector: "program class_body", want: false},
		{name: "longer than ancestry", selector: "file program class_declaration class_body", want: false},
		{name: "ancestor only", selector: "program class_declaration", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			sel := rewrite.MustParseSelector(tt.selector)
			assert.Equal(t, tt.want, sel.Match(leaf))
		})
	}
}

func TestSelectorMatch_ExactLengthAtRoot(t *testing.T) {
	t.Parallel()

	// The chain reaches the root exactly on the last tag.
	leaf := chain("program", "expression")

	assert.True(t, rewrite.MustParseSelector("program expression").Match(leaf))
	assert.False(t, rewrite.MustParseSelector("expression program").Match(leaf))
}

func TestSelectorMatch_ZeroValue(t *testing.T) {
	t.Parallel()

	assert.False(t, rewrite.Selector{}.Match(chain("a")))
	assert.False(t, rewrite.MustParseSelector("a").Match(nil))
}

func TestFindSelector_FirstMatchWins(t *testing.T) {
	t.Parallel()

	leaf := chain("call", "argument_list", "string")
	selectors := []rewrite.Selector{
		rewrite.MustParseSelector("number"),
		rewrite.MustParseSelector("argument_list string"),
		rewrite.MustParseSelector("string"),
	}

	got, ok := rewrite.FindSelector(leaf, selectors)
	require.True(t, ok)
	assert.Equal(t, "argument_list string", got.String())

	_, ok = rewrite.FindSelector(chain("identifier"), selectors)
	assert.False(t, ok)
}

func TestRules_NilIsEmpty(t *testing.T) {
	t.Parallel()

	var rules *rewrite.Rules

	leaf := chain("identifier")

	_, ok := rules.Flatten(leaf)
	assert.False(t, ok)

	_, ok = rules.Alias(leaf)
	assert.False(t, ok)

	_, ok = rules.Ignore(leaf)
	assert.False(t, ok)

	_, ok = rules.IgnoreLabel(leaf)
	assert.False(t, ok)

	assert.True(t, rules.IsEmpty())
}

func TestRules_AliasOrder(t *testing.T) {
	t.Parallel()

	rules := &rewrite.Rules{
		Aliased: []rewrite.Alias{
			{Selector: rewrite.MustParseSelector("class_declaration class_body"), Type: "type_body"},
			{Selector: rewrite.MustParseSelector("class_body"), Type: "body"},
		},
	}

	got, ok := rules.Alias(chain("class_declaration", "class_body"))
	require.True(t, ok)
	assert.Equal(t, "type_body", got)

	got, ok = rules.Alias(chain("object_creation", "class_body"))
	require.True(t, ok)
	assert.Equal(t, "body", got)

	assert.Equal(t, 2, rules.Count(rewrite.CategoryAliased))
	assert.Equal(t, 0, rules.Count(rewrite.CategoryIgnored))
	assert.Equal(t, 0, rules.Count(rewrite.Category("unknown")))
	assert.False(t, rules.IsEmpty())
}

func TestRuleset_LookupMissFallsBackToEmpty(t *testing.T) {
	t.Parallel()

	java := &rewrite.Rules{Ignored: []rewrite.Selector{rewrite.MustParseSelector(";")}}
	ruleset := rewrite.Ruleset{"java": java, "broken": nil}

	assert.Same(t, java, ruleset.Lookup("java"))
	assert.True(t, ruleset.Lookup("cobol").IsEmpty())
	assert.NotNil(t, ruleset.Lookup("broken"))
	assert.True(t, ruleset.Lookup("broken").IsEmpty())
}
