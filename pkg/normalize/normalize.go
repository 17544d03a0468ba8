// Package normalize rewrites a parsed syntax tree into the canonical
// normalized tree.
//
// Rule precedence for a single node:
//
//   - ignored is tested on a child by its parent before anything else, so an
//     ignored node never reaches the other rules; the root is never ignored;
//   - flattened stops recursion and labels the node with its full text;
//   - aliased replaces the emitted tag and nothing else;
//   - label_ignored removes the label of a childless, non-flattened node.
//
// Within a category the first matching rule wins.
package normalize

import (
	"errors"
	"fmt"

	"github.com/Sumatoshi-tech/gumsitter/pkg/position"
	"github.com/Sumatoshi-tech/gumsitter/pkg/rewrite"
	"github.com/Sumatoshi-tech/gumsitter/pkg/tree"
)

// ErrNilRoot is returned when Normalize is called without a tree.
var ErrNilRoot = errors.New("normalize: nil root")

// SyntaxNode is a read-only node of an externally parsed tree. Children are
// in source order and lie within the span of their parent.
type SyntaxNode interface {
	rewrite.Ancestry
	Children() []SyntaxNode
	Start() position.Point
	End() position.Point
	Text() []byte
}

// Stats counts what a normalization did.
type Stats struct {
	// Visited is the number of input nodes looked at, ignored ones included.
	// The subtrees of ignored and flattened nodes are never entered.
	Visited int
	// Emitted is the number of output nodes.
	Emitted int
	// Ignored is the number of dropped subtrees.
	Ignored int
	// Flattened is the number of nodes collapsed into a leaf.
	Flattened int
	// Aliased is the number of emitted nodes whose tag was replaced.
	Aliased int
}

// Normalize converts root into a normalized tree using rules and the line
// offsets of the source root was parsed from. A nil rules value applies no
// rewriting.
func Normalize(root SyntaxNode, rules *rewrite.Rules, offsets position.LineOffsets) (*tree.Node, error) {
	out, _, err := NormalizeWithStats(root, rules, offsets)

	return out, err
}

// NormalizeWithStats is Normalize that also reports counters.
func NormalizeWithStats(root SyntaxNode, rules *rewrite.Rules, offsets position.LineOffsets) (*tree.Node, Stats, error) {
	if root == nil {
		return nil, Stats{}, ErrNilRoot
	}

	n := normalizer{rules: rules, offsets: offsets}

	out, err := n.visit(root)
	if err != nil {
		return nil, n.stats, err
	}

	return out, n.stats, nil
}

type normalizer struct {
	rules   *rewrite.Rules
	offsets position.LineOffsets
	stats   Stats
}

func (n *normalizer) visit(node SyntaxNode) (*tree.Node, error) {
	n.stats.Visited++

	typ := node.Type()
	if alias, ok := n.rules.Alias(node); ok {
		typ = alias
		n.stats.Aliased++
	}

	start, length, err := n.span(node)
	if err != nil {
		return nil, err
	}

	children := node.Children()
	_, flattened := n.rules.Flatten(node)

	var out *tree.Node

	switch {
	case flattened:
		n.stats.Flattened++
		out = tree.NewLeaf(typ, start, length, Sanitize(string(node.Text())))
	case len(children) == 0:
		if _, skip := n.rules.IgnoreLabel(node); skip {
			out = tree.New(typ, start, length, nil)
		} else {
			out = tree.NewLeaf(typ, start, length, Sanitize(string(node.Text())))
		}
	default:
		kept, childErr := n.visitChildren(children)
		if childErr != nil {
			return nil, childErr
		}

		out = tree.New(typ, start, length, kept)
	}

	n.stats.Emitted++

	return out, nil
}

func (n *normalizer) visitChildren(children []SyntaxNode) ([]*tree.Node, error) {
	kept := make([]*tree.Node, 0, len(children))

	for _, child := range children {
		if _, ignored := n.rules.Ignore(child); ignored {
			n.stats.Ignored++
			n.stats.Visited++

			continue
		}

		out, err := n.visit(child)
		if err != nil {
			return nil, err
		}

		kept = append(kept, out)
	}

	return kept, nil
}

func (n *normalizer) span(node SyntaxNode) (start, length int, err error) {
	start, err = n.offsets.FlatOffset(node.Start())
	if err != nil {
		return 0, 0, fmt.Errorf("%s start: %w", node.Type(), err)
	}

	end, err := n.offsets.FlatOffset(node.End())
	if err != nil {
		return 0, 0, fmt.Errorf("%s end: %w", node.Type(), err)
	}

	if end < start {
		return 0, 0, fmt.Errorf("%w: %s ends at %d before its start %d",
			position.ErrMalformedPosition, node.Type(), end, start)
	}

	return start, end - start, nil
}
