package sitter

import (
	"unicode/utf8"

	sitter "github.com/alexaandru/go-tree-sitter-bare"

	"github.com/Sumatoshi-tech/gumsitter/pkg/normalize"
	"github.com/Sumatoshi-tech/gumsitter/pkg/position"
	"github.com/Sumatoshi-tech/gumsitter/pkg/rewrite"
)

// Tree is a parsed syntax tree detached from the tree-sitter runtime.
type Tree struct {
	Language string
	root     *Node
}

// Root returns the root node of the tree.
func (t *Tree) Root() *Node {
	return t.root
}

// Node is one syntax node. Columns are counted in characters, while
// tree-sitter reports them in bytes.
type Node struct {
	typ      string
	parent   *Node
	children []normalize.SyntaxNode
	start    position.Point
	end      position.Point
	text     []byte
}

var _ normalize.SyntaxNode = (*Node)(nil)

// Type returns the grammar tag of the node.
func (n *Node) Type() string { return n.typ }

// Parent returns the enclosing node, or false for the root.
func (n *Node) Parent() (rewrite.Ancestry, bool) {
	if n.parent == nil {
		return nil, false
	}

	return n.parent, true
}

// Children returns every child, anonymous tokens included, in source order.
func (n *Node) Children() []normalize.SyntaxNode { return n.children }

// Start returns the position of the first character.
func (n *Node) Start() position.Point { return n.start }

// End returns the position just past the last character.
func (n *Node) End() position.Point { return n.end }

// Text returns the source bytes the node spans.
func (n *Node) Text() []byte { return n.text }

// converter turns tree-sitter nodes into Nodes over one source buffer.
type converter struct {
	source []byte
	// lineStarts holds the byte offset of the first byte of every row.
	lineStarts []int
}

func newConverter(source []byte) *converter {
	lineStarts := []int{0}

	for idx, b := range source {
		if b == '\n' {
			lineStarts = append(lineStarts, idx+1)
		}
	}

	return &converter{source: source, lineStarts: lineStarts}
}

func (c *converter) convert(tsNode sitter.Node, parent *Node) *Node {
	startByte := c.clamp(int(tsNode.StartByte()))
	endByte := c.clamp(int(tsNode.EndByte()))

	out := &Node{
		typ:    tsNode.Type(),
		parent: parent,
		start:  c.point(tsNode.StartPoint(), startByte),
		end:    c.point(tsNode.EndPoint(), endByte),
		text:   c.source[startByte:max(startByte, endByte)],
	}

	count := tsNode.ChildCount()
	if count == 0 {
		return out
	}

	out.children = make([]normalize.SyntaxNode, 0, count)

	for idx := range count {
		child := tsNode.Child(idx)
		if child.IsNull() {
			continue
		}

		out.children = append(out.children, c.convert(child, out))
	}

	return out
}

// point converts a tree-sitter row/byte-column point into a row and a
// character column, using the absolute byte offset of the same position.
func (c *converter) point(p sitter.Point, offset int) position.Point {
	row := int(p.Row)

	// Rows past the table are left for the normalizer to reject.
	if row >= len(c.lineStarts) {
		return position.Point{Line: row, Column: int(p.Column)}
	}

	lineStart := min(c.lineStarts[row], offset)

	return position.Point{Line: row, Column: utf8.RuneCount(c.source[lineStart:offset])}
}

func (c *converter) clamp(offset int) int {
	return min(max(offset, 0), len(c.source))
}
