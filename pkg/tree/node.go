// Package tree defines the normalized output tree and its renderings.
package tree

// Node is one element of a normalized tree. Positions are flat character
// offsets into the source buffer. A Node is not modified after the
// normalizer returns it.
type Node struct {
	Type     string
	Label    string
	Children []*Node
	Pos      int
	Length   int
	// HasLabel distinguishes an empty label from no label.
	HasLabel bool
}

// New returns a node without label.
func New(typ string, pos, length int, children []*Node) *Node {
	return &Node{Type: typ, Pos: pos, Length: length, Children: children}
}

// NewLeaf returns a labeled node without children.
func NewLeaf(typ string, pos, length int, label string) *Node {
	return &Node{Type: typ, Pos: pos, Length: length, Label: label, HasLabel: true}
}

// End returns the exclusive end offset.
func (n *Node) End() int {
	return n.Pos + n.Length
}

// Walk calls fn for n and every descendant in pre-order with the depth of
// the node, the root being at depth 0. Returning false from fn skips the
// subtree of that node.
func (n *Node) Walk(fn func(node *Node, depth int) bool) {
	n.walk(fn, 0)
}

func (n *Node) walk(fn func(node *Node, depth int) bool, depth int) {
	if n == nil || !fn(n, depth) {
		return
	}

	for _, child := range n.Children {
		child.walk(fn, depth+1)
	}
}

// Size returns the number of nodes in the tree rooted at n.
func (n *Node) Size() int {
	size := 0

	n.Walk(func(*Node, int) bool {
		size++

		return true
	})

	return size
}

// wireNode is the serialized shape shared by the JSON and msgpack forms.
// A nil Label means the node carries no label.
type wireNode struct {
	Type     string      `json:"type"               msgpack:"type"`
	Pos      int         `json:"pos"                msgpack:"pos"`
	Length   int         `json:"length"             msgpack:"length"`
	Label    *string     `json:"label,omitempty"    msgpack:"label,omitempty"`
	Children []*wireNode `json:"children,omitempty" msgpack:"children,omitempty"`
}

func toWire(n *Node) *wireNode {
	w := &wireNode{Type: n.Type, Pos: n.Pos, Length: n.Length}

	if n.HasLabel {
		label := n.Label
		w.Label = &label
	}

	if len(n.Children) > 0 {
		w.Children = make([]*wireNode, len(n.Children))
		for i, child := range n.Children {
			w.Children[i] = toWire(child)
		}
	}

	return w
}

func fromWire(w *wireNode) *Node {
	n := &Node{Type: w.Type, Pos: w.Pos, Length: w.Length}

	if w.Label != nil {
		n.Label = *w.Label
		n.HasLabel = true
	}

	if len(w.Children) > 0 {
		n.Children = make([]*Node, len(w.Children))
		for i, child := range w.Children {
			n.Children[i] = fromWire(child)
		}
	}

	return n
}
