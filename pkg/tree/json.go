package tree

import (
	"encoding/json"
	"fmt"
	"io"
)

// MarshalJSON encodes the node with a label member only when it has one.
func (n *Node) MarshalJSON() ([]byte, error) {
	return json.Marshal(toWire(n))
}

// UnmarshalJSON decodes the form written by MarshalJSON.
func (n *Node) UnmarshalJSON(data []byte) error {
	var w wireNode

	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	*n = *fromWire(&w)

	return nil
}

// WriteJSON renders root as a JSON object. An empty indent writes compact
// JSON.
func WriteJSON(w io.Writer, root *Node, indent string) error {
	if root == nil {
		return ErrNilTree
	}

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)

	if indent != "" {
		enc.SetIndent("", indent)
	}

	if err := enc.Encode(toWire(root)); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}

	return nil
}

// ReadJSON decodes a tree written by WriteJSON.
func ReadJSON(r io.Reader) (*Node, error) {
	var w wireNode

	if err := json.NewDecoder(r).Decode(&w); err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}

	return fromWire(&w), nil
}
