package tree

import (
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"
)

// WriteMsgpack renders root in the binary msgpack form.
func WriteMsgpack(w io.Writer, root *Node) error {
	if root == nil {
		return ErrNilTree
	}

	enc := msgpack.NewEncoder(w)
	enc.UseCompactInts(true)

	if err := enc.Encode(toWire(root)); err != nil {
		return fmt.Errorf("encode msgpack: %w", err)
	}

	return nil
}

// ReadMsgpack decodes a tree written by WriteMsgpack.
func ReadMsgpack(r io.Reader) (*Node, error) {
	var w wireNode

	if err := msgpack.NewDecoder(r).Decode(&w); err != nil {
		return nil, fmt.Errorf("decode msgpack: %w", err)
	}

	return fromWire(&w), nil
}
