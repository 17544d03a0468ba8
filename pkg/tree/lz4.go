package tree

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/pierrec/lz4/v4"
)

const (
	// lz4HeaderSize is the size of the uncompressed-length prefix.
	lz4HeaderSize = 4
	// rawBlockFlag marks a payload stored without compression.
	rawBlockFlag = 1 << 31
)

// ErrCorruptLZ4 is returned when a compressed tree cannot be decoded.
var ErrCorruptLZ4 = errors.New("corrupt lz4 tree")

// WriteMsgpackLZ4 renders root in the msgpack form compressed as one LZ4
// block, prefixed with the uncompressed size as a little-endian uint32.
func WriteMsgpackLZ4(w io.Writer, root *Node) error {
	if root == nil {
		return ErrNilTree
	}

	var plain bytes.Buffer

	if err := WriteMsgpack(&plain, root); err != nil {
		return err
	}

	compressed := make([]byte, lz4HeaderSize+lz4.CompressBlockBound(plain.Len()))
	binary.LittleEndian.PutUint32(compressed, uint32(plain.Len())) //nolint:gosec // trees are far below 4 GiB

	written, err := lz4.CompressBlock(plain.Bytes(), compressed[lz4HeaderSize:], nil)
	if err != nil {
		return fmt.Errorf("compress tree: %w", err)
	}

	// Incompressible input: CompressBlock reports 0 and the block is stored
	// raw with the high bit of the size set.
	if written == 0 {
		binary.LittleEndian.PutUint32(compressed, uint32(plain.Len())|rawBlockFlag) //nolint:gosec // see above
		compressed = append(compressed[:lz4HeaderSize], plain.Bytes()...)
	} else {
		compressed = compressed[:lz4HeaderSize+written]
	}

	if _, err = w.Write(compressed); err != nil {
		return fmt.Errorf("write compressed tree: %w", err)
	}

	return nil
}

// ReadMsgpackLZ4 decodes a tree written by WriteMsgpackLZ4.
func ReadMsgpackLZ4(r io.Reader) (*Node, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read compressed tree: %w", err)
	}

	if len(data) < lz4HeaderSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrCorruptLZ4, len(data))
	}

	size := binary.LittleEndian.Uint32(data)
	payload := data[lz4HeaderSize:]

	if size&rawBlockFlag != 0 {
		return ReadMsgpack(bytes.NewReader(payload))
	}

	plain := make([]byte, size)

	n, err := lz4.UncompressBlock(payload, plain)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptLZ4, err)
	}

	return ReadMsgpack(bytes.NewReader(plain[:n]))
}
