package tree

import (
	"errors"
	"fmt"
	"io"
	"strings"
)

// Format names an output rendering.
type Format string

// Supported formats.
const (
	FormatXML     Format = "xml"
	FormatPretty  Format = "pretty"
	FormatJSON    Format = "json"
	FormatMsgpack Format = "msgpack"
	// FormatMsgpackLZ4 is the msgpack form compressed as one LZ4 block.
	FormatMsgpackLZ4 Format = "msgpack-lz4"
)

// ErrUnknownFormat is returned for a format name that is not supported.
var ErrUnknownFormat = errors.New("unknown output format")

// ErrNilTree is returned when a nil tree is rendered.
var ErrNilTree = errors.New("nil tree")

// Formats lists the supported formats, the default first.
func Formats() []Format {
	return []Format{FormatXML, FormatPretty, FormatJSON, FormatMsgpack, FormatMsgpackLZ4}
}

// ParseFormat resolves a case-insensitive format name. An empty name is
// the XML format.
func ParseFormat(name string) (Format, error) {
	if name == "" {
		return FormatXML, nil
	}

	format := Format(strings.ToLower(strings.TrimSpace(name)))

	for _, known := range Formats() {
		if format == known {
			return format, nil
		}
	}

	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, name)
}

// RenderOptions tune the text renderings.
type RenderOptions struct {
	// Color enables ANSI styling in the pretty format.
	Color bool
	// Indent is the JSON indentation; empty means compact output.
	Indent string
}

// Write renders root to w in the given format.
func Write(w io.Writer, root *Node, format Format, opts RenderOptions) error {
	if root == nil {
		return ErrNilTree
	}

	switch format {
	case FormatXML, "":
		return WriteXML(w, root)
	case FormatPretty:
		return WritePretty(w, root, opts.Color)
	case FormatJSON:
		return WriteJSON(w, root, opts.Indent)
	case FormatMsgpack:
		return WriteMsgpack(w, root)
	case FormatMsgpackLZ4:
		return WriteMsgpackLZ4(w, root)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}
