// Package position converts (line, column) source positions into flat
// character offsets.
package position

import (
	"errors"
	"fmt"
	"unicode/utf8"
)

// ErrMalformedPosition is returned when a position falls outside the
// line-offset table it is resolved against. It signals a parser that broke
// its contract; callers must not clamp and retry.
var ErrMalformedPosition = errors.New("malformed position")

// Point is a zero-based line and a zero-based column counted in characters.
type Point struct {
	Line   int
	Column int
}

func (p Point) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// LineOffsets holds, for every line of a source buffer, the flat character
// offset of its first character. Entry 0 is always 0.
type LineOffsets []int

// NewLineOffsets scans source once and records the character index that
// follows every line feed. Invalid UTF-8 sequences count as one character
// each, matching utf8.DecodeRune.
func NewLineOffsets(source []byte) LineOffsets {
	offsets := LineOffsets{0}

	index := 0

	for len(source) > 0 {
		r, size := utf8.DecodeRune(source)
		source = source[size:]
		index++

		if r == '\n' {
			offsets = append(offsets, index)
		}
	}

	return offsets
}

// Lines returns the number of lines in the table.
func (lo LineOffsets) Lines() int {
	return len(lo)
}

// FlatOffset returns lo[p.Line] + p.Column.
func (lo LineOffsets) FlatOffset(p Point) (int, error) {
	if p.Line < 0 || p.Line >= len(lo) || p.Column < 0 {
		return 0, fmt.Errorf("%w: %s outside %d lines", ErrMalformedPosition, p, len(lo))
	}

	return lo[p.Line] + p.Column, nil
}
