// Package textutil provides byte-level checks run on source buffers before
// they are handed to a grammar.
package textutil

import (
	"bytes"
	"unicode/utf8"
)

// BinarySniffLength is the maximum number of bytes scanned for a NUL byte.
// Matches the heuristic used by Git and most editors.
const BinarySniffLength = 8000

// IsBinary reports whether data contains a NUL byte within the first
// BinarySniffLength bytes. Empty data is not binary.
func IsBinary(data []byte) bool {
	sniff := data
	if len(sniff) > BinarySniffLength {
		sniff = sniff[:BinarySniffLength]
	}

	return bytes.IndexByte(sniff, 0) >= 0
}


// CountChars returns the number of characters in data. Invalid UTF-8 bytes
// count as one character each.
func CountChars(data []byte) int {
	return utf8.RuneCount(data)
}
