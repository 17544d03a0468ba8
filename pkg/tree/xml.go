package tree

import (
	"bufio"
	"bytes"
	"encoding/xml"
	"io"
	"strconv"
	"strings"
)

const xmlHeader = `<?xml version="1.0" ?>` + "\n"

// WriteXML renders root as a GumTree document. Each node is a tree element
// with type, pos, length and, when present, label attributes. Children are
// indented two spaces per level and leaves are self-closing.
func WriteXML(w io.Writer, root *Node) error {
	if root == nil {
		return ErrNilTree
	}

	bw := bufio.NewWriter(w)

	if _, err := bw.WriteString(xmlHeader); err != nil {
		return err
	}

	var line bytes.Buffer

	if err := writeXMLNode(bw, &line, root, 0); err != nil {
		return err
	}

	return bw.Flush()
}

// writeXMLNode assembles each line of n in line, which cannot fail to
// grow, and hands it to w in a single checked write.
func writeXMLNode(w io.Writer, line *bytes.Buffer, n *Node, depth int) error {
	indent := strings.Repeat("  ", depth)

	line.Reset()
	line.WriteString(indent)
	line.WriteString(`<tree type="`)

	if err := xml.EscapeText(line, []byte(n.Type)); err != nil {
		return err
	}

	line.WriteString(`" pos="`)
	line.WriteString(strconv.Itoa(n.Pos))
	line.WriteString(`" length="`)
	line.WriteString(strconv.Itoa(n.Length))
	line.WriteByte('"')

	if n.HasLabel {
		line.WriteString(` label="`)

		if err := xml.EscapeText(line, []byte(n.Label)); err != nil {
			return err
		}

		line.WriteByte('"')
	}

	if len(n.Children) == 0 {
		line.WriteString("/>\n")

		return flushLine(w, line)
	}

	line.WriteString(">\n")

	if err := flushLine(w, line); err != nil {
		return err
	}

	for _, child := range n.Children {
		if err := writeXMLNode(w, line, child, depth+1); err != nil {
			return err
		}
	}

	line.Reset()
	line.WriteString(indent)
	line.WriteString("</tree>\n")

	return flushLine(w, line)
}

func flushLine(w io.Writer, line *bytes.Buffer) error {
	_, err := w.Write(line.Bytes())

	return err
}
