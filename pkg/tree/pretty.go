package tree

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

// WritePretty renders root one node per line, indented two spaces per
// depth, as "type label [start,end]". When colorize is set the type is bold
// and the label blue regardless of the terminal.
func WritePretty(w io.Writer, root *Node, colorize bool) error {
	if root == nil {
		return ErrNilTree
	}

	typeStyle := color.New(color.Bold)
	labelStyle := color.New(color.FgHiBlue)

	if colorize {
		typeStyle.EnableColor()
		labelStyle.EnableColor()
	} else {
		typeStyle.DisableColor()
		labelStyle.DisableColor()
	}

	bw := bufio.NewWriter(w)

	var writeErr error

	root.Walk(func(n *Node, depth int) bool {
		line := strings.Repeat("  ", depth) + typeStyle.Sprint(n.Type)
		if n.HasLabel {
			line += " " + labelStyle.Sprint(n.Label)
		}

		if _, err := fmt.Fprintf(bw, "%s [%d,%d]\n", line, n.Pos, n.End()); err != nil {
			writeErr = err

			return false
		}

		return true
	})

	if writeErr != nil {
		return writeErr
	}

	return bw.Flush()
}
