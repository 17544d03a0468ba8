// Package rewrite holds the per-language rewrite rules and the ancestor-path
// selector matcher that decides which rules apply to a node.
package rewrite

import (
	"errors"
	"fmt"
	"strings"
)

// ErrEmptySelector is returned when a selector contains no tag names.
var ErrEmptySelector = errors.New("empty selector")

// Ancestry is the capability the matcher needs from a tree node.
type Ancestry interface {
	// Type returns the grammar tag of the node.
	Type() string
	// Parent returns the enclosing node, or false at the root.
	Parent() (Ancestry, bool)
}

// Selector is a contiguous chain of tags read outward to inward. The last
// tag names the node itself, the one before it its parent, and so on.
type Selector struct {
	tags []string
}

// ParseSelector splits a space-separated selector such as
// "class_declaration class_body" into its tags.
func ParseSelector(raw string) (Selector, error) {
	tags := strings.Fields(raw)
	if len(tags) == 0 {
		return Selector{}, fmt.Errorf("%w: %q", ErrEmptySelector, raw)
	}

	return Selector{tags: tags}, nil
}

// MustParseSelector is ParseSelector for literals known to be valid.
func MustParseSelector(raw string) Selector {
	sel, err := ParseSelector(raw)
	if err != nil {
		panic(err)
	}

	return sel
}

func (s Selector) String() string {
	return strings.Join(s.tags, " ")
}

// Match reports whether the k tags of the selector equal the tags of node
// and its k-1 nearest ancestors. Reaching the root before k nodes have been
// seen fails the match.
func (s Selector) Match(node Ancestry) bool {
	if len(s.tags) == 0 || node == nil {
		return false
	}

	current := node

	for i := len(s.tags) - 1; i >= 0; i-- {
		if current.Type() != s.tags[i] {
			return false
		}

		if i == 0 {
			break
		}

		parent, ok := current.Parent()
		if !ok {
			return false
		}

		current = parent
	}

	return true
}

// FindSelector returns the first selector in list order that matches node.
// List order is priority: with overlapping selectors the earlier one wins.
func FindSelector(node Ancestry, selectors []Selector) (Selector, bool) {
	for _, sel := range selectors {
		if sel.Match(node) {
			return sel, true
		}
	}

	return Selector{}, false
}
