package rewrite

// Category names one of the four rule collections of a language.
type Category string

// Rule categories, spelled as in the rules document.
const (
	CategoryFlattened    Category = "flattened"
	CategoryAliased      Category = "aliased"
	CategoryIgnored      Category = "ignored"
	CategoryLabelIgnored Category = "label_ignored"
)

// Categories lists every category in document order.
func Categories() []Category {
	return []Category{CategoryFlattened, CategoryAliased, CategoryIgnored, CategoryLabelIgnored}
}

// Alias replaces the emitted tag of nodes matching Selector with Type.
type Alias struct {
	Selector Selector
	Type     string
}

// Rules is the rewrite configuration of one language. It is never mutated
// once loaded and may be shared between concurrent translations.
// A nil *Rules means no rewriting.
type Rules struct {
	Flattened    []Selector
	Aliased      []Alias
	Ignored      []Selector
	LabelIgnored []Selector
}

// Empty returns a configuration that rewrites nothing.
func Empty() *Rules {
	return &Rules{}
}

// Flatten returns the first flattened selector matching node.
func (r *Rules) Flatten(node Ancestry) (Selector, bool) {
	if r == nil {
		return Selector{}, false
	}

	return FindSelector(node, r.Flattened)
}

// Alias returns the replacement tag of the first aliased selector matching node.
func (r *Rules) Alias(node Ancestry) (string, bool) {
	if r == nil {
		return "", false
	}

	for _, alias := range r.Aliased {
		if alias.Selector.Match(node) {
			return alias.Type, true
		}
	}

	return "", false
}

// Ignore returns the first ignored selector matching node.
func (r *Rules) Ignore(node Ancestry) (Selector, bool) {
	if r == nil {
		return Selector{}, false
	}

	return FindSelector(node, r.Ignored)
}

// IgnoreLabel returns the first label_ignored selector matching node.
func (r *Rules) IgnoreLabel(node Ancestry) (Selector, bool) {
	if r == nil {
		return Selector{}, false
	}

	return FindSelector(node, r.LabelIgnored)
}

// Count returns the number of rules in a category.
func (r *Rules) Count(category Category) int {
	if r == nil {
		return 0
	}

	switch category {
	case CategoryFlattened:
		return len(r.Flattened)
	case CategoryAliased:
		return len(r.Aliased)
	case CategoryIgnored:
		return len(r.Ignored)
	case CategoryLabelIgnored:
		return len(r.LabelIgnored)
	default:
		return 0
	}
}

// IsEmpty reports whether no category holds a rule.
func (r *Rules) IsEmpty() bool {
	for _, category := range Categories() {
		if r.Count(category) > 0 {
			return false
		}
	}

	return true
}

// Ruleset maps a language identifier to its rules.
type Ruleset map[string]*Rules

// Lookup returns the rules of lang, or an empty configuration when the
// language has none.
func (rs Ruleset) Lookup(lang string) *Rules {
	if rules, ok := rs[lang]; ok && rules != nil {
		return rules
	}

	return Empty()
}
