package sitter

import (
	"slices"
	"sync"
	"unsafe"

	"github.com/alexaandru/go-sitter-forest/c"
	"github.com/alexaandru/go-sitter-forest/c_sharp"
	"github.com/alexaandru/go-sitter-forest/cmake"
	"github.com/alexaandru/go-sitter-forest/cpp"
	golang "github.com/alexaandru/go-sitter-forest/go"
	"github.com/alexaandru/go-sitter-forest/java"
	"github.com/alexaandru/go-sitter-forest/javascript"
	"github.com/alexaandru/go-sitter-forest/kotlin"
	"github.com/alexaandru/go-sitter-forest/ocaml"
	"github.com/alexaandru/go-sitter-forest/php"
	"github.com/alexaandru/go-sitter-forest/python"
	"github.com/alexaandru/go-sitter-forest/r"
	"github.com/alexaandru/go-sitter-forest/ruby"
	"github.com/alexaandru/go-sitter-forest/rust"
	"github.com/alexaandru/go-sitter-forest/typescript"
	sitter "github.com/alexaandru/go-tree-sitter-bare"
)

// languageFuncs maps grammar identifiers to their tree-sitter GetLanguage
// functions. The identifiers are the keys of the rules document.
var languageFuncs = map[string]func() unsafe.Pointer{
	"c":          c.GetLanguage,
	"cmake":      cmake.GetLanguage,
	"cpp":        cpp.GetLanguage,
	"csharp":     c_sharp.GetLanguage,
	"go":         golang.GetLanguage,
	"java":       java.GetLanguage,
	"javascript": javascript.GetLanguage,
	"kotlin":     kotlin.GetLanguage,
	"ocaml":      ocaml.GetLanguage,
	"php":        php.GetLanguage,
	"python":     python.GetLanguage,
	"r":          r.GetLanguage,
	"ruby":       ruby.GetLanguage,
	"rust":       rust.GetLanguage,
	"typescript": typescript.GetLanguage,
}

var languageCache sync.Map

// Languages returns the sorted identifiers of the bundled grammars.
func Languages() []string {
	names := make([]string, 0, len(languageFuncs))
	for name := range languageFuncs {
		names = append(names, name)
	}

	slices.Sort(names)

	return names
}

// IsSupported reports whether a grammar is bundled for lang.
func IsSupported(lang string) bool {
	_, ok := languageFuncs[lang]

	return ok
}

// GetLanguage returns the tree-sitter Language for the given identifier, or
// nil if it is not bundled.
func GetLanguage(name string) *sitter.Language {
	if cached, ok := languageCache.Load(name); ok {
		lang, castOK := cached.(*sitter.Language)
		if castOK {
			return lang
		}
	}

	fn, ok := languageFuncs[name]
	if !ok {
		return nil
	}

	lang := sitter.NewLanguage(fn())
	languageCache.Store(name, lang)

	return lang
}
