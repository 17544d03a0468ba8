package sitter

import (
	"path/filepath"

	"github.com/src-d/enry/v2"
)

// enryLanguages maps enry language names to grammar identifiers.
var enryLanguages = map[string]string{
	"C":          "c",
	"C#":         "csharp",
	"C++":        "cpp",
	"CMake":      "cmake",
	"Go":         "go",
	"Java":       "java",
	"JavaScript": "javascript",
	"Kotlin":     "kotlin",
	"OCaml":      "ocaml",
	"PHP":        "php",
	"Python":     "python",
	"R":          "r",
	"Ruby":       "ruby",
	"Rust":       "rust",
	"TypeScript": "typescript",
}

// DetectLanguage guesses the grammar of a file from its name and, when the
// name is ambiguous, its content. It returns false when the detected
// language has no bundled grammar.
func DetectLanguage(filename string, content []byte) (string, bool) {
	name := enry.GetLanguage(filepath.Base(filename), nil)
	if name == "" && len(content) > 0 {
		name = enry.GetLanguage(filepath.Base(filename), content)
	}

	lang, ok := enryLanguages[name]

	return lang, ok
}
