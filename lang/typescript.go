package lang

import (
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// NewTypeScript returns the TypeScript grammar. The grammar is a superset of
// JavaScript, so it shares the JavaScript projection table.
func NewTypeScript() Grammar {
	return newSitterGrammar(
		"typescript",
		[]string{".ts", ".tsx"},
		typescript.GetLanguage(),
		jsFields(),
	)
}
