package lang

import (
	"github.com/smacker/go-tree-sitter/python"
)

// NewPython returns the Python grammar.
func NewPython() Grammar {
	return newSitterGrammar(
		"python",
		[]string{".py", ".pyw", ".pyi"},
		python.GetLanguage(),
		fieldTable{
			"module":               {"statements": {}},
			"block":                {"statements": {}},
			"argument_list":        {"items": {}},
			"parameters":           {"items": {}},
			"string":               {"fragments": {kinds: []string{"string_content"}}},
			"expression_statement": {"expression": {single: true}},
			"list":                 {"elements": {}},
			"tuple":                {"elements": {}},
			"dictionary":           {"entries": {kinds: []string{"pair"}}},
		},
	)
}
