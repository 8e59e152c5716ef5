package lang

import (
	"github.com/smacker/go-tree-sitter/php"
)

// NewPHP returns the PHP grammar.
func NewPHP() Grammar {
	return newSitterGrammar(
		"php",
		[]string{".php", ".phtml"},
		php.GetLanguage(),
		fieldTable{
			"program":              {"statements": {}},
			"compound_statement":   {"statements": {}},
			"declaration_list":     {"members": {}},
			"arguments":            {"items": {kinds: []string{"argument"}}},
			"formal_parameters":    {"parameters": {}},
			"expression_statement": {"expression": {single: true}},
			"array_creation_expression": {
				"elements": {kinds: []string{"array_element_initializer"}},
			},
		},
	)
}
