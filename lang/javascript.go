package lang

import (
	"github.com/smacker/go-tree-sitter/javascript"
)

// NewJavaScript returns the JavaScript grammar.
//
// Besides the grammar's own fields (variable_declarator name/value,
// call_expression function/arguments, member_expression object/property,
// pair_pattern key/value, ...) the adapter projects positional children that
// patterns routinely need to address:
//
//	lexical_declaration.declarators   the variable_declarator list
//	object_pattern.properties         destructuring entries
//	arguments.items                   call argument expressions
//	string.fragments                  string content without quotes
//	expression_statement.expression   the wrapped expression
func NewJavaScript() Grammar {
	return newSitterGrammar(
		"javascript",
		[]string{".js", ".jsx", ".mjs", ".cjs"},
		javascript.GetLanguage(),
		jsFields(),
	)
}

func jsFields() fieldTable {
	return fieldTable{
		"program":              {"statements": {}},
		"statement_block":      {"statements": {}},
		"class_body":           {"members": {}},
		"lexical_declaration":  {"declarators": {kinds: []string{"variable_declarator"}}},
		"variable_declaration": {"declarators": {kinds: []string{"variable_declarator"}}},
		"object_pattern":       {"properties": {}},
		"object":               {"properties": {}},
		"array":                {"elements": {}},
		"array_pattern":        {"elements": {}},
		"arguments":            {"items": {}},
		"formal_parameters":    {"parameters": {}},
		"string":               {"fragments": {kinds: []string{"string_fragment"}}},
		"template_string":      {"fragments": {}},
		"expression_statement": {"expression": {single: true}},
		"parenthesized_expression": {
			"expression": {single: true},
		},
	}
}
