package lang

import (
	"github.com/smacker/go-tree-sitter/golang"
)

// NewGo returns the Go grammar.
func NewGo() Grammar {
	return newSitterGrammar(
		"go",
		[]string{".go"},
		golang.GetLanguage(),
		fieldTable{
			"source_file":                 {"statements": {}},
			"block":                       {"statements": {}},
			"argument_list":               {"items": {}},
			"expression_list":             {"items": {}},
			"parameter_list":              {"parameters": {kinds: []string{"parameter_declaration", "variadic_parameter_declaration"}}},
			"field_declaration_list":      {"fields": {kinds: []string{"field_declaration"}}},
			"import_spec_list":            {"imports": {kinds: []string{"import_spec"}}},
			"interpreted_string_literal":  {"fragments": {}},
			"raw_string_literal":          {"fragments": {}},
			"const_declaration":           {"specs": {kinds: []string{"const_spec"}}},
			"var_declaration":             {"specs": {kinds: []string{"var_spec"}}},
			"literal_value":               {"elements": {}},
			"expression_statement":        {"expression": {single: true}},
			"parenthesized_expression":    {"expression": {single: true}},
			"type_declaration":            {"specs": {kinds: []string{"type_spec"}}},
			"identifier_list":             {"items": {}},
		},
	)
}
