// Package pattern implements the pattern language: lexer, parser, and
// compiler producing the immutable combinator tree the engine matches with.
//
// A pattern program declares a target language, any number of named pattern
// definitions, and one entry expression:
//
//	language javascript
//
//	pattern require_call($mod) {
//	    call_expression(
//	        function = `require`,
//	        arguments = arguments(items = [string(fragments = [$mod])]),
//	    )
//	}
//
//	require_call(mod = $m) => `import $m`
package pattern

import "fmt"

// TokenType identifies a lexical token class.
type TokenType int

const (
	// TokenEOF marks the end of input.
	TokenEOF TokenType = iota

	// TokenIdent is a bare identifier: node kind, field name, or
	// pattern name.
	TokenIdent

	// TokenVariable is $name; the name excludes the dollar sign.
	TokenVariable

	// TokenTemplate is a back-quoted literal; Text holds the raw body
	// with escape sequences still intact.
	TokenTemplate

	TokenLParen   // (
	TokenRParen   // )
	TokenLBrace   // {
	TokenRBrace   // }
	TokenLBracket // [
	TokenRBracket // ]
	TokenComma    // ,
	TokenEq       // =
	TokenArrow    // =>
	TokenPlusEq   // +=
	TokenRefine   // <:

	// Keywords.
	TokenLanguage
	TokenPattern
	TokenOr
	TokenAnd
	TokenWhere
	TokenAs
	TokenSome
	TokenEvery
	TokenBubble
)

var tokenNames = map[TokenType]string{
	TokenEOF:      "end of input",
	TokenIdent:    "identifier",
	TokenVariable: "variable",
	TokenTemplate: "template",
	TokenLParen:   "'('",
	TokenRParen:   "')'",
	TokenLBrace:   "'{'",
	TokenRBrace:   "'}'",
	TokenLBracket: "'['",
	TokenRBracket: "']'",
	TokenComma:    "','",
	TokenEq:       "'='",
	TokenArrow:    "'=>'",
	TokenPlusEq:   "'+='",
	TokenRefine:   "'<:'",
	TokenLanguage: "'language'",
	TokenPattern:  "'pattern'",
	TokenOr:       "'or'",
	TokenAnd:      "'and'",
	TokenWhere:    "'where'",
	TokenAs:       "'as'",
	TokenSome:     "'some'",
	TokenEvery:    "'every'",
	TokenBubble:   "'bubble'",
}

func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return fmt.Sprintf("token(%d)", int(t))
}

var keywords = map[string]TokenType{
	"language": TokenLanguage,
	"pattern":  TokenPattern,
	"or":       TokenOr,
	"and":      TokenAnd,
	"where":    TokenWhere,
	"as":       TokenAs,
	"some":     TokenSome,
	"every":    TokenEvery,
	"bubble":   TokenBubble,
}

// Pos is a 1-based source position inside a pattern program.
type Pos struct {
	Line int
	Col  int
}

func (p Pos) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Col)
}

// Token is one lexical token with its source position.
type Token struct {
	Type TokenType
	Text string
	Pos  Pos
}

// CompileError reports a problem found while lexing, parsing, or compiling a
// pattern program. It aborts the run before any matching occurs.
type CompileError struct {
	Pos Pos
	Msg string
}

func (e *CompileError) Error() string {
	if e.Pos.Line == 0 {
		return "compile: " + e.Msg
	}
	return fmt.Sprintf("compile: %s: %s", e.Pos, e.Msg)
}

func errf(pos Pos, format string, args ...any) *CompileError {
	return &CompileError{Pos: pos, Msg: fmt.Sprintf(format, args...)}
}
